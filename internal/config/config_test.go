package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ancsystem/anc-notifier/internal/config"
)

// chdir moves into an empty directory so no config.yaml or .env is picked up
func chdir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	require.Equal(t, "smtp", cfg.Mail.Provider)
	require.Equal(t, "ANC System", cfg.Mail.SenderName)
	require.Equal(t, "smtp.gmail.com", cfg.Mail.SMTP.Host)
	require.Equal(t, 587, cfg.Mail.SMTP.Port)
	require.False(t, cfg.Mail.Configured())
	require.Equal(t, "postgres", cfg.Directory.Backend)
	require.Equal(t, []string{"postgres"}, cfg.Trigger.Sources)
	require.Equal(t, "scheduled_appointment_created", cfg.Trigger.PostgresChannel)
	require.Equal(t, 60*time.Second, cfg.Trigger.HandlerTimeout)
	require.Equal(t, 24*time.Hour, cfg.Trigger.DedupeTTL)
	require.Equal(t, "UTC", cfg.Notify.Timezone)
	require.Equal(t, "1/2/2006, 3:04:05 PM", cfg.Notify.DateLayout)
	require.Empty(t, cfg.Callable.AuthSecret)
	require.Equal(t, 30, cfg.Security.RateLimiting.Limit)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t)

	t.Setenv("ANC_MAIL_ACCOUNT", "anc@example.com")
	t.Setenv("ANC_MAIL_PASSWORD", "app-password")
	t.Setenv("ANC_SERVER_PORT", "9090")
	t.Setenv("ANC_TRIGGER_DEDUPE_TTL", "0s")
	t.Setenv("ANC_NOTIFY_TIMEZONE", "Europe/Berlin")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "anc@example.com", cfg.Mail.Account)
	require.True(t, cfg.Mail.Configured())
	require.Equal(t, 9090, cfg.Server.Port)
	require.Zero(t, cfg.Trigger.DedupeTTL)
	require.Equal(t, "Europe/Berlin", cfg.Notify.Timezone)
}

func TestLoad_ConfigFile(t *testing.T) {
	chdir(t)

	yaml := []byte(`
mail:
  provider: gmail
  account: anc@example.com
  gmail:
    refresh_token: tok
directory:
  backend: mongo
`)
	require.NoError(t, os.WriteFile(filepath.Join(".", "config.yaml"), yaml, 0o600))

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "gmail", cfg.Mail.Provider)
	require.True(t, cfg.Mail.Configured())
	require.Equal(t, "mongo", cfg.Directory.Backend)
	require.Equal(t, "users", cfg.Directory.Collection)
}

func TestMailConfig_Configured(t *testing.T) {
	t.Parallel()

	require.False(t, config.MailConfig{Password: "p"}.Configured())
	require.False(t, config.MailConfig{Account: "a@example.com"}.Configured())
	require.True(t, config.MailConfig{Account: "a@example.com", Password: "p"}.Configured())
	require.False(t, config.MailConfig{Provider: "gmail", Account: "a@example.com", Password: "p"}.Configured())
	require.True(t, config.MailConfig{
		Provider: "gmail",
		Account:  "a@example.com",
		Gmail:    config.GmailEmailConfig{CredentialsJSON: "{}"},
	}.Configured())
}
