package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"

	"github.com/ancsystem/anc-notifier/internal/auth"
	"github.com/ancsystem/anc-notifier/internal/config"
	"github.com/ancsystem/anc-notifier/internal/database"
	"github.com/ancsystem/anc-notifier/internal/email"
	"github.com/ancsystem/anc-notifier/internal/logger"
	"github.com/ancsystem/anc-notifier/internal/model"
	"github.com/ancsystem/anc-notifier/internal/notify"
	"github.com/ancsystem/anc-notifier/internal/repository"
	"github.com/ancsystem/anc-notifier/internal/trigger"
)

var rootCmd = &cobra.Command{
	Use:           "mailctl",
	Short:         "Operator tool for the ANC notifier",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one email through the configured mail account",
	RunE:  runSend,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a caller token for the send-email endpoint",
	RunE:  runToken,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Create a fake scheduled appointment to exercise the trigger",
	RunE:  runSimulate,
}

var (
	sendTo      string
	sendSubject string
	sendBody    string

	tokenSubject string

	simulateVia     string
	simulatePatient string
	simulateDoctor  string
)

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient address")
	sendCmd.Flags().StringVar(&sendSubject, "subject", "", "subject line")
	sendCmd.Flags().StringVar(&sendBody, "body", "", "HTML body")

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "caller identity recorded in the token")

	simulateCmd.Flags().StringVar(&simulateVia, "via", "postgres", "where to create the appointment: postgres or redis")
	simulateCmd.Flags().StringVar(&simulatePatient, "patient-email", "", "patient address written into the document")
	simulateCmd.Flags().StringVar(&simulateDoctor, "doctor-email", "", "doctor address written into the document")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(simulateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, "text")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	mailer := email.NewMailer(email.NewSender(ctx, cfg.Mail, log), cfg.Mail.Account, cfg.Mail.SenderName)
	svc := notify.NewEmailService(mailer, log)

	resp, err := svc.SendEmail(ctx, notify.SendEmailRequest{
		To:         sendTo,
		Subject:    sendSubject,
		TextOrHTML: sendBody,
	})
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	token, expiresAt, err := auth.NewTokenService(cfg.Callable).Issue(tokenSubject)
	if errors.Is(err, auth.ErrAuthDisabled) {
		return errors.New("callable.auth_secret is not set; the endpoint does not check tokens")
	}
	if err != nil {
		return err
	}

	return printJSON(map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	when := time.Now().Add(time.Duration(gofakeit.Number(1, 30*24)) * time.Hour)
	date, err := json.Marshal(map[string]int64{"_seconds": when.Unix(), "_nanoseconds": 0})
	if err != nil {
		return err
	}
	appt := &model.Appointment{
		PatientFirstname: gofakeit.FirstName(),
		PatientSurname:   gofakeit.LastName(),
		PatientEmail:     simulatePatient,
		DoctorFirstname:  gofakeit.FirstName(),
		DoctorSurname:    gofakeit.LastName(),
		DoctorEmail:      simulateDoctor,
		AppointmentDate:  date,
		Notes:            "Simulated appointment",
	}

	var id string
	switch simulateVia {
	case "postgres":
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		id, err = repository.NewAppointmentRepository(db).Create(ctx, appt)
		if err != nil {
			return err
		}
	case "redis":
		rdb, err := database.NewRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer rdb.Close()

		id = gofakeit.UUID()
		if err := trigger.PublishAppointment(ctx, rdb, cfg.Trigger.RedisChannel, id, appt); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown target %q", simulateVia)
	}

	return printJSON(map[string]interface{}{
		"id":          id,
		"via":         simulateVia,
		"appointment": appt,
	})
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
