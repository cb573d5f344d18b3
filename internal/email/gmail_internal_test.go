package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildMIME(t *testing.T) {
	t.Parallel()

	raw := buildMIME(Message{
		From:     `"ANC System" <anc@example.com>`,
		To:       "ann@example.com",
		Subject:  "Your appointment is scheduled (1/1/2024, 10:00:00 AM)",
		HTMLBody: "<p>Dear Ann,</p>",
	})

	headers, body, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok)
	require.Equal(t, "<p>Dear Ann,</p>", body)
	require.Contains(t, headers, "From: \"ANC System\" <anc@example.com>\r\n")
	require.Contains(t, headers, "To: ann@example.com\r\n")
	require.Contains(t, headers, "Content-Type: text/html; charset=UTF-8")
	require.Contains(t, headers, "Subject: Your appointment is scheduled (1/1/2024, 10:00:00 AM)")
}
