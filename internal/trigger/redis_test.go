package trigger_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ancsystem/anc-notifier/internal/trigger"
)

func TestParseRedisMessage(t *testing.T) {
	t.Parallel()

	t.Run("id and document", func(t *testing.T) {
		t.Parallel()

		ev, err := trigger.ParseRedisMessage(`{"id":"a1","data":{"patientEmail":"ann@example.com"}}`)
		require.NoError(t, err)
		require.Equal(t, "a1", ev.DocID)
		require.JSONEq(t, `{"patientEmail":"ann@example.com"}`, string(ev.Document))
	})

	t.Run("id only", func(t *testing.T) {
		t.Parallel()

		ev, err := trigger.ParseRedisMessage(`{"id":"a2"}`)
		require.NoError(t, err)
		require.Equal(t, "a2", ev.DocID)
		require.Empty(t, ev.Document)
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		t.Parallel()

		_, err := trigger.ParseRedisMessage(`not json`)
		require.Error(t, err)

		_, err = trigger.ParseRedisMessage(`{"data":{}}`)
		require.ErrorIs(t, err, trigger.ErrUnreadable)
	})
}
