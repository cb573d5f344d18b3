package trigger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/ancsystem/anc-notifier/internal/database"
	"github.com/ancsystem/anc-notifier/internal/logger"
)

const listenerPingInterval = 90 * time.Second

// Listener is the part of *pq.Listener a PostgresSource drives
type Listener interface {
	Listen(channel string) error
	Ping() error
	Close() error
	NotificationChannel() <-chan *pq.Notification
}

// ListenerFactory opens a Listener reporting connection state to onEvent
type ListenerFactory func(onEvent func(ev pq.ListenerEventType, err error)) Listener

// PostgresSource listens for the notification the scheduled_appointment insert
// trigger emits. The payload is the new document id.
type PostgresSource struct {
	open         ListenerFactory
	channel      string
	pingInterval time.Duration
	log          *logger.Logger
}

// NewPostgresSource creates a source listening on channel over a dedicated
// connection of db
func NewPostgresSource(db *database.Postgres, channel string, log *logger.Logger) *PostgresSource {
	return NewPostgresSourceWithListener(func(onEvent func(pq.ListenerEventType, error)) Listener {
		return db.NewListener(onEvent)
	}, channel, listenerPingInterval, log)
}

// NewPostgresSourceWithListener creates a source over listeners built by open,
// pinging the connection every pingInterval.
func NewPostgresSourceWithListener(open ListenerFactory, channel string, pingInterval time.Duration, log *logger.Logger) *PostgresSource {
	if pingInterval <= 0 {
		pingInterval = listenerPingInterval
	}
	return &PostgresSource{
		open:         open,
		channel:      channel,
		pingInterval: pingInterval,
		log:          log.WithComponent("trigger_postgres"),
	}
}

// Name identifies the source in logs
func (s *PostgresSource) Name() string {
	return "postgres"
}

// Run listens until ctx is cancelled. Notifications sent while the listener
// is reconnecting are lost.
func (s *PostgresSource) Run(ctx context.Context, dispatch func(Event)) error {
	listener := s.open(s.onConnectionEvent)
	defer listener.Close()

	if err := listener.Listen(s.channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.channel, err)
	}

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	notifications := listener.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			// nil after a reconnect
			if n == nil {
				continue
			}
			id := strings.TrimSpace(n.Extra)
			if id == "" {
				s.log.Warn().Msg("appointment notification without id")
				continue
			}
			dispatch(Event{DocID: id})
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					s.log.Warn().Err(err).Msg("appointment listener ping failed")
				}
			}()
		}
	}
}

func (s *PostgresSource) onConnectionEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		s.log.Info().Str("channel", s.channel).Msg("listening for new appointments")
	case pq.ListenerEventDisconnected:
		s.log.Warn().Err(err).Msg("appointment listener disconnected")
	case pq.ListenerEventReconnected:
		s.log.Warn().Msg("appointment listener reconnected; appointments created meanwhile were not notified")
	case pq.ListenerEventConnectionAttemptFailed:
		s.log.Error().Err(err).Msg("appointment listener connection attempt failed")
	}
}
