// Package trigger feeds newly created scheduled_appointment documents to the
// appointment notifier.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ancsystem/anc-notifier/internal/logger"
	"github.com/ancsystem/anc-notifier/internal/model"
	"github.com/ancsystem/anc-notifier/internal/notify"
	"github.com/ancsystem/anc-notifier/internal/repository"
)

// Dispatch outcomes that stop an event before the notifier runs
var (
	ErrDuplicate  = errors.New("appointment already handled")
	ErrUnreadable = errors.New("appointment document is missing or unreadable")
)

const dedupeKeyPrefix = "notify:scheduled_appointment:"

// Event announces one created document. Document is the document itself when
// the source carries it; otherwise it is loaded by DocID.
type Event struct {
	DocID    string
	Document json.RawMessage
}

// Source delivers events until ctx is cancelled
type Source interface {
	Name() string
	Run(ctx context.Context, dispatch func(Event)) error
}

// Handler reacts to a created appointment
type Handler interface {
	HandleCreated(ctx context.Context, docID string, appt *model.Appointment) notify.Outcome
}

// AppointmentStore loads documents by id
type AppointmentStore interface {
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
}

// Claimer records that an id is being handled. Claim returns false when the
// id was already claimed.
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// DispatcherConfig holds Dispatcher settings
type DispatcherConfig struct {
	HandlerTimeout time.Duration
	DedupeTTL      time.Duration
}

// Dispatcher turns source events into notifier invocations, one goroutine per event.
type Dispatcher struct {
	handler Handler
	store   AppointmentStore
	claimer Claimer
	cfg     DispatcherConfig
	log     *logger.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. store and claimer may be nil: without a
// store only events carrying their document can be handled, without a claimer
// events are not de-duplicated.
func NewDispatcher(handler Handler, store AppointmentStore, claimer Claimer, cfg DispatcherConfig, log *logger.Logger) *Dispatcher {
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = time.Minute
	}
	return &Dispatcher{
		handler: handler,
		store:   store,
		claimer: claimer,
		cfg:     cfg,
		log:     log.WithComponent("trigger"),
	}
}

// Dispatch handles ev in the background. The invocation gets its own timeout
// and outlives the source that produced it; Wait blocks until it finishes.
func (d *Dispatcher) Dispatch(ev Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error().
					Interface("error", r).
					Str("stack", string(debug.Stack())).
					Str("appointment_id", ev.DocID).
					Msg("panic recovered in appointment trigger")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.HandlerTimeout)
		defer cancel()

		if err := d.Handle(ctx, ev); err != nil {
			d.log.Debug().Err(err).Str("appointment_id", ev.DocID).Msg("appointment event skipped")
		}
	}()
}

// Run drives every source until ctx is cancelled, then waits for in-flight
// events. A source that fails is logged and the others keep running.
func (d *Dispatcher) Run(ctx context.Context, sources ...Source) {
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			if err := src.Run(ctx, d.Dispatch); err != nil {
				d.log.Error().Err(err).Str("source", src.Name()).Msg("trigger source stopped")
			}
		}(src)
	}
	wg.Wait()
	d.Wait()
}

// Wait blocks until every dispatched event has been handled
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Handle runs one event synchronously. The returned error only explains why
// an event was skipped; notifier failures never surface here.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	if ev.DocID == "" {
		return fmt.Errorf("event without document id: %w", ErrUnreadable)
	}

	appt, err := d.load(ctx, ev)
	if err != nil {
		return err
	}

	if d.claimer != nil && d.cfg.DedupeTTL > 0 {
		ok, err := d.claimer.Claim(ctx, dedupeKeyPrefix+ev.DocID, d.cfg.DedupeTTL)
		switch {
		case err != nil:
			d.log.Warn().Err(err).Str("appointment_id", ev.DocID).Msg("failed to claim appointment; handling anyway")
		case !ok:
			return ErrDuplicate
		}
	}

	d.handler.HandleCreated(ctx, ev.DocID, appt)
	return nil
}

func (d *Dispatcher) load(ctx context.Context, ev Event) (*model.Appointment, error) {
	if len(ev.Document) > 0 {
		appt, err := model.DecodeAppointment(ev.Document)
		if err != nil {
			d.log.Warn().Err(err).Str("appointment_id", ev.DocID).Msg("appointment document is not a JSON object; no emails sent")
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		if appt.IsEmpty() {
			return nil, ErrUnreadable
		}
		return appt, nil
	}

	if d.store == nil {
		return nil, fmt.Errorf("%w: no document and no store to load it from", ErrUnreadable)
	}

	appt, err := d.store.GetByID(ctx, ev.DocID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if err != nil {
		d.log.Warn().Err(err).Str("appointment_id", ev.DocID).Msg("failed to load appointment")
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if appt.IsEmpty() {
		return nil, ErrUnreadable
	}
	return appt, nil
}
