package trigger_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ancsystem/anc-notifier/internal/logger"
	"github.com/ancsystem/anc-notifier/internal/model"
	"github.com/ancsystem/anc-notifier/internal/notify"
	"github.com/ancsystem/anc-notifier/internal/repository"
	"github.com/ancsystem/anc-notifier/internal/trigger"
)

type handled struct {
	docID string
	appt  *model.Appointment
}

type fakeHandler struct {
	mu    sync.Mutex
	calls []handled
	panic bool
}

func (h *fakeHandler) HandleCreated(_ context.Context, docID string, appt *model.Appointment) notify.Outcome {
	if h.panic {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, handled{docID, appt})
	return notify.Outcome{}
}

func (h *fakeHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

type fakeStore map[string]*model.Appointment

func (s fakeStore) GetByID(_ context.Context, id string) (*model.Appointment, error) {
	appt, ok := s[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return appt, nil
}

type fakeClaimer struct {
	mu      sync.Mutex
	claimed map[string]time.Duration
	err     error
}

func (c *fakeClaimer) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	if c.claimed == nil {
		c.claimed = map[string]time.Duration{}
	}
	if _, ok := c.claimed[key]; ok {
		return false, nil
	}
	c.claimed[key] = ttl
	return true, nil
}

func TestDispatcher_Handle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	stored := &model.Appointment{PatientEmail: "ann@example.com"}
	cfg := trigger.DispatcherConfig{DedupeTTL: time.Hour}

	t.Run("loads the document by id", func(t *testing.T) {
		t.Parallel()

		h := &fakeHandler{}
		d := trigger.NewDispatcher(h, fakeStore{"a1": stored}, nil, cfg, logger.Nop())

		require.NoError(t, d.Handle(ctx, trigger.Event{DocID: "a1"}))
		require.Equal(t, []handled{{"a1", stored}}, h.calls)
	})

	t.Run("uses the document carried by the event", func(t *testing.T) {
		t.Parallel()

		h := &fakeHandler{}
		d := trigger.NewDispatcher(h, nil, nil, cfg, logger.Nop())

		err := d.Handle(ctx, trigger.Event{DocID: "a2", Document: json.RawMessage(`{"doctorEmail":"bob@example.com"}`)})
		require.NoError(t, err)
		require.Len(t, h.calls, 1)
		require.Equal(t, "bob@example.com", h.calls[0].appt.DoctorEmail)
	})

	t.Run("mistyped fields do not drop the document", func(t *testing.T) {
		t.Parallel()

		h := &fakeHandler{}
		d := trigger.NewDispatcher(h, nil, nil, cfg, logger.Nop())

		err := d.Handle(ctx, trigger.Event{DocID: "a8", Document: json.RawMessage(`{"notes":123,"doctorEmail":"bob@example.com"}`)})
		require.NoError(t, err)
		require.Len(t, h.calls, 1)
		require.Equal(t, "123", h.calls[0].appt.Notes)
	})

	t.Run("unreadable events never reach the handler", func(t *testing.T) {
		t.Parallel()

		h := &fakeHandler{}
		d := trigger.NewDispatcher(h, fakeStore{"empty": {}}, nil, cfg, logger.Nop())

		events := []trigger.Event{
			{},
			{DocID: "missing"},
			{DocID: "empty"},
			{DocID: "bad", Document: json.RawMessage(`{"notes":`)},
			{DocID: "blank", Document: json.RawMessage(`{}`)},
		}
		for _, ev := range events {
			require.ErrorIs(t, d.Handle(ctx, ev), trigger.ErrUnreadable, ev.DocID)
		}
		require.Empty(t, h.calls)
	})

	t.Run("no store and no document", func(t *testing.T) {
		t.Parallel()

		d := trigger.NewDispatcher(&fakeHandler{}, nil, nil, cfg, logger.Nop())
		require.ErrorIs(t, d.Handle(ctx, trigger.Event{DocID: "a3"}), trigger.ErrUnreadable)
	})

	t.Run("an id is handled once", func(t *testing.T) {
		t.Parallel()

		h := &fakeHandler{}
		claimer := &fakeClaimer{}
		d := trigger.NewDispatcher(h, fakeStore{"a4": stored}, claimer, cfg, logger.Nop())

		require.NoError(t, d.Handle(ctx, trigger.Event{DocID: "a4"}))
		require.ErrorIs(t, d.Handle(ctx, trigger.Event{DocID: "a4"}), trigger.ErrDuplicate)
		require.Len(t, h.calls, 1)
		require.Equal(t, time.Hour, claimer.claimed["notify:scheduled_appointment:a4"])
	})

	t.Run("claim failure still handles", func(t *testing.T) {
		t.Parallel()

		h := &fakeHandler{}
		claimer := &fakeClaimer{err: errors.New("redis down")}
		d := trigger.NewDispatcher(h, fakeStore{"a5": stored}, claimer, cfg, logger.Nop())

		require.NoError(t, d.Handle(ctx, trigger.Event{DocID: "a5"}))
		require.Len(t, h.calls, 1)
	})

	t.Run("zero ttl disables de-duplication", func(t *testing.T) {
		t.Parallel()

		h := &fakeHandler{}
		claimer := &fakeClaimer{}
		d := trigger.NewDispatcher(h, fakeStore{"a6": stored}, claimer, trigger.DispatcherConfig{}, logger.Nop())

		require.NoError(t, d.Handle(ctx, trigger.Event{DocID: "a6"}))
		require.NoError(t, d.Handle(ctx, trigger.Event{DocID: "a6"}))
		require.Len(t, h.calls, 2)
		require.Empty(t, claimer.claimed)
	})
}

type sliceSource struct {
	events []trigger.Event
}

func (s *sliceSource) Name() string { return "slice" }

func (s *sliceSource) Run(ctx context.Context, dispatch func(trigger.Event)) error {
	for _, ev := range s.events {
		dispatch(ev)
	}
	<-ctx.Done()
	return nil
}

type failingSource struct{}

func (failingSource) Name() string { return "failing" }

func (failingSource) Run(context.Context, func(trigger.Event)) error {
	return errors.New("listen failed")
}

func TestDispatcher_Run(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{}
	store := fakeStore{
		"a1": {PatientEmail: "ann@example.com"},
		"a2": {DoctorEmail: "bob@example.com"},
	}
	d := trigger.NewDispatcher(h, store, &fakeClaimer{}, trigger.DispatcherConfig{DedupeTTL: time.Hour}, logger.Nop())

	src := &sliceSource{events: []trigger.Event{{DocID: "a1"}, {DocID: "a2"}, {DocID: "a1"}}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx, src, failingSource{})
	}()

	require.Eventually(t, func() bool { return h.count() == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.Equal(t, 2, h.count())
}

func TestDispatcher_DispatchRecoversPanics(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{panic: true}
	d := trigger.NewDispatcher(h, fakeStore{"a1": {Notes: "x"}}, nil, trigger.DispatcherConfig{}, logger.Nop())

	require.NotPanics(t, func() {
		d.Dispatch(trigger.Event{DocID: "a1"})
		d.Wait()
	})
}
