package draft

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/google/uuid"
)

const DefaultQuietPeriod = time.Second

// Store persists draft state for a request.
type Store interface {
	// SaveDraft writes overlay as the request's draft. A nil overlay clears it.
	SaveDraft(ctx context.Context, requestID uuid.UUID, overlay *models.DraftOverlay) error
	// ApplyDraft replaces the saved fields and clears the draft.
	ApplyDraft(ctx context.Context, requestID uuid.UUID, fields models.RequestFields) error
}

// Notifier is told when a draft write lands.
type Notifier func(requestID uuid.UUID, overlay *models.DraftOverlay)

type pending struct {
	timer   Timer
	gen     uint64
	overlay *models.DraftOverlay
	// fields is the complete in-progress form the overlay was derived from.
	fields models.RequestFields
}

// Tracker debounces draft persistence. Each request has at most one pending
// write; an edit inside the quiet period replaces it. Store calls for one
// request never overlap, so a write that already started cannot land after
// an Apply or Restore that followed it.
type Tracker struct {
	store     Store
	scheduler Scheduler
	quiet     time.Duration
	logger    *slog.Logger
	notify    Notifier

	mu      sync.Mutex
	gen     uint64
	pending map[uuid.UUID]*pending
	writing map[uuid.UUID]chan struct{}
}

type Option func(*Tracker)

func WithScheduler(s Scheduler) Option {
	return func(t *Tracker) { t.scheduler = s }
}

func WithQuietPeriod(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.quiet = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(t *Tracker) { t.notify = n }
}

func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:     store,
		scheduler: WallClock{},
		quiet:     DefaultQuietPeriod,
		logger:    slog.Default(),
		pending:   make(map[uuid.UUID]*pending),
		writing:   make(map[uuid.UUID]chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Edit records the in-progress fields of a request and (re)schedules the
// draft write. It reports whether current differs from saved. Reverting every
// edit schedules a write that clears the stored draft.
func (t *Tracker) Edit(requestID uuid.UUID, saved, current models.RequestFields) bool {
	overlay := Overlay(saved, current)

	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.pending[requestID]; ok {
		p.timer.Stop()
	}
	t.gen++
	gen := t.gen
	p := &pending{gen: gen, overlay: overlay, fields: current.Clone()}
	p.timer = t.scheduler.AfterFunc(t.quiet, func() { t.fire(requestID, gen) })
	t.pending[requestID] = p

	return overlay != nil
}

// Pending reports whether a draft write is scheduled for the request.
func (t *Tracker) Pending(requestID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[requestID]
	return ok
}

// Current returns the in-progress fields of the request when an edit is
// waiting to be written, and fallback otherwise. The second result reports
// which one it was. Callers pass the stored effective fields as fallback.
func (t *Tracker) Current(requestID uuid.UUID, fallback models.RequestFields) (models.RequestFields, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[requestID]
	if !ok {
		return fallback.Clone(), false
	}
	return p.fields.Clone(), true
}

// acquire waits until no store call is running for the request and claims
// the slot. The returned func releases it.
func (t *Tracker) acquire(ctx context.Context, requestID uuid.UUID) (func(), error) {
	for {
		t.mu.Lock()
		busy, ok := t.writing[requestID]
		if !ok {
			done := make(chan struct{})
			t.writing[requestID] = done
			t.mu.Unlock()
			return func() {
				t.mu.Lock()
				delete(t.writing, requestID)
				t.mu.Unlock()
				close(done)
			}, nil
		}
		t.mu.Unlock()

		select {
		case <-busy:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// take removes the pending write for requestID if it is still generation gen.
func (t *Tracker) take(requestID uuid.UUID, gen uint64) (*pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[requestID]
	if !ok || p.gen != gen {
		return nil, false
	}
	delete(t.pending, requestID)
	return p, true
}

func (t *Tracker) fire(requestID uuid.UUID, gen uint64) {
	ctx := context.Background()
	release, err := t.acquire(ctx, requestID)
	if err != nil {
		return
	}
	defer release()

	// Apply, Restore or a newer edit may have superseded this write while
	// it waited for the slot
	p, ok := t.take(requestID, gen)
	if !ok {
		return
	}
	t.persist(ctx, requestID, p.overlay)
}

func (t *Tracker) persist(ctx context.Context, requestID uuid.UUID, overlay *models.DraftOverlay) {
	if err := t.store.SaveDraft(ctx, requestID, overlay); err != nil {
		// the next edit schedules a fresh write carrying the latest overlay
		t.logger.Warn("draft save failed", "request_id", requestID, "error", err)
		return
	}
	t.logger.Debug("draft saved", "request_id", requestID, "has_draft_edits", overlay != nil)
	if t.notify != nil {
		t.notify(requestID, overlay)
	}
}

// discard drops any pending write for the request.
func (t *Tracker) discard(requestID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.pending[requestID]; ok {
		p.timer.Stop()
		delete(t.pending, requestID)
	}
}

// Apply commits current as the saved fields and clears the draft. It waits
// for a draft write that is already running so that write cannot land last.
func (t *Tracker) Apply(ctx context.Context, requestID uuid.UUID, current models.RequestFields) (models.RequestFields, error) {
	t.discard(requestID)
	release, err := t.acquire(ctx, requestID)
	if err != nil {
		return models.RequestFields{}, fmt.Errorf("apply draft: %w", err)
	}
	defer release()

	fields := current.Clone()
	if err := t.store.ApplyDraft(ctx, requestID, fields); err != nil {
		return models.RequestFields{}, fmt.Errorf("apply draft: %w", err)
	}
	return fields, nil
}

// Restore discards the draft and returns the saved fields.
func (t *Tracker) Restore(ctx context.Context, requestID uuid.UUID, saved models.RequestFields) (models.RequestFields, error) {
	t.discard(requestID)
	release, err := t.acquire(ctx, requestID)
	if err != nil {
		return models.RequestFields{}, fmt.Errorf("restore draft: %w", err)
	}
	defer release()

	if err := t.store.SaveDraft(ctx, requestID, nil); err != nil {
		return models.RequestFields{}, fmt.Errorf("restore draft: %w", err)
	}
	return saved.Clone(), nil
}

// Flush writes every pending draft now. Used on shutdown.
func (t *Tracker) Flush(ctx context.Context) {
	t.mu.Lock()
	due := t.pending
	t.pending = make(map[uuid.UUID]*pending)
	t.mu.Unlock()

	for requestID, p := range due {
		p.timer.Stop()
		release, err := t.acquire(ctx, requestID)
		if err != nil {
			t.logger.Warn("draft flush abandoned", "request_id", requestID, "error", err)
			continue
		}
		t.persist(ctx, requestID, p.overlay)
		release()
	}
}
