package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/google/uuid"
)

// ErrInFlight rejects a send while the previous one is still running.
var ErrInFlight = errors.New("a send is already in flight for this request")

// Observer receives every outcome exactly once per send.
type Observer func(Outcome)

// Dispatcher owns the single in-flight call of one request.
//
// Each send gets a sequence number. An outcome is only emitted if its
// sequence is still current and nothing settled it first, so a cancelled
// call can never later report success or failure.
type Dispatcher struct {
	requestID uuid.UUID
	transport Transport
	observer  Observer
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	seq     uint64
	settled bool
	cancel  context.CancelFunc
}

func NewDispatcher(requestID uuid.UUID, transport Transport, observer Observer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		requestID: requestID,
		transport: transport,
		observer:  observer,
		logger:    logger,
		state:     StateIdle,
	}
}

func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Send builds and issues the call, blocking until it settles. The returned
// outcome is the one delivered to the observer; a send cancelled midway
// returns the Cancelled outcome.
func (d *Dispatcher) Send(ctx context.Context, fields models.RequestFields, opts SendOptions) (Outcome, error) {
	d.mu.Lock()
	if d.state == StateSending {
		d.mu.Unlock()
		return Outcome{}, ErrInFlight
	}
	d.seq++
	seq := d.seq
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.settled = false
	d.state = StateSending
	d.mu.Unlock()
	defer cancel()

	call, err := Build(fields, opts)
	if err != nil {
		outcome := failed(ErrorKindURLValidation, "Invalid URL", err.Error())
		outcome.URL = fields.URL
		return d.finish(seq, outcome), nil
	}

	var resp *ProxyResponse
	if call.Form != nil {
		resp, err = d.transport.SendForm(ctx, call.Form)
	} else {
		resp, err = d.transport.Send(ctx, call.Structured)
	}

	outcome := Classify(resp, err)
	outcome.URL = call.URL()
	return d.finish(seq, outcome), nil
}

// finish settles seq with outcome unless a cancel got there first.
func (d *Dispatcher) finish(seq uint64, outcome Outcome) Outcome {
	outcome.RequestID = d.requestID

	d.mu.Lock()
	if seq != d.seq || d.settled {
		d.mu.Unlock()
		d.logger.Debug("discarding late outcome", "request_id", d.requestID, "state", outcome.State)
		return Outcome{RequestID: d.requestID, State: StateCancelled, URL: outcome.URL}
	}
	d.settled = true
	d.state = outcome.State
	d.mu.Unlock()

	d.emit(outcome)
	return outcome
}

// Cancel settles the in-flight call as Cancelled and detaches it. It reports
// false when nothing was in flight.
func (d *Dispatcher) Cancel() bool {
	d.mu.Lock()
	if d.state != StateSending || d.settled {
		d.mu.Unlock()
		return false
	}
	d.settled = true
	d.state = StateCancelled
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.emit(Outcome{RequestID: d.requestID, State: StateCancelled})
	return true
}

func (d *Dispatcher) emit(outcome Outcome) {
	d.logger.Info("request settled",
		"request_id", outcome.RequestID,
		"state", outcome.State,
		"status", outcome.Status,
		"error_type", outcome.ErrorType,
	)
	if d.observer != nil {
		d.observer(outcome)
	}
}
