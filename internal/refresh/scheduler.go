// Package refresh keeps the view model in step with the ledger server by
// fetching balance and history together on a fixed interval and on demand.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/walletctl/internal/viewmodel"
	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyRunning is returned by Start when the loop is active.
var ErrAlreadyRunning = errors.New("refresh scheduler already running")

// Fetcher reads the two halves of a snapshot.
type Fetcher interface {
	FetchBalance(ctx context.Context) (ledger.Amount, error)
	FetchHistory(ctx context.Context, userID ledger.UserID) ([]ledger.Transaction, error)
}

// Session is the part of the session context the scheduler depends on.
type Session interface {
	Current() (ledger.Session, bool)
	IsAuthenticated() bool
	Done() <-chan struct{}
}

// TickerFactory returns a tick channel and its stop function.
type TickerFactory func(interval time.Duration) (<-chan time.Time, func())

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithOperationLogger reports every run.
func WithOperationLogger(logger ledger.OperationLogger) Option {
	return func(scheduler *Scheduler) {
		scheduler.logger = logger
	}
}

// WithTickerFactory replaces time.NewTicker.
func WithTickerFactory(factory TickerFactory) Option {
	return func(scheduler *Scheduler) {
		if factory != nil {
			scheduler.newTicker = factory
		}
	}
}

// Scheduler runs refreshes one at a time. Periodic ticks that fire during a
// run are dropped; explicit triggers coalesce into a single follow-up run.
type Scheduler struct {
	fetcher   Fetcher
	session   Session
	model     *viewmodel.Model
	sequencer *viewmodel.Sequencer
	logger    ledger.OperationLogger
	newTicker TickerFactory

	runMu   sync.Mutex
	trigger chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler wires a Scheduler. model and sequencer must be shared with the transfer workflow.
func NewScheduler(fetcher Fetcher, sessionContext Session, model *viewmodel.Model, sequencer *viewmodel.Sequencer, options ...Option) (*Scheduler, error) {
	if fetcher == nil {
		return nil, errors.New("refresh fetcher is nil")
	}
	if sessionContext == nil {
		return nil, errors.New("refresh session is nil")
	}
	if model == nil || sequencer == nil {
		return nil, errors.New("view model is nil")
	}
	scheduler := &Scheduler{
		fetcher:   fetcher,
		session:   sessionContext,
		model:     model,
		sequencer: sequencer,
		newTicker: systemTicker,
		trigger:   make(chan struct{}, 1),
	}
	for _, option := range options {
		if option != nil {
			option(scheduler)
		}
	}
	return scheduler, nil
}

func systemTicker(interval time.Duration) (<-chan time.Time, func()) {
	ticker := time.NewTicker(interval)
	return ticker.C, ticker.Stop
}

// Start launches the periodic loop. It returns immediately; the loop ends on
// Stop, on ctx cancellation, when the session ends, or after an Unauthorized run.
func (scheduler *Scheduler) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	if scheduler.done != nil {
		select {
		case <-scheduler.done:
		default:
			return ErrAlreadyRunning
		}
	}
	select {
	case <-scheduler.trigger:
	default:
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	scheduler.cancel = cancel
	scheduler.done = done
	ticks, stopTicker := scheduler.newTicker(interval)
	go scheduler.loop(loopCtx, ticks, stopTicker, done)
	return nil
}

func (scheduler *Scheduler) loop(ctx context.Context, ticks <-chan time.Time, stopTicker func(), done chan struct{}) {
	defer close(done)
	defer stopTicker()
	sessionDone := scheduler.session.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sessionDone:
			return
		case <-ticks:
		case <-scheduler.trigger:
		}
		if err := scheduler.RunOnce(ctx); ledger.KindOf(err) == ledger.FailureUnauthorized {
			return
		}
	}
}

// Stop ends the loop and waits for an in-flight run to finish.
func (scheduler *Scheduler) Stop() {
	scheduler.mu.Lock()
	cancel, done := scheduler.cancel, scheduler.done
	scheduler.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the loop exits. It is nil before the first Start.
func (scheduler *Scheduler) Done() <-chan struct{} {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return scheduler.done
}

// Running reports whether the periodic loop is active.
func (scheduler *Scheduler) Running() bool {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	if scheduler.done == nil {
		return false
	}
	select {
	case <-scheduler.done:
		return false
	default:
		return true
	}
}

// Refresh hands a run to the loop when it is active and otherwise runs one
// before returning. A stale result is not an error.
func (scheduler *Scheduler) Refresh(ctx context.Context) error {
	if scheduler.Running() {
		scheduler.Trigger()
		return nil
	}
	err := scheduler.RunOnce(ctx)
	if errors.Is(err, viewmodel.ErrStaleSequence) {
		return nil
	}
	return err
}

// Trigger requests a run as soon as the loop is free. Requests made while
// one is already pending are merged.
func (scheduler *Scheduler) Trigger() {
	select {
	case scheduler.trigger <- struct{}{}:
	default:
	}
}

// RunOnce fetches balance and history concurrently and applies them as one
// snapshot. On any failure nothing is applied. A run whose sequence number is
// older than the last applied state returns viewmodel.ErrStaleSequence.
func (scheduler *Scheduler) RunOnce(ctx context.Context) error {
	scheduler.runMu.Lock()
	defer scheduler.runMu.Unlock()

	current, ok := scheduler.session.Current()
	if !ok {
		scheduler.log(ctx, ledger.UserID{}, 0, ledger.ErrUnauthenticated)
		return ledger.ErrUnauthenticated
	}
	sequence := scheduler.sequencer.Next()

	var (
		balance      ledger.Amount
		transactions []ledger.Transaction
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		fetched, err := scheduler.fetcher.FetchBalance(groupCtx)
		balance = fetched
		return err
	})
	group.Go(func() error {
		fetched, err := scheduler.fetcher.FetchHistory(groupCtx, current.UserID)
		transactions = fetched
		return err
	})
	if err := group.Wait(); err != nil {
		scheduler.log(ctx, current.UserID, sequence, err)
		return err
	}
	if !scheduler.session.IsAuthenticated() {
		scheduler.log(ctx, current.UserID, sequence, ledger.ErrUnauthenticated)
		return ledger.ErrUnauthenticated
	}
	err := scheduler.model.ApplySnapshot(sequence, balance, transactions)
	scheduler.log(ctx, current.UserID, sequence, err)
	return err
}

func (scheduler *Scheduler) log(ctx context.Context, userID ledger.UserID, sequence int64, err error) {
	ledger.LogOperation(ctx, scheduler.logger, ledger.OperationLog{
		Operation: ledger.OperationRefresh,
		UserID:    userID,
		Sequence:  sequence,
		Error:     err,
	})
}
