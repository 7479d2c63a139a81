// Package walletctl wires the wallet client components for the command line.
package walletctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MarkoPoloResearchLab/walletctl/internal/ledgerclient"
	"github.com/MarkoPoloResearchLab/walletctl/internal/refresh"
	"github.com/MarkoPoloResearchLab/walletctl/internal/session"
	"github.com/MarkoPoloResearchLab/walletctl/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/walletctl/internal/transfer"
	"github.com/MarkoPoloResearchLab/walletctl/internal/viewmodel"
	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
	"go.uber.org/zap"
)

// ErrLoggedOut is returned by Watch when the session ends while watching.
var ErrLoggedOut = errors.New("logged out")

// DashboardOption configures a Dashboard.
type DashboardOption func(*dashboardOptions)

type dashboardOptions struct {
	storage session.Storage
	clock   func() time.Time
}

// WithSessionStorage replaces the GORM session store.
func WithSessionStorage(storage session.Storage) DashboardOption {
	return func(options *dashboardOptions) {
		options.storage = storage
	}
}

// WithClock overrides the clock used for credential expiry and watch frames.
func WithClock(now func() time.Time) DashboardOption {
	return func(options *dashboardOptions) {
		if now != nil {
			options.clock = now
		}
	}
}

// Dashboard is the client-side state of one user: session, ledger view, and
// the workflows that keep it current.
type Dashboard struct {
	config     Config
	logger     *zap.Logger
	session    *session.Context
	client     *ledgerclient.Client
	model      *viewmodel.Model
	sequencer  *viewmodel.Sequencer
	scheduler  *refresh.Scheduler
	workflow   *transfer.Workflow
	nowFn      func() time.Time
	closeStore func() error
}

// NewDashboard validates cfg and wires every component.
func NewDashboard(ctx context.Context, cfg Config, logger *zap.Logger, options ...DashboardOption) (*Dashboard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := dashboardOptions{clock: time.Now}
	for _, option := range options {
		if option != nil {
			option(&settings)
		}
	}

	closeStore := func() error { return nil }
	storage := settings.storage
	if storage == nil {
		store, cleanup, err := gormstore.Open(ctx, cfg.SessionDatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		storage = store
		closeStore = cleanup
	}

	operationLogger := NewZapOperationLogger(logger)
	sessionContext := session.New(session.WithStorage(storage), session.WithClock(settings.clock))
	client, err := ledgerclient.New(cfg.APIBaseURL, sessionContext,
		ledgerclient.WithTimeout(cfg.RequestTimeout),
		ledgerclient.WithOperationLogger(operationLogger),
	)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	model := viewmodel.New()
	sequencer := &viewmodel.Sequencer{}
	scheduler, err := refresh.NewScheduler(client, sessionContext, model, sequencer, refresh.WithOperationLogger(operationLogger))
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	workflow, err := transfer.NewWorkflow(client, model, sequencer, scheduler,
		transfer.WithAuthenticator(sessionContext),
		transfer.WithOperationLogger(operationLogger),
	)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	sessionContext.OnInvalidate(func() {
		model.Reset()
		logger.Info("session ended")
	})

	return &Dashboard{
		config:     cfg,
		logger:     logger,
		session:    sessionContext,
		client:     client,
		model:      model,
		sequencer:  sequencer,
		scheduler:  scheduler,
		workflow:   workflow,
		nowFn:      settings.clock,
		closeStore: closeStore,
	}, nil
}

// Close stops background work and releases the session store.
func (dashboard *Dashboard) Close() error {
	dashboard.scheduler.Stop()
	return dashboard.closeStore()
}

// Model exposes the view model for rendering.
func (dashboard *Dashboard) Model() *viewmodel.Model {
	return dashboard.model
}

// Session exposes the session context.
func (dashboard *Dashboard) Session() *session.Context {
	return dashboard.session
}

// Restore resumes the session saved by an earlier login.
func (dashboard *Dashboard) Restore(ctx context.Context) error {
	err := dashboard.session.Restore(ctx)
	if errors.Is(err, session.ErrNoStoredSession) {
		return fmt.Errorf("%w: not logged in", ledger.ErrUnauthenticated)
	}
	return err
}

// Login authenticates and persists the resulting session.
func (dashboard *Dashboard) Login(ctx context.Context, username string, password string) (ledger.Session, error) {
	current, err := dashboard.client.Login(ctx, username, password)
	if err != nil {
		return ledger.Session{}, err
	}
	if err := dashboard.session.Establish(ctx, current); err != nil {
		return ledger.Session{}, err
	}
	dashboard.logger.Info("logged in", zap.String("user_id", current.UserID.String()), zap.String("username", current.DisplayName))
	return current, nil
}

// Register creates an account.
func (dashboard *Dashboard) Register(ctx context.Context, username string, email string, password string) error {
	return dashboard.client.Register(ctx, username, email, password)
}

// Logout ends the session, locally and in storage.
func (dashboard *Dashboard) Logout(ctx context.Context) {
	dashboard.scheduler.Stop()
	dashboard.session.Invalidate(ctx)
}

// Refresh loads balance and history once.
func (dashboard *Dashboard) Refresh(ctx context.Context) error {
	err := dashboard.scheduler.RunOnce(ctx)
	if errors.Is(err, viewmodel.ErrStaleSequence) {
		return nil
	}
	return err
}

// Transfer submits draft. On success the history is refreshed before it
// returns, or by the watch loop when one is running.
func (dashboard *Dashboard) Transfer(ctx context.Context, draft ledger.TransferDraft) transfer.Outcome {
	return dashboard.workflow.Transfer(ctx, draft)
}

// Users lists possible receivers.
func (dashboard *Dashboard) Users(ctx context.Context) ([]ledgerclient.User, error) {
	return dashboard.client.ListUsers(ctx)
}

// SortBy applies each key in turn, toggling like repeated column clicks.
func (dashboard *Dashboard) SortBy(keys ...ledger.SortKey) ledger.SortCriterion {
	criterion := dashboard.model.SortCriterion()
	for _, key := range keys {
		criterion = dashboard.model.SetSortCriterion(key)
	}
	return criterion
}

// Watch refreshes immediately, then on the configured interval, rendering a
// frame to writer after every change. It returns nil when ctx ends and
// ErrLoggedOut when the session does.
func (dashboard *Dashboard) Watch(ctx context.Context, writer io.Writer) error {
	if err := dashboard.Refresh(ctx); err != nil && ledger.KindOf(err) == ledger.FailureUnauthorized {
		return ErrLoggedOut
	} else if err != nil {
		dashboard.logger.Warn("initial refresh failed", zap.Error(err))
	}
	if err := RenderWatchFrame(writer, dashboard.model, dashboard.nowFn()); err != nil {
		return err
	}

	changed := make(chan struct{}, 1)
	unregister := dashboard.model.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unregister()
	if err := dashboard.scheduler.Start(ctx, dashboard.config.RefreshInterval); err != nil {
		return err
	}
	defer dashboard.scheduler.Stop()
	stopped := dashboard.scheduler.Done()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stopped:
			if !dashboard.session.IsAuthenticated() {
				return ErrLoggedOut
			}
			return nil
		case <-changed:
			if !dashboard.session.IsAuthenticated() {
				continue
			}
			if err := RenderWatchFrame(writer, dashboard.model, dashboard.nowFn()); err != nil {
				return err
			}
		}
	}
}
