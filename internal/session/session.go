// Package session holds the authenticated identity for the lifetime of the client.
//
// A Context is the single owner of the bearer credential. Components ask it for
// the credential before every ledger call and never cache it; when the server
// rejects the credential the Context is invalidated, which clears persisted
// state and closes Done so scheduled work stops.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNoStoredSession is returned by Storage.Load when nothing was persisted.
var ErrNoStoredSession = errors.New("no stored session")

// Storage persists the session between client runs.
type Storage interface {
	Load(ctx context.Context) (ledger.Session, error)
	Save(ctx context.Context, session ledger.Session) error
	Clear(ctx context.Context) error
}

// Option configures a Context.
type Option func(*Context)

// WithStorage persists the session on Establish and clears it on Invalidate.
func WithStorage(storage Storage) Option {
	return func(sessionContext *Context) {
		sessionContext.storage = storage
	}
}

// WithClock overrides the wall clock used for credential expiry checks.
func WithClock(now func() time.Time) Option {
	return func(sessionContext *Context) {
		if now != nil {
			sessionContext.nowFn = now
		}
	}
}

// Context is the session holder shared by the ledger client, the transfer
// workflow, and the refresh scheduler.
type Context struct {
	mu           sync.Mutex
	session      ledger.Session
	expiresAt    time.Time
	active       bool
	done         chan struct{}
	storage      Storage
	nowFn        func() time.Time
	onInvalidate []func()
}

// New returns an unauthenticated Context.
func New(options ...Option) *Context {
	sessionContext := &Context{
		done:  closedChannel(),
		nowFn: time.Now,
	}
	for _, option := range options {
		if option != nil {
			option(sessionContext)
		}
	}
	return sessionContext
}

// Establish installs session as the current identity and persists it.
func (sessionContext *Context) Establish(ctx context.Context, session ledger.Session) error {
	if session.UserID.IsZero() {
		return fmt.Errorf("%w: empty value", ledger.ErrInvalidUserID)
	}
	if session.Credential.IsZero() {
		return fmt.Errorf("%w: empty value", ledger.ErrInvalidCredential)
	}
	if sessionContext.storage != nil {
		if err := sessionContext.storage.Save(ctx, session); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}
	sessionContext.install(session)
	return nil
}

// Restore re-establishes the session saved by a previous run.
func (sessionContext *Context) Restore(ctx context.Context) error {
	if sessionContext.storage == nil {
		return ErrNoStoredSession
	}
	session, err := sessionContext.storage.Load(ctx)
	if err != nil {
		return err
	}
	sessionContext.install(session)
	if !sessionContext.IsAuthenticated() {
		sessionContext.Invalidate(ctx)
		return ledger.ErrUnauthenticated
	}
	return nil
}

func (sessionContext *Context) install(session ledger.Session) {
	sessionContext.mu.Lock()
	defer sessionContext.mu.Unlock()
	if sessionContext.active {
		close(sessionContext.done)
	}
	sessionContext.session = session
	sessionContext.expiresAt = credentialExpiry(session.Credential)
	sessionContext.active = true
	sessionContext.done = make(chan struct{})
}

// IsAuthenticated reports whether a non-expired credential is held.
func (sessionContext *Context) IsAuthenticated() bool {
	sessionContext.mu.Lock()
	defer sessionContext.mu.Unlock()
	return sessionContext.validLocked()
}

func (sessionContext *Context) validLocked() bool {
	if !sessionContext.active {
		return false
	}
	if sessionContext.expiresAt.IsZero() {
		return true
	}
	return sessionContext.nowFn().Before(sessionContext.expiresAt)
}

// Credential returns the bearer credential or ErrUnauthenticated.
func (sessionContext *Context) Credential() (ledger.Credential, error) {
	sessionContext.mu.Lock()
	defer sessionContext.mu.Unlock()
	if !sessionContext.validLocked() {
		return ledger.Credential{}, ledger.ErrUnauthenticated
	}
	return sessionContext.session.Credential, nil
}

// Current returns the held session and whether it is valid.
func (sessionContext *Context) Current() (ledger.Session, bool) {
	sessionContext.mu.Lock()
	defer sessionContext.mu.Unlock()
	if !sessionContext.validLocked() {
		return ledger.Session{}, false
	}
	return sessionContext.session, true
}

// Done is closed when the current session is invalidated or replaced.
// Without a session it returns an already closed channel.
func (sessionContext *Context) Done() <-chan struct{} {
	sessionContext.mu.Lock()
	defer sessionContext.mu.Unlock()
	return sessionContext.done
}

// OnInvalidate registers a callback run after every invalidation.
func (sessionContext *Context) OnInvalidate(callback func()) {
	if callback == nil {
		return
	}
	sessionContext.mu.Lock()
	defer sessionContext.mu.Unlock()
	sessionContext.onInvalidate = append(sessionContext.onInvalidate, callback)
}

// Invalidate clears all session state, wipes storage, and signals dependents.
// Calling it without an active session is a no-op.
func (sessionContext *Context) Invalidate(ctx context.Context) {
	sessionContext.mu.Lock()
	if !sessionContext.active {
		sessionContext.mu.Unlock()
		return
	}
	sessionContext.active = false
	sessionContext.session = ledger.Session{}
	sessionContext.expiresAt = time.Time{}
	close(sessionContext.done)
	callbacks := append([]func(){}, sessionContext.onInvalidate...)
	storage := sessionContext.storage
	sessionContext.mu.Unlock()

	if storage != nil {
		_ = storage.Clear(ctx)
	}
	for _, callback := range callbacks {
		callback()
	}
}

// InvalidateCredential invalidates the session only while credential is still
// the one held. It reports whether anything was invalidated.
func (sessionContext *Context) InvalidateCredential(ctx context.Context, credential ledger.Credential) bool {
	sessionContext.mu.Lock()
	held := sessionContext.active && sessionContext.session.Credential == credential
	sessionContext.mu.Unlock()
	if !held {
		return false
	}
	sessionContext.Invalidate(ctx)
	return true
}

// credentialExpiry reads the exp claim when the credential is a JWT. The
// signature is not checked; the server remains the authority.
func credentialExpiry(credential ledger.Credential) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential.String(), &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func closedChannel() chan struct{} {
	channel := make(chan struct{})
	close(channel)
	return channel
}
