package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/walletctl/internal/session"
	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	errorOperationStore = "store"
	errorSubjectSession = "session"
	errorCodeClear      = "clear"
	errorCodeInvalid    = "invalid"
	errorCodeLoad       = "load"
	errorCodeSave       = "save"
	errorCodeMigrate    = "migrate"
)

// Store implements session.Storage using GORM.
type Store struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db, nowFn: time.Now}
}

// Migrate creates the client_sessions table when missing.
func (store *Store) Migrate(ctx context.Context) error {
	if err := store.db.WithContext(ctx).AutoMigrate(&StoredSession{}); err != nil {
		return wrapStoreError(errorCodeMigrate, err)
	}
	return nil
}

// Load returns the persisted session or session.ErrNoStoredSession.
func (store *Store) Load(ctx context.Context) (ledger.Session, error) {
	var row StoredSession
	err := store.db.WithContext(ctx).
		Where("slot = ?", currentSessionSlot).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Session{}, session.ErrNoStoredSession
		}
		return ledger.Session{}, wrapStoreError(errorCodeLoad, err)
	}
	stored, err := ledger.NewSession(row.UserID, row.DisplayName, row.Credential)
	if err != nil {
		return ledger.Session{}, wrapStoreError(errorCodeInvalid, err)
	}
	return stored, nil
}

// Save upserts the single session row.
func (store *Store) Save(ctx context.Context, current ledger.Session) error {
	now := store.nowFn().UTC()
	row := StoredSession{
		Slot:        currentSessionSlot,
		UserID:      current.UserID.String(),
		DisplayName: current.DisplayName,
		Credential:  current.Credential.String(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "display_name", "credential", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return wrapStoreError(errorCodeSave, err)
	}
	return nil
}

// Clear removes every persisted session row.
func (store *Store) Clear(ctx context.Context) error {
	err := store.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&StoredSession{}).Error
	if err != nil {
		return wrapStoreError(errorCodeClear, err)
	}
	return nil
}

func wrapStoreError(code string, err error) error {
	return ledger.WrapError(errorOperationStore, errorSubjectSession, code, err)
}
