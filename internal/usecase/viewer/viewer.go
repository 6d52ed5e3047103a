package viewer

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sgf_viewer/internal/domain/record"
	"sgf_viewer/internal/domain/sgf"
	errs "sgf_viewer/internal/errors"
)

// RecordStore is what the viewer needs from the archive: the record
// itself plus a cache for the raw SGF text, so reopening a record does
// not hit the archive again.
type RecordStore interface {
	GetRecordByID(ctx context.Context, recordID string) (record.Record, error)
	SaveSGFToCache(recordID string, sgfText string) error
	LoadSGFFromCache(recordID string) (string, error)
}

// SessionStore keeps session id -> record id, so a session can be
// reopened after the in-memory state is gone.
type SessionStore interface {
	StoreSession(sessionID string, recordID string)
	GetRecordIDBySession(sessionID string) (string, bool)
	DeleteSession(sessionID string)
}

type ViewerUseCase struct {
	store    RecordStore
	sessions SessionStore
	log      *zap.SugaredLogger

	mu     sync.RWMutex
	active map[string]*Session
}

func NewViewerUseCase(store RecordStore, sessions SessionStore, log *zap.SugaredLogger) *ViewerUseCase {
	return &ViewerUseCase{
		store:    store,
		sessions: sessions,
		log:      log,
		active:   make(map[string]*Session),
	}
}

// Open loads a record, parses it and creates a viewer session with the
// cursor on the root. The raw SGF text is cached on first load.
func (u *ViewerUseCase) Open(ctx context.Context, recordID string) (*Session, error) {
	return u.open(ctx, recordID, uuid.New().String())
}

// open builds a session under the given id, so a reopen keeps the id
// it is reopened for instead of registering a throwaway one.
func (u *ViewerUseCase) open(ctx context.Context, recordID string, sessionID string) (*Session, error) {
	sgfText, err := u.store.LoadSGFFromCache(recordID)
	if err != nil || sgfText == "" {
		rec, err := u.store.GetRecordByID(ctx, recordID)
		if err != nil {
			return nil, err
		}
		sgfText = rec.Sgf
		if err := u.store.SaveSGFToCache(recordID, sgfText); err != nil {
			u.log.Errorf("failed to cache sgf for record %s: %v", recordID, err)
		}
	}

	tree, err := sgf.Parse(sgfText)
	if err != nil {
		u.log.Errorf("failed to parse record %s: %v", recordID, err)
		return nil, errs.ErrMalformedRecord
	}

	s := newSession(sessionID, recordID, tree)

	u.mu.Lock()
	u.active[s.ID] = s
	u.mu.Unlock()
	u.sessions.StoreSession(s.ID, recordID)

	u.log.Infof("viewer session %s opened for record %s", s.ID, recordID)
	return s, nil
}

// Get returns an active session. If the in-memory state is gone but the
// session id is still known, the record is reopened under the same id.
func (u *ViewerUseCase) Get(ctx context.Context, sessionID string) (*Session, error) {
	u.mu.RLock()
	s, ok := u.active[sessionID]
	u.mu.RUnlock()
	if ok {
		return s, nil
	}

	recordID, found := u.sessions.GetRecordIDBySession(sessionID)
	if !found {
		return nil, errs.ErrSessionNotFound
	}
	return u.open(ctx, recordID, sessionID)
}

// Close destroys a session. The whole tree and projection are dropped
// as a unit.
func (u *ViewerUseCase) Close(sessionID string) {
	u.mu.Lock()
	delete(u.active, sessionID)
	u.mu.Unlock()
	u.sessions.DeleteSession(sessionID)
	u.log.Infof("viewer session %s closed", sessionID)
}

// Drop removes only the in-memory state, e.g. after a structural
// violation, keeping the session id reopenable.
func (u *ViewerUseCase) Drop(sessionID string) {
	u.mu.Lock()
	delete(u.active, sessionID)
	u.mu.Unlock()
}
