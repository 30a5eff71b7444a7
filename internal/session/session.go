// Package session keeps one uploaded dataset per client in a store.Store.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AyushAagrwal/DataStatX/internal/analysis"
	"github.com/AyushAagrwal/DataStatX/internal/apperr"
	"github.com/AyushAagrwal/DataStatX/internal/store"
)

const keyPrefix = "session:"

// ErrNoDataset is returned when a session has nothing uploaded.
var ErrNoDataset = apperr.Local(apperr.CodeNoDataset, "no dataset uploaded; upload a CSV file first", nil)

// Session is one client's uploaded dataset.
type Session struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	CSV        []byte    `json:"csv"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Manager reads and writes sessions.
type Manager struct {
	store store.Store
	ttl   time.Duration
	opt   analysis.Options
}

// NewManager returns a Manager whose sessions expire ttl after their last upload.
func NewManager(st store.Store, ttl time.Duration, opt analysis.Options) *Manager {
	return &Manager{store: st, ttl: ttl, opt: opt}
}

// NewID returns a fresh session id.
func NewID() string { return uuid.NewString() }

// ValidID reports whether id looks like an id issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Put parses data and, if it is a usable CSV, replaces whatever the session
// held before. A failed parse leaves the previous upload untouched.
func (m *Manager) Put(ctx context.Context, id, fileName string, data []byte) (*analysis.Dataset, error) {
	if !ValidID(id) {
		return nil, apperr.Local(apperr.CodeInvalidInput, "invalid session id", nil)
	}
	ds, err := m.parse(fileName, data)
	if err != nil {
		return nil, err
	}
	s := Session{ID: id, FileName: fileName, CSV: data, UploadedAt: time.Now().UTC()}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, keyPrefix+id, b, m.ttl); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return ds, nil
}

// Get returns the stored session or ErrNoDataset.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNoDataset
	}
	b, ok, err := m.store.Get(ctx, keyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, ErrNoDataset
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Dataset parses the session's current upload.
func (m *Manager) Dataset(ctx context.Context, id string) (*analysis.Dataset, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.parse(s.FileName, s.CSV)
}

// Clear drops the session's dataset.
func (m *Manager) Clear(ctx context.Context, id string) error {
	return m.store.Delete(ctx, keyPrefix+id)
}

func (m *Manager) parse(fileName string, data []byte) (*analysis.Dataset, error) {
	if len(data) == 0 {
		return nil, apperr.Local(apperr.CodeNoUpload, "uploaded file is empty", nil)
	}
	ds, err := analysis.Parse(fileName, bytes.NewReader(data), m.opt)
	if err != nil {
		return nil, apperr.Local(apperr.CodeInvalidInput, "read csv", err)
	}
	return ds, nil
}
