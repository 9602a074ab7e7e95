package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/sentinelauth/internal/common"
	"github.com/dmitrijs2005/sentinelauth/internal/server/models"
	"github.com/google/uuid"
)

// MemoryStore is a process-local Store. Every operation is one critical
// section, so Rotate is atomic with respect to other callers.
type MemoryStore struct {
	mu            sync.Mutex
	byID          map[string]*models.RefreshToken
	byFingerprint map[string]string
	byUser        map[string]map[string]struct{}
	now           func() time.Time
}

// NewMemoryStore returns an empty store. A nil clock defaults to time.Now;
// it only stamps CreatedAt.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		byID:          make(map[string]*models.RefreshToken),
		byFingerprint: make(map[string]string),
		byUser:        make(map[string]map[string]struct{}),
		now:           now,
	}
}

func (s *MemoryStore) Create(_ context.Context, userID, fingerprint string, expiresAt time.Time) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(userID, fingerprint, expiresAt)
}

func (s *MemoryStore) FindByFingerprint(_ context.Context, fingerprint string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byFingerprint[fingerprint]
	if !ok {
		return nil, common.ErrorNotFound
	}
	t := *s.byID[id]
	return &t, nil
}

func (s *MemoryStore) Revoke(_ context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.byID[token.ID]; ok {
		t.IsRevoked = true
	}
	return nil
}

func (s *MemoryStore) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id := range s.byUser[userID] {
		if t := s.byID[id]; !t.IsRevoked {
			t.IsRevoked = true
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Rotate(_ context.Context, old *models.RefreshToken, newFingerprint string, newExpiresAt time.Time) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[old.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if cur.IsRevoked {
		return nil, common.ErrTokenRevoked
	}
	if _, dup := s.byFingerprint[newFingerprint]; dup {
		return nil, common.ErrAlreadyExists
	}
	cur.IsRevoked = true
	return s.insertLocked(cur.UserID, newFingerprint, newExpiresAt)
}

func (s *MemoryStore) insertLocked(userID, fingerprint string, expiresAt time.Time) (*models.RefreshToken, error) {
	if _, dup := s.byFingerprint[fingerprint]; dup {
		return nil, common.ErrAlreadyExists
	}
	t := &models.RefreshToken{
		ID:          uuid.NewString(),
		UserID:      userID,
		Fingerprint: fingerprint,
		ExpiresAt:   expiresAt,
		CreatedAt:   s.now(),
	}
	s.byID[t.ID] = t
	s.byFingerprint[fingerprint] = t.ID
	if s.byUser[userID] == nil {
		s.byUser[userID] = make(map[string]struct{})
	}
	s.byUser[userID][t.ID] = struct{}{}

	out := *t
	return &out, nil
}
