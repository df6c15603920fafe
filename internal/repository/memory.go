package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mmeshcher/gymreserve/internal/model"
)

// MemoryRepository хранит сеансы и черновики в памяти процесса.
// Используется, когда адрес БД не задан.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	drafts   map[string]model.StoredDraft
	now      func() time.Time
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]model.Session),
		drafts:   make(map[string]model.StoredDraft),
		now:      time.Now,
	}
}

// Close ничего не делает.
func (r *MemoryRepository) Close() error {
	return nil
}

// SaveSession сохраняет сеанс.
func (r *MemoryRepository) SaveSession(_ context.Context, s model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return nil
}

// GetSession возвращает сеанс по идентификатору.
func (r *MemoryRepository) GetSession(_ context.Context, id string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// DeleteSession удаляет сеанс вместе с его черновиком.
func (r *MemoryRepository) DeleteSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	delete(r.drafts, id)
	return nil
}

// SaveDraft сохраняет снимок черновика сеанса.
func (r *MemoryRepository) SaveDraft(_ context.Context, sessionID, memberID string, d model.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[sessionID] = model.StoredDraft{
		SessionID: sessionID,
		MemberID:  memberID,
		Draft:     d.Clone(),
		UpdatedAt: r.now(),
	}
	return nil
}

// GetDraft возвращает сохранённый черновик сеанса.
func (r *MemoryRepository) GetDraft(_ context.Context, sessionID string) (*model.Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sd, ok := r.drafts[sessionID]
	if !ok {
		return nil, ErrDraftNotFound
	}
	d := sd.Draft.Clone()
	return &d, nil
}

// ListDrafts возвращает последние изменённые черновики.
func (r *MemoryRepository) ListDrafts(_ context.Context, limit int) ([]model.StoredDraft, error) {
	r.mu.RLock()
	res := make([]model.StoredDraft, 0, len(r.drafts))
	for _, sd := range r.drafts {
		sd.Draft = sd.Draft.Clone()
		res = append(res, sd)
	}
	r.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if res[i].UpdatedAt.Equal(res[j].UpdatedAt) {
			return res[i].SessionID < res[j].SessionID
		}
		return res[i].UpdatedAt.After(res[j].UpdatedAt)
	})

	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}
