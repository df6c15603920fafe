package reservation

import (
	"sync"

	"github.com/mmeshcher/gymreserve/internal/model"
)

// Store хранит единственный черновик бронирования и является единственной точкой его изменения.
type Store struct {
	mu    sync.Mutex
	draft model.Draft
}

// NewStore создаёт хранилище с начальным черновиком.
func NewStore() *Store {
	return &Store{draft: Initial()}
}

// NewStoreFrom создаёт хранилище, восстановленное из ранее сохранённого черновика.
func NewStoreFrom(d model.Draft) *Store {
	return &Store{draft: d.Clone()}
}

// Current возвращает снимок текущего черновика.
func (s *Store) Current() model.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Dispatch применяет действие и возвращает снимок нового черновика.
func (s *Store) Dispatch(a Action) model.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = Reduce(s.draft, a)
	return s.draft.Clone()
}
