// Package service реализует бизнес-логику сервиса бронирования: сеансы и мастер бронирования.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/gymreserve/internal/model"
	"github.com/mmeshcher/gymreserve/internal/repository"
	"github.com/mmeshcher/gymreserve/internal/reservation"
	"github.com/mmeshcher/gymreserve/internal/workflow"
)

// ErrUnsupportedRole возвращается, если бэкенд прислал роль, которую сервис не знает.
var ErrUnsupportedRole = errors.New("unsupported member role")

// Repository описывает контракт хранения сеансов и черновиков, используемый сервисом.
type Repository interface {
	Close() error
	SaveSession(ctx context.Context, s model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	SaveDraft(ctx context.Context, sessionID, memberID string, d model.Draft) error
	GetDraft(ctx context.Context, sessionID string) (*model.Draft, error)
	ListDrafts(ctx context.Context, limit int) ([]model.StoredDraft, error)
}

// Authenticator проверяет учётные данные пользователя.
type Authenticator interface {
	SignIn(ctx context.Context, memberID, password string) (model.Member, string, error)
}

const (
	// DefaultStoreIdleTTL совпадает со сроком жизни cookie сеанса.
	DefaultStoreIdleTTL = 24 * time.Hour
	storeSweepInterval  = time.Minute
)

type cachedStore struct {
	store    *reservation.Store
	lastUsed time.Time
}

// Service содержит бизнес-логику сервиса бронирования.
type Service struct {
	repo     Repository
	auth     Authenticator
	workflow *workflow.Workflow
	logger   *zap.Logger
	now      func() time.Time
	idleTTL  time.Duration

	mu        sync.Mutex
	stores    map[string]*cachedStore
	lastSweep time.Time
}

// NewService создаёт сервис с указанным хранилищем, аутентификатором и мастером бронирования.
func NewService(repo Repository, auth Authenticator, wf *workflow.Workflow, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		auth:     auth,
		workflow: wf,
		logger:   logger,
		now:      time.Now,
		idleTTL:  DefaultStoreIdleTTL,
		stores:   make(map[string]*cachedStore),
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Login проверяет учётные данные через бэкенд и открывает новый сеанс.
func (s *Service) Login(ctx context.Context, memberID, password string) (*model.Session, error) {
	member, token, err := s.auth.SignIn(ctx, memberID, password)
	if err != nil {
		return nil, err
	}

	role, err := model.ParseRole(member.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedRole, err)
	}

	sess := model.Session{
		ID:         uuid.NewString(),
		MemberID:   member.ID,
		MemberName: member.Name,
		Role:       role,
		Token:      token,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.repo.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return &sess, nil
}

// Logout закрывает сеанс и удаляет его черновик.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.stores, sessionID)
	s.mu.Unlock()

	return s.repo.DeleteSession(ctx, sessionID)
}

// Session возвращает сеанс по идентификатору.
func (s *Service) Session(ctx context.Context, id string) (*model.Session, error) {
	return s.repo.GetSession(ctx, id)
}

// Draft возвращает текущий черновик сеанса.
func (s *Service) Draft(ctx context.Context, sess *model.Session) (model.Draft, error) {
	store, err := s.store(ctx, sess)
	if err != nil {
		return model.Draft{}, err
	}
	return store.Current(), nil
}

// ConfirmFacility выполняет шаг выбора объекта.
func (s *Service) ConfirmFacility(ctx context.Context, sess *model.Session, facilityID string) (string, model.Draft, error) {
	store, err := s.store(ctx, sess)
	if err != nil {
		return "", model.Draft{}, err
	}

	before := store.Current()
	next, err := s.workflow.ConfirmFacility(ctx, store, facilityID)
	if err != nil {
		return "", store.Current(), err
	}

	return s.persist(ctx, sess, store, before, next)
}

// SubmitSchedule выполняет шаг выбора расписания и представителя.
func (s *Service) SubmitSchedule(ctx context.Context, sess *model.Session, form workflow.ScheduleForm) (string, model.Draft, error) {
	store, err := s.store(ctx, sess)
	if err != nil {
		return "", model.Draft{}, err
	}

	before := store.Current()
	next, err := s.workflow.SubmitSchedule(store, form)
	if err != nil {
		return "", store.Current(), err
	}

	return s.persist(ctx, sess, store, before, next)
}

// Instruments возвращает счета и карты пользователя.
func (s *Service) Instruments(ctx context.Context, sess *model.Session) ([]model.Instrument, []model.Instrument, error) {
	return s.workflow.Instruments(ctx, sess.MemberID)
}

// SubmitPayment выполняет шаг оплаты и отправляет бронирование в бэкенд.
func (s *Service) SubmitPayment(ctx context.Context, sess *model.Session, form workflow.PaymentForm) (string, model.Draft, error) {
	store, err := s.store(ctx, sess)
	if err != nil {
		return "", model.Draft{}, err
	}

	next, err := s.workflow.SubmitPayment(ctx, store, workflow.PaymentRequest{
		SessionID: sess.ID,
		MemberID:  sess.MemberID,
		Token:     sess.Token,
		Form:      form,
	})
	if err != nil {
		return "", store.Current(), err
	}

	// Бронирование уже принято бэкендом: сброшенный черновик остаётся в кэше,
	// даже если сохранить его не удалось.
	d := store.Current()
	if err := s.repo.SaveDraft(context.WithoutCancel(ctx), sess.ID, sess.MemberID, d); err != nil {
		s.logger.Error("save reset draft error", zap.Error(err), zap.String("session", sess.ID))
	}
	return next, d, nil
}

// Abandon сбрасывает черновик сеанса.
func (s *Service) Abandon(ctx context.Context, sess *model.Session) (string, model.Draft, error) {
	store, err := s.store(ctx, sess)
	if err != nil {
		return "", model.Draft{}, err
	}

	before := store.Current()
	next := s.workflow.Abandon(store)
	return s.persist(ctx, sess, store, before, next)
}

// ListDrafts возвращает последние незавершённые бронирования всех пользователей.
func (s *Service) ListDrafts(ctx context.Context, limit int) ([]model.StoredDraft, error) {
	return s.repo.ListDrafts(ctx, limit)
}

func (s *Service) store(ctx context.Context, sess *model.Session) (*reservation.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= storeSweepInterval {
		s.sweep(now)
	}

	if c, ok := s.stores[sess.ID]; ok {
		c.lastUsed = now
		return c.store, nil
	}

	st := reservation.NewStore()
	d, err := s.repo.GetDraft(ctx, sess.ID)
	switch {
	case errors.Is(err, repository.ErrDraftNotFound):
	case err != nil:
		return nil, fmt.Errorf("load draft: %w", err)
	default:
		st = reservation.NewStoreFrom(*d)
	}

	s.stores[sess.ID] = &cachedStore{store: st, lastUsed: now}
	return st, nil
}

// sweep удаляет из кэша черновики сеансов, не использовавшихся дольше idleTTL.
// Вызывается под s.mu.
func (s *Service) sweep(now time.Time) {
	s.lastSweep = now
	for id, c := range s.stores {
		if now.Sub(c.lastUsed) > s.idleTTL {
			delete(s.stores, id)
		}
	}
}

// persist сохраняет черновик после шага. При ошибке кэш сеанса сбрасывается,
// чтобы следующий запрос прочитал последнюю сохранённую версию.
func (s *Service) persist(ctx context.Context, sess *model.Session, store *reservation.Store, before model.Draft, next string) (string, model.Draft, error) {
	d := store.Current()
	if err := s.repo.SaveDraft(ctx, sess.ID, sess.MemberID, d); err != nil {
		s.logger.Error("save draft error", zap.Error(err), zap.String("session", sess.ID))

		s.mu.Lock()
		if c, ok := s.stores[sess.ID]; ok && c.store == store {
			delete(s.stores, sess.ID)
		}
		s.mu.Unlock()

		return "", before, fmt.Errorf("save draft: %w", err)
	}
	return next, d, nil
}
