// Package workflow реализует шаги мастера бронирования: выбор объекта, расписание, оплату.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/gymreserve/internal/gateway"
	"github.com/mmeshcher/gymreserve/internal/model"
	"github.com/mmeshcher/gymreserve/internal/reservation"
	"github.com/mmeshcher/gymreserve/internal/validation"
)

// Пути навигации между шагами.
const (
	PathEntry    = "/"
	PathApply    = "/apply"
	PathPay      = "/pay"
	PathComplete = "/done"
)

var (
	// ErrSubmissionInFlight возвращается при повторной отправке, пока предыдущая не завершилась.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrSubmissionFailed оборачивает ошибки отправки бронирования в бэкенд.
	ErrSubmissionFailed = errors.New("reservation submission failed")
)

// FacilityLookup возвращает сведения об объекте.
type FacilityLookup interface {
	Facility(ctx context.Context, id string) (model.Facility, error)
}

// InstrumentLister возвращает платёжные инструменты пользователя.
type InstrumentLister interface {
	Accounts(ctx context.Context, memberID string) ([]model.Instrument, error)
	Cards(ctx context.Context, memberID string) ([]model.Instrument, error)
}

// Submitter отправляет завершённое бронирование.
type Submitter interface {
	Submit(ctx context.Context, token string, p gateway.Payload) error
}

// ScheduleForm содержит поля шага выбора расписания и представителя.
type ScheduleForm struct {
	Date       string `json:"date"`
	TimeHour   string `json:"timeHour"`
	TimeMinute string `json:"timeMin"`
	Hours      int    `json:"hours"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
}

// PaymentForm содержит поля шага оплаты.
type PaymentForm struct {
	Method    model.PaymentMethod `json:"method"`
	AccountID string              `json:"accountId,omitempty"`
	CardID    string              `json:"cardId,omitempty"`
}

// Workflow объединяет контроллеры шагов мастера бронирования.
type Workflow struct {
	facilities  FacilityLookup
	instruments InstrumentLister
	submitter   Submitter
	logger      *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New создаёт мастер бронирования с указанными внешними зависимостями.
func New(facilities FacilityLookup, instruments InstrumentLister, submitter Submitter, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		facilities:  facilities,
		instruments: instruments,
		submitter:   submitter,
		logger:      logger,
		inFlight:    make(map[string]struct{}),
	}
}

// ConfirmFacility выполняет шаг выбора объекта: фиксирует объект и его стоимость часа.
func (w *Workflow) ConfirmFacility(ctx context.Context, store *reservation.Store, facilityID string) (string, error) {
	facilityID = strings.TrimSpace(facilityID)
	if facilityID == "" {
		var v validation.Error
		v.Add("facilityId", "required")
		return "", v.Err()
	}

	f, err := w.facilities.Facility(ctx, facilityID)
	if err != nil {
		return "", fmt.Errorf("lookup facility: %w", err)
	}

	store.Dispatch(reservation.SetFacility{FacilityID: facilityID})
	store.Dispatch(reservation.SetPrice{PricePerHour: f.PricePerHour})

	return PathApply, nil
}

// SubmitSchedule выполняет шаг выбора даты, времени и представителя.
func (w *Workflow) SubmitSchedule(store *reservation.Store, form ScheduleForm) (string, error) {
	var v validation.Error

	switch {
	case validation.IsBlank(form.Date):
		v.Add("date", "required")
	case !validation.IsValidDate(form.Date):
		v.Add("date", "must be YYYY-MM-DD")
	}
	if !validation.IsValidHourOfDay(form.TimeHour) {
		v.Add("timeHour", "must be 00..23")
	}
	if !validation.IsValidMinute(form.TimeMinute) {
		v.Add("timeMin", "must be 00 or 30")
	}
	if !validation.IsValidHours(form.Hours) {
		v.Add("hours", fmt.Sprintf("must be %d..%d", validation.MinHours, validation.MaxHours))
	}
	if validation.IsBlank(form.Name) {
		v.Add("name", "required")
	}
	if validation.IsBlank(form.Phone) {
		v.Add("phone", "required")
	}

	if err := v.Err(); err != nil {
		return "", err
	}

	store.Dispatch(reservation.SetSchedule{
		Date:  form.Date,
		Time:  form.TimeHour + ":" + form.TimeMinute,
		Hours: form.Hours,
	})
	store.Dispatch(reservation.SetPayer{Payer: model.Payer{
		Name:  strings.TrimSpace(form.Name),
		Phone: strings.TrimSpace(form.Phone),
	}})

	return PathPay, nil
}

// Instruments возвращает счета и карты пользователя для шага оплаты.
func (w *Workflow) Instruments(ctx context.Context, memberID string) ([]model.Instrument, []model.Instrument, error) {
	accounts, err := w.instruments.Accounts(ctx, memberID)
	if err != nil {
		return nil, nil, fmt.Errorf("list accounts: %w", err)
	}
	cards, err := w.instruments.Cards(ctx, memberID)
	if err != nil {
		return nil, nil, fmt.Errorf("list cards: %w", err)
	}
	return accounts, cards, nil
}

// PaymentRequest описывает вызов шага оплаты.
type PaymentRequest struct {
	SessionID string
	MemberID  string
	Token     string
	Form      PaymentForm
}

// SubmitPayment выполняет шаг оплаты и отправляет бронирование.
// При успехе черновик сбрасывается и возвращается путь завершения.
// При ошибке черновик остаётся таким же, каким был до вызова.
func (w *Workflow) SubmitPayment(ctx context.Context, store *reservation.Store, req PaymentRequest) (string, error) {
	if !w.acquire(req.SessionID) {
		return "", ErrSubmissionInFlight
	}
	defer w.release(req.SessionID)

	// Черновик читается только под защитой от повторной отправки.
	draft, err := w.paymentDraft(ctx, store.Current(), req)
	if err != nil {
		return "", err
	}

	payload := gateway.NewPayload(draft)
	w.logger.Info("reservation submit request",
		zap.String("session", req.SessionID),
		zap.String("facility", payload.FacilityID),
		zap.Int64("totalPrice", payload.TotalPrice),
	)

	// Отправка не отменяется, если клиент ушёл со страницы.
	if err := w.submitter.Submit(context.WithoutCancel(ctx), req.Token, payload); err != nil {
		w.logger.Error("reservation submit failed", zap.Error(err), zap.String("session", req.SessionID))
		return "", fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	w.logger.Info("reservation submit succeeded", zap.String("session", req.SessionID))
	store.Dispatch(reservation.Reset{})

	return PathComplete, nil
}

// paymentDraft строит черновик с выбранным способом оплаты, не изменяя хранилище.
func (w *Workflow) paymentDraft(ctx context.Context, current model.Draft, req PaymentRequest) (model.Draft, error) {
	var v validation.Error

	form := req.Form
	var (
		action    reservation.Action
		id, field string
		list      func(ctx context.Context, memberID string) ([]model.Instrument, error)
	)

	switch form.Method {
	case model.PaymentMethodAccount:
		id, field, list = strings.TrimSpace(form.AccountID), "accountId", w.instruments.Accounts
		action = reservation.SetAccount{AccountID: id}
	case model.PaymentMethodCard:
		id, field, list = strings.TrimSpace(form.CardID), "cardId", w.instruments.Cards
		action = reservation.SetCard{CardID: id}
	case model.PaymentMethodNone:
		v.Add("method", "required")
		return model.Draft{}, v.Err()
	default:
		v.Add("method", "must be ACCOUNT or CARD")
		return model.Draft{}, v.Err()
	}

	if id == "" {
		v.Add(field, "required")
		return model.Draft{}, v.Err()
	}

	available, err := list(ctx, req.MemberID)
	if err != nil {
		return model.Draft{}, fmt.Errorf("list instruments: %w", err)
	}
	if !slices.ContainsFunc(available, func(in model.Instrument) bool { return in.ID == id }) {
		v.Add(field, "unknown instrument")
		return model.Draft{}, v.Err()
	}

	draft := reservation.Reduce(current, reservation.SetPaymentMethod{Method: form.Method})
	draft = reservation.Reduce(draft, action)

	if err := checkComplete(draft); err != nil {
		return model.Draft{}, err
	}

	return draft, nil
}

// checkComplete проверяет, что черновик готов к отправке.
func checkComplete(d model.Draft) error {
	var v validation.Error

	if d.FacilityID == nil || *d.FacilityID == "" {
		v.Add("facilityId", "required")
	}
	if d.Date == nil || d.Time == nil {
		v.Add("date", "required")
	}
	if !validation.IsValidHours(d.Hours) {
		v.Add("hours", "out of range")
	}
	if validation.IsBlank(d.Payer.Name) {
		v.Add("name", "required")
	}
	if validation.IsBlank(d.Payer.Phone) {
		v.Add("phone", "required")
	}
	if _, ok := d.Instrument(); !ok {
		v.Add("payment", "instrument required")
	}

	return v.Err()
}

// Abandon сбрасывает черновик, когда пользователь возвращается к началу.
func (w *Workflow) Abandon(store *reservation.Store) string {
	store.Dispatch(reservation.Reset{})
	return PathEntry
}

func (w *Workflow) acquire(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inFlight[key]; busy {
		return false
	}
	w.inFlight[key] = struct{}{}
	return true
}

func (w *Workflow) release(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, key)
}
