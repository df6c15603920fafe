package workflow

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/gymreserve/internal/catalog"
	"github.com/mmeshcher/gymreserve/internal/gateway"
	"github.com/mmeshcher/gymreserve/internal/model"
	"github.com/mmeshcher/gymreserve/internal/reservation"
	"github.com/mmeshcher/gymreserve/internal/validation"
)

type stubSubmitter struct {
	err     error
	calls   int
	payload gateway.Payload
	token   string
	started chan struct{}
	unblock chan struct{}
}

func (s *stubSubmitter) Submit(ctx context.Context, token string, p gateway.Payload) error {
	s.calls++
	s.payload = p
	s.token = token
	if s.started != nil {
		close(s.started)
	}
	if s.unblock != nil {
		<-s.unblock
	}
	return s.err
}

// slowCards задерживает первый запрос списка карт до закрытия release.
type slowCards struct {
	*catalog.Static
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (c *slowCards) Cards(ctx context.Context, memberID string) ([]model.Instrument, error) {
	first := false
	c.once.Do(func() { first = true })
	if first {
		close(c.entered)
		<-c.release
	}
	return c.Static.Cards(ctx, memberID)
}

func newWorkflow(sub Submitter) *Workflow {
	c := catalog.NewStatic()
	return New(c, c, sub, nil)
}

func validSchedule() ScheduleForm {
	return ScheduleForm{
		Date:       "2025-11-01",
		TimeHour:   "13",
		TimeMinute: "00",
		Hours:      3,
		Name:       "Hong",
		Phone:      "010-0000-0000",
	}
}

func prepared(t *testing.T, w *Workflow) *reservation.Store {
	t.Helper()

	store := reservation.NewStore()
	next, err := w.ConfirmFacility(context.Background(), store, "gym-a")
	require.NoError(t, err)
	require.Equal(t, PathApply, next)

	next, err = w.SubmitSchedule(store, validSchedule())
	require.NoError(t, err)
	require.Equal(t, PathPay, next)

	return store
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func TestConfirmFacility(t *testing.T) {
	w := newWorkflow(&stubSubmitter{})
	store := reservation.NewStore()

	next, err := w.ConfirmFacility(context.Background(), store, "gym-a")
	require.NoError(t, err)
	assert.Equal(t, PathApply, next)

	d := store.Current()
	require.NotNil(t, d.FacilityID)
	assert.Equal(t, "gym-a", *d.FacilityID)
	assert.Equal(t, int64(10000), d.PricePerHour)
}

func TestConfirmFacility_Errors(t *testing.T) {
	w := newWorkflow(&stubSubmitter{})
	store := reservation.NewStore()

	_, err := w.ConfirmFacility(context.Background(), store, " ")
	assert.Contains(t, fieldErrors(t, err), "facilityId")

	_, err = w.ConfirmFacility(context.Background(), store, "unknown")
	assert.ErrorIs(t, err, catalog.ErrFacilityNotFound)

	assert.Equal(t, reservation.Initial(), store.Current())
}

func TestSubmitSchedule(t *testing.T) {
	w := newWorkflow(&stubSubmitter{})
	store := prepared(t, w)

	d := store.Current()
	assert.Equal(t, "2025-11-01", *d.Date)
	assert.Equal(t, "13:00", *d.Time)
	assert.Equal(t, 3, d.Hours)
	assert.Equal(t, model.Payer{Name: "Hong", Phone: "010-0000-0000"}, d.Payer)
	assert.Equal(t, int64(30000), d.TotalPrice())
}

func TestSubmitSchedule_Validation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(f *ScheduleForm)
		field string
	}{
		{name: "missing date", edit: func(f *ScheduleForm) { f.Date = "" }, field: "date"},
		{name: "bad date", edit: func(f *ScheduleForm) { f.Date = "2025/11/01" }, field: "date"},
		{name: "bad hour", edit: func(f *ScheduleForm) { f.TimeHour = "24" }, field: "timeHour"},
		{name: "signed hour", edit: func(f *ScheduleForm) { f.TimeHour = "+9" }, field: "timeHour"},
		{name: "padded hour", edit: func(f *ScheduleForm) { f.TimeHour = " 9" }, field: "timeHour"},
		{name: "quarter minute", edit: func(f *ScheduleForm) { f.TimeMinute = "15" }, field: "timeMin"},
		{name: "zero hours", edit: func(f *ScheduleForm) { f.Hours = 0 }, field: "hours"},
		{name: "too many hours", edit: func(f *ScheduleForm) { f.Hours = 9 }, field: "hours"},
		{name: "missing name", edit: func(f *ScheduleForm) { f.Name = "  " }, field: "name"},
		{name: "missing phone", edit: func(f *ScheduleForm) { f.Phone = "" }, field: "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorkflow(&stubSubmitter{})
			store := reservation.NewStore()

			form := validSchedule()
			tt.edit(&form)

			_, err := w.SubmitSchedule(store, form)
			assert.Contains(t, fieldErrors(t, err), tt.field)
			assert.Equal(t, reservation.Initial(), store.Current())
		})
	}
}

func TestSubmitPayment_Success(t *testing.T) {
	sub := &stubSubmitter{}
	w := newWorkflow(sub)
	store := prepared(t, w)

	next, err := w.SubmitPayment(context.Background(), store, PaymentRequest{
		SessionID: "s1",
		MemberID:  "hong",
		Token:     "jwt",
		Form:      PaymentForm{Method: model.PaymentMethodCard, CardID: "hana-3412"},
	})
	require.NoError(t, err)
	assert.Equal(t, PathComplete, next)

	assert.Equal(t, 1, sub.calls)
	assert.Equal(t, "jwt", sub.token)
	assert.Equal(t, int64(30000), sub.payload.TotalPrice)
	assert.Equal(t, "CARD", sub.payload.Payment.Method)
	assert.Equal(t, "hana-3412", sub.payload.Payment.CardID)
	assert.Empty(t, sub.payload.Payment.AccountID)

	assert.Equal(t, reservation.Initial(), store.Current())
}

func TestSubmitPayment_FailureKeepsDraft(t *testing.T) {
	failures := []error{
		&gateway.StatusError{Code: http.StatusInternalServerError},
		errors.New("do request: connection refused"),
	}

	for _, failure := range failures {
		t.Run(failure.Error(), func(t *testing.T) {
			sub := &stubSubmitter{err: failure}
			w := newWorkflow(sub)
			store := prepared(t, w)
			before := store.Current()

			next, err := w.SubmitPayment(context.Background(), store, PaymentRequest{
				SessionID: "s1",
				Form:      PaymentForm{Method: model.PaymentMethodAccount, AccountID: "shinhan-123"},
			})
			assert.Empty(t, next)
			assert.ErrorIs(t, err, ErrSubmissionFailed)
			assert.ErrorIs(t, err, failure)
			assert.Equal(t, before, store.Current())

			// Повторная попытка после исправления возможна.
			sub.err = nil
			next, err = w.SubmitPayment(context.Background(), store, PaymentRequest{
				SessionID: "s1",
				Form:      PaymentForm{Method: model.PaymentMethodAccount, AccountID: "shinhan-123"},
			})
			require.NoError(t, err)
			assert.Equal(t, PathComplete, next)
		})
	}
}

func TestSubmitPayment_Validation(t *testing.T) {
	tests := []struct {
		name  string
		form  PaymentForm
		field string
	}{
		{name: "no method", form: PaymentForm{}, field: "method"},
		{name: "unknown method", form: PaymentForm{Method: "CASH"}, field: "method"},
		{name: "account missing", form: PaymentForm{Method: model.PaymentMethodAccount, CardID: "shin-1234"}, field: "accountId"},
		{name: "card missing", form: PaymentForm{Method: model.PaymentMethodCard}, field: "cardId"},
		{name: "card not listed", form: PaymentForm{Method: model.PaymentMethodCard, CardID: "shinhan-123"}, field: "cardId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &stubSubmitter{}
			w := newWorkflow(sub)
			store := prepared(t, w)
			before := store.Current()

			_, err := w.SubmitPayment(context.Background(), store, PaymentRequest{SessionID: "s1", Form: tt.form})
			assert.Contains(t, fieldErrors(t, err), tt.field)
			assert.Zero(t, sub.calls)
			assert.Equal(t, before, store.Current())
		})
	}
}

func TestSubmitPayment_IncompleteDraft(t *testing.T) {
	sub := &stubSubmitter{}
	w := newWorkflow(sub)
	store := reservation.NewStore()

	_, err := w.SubmitPayment(context.Background(), store, PaymentRequest{
		SessionID: "s1",
		Form:      PaymentForm{Method: model.PaymentMethodCard, CardID: "shin-1234"},
	})
	fields := fieldErrors(t, err)
	assert.Contains(t, fields, "facilityId")
	assert.Contains(t, fields, "date")
	assert.Contains(t, fields, "name")
	assert.Zero(t, sub.calls)
}

func TestSubmitPayment_RejectsDuplicateWhileInFlight(t *testing.T) {
	sub := &stubSubmitter{
		started: make(chan struct{}),
		unblock: make(chan struct{}),
	}
	w := newWorkflow(sub)
	store := prepared(t, w)
	req := PaymentRequest{
		SessionID: "s1",
		Form:      PaymentForm{Method: model.PaymentMethodCard, CardID: "shin-1234"},
	}

	done := make(chan error, 1)
	go func() {
		_, err := w.SubmitPayment(context.Background(), store, req)
		done <- err
	}()

	<-sub.started
	_, err := w.SubmitPayment(context.Background(), store, req)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(sub.unblock)
	require.NoError(t, <-done)
	assert.Equal(t, 1, sub.calls)
}

func TestSubmitPayment_GuardCoversInstrumentLookup(t *testing.T) {
	sub := &stubSubmitter{}
	c := catalog.NewStatic()
	cards := &slowCards{Static: c, entered: make(chan struct{}), release: make(chan struct{})}
	w := New(c, cards, sub, nil)
	store := prepared(t, w)
	req := PaymentRequest{
		SessionID: "s1",
		Form:      PaymentForm{Method: model.PaymentMethodCard, CardID: "shin-1234"},
	}

	done := make(chan error, 1)
	go func() {
		_, err := w.SubmitPayment(context.Background(), store, req)
		done <- err
	}()

	// Первый запрос ещё проверяет карту, второй не должен прочитать тот же черновик.
	<-cards.entered
	_, err := w.SubmitPayment(context.Background(), store, req)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(cards.release)
	require.NoError(t, <-done)
	assert.Equal(t, reservation.Initial(), store.Current())

	// После сброса черновик неполный, повторной отправки нет.
	_, err = w.SubmitPayment(context.Background(), store, req)
	assert.Contains(t, fieldErrors(t, err), "facilityId")
	assert.Equal(t, 1, sub.calls)
}

func TestAbandon(t *testing.T) {
	w := newWorkflow(&stubSubmitter{})
	store := prepared(t, w)

	assert.Equal(t, PathEntry, w.Abandon(store))
	assert.Equal(t, reservation.Initial(), store.Current())
}

func TestInstruments(t *testing.T) {
	w := newWorkflow(&stubSubmitter{})

	accounts, cards, err := w.Instruments(context.Background(), "hong")
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
	assert.Len(t, cards, 2)
}
