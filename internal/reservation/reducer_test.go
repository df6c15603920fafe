package reservation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/gymreserve/internal/model"
)

func allActions() []Action {
	return []Action{
		SetFacility{FacilityID: "gym-a"},
		SetSchedule{Date: "2025-11-01", Time: "13:00", Hours: 3},
		SetPrice{PricePerHour: 15000},
		SetPaymentMethod{Method: model.PaymentMethodAccount},
		SetPaymentMethod{Method: model.PaymentMethodCard},
		SetAccount{AccountID: "shinhan-123"},
		SetCard{CardID: "hana-3412"},
		SetPayer{Payer: model.Payer{Name: "Hong", Phone: "010-0000-0000"}},
		Reset{},
	}
}

// reachable строит набор черновиков, достижимых короткими последовательностями действий.
func reachable() []model.Draft {
	drafts := []model.Draft{Initial()}
	frontier := []model.Draft{Initial()}
	for depth := 0; depth < 2; depth++ {
		var next []model.Draft
		for _, d := range frontier {
			for _, a := range allActions() {
				next = append(next, Reduce(d, a))
			}
		}
		drafts = append(drafts, next...)
		frontier = next
	}
	return drafts
}

func TestInitialDefaults(t *testing.T) {
	d := Initial()

	assert.Nil(t, d.FacilityID)
	assert.Nil(t, d.Date)
	assert.Nil(t, d.Time)
	assert.Equal(t, 1, d.Hours)
	assert.Equal(t, int64(10000), d.PricePerHour)
	assert.Equal(t, model.PaymentMethodNone, d.PaymentMethod)
	assert.Nil(t, d.AccountID)
	assert.Nil(t, d.CardID)
	assert.Equal(t, model.Payer{}, d.Payer)
	assert.Equal(t, int64(10000), d.TotalPrice())
}

func TestReduceIsPure(t *testing.T) {
	for _, d := range reachable() {
		for _, a := range allActions() {
			before := d.Clone()
			first := Reduce(d, a)
			second := Reduce(d, a)

			require.Equal(t, first, second, "action %s", a.Type())
			require.Equal(t, before, d, "input draft mutated by %s", a.Type())
		}
	}
}

func TestReduceDoesNotAlias(t *testing.T) {
	d := Reduce(Initial(), SetFacility{FacilityID: "gym-a"})
	next := Reduce(d, SetPrice{PricePerHour: 5000})

	*next.FacilityID = "gym-b"

	assert.Equal(t, "gym-a", *d.FacilityID)
}

func TestSetPaymentMethodClearsInstruments(t *testing.T) {
	methods := []model.PaymentMethod{model.PaymentMethodAccount, model.PaymentMethodCard}
	for _, d := range reachable() {
		for _, m := range methods {
			next := Reduce(d, SetPaymentMethod{Method: m})
			assert.Nil(t, next.AccountID)
			assert.Nil(t, next.CardID)
			assert.Equal(t, m, next.PaymentMethod)
		}
	}
}

func TestTotalPriceAlwaysDerived(t *testing.T) {
	for _, d := range reachable() {
		assert.Equal(t, int64(d.Hours)*d.PricePerHour, d.TotalPrice())
	}
}

func TestResetReturnsInitial(t *testing.T) {
	for _, d := range reachable() {
		assert.Equal(t, Initial(), Reduce(d, Reset{}))
	}
}

func TestActionTypes(t *testing.T) {
	want := []string{
		"SET_FACILITY", "SET_SCHEDULE", "SET_PRICE", "SET_PAYMENT_METHOD",
		"SET_PAYMENT_METHOD", "SET_ACCOUNT", "SET_CARD", "SET_PAYER", "RESET",
	}
	for i, a := range allActions() {
		assert.Equal(t, want[i], a.Type())
	}
}

func TestScenarios(t *testing.T) {
	s := NewStore()

	// facility and price
	s.Dispatch(SetFacility{FacilityID: "gym-a"})
	d := s.Dispatch(SetPrice{PricePerHour: 10000})
	require.NotNil(t, d.FacilityID)
	assert.Equal(t, "gym-a", *d.FacilityID)
	assert.Equal(t, int64(10000), d.PricePerHour)

	// schedule
	d = s.Dispatch(SetSchedule{Date: "2025-11-01", Time: "13:00", Hours: 3})
	require.NotNil(t, d.Date)
	require.NotNil(t, d.Time)
	assert.Equal(t, "2025-11-01", *d.Date)
	assert.Equal(t, "13:00", *d.Time)
	assert.Equal(t, 3, d.Hours)
	assert.Equal(t, int64(30000), d.TotalPrice())

	// card payment
	s.Dispatch(SetPaymentMethod{Method: model.PaymentMethodAccount})
	s.Dispatch(SetAccount{AccountID: "shinhan-123"})
	s.Dispatch(SetPaymentMethod{Method: model.PaymentMethodCard})
	d = s.Dispatch(SetCard{CardID: "hana-3412"})
	assert.Nil(t, d.AccountID)
	require.NotNil(t, d.CardID)
	assert.Equal(t, "hana-3412", *d.CardID)

	id, ok := d.Instrument()
	assert.True(t, ok)
	assert.Equal(t, "hana-3412", id)
}

func TestStoreCurrentIsSnapshot(t *testing.T) {
	s := NewStore()
	s.Dispatch(SetFacility{FacilityID: "gym-a"})

	snap := s.Current()
	*snap.FacilityID = "changed"

	assert.Equal(t, "gym-a", *s.Current().FacilityID)
}
