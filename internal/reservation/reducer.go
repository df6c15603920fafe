package reservation

import (
	"fmt"

	"github.com/mmeshcher/gymreserve/internal/model"
)

// Initial возвращает черновик со значениями по умолчанию.
func Initial() model.Draft {
	return model.Draft{
		Hours:        model.DefaultHours,
		PricePerHour: model.DefaultPricePerHour,
	}
}

// Reduce применяет действие к черновику и возвращает новый черновик.
// Функция чистая: результат зависит только от аргументов, исходный черновик не изменяется.
func Reduce(d model.Draft, a Action) model.Draft {
	next := d.Clone()

	switch act := a.(type) {
	case SetFacility:
		next.FacilityID = ptr(act.FacilityID)
	case SetSchedule:
		next.Date = ptr(act.Date)
		next.Time = ptr(act.Time)
		next.Hours = act.Hours
	case SetPrice:
		next.PricePerHour = act.PricePerHour
	case SetPaymentMethod:
		next.PaymentMethod = act.Method
		next.AccountID = nil
		next.CardID = nil
	case SetAccount:
		next.AccountID = ptr(act.AccountID)
	case SetCard:
		next.CardID = ptr(act.CardID)
	case SetPayer:
		next.Payer = act.Payer
	case Reset:
		return Initial()
	default:
		// Action запечатан, сюда можно попасть только при добавлении нового действия без ветки.
		panic(fmt.Sprintf("reservation: unhandled action %T", a))
	}

	return next
}

func ptr(s string) *string {
	return &s
}
