// Package reservation реализует хранилище черновика бронирования и его редьюсер.
package reservation

import "github.com/mmeshcher/gymreserve/internal/model"

// Action описывает закрытый набор действий над черновиком.
// Реализации существуют только в этом пакете.
type Action interface {
	Type() string
	isAction()
}

// SetFacility фиксирует выбранный объект.
type SetFacility struct {
	FacilityID string
}

// SetSchedule задаёт дату, время начала и продолжительность одновременно.
type SetSchedule struct {
	Date  string
	Time  string
	Hours int
}

// SetPrice задаёт стоимость часа.
type SetPrice struct {
	PricePerHour int64
}

// SetPaymentMethod выбирает способ оплаты и сбрасывает оба идентификатора инструментов.
type SetPaymentMethod struct {
	Method model.PaymentMethod
}

// SetAccount задаёт счёт для оплаты.
type SetAccount struct {
	AccountID string
}

// SetCard задаёт карту для оплаты.
type SetCard struct {
	CardID string
}

// SetPayer задаёт представителя.
type SetPayer struct {
	Payer model.Payer
}

// Reset возвращает черновик к начальному состоянию.
type Reset struct{}

func (SetFacility) Type() string      { return "SET_FACILITY" }
func (SetSchedule) Type() string      { return "SET_SCHEDULE" }
func (SetPrice) Type() string         { return "SET_PRICE" }
func (SetPaymentMethod) Type() string { return "SET_PAYMENT_METHOD" }
func (SetAccount) Type() string       { return "SET_ACCOUNT" }
func (SetCard) Type() string          { return "SET_CARD" }
func (SetPayer) Type() string         { return "SET_PAYER" }
func (Reset) Type() string            { return "RESET" }

func (SetFacility) isAction()      {}
func (SetSchedule) isAction()      {}
func (SetPrice) isAction()         {}
func (SetPaymentMethod) isAction() {}
func (SetAccount) isAction()       {}
func (SetCard) isAction()          {}
func (SetPayer) isAction()         {}
func (Reset) isAction()            {}
