// Package model содержит доменные сущности сервиса бронирования спортивных объектов.
package model

import "time"

// PaymentMethod описывает способ оплаты бронирования.
type PaymentMethod string

const (
	PaymentMethodNone    PaymentMethod = ""
	PaymentMethodAccount PaymentMethod = "ACCOUNT"
	PaymentMethodCard    PaymentMethod = "CARD"
)

// Valid сообщает, является ли способ оплаты одним из допустимых значений.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodAccount || m == PaymentMethodCard
}

const (
	DefaultHours        = 1
	DefaultPricePerHour = int64(10000)
)

// Payer содержит данные представителя, оформляющего бронирование.
type Payer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Draft описывает незавершённое бронирование, которое пользователь заполняет по шагам.
// Draft является значением: любое изменение порождает новый экземпляр.
type Draft struct {
	FacilityID    *string       `json:"facilityId"`
	Date          *string       `json:"date"`
	Time          *string       `json:"time"`
	Hours         int           `json:"hours"`
	PricePerHour  int64         `json:"pricePerHour"`
	PaymentMethod PaymentMethod `json:"paymentMethod,omitempty"`
	AccountID     *string       `json:"accountId,omitempty"`
	CardID        *string       `json:"cardId,omitempty"`
	Payer         Payer         `json:"payer"`
}

// Clone возвращает копию черновика, не разделяющую указатели с исходным.
func (d Draft) Clone() Draft {
	d.FacilityID = cloneString(d.FacilityID)
	d.Date = cloneString(d.Date)
	d.Time = cloneString(d.Time)
	d.AccountID = cloneString(d.AccountID)
	d.CardID = cloneString(d.CardID)
	return d
}

// TotalPrice возвращает итоговую стоимость бронирования. Значение всегда вычисляется.
func (d Draft) TotalPrice() int64 {
	return int64(d.Hours) * d.PricePerHour
}

// Instrument возвращает идентификатор платёжного инструмента, соответствующий выбранному способу оплаты.
func (d Draft) Instrument() (string, bool) {
	switch d.PaymentMethod {
	case PaymentMethodAccount:
		if d.AccountID != nil && *d.AccountID != "" {
			return *d.AccountID, true
		}
	case PaymentMethodCard:
		if d.CardID != nil && *d.CardID != "" {
			return *d.CardID, true
		}
	case PaymentMethodNone:
	}
	return "", false
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Facility описывает спортивный объект, доступный для бронирования.
type Facility struct {
	ID           string `json:"facilityId"`
	Name         string `json:"facilityName"`
	PricePerHour int64  `json:"facilityMoney"`
}

// Instrument описывает счёт или карту пользователя.
type Instrument struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Member содержит сведения о пользователе, полученные от бэкенда при входе.
type Member struct {
	ID    string `json:"memberId"`
	Name  string `json:"memberName"`
	Email string `json:"memberEmail"`
	Role  string `json:"memberRole"`
}

// Session описывает сеанс пользователя сервиса.
type Session struct {
	ID         string
	MemberID   string
	MemberName string
	Role       Role
	Token      string
	CreatedAt  time.Time
}

// StoredDraft связывает черновик с сеансом, которому он принадлежит.
type StoredDraft struct {
	SessionID string
	MemberID  string
	Draft     Draft
	UpdatedAt time.Time
}
