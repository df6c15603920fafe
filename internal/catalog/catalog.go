// Package catalog предоставляет сведения об объектах и платёжных инструментах пользователя.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmeshcher/gymreserve/internal/model"
)

// ErrFacilityNotFound возвращается, если объект с указанным идентификатором не существует.
var ErrFacilityNotFound = errors.New("facility not found")

// Static содержит фиксированный набор объектов и инструментов оплаты.
// Используется, когда адрес бэкенда не задан.
type Static struct {
	facilities map[string]model.Facility
	accounts   []model.Instrument
	cards      []model.Instrument
}

// NewStatic создаёт каталог с набором по умолчанию.
func NewStatic() *Static {
	return &Static{
		facilities: map[string]model.Facility{
			"gym-a": {ID: "gym-a", Name: "Gym A", PricePerHour: model.DefaultPricePerHour},
		},
		accounts: []model.Instrument{
			{ID: "shinhan-123", Label: "Shinhan Bank 123-****-****"},
			{ID: "hana-3412", Label: "Hana Bank 3412-****-****"},
		},
		cards: []model.Instrument{
			{ID: "shin-1234", Label: "Shinhan Card 1234-****-****"},
			{ID: "hana-3412", Label: "Hana Card 3412-****-****"},
		},
	}
}

// Facility возвращает объект по идентификатору.
func (s *Static) Facility(_ context.Context, id string) (model.Facility, error) {
	f, ok := s.facilities[id]
	if !ok {
		return model.Facility{}, fmt.Errorf("%w: %s", ErrFacilityNotFound, id)
	}
	return f, nil
}

// Accounts возвращает счета пользователя.
func (s *Static) Accounts(_ context.Context, _ string) ([]model.Instrument, error) {
	return append([]model.Instrument(nil), s.accounts...), nil
}

// Cards возвращает карты пользователя.
func (s *Static) Cards(_ context.Context, _ string) ([]model.Instrument, error) {
	return append([]model.Instrument(nil), s.cards...), nil
}
