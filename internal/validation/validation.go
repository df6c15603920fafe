// Package validation содержит функции валидации входных данных шагов бронирования.
package validation

import (
	"sort"
	"strings"
	"time"
)

const (
	MinHours = 1
	MaxHours = 8
)

// Error описывает ошибки валидации формы по полям.
type Error struct {
	Fields map[string]string
}

// Add добавляет сообщение для поля. Первое сообщение для поля сохраняется.
func (e *Error) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Err возвращает nil, если ошибок не было добавлено.
func (e *Error) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidDate проверяет дату в формате YYYY-MM-DD.
func IsValidDate(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

// IsValidHourOfDay проверяет час в формате "00".."23".
func IsValidHourOfDay(s string) bool {
	if len(s) != 2 || !isDigit(s[0]) || !isDigit(s[1]) {
		return false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	return h <= 23
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// IsValidMinute допускает только "00" и "30".
func IsValidMinute(s string) bool {
	return s == "00" || s == "30"
}

// IsValidHours проверяет продолжительность бронирования в часах.
func IsValidHours(h int) bool {
	return h >= MinHours && h <= MaxHours
}

// IsBlank сообщает, что строка пуста или состоит из пробелов.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
