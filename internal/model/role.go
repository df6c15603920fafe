package model

import (
	"fmt"
	"strings"
)

// Role описывает закрытый набор ролей пользователя.
type Role int

const (
	RoleUser Role = iota + 1
	RoleAdmin
)

const (
	HomePathUser  = "/"
	HomePathAdmin = "/cms"
)

// ParseRole разбирает строковое представление роли, присылаемое бэкендом.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

// String возвращает строковое представление роли.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// HomePath возвращает стартовую страницу для роли.
func HomePath(r Role) (string, error) {
	switch r {
	case RoleUser:
		return HomePathUser, nil
	case RoleAdmin:
		return HomePathAdmin, nil
	default:
		return "", fmt.Errorf("no home path for %s", r)
	}
}
