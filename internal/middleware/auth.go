// Package middleware содержит HTTP middleware сервиса бронирования.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/mmeshcher/gymreserve/internal/model"
	"github.com/mmeshcher/gymreserve/internal/repository"
)

type contextKey string

const sessionKey contextKey = "session"

const (
	sessionCookieName = "gym_session"
	sessionCookieTTL  = 24 * time.Hour
)

// SessionLoader загружает сеанс по идентификатору.
type SessionLoader interface {
	Session(ctx context.Context, id string) (*model.Session, error)
}

// AuthMiddleware выполняет проверку сеанса пользователя по подписанному и зашифрованному cookie.
type AuthMiddleware struct {
	codec    *securecookie.SecureCookie
	sessions SessionLoader
	logger   *zap.Logger
}

// NewAuthMiddleware создаёт AuthMiddleware. Пустой hashKey заменяется случайным,
// при этом сеансы не переживают перезапуск сервиса.
func NewAuthMiddleware(hashKey, blockKey []byte, sessions SessionLoader, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil {
			hashKey = make([]byte, 32)
			_, _ = rand.Read(hashKey)
		}
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(sessionCookieTTL / time.Second))

	return &AuthMiddleware{
		codec:    codec,
		sessions: sessions,
		logger:   logger,
	}
}

// Middleware проверяет cookie сеанса и добавляет сеанс в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		var sessionID string
		if err := a.codec.Decode(sessionCookieName, cookie.Value, &sessionID); err != nil || sessionID == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		s, err := a.sessions.Session(r.Context(), sessionID)
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		case err != nil:
			a.logger.Error("load session error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// SetSessionCookie устанавливает cookie сеанса.
func (a *AuthMiddleware) SetSessionCookie(w http.ResponseWriter, sessionID string) error {
	value, err := a.codec.Encode(sessionCookieName, sessionID)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(sessionCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSessionCookie удаляет cookie сеанса.
func (a *AuthMiddleware) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireRole пропускает запрос только для сеансов с указанной ролью.
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := SessionFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if s.Role != role {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSession возвращает контекст с сеансом.
func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext извлекает сеанс из контекста запроса.
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*model.Session)
	return s, ok && s != nil
}
