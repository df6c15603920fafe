// Package repository содержит хранилища сеансов и черновиков бронирования.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/mmeshcher/gymreserve/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrSessionNotFound возвращается, если сеанс не найден.
	ErrSessionNotFound = errors.New("session not found")
	// ErrDraftNotFound возвращается, если для сеанса ещё нет сохранённого черновика.
	ErrDraftNotFound = errors.New("draft not found")
)

// PostgresRepository хранит сеансы и черновики в PostgreSQL.
type PostgresRepository struct {
	pool    *pgxpool.Pool
	backoff func() retry.Backoff
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{
		pool: pool,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
		},
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure ||
			pgErr.Code == pgerrcode.DeadlockDetected ||
			pgerrcode.IsConnectionException(pgErr.Code)
	}

	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// SaveSession сохраняет сеанс.
func (r *PostgresRepository) SaveSession(ctx context.Context, s model.Session) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO sessions (id, member_id, member_name, role, token, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE
			 SET member_id = EXCLUDED.member_id, member_name = EXCLUDED.member_name,
			     role = EXCLUDED.role, token = EXCLUDED.token`,
			s.ID, s.MemberID, s.MemberName, s.Role.String(), s.Token, s.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return nil
	})
}

// GetSession возвращает сеанс по идентификатору.
func (r *PostgresRepository) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var (
		s    model.Session
		role string
	)

	err := r.withRetry(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx,
			`SELECT id, member_id, member_name, role, token, created_at FROM sessions WHERE id = $1`,
			id,
		).Scan(&s.ID, &s.MemberID, &s.MemberName, &role, &s.Token, &s.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	s.Role, err = model.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &s, nil
}

// DeleteSession удаляет сеанс вместе с его черновиком.
func (r *PostgresRepository) DeleteSession(ctx context.Context, id string) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
}

// SaveDraft сохраняет снимок черновика сеанса.
func (r *PostgresRepository) SaveDraft(ctx context.Context, sessionID, memberID string, d model.Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}

	return r.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO drafts (session_id, member_id, draft, updated_at)
			 VALUES ($1, $2, $3, now())
			 ON CONFLICT (session_id) DO UPDATE
			 SET draft = EXCLUDED.draft, updated_at = now()`,
			sessionID, memberID, raw,
		)
		if err != nil {
			return fmt.Errorf("save draft: %w", err)
		}
		return nil
	})
}

// GetDraft возвращает сохранённый черновик сеанса.
func (r *PostgresRepository) GetDraft(ctx context.Context, sessionID string) (*model.Draft, error) {
	var raw []byte
	err := r.withRetry(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, `SELECT draft FROM drafts WHERE session_id = $1`, sessionID).Scan(&raw)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("get draft: %w", err)
	}

	var d model.Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}

	return &d, nil
}

// ListDrafts возвращает последние изменённые черновики.
func (r *PostgresRepository) ListDrafts(ctx context.Context, limit int) ([]model.StoredDraft, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, member_id, draft, updated_at
		 FROM drafts
		 ORDER BY updated_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select drafts: %w", err)
	}
	defer rows.Close()

	var res []model.StoredDraft
	for rows.Next() {
		var (
			sd  model.StoredDraft
			raw []byte
		)
		if err := rows.Scan(&sd.SessionID, &sd.MemberID, &raw, &sd.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		if err := json.Unmarshal(raw, &sd.Draft); err != nil {
			return nil, fmt.Errorf("decode draft: %w", err)
		}
		res = append(res, sd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
