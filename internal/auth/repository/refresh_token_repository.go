package repository

import (
	"context"
	"errors"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	authdomain "github.com/AlibekovAA/taskflow/backend/internal/auth/domain"
	"github.com/AlibekovAA/taskflow/backend/internal/common/db"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshTokenRepository persists refresh token records keyed by token hash.
// Deletes are idempotent. FindExact may return an expired record; deciding
// what to do with it is up to the caller.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token authdomain.RefreshToken) error
	FindExact(ctx context.Context, tokenHash string, userID string) (authdomain.RefreshToken, error)
	DeleteByToken(ctx context.Context, tokenHash string) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	Rotate(ctx context.Context, oldTokenHash string, next authdomain.RefreshToken) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type PgRefreshTokenRepository struct {
	pool  *pgxpool.Pool
	txMgr db.TxManager
}

func NewPgRefreshTokenRepository(pool *pgxpool.Pool) *PgRefreshTokenRepository {
	return &PgRefreshTokenRepository{
		pool:  pool,
		txMgr: db.NewPgTxManager(pool),
	}
}

func (r *PgRefreshTokenRepository) Create(ctx context.Context, token authdomain.RefreshToken) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO refresh_tokens (id, token_hash, user_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		token.ID,
		token.TokenHash,
		token.UserID,
		token.ExpiresAt,
		token.CreatedAt,
	)
	return db.HandleExecError(err, "create refresh token", start)
}

func (r *PgRefreshTokenRepository) FindExact(ctx context.Context, tokenHash string, userID string) (authdomain.RefreshToken, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, token_hash, user_id, expires_at, created_at
		 FROM refresh_tokens
		 WHERE token_hash = $1 AND user_id = $2`,
		tokenHash,
		userID,
	)

	var token authdomain.RefreshToken
	err := row.Scan(&token.ID, &token.TokenHash, &token.UserID, &token.ExpiresAt, &token.CreatedAt)
	if err := db.HandleQueryError(err, ErrRefreshTokenNotFound, "find refresh token", start); err != nil {
		return authdomain.RefreshToken{}, err
	}
	return token, nil
}

func (r *PgRefreshTokenRepository) DeleteByToken(ctx context.Context, tokenHash string) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = $1`,
		tokenHash,
	)
	return db.HandleExecError(err, "delete refresh token", start)
}

func (r *PgRefreshTokenRepository) DeleteByID(ctx context.Context, id string) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`DELETE FROM refresh_tokens WHERE id = $1`,
		id,
	)
	return db.HandleExecError(err, "delete refresh token by id", start)
}

func (r *PgRefreshTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`DELETE FROM refresh_tokens WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return 0, db.HandleExecError(err, "delete refresh tokens by user", start)
	}
	db.MeasureQueryDuration("delete refresh tokens by user", start)
	return res.RowsAffected(), nil
}

func (r *PgRefreshTokenRepository) Rotate(ctx context.Context, oldTokenHash string, next authdomain.RefreshToken) error {
	return r.txMgr.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		start := time.Now()
		var id string
		err := tx.QueryRow(
			ctx,
			`SELECT id FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE`,
			oldTokenHash,
		).Scan(&id)
		if err := db.HandleQueryError(err, ErrRefreshTokenNotFound, "lock refresh token in tx", start); err != nil {
			return err
		}

		start = time.Now()
		_, err = tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
		if err := db.HandleExecError(err, "delete rotated refresh token in tx", start); err != nil {
			return err
		}

		start = time.Now()
		_, err = tx.Exec(
			ctx,
			`INSERT INTO refresh_tokens (id, token_hash, user_id, expires_at, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			next.ID,
			next.TokenHash,
			next.UserID,
			next.ExpiresAt,
			next.CreatedAt,
		)
		return db.HandleExecError(err, "create rotated refresh token in tx", start)
	})
}

func (r *PgRefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= NOW()`,
	)
	if err != nil {
		return 0, db.HandleExecError(err, "delete expired refresh tokens", start)
	}
	db.MeasureQueryDuration("delete expired refresh tokens", start)
	return res.RowsAffected(), nil
}
