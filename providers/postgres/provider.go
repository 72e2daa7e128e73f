// Package postgres implements the engine's CredentialProvider on top of
// a PostgreSQL users table accessed through pgx.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docuvault/authcore"
)

// Provider reads and updates credential records. The expected schema:
//
//	users (
//	    id            uuid primary key,
//	    identifier    text unique not null,
//	    alias         text not null,
//	    password_hash text not null,
//	    roles         text[] not null default '{}',
//	    status        smallint not null default 0,
//	    second_factor boolean not null default false,
//	    destination   text not null default ''
//	)
type Provider struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool. The pool's lifecycle stays with
// the caller.
func New(pool *pgxpool.Pool) *Provider {
	return &Provider{pool: pool}
}

// Connect opens a pool from a connection string.
func Connect(ctx context.Context, databaseURL string) (*Provider, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Provider{pool: pool}, nil
}

// Close releases the pool if this provider owns one.
func (p *Provider) Close() {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
}

const userColumns = `id, identifier, alias, password_hash, roles, status, second_factor, destination`

func (p *Provider) GetUserByIdentifier(ctx context.Context, identifier string) (authcore.UserRecord, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE identifier = $1`
	return p.scanUser(p.pool.QueryRow(ctx, query, identifier))
}

func (p *Provider) GetUserByID(ctx context.Context, userID string) (authcore.UserRecord, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return p.scanUser(p.pool.QueryRow(ctx, query, userID))
}

func (p *Provider) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`,
		userID, newHash,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

func (p *Provider) scanUser(row pgx.Row) (authcore.UserRecord, error) {
	var (
		user   authcore.UserRecord
		status int16
	)
	err := row.Scan(
		&user.UserID,
		&user.Identifier,
		&user.Alias,
		&user.PasswordHash,
		&user.Roles,
		&status,
		&user.SecondFactor,
		&user.Destination,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authcore.UserRecord{}, authcore.ErrUserNotFound
		}
		return authcore.UserRecord{}, err
	}
	user.Status = authcore.AccountStatus(status)
	return user, nil
}
