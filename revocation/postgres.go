package revocation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MrEthical07/storeauth/internal/dbx"
)

// Postgres stores revocations in the revoked_tokens table.
type Postgres struct {
	db dbx.DBTX
}

// NewPostgres returns a registry bound to db.
func NewPostgres(db dbx.DBTX) *Postgres {
	return &Postgres{db: db}
}

// Revoke inserts jti. Repeated calls are no-ops.
func (p *Postgres) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	query :=
		`INSERT INTO revoked_tokens (jti, expires_at)
		 VALUES ($1, $2)
		 ON CONFLICT (jti) DO NOTHING`

	var exp sql.NullTime
	if !expiresAt.IsZero() {
		exp = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
	}

	if _, err := p.db.ExecContext(ctx, query, jti, exp); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsRevoked looks jti up by primary key.
func (p *Postgres) IsRevoked(ctx context.Context, jti string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)`

	var exists bool
	if err := p.db.QueryRowContext(ctx, query, jti).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return exists, nil
}

// Sweep deletes rows whose token expired before now. Rows without an expiry
// are kept.
func (p *Postgres) Sweep(ctx context.Context, now time.Time) (int, error) {
	query := `DELETE FROM revoked_tokens WHERE expires_at IS NOT NULL AND expires_at < $1`

	res, err := p.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(n), nil
}
