package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrEthical07/storeauth/internal/dbx"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	numericOutOfRange   = "22003"

	storeNameConstraint = "stores_name_key"
)

// PostgresRepository keeps the catalog in the stores and items tables.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListStores(ctx context.Context) ([]Store, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM stores ORDER BY id`)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	out := make([]Store, 0)
	for rows.Next() {
		var s Store
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, unavailable(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

func (r *PostgresRepository) GetStore(ctx context.Context, id int64) (Store, error) {
	var s Store
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM stores WHERE id = $1`, id).Scan(&s.ID, &s.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Store{}, ErrNotFound
		}
		return Store{}, unavailable(err)
	}
	return s, nil
}

func (r *PostgresRepository) CreateStore(ctx context.Context, s Store) (Store, error) {
	if err := ValidateStore(s); err != nil {
		return Store{}, err
	}

	err := r.db.QueryRowContext(ctx, `INSERT INTO stores (name) VALUES ($1) RETURNING id`, s.Name).Scan(&s.ID)
	if err != nil {
		return Store{}, mapWriteError(err)
	}
	return s, nil
}

func (r *PostgresRepository) PutStore(ctx context.Context, s Store) (Store, error) {
	if err := validateID(s.ID); err != nil {
		return Store{}, err
	}
	if err := ValidateStore(s); err != nil {
		return Store{}, err
	}

	query :=
		`INSERT INTO stores (id, name) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, query, s.ID, s.Name); err != nil {
			return mapWriteError(err)
		}
		return syncIdentity(ctx, tx, "stores")
	})
	if err != nil {
		return Store{}, txError(err)
	}
	return s, nil
}

// DeleteStore removes the store's items and then the store in one
// transaction.
func (r *PostgresRepository) DeleteStore(ctx context.Context, id int64) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE store_id = $1`, id); err != nil {
			return unavailable(err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
		if err != nil {
			return unavailable(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return unavailable(err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	return txError(err)
}

func (r *PostgresRepository) ListItems(ctx context.Context, storeID int64) ([]Item, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if storeID == 0 {
		rows, err = r.db.QueryContext(ctx, `SELECT id, name, price, store_id FROM items ORDER BY id`)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT id, name, price, store_id FROM items WHERE store_id = $1 ORDER BY id`, storeID)
	}
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	out := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Price, &it.StoreID); err != nil {
			return nil, unavailable(err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

func (r *PostgresRepository) GetItem(ctx context.Context, id int64) (Item, error) {
	var it Item
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, price, store_id FROM items WHERE id = $1`, id).
		Scan(&it.ID, &it.Name, &it.Price, &it.StoreID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, unavailable(err)
	}
	return it, nil
}

func (r *PostgresRepository) CreateItem(ctx context.Context, it Item) (Item, error) {
	if err := ValidateItem(it); err != nil {
		return Item{}, err
	}

	query :=
		`INSERT INTO items (name, price, store_id)
		 VALUES ($1, $2, $3)
		 RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, it.Name, it.Price, it.StoreID).Scan(&it.ID); err != nil {
		return Item{}, mapWriteError(err)
	}
	return it, nil
}

// PutItem inserts it or, when the ID exists, replaces name and price. The
// stored store_id of an existing item is kept and returned.
func (r *PostgresRepository) PutItem(ctx context.Context, it Item) (Item, error) {
	if err := validateID(it.ID); err != nil {
		return Item{}, err
	}
	if err := validateItem(it, false); err != nil {
		return Item{}, err
	}

	query :=
		`INSERT INTO items (id, name, price, store_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price
		 RETURNING store_id`

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := tx.QueryRowContext(ctx, query, it.ID, it.Name, it.Price, it.StoreID).Scan(&it.StoreID); err != nil {
			return mapWriteError(err)
		}
		return syncIdentity(ctx, tx, "items")
	})
	if err != nil {
		return Item{}, txError(err)
	}
	return it, nil
}

func (r *PostgresRepository) DeleteItem(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// syncIdentity moves table's identity sequence past rows inserted with an
// explicit id, so the next generated id does not collide with them.
func syncIdentity(ctx context.Context, tx dbx.DBTX, table string) error {
	query := `SELECT setval(pg_get_serial_sequence('` + table + `', 'id'),
		GREATEST((SELECT max(id) FROM ` + table + `), 1))`

	if _, err := tx.ExecContext(ctx, query); err != nil {
		return unavailable(err)
	}
	return nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == uniqueViolation && pgErr.ConstraintName == storeNameConstraint:
			return ErrDuplicateName
		case pgErr.Code == foreignKeyViolation:
			return invalid("store_id", "references an unknown store")
		case pgErr.Code == numericOutOfRange:
			return invalid("price", "is out of range")
		}
	}
	return unavailable(err)
}

// txError passes catalog errors from a transaction body through and wraps
// begin or commit failures.
func txError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrInvalid) || errors.Is(err, ErrUnavailable) {
		return err
	}
	return unavailable(err)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: db error: %v", ErrUnavailable, err)
}
