package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const maxNameLength = 80

// Prices are stored as NUMERIC(12,2).
const priceScale = 2

var maxPrice = decimal.New(1, 10)

var (
	// ErrNotFound is returned when no store or item has the requested ID.
	ErrNotFound = errors.New("catalog: not found")
	// ErrDuplicateName is returned when a store name is already taken.
	ErrDuplicateName = errors.New("catalog: store name already exists")
	// ErrInvalid is wrapped by every *ValidationError.
	ErrInvalid = errors.New("catalog: invalid input")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("catalog: backend unavailable")
)

type Store struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Item is priced in a fixed-point decimal so that stored prices round-trip
// exactly.
type Item struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	StoreID int64           `json:"store_id"`
}

// Repository is the catalog persistence boundary.
type Repository interface {
	ListStores(ctx context.Context) ([]Store, error)
	GetStore(ctx context.Context, id int64) (Store, error)
	CreateStore(ctx context.Context, s Store) (Store, error)
	PutStore(ctx context.Context, s Store) (Store, error)
	DeleteStore(ctx context.Context, id int64) error

	ListItems(ctx context.Context, storeID int64) ([]Item, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	CreateItem(ctx context.Context, it Item) (Item, error)
	PutItem(ctx context.Context, it Item) (Item, error)
	DeleteItem(ctx context.Context, id int64) error
}

// ValidationError lists per-field problems. It wraps ErrInvalid.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return ErrInvalid.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func validateName(field, name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return invalid(field, "is required")
	case !utf8.ValidString(name):
		return invalid(field, "must be valid UTF-8")
	case utf8.RuneCountInString(name) > maxNameLength:
		return invalid(field, "is too long")
	}
	return nil
}

// ValidateStore checks s before it is written. PutStore additionally requires
// a positive ID.
func ValidateStore(s Store) error {
	return validateName("name", s.Name)
}

// ValidateItem checks the fields of it that do not need a lookup.
func ValidateItem(it Item) error {
	return validateItem(it, true)
}

func validateItem(it Item, requireStore bool) error {
	v := &ValidationError{Fields: map[string]string{}}
	if err := validateName("name", it.Name); err != nil {
		var ve *ValidationError
		errors.As(err, &ve)
		v.Fields["name"] = ve.Fields["name"]
	}
	switch {
	case it.Price.IsNegative():
		v.Fields["price"] = "must not be negative"
	case !it.Price.Equal(it.Price.Truncate(priceScale)):
		v.Fields["price"] = "must have at most 2 decimal places"
	case it.Price.GreaterThanOrEqual(maxPrice):
		v.Fields["price"] = "is too large"
	}
	if requireStore && it.StoreID <= 0 {
		v.Fields["store_id"] = "is required"
	}
	if len(v.Fields) > 0 {
		return v
	}
	return nil
}

func validateID(id int64) error {
	if id <= 0 {
		return invalid("id", "must be positive")
	}
	return nil
}
