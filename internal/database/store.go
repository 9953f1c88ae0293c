package database

import (
	"context"
	"errors"
	"fmt"

	"coffeeapi/internal/models"
)

// Store defines the interface for all catalog operations.
// FileStore, MongoStore and SQLStore all implement it, and the
// handlers never know which one is active.
type Store interface {
	// ListCoffees returns every record ordered by id ascending
	ListCoffees(ctx context.Context) ([]*models.Coffee, error)
	// GetCoffee accepts the id exactly as it appeared in the URL.
	// Ids the backend cannot parse are reported as ErrNotFound.
	GetCoffee(ctx context.Context, id string) (*models.Coffee, error)
	// GetCoffeeByName matches case-insensitively and returns the lowest id
	GetCoffeeByName(ctx context.Context, name string) (*models.Coffee, error)
	// SearchCoffees returns a non-nil, possibly empty slice
	SearchCoffees(ctx context.Context, substr string) ([]*models.Coffee, error)
	UpdateCoffee(ctx context.Context, id string, req *models.UpdateCoffeeRequest) (*models.Coffee, error)
	CreateCoffee(ctx context.Context, req *models.CreateCoffeeRequest) (*models.Coffee, error)

	Close() error
}

// Seeder is implemented by stores that can be bootstrapped from a snapshot
type Seeder interface {
	CountCoffees(ctx context.Context) (int, error)
	// ImportCoffees inserts records keeping their ids
	ImportCoffees(ctx context.Context, coffees []*models.Coffee) error
}

var (
	ErrNotFound    = errors.New("coffee not found")
	ErrConflict    = errors.New("coffee already exists")
	ErrUnavailable = errors.New("database not configured")
	ErrBackend     = errors.New("backend error")
)

// BackendError wraps a driver or filesystem failure so that it matches
// ErrBackend while keeping the cause for logs.
func BackendError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackend, op, err)
}
