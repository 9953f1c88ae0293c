package database

import (
	"context"
	"fmt"

	"coffeeapi/internal/models"
)

// Unavailable stands in for a backend that could not be made ready.
// Every call fails with ErrUnavailable without touching the network.
type Unavailable struct {
	Reason string
}

func (u *Unavailable) err() error {
	if u.Reason == "" {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, u.Reason)
}

func (u *Unavailable) ListCoffees(ctx context.Context) ([]*models.Coffee, error) {
	return nil, u.err()
}

func (u *Unavailable) GetCoffee(ctx context.Context, id string) (*models.Coffee, error) {
	return nil, u.err()
}

func (u *Unavailable) GetCoffeeByName(ctx context.Context, name string) (*models.Coffee, error) {
	return nil, u.err()
}

func (u *Unavailable) SearchCoffees(ctx context.Context, substr string) ([]*models.Coffee, error) {
	return nil, u.err()
}

func (u *Unavailable) UpdateCoffee(ctx context.Context, id string, req *models.UpdateCoffeeRequest) (*models.Coffee, error) {
	return nil, u.err()
}

func (u *Unavailable) CreateCoffee(ctx context.Context, req *models.CreateCoffeeRequest) (*models.Coffee, error) {
	return nil, u.err()
}

func (u *Unavailable) Close() error {
	return nil
}
