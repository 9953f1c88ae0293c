package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"coffeeapi/internal/database"
	"coffeeapi/internal/models"
)

// FileStore keeps the whole catalog in memory and rewrites the JSON file
// after every mutation.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	readOnly bool
	coffees  []*models.Coffee
}

// Options configures a FileStore
type Options struct {
	// ReadOnly rejects CreateCoffee and UpdateCoffee with ErrUnavailable
	ReadOnly bool
}

// NewFileStore loads the catalog from path. A missing file yields an empty
// catalog that will be created on the first write.
func NewFileStore(path string, opts Options) (*FileStore, error) {
	coffees, err := ReadSnapshot(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if coffees == nil {
		coffees = []*models.Coffee{}
	}

	sortByID(coffees)

	return &FileStore{
		path:     path,
		readOnly: opts.ReadOnly,
		coffees:  coffees,
	}, nil
}

// ReadSnapshot parses a JSON array of coffees. Used by the store itself and
// by the seeder for networked backends.
func ReadSnapshot(path string) ([]*models.Coffee, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read coffee file %s: %w", path, err)
	}

	var coffees []*models.Coffee
	if err := json.Unmarshal(data, &coffees); err != nil {
		return nil, fmt.Errorf("failed to parse coffee file %s: %w", path, err)
	}
	for i, c := range coffees {
		if c == nil {
			return nil, fmt.Errorf("failed to parse coffee file %s: entry %d is null", path, i)
		}
	}
	return coffees, nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) ListCoffees(ctx context.Context) ([]*models.Coffee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Coffee, 0, len(s.coffees))
	for _, c := range s.coffees {
		out = append(out, clone(c))
	}
	return out, nil
}

func (s *FileStore) GetCoffee(ctx context.Context, id string) (*models.Coffee, error) {
	n, err := database.ParseID(id)
	if err != nil {
		return nil, database.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.find(n)
	if c == nil {
		return nil, database.ErrNotFound
	}
	return clone(c), nil
}

func (s *FileStore) GetCoffeeByName(ctx context.Context, name string) (*models.Coffee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.coffees {
		if strings.EqualFold(c.Name, name) {
			return clone(c), nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *FileStore) SearchCoffees(ctx context.Context, substr string) ([]*models.Coffee, error) {
	needle := strings.ToLower(substr)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Coffee, 0)
	for _, c := range s.coffees {
		if strings.Contains(strings.ToLower(c.Description), needle) {
			out = append(out, clone(c))
		}
	}
	return out, nil
}

func (s *FileStore) UpdateCoffee(ctx context.Context, id string, req *models.UpdateCoffeeRequest) (*models.Coffee, error) {
	if s.readOnly {
		return nil, fmt.Errorf("%w: coffee file is read-only", database.ErrUnavailable)
	}

	n, err := database.ParseID(id)
	if err != nil {
		return nil, database.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.find(n)
	if c == nil {
		return nil, database.ErrNotFound
	}

	// Mutate a copy so a failed flush leaves memory matching disk
	updated := clone(c)
	updated.Apply(req)

	next := make([]*models.Coffee, len(s.coffees))
	for i, existing := range s.coffees {
		if existing.ID == n {
			next[i] = updated
		} else {
			next[i] = existing
		}
	}

	if err := s.flush(next); err != nil {
		return nil, err
	}
	s.coffees = next

	return clone(updated), nil
}

func (s *FileStore) CreateCoffee(ctx context.Context, req *models.CreateCoffeeRequest) (*models.Coffee, error) {
	if s.readOnly {
		return nil, fmt.Errorf("%w: coffee file is read-only", database.ErrUnavailable)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.coffees {
		if strings.EqualFold(c.Name, req.Name) {
			return nil, database.ErrConflict
		}
	}

	coffee := &models.Coffee{
		ID:          s.nextID(),
		Name:        req.Name,
		Image:       req.Image,
		Description: req.Description,
	}

	next := append(slices.Clip(s.coffees), coffee)
	if err := s.flush(next); err != nil {
		return nil, err
	}
	s.coffees = next

	return clone(coffee), nil
}

// find expects s.mu to be held
func (s *FileStore) find(id int) *models.Coffee {
	i, ok := slices.BinarySearchFunc(s.coffees, id, func(c *models.Coffee, id int) int {
		return c.ID - id
	})
	if !ok {
		return nil
	}
	return s.coffees[i]
}

// nextID expects s.mu to be held; the slice is sorted so the max is last
func (s *FileStore) nextID() int {
	if len(s.coffees) == 0 {
		return 1
	}
	return s.coffees[len(s.coffees)-1].ID + 1
}

// flush writes the full collection next to the target and renames it in place
func (s *FileStore) flush(coffees []*models.Coffee) error {
	data, err := json.MarshalIndent(coffees, "", "  ")
	if err != nil {
		return database.BackendError("encode coffees", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".coffees-*.json")
	if err != nil {
		return database.BackendError("create temp file", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return database.BackendError("chmod coffee file", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return database.BackendError("write coffee file", err)
	}
	if err := tmp.Close(); err != nil {
		return database.BackendError("write coffee file", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return database.BackendError("replace coffee file", err)
	}
	return nil
}

func sortByID(coffees []*models.Coffee) {
	slices.SortStableFunc(coffees, func(a, b *models.Coffee) int {
		return a.ID - b.ID
	})
}

func clone(c *models.Coffee) *models.Coffee {
	cp := *c
	return &cp
}
