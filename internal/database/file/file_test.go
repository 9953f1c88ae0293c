package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"coffeeapi/internal/database"
	"coffeeapi/internal/models"
)

const fixture = `[
  {"id": 2, "name": "Latte", "image": "/images/latte.jpg", "description": "Espresso with steamed milk"},
  {"id": 1, "name": "Espresso", "image": "/images/espresso.jpg", "description": "Strong and concentrated"},
  {"id": 3, "name": "Cappuccino", "image": "/images/cappuccino.jpg", "description": "Espresso, MILK and foam"}
]`

// newTestStore writes the fixture to a temp dir and opens it
func newTestStore(t *testing.T, opts Options) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coffees.json")
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	store, err := NewFileStore(path, opts)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store, path
}

func TestNewFileStore(t *testing.T) {
	t.Run("missing file yields empty catalog", func(t *testing.T) {
		store, err := NewFileStore(filepath.Join(t.TempDir(), "nope.json"), Options{})
		if err != nil {
			t.Fatalf("NewFileStore() error = %v", err)
		}
		coffees, _ := store.ListCoffees(context.Background())
		if len(coffees) != 0 {
			t.Errorf("ListCoffees() len = %d, want 0", len(coffees))
		}
	})

	t.Run("invalid json fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		os.WriteFile(path, []byte("{not json"), 0o644)
		if _, err := NewFileStore(path, Options{}); err == nil {
			t.Error("NewFileStore() expected error for invalid json")
		}
	})
}

func TestListCoffees(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	coffees, err := store.ListCoffees(context.Background())
	if err != nil {
		t.Fatalf("ListCoffees() error = %v", err)
	}
	if len(coffees) != 3 {
		t.Fatalf("ListCoffees() len = %d, want 3", len(coffees))
	}
	for i, c := range coffees {
		if c.ID != i+1 {
			t.Errorf("coffees[%d].ID = %d, want %d (sorted by id)", i, c.ID, i+1)
		}
	}

	// Returned records are copies
	coffees[0].Name = "changed"
	again, _ := store.ListCoffees(context.Background())
	if again[0].Name != "Espresso" {
		t.Errorf("store was mutated through ListCoffees result: %q", again[0].Name)
	}
}

func TestGetCoffee(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	ctx := context.Background()

	tests := []struct {
		name     string
		id       string
		wantName string
		wantErr  error
	}{
		{"existing", "2", "Latte", nil},
		{"missing", "99", "", database.ErrNotFound},
		{"malformed", "abc", "", database.ErrNotFound},
		{"zero", "0", "", database.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.GetCoffee(ctx, tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("GetCoffee(%q) error = %v, want %v", tt.id, err, tt.wantErr)
			}
			if tt.wantErr == nil && got.Name != tt.wantName {
				t.Errorf("GetCoffee(%q).Name = %q, want %q", tt.id, got.Name, tt.wantName)
			}
		})
	}
}

func TestGetCoffeeByName(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	ctx := context.Background()

	got, err := store.GetCoffeeByName(ctx, "lATTE")
	if err != nil {
		t.Fatalf("GetCoffeeByName() error = %v", err)
	}
	if got.ID != 2 {
		t.Errorf("GetCoffeeByName().ID = %d, want 2", got.ID)
	}

	if _, err := store.GetCoffeeByName(ctx, "Latt"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("GetCoffeeByName(prefix) error = %v, want ErrNotFound", err)
	}
}

func TestSearchCoffees(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	ctx := context.Background()

	tests := []struct {
		substr  string
		wantIDs []int
	}{
		{"milk", []int{2, 3}},
		{"ESPRESSO", []int{2, 3}},
		{"concentrated", []int{1}},
		{"matcha", []int{}},
		{"", []int{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.substr, func(t *testing.T) {
			got, err := store.SearchCoffees(ctx, tt.substr)
			if err != nil {
				t.Fatalf("SearchCoffees() error = %v", err)
			}
			if got == nil {
				t.Fatal("SearchCoffees() returned nil slice")
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("SearchCoffees(%q) len = %d, want %d", tt.substr, len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("SearchCoffees(%q)[%d].ID = %d, want %d", tt.substr, i, got[i].ID, id)
				}
			}
		})
	}
}

func TestCreateCoffee(t *testing.T) {
	t.Run("assigns max id plus one and persists", func(t *testing.T) {
		store, path := newTestStore(t, Options{})
		ctx := context.Background()

		created, err := store.CreateCoffee(ctx, &models.CreateCoffeeRequest{Name: "Mocha", Description: "Chocolate"})
		if err != nil {
			t.Fatalf("CreateCoffee() error = %v", err)
		}
		if created.ID != 4 {
			t.Errorf("CreateCoffee().ID = %d, want 4", created.ID)
		}

		reopened, err := NewFileStore(path, Options{})
		if err != nil {
			t.Fatalf("reopen error = %v", err)
		}
		got, err := reopened.GetCoffee(ctx, "4")
		if err != nil {
			t.Fatalf("GetCoffee() after reopen error = %v", err)
		}
		if *got != *created {
			t.Errorf("reopened record = %+v, want %+v", got, created)
		}
	})

	t.Run("first record on empty store gets id 1", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "coffees.json")
		store, _ := NewFileStore(path, Options{})

		created, err := store.CreateCoffee(context.Background(), &models.CreateCoffeeRequest{Name: "Mocha"})
		if err != nil {
			t.Fatalf("CreateCoffee() error = %v", err)
		}
		want := models.Coffee{ID: 1, Name: "Mocha"}
		if *created != want {
			t.Errorf("CreateCoffee() = %+v, want %+v", created, want)
		}
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		store, _ := newTestStore(t, Options{})
		_, err := store.CreateCoffee(context.Background(), &models.CreateCoffeeRequest{Name: "espresso"})
		if !errors.Is(err, database.ErrConflict) {
			t.Errorf("CreateCoffee() error = %v, want ErrConflict", err)
		}
	})

	t.Run("read-only store is unavailable", func(t *testing.T) {
		store, _ := newTestStore(t, Options{ReadOnly: true})
		_, err := store.CreateCoffee(context.Background(), &models.CreateCoffeeRequest{Name: "Mocha"})
		if !errors.Is(err, database.ErrUnavailable) {
			t.Errorf("CreateCoffee() error = %v, want ErrUnavailable", err)
		}
	})

	t.Run("unwritable directory is a backend error", func(t *testing.T) {
		store, err := NewFileStore(filepath.Join(t.TempDir(), "missing-dir", "coffees.json"), Options{})
		if err != nil {
			t.Fatalf("NewFileStore() error = %v", err)
		}
		_, err = store.CreateCoffee(context.Background(), &models.CreateCoffeeRequest{Name: "Mocha"})
		if !errors.Is(err, database.ErrBackend) {
			t.Fatalf("CreateCoffee() error = %v, want ErrBackend", err)
		}
		coffees, _ := store.ListCoffees(context.Background())
		if len(coffees) != 0 {
			t.Errorf("failed write should not change memory, got %d records", len(coffees))
		}
	})
}

func TestUpdateCoffee(t *testing.T) {
	t.Run("updates supplied fields only", func(t *testing.T) {
		store, path := newTestStore(t, Options{})
		ctx := context.Background()

		got, err := store.UpdateCoffee(ctx, "2", &models.UpdateCoffeeRequest{Description: "Milky"})
		if err != nil {
			t.Fatalf("UpdateCoffee() error = %v", err)
		}
		if got.Name != "Latte" || got.Description != "Milky" || got.Image != "/images/latte.jpg" {
			t.Errorf("UpdateCoffee() = %+v", got)
		}

		reopened, _ := NewFileStore(path, Options{})
		again, _ := reopened.GetCoffee(ctx, "2")
		if again.Description != "Milky" {
			t.Errorf("persisted description = %q, want %q", again.Description, "Milky")
		}
	})

	t.Run("missing record", func(t *testing.T) {
		store, _ := newTestStore(t, Options{})
		_, err := store.UpdateCoffee(context.Background(), "42", &models.UpdateCoffeeRequest{Name: "x"})
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("UpdateCoffee() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("read-only store is unavailable", func(t *testing.T) {
		store, _ := newTestStore(t, Options{ReadOnly: true})
		_, err := store.UpdateCoffee(context.Background(), "1", &models.UpdateCoffeeRequest{Name: "x"})
		if !errors.Is(err, database.ErrUnavailable) {
			t.Errorf("UpdateCoffee() error = %v, want ErrUnavailable", err)
		}
	})
}

func TestReadSnapshot(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := ReadSnapshot(filepath.Join(t.TempDir(), "none.json"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("ReadSnapshot() error = %v, want os.ErrNotExist", err)
		}
	})

	t.Run("null entry is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "coffees.json")
		if err := os.WriteFile(path, []byte(`[{"id":1,"name":"A"}, null]`), 0o644); err != nil {
			t.Fatalf("failed to write snapshot: %v", err)
		}

		if coffees, err := ReadSnapshot(path); err == nil {
			t.Errorf("ReadSnapshot() = %v, want error for null entry", coffees)
		}
		if _, err := NewFileStore(path, Options{}); err == nil {
			t.Error("NewFileStore() expected error for null entry")
		}
	})
}
