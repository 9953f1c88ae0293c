package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"coffeeapi/internal/database"
	"coffeeapi/internal/models"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"

	defaultTimeout = 10 * time.Second
)

// Config selects the driver and connection for a SQLStore
type Config struct {
	// Driver is DriverPostgres (Postgres, Supabase) or DriverSQLite
	Driver string
	DSN    string
	// Timeout bounds every query; zero means 10s
	Timeout time.Duration
	Logger  zerolog.Logger
}

// SQLStore is the relational catalog backend
type SQLStore struct {
	db      *sql.DB
	driver  string
	timeout time.Duration

	// writes are serialized so max(id)+1 cannot be handed out twice
	writeMu sync.Mutex
}

// Open connects, pings and runs migrations
func Open(ctx context.Context, cfg Config) (*SQLStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is empty")
	}

	var dialect goose.Dialect
	switch cfg.Driver {
	case DriverPostgres:
		dialect = goose.DialectPostgres
	case DriverSQLite:
		dialect = goose.DialectSQLite3
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// :memory: databases exist per connection, and sqlite has a single writer anyway
		db.SetMaxOpenConns(1)
	}

	store := newStore(db, cfg.Driver, cfg.Timeout)

	pingCtx, cancel := store.withTimeout(ctx)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(ctx, db, dialect, cfg.Logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func newStore(db *sql.DB, driver string, timeout time.Duration) *SQLStore {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &SQLStore{db: db, driver: driver, timeout: timeout}
}

func runMigrations(ctx context.Context, db *sql.DB, dialect goose.Dialect, logger zerolog.Logger) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}

	for _, r := range results {
		logger.Info().
			Int64("version", r.Source.Version).
			Str("file", r.Source.Path).
			Dur("duration", r.Duration).
			Msg("Applied migration")
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

var placeholder = regexp.MustCompile(`\$\d+`)

// q adapts $N placeholders for drivers that only take ?.
// Every query binds its arguments once and in order, so this is safe.
func (s *SQLStore) q(query string) string {
	if s.driver == DriverSQLite {
		return placeholder.ReplaceAllString(query, "?")
	}
	return query
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCoffee(row scanner) (*models.Coffee, error) {
	c := &models.Coffee{}
	if err := row.Scan(&c.ID, &c.Name, &c.Image, &c.Description); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SQLStore) queryCoffees(ctx context.Context, op, query string, args ...any) ([]*models.Coffee, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, database.BackendError(op, err)
	}
	defer rows.Close()

	coffees := make([]*models.Coffee, 0)
	for rows.Next() {
		c, err := scanCoffee(rows)
		if err != nil {
			return nil, database.BackendError(op, err)
		}
		coffees = append(coffees, c)
	}
	if err := rows.Err(); err != nil {
		return nil, database.BackendError(op, err)
	}
	return coffees, nil
}

func (s *SQLStore) queryCoffee(ctx context.Context, op, query string, args ...any) (*models.Coffee, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	c, err := scanCoffee(s.db.QueryRowContext(ctx, s.q(query), args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrNotFound
		}
		return nil, database.BackendError(op, err)
	}
	return c, nil
}

// ========== Read Operations ==========

func (s *SQLStore) ListCoffees(ctx context.Context) ([]*models.Coffee, error) {
	return s.queryCoffees(ctx, "list coffees",
		`SELECT id, name, image, description FROM coffees ORDER BY id`)
}

func (s *SQLStore) GetCoffee(ctx context.Context, id string) (*models.Coffee, error) {
	n, err := database.ParseID(id)
	if err != nil {
		return nil, database.ErrNotFound
	}
	return s.queryCoffee(ctx, "get coffee",
		`SELECT id, name, image, description FROM coffees WHERE id = $1`, n)
}

// foldsUnicode reports whether the database's LOWER() folds beyond ASCII.
// SQLite's built-in one does not, so those comparisons run in Go.
func (s *SQLStore) foldsUnicode() bool {
	return s.driver != DriverSQLite
}

func (s *SQLStore) GetCoffeeByName(ctx context.Context, name string) (*models.Coffee, error) {
	if !s.foldsUnicode() {
		coffees, err := s.queryCoffees(ctx, "get coffee by name",
			`SELECT id, name, image, description FROM coffees ORDER BY id`)
		if err != nil {
			return nil, err
		}
		for _, c := range coffees {
			if strings.EqualFold(c.Name, name) {
				return c, nil
			}
		}
		return nil, database.ErrNotFound
	}

	return s.queryCoffee(ctx, "get coffee by name",
		`SELECT id, name, image, description FROM coffees
		 WHERE LOWER(name) = LOWER($1)
		 ORDER BY id LIMIT 1`, name)
}

func (s *SQLStore) SearchCoffees(ctx context.Context, substr string) ([]*models.Coffee, error) {
	if !s.foldsUnicode() {
		coffees, err := s.queryCoffees(ctx, "search coffees",
			`SELECT id, name, image, description FROM coffees ORDER BY id`)
		if err != nil {
			return nil, err
		}
		needle := strings.ToLower(substr)
		return slices.DeleteFunc(coffees, func(c *models.Coffee) bool {
			return !strings.Contains(strings.ToLower(c.Description), needle)
		}), nil
	}

	pattern := "%" + escapeLike(substr) + "%"
	return s.queryCoffees(ctx, "search coffees",
		`SELECT id, name, image, description FROM coffees
		 WHERE LOWER(description) LIKE LOWER($1) ESCAPE '\'
		 ORDER BY id`, pattern)
}

func (s *SQLStore) CountCoffees(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM coffees`).Scan(&n); err != nil {
		return 0, database.BackendError("count coffees", err)
	}
	return n, nil
}

// ========== Write Operations ==========

func (s *SQLStore) UpdateCoffee(ctx context.Context, id string, req *models.UpdateCoffeeRequest) (*models.Coffee, error) {
	n, err := database.ParseID(id)
	if err != nil {
		return nil, database.ErrNotFound
	}

	var (
		sets []string
		args []any
	)
	if req.Name != "" {
		args = append(args, req.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if req.Description != "" {
		args = append(args, req.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if len(sets) == 0 {
		return s.GetCoffee(ctx, id)
	}
	args = append(args, n)

	query := fmt.Sprintf(
		`UPDATE coffees SET %s WHERE id = $%d RETURNING id, name, image, description`,
		strings.Join(sets, ", "), len(args))

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.queryCoffee(ctx, "update coffee", query, args...)
}

func (s *SQLStore) CreateCoffee(ctx context.Context, req *models.CreateCoffeeRequest) (*models.Coffee, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, database.BackendError("begin transaction", err)
	}
	defer tx.Rollback()

	taken, err := s.nameTaken(ctx, tx, req.Name)
	if err != nil {
		return nil, database.BackendError("check coffee name", err)
	}
	if taken {
		return nil, database.ErrConflict
	}

	var maxID int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM coffees`).Scan(&maxID); err != nil {
		return nil, database.BackendError("next coffee id", err)
	}

	coffee := &models.Coffee{
		ID:          maxID + 1,
		Name:        req.Name,
		Image:       req.Image,
		Description: req.Description,
	}

	_, err = tx.ExecContext(ctx, s.q(
		`INSERT INTO coffees (id, name, image, description) VALUES ($1, $2, $3, $4)`),
		coffee.ID, coffee.Name, coffee.Image, coffee.Description)
	if err != nil {
		return nil, database.BackendError("insert coffee", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, database.BackendError("commit coffee", err)
	}

	return coffee, nil
}

// nameTaken reports whether a record with the same name, ignoring case, exists
func (s *SQLStore) nameTaken(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	if !s.foldsUnicode() {
		rows, err := tx.QueryContext(ctx, `SELECT name FROM coffees`)
		if err != nil {
			return false, err
		}
		defer rows.Close()

		for rows.Next() {
			var existing string
			if err := rows.Scan(&existing); err != nil {
				return false, err
			}
			if strings.EqualFold(existing, name) {
				return true, nil
			}
		}
		return false, rows.Err()
	}

	var id int
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM coffees WHERE LOWER(name) = LOWER($1) LIMIT 1`, name).Scan(&id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, err
	}
}

func (s *SQLStore) ImportCoffees(ctx context.Context, coffees []*models.Coffee) error {
	if i := slices.Index(coffees, nil); i >= 0 {
		return fmt.Errorf("import coffees: entry %d is nil", i)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return database.BackendError("begin transaction", err)
	}
	defer tx.Rollback()

	insert := s.q(`INSERT INTO coffees (id, name, image, description) VALUES ($1, $2, $3, $4)`)
	for _, c := range coffees {
		if _, err := tx.ExecContext(ctx, insert, c.ID, c.Name, c.Image, c.Description); err != nil {
			return database.BackendError(fmt.Sprintf("import coffee %d", c.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return database.BackendError("commit import", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
