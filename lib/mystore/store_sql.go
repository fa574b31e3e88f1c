package mystore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/MarcGrol/manualcheckout/lib/mylog"
)

//go:embed migrations
var migrations embed.FS

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"

	serializationFailure = "40001"
)

type sqlDatabase struct {
	db      *sql.DB
	dialect string
	refs    int
}

var (
	databasesMutex sync.Mutex
	databases      = map[string]*sqlDatabase{}
)

// sqlTx is the transaction state carried in the context so every store on the same database joins it
type sqlTx struct {
	db *sql.DB
	tx *sql.Tx
}

type sqlTxKey struct{}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlStore[T any] struct {
	db      *sql.DB
	dialect string
	kind    string
	logger  mylog.Logger
}

// NewSQLStore stores values as JSON documents in a single entities table keyed by (kind, uid).
// Supported urls: sqlite://<path> and postgres://<dsn>.
func NewSQLStore[T any](c context.Context, databaseURL string) (Store[T], func(), error) {
	database, err := openDatabase(c, databaseURL)
	if err != nil {
		return nil, nil, err
	}

	return &sqlStore[T]{
			db:      database.db,
			dialect: database.dialect,
			kind:    kindOf[T](),
			logger:  mylog.New("sqlstore"),
		}, func() {
			closeDatabase(databaseURL)
		}, nil
}

func openDatabase(c context.Context, databaseURL string) (*sqlDatabase, error) {
	databasesMutex.Lock()
	defer databasesMutex.Unlock()

	if existing, found := databases[databaseURL]; found {
		existing.refs++
		return existing, nil
	}

	var (
		db      *sql.DB
		dialect string
		err     error
	)
	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"):
		dialect = dialectSQLite
		db, err = sql.Open("sqlite", sqliteDSN(strings.TrimPrefix(databaseURL, "sqlite://")))
		if err == nil {
			// a single connection serializes writers
			db.SetMaxOpenConns(1)
		}
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		dialect = dialectPostgres
		db, err = sql.Open("postgres", databaseURL)
		if err == nil {
			db.SetMaxOpenConns(25)
			db.SetMaxIdleConns(5)
		}
	default:
		return nil, fmt.Errorf("unsupported database url %q", databaseURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.PingContext(c)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	err = runMigrations(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	database := &sqlDatabase{db: db, dialect: dialect, refs: 1}
	databases[databaseURL] = database

	return database, nil
}

func sqliteDSN(path string) string {
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return path + separator + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
}

func closeDatabase(databaseURL string) {
	databasesMutex.Lock()
	defer databasesMutex.Unlock()

	existing, found := databases[databaseURL]
	if !found {
		return
	}
	existing.refs--
	if existing.refs <= 0 {
		existing.db.Close()
		delete(databases, databaseURL)
	}
}

func runMigrations(db *sql.DB, dialect string) error {
	source, err := iofs.New(migrations, "migrations/"+dialect)
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	var driver database.Driver
	switch dialect {
	case dialectSQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dialect, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	// m.Close is not called: it would close the shared database handle
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (s *sqlStore[T]) currentTx(c context.Context) *sql.Tx {
	state, ok := c.Value(sqlTxKey{}).(*sqlTx)
	if !ok || state.db != s.db {
		return nil
	}
	return state.tx
}

func (s *sqlStore[T]) conn(c context.Context) querier {
	if tx := s.currentTx(c); tx != nil {
		return tx
	}
	return s.db
}

func (s *sqlStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	if s.currentTx(c) != nil {
		return f(c)
	}

	var err error
	for i := 1; i <= maxTransactionAttempts; i++ {
		err = s.runInTransaction(c, f)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == serializationFailure {
				// retrying requires idempotent business logic
				s.logger.Log(c, s.kind, mylog.SeverityWarn, "Serialization failure, retrying (%d of %d): %s", i, maxTransactionAttempts, err)
				continue
			}
			return err
		}
		return nil
	}
	return err
}

func (s *sqlStore[T]) runInTransaction(c context.Context, f func(c context.Context) error) error {
	options := &sql.TxOptions{}
	if s.dialect == dialectPostgres {
		options.Isolation = sql.LevelSerializable
	}

	tx, err := s.db.BeginTx(c, options)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	err = f(context.WithValue(c, sqlTxKey{}, &sqlTx{db: s.db, tx: tx}))
	if err != nil {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			s.logger.Log(c, s.kind, mylog.SeverityError, "Error rolling back transaction: %s", rollbackErr)
		}
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

func (s *sqlStore[T]) bind(n int) string {
	if s.dialect == dialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *sqlStore[T]) Put(c context.Context, uid string, value T) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error marshalling entity %s with uid %s: %w", s.kind, uid, err)
	}

	query := fmt.Sprintf(`INSERT INTO entities (kind, uid, value) VALUES (%s, %s, %s)
		ON CONFLICT (kind, uid) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		s.bind(1), s.bind(2), s.bind(3))

	_, err = s.conn(c).ExecContext(c, query, s.kind, uid, string(jsonValue))
	if err != nil {
		return fmt.Errorf("error storing entity %s with uid %s: %w", s.kind, uid, err)
	}

	return nil
}

func (s *sqlStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	var value T

	query := fmt.Sprintf(`SELECT value FROM entities WHERE kind = %s AND uid = %s`, s.bind(1), s.bind(2))

	var raw string
	err := s.conn(c).QueryRowContext(c, query, s.kind, uid).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return value, false, nil
		}
		return value, false, fmt.Errorf("error fetching entity %s with uid %s: %w", s.kind, uid, err)
	}

	err = json.Unmarshal([]byte(raw), &value)
	if err != nil {
		return value, false, fmt.Errorf("error unmarshalling entity %s with uid %s: %w", s.kind, uid, err)
	}

	return value, true, nil
}

func (s *sqlStore[T]) List(c context.Context) ([]T, error) {
	query := fmt.Sprintf(`SELECT value FROM entities WHERE kind = %s ORDER BY created_at, uid`, s.bind(1))

	rows, err := s.conn(c).QueryContext(c, query, s.kind)
	if err != nil {
		return nil, fmt.Errorf("error fetching all entities %s: %w", s.kind, err)
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		var raw string
		err = rows.Scan(&raw)
		if err != nil {
			return nil, fmt.Errorf("error scanning entity %s: %w", s.kind, err)
		}

		var value T
		err = json.Unmarshal([]byte(raw), &value)
		if err != nil {
			return nil, fmt.Errorf("error unmarshalling entity %s: %w", s.kind, err)
		}
		result = append(result, value)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating entities %s: %w", s.kind, err)
	}

	return result, nil
}

func (s *sqlStore[T]) Query(c context.Context, filters []Filter, orderByField string) ([]T, error) {
	all, err := s.List(c)
	if err != nil {
		return nil, err
	}

	return applyFilters(all, filters, orderByField)
}
