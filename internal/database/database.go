package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"hotelbook/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// ErrConcurrentModification is returned when a versioned row changed under the caller.
var ErrConcurrentModification = errors.New("concurrent modification")

// Queryer is the subset of *sql.DB and *sql.Tx used by the store.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// store implements every query once, on top of either the pool or a transaction.
type store struct {
	q Queryer
}

// DB is the process-wide storage handle.
type DB struct {
	*sql.DB
	store
	path string
}

// Tx is a store bound to one SQL transaction.
type Tx struct {
	*sql.Tx
	store
}

// NewDB opens the SQLite database at path and runs migrations.
// Transactions use BEGIN IMMEDIATE so writers serialize at the start of the transaction.
func NewDB(path string) (*DB, error) {
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{DB: db, store: store{q: db}, path: path}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise, including on panic.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin tx", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&Tx{Tx: sqlTx, store: store{q: sqlTx}}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return domain.NewStorageError("commit tx", err)
	}
	return nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS room_types (
            id INTEGER PRIMARY KEY,
            code TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            default_max_sales_quantity INTEGER NOT NULL DEFAULT 0 CHECK (default_max_sales_quantity >= 0),
            weekday_price INTEGER NOT NULL DEFAULT 0,
            weekend_price INTEGER NOT NULL DEFAULT 0,
            capacity INTEGER NOT NULL DEFAULT 1,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		// One ledger row per room type and night, never deleted.
		`CREATE TABLE IF NOT EXISTS room_inventory (
            room_type_id INTEGER NOT NULL,
            date TEXT NOT NULL,
            max_sales_quantity INTEGER CHECK (max_sales_quantity IS NULL OR max_sales_quantity >= 0),
            booked_quantity INTEGER NOT NULL DEFAULT 0 CHECK (booked_quantity >= 0),
            is_available BOOLEAN NOT NULL DEFAULT 1,
            weekday_price INTEGER,
            weekend_price INTEGER,
            reason TEXT NOT NULL DEFAULT '',
            version INTEGER NOT NULL DEFAULT 1,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (room_type_id, date),
            FOREIGN KEY (room_type_id) REFERENCES room_types(id)
        )`,

		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            reference TEXT UNIQUE NOT NULL,
            room_type_id INTEGER NOT NULL,
            guest_name TEXT NOT NULL,
            guest_email TEXT NOT NULL,
            guest_phone TEXT NOT NULL,
            message TEXT NOT NULL DEFAULT '',
            check_in TEXT NOT NULL,
            check_out TEXT NOT NULL,
            number_of_guests INTEGER NOT NULL DEFAULT 1,
            total_price INTEGER NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'pending',
            payment_method TEXT NOT NULL DEFAULT '',
            admin_memo TEXT NOT NULL DEFAULT '',
            paid_at DATETIME,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            version INTEGER NOT NULL DEFAULT 1,
            CHECK (check_out > check_in),
            FOREIGN KEY (room_type_id) REFERENCES room_types(id)
        )`,

		// Blackout dates currently imposed by room_types.yaml, so a reload can tell
		// new, unchanged and removed entries apart.
		`CREATE TABLE IF NOT EXISTS catalog_blackouts (
            room_type_id INTEGER NOT NULL,
            date TEXT NOT NULL,
            reason TEXT NOT NULL DEFAULT '',
            applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (room_type_id, date),
            FOREIGN KEY (room_type_id) REFERENCES room_types(id)
        )`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_room_types_active ON room_types(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_room_stay ON bookings(room_type_id, check_in, check_out)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_check_in ON bookings(check_in)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

func notFound(what string, key any) error {
	return fmt.Errorf("%s %v: %w", what, key, domain.ErrNotFound)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
