package backend

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"docstore/pkg/storage"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations
var migrationsFS embed.FS

// Dialect selects the SQL driver and placeholder style used by SQLTable.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// ErrItemNotFound is returned by GetItem when no record has the given id.
var ErrItemNotFound = errors.New("item not found")

// SQLTable is a MetadataTable stored in a relational database. Every logical
// table shares one physical "items" table; attributes are kept as their typed
// JSON encoding.
type SQLTable struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// initSchema applies all SQL files in the embedded migrations in
// lexicographical order.
func initSchema(ctx context.Context, db *sql.DB) error {
	return fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		content, readError := migrationsFS.ReadFile(path)
		if readError != nil {
			return fmt.Errorf("error reading SQL file: %w", readError)
		}

		slog.Debug("Running migration", "path", path)
		_, execError := db.ExecContext(ctx, string(content))
		return execError
	})
}

// OpenSQLTable opens dsn with the driver for dialect and applies the schema.
func OpenSQLTable(ctx context.Context, dialect Dialect, dsn string) (*SQLTable, error) {
	switch dialect {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("unsupported SQL dialect %q", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return NewSQLTable(db, dialect), nil
}

// NewSQLTable wraps an already initialised database.
func NewSQLTable(db *sql.DB, dialect Dialect) *SQLTable {
	return &SQLTable{db: db, dialect: dialect, now: time.Now}
}

// Close closes the underlying database.
func (t *SQLTable) Close() error {
	return t.db.Close()
}

func (t *SQLTable) upsertQuery() string {
	if t.dialect == DialectPostgres {
		return `INSERT INTO items(table_name, id, attributes, updated_at) VALUES($1, $2, $3, $4)
			ON CONFLICT(table_name, id) DO UPDATE SET attributes = excluded.attributes, updated_at = excluded.updated_at`
	}
	return `INSERT INTO items(table_name, id, attributes, updated_at) VALUES(?, ?, ?, ?)
			ON CONFLICT(table_name, id) DO UPDATE SET attributes = excluded.attributes, updated_at = excluded.updated_at`
}

func (t *SQLTable) selectQuery() string {
	if t.dialect == DialectPostgres {
		return `SELECT attributes FROM items WHERE table_name = $1 AND id = $2`
	}
	return `SELECT attributes FROM items WHERE table_name = ? AND id = ?`
}

// PutItem implements storage.MetadataTable with insert-or-replace semantics.
func (t *SQLTable) PutItem(ctx context.Context, table string, item storage.Item) (storage.Receipt, error) {
	id, err := item.ID()
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode item %q: %w", id, err)
	}

	res, err := t.db.ExecContext(ctx, t.upsertQuery(), table, id, string(encoded), t.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("put item %q into %q: %w", id, table, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	return storage.Receipt{"RowsAffected": rows}, nil
}

// GetItem returns the record stored under id.
func (t *SQLTable) GetItem(ctx context.Context, table string, id string) (storage.Item, error) {
	var encoded string
	err := t.db.QueryRowContext(ctx, t.selectQuery(), table, id).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrItemNotFound, table, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get item %q from %q: %w", id, table, err)
	}

	var item storage.Item
	if err := json.Unmarshal([]byte(encoded), &item); err != nil {
		return nil, fmt.Errorf("decode item %q: %w", id, err)
	}
	return item, nil
}
