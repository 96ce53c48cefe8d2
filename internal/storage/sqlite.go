package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/types"
)

// SQLiteDatabase is the read-only business database questions are answered from
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens an existing SQLite file read-only. The connection also
// sets query_only, so statements that write fail inside SQLite.
func OpenSQLite(path string) (*SQLiteDatabase, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrTypeDatabase, "database not found at %s", path).
				WithSuggestion("Set ASKDB_DB_PATH or pass --db with the path to the SQLite database")
		}

		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to stat database")
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro&_query_only=true", path))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to connect to database")
	}

	return &SQLiteDatabase{db: db, path: path}, nil
}

// DB exposes the connection pool for statement execution
func (d *SQLiteDatabase) DB() *sql.DB {
	return d.db
}

// Path returns the database file path
func (d *SQLiteDatabase) Path() string {
	return d.path
}

// Catalog lists the user tables (sorted by name) with their columns and
// foreign keys, as reported by sqlite_master and PRAGMA introspection
func (d *SQLiteDatabase) Catalog(ctx context.Context) (*types.Catalog, error) {
	names, err := d.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	catalog := &types.Catalog{}

	for _, name := range names {
		table, err := d.describeTable(ctx, name)
		if err != nil {
			return nil, err
		}

		catalog.Tables = append(catalog.Tables, table)
	}

	return catalog, nil
}

// TableCounts returns the row count of every user table
func (d *SQLiteDatabase) TableCounts(ctx context.Context) ([]TableCount, error) {
	names, err := d.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	counts := make([]TableCount, 0, len(names))

	for _, name := range names {
		var rows int64

		err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(name)).Scan(&rows)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to count rows of %s", name)
		}

		counts = append(counts, TableCount{Table: name, Rows: rows})
	}

	return counts, nil
}

// Close closes the database connection
func (d *SQLiteDatabase) Close() error {
	if d.db != nil {
		return d.db.Close()
	}

	return nil
}

func (d *SQLiteDatabase) tableNames(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to list tables")
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan table name")
		}

		names = append(names, name)
	}

	return names, rows.Err()
}

func (d *SQLiteDatabase) describeTable(ctx context.Context, name string) (types.Table, error) {
	table := types.Table{Name: name}

	rows, err := d.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(name)+")")
	if err != nil {
		return table, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to describe %s", name)
	}
	defer rows.Close()

	position := make(map[string]int)

	for rows.Next() {
		var (
			cid     int
			column  types.Column
			notNull int
			dflt    sql.NullString
			pk      int
		)

		if err := rows.Scan(&cid, &column.Name, &column.Type, &notNull, &dflt, &pk); err != nil {
			return table, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to scan columns of %s", name)
		}

		column.NotNull = notNull != 0
		column.PrimaryKey = pk > 0
		position[strings.ToLower(column.Name)] = cid
		table.Columns = append(table.Columns, column)
	}

	if err := rows.Err(); err != nil {
		return table, err
	}

	fks, err := d.foreignKeys(ctx, name)
	if err != nil {
		return table, err
	}

	// PRAGMA foreign_key_list numbers constraints in reverse declaration order
	sort.SliceStable(fks, func(i, j int) bool {
		return position[strings.ToLower(fks[i].Column)] < position[strings.ToLower(fks[j].Column)]
	})

	table.ForeignKeys = fks

	return table, nil
}

func (d *SQLiteDatabase) foreignKeys(ctx context.Context, name string) ([]types.ForeignKey, error) {
	rows, err := d.db.QueryContext(ctx, "PRAGMA foreign_key_list("+quoteIdent(name)+")")
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to list foreign keys of %s", name)
	}
	defer rows.Close()

	var fks []types.ForeignKey

	for rows.Next() {
		var (
			id, seq                   int
			refTable, from            string
			to                        sql.NullString
			onUpdate, onDelete, match string
		)

		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to scan foreign keys of %s", name)
		}

		fks = append(fks, types.ForeignKey{Column: from, RefTable: refTable, RefColumn: to.String})
	}

	return fks, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
