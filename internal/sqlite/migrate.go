package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/turnabout/internal/errors"
	"github.com/myrjola/turnabout/internal/random"
)

// migrate ensures that the db schema matches the target schema defined in schemaDefinition.
//
// We employ a very simple declarative schema migration that:
//
// 1. Deletes deleted tables,
// 2. Creates new tables,
// 3. Migrates changed tables using 12-step schema migration https://www.sqlite.org/lang_altertable.html#otheralter,
// 4. Recreates indexes, triggers and views whose definition differs from the target.
//
// Inspired by https://david.rothlis.net/declarative-schema-migration-for-sqlite/
func (db *Database) migrate(ctx context.Context, schemaDefinition string) (err error) {
	// Create schema against a temporary database so that we know what has changed.
	var (
		randomID     string
		dbNameLength uint = 20
	)
	if randomID, err = random.Letters(dbNameLength); err != nil {
		return errors.Wrap(err, "generate random ID")
	}
	schemaTargetDataSourceName := fmt.Sprintf("file:%s?mode=memory&cache=shared", randomID)
	schemaTargetDatabase, err := sqlx.Open("sqlite3", schemaTargetDataSourceName)
	if err != nil {
		return errors.Wrap(err, "open schema target database")
	}
	defer func() {
		err = errors.Join(err, errors.Wrap(schemaTargetDatabase.Close(), "close schema target database"))
	}()
	if _, err = schemaTargetDatabase.ExecContext(ctx, schemaDefinition); err != nil {
		return errors.Wrap(err, "migrate schema target database")
	}

	// ATTACH fails and the foreign key pragma is a no-op inside a transaction, so both run on a
	// dedicated connection around it.
	conn, err := db.ReadWrite.Connx(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire connection")
	}
	defer func() {
		err = errors.Join(err, errors.Wrap(conn.Close(), "release connection"))
	}()

	// Step 1: Disable foreign key validation temporarily.
	if _, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disable foreign key validation")
	}
	// Step 12: Re-enable foreign key validation.
	defer func() {
		_, enableErr := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON")
		err = errors.Join(err, errors.Wrap(enableErr, "re-enable foreign key validation"))
	}()

	if _, err = conn.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", schemaTargetDataSourceName); err != nil {
		return errors.Wrap(err, "attach schema target database")
	}
	defer func() {
		_, detachErr := conn.ExecContext(ctx, "DETACH DATABASE schemaTarget")
		err = errors.Join(err, errors.Wrap(detachErr, "detach schema target database"))
	}()

	// Step 2: Start transaction.
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction", errors.SlogError(rollbackErr))
		}
	}()

	// Step 3-7 migrate tables.
	if err = db.migrateTables(ctx, tx); err != nil {
		return errors.Wrap(err, "migrate tables")
	}

	// Step 8: Recreate indexes and triggers associated with table if needed.
	// Step 9: Recreate views associated with table.
	if err = db.migrateSchemaObjects(ctx, tx); err != nil {
		return errors.Wrap(err, "migrate indexes, triggers and views")
	}

	// Step 10: Check foreign key constraints.
	var violations []string
	if violations, err = db.queryStringSlice(ctx, tx, "SELECT \"table\" FROM pragma_foreign_key_check"); err != nil {
		return errors.Wrap(err, "foreign key check")
	}
	if len(violations) > 0 {
		return errors.New("foreign key violations", slog.Any("tables", violations))
	}

	// Step 11: Commit transaction from step 2.
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// migrateTables ensures table schema is synchronized between databases.
func (db *Database) migrateTables(ctx context.Context, tx *sqlx.Tx) error {
	// Step 3: Remember schema (also includes trivial creation and deletion of tables).
	var err error

	var deletedTables []string
	if deletedTables, err = db.queryStringSlice(ctx, tx, `SELECT current.name
FROM sqlite_schema AS current
LEFT JOIN schemaTarget.sqlite_schema AS target ON current.name=target.name AND current.type=target.type
WHERE current.type = 'table' AND target.type IS NULL AND current.name NOT LIKE 'sqlite_%';`); err != nil {
		return errors.Wrap(err, "query deleted tables")
	}
	for _, table := range deletedTables {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", slog.String("table", table))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %q;", table)); err != nil {
			return errors.Wrap(err, "drop table", slog.String("table", table))
		}
	}

	var newTableSQLs []string
	if newTableSQLs, err = db.queryStringSlice(ctx, tx, `SELECT target.sql
FROM schemaTarget.sqlite_schema AS target
LEFT JOIN sqlite_schema AS current ON current.name=target.name AND current.type=target.type
WHERE target.type = 'table' AND current.type IS NULL AND target.name NOT LIKE 'sqlite_%';`); err != nil {
		return errors.Wrap(err, "query new table SQLs")
	}
	for _, newTableSQL := range newTableSQLs {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("query", newTableSQL))
		if _, err = tx.ExecContext(ctx, newTableSQL); err != nil {
			return errors.Wrap(err, "create table")
		}
	}

	// Identify tables with changed schema and continue the 12-step schema migration with them.
	var changedTables []changedTable
	if err = tx.SelectContext(ctx, &changedTables, `SELECT current.name AS name, current.sql AS current_sql, target.sql AS new_sql
FROM sqlite_schema AS current
JOIN schemaTarget.sqlite_schema AS target ON current.name=target.name AND current.type=target.type
WHERE current.type = 'table' AND current.name NOT LIKE 'sqlite_%' AND current.sql <> target.sql;`); err != nil {
		return errors.Wrap(err, "query changed tables")
	}

	for _, table := range changedTables {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "migrating table",
			slog.String("table", table.Name),
			slog.String("current_sql", table.CurrentSQL),
			slog.String("new_sql", table.NewSQL))

		// Step 4: Create tables according to new schema on temporary names.
		tempName := table.Name + "_migration_temp"
		tempNameSQL := strings.Replace(table.NewSQL, table.Name, tempName, 1)
		if _, err = tx.ExecContext(ctx, tempNameSQL); err != nil {
			return errors.Wrap(err, "create new table to temporary name", slog.String("query", tempNameSQL))
		}

		// Step 5: Copy common columns between tables.
		// We wrap the column names in with double quotes to handle column names that are SQLite keywords.
		var commonColumns []string
		if commonColumns, err = db.queryStringSlice(ctx, tx, `SELECT '"' || target.name || '"'
FROM PRAGMA_TABLE_INFO(:table_name) AS current
JOIN PRAGMA_TABLE_INFO(:table_name, 'schemaTarget') AS target ON target.name = current.name;`,
			sql.Named("table_name", table.Name)); err != nil {
			return errors.Wrap(err, "query common columns")
		}
		common := strings.Join(commonColumns, ", ")
		copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s;", //nolint: gosec // we trust the query.
			tempName, common, common, table.Name)
		db.logger.LogAttrs(ctx, slog.LevelInfo, "copying data", slog.String("query", copySQL))
		if _, err = tx.ExecContext(ctx, copySQL); err != nil {
			return errors.Wrap(err, "copy data")
		}

		// Step 6: Drop the old table.
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %s;", table.Name)); err != nil {
			return errors.Wrap(err, "drop old table")
		}

		// Step 7: Rename new table to old table's name.
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", tempName, table.Name)); err != nil {
			return errors.Wrap(err, "rename new table")
		}
	}
	return nil
}

// migrateSchemaObjects drops indexes, triggers and views that are gone or changed and creates the
// ones missing from the current schema. Objects dropped together with a migrated table are
// recreated here as well.
func (db *Database) migrateSchemaObjects(ctx context.Context, tx *sqlx.Tx) error {
	var stale []schemaObject
	if err := tx.SelectContext(ctx, &stale, `SELECT current.type AS type, current.name AS name
FROM sqlite_schema AS current
LEFT JOIN schemaTarget.sqlite_schema AS target ON current.name=target.name AND current.type=target.type
WHERE current.type IN ('index', 'trigger', 'view') AND current.sql IS NOT NULL
  AND (target.sql IS NULL OR current.sql <> target.sql);`); err != nil {
		return errors.Wrap(err, "query stale objects")
	}
	for _, object := range stale {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping schema object",
			slog.String("type", object.Type), slog.String("name", object.Name))
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP %s %q;", strings.ToUpper(object.Type), object.Name)); err != nil {
			return errors.Wrap(err, "drop schema object", slog.String("name", object.Name))
		}
	}

	missing, err := db.queryStringSlice(ctx, tx, `SELECT target.sql
FROM schemaTarget.sqlite_schema AS target
LEFT JOIN sqlite_schema AS current ON current.name=target.name AND current.type=target.type
WHERE target.type IN ('index', 'trigger', 'view') AND target.sql IS NOT NULL AND current.type IS NULL;`)
	if err != nil {
		return errors.Wrap(err, "query missing objects")
	}
	for _, query := range missing {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating schema object", slog.String("query", query))
		if _, err = tx.ExecContext(ctx, query); err != nil {
			return errors.Wrap(err, "create schema object", slog.String("query", query))
		}
	}
	return nil
}

type changedTable struct {
	Name       string `db:"name"`
	CurrentSQL string `db:"current_sql"`
	NewSQL     string `db:"new_sql"`
}

type schemaObject struct {
	Type string `db:"type"`
	Name string `db:"name"`
}

// queryStringSlice returns a single column of a query.
func (db *Database) queryStringSlice(ctx context.Context, tx *sqlx.Tx, query string, args ...any) ([]string, error) {
	var results []string
	if err := tx.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, errors.Wrap(err, "query string slice", slog.String("query", query))
	}
	return results, nil
}
