package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pocketbroker/internal/logging"
)

const clickHouseVersionTable = "schema_migrations"

// RunClickHouseMigrations applies the .sql files in migrationsPath that are
// not yet recorded in the schema_migrations table, in file name order.
// It returns the number of files applied.
func RunClickHouseMigrations(ctx context.Context, db *ClickHouseDB, migrationsPath string) (int, error) {
	logger := logging.GetGlobalLogger().WithComponent("clickhouse_migrate")

	names, err := migrationFiles(migrationsPath)
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		logger.Warn("No migration files found")
		return 0, nil
	}

	err = db.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+clickHouseVersionTable+` (
		name String,
		applied_at DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree ORDER BY name`)
	if err != nil {
		return 0, fmt.Errorf("failed to create version table: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, name := range names {
		if applied[name] {
			logger.Debugf("Skipping applied migration %s", name)
			continue
		}

		content, err := os.ReadFile(filepath.Join(migrationsPath, name)) // #nosec G304 - name comes from ReadDir of migrationsPath
		if err != nil {
			return count, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		for i, stmt := range splitSQLStatements(string(content)) {
			if err := db.Exec(ctx, stmt); err != nil {
				logger.WithError(err).WithField("file", name).Error("Migration statement failed")
				return count, fmt.Errorf("statement %d in %s: %w", i+1, name, err)
			}
		}

		if err := db.Exec(ctx, `INSERT INTO `+clickHouseVersionTable+` (name) VALUES (?)`, name); err != nil {
			return count, fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		logger.Infof("Applied migration: %s", name)
		count++
	}

	return count, nil
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func appliedMigrations(ctx context.Context, db *ClickHouseDB) (map[string]bool, error) {
	rows, err := db.Conn().Query(ctx, `SELECT name FROM `+clickHouseVersionTable+` FINAL`)
	if err != nil {
		return nil, fmt.Errorf("failed to read version table: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan version row: %w", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// splitSQLStatements breaks a migration file into statements terminated by
// a semicolon at end of line. Comment-only lines are dropped and the
// terminator is stripped.
func splitSQLStatements(content string) []string {
	var (
		statements []string
		current    strings.Builder
	)

	flush := func() {
		stmt := strings.TrimSuffix(strings.TrimSpace(current.String()), ";")
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()

	return statements
}
