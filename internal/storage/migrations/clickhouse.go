package migrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	chstore "bar-backtest-lab/internal/storage/clickhouse"
)

const clickhouseVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	name       String,
	applied_at DateTime64(3, 'UTC') DEFAULT now64(3)
) ENGINE = ReplacingMergeTree
ORDER BY name`

// RunClickhouseMigrations creates the DSN database if needed, applies pending
// embedded files and returns a connection to that database.
func RunClickhouseMigrations(ctx context.Context, dsn string, logger *zap.Logger) (*chstore.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	all, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, fmt.Errorf("load clickhouse migrations: %w", err)
	}
	for _, m := range all {
		if err := validateNoSemicolonInStrings(m.sql); err != nil {
			return nil, fmt.Errorf("migration %s: %w", m.name, err)
		}
	}

	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := createDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", dbName, err)
	}

	todo, err := pendingClickhouse(ctx, conn, all)
	if err != nil {
		conn.Close()
		return nil, err
	}

	for _, m := range todo {
		stmts := splitStatements(m.sql)
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply migration %s: %w", m.name, err)
			}
		}
		if err := conn.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES (?)`, m.name); err != nil {
			conn.Close()
			return nil, fmt.Errorf("record migration %s: %w", m.name, err)
		}
		logger.Debug("applied clickhouse migration", zap.String("file", m.name), zap.Int("statements", len(stmts)))
	}

	logger.Info("clickhouse schema up to date",
		zap.String("database", dbName), zap.Int("applied", len(todo)), zap.Int("total", len(all)))
	return conn, nil
}

func createDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+dbName); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

func pendingClickhouse(ctx context.Context, conn *chstore.Conn, all []migration) ([]migration, error) {
	if err := conn.Exec(ctx, clickhouseVersionTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var names []string
	if err := conn.Select(ctx, &names, `SELECT DISTINCT name FROM schema_migrations`); err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	applied := make(map[string]bool, len(names))
	for _, n := range names {
		applied[n] = true
	}
	return pending(all, applied), nil
}

// splitStatements splits on semicolons after dropping -- comment lines.
// Quoted semicolons are rejected up front by validateNoSemicolonInStrings.
func splitStatements(input string) []string {
	var kept []string
	for _, line := range strings.Split(input, "\n") {
		if t := strings.TrimSpace(line); t != "" && !strings.HasPrefix(t, "--") {
			kept = append(kept, line)
		}
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

var errQuotedSemicolon = errors.New("semicolon inside string literal breaks statement splitting")

func validateNoSemicolonInStrings(sql string) error {
	quoted := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if quoted && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			quoted = !quoted
		case ';':
			if quoted {
				return errQuotedSemicolon
			}
		}
	}
	return nil
}

func databaseFromDSN(dsn string) (string, error) {
	opts, err := chstore.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	if opts.Auth.Database == "" {
		return "", errors.New("clickhouse dsn missing database")
	}
	return opts.Auth.Database, nil
}
