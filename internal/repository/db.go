package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/textbook-vault/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres error codes the store reports specially.
const (
	codeUndefinedTable     = "42P01"
	codeInsufficientPrivil = "42501"
)

// quoteTable sanitizes an optionally schema-qualified table name.
func quoteTable(table string) (string, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return "", fmt.Errorf("table name is required")
	}
	parts := strings.Split(table, ".")
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("invalid table name %q", table)
		}
	}
	return pgx.Identifier(parts).Sanitize(), nil
}

// classify maps well-known postgres failures onto domain errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUndefinedTable:
			return fmt.Errorf("%w: %w", domain.ErrTableNotFound, err)
		case codeInsufficientPrivil:
			return fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err)
		}
	}
	return err
}
