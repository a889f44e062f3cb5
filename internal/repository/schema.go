package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/tensorlakeai/mother-duck/internal/common"
)

const (
	FilingsTable  = "ai_risk_filings"
	MentionsTable = "ai_risk_mentions"
)

// DDL shared by Postgres-wire endpoints and SQLite. Every statement is
// create-if-absent. Each bounded column has a matching rule in
// common.ValidateFilingRecord; the rest are unbounded.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ai_risk_filings (
		filing_id VARCHAR(36) PRIMARY KEY,
		source_file VARCHAR,
		company_name VARCHAR(100),
		ticker VARCHAR(10),
		filing_type VARCHAR,
		filing_date VARCHAR,
		fiscal_year VARCHAR,
		fiscal_quarter VARCHAR(10),
		ai_risk_mentioned BOOLEAN,
		ai_risk_mentions JSON,
		num_ai_risk_mentions INTEGER,
		ai_strategy_mentioned BOOLEAN,
		ai_investment_mentioned BOOLEAN,
		ai_competition_mentioned BOOLEAN,
		regulatory_ai_risk BOOLEAN,
		ingested_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS ai_risk_mentions (
		filing_id VARCHAR(36),
		company_name VARCHAR(100),
		ticker VARCHAR(10),
		fiscal_year VARCHAR,
		fiscal_quarter VARCHAR(10),
		source_file VARCHAR,
		risk_category VARCHAR(50),
		risk_description TEXT,
		severity_indicator VARCHAR(20),
		citation VARCHAR(100)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ai_risk_filings_company ON ai_risk_filings (company_name, ticker)`,
	`CREATE INDEX IF NOT EXISTS idx_ai_risk_mentions_company ON ai_risk_mentions (company_name, risk_category)`,
}

// EnsureTables creates the filings and mentions tables if they are missing.
// It never drops or alters existing tables and is safe to call repeatedly.
func EnsureTables(ctx context.Context, db *DB, logger *slog.Logger) error {
	return db.WithConn(ctx, func(conn *sql.Conn) error {
		for _, stmt := range schemaStatements {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				logger.Error("ensure tables failed", "error", err)
				return fmt.Errorf("%w: ensure tables: %v", common.ErrDatabase, err)
			}
		}
		logger.Info("tables ready", "filings", FilingsTable, "mentions", MentionsTable)
		return nil
	})
}

// TableCounts returns the number of rows in the filings and mentions tables.
func TableCounts(ctx context.Context, db *DB) (filings, mentions int64, err error) {
	err = db.WithConn(ctx, func(conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+FilingsTable).Scan(&filings); err != nil {
			return fmt.Errorf("%w: count filings: %v", common.ErrDatabase, err)
		}
		if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+MentionsTable).Scan(&mentions); err != nil {
			return fmt.Errorf("%w: count mentions: %v", common.ErrDatabase, err)
		}
		return nil
	})
	return filings, mentions, err
}
