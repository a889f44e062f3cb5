package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/tensorlakeai/mother-duck/constants"
	"github.com/tensorlakeai/mother-duck/internal/common"
	"github.com/tensorlakeai/mother-duck/internal/entity"
)

var filingColumns = []string{
	"filing_id",
	"source_file",
	"company_name",
	"ticker",
	"filing_type",
	"filing_date",
	"fiscal_year",
	"fiscal_quarter",
	"ai_risk_mentioned",
	"ai_risk_mentions",
	"num_ai_risk_mentions",
	"ai_strategy_mentioned",
	"ai_investment_mentioned",
	"ai_competition_mentioned",
	"regulatory_ai_risk",
	"ingested_at",
}

var mentionColumns = []string{
	"filing_id",
	"company_name",
	"ticker",
	"fiscal_year",
	"fiscal_quarter",
	"source_file",
	"risk_category",
	"risk_description",
	"severity_indicator",
	"citation",
}

type FilingRepository interface {
	// Insert appends one filing row and one mention row per risk mention.
	Insert(ctx context.Context, rec entity.FilingRecord, sourceURL string) (*entity.StoredFiling, error)
	// ListBySourceFile reads filings back, decoding the embedded mention list.
	ListBySourceFile(ctx context.Context, sourceFile string) ([]*entity.StoredFiling, error)
}

type filingRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewFilingRepository(db *DB, log *slog.Logger) FilingRepository {
	if log == nil {
		log = slog.Default()
	}
	return &filingRepo{db: db, log: log, now: time.Now}
}

func (r *filingRepo) Insert(ctx context.Context, rec entity.FilingRecord, sourceURL string) (*entity.StoredFiling, error) {
	log := r.log.With(common.LogAttrs(ctx)...)
	if err := common.ValidateFilingRecord(rec); err != nil {
		log.Error("filing rejected", "source", sourceURL, "error", err)
		return nil, err
	}
	rec = normalize(log, rec, sourceURL)

	mentionsJSON, err := json.Marshal(rec.AIRiskMentions)
	if err != nil {
		return nil, fmt.Errorf("%w: encode mentions: %v", common.ErrMalformedRecord, err)
	}

	stored := &entity.StoredFiling{
		ID:         uuid.New(),
		SourceFile: entity.SourceFileFromURL(sourceURL),
		IngestedAt: r.now().UTC(),
		Record:     rec,
	}

	builder := entsql.Dialect(r.db.Dialect)
	filingSQL, filingArgs := builder.Insert(FilingsTable).
		Columns(filingColumns...).
		Values(
			stored.ID.String(),
			stored.SourceFile,
			rec.CompanyName,
			rec.Ticker,
			rec.FilingType,
			rec.FilingDate,
			rec.FiscalYear,
			nullable(rec.FiscalQuarter),
			rec.AIRiskMentioned,
			string(mentionsJSON),
			rec.NumAIRiskMentions,
			rec.AIStrategyMentioned,
			rec.AIInvestmentMentioned,
			rec.AICompetitionMentioned,
			rec.RegulatoryAIRisk,
			stored.IngestedAt,
		).
		Query()

	err = r.db.WithConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: begin: %v", common.ErrDatabase, err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, filingSQL, filingArgs...); err != nil {
			return fmt.Errorf("%w: insert filing: %v", common.ErrDatabase, err)
		}

		if len(rec.AIRiskMentions) > 0 {
			ins := builder.Insert(MentionsTable).Columns(mentionColumns...)
			for _, m := range rec.AIRiskMentions {
				ins.Values(
					stored.ID.String(),
					rec.CompanyName,
					rec.Ticker,
					rec.FiscalYear,
					nullable(rec.FiscalQuarter),
					stored.SourceFile,
					m.RiskCategory,
					m.RiskDescription,
					nullable(m.SeverityIndicator),
					m.Citation,
				)
			}
			mentionSQL, mentionArgs := ins.Query()
			if _, err := tx.ExecContext(ctx, mentionSQL, mentionArgs...); err != nil {
				return fmt.Errorf("%w: insert mentions: %v", common.ErrDatabase, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: commit: %v", common.ErrDatabase, err)
		}
		return nil
	})
	if err != nil {
		log.Error("filing insert failed", "source_file", stored.SourceFile, "company", rec.CompanyName, "error", err)
		return nil, err
	}

	log.Info("filing inserted",
		"filing_id", stored.ID,
		"source_file", stored.SourceFile,
		"company", rec.CompanyName,
		"ticker", rec.Ticker,
		"mentions", len(rec.AIRiskMentions),
	)
	return stored, nil
}

// normalize canonicalizes risk categories and makes the mention count agree
// with the mention list.
func normalize(log *slog.Logger, rec entity.FilingRecord, sourceURL string) entity.FilingRecord {
	mentions := make([]entity.RiskMention, len(rec.AIRiskMentions))
	for i, m := range rec.AIRiskMentions {
		if canon, ok := constants.CanonicalizeRisk(m.RiskCategory); ok {
			m.RiskCategory = string(canon)
		}
		mentions[i] = m
	}
	rec.AIRiskMentions = mentions

	if rec.NumAIRiskMentions != len(mentions) {
		log.Warn("mention count disagrees with mention list; using list length",
			"source", sourceURL,
			"reported", rec.NumAIRiskMentions,
			"actual", len(mentions),
		)
		rec.NumAIRiskMentions = len(mentions)
	}
	return rec
}

func (r *filingRepo) ListBySourceFile(ctx context.Context, sourceFile string) ([]*entity.StoredFiling, error) {
	builder := entsql.Dialect(r.db.Dialect)
	query, args := builder.Select(filingColumns...).
		From(builder.Table(FilingsTable)).
		Where(entsql.EQ("source_file", sourceFile)).
		OrderBy("ingested_at").
		Query()

	var out []*entity.StoredFiling
	err := r.db.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%w: list filings: %v", common.ErrDatabase, err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			f, err := scanFiling(rows)
			if err != nil {
				return err
			}
			out = append(out, f)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: list filings: %v", common.ErrDatabase, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanFiling(rows *sql.Rows) (*entity.StoredFiling, error) {
	var (
		f            entity.StoredFiling
		id           string
		quarter      sql.NullString
		mentionsJSON sql.NullString
		ingestedAt   any
	)
	rec := &f.Record
	if err := rows.Scan(
		&id,
		&f.SourceFile,
		&rec.CompanyName,
		&rec.Ticker,
		&rec.FilingType,
		&rec.FilingDate,
		&rec.FiscalYear,
		&quarter,
		&rec.AIRiskMentioned,
		&mentionsJSON,
		&rec.NumAIRiskMentions,
		&rec.AIStrategyMentioned,
		&rec.AIInvestmentMentioned,
		&rec.AICompetitionMentioned,
		&rec.RegulatoryAIRisk,
		&ingestedAt,
	); err != nil {
		return nil, fmt.Errorf("%w: scan filing: %v", common.ErrDatabase, err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: filing_id %q: %v", common.ErrDatabase, id, err)
	}
	f.ID = parsed
	if quarter.Valid {
		q := quarter.String
		rec.FiscalQuarter = &q
	}
	if mentionsJSON.Valid && mentionsJSON.String != "" {
		if err := json.Unmarshal([]byte(mentionsJSON.String), &rec.AIRiskMentions); err != nil {
			return nil, fmt.Errorf("%w: decode mentions: %v", common.ErrDatabase, err)
		}
	}
	f.IngestedAt = parseTimestamp(ingestedAt)
	return &f, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// parseTimestamp accepts the shapes drivers hand back for TIMESTAMP columns.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		return parseTimestampString(t)
	case []byte:
		return parseTimestampString(string(t))
	}
	return time.Time{}
}

func parseTimestampString(s string) time.Time {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999 -0700 MST",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
