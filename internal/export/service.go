package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/tensorlakeai/mother-duck/internal/queries"
)

// Excel rejects cell text longer than this.
const maxCellChars = 32767

// Service renders canned query results as an XLSX workbook.
type Service struct {
	runner *queries.Runner
	logger *slog.Logger
}

func NewService(runner *queries.Runner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runner: runner, logger: logger}
}

// ExportXLSX runs each named query (all of them when names is empty) and
// returns a workbook with one sheet per query: a header row of column names
// followed by one row per result row.
func (s *Service) ExportXLSX(ctx context.Context, names ...queries.Name) ([]byte, error) {
	start := time.Now()
	if len(names) == 0 {
		names = queries.Names()
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	defaultSheet := f.GetSheetName(0)

	total := 0
	for i, n := range names {
		res, err := s.runner.Run(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", n, err)
		}

		sheet := string(n)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}

		for col, h := range res.Columns {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			_ = f.SetCellValue(sheet, cell, h)
		}
		for r, row := range res.Rows {
			for col, v := range row.Values {
				cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
				_ = f.SetCellValue(sheet, cell, cellValue(v))
			}
		}
		if len(res.Columns) > 0 {
			last, _ := excelize.ColumnNumberToName(len(res.Columns))
			_ = f.SetColWidth(sheet, "A", last, 22)
		}
		total += len(res.Rows)
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"sheets", len(names),
		"rows", total,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func cellValue(v any) any {
	if s, ok := v.(string); ok {
		return truncate(s, maxCellChars)
	}
	return v
}

// truncate limits s to n runes, marking a cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "…"
}
