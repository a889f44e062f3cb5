package docai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tensorlakeai/mother-duck/internal/common"
	"github.com/tensorlakeai/mother-duck/internal/entity"
)

// RecordDecoder turns extraction payloads into validated FilingRecords.
type RecordDecoder struct {
	schemaName string
	schema     *jsonschema.Schema
	logger     *slog.Logger
}

func NewRecordDecoder(schemaName string, schemaMap map[string]any) (*RecordDecoder, error) {
	s, err := CompileSchema(schemaMap)
	if err != nil {
		return nil, err
	}
	return &RecordDecoder{schemaName: schemaName, schema: s, logger: slog.Default()}, nil
}

// WithLogger sets the logger used to report repaired payloads.
func (d *RecordDecoder) WithLogger(logger *slog.Logger) *RecordDecoder {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// Decode returns every record in the result's structured data. Entries for a
// different schema are skipped; an entry's data may be one object or an
// array of objects. Any payload failing the schema fails the whole call with
// ErrMalformedRecord.
func (d *RecordDecoder) Decode(res *ParseResult) ([]entity.FilingRecord, error) {
	if res == nil {
		return nil, nil
	}
	var out []entity.FilingRecord
	for i, sd := range res.StructuredData {
		if sd.SchemaName != "" && d.schemaName != "" && sd.SchemaName != d.schemaName {
			continue
		}
		objs, err := splitObjects(sd.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: structured_data[%d]: %v", common.ErrMalformedRecord, i, err)
		}
		for j, obj := range objs {
			clean, changed, err := sanitizeRecord(obj)
			if err != nil {
				return nil, fmt.Errorf("%w: structured_data[%d][%d]: %v", common.ErrMalformedRecord, i, j, err)
			}
			if len(changed) > 0 {
				d.logger.Warn("docai.extract.sanitized", "schema", d.schemaName, "fields", changed)
			}
			obj = clean
			if err := validateWith(d.schema, obj); err != nil {
				return nil, fmt.Errorf("%w: structured_data[%d][%d]: %v", common.ErrMalformedRecord, i, j, err)
			}
			var rec entity.FilingRecord
			if err := json.Unmarshal(obj, &rec); err != nil {
				return nil, fmt.Errorf("%w: structured_data[%d][%d]: %v", common.ErrMalformedRecord, i, j, err)
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

func splitObjects(data json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch trimmed[0] {
	case '{':
		return []json.RawMessage{trimmed}, nil
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("expected object or array, got %q", truncate(trimmed, 32))
	}
}
