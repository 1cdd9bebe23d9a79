package preprocess

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/logging"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
)

// Preprocessor turns raw corpus records into cleaned, titled context units
type Preprocessor struct {
	log *slog.Logger
}

// New creates a new Preprocessor
func New(log *slog.Logger) *Preprocessor {
	return &Preprocessor{log: logging.OrDiscard(log)}
}

// Process converts records into context units. Rejected records are logged
// and skipped; output order follows input order and duplicates are kept.
func (p *Preprocessor) Process(records []model.RawRecord) []model.ContextUnit {
	units := make([]model.ContextUnit, 0, len(records))

	for _, rec := range records {
		unit, err := p.processRecord(rec)
		if err != nil {
			p.log.Warn("skipping record", "url", rec.URL, "err", err)
			continue
		}
		units = append(units, unit)
	}

	return units
}

func (p *Preprocessor) processRecord(rec model.RawRecord) (model.ContextUnit, error) {
	if rec.URL == "" || rec.Content == "" {
		return model.ContextUnit{}, &model.PreprocessError{URL: rec.URL, Reason: model.ErrMissingField}
	}

	cleaned := Clean(rec.Content)
	if cleaned == "" {
		return model.ContextUnit{}, &model.PreprocessError{URL: rec.URL, Reason: model.ErrEmptyContent}
	}

	title := Title(rec.URL)
	return model.ContextUnit{
		SectionName: title,
		SourceURL:   rec.URL,
		Content:     fmt.Sprintf("<%s>\n%s", title, cleaned),
	}, nil
}

// ProcessFile reads a corpus file and processes its records
func (p *Preprocessor) ProcessFile(path string) ([]model.ContextUnit, error) {
	p.log.Info("processing corpus file", "path", path)

	records, err := p.ReadFile(path)
	if err != nil {
		return nil, err
	}

	units := p.Process(records)
	p.log.Info("processed corpus", "records", len(records), "units", len(units))
	return units, nil
}

// ReadFile loads a corpus file. Unreadable or non-JSON files are an error;
// individual malformed records are logged and skipped.
func (p *Preprocessor) ReadFile(path string) ([]model.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	records, rejected, err := ParseCorpus(data)
	if err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}
	for _, rej := range rejected {
		p.log.Warn("skipping malformed corpus record", "err", rej)
	}

	return records, nil
}

// ParseCorpus decodes a JSON array of {url, content} objects, or a single
// such object. Elements without both string fields are returned as rejects.
func ParseCorpus(data []byte) ([]model.RawRecord, []*model.PreprocessError, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil, errors.New("empty corpus")
	}

	var elements []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &elements); err != nil {
			return nil, nil, err
		}
	case '{':
		elements = []json.RawMessage{data}
	default:
		return nil, nil, errors.New("corpus must be a JSON array or object")
	}

	var (
		records  []model.RawRecord
		rejected []*model.PreprocessError
	)
	for i, raw := range elements {
		rec, err := decodeRecord(raw)
		if err != nil {
			rejected = append(rejected, &model.PreprocessError{
				URL:    rec.URL,
				Reason: fmt.Errorf("record %d: %w", i, err),
			})
			continue
		}
		records = append(records, rec)
	}

	return records, rejected, nil
}

func decodeRecord(raw json.RawMessage) (model.RawRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return model.RawRecord{}, fmt.Errorf("not an object: %w", err)
	}

	var rec model.RawRecord
	urlRaw, hasURL := fields["url"]
	contentRaw, hasContent := fields["content"]
	if !hasURL || !hasContent {
		if hasURL {
			_ = json.Unmarshal(urlRaw, &rec.URL)
		}
		return rec, model.ErrMissingField
	}

	if err := json.Unmarshal(urlRaw, &rec.URL); err != nil {
		return rec, fmt.Errorf("url is not a string: %w", err)
	}
	if err := json.Unmarshal(contentRaw, &rec.Content); err != nil {
		return rec, fmt.Errorf("content is not a string: %w", err)
	}

	return rec, nil
}
