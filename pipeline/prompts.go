package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lexandro/contentsieve/orchestrator"
)

var ErrNoPrompts = errors.New("prompts file holds no prompts")

type promptRecord struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt" validate:"required"`
	Domain string `json:"domain"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadUnits reads work units from path. A .json file holds an array of
// {"id","prompt","domain"} objects and a .jsonl file one object per line;
// anything else is plain text with one prompt per line, where blank lines
// and lines starting with # are ignored. Missing ids become p0001, p0002, ...
// in file order. Duplicate ids are rejected.
func LoadUnits(path string) ([]orchestrator.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompts: %w", err)
	}

	var records []promptRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		records, err = decodeJSONPrompts(data)
	case ".jsonl":
		records, err = decodeJSONLPrompts(data)
	default:
		records, err = decodeTextPrompts(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing prompts %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPrompts, path)
	}

	units := make([]orchestrator.Unit, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			id = fmt.Sprintf("p%04d", i+1)
		}
		if seen[id] {
			return nil, fmt.Errorf("parsing prompts %s: duplicate id %q", path, id)
		}
		seen[id] = true
		units = append(units, orchestrator.Unit{ID: id, Prompt: rec.Prompt, Domain: rec.Domain})
	}
	return units, nil
}

func decodeTextPrompts(data []byte) ([]promptRecord, error) {
	var records []promptRecord
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		records = append(records, promptRecord{Prompt: line})
	}
	return records, scanner.Err()
}

func decodeJSONPrompts(data []byte) ([]promptRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var records []promptRecord
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	for i, rec := range records {
		if err := validate.Struct(rec); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
	}
	return records, nil
}

func decodeJSONLPrompts(data []byte) ([]promptRecord, error) {
	var records []promptRecord
	reader := bufio.NewReader(bytes.NewReader(data))
	lineNo := 0
	for {
		line, err := reader.ReadBytes('\n')
		lineNo++
		if len(bytes.TrimSpace(line)) > 0 {
			var rec promptRecord
			dec := json.NewDecoder(bytes.NewReader(line))
			dec.DisallowUnknownFields()
			if decErr := dec.Decode(&rec); decErr != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, decErr)
			}
			if vErr := validate.Struct(rec); vErr != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, vErr)
			}
			records = append(records, rec)
		}
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
