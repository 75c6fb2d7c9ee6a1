package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ReadReport decodes a report.json. Unknown fields, missing required fields
// and trailing data fail with ErrSchemaMismatch.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var r Report
	if err := decodeStrict(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaMismatch, path, err)
	}
	if err := validate.Struct(&r); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaMismatch, path, err)
	}
	return &r, nil
}

// ReadSamples decodes a samples.jsonl, one validated record per non-empty line.
func ReadSamples(path string) ([]SampleRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var samples []SampleRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var s SampleRecord
		if err := decodeStrict(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrSchemaMismatch, path, line, err)
		}
		if err := validate.Struct(&s); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrSchemaMismatch, path, line, err)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return samples, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected trailing data")
	}
	return nil
}
