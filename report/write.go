package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CSVHeader is the column order of samples.csv.
var CSVHeader = []string{"id", "prompt", "response", "producer", "qualityScore", "timestamp"}

// WriteFileAtomic writes through a temp file in the target directory and
// renames it into place, so a failed write never leaves a partial file under
// the final name.
func WriteFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmpFile.Name()

	buffered := bufio.NewWriter(tmpFile)
	if err := write(buffered); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := buffered.Flush(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flushing %s: %w", tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

// WriteJSON writes the structured report.
func WriteJSON(path string, r *Report) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	})
}

// WriteSummary writes the human-readable summary.
func WriteSummary(path string, r *Report) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, Summary(r))
		return err
	})
}

// WriteJSONL writes one JSON object per sample.
func WriteJSONL(path string, samples []SampleRecord) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for i := range samples {
			if err := enc.Encode(&samples[i]); err != nil {
				return fmt.Errorf("encoding sample %s: %w", samples[i].ID, err)
			}
		}
		return nil
	})
}

// WriteCSV writes the flat tabular export. Quotes are doubled by the CSV
// writer; line breaks inside fields are replaced with spaces so every sample
// stays on one row.
func WriteCSV(path string, samples []SampleRecord) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(CSVHeader); err != nil {
			return err
		}
		for _, s := range samples {
			row := []string{
				flatten(s.ID),
				flatten(s.Prompt),
				flatten(s.Response),
				flatten(s.Producer),
				strconv.FormatFloat(s.QualityScore, 'f', -1, 64),
				s.Timestamp.UTC().Format(time.RFC3339),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func flatten(s string) string {
	return lineBreaks.Replace(s)
}
