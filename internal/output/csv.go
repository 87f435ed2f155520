package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PentesterFlow/LeadCrawler/internal/errors"
)

// bom is the UTF-8 byte order mark written at the start of a new file.
const bom = "\ufeff"

// CSVWriter appends records to a UTF-8 CSV file. The file is reopened in
// append mode for every record so that each row is on disk once
// WriteRecord returns.
type CSVWriter struct {
	path string
	mu   sync.Mutex
}

// NewCSVWriter creates a writer for path.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// EnsureHeader creates the file with a BOM and the header row when it does
// not exist. An existing file is left untouched.
func (w *CSVWriter) EnsureHeader() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := os.Stat(w.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.NewStorageError(w.path, "stat", err)
	}

	if dir := filepath.Dir(w.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewStorageError(w.path, "mkdir", err)
		}
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.NewStorageError(w.path, "create", err)
	}
	defer f.Close()

	if _, err := f.WriteString(bom); err != nil {
		return errors.NewStorageError(w.path, "write_header", err)
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(Columns); err != nil {
		return errors.NewStorageError(w.path, "write_header", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.NewStorageError(w.path, "write_header", err)
	}
	return nil
}

// WriteRecord appends r with every field quoted.
func (w *CSVWriter) WriteRecord(r *Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.NewStorageError(w.path, "open", err)
	}

	if _, err := f.WriteString(quoteAll(r.Fields())); err != nil {
		f.Close()
		return errors.NewStorageError(w.path, "append", err)
	}
	if err := f.Close(); err != nil {
		return errors.NewStorageError(w.path, "close", err)
	}
	return nil
}

// Flush is a no-op; every record is written through.
func (w *CSVWriter) Flush() error { return nil }

// Close is a no-op; no file handle is held between records.
func (w *CSVWriter) Close() error { return nil }

// quoteAll renders one CSV line with every field quoted and embedded quotes
// doubled, terminated by "\n".
func quoteAll(fields []string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	return b.String()
}
