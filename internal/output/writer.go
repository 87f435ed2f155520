// Package output persists harvested listings.
package output

import "fmt"

// Writer persists records in acceptance order.
type Writer interface {
	// EnsureHeader prepares the destination before the first record.
	EnsureHeader() error

	// WriteRecord appends one record.
	WriteRecord(r *Record) error

	// Flush flushes any buffered output.
	Flush() error

	// Close closes the writer.
	Close() error
}

// Config holds output configuration.
type Config struct {
	Format   string `json:"format" yaml:"format"`
	FilePath string `json:"file_path" yaml:"file_path"`
}

// NewWriter creates a writer for config.
func NewWriter(config Config) (Writer, error) {
	switch config.Format {
	case "", "csv":
		return NewCSVWriter(config.FilePath), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", config.Format)
	}
}

// ProgressWriter wraps a writer and reports every committed record.
type ProgressWriter struct {
	Writer
	onRecord func(r *Record)
}

// NewProgressWriter creates a writer that calls onRecord after each
// successful write.
func NewProgressWriter(w Writer, onRecord func(r *Record)) *ProgressWriter {
	return &ProgressWriter{Writer: w, onRecord: onRecord}
}

// WriteRecord writes r and reports it.
func (p *ProgressWriter) WriteRecord(r *Record) error {
	if err := p.Writer.WriteRecord(r); err != nil {
		return err
	}
	if p.onRecord != nil {
		p.onRecord(r)
	}
	return nil
}
