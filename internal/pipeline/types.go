package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"
)

// ErrNoFilesProcessed is returned when every file of a batch failed.
var ErrNoFilesProcessed = errors.New("no files processed successfully")

// FileProcessor turns one input file into a result of type T.
type FileProcessor[T any] interface {
	// Name returns the unique identifier for this processor
	Name() string

	// Validate checks if the input file is valid for this processor
	Validate(inputFile string) error

	// Process handles a single input file
	Process(ctx context.Context, inputFile string) (T, error)
}

// BatchConfig holds configuration for a batch runner
type BatchConfig struct {
	Name        string
	WorkerCount int // Number of concurrent workers
}

// DefaultBatchConfig returns sensible defaults
func DefaultBatchConfig(name string) BatchConfig {
	return BatchConfig{
		Name:        name,
		WorkerCount: runtime.NumCPU(),
	}
}

// FileJobStatus represents the state of a single file processing job
type FileJobStatus string

const (
	FileStatusQueued     FileJobStatus = "queued"
	FileStatusProcessing FileJobStatus = "processing"
	FileStatusCompleted  FileJobStatus = "completed"
	FileStatusFailed     FileJobStatus = "failed"
)

// Observer is notified of file job transitions. Implementations must be safe
// for concurrent use.
type Observer interface {
	FileStatusChanged(ctx context.Context, file string, status FileJobStatus, err error)
}

// FileError records the failure of one file.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// FileResult is the outcome of one file, kept at its input position.
type FileResult[T any] struct {
	File     string
	Value    T
	Err      error
	Duration time.Duration
}

// OK reports whether the file was processed.
func (r FileResult[T]) OK() bool {
	return r.Err == nil
}

// BatchResult holds the per-file outcomes of a batch in input order.
type BatchResult[T any] struct {
	Results []FileResult[T]
}

// Succeeded returns the successful results in input order.
func (b *BatchResult[T]) Succeeded() []FileResult[T] {
	out := make([]FileResult[T], 0, len(b.Results))
	for _, r := range b.Results {
		if r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Errors returns the per-file errors in input order.
func (b *BatchResult[T]) Errors() []*FileError {
	var out []*FileError
	for _, r := range b.Results {
		if !r.OK() {
			out = append(out, &FileError{File: r.File, Err: r.Err})
		}
	}
	return out
}

// BatchMetrics holds counters of one batch run
type BatchMetrics struct {
	FilesProcessed int
	ErrorCount     int
	Elapsed        time.Duration
}
