package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BatchRunner processes a fixed set of files with a bounded worker pool.
type BatchRunner[T any] struct {
	processor FileProcessor[T]
	config    BatchConfig
	observer  Observer
}

// NewBatchRunner creates a new batch runner. observer may be nil.
func NewBatchRunner[T any](processor FileProcessor[T], config BatchConfig, observer Observer) *BatchRunner[T] {
	return &BatchRunner[T]{
		processor: processor,
		config:    config,
		observer:  observer,
	}
}

type job struct {
	index int
	file  string
}

// Run processes files concurrently. A failing file never stops its siblings;
// when no file succeeds the returned error wraps ErrNoFilesProcessed and every
// file error.
func (b *BatchRunner[T]) Run(ctx context.Context, files []string) (*BatchResult[T], error) {
	name := b.processor.Name()
	start := time.Now()
	log.Info().Str("pipeline", name).Int("files", len(files)).Msg("starting batch processing")

	result := &BatchResult[T]{Results: make([]FileResult[T], len(files))}
	for i, f := range files {
		result.Results[i].File = f
		b.notify(ctx, f, FileStatusQueued, nil)
	}
	if len(files) == 0 {
		return result, ErrNoFilesProcessed
	}

	workerCount := b.config.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(files) {
		workerCount = len(files)
	}

	jobChan := make(chan job, len(files))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobChan {
				res := b.processFile(ctx, j.file)
				if res.Err != nil {
					log.Error().Str("pipeline", name).Int("worker", workerID).Str("file", j.file).Err(res.Err).Msg("failed to process file")
				}
				result.Results[j.index] = res
			}
		}(i)
	}

	// Enqueue jobs
	enqueued := 0
	for i, f := range files {
		if ctx.Err() != nil {
			break
		}
		jobChan <- job{index: i, file: f}
		enqueued++
	}
	close(jobChan)

	// Wait for all workers
	wg.Wait()

	for i := enqueued; i < len(files); i++ {
		result.Results[i].Err = fmt.Errorf("not processed: %w", ctx.Err())
		b.notify(ctx, files[i], FileStatusFailed, result.Results[i].Err)
	}

	metrics := BatchMetrics{Elapsed: time.Since(start)}
	var errs []error
	for _, fe := range result.Errors() {
		errs = append(errs, fe)
	}
	metrics.ErrorCount = len(errs)
	metrics.FilesProcessed = len(files) - len(errs)

	log.Info().
		Str("pipeline", name).
		Int("processed", metrics.FilesProcessed).
		Int("failed", metrics.ErrorCount).
		Dur("elapsed", metrics.Elapsed).
		Msg("batch processing completed")

	if metrics.FilesProcessed == 0 {
		return result, fmt.Errorf("%w: %w", ErrNoFilesProcessed, errors.Join(errs...))
	}
	return result, nil
}

// processFile processes a single file
func (b *BatchRunner[T]) processFile(ctx context.Context, file string) FileResult[T] {
	startTime := time.Now()
	res := FileResult[T]{File: file}

	b.notify(ctx, file, FileStatusProcessing, nil)
	log.Debug().Str("pipeline", b.processor.Name()).Str("file", filepath.Base(file)).Msg("processing file")

	if err := b.processor.Validate(file); err != nil {
		res.Err = fmt.Errorf("validation failed: %w", err)
	} else {
		res.Value, res.Err = b.processor.Process(ctx, file)
	}
	res.Duration = time.Since(startTime)

	if res.Err != nil {
		b.notify(ctx, file, FileStatusFailed, res.Err)
		return res
	}

	b.notify(ctx, file, FileStatusCompleted, nil)
	log.Debug().Str("pipeline", b.processor.Name()).Str("file", filepath.Base(file)).Dur("duration", res.Duration).Msg("completed file")
	return res
}

func (b *BatchRunner[T]) notify(ctx context.Context, file string, status FileJobStatus, err error) {
	if b.observer == nil {
		return
	}
	b.observer.FileStatusChanged(ctx, file, status, err)
}
