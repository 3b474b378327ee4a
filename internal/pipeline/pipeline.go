// Package pipeline orchestrates a single image conversion: persist the
// upload, process it, persist the result, record it in the history.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/adityawarman/citralab/internal/filename"
	"github.com/adityawarman/citralab/internal/history"
	"github.com/adityawarman/citralab/internal/image"
	"github.com/adityawarman/citralab/internal/logger"
	"github.com/adityawarman/citralab/internal/storage"
	"github.com/adityawarman/citralab/internal/tracing"
)

// Storage key prefixes for the two artifact areas
const (
	uploadsPrefix   = "uploads/"
	processedPrefix = "processed/"
)

// Validation errors, surfaced to the caller as user-visible messages
var (
	ErrMissingIdentity   = errors.New("a name is required")
	ErrMissingFile       = errors.New("an image file is required")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// ProcessingError wraps a failure from the image processor. The persisted
// upload is kept when this is returned.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing failed: %s", e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Result describes a completed conversion
type Result struct {
	ID           int64
	Name         string
	Method       string
	OriginalPath string
	ResultPath   string
}

// Pipeline runs conversions and owns the coordination between the
// artifact storage and the history store
type Pipeline struct {
	Storage   storage.Provider
	Processor image.Processor
	History   history.Provider
	Tracer    *tracing.Tracer
	Log       *logger.Logger

	// RemoveFiles makes history deletion also delete the backing files.
	// File cleanup is best effort; a missing or unremovable file never
	// blocks removal of the record.
	RemoveFiles bool
}

// Run performs a single conversion for the given owner name.
//
// The upload is written to storage before processing starts, and is kept
// even when processing fails, so a half-finished conversion always leaves
// the original recoverable.
func (p *Pipeline) Run(ctx context.Context, name, rawMethod, originalFilename string, body io.Reader) (*Result, error) {
	ctx, span := p.Tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	if name == "" {
		return nil, ErrMissingIdentity
	}

	if body == nil || originalFilename == "" {
		return nil, ErrMissingFile
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("error reading upload: %w", err)
	}

	if len(data) == 0 {
		return nil, ErrMissingFile
	}

	if !filename.IsAllowed(originalFilename) {
		return nil, ErrUnsupportedFormat
	}

	safe := filename.Sanitize(originalFilename)
	storedName := filename.UniqueName(filename.Stem(safe), filename.Extension(safe))
	uploadKey := uploadsPrefix + storedName

	if err := p.Storage.Put(ctx, uploadKey, data); err != nil {
		return nil, fmt.Errorf("error storing upload: %w", err)
	}

	method := image.ParseMethod(rawMethod)
	processed, err := p.Processor.Process(ctx, image.NewTask(uploadKey, method))
	if err != nil {
		// The stored upload stays behind for manual reprocessing
		return nil, &ProcessingError{Err: err}
	}

	resultName := filename.UniqueName(fmt.Sprintf("%s_%s", filename.Stem(storedName), method), "png")
	resultKey := processedPrefix + resultName

	if err := p.Storage.Put(ctx, resultKey, processed); err != nil {
		return nil, fmt.Errorf("error storing result: %w", err)
	}

	record := &history.Record{
		Name:         name,
		OriginalPath: uploadKey,
		ResultPath:   resultKey,
		Method:       rawMethod,
	}

	id, err := p.History.Insert(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("error recording conversion: %w", err)
	}

	return &Result{
		ID:           id,
		Name:         name,
		Method:       rawMethod,
		OriginalPath: uploadKey,
		ResultPath:   resultKey,
	}, nil
}

// DeleteAll removes every history record for name, optionally deleting the
// backing files first, and returns how many records were removed
func (p *Pipeline) DeleteAll(ctx context.Context, name string) (int64, error) {
	ctx, span := p.Tracer.Start(ctx, "pipeline.DeleteAll")
	defer span.End()

	if p.RemoveFiles {
		records, err := p.History.ListByName(ctx, name)
		if err != nil {
			return 0, fmt.Errorf("error listing records: %w", err)
		}

		for _, record := range records {
			p.removeFiles(ctx, &record)
		}
	}

	count, err := p.History.DeleteByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("error deleting records: %w", err)
	}

	return count, nil
}

// DeleteItem removes a single record, but only when it is owned by name.
// It reports whether a deletion happened.
func (p *Pipeline) DeleteItem(ctx context.Context, id int64, name string) (bool, error) {
	ctx, span := p.Tracer.Start(ctx, "pipeline.DeleteItem")
	defer span.End()

	record, err := p.History.Get(ctx, id)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("error getting record: %w", err)
	}

	if record.Name != name {
		return false, nil
	}

	if p.RemoveFiles {
		p.removeFiles(ctx, record)
	}

	deleted, err := p.History.DeleteByID(ctx, id, name)
	if err != nil {
		return false, fmt.Errorf("error deleting record: %w", err)
	}

	return deleted, nil
}

// removeFiles deletes a record's artifacts, logging failures and carrying on
func (p *Pipeline) removeFiles(ctx context.Context, record *history.Record) {
	for _, key := range []string{record.OriginalPath, record.ResultPath} {
		if err := p.Storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			p.Log.Warnw("error removing file for deleted record",
				"record-id", record.ID,
				"key", key,
				"error", err,
			)
		}
	}
}
