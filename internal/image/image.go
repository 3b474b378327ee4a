// Package image defines the processing operations the service offers and
// the interface to the library that performs them.
package image

import (
	"context"
	"errors"
)

// ErrDecode is returned when the source bytes cannot be decoded as an image
var ErrDecode = errors.New("unable to decode image")

// Method is an image processing operation
type Method int

const (
	// Passthrough returns the source image unchanged
	Passthrough Method = iota
	// Grayscale converts the image to single-channel luminance
	Grayscale
	// Invert converts to grayscale and complements each pixel value
	Invert
	// Otsu converts to grayscale and applies an automatic binary threshold
	Otsu
	// Edge converts to grayscale and detects edges
	Edge
)

// ParseMethod maps a method name to a Method. Anything unrecognized,
// including the empty string, maps to Passthrough rather than an error.
func ParseMethod(name string) Method {
	switch name {
	case "grayscale":
		return Grayscale
	case "invert":
		return Invert
	case "otsu":
		return Otsu
	case "edge":
		return Edge
	default:
		return Passthrough
	}
}

// String returns the canonical name of the method
func (m Method) String() string {
	switch m {
	case Grayscale:
		return "grayscale"
	case Invert:
		return "invert"
	case Otsu:
		return "otsu"
	case Edge:
		return "edge"
	default:
		return "passthrough"
	}
}

// Task is an image processing task. SourceKey is the storage key of the
// persisted upload; processors read the source through the cache, never
// from transient request state.
type Task struct {
	SourceKey string
	Method    Method
}

// NewTask creates a new image processing task
func NewTask(sourceKey string, method Method) *Task {
	return &Task{
		SourceKey: sourceKey,
		Method:    method,
	}
}

// Processor is an image processor. Process returns the result of applying
// the task's method to its source, encoded as PNG. It does not write the
// result anywhere; persistence is the caller's concern.
type Processor interface {
	Process(ctx context.Context, task *Task) (processedImage []byte, err error)
}
