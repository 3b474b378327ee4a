package mock

import (
	"context"
	"fmt"

	"github.com/adityawarman/citralab/internal/image"
)

// PNG is the smallest valid PNG payload the mock hands back
var PNG = []byte("\x89PNG\r\n\x1a\nmock")

// Processor implements an image processor that returns a fixed buffer
type Processor struct {
}

// Process returns a fixed PNG buffer
func (p *Processor) Process(ctx context.Context, task *image.Task) (processedImage []byte, err error) {
	return PNG, nil
}

// FailingProcessor implements an image processor that always fails
type FailingProcessor struct {
}

// Process returns an error instead of processing an image
func (p *FailingProcessor) Process(ctx context.Context, task *image.Task) (processedImage []byte, err error) {
	return nil, fmt.Errorf("processing error")
}
