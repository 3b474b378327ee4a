// Package opencv processes images using the OpenCV bindings.
package opencv

import (
	"context"
	"fmt"

	"github.com/adityawarman/citralab/internal/image"
	"github.com/adityawarman/citralab/internal/logger"
	"github.com/adityawarman/citralab/internal/queue"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gocv.io/x/gocv"
)

// Canny hysteresis thresholds for the edge method
const (
	edgeThresholdLow  = 100
	edgeThresholdHigh = 200
)

var processedImages = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "citralab_processed_images_total",
	Help: "Number of processed images by method.",
}, []string{"method"})

// Processor is an image processor that uses OpenCV to process images
type Processor struct {
	queue *queue.Queue
}

// New initializes a new processor instance. Source images are read through
// the given cache; work runs on a queue with the given amount of workers.
func New(ctx context.Context, log *logger.Logger, workers int, cache *image.Cache) (*Processor, error) {
	workerQueue := queue.New(ctx, workers, taskProcessor(cache))
	instance := &Processor{
		queue: workerQueue,
	}

	go workerQueue.Run()
	log.Infof("starting opencv worker queue with %d workers", workers)

	return instance, nil
}

// Process applies the task's method to its source image and returns a
// buffer containing the result encoded as PNG
func (p *Processor) Process(ctx context.Context, task *image.Task) (processedImage []byte, err error) {
	result, err := p.queue.Process(ctx, task)
	if err != nil {
		return nil, err
	}

	buf, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("error getting result")
	}

	processedImages.WithLabelValues(task.Method.String()).Inc()
	return buf, nil
}

func taskProcessor(cache *image.Cache) queue.Handler {
	return func(ctx context.Context, data interface{}) (interface{}, error) {
		task, ok := data.(*image.Task)
		if !ok {
			return nil, fmt.Errorf("invalid data")
		}

		sourceBuffer, err := cache.Get(ctx, task.SourceKey)
		if err != nil {
			return nil, fmt.Errorf("error getting source image: %w", err)
		}

		return apply(sourceBuffer, task.Method)
	}
}

// apply decodes the source, runs the method over it, and encodes the
// result as PNG
func apply(sourceBuffer []byte, method image.Method) ([]byte, error) {
	src, err := gocv.IMDecode(sourceBuffer, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", image.ErrDecode, err)
	}
	defer src.Close()

	if src.Empty() {
		return nil, image.ErrDecode
	}

	out := gocv.NewMat()
	defer out.Close()

	switch method {
	case image.Grayscale:
		gocv.CvtColor(src, &out, gocv.ColorBGRToGray)
	case image.Invert:
		gray := gocv.NewMat()
		defer gray.Close()
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
		gocv.BitwiseNot(gray, &out)
	case image.Otsu:
		gray := gocv.NewMat()
		defer gray.Close()
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
		gocv.Threshold(gray, &out, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	case image.Edge:
		gray := gocv.NewMat()
		defer gray.Close()
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
		gocv.Canny(gray, &out, edgeThresholdLow, edgeThresholdHigh)
	default:
		// Passthrough keeps the source as decoded, channels included
		src.CopyTo(&out)
	}

	buffer, err := gocv.IMEncode(gocv.PNGFileExt, out)
	if err != nil {
		return nil, err
	}
	defer buffer.Close()

	encoded := make([]byte, buffer.Len())
	copy(encoded, buffer.GetBytes())

	return encoded, nil
}
