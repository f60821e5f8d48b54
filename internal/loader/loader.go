// Package loader decodes images on background goroutines and hands the
// rasters back to the controller loop through a bounded channel.
package loader

import (
	"context"
	"image"
	_ "image/gif" // GIF format support
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/photowidget/internal/domain"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp" // BMP format support
)

const resultsBuffer = 4

// ImagingDecoder decodes through imaging, honoring EXIF orientation
type ImagingDecoder struct{}

// Decode opens path, sniffs its format and decodes the pixels
func (ImagingDecoder) Decode(path string) (image.Image, error) {
	return imaging.Open(path, imaging.AutoOrientation(true))
}

// Loader runs one decode goroutine per submission
type Loader struct {
	logger          *zap.Logger
	decoder         domain.ImageDecoder
	results         chan domain.DecodeResult
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.Mutex
	lastDropWarning time.Time // Rate limiting for discarded-result warnings
}

// NewLoader creates a loader; a nil decoder selects ImagingDecoder
func NewLoader(logger *zap.Logger, decoder domain.ImageDecoder) *Loader {
	if decoder == nil {
		decoder = ImagingDecoder{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		logger:  logger,
		decoder: decoder,
		results: make(chan domain.DecodeResult, resultsBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit starts decoding path in the background and returns immediately.
// Failures are logged and produce no result.
func (l *Loader) Submit(path string, generation uint64) {
	if l.ctx.Err() != nil {
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		start := time.Now()
		img, err := l.decoder.Decode(path)
		if err != nil {
			l.logger.Debug("Skipping undecodable image",
				zap.String("path", path),
				zap.Uint64("generation", generation),
				zap.Error(err))
			return
		}
		if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
			l.logger.Debug("Skipping empty image", zap.String("path", path))
			return
		}

		l.logger.Debug("Image decoded",
			zap.String("path", path),
			zap.Uint64("generation", generation),
			zap.Duration("took", time.Since(start)))

		// Blocks while the controller drains its backlog, but never past Close
		select {
		case l.results <- domain.DecodeResult{Path: path, Generation: generation, Image: img}:
		case <-l.ctx.Done():
			l.logDropWarning(path)
		}
	}()
}

// Results returns the channel decoded images are delivered on
func (l *Loader) Results() <-chan domain.DecodeResult {
	return l.results
}

// Close cancels pending deliveries and waits for in-flight decodes.
// The results channel is never closed, so pollers stay safe.
func (l *Loader) Close() {
	l.cancel()
	l.wg.Wait()
}

// logDropWarning logs a dropped delivery, rate-limited to avoid spam on shutdown
func (l *Loader) logDropWarning(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	const warningInterval = 5 * time.Second
	now := time.Now()
	if now.Sub(l.lastDropWarning) >= warningInterval {
		l.logger.Warn("Loader closed, dropping decoded image", zap.String("path", path))
		l.lastDropWarning = now
	}
}
