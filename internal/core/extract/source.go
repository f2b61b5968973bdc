package extract

import (
	"context"

	"routeplan/internal/core/ocr"
)

// Source produces the text candidates for an image. The OCR pipeline
// and the VLM strategy are interchangeable behind this interface,
// chosen once at construction from configuration.
type Source interface {
	Lines(ctx context.Context, imagePath string) ([]ocr.Line, error)
}

type ocrSource struct{ runner ocr.Runner }

// NewOCRSource adapts an OCR runner into a candidate source.
func NewOCRSource(runner ocr.Runner) Source { return &ocrSource{runner: runner} }

func (s *ocrSource) Lines(ctx context.Context, imagePath string) ([]ocr.Line, error) {
	return s.runner.Run(ctx, imagePath)
}
