package ocr

import (
	"context"
	"fmt"
)

// Line is one recognized text line in reading order.
type Line struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Runner turns a stored image into an ordered sequence of recognized
// lines. Implementations must preserve reading order; confidence is
// clamped to [0,1].
type Runner interface {
	Run(ctx context.Context, imagePath string) ([]Line, error)
}

type Options struct {
	Backend  string
	Binary   string
	MaxLines int
}

func NewRunner(opts Options) (Runner, error) {
	if opts.MaxLines <= 0 {
		opts.MaxLines = 50
	}
	switch opts.Backend {
	case "tesseract", "":
		return newTesseractRunner(opts.Binary, opts.MaxLines), nil
	default:
		return nil, fmt.Errorf("unsupported OCR backend: %s", opts.Backend)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
