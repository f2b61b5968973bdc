package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"routeplan/internal/logger"
)

// tesseractRunner shells out to the tesseract CLI and aggregates its
// TSV word output back into lines.
type tesseractRunner struct {
	bin      string
	maxLines int
	log      *logger.Logger
}

func newTesseractRunner(bin string, maxLines int) *tesseractRunner {
	if bin == "" {
		bin = "tesseract"
	}
	return &tesseractRunner{bin: bin, maxLines: maxLines, log: logger.New("OCR")}
}

func (r *tesseractRunner) Run(ctx context.Context, imagePath string) ([]Line, error) {
	if _, err := os.Stat(imagePath); err != nil {
		r.log.LogErrorf("image read failed: %s", imagePath)
		return nil, fmt.Errorf("unable to read image %s: %w", imagePath, err)
	}

	cmd := exec.CommandContext(ctx, r.bin, imagePath, "stdout", "--oem", "3", "--psm", "6", "tsv")
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		r.log.LogErrorf("tesseract execution failed: %v (%s)", err, strings.TrimSpace(stderr.String()))
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	lines := aggregateTSV(out.String())
	if len(lines) > r.maxLines {
		lines = lines[:r.maxLines]
	}
	r.log.LogDebugf("tesseract candidates: %d", len(lines))
	return lines, nil
}

type lineKey struct {
	page, block, par, line int
}

// aggregateTSV groups tesseract word rows by (page, block, paragraph,
// line) and averages word confidences, normalized from the 0..100
// scale. Rows with negative confidence are layout markers, not words.
func aggregateTSV(tsv string) []Line {
	rows := strings.Split(tsv, "\n")
	if len(rows) > 0 {
		rows = rows[1:] // header
	}

	type group struct {
		words []string
		confs []float64
	}
	var order []lineKey
	groups := make(map[lineKey]*group)

	for _, row := range rows {
		cols := strings.Split(row, "\t")
		if len(cols) < 12 {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		key := lineKey{atoi(cols[1]), atoi(cols[2]), atoi(cols[3]), atoi(cols[4])}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		g.words = append(g.words, text)
		g.confs = append(g.confs, conf)
	}

	lines := make([]Line, 0, len(order))
	for _, key := range order {
		g := groups[key]
		if len(g.words) == 0 {
			continue
		}
		sum := 0.0
		for _, c := range g.confs {
			sum += c
		}
		avg := sum / float64(len(g.confs)) / 100.0
		lines = append(lines, Line{Text: strings.Join(g.words, " "), Confidence: clamp01(avg)})
	}
	return lines
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
