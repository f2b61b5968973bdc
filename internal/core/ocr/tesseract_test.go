package ocr

import (
	"math"
	"strconv"
	"strings"
	"testing"
)

// tsvRow builds one tesseract TSV word row. Column order:
// level page block par line word left top width height conf text.
func tsvRow(page, block, par, line int, conf, text string) string {
	cols := []string{
		"5",
		strconv.Itoa(page), strconv.Itoa(block), strconv.Itoa(par), strconv.Itoa(line),
		"1", "0", "0", "10", "10",
		conf, text,
	}
	return strings.Join(cols, "\t")
}

func TestAggregateTSV(t *testing.T) {
	tsv := strings.Join([]string{
		"level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext",
		tsvRow(1, 1, 1, 1, "96", "123"),
		tsvRow(1, 1, 1, 1, "90", "Main"),
		tsvRow(1, 1, 1, 1, "84", "St"),
		tsvRow(1, 1, 1, 2, "80", "Springfield"),
		tsvRow(1, 1, 1, 2, "-1", "layout-marker"),
		tsvRow(1, 1, 1, 2, "70", "IL"),
		tsvRow(1, 1, 2, 1, "60", "62704"),
	}, "\n")

	lines := aggregateTSV(tsv)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}

	if lines[0].Text != "123 Main St" {
		t.Errorf("line 0 = %q", lines[0].Text)
	}
	if math.Abs(lines[0].Confidence-0.9) > 1e-9 {
		t.Errorf("line 0 confidence = %v, want 0.9", lines[0].Confidence)
	}

	if lines[1].Text != "Springfield IL" {
		t.Errorf("line 1 = %q", lines[1].Text)
	}
	if math.Abs(lines[1].Confidence-0.75) > 1e-9 {
		t.Errorf("line 1 confidence = %v, want 0.75", lines[1].Confidence)
	}

	if lines[2].Text != "62704" {
		t.Errorf("line 2 = %q", lines[2].Text)
	}
	if math.Abs(lines[2].Confidence-0.6) > 1e-9 {
		t.Errorf("line 2 confidence = %v, want 0.6", lines[2].Confidence)
	}
}

func TestAggregateTSVSkipsMalformedRows(t *testing.T) {
	tsv := strings.Join([]string{
		"header",
		"too\tfew\tcolumns",
		tsvRow(1, 1, 1, 1, "not-a-number", "word"),
		tsvRow(1, 1, 1, 1, "90", ""),
		tsvRow(1, 1, 1, 1, "90", "kept"),
	}, "\n")

	lines := aggregateTSV(tsv)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0].Text != "kept" {
		t.Errorf("text = %q, want kept", lines[0].Text)
	}
}

func TestRunnerCapsLineCount(t *testing.T) {
	var rows []string
	rows = append(rows, "header")
	for i := 0; i < 6; i++ {
		rows = append(rows, tsvRow(1, 1, 1, i, "90", "word"))
	}
	lines := aggregateTSV(strings.Join(rows, "\n"))
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want 6", len(lines))
	}

	r := newTesseractRunner("", 4)
	if r.maxLines != 4 {
		t.Fatalf("maxLines = %d", r.maxLines)
	}
	if len(lines) > r.maxLines {
		lines = lines[:r.maxLines]
	}
	if len(lines) != 4 {
		t.Errorf("got %d lines after cap, want 4", len(lines))
	}
}
