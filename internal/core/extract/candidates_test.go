package extract

import (
	"math"
	"testing"

	"routeplan/internal/core/ocr"
)

func TestGenerateCandidates(t *testing.T) {
	lines := []ocr.Line{
		{Text: "123 Main St", Confidence: 0.9},
		{Text: "Springfield IL", Confidence: 0.8},
		{Text: "62704", Confidence: 0.7},
	}

	got := GenerateCandidates(lines)

	want := []ocr.Line{
		{Text: "123 Main St", Confidence: 0.9},
		{Text: "Springfield IL", Confidence: 0.8},
		{Text: "62704", Confidence: 0.7},
		{Text: "123 Main St Springfield IL", Confidence: 0.85},
		{Text: "Springfield IL 62704", Confidence: 0.75},
		{Text: "123 Main St Springfield IL 62704", Confidence: 0.8},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Text != want[i].Text {
			t.Errorf("candidate %d: got text %q, want %q", i, got[i].Text, want[i].Text)
		}
		if math.Abs(got[i].Confidence-want[i].Confidence) > 1e-9 {
			t.Errorf("candidate %d: got confidence %v, want %v", i, got[i].Confidence, want[i].Confidence)
		}
	}
}

func TestGenerateCandidatesShortInputs(t *testing.T) {
	if got := GenerateCandidates(nil); len(got) != 0 {
		t.Fatalf("expected no candidates for no lines, got %d", len(got))
	}

	one := []ocr.Line{{Text: "only line", Confidence: 0.5}}
	if got := GenerateCandidates(one); len(got) != 1 {
		t.Fatalf("expected 1 candidate for a single line, got %d", len(got))
	}

	two := []ocr.Line{
		{Text: "a", Confidence: 0.4},
		{Text: "b", Confidence: 0.6},
	}
	got := GenerateCandidates(two)
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates for two lines, got %d", len(got))
	}
	if got[2].Text != "a b" {
		t.Errorf("window candidate: got %q, want %q", got[2].Text, "a b")
	}
}
