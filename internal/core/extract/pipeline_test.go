package extract

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"

	"routeplan/internal/core/geocode"
	"routeplan/internal/core/ocr"
)

// stubGeocoder resolves every query to the same result.
type stubGeocoder struct {
	result geocode.Result
	err    error
	calls  []string
}

func (s *stubGeocoder) Name() string { return "stub" }

func (s *stubGeocoder) Lookup(_ context.Context, query string) (geocode.Result, error) {
	s.calls = append(s.calls, query)
	if s.err != nil {
		return geocode.Result{}, s.err
	}
	return s.result, nil
}

func streetParser(text string) map[string]string {
	if !strings.Contains(text, "Main St") {
		return nil
	}
	return map[string]string{"house_number": "123", "road": "Main St", "city": "Springfield"}
}

func ptr(v float64) *float64 { return &v }

func TestPipelineRunBlendsConfidence(t *testing.T) {
	provider := &stubGeocoder{result: geocode.Result{
		Latitude:      ptr(39.8),
		Longitude:     ptr(-89.65),
		Confidence:    0.85,
		ResolvedLabel: "123 Main St, Springfield, IL",
	}}
	resolver := geocode.NewResolverWithProvider(provider, nil)
	p := NewPipeline(streetParser, resolver, 2)

	got := p.Run(context.Background(), []ocr.Line{{Text: "123 Main St", Confidence: 0.92}})
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}

	c := got[0]
	if c.Status != StatusValidated {
		t.Errorf("Status = %q, want %q", c.Status, StatusValidated)
	}
	if math.Abs(c.Confidence-0.885) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.885", c.Confidence)
	}
	if c.Latitude == nil || c.Longitude == nil {
		t.Fatal("expected coordinates on validated candidate")
	}
	if *c.Latitude != 39.8 || *c.Longitude != -89.65 {
		t.Errorf("coordinates = (%v, %v), want (39.8, -89.65)", *c.Latitude, *c.Longitude)
	}
	if c.Parsed["resolved_label"] != "123 Main St, Springfield, IL" {
		t.Errorf("resolved_label = %q", c.Parsed["resolved_label"])
	}
	if c.Message != "" {
		t.Errorf("Message = %q, want empty", c.Message)
	}
}

func TestPipelineRunGeocodeFailure(t *testing.T) {
	provider := &stubGeocoder{err: fmt.Errorf("geocoder returned status 500")}
	resolver := geocode.NewResolverWithProvider(provider, nil)
	p := NewPipeline(streetParser, resolver, 2)

	got := p.Run(context.Background(), []ocr.Line{{Text: "123 Main St", Confidence: 0.92}})
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}

	c := got[0]
	if c.Status != StatusFailed {
		t.Errorf("Status = %q, want %q", c.Status, StatusFailed)
	}
	if c.Message != "geocoder returned status 500" {
		t.Errorf("Message = %q", c.Message)
	}
	if math.Abs(c.Confidence-0.46) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.46", c.Confidence)
	}
	if c.Latitude != nil || c.Longitude != nil {
		t.Error("failed candidate must not carry coordinates")
	}
}

func TestPipelineRunSkipsUnparsableAndInvalid(t *testing.T) {
	provider := &stubGeocoder{result: geocode.Result{Latitude: ptr(1), Longitude: ptr(2), Confidence: 0.9}}
	resolver := geocode.NewResolverWithProvider(provider, nil)
	p := NewPipeline(streetParser, resolver, 2)

	lines := []ocr.Line{
		{Text: "have a nice day", Confidence: 0.99},
		{Text: "thank you for your purchase", Confidence: 0.95},
	}
	if got := p.Run(context.Background(), lines); len(got) != 0 {
		t.Fatalf("got %d candidates, want 0", len(got))
	}
	if len(provider.calls) != 0 {
		t.Errorf("geocoder called %d times for invalid candidates", len(provider.calls))
	}
}

func TestDedupe(t *testing.T) {
	parsed := func(label string) map[string]string {
		m := map[string]string{"house_number": "123", "road": "Main St", "city": "Springfield"}
		if label != "" {
			m["resolved_label"] = label
		}
		return m
	}

	tests := []struct {
		name  string
		in    []Candidate
		wants []string // expected raw texts in order
	}{
		{
			name: "window variants collapse to best validated",
			in: []Candidate{
				{RawText: "123 Main St", Confidence: 0.7, Status: StatusValidated, Parsed: parsed("123 Main St, Springfield")},
				{RawText: "123 Main St Springfield", Confidence: 0.9, Status: StatusValidated, Parsed: parsed("123 Main St, Springfield")},
				{RawText: "123 Main St Springfield IL", Confidence: 0.8, Status: StatusValidated, Parsed: parsed("123 Main St, Springfield")},
			},
			wants: []string{"123 Main St Springfield"},
		},
		{
			name: "validated preferred over failed in same group",
			in: []Candidate{
				{RawText: "123 Main St", Confidence: 0.99, Status: StatusFailed, Parsed: parsed("")},
				{RawText: "123 Main St Springfield", Confidence: 0.5, Status: StatusValidated, Parsed: parsed("123 Main St, Springfield")},
			},
			wants: []string{"123 Main St Springfield"},
		},
		{
			name: "distinct labels both kept",
			in: []Candidate{
				{RawText: "123 Main St Apt 1", Confidence: 0.8, Status: StatusValidated, Parsed: parsed("123 Main St Apt 1, Springfield")},
				{RawText: "123 Main St Apt 2", Confidence: 0.7, Status: StatusValidated, Parsed: parsed("123 Main St Apt 2, Springfield")},
			},
			wants: []string{"123 Main St Apt 1", "123 Main St Apt 2"},
		},
		{
			name: "no validated keeps single best",
			in: []Candidate{
				{RawText: "123 Main St", Confidence: 0.4, Status: StatusFailed, Parsed: parsed("")},
				{RawText: "123 Main St Springfield", Confidence: 0.6, Status: StatusFailed, Parsed: parsed("")},
			},
			wants: []string{"123 Main St Springfield"},
		},
		{
			name: "different street groups kept apart",
			in: []Candidate{
				{RawText: "123 Main St", Confidence: 0.8, Status: StatusValidated, Parsed: parsed("123 Main St, Springfield")},
				{RawText: "9 Oak Ave", Confidence: 0.8, Status: StatusValidated, Parsed: map[string]string{
					"house_number": "9", "road": "Oak Ave", "city": "Springfield", "resolved_label": "9 Oak Ave, Springfield",
				}},
			},
			wants: []string{"123 Main St", "9 Oak Ave"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dedupe(tt.in)
			var texts []string
			for _, c := range got {
				texts = append(texts, c.RawText)
			}
			if !reflect.DeepEqual(texts, tt.wants) {
				t.Fatalf("got %v, want %v", texts, tt.wants)
			}

			// A second pass must be a no-op.
			again := Dedupe(got)
			if !reflect.DeepEqual(again, got) {
				t.Errorf("Dedupe is not idempotent: %v vs %v", again, got)
			}
		})
	}
}
