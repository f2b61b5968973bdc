package route

import (
	"testing"
)

func TestParseRouteMatrixBodyShapes(t *testing.T) {
	entry := `{"originIndex":0,"destinationIndex":1,"distanceMeters":1500,"duration":"120s"}`

	tests := []struct {
		name string
		body string
		want int
	}{
		{"json array", `[` + entry + `]`, 1},
		{"guarded array", ")]}'\n[" + entry + `]`, 1},
		{"wrapper object", `{"matrixEntries":[` + entry + `]}`, 1},
		{"ndjson", entry + "\n" + entry + "\n", 2},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := parseRouteMatrixBody([]byte(tt.body))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(entries) != tt.want {
				t.Fatalf("got %d entries, want %d", len(entries), tt.want)
			}
			if tt.want > 0 {
				e := entries[0]
				if e.OriginIndex == nil || *e.OriginIndex != 0 || e.DestinationIndex == nil || *e.DestinationIndex != 1 {
					t.Errorf("indexes = (%v, %v)", e.OriginIndex, e.DestinationIndex)
				}
				if e.DistanceMeters == nil || *e.DistanceMeters != 1500 {
					t.Errorf("distance = %v", e.DistanceMeters)
				}
			}
		})
	}
}

func TestParseDurationSeconds(t *testing.T) {
	tests := []struct {
		name   string
		in     interface{}
		want   int
		wantOK bool
	}{
		{"string with suffix", "120s", 120, true},
		{"fractional string", "90.6s", 91, true},
		{"bare number", float64(45), 45, true},
		{"object form", map[string]interface{}{"seconds": float64(30), "nanos": float64(5e8)}, 31, true},
		{"nil", nil, 0, false},
		{"garbage string", "soon", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDurationSeconds(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("got (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTollInfoEstimated(t *testing.T) {
	var info tollInfo
	if info.estimated() != nil {
		t.Error("empty toll info must yield nil")
	}

	info.EstimatedPrice = []struct {
		CurrencyCode string `json:"currencyCode"`
		Units        string `json:"units"`
		Nanos        int64  `json:"nanos"`
	}{{CurrencyCode: "USD", Units: "2", Nanos: 500_000_000}}

	toll := info.estimated()
	if toll == nil {
		t.Fatal("expected a toll")
	}
	if toll.CurrencyCode != "USD" || toll.Cost != 2.5 {
		t.Errorf("toll = %+v", toll)
	}

	info.EstimatedPrice[0].Units = "0"
	info.EstimatedPrice[0].Nanos = 0
	if info.estimated() != nil {
		t.Error("zero-cost toll must yield nil")
	}
}
