package extract

import (
	"context"
	"sort"
	"strings"
	"sync"

	"routeplan/internal/core/addrparse"
	"routeplan/internal/core/geocode"
	"routeplan/internal/core/ocr"
	"routeplan/internal/logger"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusFailed    Status = "failed"
)

// Candidate is one extracted address. Immutable after construction.
type Candidate struct {
	RawText    string            `json:"raw_text"`
	Confidence float64           `json:"confidence"`
	Parsed     map[string]string `json:"parsed,omitempty"`
	Status     Status            `json:"status"`
	Message    string            `json:"message,omitempty"`
	Latitude   *float64          `json:"latitude,omitempty"`
	Longitude  *float64          `json:"longitude,omitempty"`
}

// Pipeline runs parse -> validate -> geocode per text candidate and
// collapses near-duplicates. Candidates are independent of each other
// and are processed with bounded concurrency.
type Pipeline struct {
	parser      addrparse.Func
	resolver    *geocode.Resolver
	concurrency int
	log         *logger.Logger
}

func NewPipeline(parser addrparse.Func, resolver *geocode.Resolver, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Pipeline{
		parser:      parser,
		resolver:    resolver,
		concurrency: concurrency,
		log:         logger.New("Extract"),
	}
}

// Run expands recognized lines into windowed candidates and builds the
// deduplicated address list. Per-candidate failures are recorded on
// the candidate, never returned as errors.
func (p *Pipeline) Run(ctx context.Context, lines []ocr.Line) []Candidate {
	texts := GenerateCandidates(lines)
	p.log.LogDebugf("generated %d text candidates from %d lines", len(texts), len(lines))

	results := make([]*Candidate, len(texts))
	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup

	for i, line := range texts {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, line ocr.Line) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = p.processOne(ctx, line)
		}(i, line)
	}
	wg.Wait()

	candidates := make([]Candidate, 0, len(results))
	for _, c := range results {
		if c != nil {
			candidates = append(candidates, *c)
		}
	}
	deduped := Dedupe(candidates)
	p.log.LogInfof("extraction finished: %d candidates, %d after dedup", len(candidates), len(deduped))
	return deduped
}

// processOne returns nil when the text does not survive parsing or
// validation; geocode misses still produce a (failed) candidate.
func (p *Pipeline) processOne(ctx context.Context, line ocr.Line) *Candidate {
	parsed := addrparse.Clean(p.parser(line.Text))
	if len(parsed) == 0 {
		return nil
	}

	outcome := Validate(parsed, line.Text)
	if !outcome.IsValid {
		p.log.LogDebugf("rejected %q: %s", line.Text, outcome.Reason)
		return nil
	}

	geo := p.resolver.Resolve(ctx, outcome.Components, line.Text)
	c := buildCandidate(line.Text, line.Confidence, outcome.Components, geo)
	return &c
}

// buildCandidate blends OCR and geocode confidence and assigns the
// lifecycle status.
func buildCandidate(text string, ocrConfidence float64, parsed map[string]string, geo geocode.Result) Candidate {
	base := clamp01(ocrConfidence)
	combined := base
	if geo.Confidence > 0 {
		combined = clamp01((base + geo.Confidence) / 2)
	} else if geo.Message != "" {
		combined = clamp01(base * 0.5)
	}

	status := StatusPending
	switch {
	case geo.HasCoordinates():
		status = StatusValidated
	case geo.Message != "":
		status = StatusFailed
	}

	payload := make(map[string]string, len(parsed)+1)
	for k, v := range parsed {
		payload[k] = v
	}
	if geo.ResolvedLabel != "" {
		if _, exists := payload["resolved_label"]; !exists {
			payload["resolved_label"] = geo.ResolvedLabel
		}
	}

	message := ""
	if status == StatusFailed {
		message = geo.Message
	}

	return Candidate{
		RawText:    text,
		Confidence: combined,
		Parsed:     payload,
		Status:     status,
		Message:    message,
		Latitude:   geo.Latitude,
		Longitude:  geo.Longitude,
	}
}

// Dedupe collapses near-duplicate candidates in two stages: group by a
// loose street-level key, then within each group prefer validated
// candidates deduplicated by resolved label (best confidence per
// label), falling back to the single best candidate otherwise. This
// keeps legitimately distinct units at one street address while
// collapsing the sliding-window variants of a single address.
// Idempotent: running it on its own output is a no-op.
func Dedupe(candidates []Candidate) []Candidate {
	groups := make(map[string][]Candidate)
	var order []string
	for _, c := range candidates {
		key := looseKey(c.Parsed)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}

	var out []Candidate
	for _, key := range order {
		group := groups[key]

		var validated []Candidate
		for _, c := range group {
			if c.Status == StatusValidated {
				validated = append(validated, c)
			}
		}

		if len(validated) == 0 {
			best := group[0]
			for _, c := range group[1:] {
				if c.Confidence > best.Confidence {
					best = c
				}
			}
			out = append(out, best)
			continue
		}

		byLabel := make(map[string]Candidate)
		var labelOrder []string
		for _, c := range validated {
			label := dedupeLabel(c)
			prev, seen := byLabel[label]
			if !seen {
				labelOrder = append(labelOrder, label)
			}
			if !seen || c.Confidence > prev.Confidence {
				byLabel[label] = c
			}
		}
		for _, label := range labelOrder {
			out = append(out, byLabel[label])
		}
	}
	return out
}

// looseKey groups candidates that are plausibly the same street
// address before the finer per-label pass.
func looseKey(parsed map[string]string) string {
	parts := make([]string, 0, 4)
	for _, key := range []string{"house_number", "road", "city", "state"} {
		parts = append(parts, strings.ToLower(strings.TrimSpace(parsed[key])))
	}
	return strings.Join(parts, "|")
}

// dedupeLabel is the fine identity inside a loose group. The resolved
// label is the strongest signal; without one, the sorted components
// form a deterministic fallback so that candidates differing only in
// geocode confidence still collapse.
func dedupeLabel(c Candidate) string {
	if label, ok := c.Parsed["resolved_label"]; ok && label != "" {
		return label
	}
	if len(c.Parsed) > 0 {
		pairs := make([]string, 0, len(c.Parsed))
		for k, v := range c.Parsed {
			pairs = append(pairs, k+"="+v)
		}
		sort.Strings(pairs)
		return strings.Join(pairs, ";")
	}
	return c.RawText
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
