package extract

import (
	"strings"

	"routeplan/internal/core/ocr"
)

// GenerateCandidates expands recognized lines into a superset of
// candidate strings: every individual line first, then every window
// of 2 and 3 consecutive lines joined by a single space, confidence
// averaged over the members. Windows recover addresses the OCR engine
// split across lines; anything wider than 3 blows up the candidate
// count without recall gains.
func GenerateCandidates(lines []ocr.Line) []ocr.Line {
	candidates := make([]ocr.Line, 0, 3*len(lines))
	candidates = append(candidates, lines...)

	for width := 2; width <= 3; width++ {
		for i := 0; i+width <= len(lines); i++ {
			window := lines[i : i+width]
			texts := make([]string, width)
			sum := 0.0
			for j, line := range window {
				texts[j] = line.Text
				sum += line.Confidence
			}
			candidates = append(candidates, ocr.Line{
				Text:       strings.Join(texts, " "),
				Confidence: sum / float64(width),
			})
		}
	}
	return candidates
}
