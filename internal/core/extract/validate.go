package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidationOutcome is computed once per parsed candidate and never
// mutated afterwards.
type ValidationOutcome struct {
	IsValid    bool
	Reason     string
	Components map[string]string
}

const minComponents = 2

// requiredCombinations: a surviving component set must cover at least
// one of these to be geocodable.
var requiredCombinations = [][]string{
	{"house_number", "road"},
	{"road", "city"},
	{"road", "state"},
	{"road", "postcode"},
	{"house_number", "city"},
	{"house_number", "postcode"},
	{"po_box", "city"},
}

// Validate filters parsed components down to geocodable address parts
// and rejects sets that are too sparse or noise-contaminated.
// Deterministic, no external calls.
func Validate(parsed map[string]string, rawText string) ValidationOutcome {
	if len(parsed) == 0 {
		return ValidationOutcome{Reason: "No address components"}
	}

	rawNoise := noiseRe.MatchString(rawText)
	cleaned := make(map[string]string, len(parsed))
	for component, value := range parsed {
		key := strings.ToLower(strings.TrimSpace(component))
		if _, ok := allowedComponents[key]; !ok {
			continue
		}

		normalized := strings.TrimSpace(value)
		if normalized == "" {
			continue
		}
		if noiseRe.MatchString(normalized) {
			continue
		}

		if key == "house_number" {
			if !containsDigit(normalized) {
				continue
			}
			if partOfPhoneNumber(normalized, rawText) {
				continue
			}
		}
		if key == "road" && !containsAlpha(normalized) {
			continue
		}
		if key == "postcode" {
			normalized = NormalizePostcode(normalized)
			if normalized == "" {
				continue
			}
		}

		cleaned[key] = normalized
	}

	if len(cleaned) < minComponents {
		return ValidationOutcome{Reason: noiseSuffix("Insufficient address detail", rawNoise)}
	}
	if !hasRequiredCombination(cleaned) {
		return ValidationOutcome{Reason: noiseSuffix("Missing essential address parts", rawNoise)}
	}
	return ValidationOutcome{IsValid: true, Components: cleaned}
}

func noiseSuffix(reason string, rawNoise bool) string {
	if rawNoise {
		return reason + " (looks like a shipping label)"
	}
	return reason
}

func hasRequiredCombination(components map[string]string) bool {
	for _, combo := range requiredCombinations {
		found := true
		for _, key := range combo {
			if _, ok := components[key]; !ok {
				found = false
				break
			}
		}
		if found {
			return true
		}
	}
	return false
}

// Hyphen optional: space-separated ZIP+4 forms arrive as a bare
// 9-digit run after the space strip below.
var postcodeRe = regexp.MustCompile(`^(\d{5})(?:-?(\d{4}))?$`)

// NormalizePostcode strips spaces and canonicalizes US ZIP forms to
// "12345" or "12345-6789". Other alphanumeric codes of length >= 3
// pass through; everything else is dropped (empty return).
func NormalizePostcode(postcode string) string {
	compact := strings.ReplaceAll(strings.TrimSpace(postcode), " ", "")
	if compact == "" {
		return ""
	}
	if m := postcodeRe.FindStringSubmatch(compact); m != nil {
		if m[2] != "" {
			return m[1] + "-" + m[2]
		}
		return m[1]
	}
	if len(compact) >= 3 && isAlnum(compact) {
		return compact
	}
	return ""
}

// partOfPhoneNumber reports whether the house number only occurs
// inside phone-shaped digit runs of the raw text. OCR regularly turns
// a phone number into a plausible-looking house number.
func partOfPhoneNumber(houseNumber, rawText string) bool {
	if !phoneRe.MatchString(rawText) {
		return false
	}
	withoutPhones := phoneRe.ReplaceAllString(rawText, " ")
	wordRe, err := regexp.Compile(`\b` + regexp.QuoteMeta(houseNumber) + `\b`)
	if err != nil {
		return false
	}
	return !wordRe.MatchString(withoutPhones)
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func containsAlpha(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
