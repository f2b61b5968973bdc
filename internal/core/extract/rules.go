package extract

import (
	"fmt"
	"regexp"
	"strings"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed data/rules.yaml
var rulesYAML []byte

type rulesConfig struct {
	AllowedComponents []string `yaml:"allowed_components"`
	NoiseTerms        []string `yaml:"noise_terms"`
}

var (
	allowedComponents map[string]struct{}
	noiseRe           *regexp.Regexp
	phoneRe           = regexp.MustCompile(`(?:\+?1[-.\s]?)?(?:\(\d{3}\)|\d{3})[-.\s]?\d{3}[-.\s]?\d{4}`)
)

func init() {
	var cfg rulesConfig
	if err := yaml.Unmarshal(rulesYAML, &cfg); err != nil {
		panic(fmt.Errorf("invalid embedded rules: %w", err))
	}
	if len(cfg.AllowedComponents) == 0 || len(cfg.NoiseTerms) == 0 {
		panic(fmt.Errorf("embedded rules are incomplete"))
	}

	allowedComponents = make(map[string]struct{}, len(cfg.AllowedComponents))
	for _, name := range cfg.AllowedComponents {
		allowedComponents[strings.TrimSpace(name)] = struct{}{}
	}

	alts := make([]string, 0, len(cfg.NoiseTerms))
	for _, term := range cfg.NoiseTerms {
		escaped := regexp.QuoteMeta(strings.TrimSpace(term))
		// "drop off" should also match "dropoff" and "drop-off".
		escaped = strings.ReplaceAll(escaped, `\ `, `[-\s]?`)
		alts = append(alts, escaped)
	}
	noiseRe = regexp.MustCompile(`(?i)\b(` + strings.Join(alts, "|") + `)\b`)
}
