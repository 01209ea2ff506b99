package catalog

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/me/partnerportal/pkg/model"
	"github.com/spf13/cast"
)

// manufacturerMatcher maps a set of tokens to a manufacturer key.
// Contains entries match anywhere inside a token; Exact entries must equal the
// whole token so short codes like "ms" do not fire inside unrelated words.
type manufacturerMatcher struct {
	key      model.ManufacturerKey
	contains []string
	exact    []string
}

// matchers are evaluated in order; the first group with a matching token wins.
var matchers = []manufacturerMatcher{
	{key: model.ManufacturerMicrosoft, contains: []string{"microsoft", "csp"}, exact: []string{"ms", "mft"}},
	{key: model.ManufacturerAWS, contains: []string{"aws", "amazon"}},
	{key: model.ManufacturerGoogle, contains: []string{"google"}, exact: []string{"gcp", "gc"}},
}

func (m manufacturerMatcher) match(token string) bool {
	if slices.Contains(m.exact, token) {
		return true
	}
	for _, s := range m.contains {
		if strings.Contains(token, s) {
			return true
		}
	}
	return false
}

// Parse maps a raw manufacturer value to its canonical key.
// ok is false when nothing matched and the default key was returned.
// Strings, []byte, fmt.Stringer and scalars are coerced with cast.ToString;
// slices, maps and other structs coerce to "" and fall back to the default.
func Parse(raw any) (key model.ManufacturerKey, ok bool) {
	s := strings.TrimSpace(cast.ToString(raw))
	if s == "" {
		return model.DefaultManufacturer, false
	}

	var tokens []string
	if strings.Contains(s, ",") {
		for _, part := range strings.Split(s, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				tokens = append(tokens, part)
			}
		}
	} else {
		tokens = []string{strings.ToLower(s)}
	}

	for _, m := range matchers {
		if slices.ContainsFunc(tokens, m.match) {
			return m.key, true
		}
	}
	return model.DefaultManufacturer, false
}

// Normalizer resolves raw manufacturer values and reports fallbacks.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer that logs fallbacks to logger.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With("component", "catalog")}
}

// Normalize returns the canonical key for raw. It never fails: unrecognized
// input degrades to model.DefaultManufacturer with a warning.
func (n *Normalizer) Normalize(raw any) model.ManufacturerKey {
	key, ok := Parse(raw)
	if !ok {
		n.logger.Warn("manufacturer value unrecognized, defaulted",
			"raw", cast.ToString(raw),
			"default", key,
		)
	}
	return key
}

// EffectiveSteps returns the three main steps that apply to raw.
func (n *Normalizer) EffectiveSteps(raw any) []model.MainStepDefinition {
	return StepsFor(n.Normalize(raw))
}

// AllSubsteps returns the flattened substeps of EffectiveSteps(raw).
func (n *Normalizer) AllSubsteps(raw any) []model.SubstepDefinition {
	return Flatten(n.EffectiveSteps(raw))
}

// Normalize is Normalizer.Normalize using slog.Default().
func Normalize(raw any) model.ManufacturerKey {
	return NewNormalizer(slog.Default()).Normalize(raw)
}
