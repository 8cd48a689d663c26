package masking

import (
	"log/slog"
	"regexp"
	"slices"
)

// Pattern is a named regex replacement, as supplied by configuration.
type Pattern struct {
	Name        string
	Regex       string
	Replacement string
	Description string
}

// CompiledPattern is a Pattern with its regex pre-compiled.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// resolvedPatterns is the expansion of a set of pattern-group names plus
// individual pattern names into the concrete code maskers and regex
// patterns that apply.
type resolvedPatterns struct {
	codeMaskerNames []string
	regexPatterns   []*CompiledPattern
}

// compilePatterns compiles every pattern in patterns, logging and
// skipping any with an invalid regex rather than failing startup.
func compilePatterns(patterns []Pattern) map[string]*CompiledPattern {
	out := make(map[string]*CompiledPattern, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			slog.Error("masking: skipping pattern with invalid regex", "pattern", p.Name, "error", err)
			continue
		}
		out[p.Name] = &CompiledPattern{Name: p.Name, Regex: re, Replacement: p.Replacement, Description: p.Description}
	}
	return out
}

// resolveGroup expands groupNames (pattern-group names) plus
// individualNames (bare pattern names) into resolvedPatterns,
// deduplicating by name and classifying each as a code masker or a
// compiled regex pattern.
func (r *Redactor) resolveGroup(groupNames, individualNames []string) *resolvedPatterns {
	seen := make(map[string]bool)
	resolved := &resolvedPatterns{}

	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		if slices.Contains(r.codeMaskerNames, name) {
			resolved.codeMaskerNames = append(resolved.codeMaskerNames, name)
			return
		}
		if cp, ok := r.patterns[name]; ok {
			resolved.regexPatterns = append(resolved.regexPatterns, cp)
		}
	}

	for _, g := range groupNames {
		for _, name := range r.groups[g] {
			add(name)
		}
	}
	for _, name := range individualNames {
		add(name)
	}
	return resolved
}
