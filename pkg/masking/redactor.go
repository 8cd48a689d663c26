package masking

import "strings"

// rawArgPrefix marks a keyword argument as sensitive: the report writer
// replaces the entire value with "****" rather than writing it verbatim.
const rawArgPrefix = "@:"

// redactedValue is what a sensitive argument is replaced with.
const redactedValue = "****"

// Redactor compiles a set of named regex patterns and pattern groups
// once at construction, then applies them to free-text log content, in
// addition to always honoring the `@:<token>` sensitive-argument
// convention on keyword arguments.
type Redactor struct {
	patterns        map[string]*CompiledPattern
	groups          map[string][]string
	codeMaskers     map[string]Masker
	codeMaskerNames []string
}

// NewRedactor builds a Redactor from the given patterns and groups.
// Callers register code maskers afterward via RegisterMasker.
func NewRedactor(patterns []Pattern, groups map[string][]string) *Redactor {
	return &Redactor{
		patterns:    compilePatterns(patterns),
		groups:      groups,
		codeMaskers: make(map[string]Masker),
	}
}

// RegisterMasker adds a structural masker under its own name, making it
// eligible for pattern-group resolution.
func (r *Redactor) RegisterMasker(m Masker) {
	r.codeMaskers[m.Name()] = m
	r.codeMaskerNames = append(r.codeMaskerNames, m.Name())
}

// RedactArgument implements the `@:<token>` keyword-argument convention:
// an argument value beginning with "@:" is replaced wholesale with
// "****" before being written to the report, regardless of its content.
func (r *Redactor) RedactArgument(value string) string {
	if strings.HasPrefix(value, rawArgPrefix) {
		return redactedValue
	}
	return value
}

// RedactArguments applies RedactArgument to every value.
func (r *Redactor) RedactArguments(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = r.RedactArgument(v)
	}
	return out
}

// RedactText applies the named pattern groups' code maskers, then their
// regex patterns, to free-form text (e.g. a keyword's captured log
// lines), leaving text untouched if no group matches.
func (r *Redactor) RedactText(text string, groupNames ...string) string {
	if text == "" || len(groupNames) == 0 {
		return text
	}
	resolved := r.resolveGroup(groupNames, nil)
	masked := text

	for _, name := range resolved.codeMaskerNames {
		if masker, ok := r.codeMaskers[name]; ok && masker.AppliesTo(masked) {
			masked = masker.Mask(masked)
		}
	}
	for _, pattern := range resolved.regexPatterns {
		masked = pattern.Regex.ReplaceAllString(masked, pattern.Replacement)
	}
	return masked
}
