package config

import (
	"strconv"

	"github.com/optics-run/optics/pkg/masking"
)

// BuildRedactor resolves a MaskingConfig against the built-in pattern
// catalog into a constructed masking.Redactor. Returns nil when mc is nil
// or masking is disabled, in which case callers should treat reports as
// unredacted except for the always-on `@:` argument convention.
func (mc *MaskingConfig) BuildRedactor() *masking.Redactor {
	if mc == nil || !mc.Enabled {
		return nil
	}

	builtin := GetBuiltinConfig()

	patterns := make([]masking.Pattern, 0, len(builtin.MaskingPatterns)+len(mc.CustomPatterns))
	for name, p := range builtin.MaskingPatterns {
		patterns = append(patterns, masking.Pattern{
			Name:        name,
			Regex:       p.Pattern,
			Replacement: p.Replacement,
			Description: p.Description,
		})
	}
	for i, p := range mc.CustomPatterns {
		patterns = append(patterns, masking.Pattern{
			Name:        "custom_" + strconv.Itoa(i),
			Regex:       p.Pattern,
			Replacement: p.Replacement,
			Description: p.Description,
		})
	}

	groups := make(map[string][]string, len(builtin.PatternGroups)+1)
	for name, members := range builtin.PatternGroups {
		groups[name] = members
	}
	if len(mc.Patterns) > 0 {
		groups["__session"] = mc.Patterns
	}

	return masking.NewRedactor(patterns, groups)
}
