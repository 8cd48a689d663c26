package config

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetBuiltinConfigSingleton(t *testing.T) {
	a := GetBuiltinConfig()
	b := GetBuiltinConfig()
	assert.Same(t, a, b)
}

func TestBuiltinMaskingPatternsCompile(t *testing.T) {
	for name, p := range GetBuiltinConfig().MaskingPatterns {
		_, err := regexp.Compile(p.Pattern)
		assert.NoErrorf(t, err, "pattern %q failed to compile", name)
	}
}

func TestBuiltinPatternGroupsReferenceKnownPatterns(t *testing.T) {
	builtin := GetBuiltinConfig()
	for group, names := range builtin.PatternGroups {
		for _, name := range names {
			_, ok := builtin.MaskingPatterns[name]
			assert.Truef(t, ok, "group %q references unknown pattern %q", group, name)
		}
	}
}

func TestBuiltinDefaults(t *testing.T) {
	d := GetBuiltinConfig().Defaults
	assert.Equal(t, "execution_output", d.OutputDir)
	assert.Equal(t, 3, d.MaxAttempts)
	assert.True(t, d.ReportEnabled)
}
