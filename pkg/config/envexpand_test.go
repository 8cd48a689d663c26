package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnvBraceSyntax(t *testing.T) {
	t.Setenv("API_KEY", "secret123")
	result := ExpandEnv([]byte("api_key: ${API_KEY}"))
	assert.Equal(t, "api_key: secret123", string(result))
}

func TestExpandEnvBareDollarSyntax(t *testing.T) {
	t.Setenv("KUBECONFIG", "/test/kubeconfig")
	result := ExpandEnv([]byte("path: $KUBECONFIG"))
	assert.Equal(t, "path: /test/kubeconfig", string(result))
}

func TestExpandEnvMultipleVariables(t *testing.T) {
	t.Setenv("PROTOCOL", "https")
	t.Setenv("HOST", "example.com")
	t.Setenv("PORT", "443")
	result := ExpandEnv([]byte("url: ${PROTOCOL}://${HOST}:${PORT}"))
	assert.Equal(t, "url: https://example.com:443", string(result))
}

func TestExpandEnvMissingVariableExpandsEmpty(t *testing.T) {
	result := ExpandEnv([]byte("endpoint: ${DEFINITELY_NOT_SET}"))
	assert.Equal(t, "endpoint: ", string(result))
}

func TestExpandEnvNoVariablesUnchanged(t *testing.T) {
	input := "static: value"
	result := ExpandEnv([]byte(input))
	assert.Equal(t, input, string(result))
}

func TestExpandEnvEmptyInput(t *testing.T) {
	result := ExpandEnv([]byte(""))
	assert.Equal(t, "", string(result))
}
