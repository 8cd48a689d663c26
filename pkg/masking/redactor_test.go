package masking

import "testing"

func TestRedactArgumentMasksSensitiveToken(t *testing.T) {
	r := NewRedactor(nil, nil)
	if got := r.RedactArgument("@:password123"); got != "****" {
		t.Fatalf("got %q, want ****", got)
	}
	if got := r.RedactArgument("plain-value"); got != "plain-value" {
		t.Fatalf("got %q, want unchanged", got)
	}
}

func TestRedactArgumentsAppliesToEachValue(t *testing.T) {
	r := NewRedactor(nil, nil)
	got := r.RedactArguments([]string{"a", "@:secret", "b"})
	want := []string{"a", "****", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestRedactTextAppliesRegexGroup(t *testing.T) {
	r := NewRedactor(
		[]Pattern{{Name: "token", Regex: `tok_[a-z0-9]+`, Replacement: "[REDACTED]"}},
		map[string][]string{"default": {"token"}},
	)
	got := r.RedactText("Authorization: tok_abc123 sent", "default")
	if got != "Authorization: [REDACTED] sent" {
		t.Fatalf("got %q", got)
	}
}

func TestRedactTextSkipsUnknownGroup(t *testing.T) {
	r := NewRedactor(nil, nil)
	text := "unchanged"
	if got := r.RedactText(text, "nonexistent"); got != text {
		t.Fatalf("got %q, want unchanged", got)
	}
}

type upperMasker struct{}

func (upperMasker) Name() string             { return "upper" }
func (upperMasker) AppliesTo(s string) bool  { return len(s) > 0 }
func (upperMasker) Mask(s string) string     { return "MASKED" }

func TestRegisterMaskerParticipatesInGroup(t *testing.T) {
	r := NewRedactor(nil, map[string][]string{"g": {"upper"}})
	r.RegisterMasker(upperMasker{})
	if got := r.RedactText("secret data", "g"); got != "MASKED" {
		t.Fatalf("got %q, want MASKED", got)
	}
}
