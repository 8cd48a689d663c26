package keywords

import (
	"context"
	"testing"

	"github.com/optics-run/optics/pkg/opticserr"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Click Element":  "click_element",
		"click-element":  "click_element",
		"  Go  To  URL ": "go_to_url",
		"assert_presence": "assert_presence",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Keyword{
		Name: "Click Element",
		Func: func(ctx context.Context, args []string) (any, error) { return nil, nil },
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	kw, err := r.Lookup("click-element")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if kw.Name != "click_element" {
		t.Fatalf("Name = %q, want click_element", kw.Name)
	}
}

func TestLookupMissingReturnsE0402(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("nonexistent_keyword")
	if !opticserr.Is(err, opticserr.CodeKeywordNotFound) {
		t.Fatalf("expected E0402, got %v", err)
	}
}

func TestRegisterDuplicateKeepsLatest(t *testing.T) {
	r := NewRegistry()
	first := Keyword{Name: "dup", Arity: 1, Func: func(ctx context.Context, args []string) (any, error) { return "first", nil }}
	second := Keyword{Name: "dup", Arity: 2, Func: func(ctx context.Context, args []string) (any, error) { return "second", nil }}

	if err := r.Register(first); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(second); err != nil {
		t.Fatalf("second Register: %v", err)
	}

	kw, err := r.Lookup("dup")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if kw.Arity != 2 {
		t.Fatalf("arity = %d, want 2 (second registration should win)", kw.Arity)
	}
	result, _ := kw.Func(context.Background(), nil)
	if result != "second" {
		t.Fatalf("result = %v, want %q", result, "second")
	}
}

func TestRawParamsBitmask(t *testing.T) {
	kw := Keyword{RawParams: (1 << 0) | (1 << 2)}
	if !kw.IsRaw(0) || kw.IsRaw(1) || !kw.IsRaw(2) {
		t.Fatalf("unexpected raw mask evaluation for %v", kw.RawParams)
	}
}

func TestNamesIsSorted(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"zeta", "alpha", "mid"} {
		_ = r.Register(Keyword{Name: n, Func: func(ctx context.Context, args []string) (any, error) { return nil, nil }})
	}
	names := r.Names()
	if len(names) != 3 || names[0] != "alpha" || names[1] != "mid" || names[2] != "zeta" {
		t.Fatalf("unexpected order: %v", names)
	}
}
