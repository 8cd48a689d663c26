package strategy

import (
	"context"
	"time"

	"github.com/optics-run/optics/pkg/opticserr"
)

// Rule is the aggregation rule for AssertPresence over multiple
// elements.
type Rule string

const (
	RuleAny Rule = "any"
	RuleAll Rule = "all"
)

// Presence is the optional structural contract a backend implements to
// participate in assert_presence checks. AssertElements blocks for up to
// timeout, returning as soon as the element is observed present.
type Presence interface {
	AssertElements(ctx context.Context, query string, timeout time.Duration) (found bool, at time.Time, err error)
}

// presenceStrategies collects the Presence-capable backends applicable
// to kind, in the same priority order Locate uses for its strategies
// (spec §4.5.4: "Collect strategies that support assert_elements and
// claim supports(kind, source)").
func (m *Manager) presenceStrategies(kind Kind) []Presence {
	var out []Presence
	for _, es := range m.registry.ElementSources() {
		if p, ok := es.(Presence); ok {
			out = append(out, p)
		}
	}
	if kind == KindText {
		for _, td := range m.registry.TextDetectors() {
			if p, ok := td.(Presence); ok {
				out = append(out, p)
			}
		}
	}
	if kind == KindImage {
		for _, id := range m.registry.ImageDetectors() {
			if p, ok := id.(Presence); ok {
				out = append(out, p)
			}
		}
	}
	return out
}

// assertSingle checks one element's presence against its applicable
// strategies, splitting the time remaining until deadline evenly
// (rounded up) across the strategies not yet tried, per spec §4.5.4.
func (m *Manager) assertSingle(ctx context.Context, element string, kind Kind, deadline time.Time) bool {
	strategies := m.presenceStrategies(kind)
	remainingStrategies := len(strategies)
	for _, s := range strategies {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		share := ceilDiv(remaining, remainingStrategies)
		remainingStrategies--

		found, _, err := s.AssertElements(ctx, element, share)
		if err == nil && found {
			return true
		}
	}
	return false
}

func ceilDiv(d time.Duration, n int) time.Duration {
	if n <= 0 {
		return d
	}
	return time.Duration((int64(d) + int64(n) - 1) / int64(n))
}

// AssertPresence waits, up to timeout, for elements to be present
// according to rule (spec §4.5.4). RuleAll requires every element to be
// observed present before the deadline; RuleAny requires at least one.
// On the deadline passing without satisfying rule, it fails E0201.
func (m *Manager) AssertPresence(ctx context.Context, elements []string, kind Kind, timeout time.Duration, rule Rule) error {
	deadline := time.Now().Add(timeout)

	switch rule {
	case RuleAny:
		for _, el := range elements {
			if time.Now().After(deadline) {
				break
			}
			if m.assertSingle(ctx, el, kind, deadline) {
				return nil
			}
		}
		return opticserr.New(opticserr.CodeElementNotFound).
			WithDetails("elements", elements).WithDetails("rule", string(rule))
	case RuleAll:
		for _, el := range elements {
			if !m.assertSingle(ctx, el, kind, deadline) {
				return opticserr.New(opticserr.CodeElementNotFound).
					WithDetails("element", el).WithDetails("rule", string(rule))
			}
		}
		return nil
	default:
		return opticserr.Newf(opticserr.CodeKeywordInvalidParams,
			"unknown assert_presence rule: %s", rule)
	}
}
