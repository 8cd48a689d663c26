package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/optics-run/optics/pkg/elements"
	"github.com/optics-run/optics/pkg/events"
	"github.com/optics-run/optics/pkg/keywords"
	"github.com/optics-run/optics/pkg/opticserr"
	"github.com/optics-run/optics/pkg/session"
)

// maxCombinations bounds the Cartesian product of parameter candidates a
// single keyword invocation will try (spec §4.7.2 step 3 / §8 S6).
const maxCombinations = 20

// Scheduler walks a Suite against a session's registry/store/bus, one
// keyword at a time (spec §5: "single-threaded per session").
type Scheduler struct {
	Registry *keywords.Registry
	DryRun   bool
}

func New(registry *keywords.Registry) *Scheduler {
	return &Scheduler{Registry: registry}
}

// Run walks every TestCase in order (spec §4.7.1). A Module's keyword
// failure fails the Module and the TestCase; the walk continues to the
// next TestCase regardless.
func (s *Scheduler) Run(ctx context.Context, sess *session.Session, suite *Suite) error {
	if err := sess.SetStatus(session.StatusRunning); err != nil {
		return err
	}

	overallPass := true
	for _, tc := range suite.TestCases {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !s.runTestCase(ctx, sess, tc) {
			overallPass = false
		}
	}

	if overallPass {
		return sess.SetStatus(session.StatusPass)
	}
	return sess.SetStatus(session.StatusFail)
}

func (s *Scheduler) runTestCase(ctx context.Context, sess *session.Session, tc *TestCaseNode) bool {
	start := time.Now()
	tc.setStatus(events.StatusRunning)
	s.publish(sess, events.EntityTestCase, tc.ID, "", tc.Name, events.StatusRunning, "", "")

	pass := true
	for _, mod := range tc.Modules {
		if ctx.Err() != nil {
			pass = false
			break
		}
		if !s.runModule(ctx, sess, mod) {
			pass = false
		}
	}

	final := events.StatusPass
	if !pass {
		final = events.StatusFail
	}
	tc.setStatus(final)
	elapsed := time.Since(start).Milliseconds()
	s.publishElapsed(sess, events.EntityTestCase, tc.ID, "", tc.Name, final, "", "", elapsed)
	return pass
}

func (s *Scheduler) runModule(ctx context.Context, sess *session.Session, mod *ModuleNode) bool {
	mod.setStatus(events.StatusRunning)
	s.publish(sess, events.EntityModule, mod.ID, mod.ParentID, mod.Name, events.StatusRunning, "", "")

	pass := true
	for _, kw := range mod.Keywords {
		if ctx.Err() != nil {
			pass = false
			break
		}
		if !s.runKeyword(ctx, sess, kw) {
			pass = false
			break // spec §4.7.1: on Keyword failure, the Module fails immediately.
		}
	}

	final := events.StatusPass
	if !pass {
		final = events.StatusFail
	}
	mod.setStatus(final)
	s.publish(sess, events.EntityModule, mod.ID, mod.ParentID, mod.Name, final, "", "")
	return pass
}

// runKeyword implements the full per-keyword algorithm of spec §4.7.2,
// including the step-5 Retry-command reentry loop of §4.7.5/§4.7.6.
func (s *Scheduler) runKeyword(ctx context.Context, sess *session.Session, node *KeywordNode) bool {
	for {
		node.mu.Lock()
		node.attemptCount++
		node.mu.Unlock()

		ok := s.attemptKeyword(ctx, sess, node)

		cmd, pending := sess.Bus.GetCommand(node.ID)
		if !pending || cmd.Kind != events.CommandRetry {
			return ok
		}

		node.mu.Lock()
		if node.attemptCount >= node.MaxAttempts {
			node.mu.Unlock()
			return ok
		}
		node.status = events.StatusNotRun
		node.mu.Unlock()

		s.publish(sess, events.EntityKeyword, node.ID, node.ParentID, node.Name, events.StatusRetrying, "", "")
	}
}

// attemptKeyword runs steps 1-4 of §4.7.2 once (not including the
// Retry-command reentry of step 5).
func (s *Scheduler) attemptKeyword(ctx context.Context, sess *session.Session, node *KeywordNode) bool {
	start := time.Now()
	node.setStatus(events.StatusRunning)
	s.publish(sess, events.EntityKeyword, node.ID, node.ParentID, node.Name, events.StatusRunning, "", strings.Join(node.Params, ", "))

	kw, err := s.Registry.Lookup(node.Name)
	if err != nil {
		return s.fail(sess, node, start, err)
	}

	candidates, err := s.candidateLists(sess.Store, kw, node.Params)
	if err != nil {
		return s.fail(sess, node, start, err)
	}

	combinations := cartesian(candidates, maxCombinations)

	var lastErr error
	for _, combo := range combinations {
		args, resolveErr := s.resolveCombination(sess.Store, kw, combo)
		if resolveErr != nil {
			lastErr = resolveErr
			if opticserr.Is(resolveErr, opticserr.CodeElementNotFound) {
				continue
			}
			return s.fail(sess, node, start, resolveErr)
		}

		var result any
		var invokeErr error
		if sess.DryRun() {
			result, invokeErr = "dry-run", nil
		} else {
			result, invokeErr = kw.Func(ctx, args)
		}

		if invokeErr == nil {
			elapsed := time.Since(start).Milliseconds()
			node.setStatus(events.StatusPass)
			s.publishElapsed(sess, events.EntityKeyword, node.ID, node.ParentID, node.Name, events.StatusPass, fmt.Sprint(result), strings.Join(args, ", "), elapsed)
			return true
		}

		lastErr = invokeErr
		if opticserr.RetryableErr(invokeErr) {
			continue
		}
		return s.fail(sess, node, start, invokeErr)
	}

	if lastErr == nil {
		lastErr = opticserr.New(opticserr.CodeElementNotFound)
	}
	exhausted := opticserr.Newf(opticserr.CodeElementExhausted,
		"keyword %q failed after %d attempts: %v", node.Name, len(combinations), lastErr)
	return s.fail(sess, node, start, exhausted)
}

func (s *Scheduler) fail(sess *session.Session, node *KeywordNode, start time.Time, err error) bool {
	node.mu.Lock()
	node.lastFailure = err.Error()
	node.status = events.StatusFail
	node.mu.Unlock()

	elapsed := time.Since(start).Milliseconds()
	s.publishElapsed(sess, events.EntityKeyword, node.ID, node.ParentID, node.Name, events.StatusFail, err.Error(), "", elapsed)
	return false
}

// candidateLists builds, per spec §4.7.2 step 2, the ordered candidate
// list for each parameter: the full Element Store expansion for a
// `${name}` token, or a singleton for a literal. Raw parameters (spec
// §4.7.3) are never expanded, even if they look like `${name}`.
func (s *Scheduler) candidateLists(store *elements.Store, kw keywords.Keyword, params []string) ([][]string, error) {
	out := make([][]string, len(params))
	for i, p := range params {
		if kw.IsRaw(i) {
			out[i] = []string{p}
			continue
		}
		if _, ok := elements.IsVariable(p); ok {
			vals, err := store.ResolveCandidates(p)
			if err != nil {
				return nil, err
			}
			out[i] = vals
			continue
		}
		out[i] = []string{p}
	}
	return out, nil
}

// resolveCombination splits combo into positional/keyword args (spec
// §4.7.2 step 3a) and re-resolves any remaining `${...}` tokens via
// get_first (step 3b). Raw positions are passed through untouched.
func (s *Scheduler) resolveCombination(store *elements.Store, kw keywords.Keyword, combo []string) ([]string, error) {
	out := make([]string, len(combo))
	for i, token := range combo {
		if kw.IsRaw(i) {
			out[i] = token
			continue
		}
		if isKeywordArg(token) {
			eq := strings.Index(token, "=")
			key, val := token[:eq], token[eq+1:]
			resolved, err := store.ResolveScalar(val)
			if err != nil {
				return nil, err
			}
			out[i] = key + "=" + resolved
			continue
		}
		resolved, err := store.ResolveScalar(token)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

// isKeywordArg reports whether token is a `key=value` keyword argument
// rather than a positional one (spec §4.7.2 step 3a): it contains `=`
// and does not begin with `/`, `//`, or `(`.
func isKeywordArg(token string) bool {
	if !strings.Contains(token, "=") {
		return false
	}
	return !strings.HasPrefix(token, "/") && !strings.HasPrefix(token, "(")
}

// cartesian computes the Cartesian product of candidates in deterministic
// (lexicographic-index) order, stopping once cap combinations have been
// produced (spec §4.7.2 step 3 / §8 S6: a 25-value variable is capped at
// 20 invocations).
func cartesian(candidates [][]string, limit int) [][]string {
	if len(candidates) == 0 {
		return [][]string{{}}
	}
	var out [][]string
	indices := make([]int, len(candidates))
	for len(out) < limit {
		combo := make([]string, len(candidates))
		for i, idx := range indices {
			combo[i] = candidates[i][idx]
		}
		out = append(out, combo)

		pos := len(indices) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(candidates[pos]) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break // every combination has been produced
		}
	}
	return out
}

func (s *Scheduler) publish(sess *session.Session, et events.EntityType, id, parentID, name string, status events.Status, message, args string) {
	sess.Bus.Publish(events.Event{
		EntityType: et,
		EntityID:   id,
		ParentID:   parentID,
		Name:       name,
		Status:     status,
		Message:    message,
		Args:       splitArgs(args),
		Timestamp:  time.Now(),
	})
}

func (s *Scheduler) publishElapsed(sess *session.Session, et events.EntityType, id, parentID, name string, status events.Status, message, args string, elapsedMS int64) {
	sess.Bus.Publish(events.Event{
		EntityType: et,
		EntityID:   id,
		ParentID:   parentID,
		Name:       name,
		Status:     status,
		Message:    message,
		Args:       splitArgs(args),
		Timestamp:  time.Now(),
		ElapsedMS:  &elapsedMS,
	})
}

func splitArgs(args string) []string {
	if args == "" {
		return nil
	}
	return strings.Split(args, ", ")
}
