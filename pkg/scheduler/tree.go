// Package scheduler walks a session's test-case tree, resolving and
// invoking keywords through the keyword registry and the strategy
// manager, publishing lifecycle events as it goes.
package scheduler

import (
	"sync"

	"github.com/google/uuid"

	"github.com/optics-run/optics/pkg/events"
)

// KeywordNode is one leaf of the test-node tree (spec §3.1: "Only the
// Keyword node carries parameter strings and a reference to the
// resolved callable").
type KeywordNode struct {
	ID           string
	Name         string
	Params       []string
	MaxAttempts  int
	ParentID     string // owning ModuleNode.ID, set by NewModuleNode
	mu           sync.Mutex
	status       events.Status
	attemptCount int
	lastFailure  string
}

func NewKeywordNode(name string, params []string, maxAttempts int) *KeywordNode {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &KeywordNode{
		ID:          uuid.New().String(),
		Name:        name,
		Params:      params,
		MaxAttempts: maxAttempts,
		status:      events.StatusNotRun,
	}
}

func (n *KeywordNode) Status() events.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

func (n *KeywordNode) setStatus(s events.Status) {
	n.mu.Lock()
	n.status = s
	n.mu.Unlock()
}

// AttemptCount returns the 1-indexed number of times this keyword has been
// invoked: 1 after its first (and possibly only) attempt, incremented once
// per Retry-command reentry (spec §4.7.5/§4.7.6).
func (n *KeywordNode) AttemptCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.attemptCount
}

// ModuleNode groups an ordered list of keywords.
type ModuleNode struct {
	ID       string
	Name     string
	Keywords []*KeywordNode
	ParentID string // owning TestCaseNode.ID, set by NewTestCaseNode
	status   events.Status
	mu       sync.Mutex
}

func NewModuleNode(name string, keywords ...*KeywordNode) *ModuleNode {
	mod := &ModuleNode{ID: uuid.New().String(), Name: name, Keywords: keywords, status: events.StatusNotRun}
	for _, kw := range keywords {
		kw.ParentID = mod.ID
	}
	return mod
}

func (n *ModuleNode) Status() events.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

func (n *ModuleNode) setStatus(s events.Status) {
	n.mu.Lock()
	n.status = s
	n.mu.Unlock()
}

// TestCaseNode is the root of one test case's module list.
type TestCaseNode struct {
	ID      string
	Name    string
	Modules []*ModuleNode
	status  events.Status
	mu      sync.Mutex
}

func NewTestCaseNode(name string, modules ...*ModuleNode) *TestCaseNode {
	tc := &TestCaseNode{ID: uuid.New().String(), Name: name, Modules: modules, status: events.StatusNotRun}
	for _, mod := range modules {
		mod.ParentID = tc.ID
	}
	return tc
}

func (n *TestCaseNode) Status() events.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

func (n *TestCaseNode) setStatus(s events.Status) {
	n.mu.Lock()
	n.status = s
	n.mu.Unlock()
}

// Suite is the ordered set of test cases one Scheduler run walks.
type Suite struct {
	TestCases []*TestCaseNode
}
