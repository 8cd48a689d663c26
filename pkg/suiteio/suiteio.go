// Package suiteio ingests test suite files (CSV or YAML) into the
// in-memory tree the Scheduler walks (spec §6.1). It identifies each
// input file by its content (header columns for CSV, top-level keys for
// YAML), not its extension, so callers can pass files in any order.
package suiteio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/optics-run/optics/pkg/elements"
	"github.com/optics-run/optics/pkg/opticserr"
	"github.com/optics-run/optics/pkg/scheduler"
)

// Kind identifies which of the three suite schemas a file's content matches.
type Kind string

const (
	KindTestCases Kind = "test_cases"
	KindModules   Kind = "modules"
	KindElements  Kind = "elements"
	KindUnknown   Kind = "unknown"
)

// ModuleStep is one keyword invocation declared inside a module.
type ModuleStep struct {
	Keyword string
	Params  []string
}

// Suite is the fully-parsed, pre-assembly form of a loaded test suite:
// every test case's ordered module references, every module's ordered
// keyword steps, and every element's ordered fallback candidates. APIs
// is kept as raw decoded data (spec §1: API-invocation flow-control
// keywords are only wired as far as their event-bus/element-store
// interaction, so their declaration body is not interpreted here).
type Suite struct {
	TestCases map[string][]string // test_case name -> ordered module names
	Modules   map[string][]ModuleStep
	Elements  map[string][]string // element name -> ordered fallback IDs
	APIs      map[string]any
}

func newSuite() *Suite {
	return &Suite{
		TestCases: make(map[string][]string),
		Modules:   make(map[string][]ModuleStep),
		Elements:  make(map[string][]string),
		APIs:      make(map[string]any),
	}
}

// LoadFiles reads every path in paths, dispatching each to the CSV or
// YAML reader by extension and merging the result into one Suite. Mixed
// CSV/YAML inputs in the same call are supported, matching spec §6.1's
// "two formats share one schema."
func LoadFiles(paths []string) (*Suite, error) {
	suite := newSuite()
	for _, path := range paths {
		if err := loadInto(suite, path); err != nil {
			return nil, fmt.Errorf("suiteio: loading %s: %w", path, err)
		}
	}
	return suite, nil
}

func loadInto(suite *Suite, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSVFile(suite, path)
	case ".yaml", ".yml":
		return loadYAMLFile(suite, path)
	default:
		return opticserr.Newf(opticserr.CodeConfigMissingFiles, "unsupported suite file extension: %s", path)
	}
}

// Assemble builds a scheduler.Suite and a populated elements.Store from
// the parsed suite data, resolving test-case -> module -> keyword
// references. maxAttempts applies uniformly to every keyword node;
// per-keyword retry budgets are not part of the suite file schema.
func Assemble(s *Suite, maxAttempts int) (*scheduler.Suite, *elements.Store, error) {
	store := elements.New()
	for name, ids := range s.Elements {
		for _, id := range ids {
			store.Add(name, id)
		}
	}

	out := &scheduler.Suite{}
	for _, tcName := range sortedKeys(s.TestCases) {
		moduleNames := s.TestCases[tcName]
		var modNodes []*scheduler.ModuleNode
		for _, modName := range moduleNames {
			steps, ok := s.Modules[modName]
			if !ok {
				return nil, nil, opticserr.Newf(opticserr.CodeModuleNotFound,
					"test case %q references undefined module %q", tcName, modName)
			}
			var kwNodes []*scheduler.KeywordNode
			for _, step := range steps {
				kwNodes = append(kwNodes, scheduler.NewKeywordNode(step.Keyword, step.Params, maxAttempts))
			}
			modNodes = append(modNodes, scheduler.NewModuleNode(modName, kwNodes...))
		}
		out.TestCases = append(out.TestCases, scheduler.NewTestCaseNode(tcName, modNodes...))
	}
	return out, store, nil
}

func sortedKeys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// Preserve file order where possible is not tracked by a plain map;
	// callers that need deterministic ordering across runs should rely
	// on a single test_cases.csv/YAML file's own row order instead. A
	// stable sort keeps repeated Assemble calls on the same Suite
	// reproducible for tests.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
