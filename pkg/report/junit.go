// Package report subscribes to a session's event bus and builds a
// JUnit-style XML report, writing it to disk on session terminate.
package report

import (
	"encoding/xml"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/optics-run/optics/pkg/events"
	"github.com/optics-run/optics/pkg/masking"
)

// xmlKeyword is one keyword's report entry, nested inside its module.
type xmlKeyword struct {
	XMLName   xml.Name `xml:"keyword"`
	Name      string   `xml:"name,attr"`
	Status    string   `xml:"status,attr"`
	StartTime string   `xml:"starttime,attr,omitempty"`
	EndTime   string   `xml:"endtime,attr,omitempty"`
	Elapsed   string   `xml:"elapsed,attr,omitempty"`
	Arguments string   `xml:"arguments,attr,omitempty"`
	Log       []string `xml:"log"`
}

// xmlModule is one module's report entry, nested inside its test case.
type xmlModule struct {
	XMLName  xml.Name     `xml:"module"`
	Name     string       `xml:"name,attr"`
	Status   string       `xml:"status,attr"`
	Keywords []xmlKeyword `xml:"keyword"`
}

// xmlTestCase is one <testcase> element, carrying its modules as nested
// elements (spec §4.8: "Modules and keywords appear as nested elements").
type xmlTestCase struct {
	XMLName xml.Name    `xml:"testcase"`
	Name    string      `xml:"name,attr"`
	Status  string      `xml:"status,attr"`
	Time    string      `xml:"time,attr,omitempty"`
	Modules []xmlModule `xml:"module"`
}

// xmlTestSuite is the single <testsuite> this session's report writes.
type xmlTestSuite struct {
	XMLName   xml.Name      `xml:"testsuite"`
	Name      string        `xml:"name,attr"`
	Tests     int           `xml:"tests,attr"`
	Failures  int           `xml:"failures,attr"`
	Errors    int           `xml:"errors,attr"`
	Skipped   int           `xml:"skipped,attr"`
	Time      string        `xml:"time,attr"`
	TestCases []xmlTestCase `xml:"testcase"`
}

// xmlTestSuites is the report's root element.
type xmlTestSuites struct {
	XMLName xml.Name       `xml:"testsuites"`
	Suites  []xmlTestSuite `xml:"testsuite"`
}

// Writer subscribes to a session's bus, accumulates terminal events into
// an in-memory tree, and renders it to JUnit XML on Close.
type Writer struct {
	sessionID string
	path      string
	redactor  *masking.Redactor

	mu        sync.Mutex
	suite     xmlTestSuite
	startedAt time.Time

	testCaseIndexByID map[string]int
	moduleIndexByID   map[string]int // keyed "testcaseID/moduleID"
	keywordIndexByID  map[string]int // keyed "testcaseID/moduleID/keywordID"
}

// New creates a Writer for sessionID that will persist to path on Close.
// redactor may be nil (no argument redaction).
func New(sessionID, path string, redactor *masking.Redactor) *Writer {
	return &Writer{
		sessionID:         sessionID,
		path:              path,
		redactor:          redactor,
		startedAt:         time.Now(),
		suite:             xmlTestSuite{Name: "session_" + sessionID},
		testCaseIndexByID: make(map[string]int),
		moduleIndexByID:   make(map[string]int),
		keywordIndexByID:  make(map[string]int),
	}
}

// OnEvent implements events.Subscriber, so a Writer can be registered
// directly via Bus.Subscribe.
func (w *Writer) OnEvent(ev events.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch ev.EntityType {
	case events.EntityTestCase:
		w.onTestCase(ev)
	case events.EntityModule:
		w.onModule(ev)
	case events.EntityKeyword:
		w.onKeyword(ev)
	}
}

func (w *Writer) onTestCase(ev events.Event) {
	idx, ok := w.testCaseIndexByID[ev.EntityID]
	if !ok {
		w.suite.TestCases = append(w.suite.TestCases, xmlTestCase{Name: ev.Name})
		idx = len(w.suite.TestCases) - 1
		w.testCaseIndexByID[ev.EntityID] = idx
	}
	tc := &w.suite.TestCases[idx]
	tc.Status = string(ev.Status)
	if ev.ElapsedMS != nil {
		tc.Time = formatSeconds(*ev.ElapsedMS)
	}

	if events.Status(tc.Status).Terminal() {
		w.suite.Tests++
		switch events.Status(tc.Status) {
		case events.StatusFail:
			w.suite.Failures++
		case events.StatusError:
			w.suite.Errors++
		case events.StatusSkipped:
			w.suite.Skipped++
		}
	}
}

func (w *Writer) onModule(ev events.Event) {
	tcID := ev.ParentID
	tcIdx, ok := w.testCaseIndexByID[tcID]
	if !ok {
		// Module events may arrive before the owning testcase's own
		// RUNNING event in a dry-run or out-of-order subscriber; create
		// a placeholder testcase entry to attach to.
		w.suite.TestCases = append(w.suite.TestCases, xmlTestCase{})
		tcIdx = len(w.suite.TestCases) - 1
		w.testCaseIndexByID[tcID] = tcIdx
	}
	tc := &w.suite.TestCases[tcIdx]

	key := tcID + "/" + ev.EntityID
	idx, ok := w.moduleIndexByID[key]
	if !ok {
		tc.Modules = append(tc.Modules, xmlModule{Name: ev.Name})
		idx = len(tc.Modules) - 1
		w.moduleIndexByID[key] = idx
	}
	tc.Modules[idx].Status = string(ev.Status)
}

func (w *Writer) onKeyword(ev events.Event) {
	modKey := w.findModuleKey(ev.ParentID)
	if modKey == "" {
		return
	}
	tcIdx := w.testCaseIndexByID[strings.SplitN(modKey, "/", 2)[0]]
	modIdx := w.moduleIndexByID[modKey]
	mod := &w.suite.TestCases[tcIdx].Modules[modIdx]

	args := ev.Args
	if w.redactor != nil {
		args = w.redactor.RedactArguments(args)
	}

	kwKey := modKey + "/" + ev.EntityID
	idx, ok := w.keywordIndexByID[kwKey]
	if !ok {
		mod.Keywords = append(mod.Keywords, xmlKeyword{Name: ev.Name})
		idx = len(mod.Keywords) - 1
		w.keywordIndexByID[kwKey] = idx
	}
	kw := &mod.Keywords[idx]
	kw.Status = string(ev.Status)
	kw.Arguments = strings.Join(args, ", ")
	if ev.ElapsedMS != nil {
		kw.Elapsed = formatSeconds(*ev.ElapsedMS)
	}
	if ev.Message != "" {
		kw.Log = append(kw.Log, ev.Message)
	}
	if ev.Timestamp.IsZero() {
		return
	}
	ts := ev.Timestamp.Format(time.RFC3339Nano)
	switch ev.Status {
	case events.StatusRunning:
		kw.StartTime = ts
	default:
		if events.Status(kw.Status).Terminal() {
			kw.EndTime = ts
		}
	}
}

// findModuleKey resolves a module entity ID to its "testcaseID/moduleID"
// composite key by scanning the index (small trees, linear scan is fine).
func (w *Writer) findModuleKey(moduleID string) string {
	for key := range w.moduleIndexByID {
		if strings.HasSuffix(key, "/"+moduleID) {
			return key
		}
	}
	return ""
}

func formatSeconds(ms int64) string {
	return time.Duration(ms * int64(time.Millisecond)).Truncate(time.Millisecond).String()
}

// Close renders the accumulated report tree to JUnit XML and writes it
// to the Writer's configured path (spec §4.8: "On session terminate,
// the DOM is pretty-printed to the configured path"). Safe to call once;
// calling it with an empty path is a no-op (report writing disabled).
func (w *Writer) Close() error {
	if w.path == "" {
		return nil
	}

	w.mu.Lock()
	w.suite.Time = time.Since(w.startedAt).Truncate(time.Millisecond).String()
	doc := xmlTestSuites{Suites: []xmlTestSuite{w.suite}}
	w.mu.Unlock()

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	out = append([]byte(xml.Header), out...)
	return os.WriteFile(w.path, out, 0o644)
}

