// Package strategy implements the Strategy Manager (C5): resolving an
// element identifier to coordinates or a handle by trying ordered
// strategies against ordered backend instances, with AOI cropping and
// time budgeting for presence assertions.
//
// Classification is grounded on the teacher's deterministic
// classify-by-surface-form idiom (pkg/mcp/router.go's tool-name regex
// splitting); the iteration-loop and retry shape borrow the structure of
// the teacher's agent controller/orchestrator packages, rewritten for
// element resolution instead of LLM tool calls.
package strategy

import (
	"regexp"
	"strings"
)

// Kind is the classification of an element identifier's surface form
// (spec §4.5.1).
type Kind string

const (
	KindImage Kind = "image"
	KindXPath Kind = "xpath"
	KindText  Kind = "text"
	KindCSS   Kind = "css"
	KindID    Kind = "id"
)

var (
	imageExt  = regexp.MustCompile(`(?i)\.(png|jpg|jpeg|bmp)$`)
	cssBrack  = regexp.MustCompile(`\[[^\]]*\]`)
	htmlTagRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*[\[#.]`)
)

// Classify determines the Kind of a raw element identifier and returns
// the query string to pass to a strategy (with any recognized prefix
// stripped), per spec §4.5.1.
func Classify(element string) (Kind, string) {
	switch {
	case imageExt.MatchString(element):
		return KindImage, element
	case strings.HasPrefix(element, "text="):
		return KindText, strings.TrimPrefix(element, "text=")
	case strings.HasPrefix(element, "css="):
		return KindCSS, strings.TrimPrefix(element, "css=")
	case strings.HasPrefix(element, "xpath="):
		return KindXPath, strings.TrimPrefix(element, "xpath=")
	case strings.HasPrefix(element, "//") || strings.HasPrefix(element, "/") || strings.HasPrefix(element, "("):
		return KindXPath, element
	case strings.HasPrefix(element, "id:"):
		return KindID, strings.TrimPrefix(element, "id:")
	case cssBrack.MatchString(element),
		strings.HasPrefix(element, "#"),
		strings.HasPrefix(element, "."),
		htmlTagRe.MatchString(element):
		return KindCSS, element
	default:
		return KindText, element
	}
}
