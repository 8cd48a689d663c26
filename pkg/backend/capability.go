// Package backend implements the Backend Registry (C4): capability-typed,
// fallback-ordered collections of backend instances, plus the shared
// single-threaded bridge used to call async-native backends under a
// wall-clock timeout (spec §5 "Synchronous bridging").
//
// Concrete driver/OCR/image-matcher implementations are external
// collaborators (spec §1 Out of scope); this package only defines the
// narrow capability contracts optics dispatches against, grounded on the
// teacher's MCP client-factory/health-check construction pattern.
package backend

import "context"

// Capability identifies one of the four dispatchable backend roles.
type Capability string

const (
	CapabilityDrive         Capability = "drive"
	CapabilityElementSource Capability = "element_source"
	CapabilityTextDetect    Capability = "text_detect"
	CapabilityImageDetect   Capability = "image_detect"
)

// LocateResult is either an (X, Y) coordinate pair or an opaque backend
// handle, per spec §3.1. Exactly one of the two is populated; the
// scheduler/strategy manager branches on IsCoordinate.
type LocateResult struct {
	IsCoordinate bool
	X, Y         int
	Handle       any
	Strategy     string
}

// Driver is the primary UI actuator a Session owns.
type Driver interface {
	ID() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ElementSource can locate elements natively (e.g. by XPath against a
// page-source tree) and capture screenshots for the visual strategies.
type ElementSource interface {
	LocateXPath(ctx context.Context, xpath string) (LocateResult, error)
	LocateNative(ctx context.Context, query string) (LocateResult, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// TextDetector performs OCR-style text detection against a screenshot.
type TextDetector interface {
	DetectText(ctx context.Context, screenshot []byte, text string) (LocateResult, error)
}

// ImageDetector performs template-image matching against a screenshot.
type ImageDetector interface {
	DetectImage(ctx context.Context, screenshot []byte, template []byte) (LocateResult, error)
}

// Supporter is an optional structural contract a backend instance may
// implement to declare, at runtime, which capabilities it actually
// supports versus merely implements as a stub. Spec §4.4: "a method
// whose body is a stub ... does not count as supported." A backend that
// does not implement Supporter is assumed to support every capability
// interface it structurally satisfies.
type Supporter interface {
	Supports(Capability) bool
}

// supports reports whether impl should be treated as supporting cap,
// consulting the optional Supporter contract first.
func supports(impl any, cap Capability) bool {
	if s, ok := impl.(Supporter); ok {
		return s.Supports(cap)
	}
	return true
}
