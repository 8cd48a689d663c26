package strategy

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/optics-run/optics/pkg/backend"
	"github.com/optics-run/optics/pkg/opticserr"
)

// fixtureSource is a minimal ElementSource fixture: it resolves "x,y"
// strings to coordinates (always matching, per the S1 scenario's
// fixture contract) and serves a fixed screenshot for AOI tests. It also
// implements Presence for the assert_presence scenarios.
type fixtureSource struct {
	screenshot []byte
	foundAt    map[string]time.Duration
}

func (f *fixtureSource) LocateXPath(ctx context.Context, xpath string) (backend.LocateResult, error) {
	return backend.LocateResult{}, opticserr.New(opticserr.CodeElementNotFound)
}

func (f *fixtureSource) LocateNative(ctx context.Context, query string) (backend.LocateResult, error) {
	parts := strings.Split(query, ",")
	if len(parts) != 2 {
		return backend.LocateResult{}, opticserr.New(opticserr.CodeElementNotFound)
	}
	x, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return backend.LocateResult{}, opticserr.New(opticserr.CodeElementNotFound)
	}
	return backend.LocateResult{IsCoordinate: true, X: x, Y: y}, nil
}

func (f *fixtureSource) Screenshot(ctx context.Context) ([]byte, error) {
	return f.screenshot, nil
}

func (f *fixtureSource) AssertElements(ctx context.Context, query string, timeout time.Duration) (bool, time.Time, error) {
	delay, ok := f.foundAt[query]
	if !ok || delay > timeout {
		return false, time.Time{}, nil
	}
	time.Sleep(delay)
	return true, time.Now(), nil
}

type fixtureOCR struct{ x, y int }

func (o *fixtureOCR) DetectText(ctx context.Context, screenshot []byte, text string) (backend.LocateResult, error) {
	return backend.LocateResult{IsCoordinate: true, X: o.x, Y: o.y}, nil
}

func mustRegister(t *testing.T, r *backend.Registry, cap backend.Capability, cfg backend.InstanceConfig, impl any) {
	t.Helper()
	if err := r.Register(cap, cfg, impl); err != nil {
		t.Fatalf("Register(%s): %v", cap, err)
	}
}

// TestS1CoordinateFallback mirrors spec.md scenario S1: an XPath value
// fails E0201, the scheduler's next candidate ("100,200") classifies as
// Text and is resolved via the direct-element-locate strategy.
func TestS1CoordinateFallback(t *testing.T) {
	r := backend.NewRegistry()
	mustRegister(t, r, backend.CapabilityElementSource, backend.InstanceConfig{Name: "es1", Enabled: true}, &fixtureSource{})
	m := NewManager(r, nil)

	_, err := m.Locate(context.Background(), "//nonexistent", nil)
	if !opticserr.Is(err, opticserr.CodeElementNotFound) {
		t.Fatalf("expected E0201 for XPath miss, got %v", err)
	}

	result, err := m.Locate(context.Background(), "100,200", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsCoordinate || result.X != 100 || result.Y != 200 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

// TestS2ExhaustedFallbacks mirrors scenario S2: every candidate fails,
// yielding zero successful strategy attempts → E0201 (no strategy ever
// located anything for this kind).
func TestS2ExhaustedFallbacks(t *testing.T) {
	r := backend.NewRegistry()
	mustRegister(t, r, backend.CapabilityElementSource, backend.InstanceConfig{Name: "es1", Enabled: true}, &fixtureSource{})
	m := NewManager(r, nil)

	for _, v := range []string{"a", "b", "c"} {
		_, err := m.Locate(context.Background(), v, nil)
		if !opticserr.Is(err, opticserr.CodeElementNotFound) {
			t.Fatalf("value %q: expected E0201, got %v", v, err)
		}
	}
}

func blankPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// TestS3AOICropShiftsCoordinates mirrors scenario S3: a 1000x1000 frame,
// AOI {10%,20%,50%,40%} (crop origin 100,200), OCR match at (50,60)
// within the crop, expected absolute result (150,260).
func TestS3AOICropShiftsCoordinates(t *testing.T) {
	r := backend.NewRegistry()
	mustRegister(t, r, backend.CapabilityElementSource,
		backend.InstanceConfig{Name: "es1", Enabled: true},
		&fixtureSource{screenshot: blankPNG(t, 1000, 1000)})
	mustRegister(t, r, backend.CapabilityTextDetect,
		backend.InstanceConfig{Name: "ocr1", Enabled: true},
		&fixtureOCR{x: 50, y: 60})
	m := NewManager(r, nil)

	aoi := &AOI{X: 10, Y: 20, Width: 50, Height: 40}
	result, err := m.Locate(context.Background(), "Submit", aoi)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.X != 150 || result.Y != 260 {
		t.Fatalf("got (%d,%d), want (150,260)", result.X, result.Y)
	}
}

func TestAOIFullFrameBehavesAsUnset(t *testing.T) {
	aoi := AOI{X: 0, Y: 0, Width: 100, Height: 100}
	if !aoi.IsFullFrame() {
		t.Fatal("expected full-frame AOI to be recognized as unset")
	}
}

func TestAOIInvalidRaisesE0205(t *testing.T) {
	cases := []AOI{
		{X: -1, Y: 0, Width: 10, Height: 10},
		{X: 0, Y: 0, Width: 101, Height: 10},
		{X: 60, Y: 0, Width: 50, Height: 10},
		{X: 0, Y: 60, Width: 10, Height: 50},
	}
	for _, aoi := range cases {
		if err := aoi.Validate(); !opticserr.Is(err, opticserr.CodeElementInvalidAOI) {
			t.Errorf("AOI %+v: expected E0205, got %v", aoi, err)
		}
	}
}

// TestS4AssertPresenceAllWithMixedTiming mirrors scenario S4: elements
// [A,B], rule=all, timeout=2s; A is present immediately, B at 1.8s.
// Expected: success, with wall-clock in [1.8s, 2.0s].
func TestS4AssertPresenceAllWithMixedTiming(t *testing.T) {
	r := backend.NewRegistry()
	mustRegister(t, r, backend.CapabilityElementSource,
		backend.InstanceConfig{Name: "es1", Enabled: true},
		&fixtureSource{foundAt: map[string]time.Duration{
			"A": 0,
			"B": 1800 * time.Millisecond,
		}})
	m := NewManager(r, nil)

	start := time.Now()
	err := m.AssertPresence(context.Background(), []string{"A", "B"}, KindText, 2*time.Second, RuleAll)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed < 1700*time.Millisecond || elapsed > 2100*time.Millisecond {
		t.Fatalf("elapsed = %s, want roughly [1.8s, 2.0s]", elapsed)
	}
}

func TestAssertPresenceAnyFailsAfterDeadline(t *testing.T) {
	r := backend.NewRegistry()
	mustRegister(t, r, backend.CapabilityElementSource,
		backend.InstanceConfig{Name: "es1", Enabled: true},
		&fixtureSource{foundAt: map[string]time.Duration{}})
	m := NewManager(r, nil)

	err := m.AssertPresence(context.Background(), []string{"missing"}, KindText, 50*time.Millisecond, RuleAny)
	if !opticserr.Is(err, opticserr.CodeElementNotFound) {
		t.Fatalf("expected E0201, got %v", err)
	}
}
