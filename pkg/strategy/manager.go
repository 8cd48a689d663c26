package strategy

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg" // register JPEG decoder for frame-size detection
	_ "image/png"  // register PNG decoder for frame-size detection

	"github.com/optics-run/optics/pkg/backend"
	"github.com/optics-run/optics/pkg/opticserr"
)

// Strategy priority order, lowest number first (spec §4.5.2).
const (
	PriorityXPathViaElementSource = 1
	PriorityDirectElementLocate   = 2
	PriorityTextDetection         = 3
	PriorityImageDetection        = 4
)

// attemptFunc performs one strategy's locate attempt. crop is nil when
// no AOI was requested.
type attemptFunc func(ctx context.Context, query string, crop *CropRect) (backend.LocateResult, error)

type boundStrategy struct {
	priority int
	name     string
	kind     Kind
	attempt  attemptFunc
}

// Manager resolves element identifiers to locate results by walking the
// fixed strategy catalog against the Session's registered backends.
type Manager struct {
	registry *backend.Registry
	bridge   *backend.Bridge
}

// NewManager constructs a Strategy Manager bound to a Session's backend
// registry and async-call bridge.
func NewManager(registry *backend.Registry, bridge *backend.Bridge) *Manager {
	return &Manager{registry: registry, bridge: bridge}
}

// strategiesFor assembles the ordered, filtered strategy list for kind,
// per the catalog in spec §4.5.2. Ties within one priority are broken by
// backend-declaration order (registry iteration order), per invariant
// §3.2(5).
func (m *Manager) strategiesFor(kind Kind) []boundStrategy {
	var out []boundStrategy

	if kind == KindXPath {
		for _, es := range m.registry.ElementSources() {
			es := es
			out = append(out, boundStrategy{
				priority: PriorityXPathViaElementSource,
				name:     "xpath_via_element_source",
				kind:     kind,
				attempt: func(ctx context.Context, query string, crop *CropRect) (backend.LocateResult, error) {
					return es.LocateXPath(ctx, query)
				},
			})
		}
	}

	if kind == KindText || kind == KindCSS || kind == KindID {
		for _, es := range m.registry.ElementSources() {
			es := es
			out = append(out, boundStrategy{
				priority: PriorityDirectElementLocate,
				name:     "direct_element_locate",
				kind:     kind,
				attempt: func(ctx context.Context, query string, crop *CropRect) (backend.LocateResult, error) {
					return es.LocateNative(ctx, query)
				},
			})
		}
	}

	if kind == KindText {
		sources := m.registry.ElementSources()
		detectors := m.registry.TextDetectors()
		if len(sources) > 0 {
			src := sources[0]
			for _, td := range detectors {
				td := td
				out = append(out, boundStrategy{
					priority: PriorityTextDetection,
					name:     "text_detection",
					kind:     kind,
					attempt: func(ctx context.Context, query string, crop *CropRect) (backend.LocateResult, error) {
						shot, err := src.Screenshot(ctx)
						if err != nil {
							return backend.LocateResult{}, err
						}
						return td.DetectText(ctx, shot, query)
					},
				})
			}
		}
	}

	if kind == KindImage {
		sources := m.registry.ElementSources()
		detectors := m.registry.ImageDetectors()
		if len(sources) > 0 {
			src := sources[0]
			for _, id := range detectors {
				id := id
				out = append(out, boundStrategy{
					priority: PriorityImageDetection,
					name:     "image_detection",
					kind:     kind,
					attempt: func(ctx context.Context, query string, crop *CropRect) (backend.LocateResult, error) {
						shot, err := src.Screenshot(ctx)
						if err != nil {
							return backend.LocateResult{}, err
						}
						return id.DetectImage(ctx, shot, []byte(query))
					},
				})
			}
		}
	}

	return out
}

// Action is invoked with each yielded LocateResult; returning nil means
// the caller is done (success), any other error means "try the next
// yielded result".
type Action func(backend.LocateResult) error

// TryLocate classifies element, walks the applicable strategies in
// priority order, and invokes action on every successful strategy
// attempt until action succeeds or strategies are exhausted (spec
// §4.5.3). AOI coordinates are cropped and shifted per §4.5.5.
//
// Returns E0201 if zero strategies yielded a result at all; X0201 if one
// or more results were yielded but action failed for every one.
func (m *Manager) TryLocate(ctx context.Context, element string, aoi *AOI, action Action) error {
	kind, query := Classify(element)

	var crop *CropRect
	if aoi != nil {
		if err := aoi.Validate(); err != nil {
			return err
		}
		if !aoi.IsFullFrame() && (kind == KindText || kind == KindImage) {
			w, h, err := m.frameSize(ctx)
			if err != nil {
				return opticserr.Wrap(opticserr.CodeElementInvalidAOI, err)
			}
			c := aoi.Crop(w, h)
			crop = &c
		}
	}

	strategies := m.strategiesFor(kind)

	yielded := 0
	var lastActionErr error
	for _, s := range strategies {
		result, err := s.attempt(ctx, query, crop)
		if err != nil {
			continue
		}
		if crop != nil && result.IsCoordinate {
			result.X, result.Y = crop.Shift(result.X, result.Y)
		}
		result.Strategy = s.name
		yielded++
		if actionErr := action(result); actionErr == nil {
			return nil
		} else {
			lastActionErr = actionErr
		}
	}

	if yielded == 0 {
		return opticserr.New(opticserr.CodeElementNotFound).
			WithDetails("element", element).WithDetails("kind", string(kind))
	}
	return opticserr.Wrap(opticserr.CodeElementExhausted, lastActionErr).
		WithDetails("element", element).WithDetails("attempts", yielded)
}

// Locate is a convenience wrapper over TryLocate that returns the first
// successful strategy's LocateResult without invoking a caller action.
func (m *Manager) Locate(ctx context.Context, element string, aoi *AOI) (backend.LocateResult, error) {
	var found backend.LocateResult
	err := m.TryLocate(ctx, element, aoi, func(r backend.LocateResult) error {
		found = r
		return nil
	})
	return found, err
}

// frameSizer is an optional fast-path contract a screenshot-capable
// backend may implement to report its frame size without re-encoding a
// full image. Backends that don't implement it still work: frameSize
// falls back to decoding the screenshot's image headers.
type frameSizer interface {
	FrameSize(ctx context.Context) (width, height int, err error)
}

// frameSize determines the pixel dimensions of the first registered
// ElementSource's screenshot, used to convert an AOI's percentages into
// a pixel CropRect (spec §4.5.5).
func (m *Manager) frameSize(ctx context.Context) (int, int, error) {
	sources := m.registry.ElementSources()
	if len(sources) == 0 {
		return 0, 0, opticserr.New(opticserr.CodeScreenshotEmpty).
			WithDetails("reason", "no element source registered to capture a frame")
	}
	src := sources[0]
	if fs, ok := src.(frameSizer); ok {
		return fs.FrameSize(ctx)
	}
	shot, err := src.Screenshot(ctx)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(shot))
	if err != nil {
		return 0, 0, opticserr.Wrap(opticserr.CodeScreenshotEmpty, err)
	}
	return cfg.Width, cfg.Height, nil
}
