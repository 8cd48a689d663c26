package keywords

import (
	"context"
	"fmt"
	"reflect"
)

// ctxType and stringSliceType are used to recognize a method's
// parameter shape during a method scan.
var (
	ctxType         = reflect.TypeOf((*context.Context)(nil)).Elem()
	stringSliceType = reflect.TypeOf([]string(nil))
	errType         = reflect.TypeOf((*error)(nil)).Elem()
)

// RawParams describes, for one scanned method, which of its declared
// string parameters are raw (spec §4.7.3). Keyed by the method's Go name
// (exactly as written on the receiver, before normalization).
type RawParams map[string][]int

// ScanMethods discovers every exported method on receiver matching the
// keyword call shape:
//
//	func(ctx context.Context, args ...string) (any, error)
//
// and registers each one under its normalized method name (spec §4.10:
// "the registry discovers a keyword's parameter shape directly from the
// implementing callable's signature, rather than a separate declaration").
// rawParams optionally marks parameter positions as raw for specific
// method names; methods not mentioned default to no raw parameters.
func (r *Registry) ScanMethods(receiver any, rawParams RawParams) error {
	v := reflect.ValueOf(receiver)
	t := v.Type()

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		arity, ok := matchKeywordShape(m.Func.Type())
		if !ok {
			continue
		}

		method := v.Method(i)
		var mask uint64
		for _, pos := range rawParams[m.Name] {
			if pos >= 0 && pos < 64 {
				mask |= 1 << uint(pos)
			}
		}

		kw := Keyword{
			Name:      m.Name,
			Arity:     arity,
			RawParams: mask,
			Func: func(ctx context.Context, args []string) (any, error) {
				out := method.Call([]reflect.Value{
					reflect.ValueOf(ctx),
					reflect.ValueOf(args),
				})
				var result any
				if !out[0].IsNil() {
					result = out[0].Interface()
				}
				var err error
				if !out[1].IsNil() {
					err = out[1].Interface().(error)
				}
				return result, err
			},
		}
		if err := r.Register(kw); err != nil {
			return fmt.Errorf("scanning %s.%s: %w", t.Name(), m.Name, err)
		}
	}
	return nil
}

// matchKeywordShape reports whether fn (an unbound reflect.Type.Method
// function type, so its first parameter is always the receiver) is
// func(receiver, context.Context, []string) (any, error).
func matchKeywordShape(fn reflect.Type) (arity int, ok bool) {
	if fn.NumIn() != 3 {
		return 0, false
	}
	if fn.In(1) != ctxType {
		return 0, false
	}
	if fn.In(2) != stringSliceType {
		return 0, false
	}
	if fn.NumOut() != 2 || fn.Out(1) != errType {
		return 0, false
	}
	return -1, true
}
