package sqlite

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/tally/pkg/types"
)

var (
	futureType        = reflect.TypeFor[types.Future]()
	marshalerType     = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()

	errCycle = errors.New("cyclic value")
)

// sanitize converts v to JSON suitable for storage. Values JSON cannot
// carry (funcs, channels, unsafe pointers, complex numbers, NaN and
// infinities, futures) are omitted from objects and become null inside
// arrays. It reports false when nothing storable remains: a nil root, a
// cycle, or a root that is itself omitted.
//
// When nothing is omitted the value is encoded with encoding/json directly,
// so field order and custom encodings are preserved exactly.
func sanitize(v any) (json.RawMessage, bool) {
	if v == nil {
		return nil, false
	}
	if raw, ok := v.(json.RawMessage); ok {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || !json.Valid(raw) || bytes.Equal(raw, []byte("null")) {
			return nil, false
		}
		return raw, true
	}

	s := &sanitizer{path: make(map[visit]bool)}
	tree, keep, err := s.walk(reflect.ValueOf(v))
	if err != nil || !keep || tree == nil {
		return nil, false
	}

	var data []byte
	if s.stripped {
		data, err = json.Marshal(tree)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil || bytes.Equal(data, []byte("null")) {
		return nil, false
	}
	return data, true
}

// visit identifies a reference-like value on the current walk path.
type visit struct {
	ptr  uintptr
	typ  reflect.Type
	size int
}

type sanitizer struct {
	path     map[visit]bool
	stripped bool
}

// omit records that something was dropped and tells the caller to skip it.
func (s *sanitizer) omit() (any, bool, error) {
	s.stripped = true
	return nil, false, nil
}

// enter marks a reference as being on the walk path, failing on re-entry.
func (s *sanitizer) enter(v reflect.Value, size int) (visit, error) {
	key := visit{ptr: v.Pointer(), typ: v.Type(), size: size}
	if s.path[key] {
		return key, errCycle
	}
	s.path[key] = true
	return key, nil
}

func (s *sanitizer) walk(v reflect.Value) (any, bool, error) {
	if !v.IsValid() {
		return nil, true, nil
	}
	if v.Type().Implements(futureType) && v.Kind() != reflect.Interface {
		return s.omit()
	}

	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer,
		reflect.Complex64, reflect.Complex128:
		return s.omit()
	case reflect.Interface:
		if v.IsNil() {
			return nil, true, nil
		}
		return s.walk(v.Elem())
	case reflect.Pointer:
		if v.IsNil() {
			return nil, true, nil
		}
		key, err := s.enter(v, 0)
		if err != nil {
			return nil, false, err
		}
		defer delete(s.path, key)
		if out, keep, ok, err := s.marshal(v); ok {
			return out, keep, err
		}
		return s.walk(v.Elem())
	}

	if out, keep, ok, err := s.marshal(v); ok {
		return out, keep, err
	}

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), true, nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return s.omit()
		}
		return f, true, nil
	case reflect.String:
		return v.String(), true, nil
	case reflect.Slice:
		if v.IsNil() {
			return nil, true, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Bytes(), true, nil
		}
		if v.Len() == 0 {
			return []any{}, true, nil
		}
		key, err := s.enter(v, v.Len())
		if err != nil {
			return nil, false, err
		}
		defer delete(s.path, key)
		return s.walkList(v)
	case reflect.Array:
		return s.walkList(v)
	case reflect.Map:
		if v.IsNil() {
			return nil, true, nil
		}
		key, err := s.enter(v, 0)
		if err != nil {
			return nil, false, err
		}
		defer delete(s.path, key)
		return s.walkMap(v)
	case reflect.Struct:
		out := make(map[string]any)
		if err := s.walkStruct(v, out); err != nil {
			return nil, false, err
		}
		return out, true, nil
	}
	return s.omit()
}

// marshal handles values with their own JSON or text encoding. handled
// reports whether v was one of them.
func (s *sanitizer) marshal(v reflect.Value) (out any, keep, handled bool, err error) {
	if !v.CanInterface() {
		return nil, false, false, nil
	}
	t := v.Type()
	switch {
	case t.Implements(marshalerType):
		data, err := v.Interface().(json.Marshaler).MarshalJSON()
		if err != nil {
			s.stripped = true
			return nil, false, true, nil
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			s.stripped = true
			return nil, false, true, nil
		}
		return out, true, true, nil
	case t.Implements(textMarshalerType):
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			s.stripped = true
			return nil, false, true, nil
		}
		return string(text), true, true, nil
	}
	return nil, false, false, nil
}

func (s *sanitizer) walkList(v reflect.Value) (any, bool, error) {
	out := make([]any, v.Len())
	for i := range out {
		elem, keep, err := s.walk(v.Index(i))
		if err != nil {
			return nil, false, err
		}
		if keep {
			out[i] = elem
		}
	}
	return out, true, nil
}

func (s *sanitizer) walkMap(v reflect.Value) (any, bool, error) {
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		name, ok := mapKey(iter.Key())
		if !ok {
			s.stripped = true
			continue
		}
		elem, keep, err := s.walk(iter.Value())
		if err != nil {
			return nil, false, err
		}
		if keep {
			out[name] = elem
		}
	}
	return out, true, nil
}

// walkStruct writes the exported fields of v into out, honoring json tags.
// Fields of embedded structs are promoted unless an outer field has the
// same name.
func (s *sanitizer) walkStruct(v reflect.Value, out map[string]any) error {
	t := v.Type()
	promoted := make(map[string]any)

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := v.Field(i)

		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := s.walkStruct(fv, promoted); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if hasOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}

		elem, keep, err := s.walk(fv)
		if err != nil {
			return err
		}
		if keep {
			out[name] = elem
		}
	}

	for name, elem := range promoted {
		if _, ok := out[name]; !ok {
			out[name] = elem
		}
	}
	return nil
}

func mapKey(k reflect.Value) (string, bool) {
	if k.Kind() == reflect.String {
		return k.String(), true
	}
	if k.CanInterface() && k.Type().Implements(textMarshalerType) {
		text, err := k.Interface().(encoding.TextMarshaler).MarshalText()
		return string(text), err == nil
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), true
	}
	return "", false
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}
