package jsonrpc

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// ErrDuplicateMethod is returned when a name is registered twice.
var ErrDuplicateMethod = errors.New("jsonrpc: duplicate method")

// HandlerFunc executes one call. args holds one slot per declared parameter
// name, in declaration order.
type HandlerFunc func(c *Call, args Args) (any, error)

// Method is a handler together with its ordered formal parameter names.
// Named params are mapped to positions using ParamNames.
type Method struct {
	Handler    HandlerFunc
	ParamNames []string

	// err records a construction failure from one of the adapters; it is
	// reported by Register.
	err error
}

// Registry holds named methods. A registry may carry a namespace, in which
// case every name registered on it becomes "<namespace>.<name>".
//
// Registration is expected to complete before traffic is served; lookups
// are safe for concurrent use regardless.
type Registry struct {
	namespace string

	mu      sync.RWMutex
	methods map[string]Method
}

// NewRegistry creates an empty registry. Use an empty namespace for no prefix.
func NewRegistry(namespace string) *Registry {
	return &Registry{
		namespace: namespace,
		methods:   make(map[string]Method),
	}
}

// Namespace returns the registry's name prefix.
func (r *Registry) Namespace() string { return r.namespace }

func (r *Registry) qualify(name string) string {
	if r.namespace == "" {
		return name
	}
	return r.namespace + "." + name
}

// Register adds m under name. It fails if the qualified name is already
// taken; the existing method is left in place.
func (r *Registry) Register(name string, m Method) error {
	if name == "" {
		return errors.New("jsonrpc: empty method name")
	}
	if m.err != nil {
		return fmt.Errorf("jsonrpc: register %s: %w", name, m.err)
	}
	if m.Handler == nil {
		return fmt.Errorf("jsonrpc: register %s: nil handler", name)
	}
	for i, p := range m.ParamNames {
		if slices.Contains(m.ParamNames[:i], p) {
			return fmt.Errorf("jsonrpc: register %s: duplicate param name %q", name, p)
		}
	}

	full := r.qualify(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.methods[full]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMethod, full)
	}
	m.ParamNames = slices.Clone(m.ParamNames)
	r.methods[full] = m
	return nil
}

// RegisterFunc registers fn with the given formal parameter names.
func (r *Registry) RegisterFunc(name string, fn HandlerFunc, paramNames ...string) error {
	return r.Register(name, Method{Handler: fn, ParamNames: paramNames})
}

// Mount copies every method of other into r, prefixed with r's namespace.
// Nothing is copied if any name collides.
func (r *Registry) Mount(other *Registry) error {
	if other == r {
		return errors.New("jsonrpc: cannot mount a registry into itself")
	}
	other.mu.RLock()
	incoming := make(map[string]Method, len(other.methods))
	for name, m := range other.methods {
		incoming[r.qualify(name)] = m
	}
	other.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range incoming {
		if _, exists := r.methods[name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateMethod, name)
		}
	}
	for name, m := range incoming {
		r.methods[name] = m
	}
	return nil
}

// Lookup finds a method by its fully qualified name.
func (r *Registry) Lookup(name string) (Method, bool) {
	r.mu.RLock()
	m, ok := r.methods[name]
	r.mu.RUnlock()
	return m, ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

func decodeArg[T any](args Args, i int) (T, error) {
	var v T
	if err := args.Decode(i, &v); err != nil {
		return v, ErrInvalidParams(err)
	}
	return v, nil
}

// Func0 adapts a handler that takes no parameters.
func Func0[R any](fn func(c *Call) (R, error)) Method {
	return Method{
		Handler: func(c *Call, _ Args) (any, error) {
			res, err := fn(c)
			if err != nil {
				return nil, err
			}
			return res, nil
		},
	}
}

// Func1 adapts a one-parameter handler; name is the parameter's name.
func Func1[A, R any](fn func(c *Call, a A) (R, error), name string) Method {
	return Method{
		ParamNames: []string{name},
		Handler: func(c *Call, args Args) (any, error) {
			a, err := decodeArg[A](args, 0)
			if err != nil {
				return nil, err
			}
			res, err := fn(c, a)
			if err != nil {
				return nil, err
			}
			return res, nil
		},
	}
}

// Func2 adapts a two-parameter handler.
func Func2[A, B, R any](fn func(c *Call, a A, b B) (R, error), nameA, nameB string) Method {
	return Method{
		ParamNames: []string{nameA, nameB},
		Handler: func(c *Call, args Args) (any, error) {
			a, err := decodeArg[A](args, 0)
			if err != nil {
				return nil, err
			}
			b, err := decodeArg[B](args, 1)
			if err != nil {
				return nil, err
			}
			res, err := fn(c, a, b)
			if err != nil {
				return nil, err
			}
			return res, nil
		},
	}
}

// Func3 adapts a three-parameter handler.
func Func3[A, B, C, R any](fn func(c *Call, a A, b B, cc C) (R, error), nameA, nameB, nameC string) Method {
	return Method{
		ParamNames: []string{nameA, nameB, nameC},
		Handler: func(c *Call, args Args) (any, error) {
			a, err := decodeArg[A](args, 0)
			if err != nil {
				return nil, err
			}
			b, err := decodeArg[B](args, 1)
			if err != nil {
				return nil, err
			}
			cv, err := decodeArg[C](args, 2)
			if err != nil {
				return nil, err
			}
			res, err := fn(c, a, b, cv)
			if err != nil {
				return nil, err
			}
			return res, nil
		},
	}
}

// Struct adapts a handler whose parameters are the fields of a struct.
//
// Parameter names come from the fields' json tags (or the field name when
// untagged); fields tagged "-" and unexported fields are skipped. Positional
// params fill fields in declaration order.
//
//	type AddParams struct {
//	    A int `json:"a"`
//	    B int `json:"b"`
//	}
//
//	reg.Register("add", jsonrpc.Struct(func(c *jsonrpc.Call, p AddParams) (int, error) {
//	    return p.A + p.B, nil
//	}))
func Struct[P, R any](fn func(c *Call, params P) (R, error)) Method {
	names, fields, err := structParams(reflect.TypeFor[P]())
	if err != nil {
		return Method{err: err}
	}
	return Method{
		ParamNames: names,
		Handler: func(c *Call, args Args) (any, error) {
			var p P
			pv := reflect.ValueOf(&p).Elem()
			for i, idx := range fields {
				if err := args.Decode(i, pv.Field(idx).Addr().Interface()); err != nil {
					return nil, ErrInvalidParams(fmt.Errorf("%s: %w", names[i], err))
				}
			}
			res, err := fn(c, p)
			if err != nil {
				return nil, err
			}
			return res, nil
		},
	}
}

// structParams derives the ordered parameter names of a params struct and
// the field index backing each name.
func structParams(t reflect.Type) ([]string, []int, error) {
	if t.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("params type %s is not a struct", t)
	}
	names := make([]string, 0, t.NumField())
	fields := make([]int, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		if slices.Contains(names, name) {
			return nil, nil, fmt.Errorf("params type %s: duplicate param name %q", t, name)
		}
		names = append(names, name)
		fields = append(fields, i)
	}
	return names, fields, nil
}
