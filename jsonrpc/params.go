package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Args is the ordered argument list handed to a handler. A nil entry means
// the argument was not supplied.
type Args []json.RawMessage

// Len returns the number of argument slots.
func (a Args) Len() int { return len(a) }

// Has reports whether argument i was supplied (null counts as supplied).
func (a Args) Has(i int) bool {
	return i >= 0 && i < len(a) && a[i] != nil
}

// Decode unmarshals argument i into dst. Missing arguments leave dst unchanged.
func (a Args) Decode(i int, dst any) error {
	if !a.Has(i) {
		return nil
	}
	if err := json.Unmarshal(a[i], dst); err != nil {
		return fmt.Errorf("param %d: %w", i, err)
	}
	return nil
}

// ResolveParams maps the params member of a request onto the ordered formal
// parameter names of a method.
//
//   - absent or null params: every slot is missing.
//   - array: positional; more items than names is an error, fewer are padded
//     with missing slots.
//   - object: values are reordered by name; missing names stay missing and
//     unknown keys are an error.
//   - anything else is an error.
func ResolveParams(params json.RawMessage, names []string) (Args, error) {
	args := make(Args, len(names))

	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return args, nil
	}

	switch trimmed[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("params: %w", err)
		}
		if len(list) > len(names) {
			return nil, fmt.Errorf("too many params: got %d, want at most %d", len(list), len(names))
		}
		copy(args, list)
		return args, nil
	case '{':
		var named map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &named); err != nil {
			return nil, fmt.Errorf("params: %w", err)
		}
		var unknown []string
		for k := range named {
			if !slices.Contains(names, k) {
				unknown = append(unknown, k)
			}
		}
		if len(unknown) > 0 {
			slices.Sort(unknown)
			return nil, fmt.Errorf("unknown params: %s", strings.Join(unknown, ", "))
		}
		for i, name := range names {
			if v, ok := named[name]; ok {
				args[i] = v
			}
		}
		return args, nil
	}
	return nil, fmt.Errorf("params must be an array or an object")
}
