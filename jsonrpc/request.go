package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Version is the only protocol version accepted and emitted.
const Version = "2.0"

// MaxSafeInteger is the largest integer id representable without precision
// loss in an IEEE 754 double.
const MaxSafeInteger = 1<<53 - 1

type idKind uint8

const (
	idAbsent idKind = iota
	idNull
	idString
	idNumber
)

// ID is a request identifier: a string, a safe integer, null, or absent.
// The zero value is the absent id.
type ID struct {
	kind idKind
	str  string
	num  int64
}

// StringID returns a string identifier.
func StringID(s string) ID { return ID{kind: idString, str: s} }

// IntID returns an integer identifier. It panics if n is outside the safe
// integer range.
func IntID(n int64) ID {
	if n > MaxSafeInteger || n < -MaxSafeInteger {
		panic("jsonrpc: integer id out of safe range: " + strconv.FormatInt(n, 10))
	}
	return ID{kind: idNumber, num: n}
}

// NullID returns the explicit null identifier.
func NullID() ID { return ID{kind: idNull} }

// IsNotification reports whether the id is absent or null.
func (id ID) IsNotification() bool {
	return id.kind == idAbsent || id.kind == idNull
}

// Value returns the id as string, int64, or nil.
func (id ID) Value() any {
	switch id.kind {
	case idString:
		return id.str
	case idNumber:
		return id.num
	default:
		return nil
	}
}

func (id ID) String() string {
	switch id.kind {
	case idString:
		return strconv.Quote(id.str)
	case idNumber:
		return strconv.FormatInt(id.num, 10)
	case idNull:
		return "null"
	default:
		return "<absent>"
	}
}

// MarshalJSON encodes absent and null ids as null.
func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idString:
		return json.Marshal(id.str)
	case idNumber:
		return []byte(strconv.FormatInt(id.num, 10)), nil
	default:
		return []byte("null"), nil
	}
}

func (id *ID) UnmarshalJSON(b []byte) error {
	parsed, err := parseID(b)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

var errInvalidID = errors.New("id must be a string, a safe integer, or null")

func parseID(raw json.RawMessage) (ID, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ID{}, nil
	}
	switch raw[0] {
	case 'n':
		if string(raw) == "null" {
			return NullID(), nil
		}
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ID{}, fmt.Errorf("%w: %v", errInvalidID, err)
		}
		return StringID(s), nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		// Integral values written as 1.0 or 1e3 are the same number once
		// decoded, so they are accepted.
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || f != math.Trunc(f) || math.Abs(f) > MaxSafeInteger {
			return ID{}, fmt.Errorf("%w: got %s", errInvalidID, raw)
		}
		return ID{kind: idNumber, num: int64(f)}, nil
	}
	return ID{}, fmt.Errorf("%w: got %s", errInvalidID, raw)
}

// Request is one validated JSON-RPC call.
type Request struct {
	ID     ID
	Method string
	// Params is the raw params member; nil when absent. Its shape is checked
	// during parameter resolution.
	Params json.RawMessage
}

// IsNotification reports whether the caller expects no response.
func (r *Request) IsNotification() bool {
	return r.ID.IsNotification()
}

// MarshalJSON encodes the request in wire form; absent ids and params are omitted.
func (r *Request) MarshalJSON() ([]byte, error) {
	type wire struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      *ID             `json:"id,omitempty"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}
	w := wire{JSONRPC: Version, Method: r.Method, Params: r.Params}
	if r.ID.kind != idAbsent {
		id := r.ID
		w.ID = &id
	}
	return json.Marshal(w)
}

// ParseRequest validates one decoded payload item and builds a Request.
//
// Checks run in order: the payload must be an object, jsonrpc must be the
// string "2.0", id must be a valid identifier, method must be a non-empty
// string. Params are not inspected.
func ParseRequest(raw json.RawMessage) (*Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("request must be a JSON object")
	}

	var version string
	if v, ok := fields["jsonrpc"]; !ok {
		return nil, errors.New("missing jsonrpc member")
	} else if err := json.Unmarshal(v, &version); err != nil || version != Version {
		return nil, fmt.Errorf("jsonrpc member must be %q", Version)
	}

	id, err := parseID(fields["id"])
	if err != nil {
		return nil, err
	}

	var method string
	if m, ok := fields["method"]; !ok {
		return nil, errors.New("missing method member")
	} else if len(m) == 0 || m[0] != '"' {
		return nil, errors.New("method must be a string")
	} else if err := json.Unmarshal(m, &method); err != nil {
		return nil, fmt.Errorf("method must be a string: %w", err)
	}
	if method == "" {
		return nil, errors.New("method must not be empty")
	}

	req := &Request{ID: id, Method: method}
	if p, ok := fields["params"]; ok {
		req.Params = p
	}
	return req, nil
}
