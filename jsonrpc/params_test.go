package jsonrpc

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestResolveParams(t *testing.T) {
	names := []string{"a", "b"}
	tests := []struct {
		name    string
		params  string
		want    []string // raw per slot; "" means missing
		wantErr string
	}{
		{name: "absent", params: ``, want: []string{"", ""}},
		{name: "null", params: `null`, want: []string{"", ""}},
		{name: "positional", params: `[1,2]`, want: []string{"1", "2"}},
		{name: "positional short", params: `[1]`, want: []string{"1", ""}},
		{name: "positional empty", params: `[]`, want: []string{"", ""}},
		{name: "positional null item", params: `[null,2]`, want: []string{"null", "2"}},
		{name: "named", params: `{"b":2,"a":1}`, want: []string{"1", "2"}},
		{name: "named partial", params: `{"b":2}`, want: []string{"", "2"}},
		{name: "too many positional", params: `[1,2,3]`, wantErr: "too many params"},
		{name: "unknown named", params: `{"a":1,"z":0,"c":3}`, wantErr: "unknown params: c, z"},
		{name: "scalar", params: `5`, wantErr: "params must be an array or an object"},
		{name: "string", params: `"x"`, wantErr: "params must be an array or an object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.params != "" {
				raw = json.RawMessage(tt.params)
			}
			args, err := ResolveParams(raw, names)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("got error %v, want one containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if args.Len() != len(names) {
				t.Fatalf("len = %d, want %d", args.Len(), len(names))
			}
			for i, want := range tt.want {
				if want == "" {
					if args.Has(i) {
						t.Errorf("slot %d: want missing, got %s", i, args[i])
					}
					continue
				}
				if !args.Has(i) || string(args[i]) != want {
					t.Errorf("slot %d: got %s, want %s", i, args[i], want)
				}
			}
		})
	}
}

func TestResolveParams_NoFormalParams(t *testing.T) {
	args, err := ResolveParams(json.RawMessage(`[]`), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args.Len() != 0 {
		t.Errorf("len = %d, want 0", args.Len())
	}

	if _, err := ResolveParams(json.RawMessage(`[1]`), nil); err == nil {
		t.Error("expected error for surplus positional param")
	}
}

func TestArgs_Decode(t *testing.T) {
	args := Args{json.RawMessage(`7`), nil, json.RawMessage(`"x"`)}

	var n int
	if err := args.Decode(0, &n); err != nil || n != 7 {
		t.Errorf("Decode(0) = %d, %v; want 7", n, err)
	}

	missing := 99
	if err := args.Decode(1, &missing); err != nil || missing != 99 {
		t.Errorf("Decode of missing slot changed dst: %d, %v", missing, err)
	}
	if err := args.Decode(5, &missing); err != nil || missing != 99 {
		t.Errorf("Decode out of range changed dst: %d, %v", missing, err)
	}

	if err := args.Decode(2, &n); err == nil {
		t.Error("expected type mismatch error")
	}
}
