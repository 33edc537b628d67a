package coerce

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    map[string]any
		wantErr bool
	}{
		{"direct object", `{"a":1}`, map[string]any{"a": float64(1)}, false},
		{"direct object padded", "  {\"a\": 1}\n", map[string]any{"a": float64(1)}, false},
		{"fenced json", "```json\n{\"a\":1}\n```", map[string]any{"a": float64(1)}, false},
		{"fenced no lang", "```\n{\"a\":1}\n```", map[string]any{"a": float64(1)}, false},
		{"brace slice", `noise {"a":1} trailing`, map[string]any{"a": float64(1)}, false},
		{"nested braces", `text {"a":{"b":2}} more`, map[string]any{"a": map[string]any{"b": float64(2)}}, false},
		{"not json", "not json at all", nil, true},
		{"array is not an object", `[1,2,3]`, nil, true},
		{"primitive is not an object", `42`, nil, true},
		{"empty", "", nil, true},
		{"whitespace only", "  \n\t", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JSONObject(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("JSONObject(%q) = %v, want error", tt.text, got)
				}
				if got != nil {
					t.Errorf("value must be nil on error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("JSONObject(%q) error = %v", tt.text, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("JSONObject(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestJSONObjectEmptyError(t *testing.T) {
	if _, err := JSONObject(""); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("error = %v, want ErrEmptyResponse", err)
	}
}

func TestJSONObjectIdempotent(t *testing.T) {
	first, err := JSONObject("```json\n{\"a\":1,\"b\":\"x\"}\n```")
	if err != nil {
		t.Fatalf("first coercion error = %v", err)
	}

	reserialized, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}

	second, err := JSONObject(string(reserialized))
	if err != nil {
		t.Fatalf("second coercion error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("coercion not idempotent: %v != %v", first, second)
	}
}
