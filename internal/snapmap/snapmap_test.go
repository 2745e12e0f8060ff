package snapmap

import (
	"encoding/json"
	"testing"
)

type payload struct {
	Owner   string `json:"owner"`
	Balance int    `json:"balance"`
}

func TestToMapFlattensStructByJSONTags(t *testing.T) {
	out, err := ToMap(payload{Owner: "ada", Balance: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["owner"] != "ada" {
		t.Fatalf("expected json tag keys, got %v", out)
	}
	if out["balance"] != float64(10) {
		t.Fatalf("expected numeric value via JSON round trip, got %T", out["balance"])
	}
}

func TestToMapPassesMapsThrough(t *testing.T) {
	src := map[string]any{"a": 1}
	out, err := ToMap(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["a"] != 1 {
		t.Fatalf("expected passthrough without re-encoding, got %v", out["a"])
	}
}

func TestToMapRejectsNonObjects(t *testing.T) {
	if _, err := ToMap(nil); err == nil {
		t.Fatalf("expected error for nil value")
	}
	if _, err := ToMap(42); err == nil {
		t.Fatalf("expected error for scalar value")
	}
	if _, err := ToMap([]int{1}); err == nil {
		t.Fatalf("expected error for slice value")
	}
}

func TestDecodeRebuildsTypedValue(t *testing.T) {
	out, err := Decode[payload](map[string]any{
		"owner":   "ada",
		"balance": 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Owner != "ada" || out.Balance != 10 {
		t.Fatalf("unexpected decode result %+v", out)
	}
}

func TestDecodeHonoursDecoderConfiguration(t *testing.T) {
	type numbers struct {
		Value any `json:"value"`
	}
	out, err := Decode[numbers](map[string]any{"value": 10}, func(d *json.Decoder) {
		d.UseNumber()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out.Value.(json.Number); !ok {
		t.Fatalf("expected json.Number, got %T", out.Value)
	}
}

func TestDecodeRejectsNilPayload(t *testing.T) {
	if _, err := Decode[payload](nil); err == nil {
		t.Fatalf("expected error for nil payload")
	}
}
