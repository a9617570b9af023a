package request

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/kailas-cloud/newsdex/internal/domain"
)

func TestFromValues(t *testing.T) {
	args := FromValues(url.Values{
		"q":          {"budget"},
		"navigation": {"n1", "n2"},
		"empty":      {},
	})
	if args.String("q") != "budget" {
		t.Errorf("q = %v", args["q"])
	}
	nav, ok, err := args.List("navigation")
	if err != nil || !ok || len(nav) != 2 {
		t.Errorf("navigation = %v, %v, %v", nav, ok, err)
	}
	if args.Has("empty") {
		t.Error("empty values should be dropped")
	}
}

func TestArgs_Int(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   int
		wantOK bool
		err    bool
	}{
		{"absent", nil, 0, false, false},
		{"string", "25", 25, true, false},
		{"int", 10, 10, true, false},
		{"float_whole", float64(3), 3, true, false},
		{"float_fraction", 2.5, 0, true, true},
		{"garbage", "abc", 0, true, true},
		{"empty", "", 0, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := Args{}
			if tc.value != nil {
				args["size"] = tc.value
			}
			n, ok, err := args.Int("size")
			if (err != nil) != tc.err {
				t.Fatalf("err = %v, want error %v", err, tc.err)
			}
			if n != tc.want || ok != tc.wantOK {
				t.Errorf("Int() = %d, %v; want %d, %v", n, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestArgs_Bool(t *testing.T) {
	args := Args{"a": "false", "b": "true", "c": true, "d": "0", "e": ""}
	if args.Bool("a", true) {
		t.Error("a should be false")
	}
	if !args.Bool("b", false) || !args.Bool("c", false) {
		t.Error("b and c should be true")
	}
	if args.Bool("d", true) {
		t.Error("d should be false")
	}
	if !args.Bool("e", true) || !args.Bool("missing", true) {
		t.Error("empty and missing use default")
	}
}

func TestArgs_List(t *testing.T) {
	args := Args{
		"s":   "a, b,,c",
		"l":   []string{"x"},
		"any": []any{"p", "q"},
		"bad": 42,
		"mix": []any{"p", 1},
	}
	got, ok, err := args.List("s")
	if err != nil || !ok || strings.Join(got, "|") != "a|b|c" {
		t.Errorf("List(s) = %v, %v, %v", got, ok, err)
	}
	if got, _, _ := args.List("l"); len(got) != 1 || got[0] != "x" {
		t.Errorf("List(l) = %v", got)
	}
	if got, _, _ := args.List("any"); len(got) != 2 {
		t.Errorf("List(any) = %v", got)
	}
	if _, _, err := args.List("bad"); err == nil {
		t.Error("expected error for integer")
	}
	if _, _, err := args.List("mix"); err == nil {
		t.Error("expected error for mixed list")
	}
	if _, ok, _ := args.List("missing"); ok {
		t.Error("missing key should report ok=false")
	}
}

func TestArgs_Object(t *testing.T) {
	args := Args{
		"json": `{"genre":["Sport"]}`,
		"map":  map[string]any{"genre": []string{"Sport"}},
		"bad":  `["not","an","object"]`,
	}
	obj, ok, err := args.Object("json")
	if err != nil || !ok || string(obj["genre"]) != `["Sport"]` {
		t.Errorf("Object(json) = %v, %v, %v", obj, ok, err)
	}
	obj, _, err = args.Object("map")
	if err != nil || string(obj["genre"]) != `["Sport"]` {
		t.Errorf("Object(map) = %v, %v", obj, err)
	}
	if _, _, err := args.Object("bad"); err == nil {
		t.Error("expected error for JSON array")
	}
}

func TestArgs_CloneIsIndependent(t *testing.T) {
	a := Args{"q": "x"}
	b := a.Clone()
	b["ignore_latest"] = true
	if a.Has("ignore_latest") {
		t.Error("Clone must not share the map")
	}
}

func TestNew_QueryTooLong(t *testing.T) {
	_, err := New("u1", Args{"q": strings.Repeat("a", MaxQueryLength+1)})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	r, err := New("u1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Args == nil {
		t.Error("Args should be initialized")
	}
}
