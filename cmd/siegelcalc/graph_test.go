package main

import (
	"errors"
	"math/big"
	"testing"

	"siegelcore/pkg/construction"
)

func TestParseGraphBuildsEveryKind(t *testing.T) {
	data := []byte(`{
  "constructions": [
    {"name": "f10", "kind": "leaf", "sym_weight": 2, "inc": 0, "combinations": [[4], [6]]},
    {"name": "t2", "kind": "hecke", "base": "f10", "m": 2},
    {"name": "poly", "kind": "leaf", "sym_weight": 2, "inc": 0,
     "combinations": [[4], {"terms": [{"gens": [6], "coeff": "2"}]}]},
    {"name": "quot", "kind": "divide", "bases": ["t2", "f10"], "coeffs": ["1", "-3/2"],
     "divisor": [4], "inc": 2},
    {"name": "scaled", "kind": "mul", "base": "quot", "scalar": [4]}
  ]
}`)
	g, err := ParseGraph(data)
	if err != nil {
		t.Fatalf("ParseGraph: %v", err)
	}

	leafNode, ok := g.Node("f10")
	if !ok {
		t.Fatal("f10 missing")
	}
	if _, isLeaf := leafNode.(*construction.Leaf); !isLeaf {
		t.Fatalf("f10 is %T, want leaf", leafNode)
	}

	heckeNode, _ := g.Node("t2")
	hecke, ok := heckeNode.(*construction.HeckeTransform)
	if !ok || hecke.M() != 2 {
		t.Fatalf("t2 decoded wrong: %#v", heckeNode)
	}
	if g.NameByHash(hecke.Key().Hash()) != "t2" {
		t.Fatal("hash lookup must return the declared name")
	}

	quotNode, _ := g.Node("quot")
	quot, ok := quotNode.(*construction.LinearDivide)
	if !ok {
		t.Fatalf("quot is %T, want divide", quotNode)
	}
	if quot.Weight() != 6 {
		t.Fatalf("quot weight %d, want 10-4", quot.Weight())
	}
	if quot.Inc() != 2 {
		t.Fatalf("quot inc %d, want 2", quot.Inc())
	}
	if coeffs := quot.Coeffs(); coeffs[1].Cmp(big.NewRat(-3, 2)) != 0 {
		t.Fatalf("quot coeffs %v", coeffs)
	}

	scaledNode, _ := g.Node("scaled")
	if _, isMul := scaledNode.(*construction.ScalarMultiply); !isMul {
		t.Fatalf("scaled is %T, want mul", scaledNode)
	}

	// Without explicit roots, unreferenced constructions are the roots.
	roots := g.RootNames()
	if len(roots) != 2 || roots[0] != "poly" || roots[1] != "scaled" {
		t.Fatalf("default roots %v, want [poly scaled]", roots)
	}
}

func TestParseGraphExplicitRoots(t *testing.T) {
	data := []byte(`{
  "constructions": [
    {"name": "f10", "kind": "leaf", "sym_weight": 2, "inc": 0, "combinations": [[4], [6]]},
    {"name": "t2", "kind": "hecke", "base": "f10", "m": 2}
  ],
  "roots": ["f10"]
}`)
	g, err := ParseGraph(data)
	if err != nil {
		t.Fatalf("ParseGraph: %v", err)
	}
	roots := g.Roots()
	if len(roots) != 1 {
		t.Fatalf("got %d roots, want 1", len(roots))
	}
	want, _ := g.Node("f10")
	if !roots[0].Key().Equal(want.Key()) {
		t.Fatalf("root is %s, want f10", roots[0].Key())
	}
}

func TestParseGraphErrors(t *testing.T) {
	leaf := `{"name": "f10", "kind": "leaf", "sym_weight": 2, "inc": 0, "combinations": [[4], [6]]}`
	cases := []struct {
		name       string
		data       string
		wantConfig bool
	}{
		{"empty graph", `{"constructions": []}`, true},
		{"unnamed construction", `{"constructions": [{"kind": "leaf", "sym_weight": 2, "inc": 0, "combinations": [[4], [6]]}]}`, true},
		{"duplicate name", `{"constructions": [` + leaf + `, ` + leaf + `]}`, true},
		{"missing kind", `{"constructions": [{"name": "x"}]}`, true},
		{"unknown kind", `{"constructions": [{"name": "x", "kind": "spin"}]}`, true},
		{"undeclared reference", `{"constructions": [{"name": "x", "kind": "hecke", "base": "nope", "m": 2}]}`, true},
		{"forward reference", `{"constructions": [{"name": "x", "kind": "hecke", "base": "f10", "m": 2}, ` + leaf + `]}`, true},
		{"missing sym weight", `{"constructions": [{"name": "x", "kind": "leaf", "inc": 0, "combinations": [[4], [6]]}]}`, true},
		{"bad bracket arity", `{"constructions": [{"name": "x", "kind": "leaf", "sym_weight": 2, "inc": 0, "combinations": [[4]]}]}`, true},
		{"unknown generator", `{"constructions": [{"name": "x", "kind": "leaf", "sym_weight": 2, "inc": 0, "combinations": [[4], [7]]}]}`, true},
		{"bad coefficient", `{"constructions": [` + leaf + `, {"name": "d", "kind": "divide", "bases": ["f10"], "coeffs": ["x"], "divisor": [4]}]}`, true},
		{"undeclared root", `{"constructions": [` + leaf + `], "roots": ["nope"]}`, true},
		{"malformed json", `{"constructions": [}`, false},
		{"unknown field", `{"constructions": [` + leaf + `], "extra": 1}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseGraph([]byte(tc.data))
			if err == nil {
				t.Fatal("expected error")
			}
			var cfg construction.ConfigurationError
			if got := errors.As(err, &cfg); got != tc.wantConfig {
				t.Fatalf("configuration classification = %v, want %v (err: %v)", got, tc.wantConfig, err)
			}
		})
	}
}

func TestLoadGraphMissingFile(t *testing.T) {
	if _, err := LoadGraph("does-not-exist.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
