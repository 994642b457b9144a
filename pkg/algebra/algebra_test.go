package algebra

import (
	"bytes"
	"encoding/json"
	"math/big"
	"testing"
)

func TestIndexValid(t *testing.T) {
	cases := []struct {
		ix   Index
		want bool
	}{
		{Index{0, 0, 0}, true},
		{Index{1, 0, 1}, true},
		{Index{1, 2, 1}, true},
		{Index{1, 3, 1}, false},
		{Index{-1, 0, 0}, false},
		{Index{0, 0, -2}, false},
		{Index{2, -2, 1}, true},
		{Index{2, 3, 1}, false},
	}
	for _, tc := range cases {
		if got := tc.ix.Valid(); got != tc.want {
			t.Errorf("Valid(%v) = %v, want %v", tc.ix, got, tc.want)
		}
	}
}

func TestIndexDet4(t *testing.T) {
	ix := Index{N: 2, R: 1, M: 3}
	if got := ix.Det4(); got != 23 {
		t.Fatalf("Det4 = %d, want 23", got)
	}
}

func TestIndexLess(t *testing.T) {
	ordered := []Index{
		{0, 0, 0},
		{0, 0, 1},
		{1, -1, 1},
		{1, 0, 0},
		{1, 0, 1},
		{2, 0, 0},
	}
	for i := 0; i < len(ordered)-1; i++ {
		if !ordered[i].Less(ordered[i+1]) {
			t.Errorf("expected %v < %v", ordered[i], ordered[i+1])
		}
		if ordered[i+1].Less(ordered[i]) {
			t.Errorf("unexpected %v < %v", ordered[i+1], ordered[i])
		}
	}
	if ordered[0].Less(ordered[0]) {
		t.Error("index must not be less than itself")
	}
}

func TestScalarTermWeight(t *testing.T) {
	term := ScalarTerm{Gens: []int{4, 6, 5}, Coeff: big.NewRat(1, 2)}
	if got := term.Weight(); got != 15 {
		t.Fatalf("Weight = %d, want 15", got)
	}
}

func TestVecJSONRoundTrip(t *testing.T) {
	v := Vec{big.NewRat(1, 3), big.NewRat(-7, 2), new(big.Rat)}
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Vec
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !v.Equal(back) {
		t.Fatalf("round trip mismatch: %s vs %s", data, back)
	}
	again, err := json.Marshal(back)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Fatalf("encoding not stable: %s vs %s", data, again)
	}
}

func TestVecUnmarshalRejectsGarbage(t *testing.T) {
	var v Vec
	if err := json.Unmarshal([]byte(`["1/2","nope"]`), &v); err == nil {
		t.Fatal("expected error for invalid rational")
	}
}

func TestVecArithmetic(t *testing.T) {
	v := NewVec(3)
	if !v.IsZero() {
		t.Fatal("fresh vector should be zero")
	}
	w := Vec{big.NewRat(1, 2), big.NewRat(2, 1), big.NewRat(0, 1)}
	v.AddInto(w)
	if !v.Equal(w) {
		t.Fatalf("add into zero changed values: %v", v)
	}
	v.ScaleInto(big.NewRat(2, 1))
	want := Vec{big.NewRat(1, 1), big.NewRat(4, 1), new(big.Rat)}
	if !v.Equal(want) {
		t.Fatalf("scale = %v, want %v", v, want)
	}
	if v.IsZero() {
		t.Fatal("scaled vector should be nonzero")
	}
	clone := v.Clone()
	clone.ScaleInto(big.NewRat(0, 1))
	if v.IsZero() {
		t.Fatal("clone must not alias original")
	}
}
