package rng

import (
	"testing"
)

func TestNew_Deterministic(t *testing.T) {
	a := New(42)
	b := New(42)

	for i := 0; i < 100; i++ {
		va, vb := a.Float64(), b.Float64()
		if va != vb {
			t.Fatalf("draw %d differs: %f vs %f", i, va, vb)
		}
		if va < 0 || va >= 1 {
			t.Fatalf("draw %d out of range: %f", i, va)
		}
	}
}

func TestNew_DifferentSeeds(t *testing.T) {
	a := New(1)
	b := New(2)

	same := 0
	for i := 0; i < 10; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	if same == 10 {
		t.Error("expected different seeds to produce different sequences")
	}
}

func TestSequence_Cycles(t *testing.T) {
	s := NewSequence(0.1, 0.9)

	got := []float64{s.Float64(), s.Float64(), s.Float64()}
	want := []float64{0.1, 0.9, 0.1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("draw %d: expected %f, got %f", i, want[i], got[i])
		}
	}
	if s.Draws() != 3 {
		t.Errorf("expected 3 draws, got %d", s.Draws())
	}
}

func TestSequence_Empty(t *testing.T) {
	s := NewSequence()
	if v := s.Float64(); v != 0.5 {
		t.Errorf("expected 0.5 from empty sequence, got %f", v)
	}
}
