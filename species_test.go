package mace

import "testing"

func TestSpeciesTable(Te *testing.T) {
	//input order must not matter
	T, err := NewSpeciesTable(8, 1, 6, 8, 1)
	if err != nil {
		Te.Fatal(err)
	}
	if T.Len() != 3 {
		Te.Fatalf("table has %d species, want 3", T.Len())
	}
	for i, z := range []int{1, 6, 8} {
		if T.Z(i) != z {
			Te.Errorf("index %d maps to Z=%d, want %d", i, T.Z(i), z)
		}
		got, err := T.Index(z)
		if err != nil || got != i {
			Te.Errorf("Z=%d maps to index %d (%v), want %d", z, got, err, i)
		}
	}
	var derr *DomainError
	if _, err := T.Index(79); err == nil {
		Te.Error("unknown element accepted")
	} else if _, ok := err.(*DomainError); !ok {
		Te.Errorf("got %T, want %T", err, derr)
	}
	idx, err := T.Indices([]int{6, 6, 8, 1})
	if err != nil {
		Te.Fatal(err)
	}
	want := []int{1, 1, 2, 0}
	for i := range want {
		if idx[i] != want[i] {
			Te.Errorf("indices %v, want %v", idx, want)
			break
		}
	}
	if _, err := NewSpeciesTable(); err == nil {
		Te.Error("empty table accepted")
	}
	if _, err := NewSpeciesTable(0); err == nil {
		Te.Error("atomic number zero accepted")
	}
}

func TestSpeciesFromSymbols(Te *testing.T) {
	T, err := NewSpeciesTableFromSymbols("O", "H", "C", "H")
	if err != nil {
		Te.Fatal(err)
	}
	if T.Len() != 3 || T.Z(0) != 1 || T.Z(2) != 8 {
		Te.Errorf("table from symbols: %d species, Z(0)=%d", T.Len(), T.Z(0))
	}
	if _, err := NewSpeciesTableFromSymbols("Xx"); err == nil {
		Te.Error("unknown symbol accepted")
	}
	if z, err := AtomicNumber("Fe"); err != nil || z != 26 {
		Te.Errorf("Fe gave %d, %v", z, err)
	}
}
