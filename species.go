/*
 * species.go, part of gomace.
 *
 *
 * Copyright 2023 Raul Mera <rmera{at}usachDOTcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 * goMace is currently developed at the Universidad de Santiago de Chile
 * (USACH)
 *
 */

package mace

import "sort"

//A map for assigning atomic numbers to element symbols.
//Note that just common "bio-elements" are present
var symbolZ = map[string]int{
	"H":  1,
	"Be": 4,
	"C":  6,
	"N":  7,
	"O":  8,
	"F":  9,
	"Na": 11,
	"Mg": 12,
	"Si": 14,
	"P":  15,
	"S":  16,
	"Cl": 17,
	"K":  19,
	"Ca": 20,
	"Cr": 24,
	"Mn": 25,
	"Fe": 26,
	"Co": 27,
	"Cu": 29,
	"Zn": 30,
	"Se": 34,
	"Br": 35,
	"I":  53,
}

//AtomicNumber returns the atomic number for an element symbol, or a
//DomainError for a symbol not in the table.
func AtomicNumber(symbol string) (int, error) {
	z, ok := symbolZ[symbol]
	if !ok {
		return 0, domainErrorf("goMace: unknown element symbol %q", symbol)
	}
	return z, nil
}

//SpeciesTable maps the atomic numbers present in a dataset to the
//contiguous indices the model works with. The mapping is sorted by
//atomic number, so a table built from the same set of elements is
//always the same regardless of input order.
type SpeciesTable struct {
	zs    []int
	index map[int]int
}

//NewSpeciesTable builds a table from the atomic numbers in a dataset.
//Duplicates are collapsed.
func NewSpeciesTable(zs ...int) (*SpeciesTable, error) {
	seen := map[int]bool{}
	var uniq []int
	for _, z := range zs {
		if z < 1 {
			return nil, domainErrorf("goMace: atomic number %d is not valid", z)
		}
		if !seen[z] {
			seen[z] = true
			uniq = append(uniq, z)
		}
	}
	if len(uniq) == 0 {
		return nil, domainErrorf("goMace: a species table needs at least one element")
	}
	sort.Ints(uniq)
	T := &SpeciesTable{zs: uniq, index: make(map[int]int, len(uniq))}
	for i, z := range uniq {
		T.index[z] = i
	}
	return T, nil
}

//NewSpeciesTableFromSymbols builds a table from element symbols.
func NewSpeciesTableFromSymbols(symbols ...string) (*SpeciesTable, error) {
	zs := make([]int, len(symbols))
	for i, s := range symbols {
		z, err := AtomicNumber(s)
		if err != nil {
			return nil, errDecorate(err, "NewSpeciesTableFromSymbols")
		}
		zs[i] = z
	}
	return NewSpeciesTable(zs...)
}

//Len returns the number of species; use it as Config.NumSpecies.
func (T *SpeciesTable) Len() int {
	return len(T.zs)
}

//Z returns the atomic number at index i.
func (T *SpeciesTable) Z(i int) int {
	return T.zs[i]
}

//Index maps an atomic number to its contiguous index, or returns a
//DomainError for an element the table never saw.
func (T *SpeciesTable) Index(z int) (int, error) {
	i, ok := T.index[z]
	if !ok {
		return 0, domainErrorf("goMace: atomic number %d not in the species table", z)
	}
	return i, nil
}

//Indices maps a full list of atomic numbers, for filling Graph.Species.
func (T *SpeciesTable) Indices(zs []int) ([]int, error) {
	out := make([]int, len(zs))
	for i, z := range zs {
		s, err := T.Index(z)
		if err != nil {
			return nil, errDecorate(err, "SpeciesTable.Indices")
		}
		out[i] = s
	}
	return out, nil
}
