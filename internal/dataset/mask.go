package dataset

import (
	"github.com/bits-and-blooms/bitset"
)

// Mask is a row selection vector: bit i set means row i passes the filter.
type Mask struct {
	bits *bitset.BitSet
	n    int
}

// NewMask creates a mask over n rows with every entry set to value.
func NewMask(n int, value bool) *Mask {
	bits := bitset.New(uint(n))
	if value && n > 0 {
		bits.FlipRange(0, uint(n))
	}
	return &Mask{bits: bits, n: n}
}

// MaskFromBools builds a mask from a boolean slice.
func MaskFromBools(values []bool) *Mask {
	m := NewMask(len(values), false)
	for i, v := range values {
		if v {
			m.bits.Set(uint(i))
		}
	}
	return m
}

// Len returns the number of rows covered
func (m *Mask) Len() int { return m.n }

// Set sets entry i
func (m *Mask) Set(i int, value bool) {
	m.bits.SetTo(uint(i), value)
}

// Test reports entry i
func (m *Mask) Test(i int) bool {
	return m.bits.Test(uint(i))
}

// Count returns the number of selected rows
func (m *Mask) Count() int {
	return int(m.bits.Count())
}

// And intersects m with other in place. Both masks must cover the same rows.
func (m *Mask) And(other *Mask) *Mask {
	m.mustMatch(other)
	m.bits.InPlaceIntersection(other.bits)
	return m
}

// Or unions m with other in place. Both masks must cover the same rows.
func (m *Mask) Or(other *Mask) *Mask {
	m.mustMatch(other)
	m.bits.InPlaceUnion(other.bits)
	return m
}

// Not inverts every entry in place.
func (m *Mask) Not() *Mask {
	if m.n > 0 {
		m.bits.FlipRange(0, uint(m.n))
	}
	return m
}

// Clone returns an independent copy
func (m *Mask) Clone() *Mask {
	return &Mask{bits: m.bits.Clone(), n: m.n}
}

// Indices returns the selected row numbers in ascending order.
func (m *Mask) Indices() []int {
	out := make([]int, 0, m.Count())
	for i, ok := m.bits.NextSet(0); ok && int(i) < m.n; i, ok = m.bits.NextSet(i + 1) {
		out = append(out, int(i))
	}
	return out
}

// Bools returns the mask as a boolean slice.
func (m *Mask) Bools() []bool {
	out := make([]bool, m.n)
	for i := range out {
		out[i] = m.bits.Test(uint(i))
	}
	return out
}

func (m *Mask) mustMatch(other *Mask) {
	if m.n != other.n {
		panic("dataset: mask length mismatch")
	}
}
