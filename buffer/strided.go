// File: buffer/strided.go
// Author: momentics
// License: Apache-2.0

package buffer

// Strided describes host memory laid out as Count items of ItemSize
// bytes, each Stride bytes apart. A stride equal to the item size is
// contiguous and can be wrapped zero-copy; anything else requires the
// compacting copy path.
type Strided struct {
	Data     []byte
	ItemSize int
	Stride   int
	Count    int
}

// Contiguous reports whether the layout is unit-stride.
func (s Strided) Contiguous() bool {
	return s.Stride == s.ItemSize
}

// Compact gathers the items into a fresh contiguous slice.
func (s Strided) Compact() []byte {
	out := make([]byte, s.Count*s.ItemSize)
	for i := 0; i < s.Count; i++ {
		copy(out[i*s.ItemSize:(i+1)*s.ItemSize], s.Data[i*s.Stride:i*s.Stride+s.ItemSize])
	}
	return out
}
