package colcodec

import (
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/ZaninAndrea/fstable/internal/blockstream"
)

type memFile struct {
	data []byte
	pos  int64
}

func (f *memFile) Write(p []byte) (int, error) {
	end := f.pos + int64(len(p))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[f.pos:], p)
	f.pos = end
	return len(p), nil
}

func (f *memFile) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 1:
		offset += f.pos
	case 2:
		offset += int64(len(f.data))
	}
	f.pos = offset
	return offset, nil
}

var levels = []int{0, 1, 30, 50, 51, 80, 100}

func TestIntegerRoundTrip(t *testing.T) {
	const n = 10000
	values := make([]int32, n)
	for i := range values {
		values[i] = int32(i * 7)
	}
	values[1234] = math.MinInt32 // NA sentinel

	for _, level := range levels {
		t.Run(fmt.Sprintf("level %d", level), func(t *testing.T) {
			f := &memFile{}
			if err := WriteIntVec(blockstream.NewStructuredWriter(f), values, level); err != nil {
				t.Fatal(err)
			}

			out := make([]int32, n)
			if err := ReadIntVec(blockstream.NewStructuredReader(f), out, 0, 0, n, n); err != nil {
				t.Fatal(err)
			}
			for i := range values {
				if out[i] != values[i] {
					t.Fatalf("row %d: got %d, want %d", i, out[i], values[i])
				}
			}

			// a range crossing a block boundary
			part := make([]int32, 200)
			if err := ReadIntVec(blockstream.NewStructuredReader(f), part, 0, 4000, 200, n); err != nil {
				t.Fatal(err)
			}
			for i := range part {
				if part[i] != values[4000+i] {
					t.Fatalf("row %d: got %d, want %d", 4000+i, part[i], values[4000+i])
				}
			}
		})
	}
}

func TestDoubleRoundTrip(t *testing.T) {
	const n = 5000
	naDouble := math.Float64frombits(0x7FF00000000007A2)

	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i) * 0.5
	}
	values[17] = naDouble
	values[4999] = math.Inf(1)

	for _, level := range levels {
		t.Run(fmt.Sprintf("level %d", level), func(t *testing.T) {
			f := &memFile{}
			if err := WriteDoubleVec(blockstream.NewStructuredWriter(f), values, level); err != nil {
				t.Fatal(err)
			}

			out := make([]float64, n)
			if err := ReadDoubleVec(blockstream.NewStructuredReader(f), out, 0, 0, n, n); err != nil {
				t.Fatal(err)
			}
			for i := range values {
				if math.Float64bits(out[i]) != math.Float64bits(values[i]) {
					t.Fatalf("row %d: got %x, want %x", i, math.Float64bits(out[i]), math.Float64bits(values[i]))
				}
			}
		})
	}
}

func TestLogicalRoundTrip(t *testing.T) {
	const n = 9000
	values := make([]int32, n)
	for i := range values {
		switch i % 3 {
		case 0:
			values[i] = 1
		case 1:
			values[i] = 0
		case 2:
			values[i] = math.MinInt32
		}
	}

	for _, level := range levels {
		t.Run(fmt.Sprintf("level %d", level), func(t *testing.T) {
			f := &memFile{}
			if err := WriteLogicalVec(blockstream.NewStructuredWriter(f), values, level); err != nil {
				t.Fatal(err)
			}

			out := make([]int32, n)
			if err := ReadLogicalVec(blockstream.NewStructuredReader(f), out, 0, 0, n, n); err != nil {
				t.Fatal(err)
			}
			for i := range values {
				if out[i] != values[i] {
					t.Fatalf("row %d: got %d, want %d", i, out[i], values[i])
				}
			}

			part := make([]int32, 100)
			if err := ReadLogicalVec(blockstream.NewStructuredReader(f), part, 0, 4050, 100, n); err != nil {
				t.Fatal(err)
			}
			for i := range part {
				if part[i] != values[4050+i] {
					t.Fatalf("row %d: got %d, want %d", 4050+i, part[i], values[4050+i])
				}
			}
		})
	}
}

func TestCharacterRoundTrip(t *testing.T) {
	const n = 5000
	values := make([]string, n)
	na := make([]bool, n)
	for i := range values {
		switch {
		case i%97 == 0:
			na[i] = true
		case i%13 == 0:
			values[i] = ""
		default:
			values[i] = fmt.Sprintf("value_%d_é", i)
		}
	}

	for _, level := range levels {
		t.Run(fmt.Sprintf("level %d", level), func(t *testing.T) {
			f := &memFile{}
			if err := WriteCharVec(blockstream.NewStructuredWriter(f), values, na, level); err != nil {
				t.Fatal(err)
			}

			out := make([]string, n)
			outNA := make([]bool, n)
			if _, err := ReadCharVec(blockstream.NewStructuredReader(f), out, outNA, 0, 0, n, n); err != nil {
				t.Fatal(err)
			}
			for i := range values {
				if outNA[i] != na[i] {
					t.Fatalf("row %d: NA flag got %v, want %v", i, outNA[i], na[i])
				}
				if !na[i] && out[i] != values[i] {
					t.Fatalf("row %d: got %q, want %q", i, out[i], values[i])
				}
			}
		})
	}
}

// A read can start in the middle of a text block and stop before its end.
func TestCharacterMidBlockRange(t *testing.T) {
	const n = 5000
	values := make([]string, n)
	for i := range values {
		values[i] = fmt.Sprintf("row %d", i)
	}

	f := &memFile{}
	if err := WriteCharVec(blockstream.NewStructuredWriter(f), values, nil, 40); err != nil {
		t.Fatal(err)
	}

	cases := []struct{ start, length int }{
		{0, n},
		{100, 50},
		{BLOCKSIZE_CHAR - 1, 3}, // straddles the first block boundary
		{BLOCKSIZE_CHAR * 2, n - BLOCKSIZE_CHAR*2}, // starts exactly on a boundary
		{n - 1, 1},
		{42, 0},
	}
	for _, c := range cases {
		out := make([]string, c.length)
		if _, err := ReadCharVec(blockstream.NewStructuredReader(f), out, nil, 0, c.start, c.length, n); err != nil {
			t.Fatalf("reading rows [%d, %d): %v", c.start, c.start+c.length, err)
		}
		for i := range out {
			if out[i] != values[c.start+i] {
				t.Fatalf("row %d: got %q, want %q", c.start+i, out[i], values[c.start+i])
			}
		}
	}
}

func TestFactorRoundTrip(t *testing.T) {
	const n = 10000
	factorLevels := []string{"north", "east", "south", "west"}
	indices := make([]int32, n)
	for i := range indices {
		if i%101 == 0 {
			indices[i] = math.MinInt32 // NA
		} else {
			indices[i] = int32(i%len(factorLevels)) + 1
		}
	}

	for _, level := range levels {
		t.Run(fmt.Sprintf("level %d", level), func(t *testing.T) {
			f := &memFile{}
			if err := WriteFactorVec(blockstream.NewStructuredWriter(f), factorLevels, indices, level); err != nil {
				t.Fatal(err)
			}

			out := make([]int32, n)
			gotLevels, err := ReadFactorVec(blockstream.NewStructuredReader(f), out, 0, 0, n, n)
			if err != nil {
				t.Fatal(err)
			}

			if len(gotLevels) != len(factorLevels) {
				t.Fatalf("got %d levels, want %d", len(gotLevels), len(factorLevels))
			}
			for i := range factorLevels {
				if gotLevels[i] != factorLevels[i] {
					t.Fatalf("level %d: got %q, want %q", i, gotLevels[i], factorLevels[i])
				}
			}
			for i := range indices {
				if out[i] != indices[i] {
					t.Fatalf("row %d: got %d, want %d", i, out[i], indices[i])
				}
			}
		})
	}
}

func TestFactorPartialRange(t *testing.T) {
	const n = 10000
	factorLevels := []string{"a", "b", "c"}
	indices := make([]int32, n)
	for i := range indices {
		indices[i] = int32(i%3) + 1
	}

	f := &memFile{}
	if err := WriteFactorVec(blockstream.NewStructuredWriter(f), factorLevels, indices, 75); err != nil {
		t.Fatal(err)
	}

	out := make([]int32, 500)
	gotLevels, err := ReadFactorVec(blockstream.NewStructuredReader(f), out, 0, 4000, 500, n)
	if err != nil {
		t.Fatal(err)
	}
	if len(gotLevels) != 3 {
		t.Fatalf("got %d levels, want 3", len(gotLevels))
	}
	for i := range out {
		if out[i] != indices[4000+i] {
			t.Fatalf("row %d: got %d, want %d", 4000+i, out[i], indices[4000+i])
		}
	}
}
