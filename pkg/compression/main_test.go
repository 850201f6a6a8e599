package compression

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand"
	"testing"
)

func testInt32Bytes(values []int32) []byte {
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(v))
	}
	return data
}

func checkRoundTrip(t *testing.T, algo Algo, strength int, src []byte) {
	t.Helper()

	dst := make([]byte, MaxCompressedSize(algo, len(src)))
	n, err := Compress(algo, dst, src, strength)
	if err != nil {
		t.Fatalf("compress with %s failed: %v", algo, err)
	}
	if n == 0 {
		t.Skipf("%s could not shrink this input", algo)
	}

	restored := make([]byte, len(src))
	m, err := Decompress(algo, restored, dst[:n])
	if err != nil {
		t.Fatalf("decompress with %s failed: %v", algo, err)
	}
	if m != len(src) {
		t.Fatalf("decompressed %d bytes, expected %d", m, len(src))
	}
	if !bytes.Equal(restored, src) {
		t.Fatalf("round trip with %s did not restore the input", algo)
	}
}

func TestRoundTrip(t *testing.T) {
	ints := make([]int32, 4096)
	for i := range ints {
		ints[i] = int32(i / 3)
	}
	intData := testInt32Bytes(ints)

	doubles := make([]byte, 2048*8)
	for i := 0; i < 2048; i++ {
		binary.LittleEndian.PutUint64(doubles[i*8:], math.Float64bits(float64(i)*0.25))
	}

	logicals := make([]int32, 4096)
	for i := range logicals {
		switch i % 3 {
		case 0:
			logicals[i] = 0
		case 1:
			logicals[i] = 1
		case 2:
			logicals[i] = math.MinInt32
		}
	}
	logicalData := testInt32Bytes(logicals)

	t.Run("lz4", func(t *testing.T) { checkRoundTrip(t, AlgoLZ4, 0, intData) })
	t.Run("lz4 high compression", func(t *testing.T) { checkRoundTrip(t, AlgoLZ4, 100, intData) })
	t.Run("lz4 shuffled", func(t *testing.T) { checkRoundTrip(t, AlgoLZ4Shuf4, 0, intData) })
	t.Run("zstd", func(t *testing.T) { checkRoundTrip(t, AlgoZstd, 50, intData) })
	t.Run("zstd shuffled ints", func(t *testing.T) { checkRoundTrip(t, AlgoZstdShuf4, 50, intData) })
	t.Run("zstd shuffled doubles", func(t *testing.T) { checkRoundTrip(t, AlgoZstdShuf8, 10, doubles) })
	t.Run("logic64", func(t *testing.T) { checkRoundTrip(t, AlgoLogic64, 0, logicalData) })
	t.Run("lz4 over logic64", func(t *testing.T) { checkRoundTrip(t, AlgoLZ4Logic64, 100, logicalData) })
	t.Run("zstd over logic64", func(t *testing.T) { checkRoundTrip(t, AlgoZstdLogic64, 44, logicalData) })
}

func TestShuffleInverse(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))

	for _, width := range []int{4, 8} {
		for _, size := range []int{0, 1, width - 1, width, 1000, 1000 + width/2} {
			src := make([]byte, size)
			rnd.Read(src)

			shuffled := make([]byte, size)
			shuffle(shuffled, src, width)

			restored := make([]byte, size)
			unshuffle(restored, shuffled, width)

			if !bytes.Equal(restored, src) {
				t.Fatalf("shuffle width %d size %d is not invertible", width, size)
			}
		}
	}
}

func TestLogic64PackedSize(t *testing.T) {
	values := []int32{1, 0, math.MinInt32, 1}
	src := testInt32Bytes(values)

	dst := make([]byte, logic64PackedSize(len(values)))
	n, err := logic64Pack(dst, src)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("4 logicals should pack to exactly 1 byte, got %d", n)
	}

	restored := make([]byte, len(src))
	if _, err := logic64Unpack(restored, dst[:n]); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(restored, src) {
		t.Fatal("logic64 round trip did not restore the tri-state values")
	}
}

func TestCompositeRatio(t *testing.T) {
	for _, ratio := range []int{0, 2, 26, 50, 100} {
		c := CompositeCompressor{Ratio: ratio}

		countB := 0
		blocks := 1000
		for k := 0; k < blocks; k++ {
			if c.useB(k) {
				countB++
			}
		}

		expected := blocks * ratio / 100
		if countB != expected {
			t.Fatalf("ratio %d selected B for %d of %d blocks, expected %d", ratio, countB, blocks, expected)
		}
	}
}

func TestCompositeDeterminism(t *testing.T) {
	c := CompositeCompressor{Ratio: 37}

	var first []bool
	for k := 0; k < 200; k++ {
		first = append(first, c.useB(k))
	}
	for k := 0; k < 200; k++ {
		if c.useB(k) != first[k] {
			t.Fatalf("block %d changed algorithm between runs", k)
		}
	}
}

func TestIncompressibleFallsBackToRaw(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	src := make([]byte, 4096)
	rnd.Read(src)

	c := SingleCompressor{Algo: AlgoLZ4, Strength: 0}
	dst := make([]byte, c.MaxSize(len(src)))

	n, algo, err := c.CompressBlock(0, dst, src)
	if err != nil {
		t.Fatal(err)
	}
	if algo != AlgoNone {
		t.Fatalf("random bytes should be stored raw, got %s", algo)
	}
	if n != len(src) || !bytes.Equal(dst[:n], src) {
		t.Fatal("raw fallback should store the input verbatim")
	}
}

func TestFloorDiv(t *testing.T) {
	cases := []struct{ a, b, expected int }{
		{0, 100, 0},
		{-1, 100, -1},
		{-100, 100, -1},
		{-101, 100, -2},
		{99, 100, 0},
		{100, 100, 1},
	}
	for _, c := range cases {
		if got := floorDiv(c.a, c.b); got != c.expected {
			t.Fatalf("floorDiv(%d, %d) = %d, expected %d", c.a, c.b, got, c.expected)
		}
	}
}
