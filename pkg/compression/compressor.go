package compression

// BlockCompressor picks an algorithm for every block of a column and
// compresses it. Implementations must be deterministic: the algorithm chosen
// for block k may depend only on k, the compressor configuration and the
// block's bytes (a block the algorithm cannot shrink is stored raw), so that
// two writes of the same table produce identical files.
type BlockCompressor interface {
	// CompressBlock compresses the k-th block of a column into dst and
	// returns the compressed size together with the algorithm that actually
	// produced the bytes.
	CompressBlock(k int, dst, src []byte) (int, Algo, error)

	// MaxSize bounds the compressed size of a srcSize bytes block.
	MaxSize(srcSize int) int
}

// SingleCompressor compresses every block with the same algorithm. Blocks the
// algorithm cannot shrink are stored raw under AlgoNone.
type SingleCompressor struct {
	Algo     Algo
	Strength int
}

func (c SingleCompressor) CompressBlock(k int, dst, src []byte) (int, Algo, error) {
	return c.compress(dst, src)
}

func (c SingleCompressor) compress(dst, src []byte) (int, Algo, error) {
	if c.Algo == AlgoNone {
		return copy(dst, src), AlgoNone, nil
	}

	n, err := Compress(c.Algo, dst, src, c.Strength)
	if err != nil {
		return 0, AlgoNone, err
	}
	if n == 0 || n >= len(src) {
		// incompressible block
		return copy(dst, src), AlgoNone, nil
	}

	return n, c.Algo, nil
}

func (c SingleCompressor) MaxSize(srcSize int) int {
	bound := MaxCompressedSize(c.Algo, srcSize)
	if bound < srcSize {
		// the raw fallback must fit too
		bound = srcSize
	}
	return bound
}

// CompositeCompressor interleaves two compressors across successive blocks.
// Ratio is the percentage of blocks handed to B; the interleaving pattern is
// the Bresenham walk floor(k*Ratio/100), so any contiguous run of blocks
// approximates the requested mix.
type CompositeCompressor struct {
	A, B  SingleCompressor
	Ratio int
}

func (c CompositeCompressor) CompressBlock(k int, dst, src []byte) (int, Algo, error) {
	if c.useB(k) {
		return c.B.compress(dst, src)
	}
	return c.A.compress(dst, src)
}

func (c CompositeCompressor) useB(k int) bool {
	return floorDiv(k*c.Ratio, 100) != floorDiv((k-1)*c.Ratio, 100)
}

func (c CompositeCompressor) MaxSize(srcSize int) int {
	a := c.A.MaxSize(srcSize)
	if b := c.B.MaxSize(srcSize); b > a {
		return b
	}
	return a
}

// floorDiv divides rounding towards negative infinity, unlike Go's built-in
// truncating division.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
