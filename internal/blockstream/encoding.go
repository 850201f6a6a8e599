package blockstream

import (
	"encoding/binary"
	"io"
)

// StructuredWriter wraps a seekable writer with fixed-width little-endian
// primitives and tracks the current file offset, so callers can record
// positions and later backfill placeholder regions.
type StructuredWriter struct {
	w      io.WriteSeeker
	offset uint64
}

func NewStructuredWriter(w io.WriteSeeker) *StructuredWriter {
	return &StructuredWriter{w: w, offset: 0}
}

// Write writes data to the underlying writer with no special formatting.
func (sw *StructuredWriter) Write(p []byte) (int, error) {
	n, err := sw.w.Write(p)
	sw.offset += uint64(n)
	return n, err
}

func (sw *StructuredWriter) Offset() uint64 {
	return sw.offset
}

// Seek moves the write position to an absolute file offset.
func (sw *StructuredWriter) Seek(offset uint64) error {
	_, err := sw.w.Seek(int64(offset), io.SeekStart)
	if err != nil {
		return err
	}
	sw.offset = offset
	return nil
}

// WriteUInt64 writes a 64-bit unsigned integer to the underlying writer.
func (sw *StructuredWriter) WriteUInt64(value uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	_, err := sw.Write(buf[:])
	return err
}

// WriteUInt32 writes a 32-bit unsigned integer to the underlying writer.
func (sw *StructuredWriter) WriteUInt32(value uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	_, err := sw.Write(buf[:])
	return err
}

// WriteInt32 writes a 32-bit signed integer to the underlying writer.
func (sw *StructuredWriter) WriteInt32(value int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(value))
	_, err := sw.Write(buf[:])
	return err
}

// WriteUInt16 writes a 16-bit unsigned integer to the underlying writer.
func (sw *StructuredWriter) WriteUInt16(value uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	_, err := sw.Write(buf[:])
	return err
}

// WriteInt16 writes a 16-bit signed integer to the underlying writer.
func (sw *StructuredWriter) WriteInt16(value int16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(value))
	_, err := sw.Write(buf[:])
	return err
}

// StructuredReader wraps a seekable reader with the matching little-endian
// primitives. All reads are full reads: a short read is an error.
type StructuredReader struct {
	r io.ReadSeeker
}

func NewStructuredReader(r io.ReadSeeker) *StructuredReader {
	return &StructuredReader{r: r}
}

// Read fills p completely from the underlying reader.
func (sr *StructuredReader) Read(p []byte) (int, error) {
	return io.ReadFull(sr.r, p)
}

// Seek moves the read position to an absolute file offset.
func (sr *StructuredReader) Seek(offset uint64) error {
	_, err := sr.r.Seek(int64(offset), io.SeekStart)
	return err
}

// ReadUInt64 reads a 64-bit unsigned integer from the underlying reader.
func (sr *StructuredReader) ReadUInt64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(sr.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// ReadUInt32 reads a 32-bit unsigned integer from the underlying reader.
func (sr *StructuredReader) ReadUInt32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(sr.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadInt32 reads a 32-bit signed integer from the underlying reader.
func (sr *StructuredReader) ReadInt32() (int32, error) {
	v, err := sr.ReadUInt32()
	return int32(v), err
}

// ReadUInt16 reads a 16-bit unsigned integer from the underlying reader.
func (sr *StructuredReader) ReadUInt16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(sr.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// ReadInt16 reads a 16-bit signed integer from the underlying reader.
func (sr *StructuredReader) ReadInt16() (int16, error) {
	v, err := sr.ReadUInt16()
	return int16(v), err
}
