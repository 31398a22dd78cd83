// Package binary reads and writes the fixed layout little endian account
// state used by on-chain programs.
package binary

import (
	"crypto/ed25519"
	"encoding/binary"
)

const keySize = ed25519.PublicKeySize

// Encoder writes fields sequentially into a fixed size buffer.
type Encoder struct {
	buf []byte
	off int
}

func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, size)}
}

func (e *Encoder) Uint8(v uint8) {
	e.buf[e.off] = v
	e.off++
}

func (e *Encoder) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[e.off:], v)
	e.off += 4
}

func (e *Encoder) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[e.off:], v)
	e.off += 8
}

func (e *Encoder) Key(key ed25519.PublicKey) {
	copy(e.buf[e.off:e.off+keySize], key)
	e.off += keySize
}

// OptionalKey writes a tagged key. An empty key leaves the tag and key zeroed.
func (e *Encoder) OptionalKey(key ed25519.PublicKey, tagSize int) {
	if len(key) > 0 {
		e.buf[e.off] = 1
		copy(e.buf[e.off+tagSize:e.off+tagSize+keySize], key)
	}
	e.off += tagSize + keySize
}

func (e *Encoder) OptionalUint64(v *uint64, tagSize int) {
	if v != nil {
		e.buf[e.off] = 1
		binary.LittleEndian.PutUint64(e.buf[e.off+tagSize:], *v)
	}
	e.off += tagSize + 8
}

func (e *Encoder) Offset() int {
	return e.off
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Decoder reads fields sequentially from a buffer. Callers are responsible
// for validating the buffer size up front.
type Decoder struct {
	buf []byte
	off int
}

func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

func (d *Decoder) Uint8() uint8 {
	v := d.buf[d.off]
	d.off++
	return v
}

func (d *Decoder) Uint32() uint32 {
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

func (d *Decoder) Uint64() uint64 {
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v
}

func (d *Decoder) Key() ed25519.PublicKey {
	key := make(ed25519.PublicKey, keySize)
	copy(key, d.buf[d.off:])
	d.off += keySize
	return key
}

// OptionalKey returns nil when the tag is unset.
func (d *Decoder) OptionalKey(tagSize int) ed25519.PublicKey {
	var key ed25519.PublicKey
	if d.buf[d.off] == 1 {
		key = make(ed25519.PublicKey, keySize)
		copy(key, d.buf[d.off+tagSize:])
	}
	d.off += tagSize + keySize
	return key
}

func (d *Decoder) OptionalUint64(tagSize int) *uint64 {
	var v *uint64
	if d.buf[d.off] == 1 {
		val := binary.LittleEndian.Uint64(d.buf[d.off+tagSize:])
		v = &val
	}
	d.off += tagSize + 8
	return v
}

// Seek moves the read position to an absolute offset.
func (d *Decoder) Seek(offset int) {
	d.off = offset
}

func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}
