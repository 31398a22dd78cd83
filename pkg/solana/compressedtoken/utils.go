package compressedtoken

import (
	"crypto/ed25519"
	"encoding/binary"
)

// Borsh primitives. Everything is little endian, options are prefixed with a
// single presence byte, and vectors with a u32 length.

func putDiscriminator(dst []byte, v []byte) []byte {
	return append(dst, v[:8]...)
}

func putKey(dst []byte, v ed25519.PublicKey) []byte {
	var key [ed25519.PublicKeySize]byte
	copy(key[:], v)
	return append(dst, key[:]...)
}

func putBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

func putUint8(dst []byte, v uint8) []byte {
	return append(dst, v)
}

func putUint16(dst []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(dst, v)
}

func putUint32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

func putUint64(dst []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, v)
}

func putOptionalUint8(dst []byte, v *uint8) []byte {
	if v == nil {
		return append(dst, 0)
	}
	return putUint8(append(dst, 1), *v)
}

func putOptionalUint64(dst []byte, v *uint64) []byte {
	if v == nil {
		return append(dst, 0)
	}
	return putUint64(append(dst, 1), *v)
}

func putOptionalBytes(dst []byte, v []byte) []byte {
	if v == nil {
		return append(dst, 0)
	}
	return putBytes(append(dst, 1), v)
}

func putBytes(dst []byte, v []byte) []byte {
	dst = putUint32(dst, uint32(len(v)))
	return append(dst, v...)
}

func getUint8(src []byte, dst *uint8, offset *int) bool {
	if len(src) < *offset+1 {
		return false
	}
	*dst = src[*offset]
	*offset += 1
	return true
}

func getUint16(src []byte, dst *uint16, offset *int) bool {
	if len(src) < *offset+2 {
		return false
	}
	*dst = binary.LittleEndian.Uint16(src[*offset:])
	*offset += 2
	return true
}

func getUint32(src []byte, dst *uint32, offset *int) bool {
	if len(src) < *offset+4 {
		return false
	}
	*dst = binary.LittleEndian.Uint32(src[*offset:])
	*offset += 4
	return true
}

func getUint64(src []byte, dst *uint64, offset *int) bool {
	if len(src) < *offset+8 {
		return false
	}
	*dst = binary.LittleEndian.Uint64(src[*offset:])
	*offset += 8
	return true
}

func getKey(src []byte, dst *ed25519.PublicKey, offset *int) bool {
	if len(src) < *offset+ed25519.PublicKeySize {
		return false
	}
	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src[*offset:])
	*offset += ed25519.PublicKeySize
	return true
}

func getBool(src []byte, dst *bool, offset *int) bool {
	var v uint8
	if !getUint8(src, &v, offset) || v > 1 {
		return false
	}
	*dst = v == 1
	return true
}

func getFixed(src []byte, dst []byte, offset *int) bool {
	if len(src) < *offset+len(dst) {
		return false
	}
	copy(dst, src[*offset:])
	*offset += len(dst)
	return true
}

func getOptionalUint8(src []byte, dst **uint8, offset *int) bool {
	var present bool
	if !getBool(src, &present, offset) {
		return false
	}
	if !present {
		return true
	}
	var v uint8
	if !getUint8(src, &v, offset) {
		return false
	}
	*dst = &v
	return true
}

func getOptionalUint64(src []byte, dst **uint64, offset *int) bool {
	var present bool
	if !getBool(src, &present, offset) {
		return false
	}
	if !present {
		return true
	}
	var v uint64
	if !getUint64(src, &v, offset) {
		return false
	}
	*dst = &v
	return true
}

func getOptionalBytes(src []byte, dst *[]byte, offset *int) bool {
	var present bool
	if !getBool(src, &present, offset) {
		return false
	}
	if !present {
		return true
	}
	var length uint32
	if !getUint32(src, &length, offset) || len(src) < *offset+int(length) {
		return false
	}
	*dst = make([]byte, length)
	copy(*dst, src[*offset:])
	*offset += int(length)
	return true
}
