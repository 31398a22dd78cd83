package solana

import (
	"bytes"
	"crypto/ed25519"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Versioned messages set the high bit of their first byte.
const versionPrefixMask = 0x80

// appendCompactLen appends n in the compact-u16 format: seven bits per byte,
// least significant group first, with the high bit flagging continuation.
func appendCompactLen(dst []byte, n int) ([]byte, error) {
	if n < 0 || n > math.MaxUint16 {
		return dst, errors.Errorf("length %d exceeds %d", n, math.MaxUint16)
	}

	for n >= 0x80 {
		dst = append(dst, byte(n)|0x80)
		n >>= 7
	}
	return append(dst, byte(n)), nil
}

func readCompactLen(r io.ByteReader) (int, error) {
	var n int
	for i := 0; i < 3; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}

		n |= int(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return n, nil
		}
	}
	return 0, errors.New("compact length exceeds 3 bytes")
}

type wireWriter struct {
	buf []byte
}

func (w *wireWriter) u8(b byte) {
	w.buf = append(w.buf, b)
}

func (w *wireWriter) raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// length panics on overflow, which a message within MaxTransactionSize
// cannot reach.
func (w *wireWriter) length(n int) {
	var err error
	if w.buf, err = appendCompactLen(w.buf, n); err != nil {
		panic(err)
	}
}

func (w *wireWriter) vec(b []byte) {
	w.length(len(b))
	w.raw(b)
}

type wireReader struct {
	r *bytes.Reader
}

func newWireReader(b []byte) *wireReader {
	return &wireReader{r: bytes.NewReader(b)}
}

func (r *wireReader) u8(field string) (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s", field)
	}
	return b, nil
}

func (r *wireReader) length(field string) (int, error) {
	n, err := readCompactLen(r.r)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s length", field)
	}
	return n, nil
}

func (r *wireReader) fill(dst []byte, field string) error {
	if _, err := io.ReadFull(r.r, dst); err != nil {
		return errors.Wrapf(err, "failed to read %s", field)
	}
	return nil
}

func (r *wireReader) key(field string) (ed25519.PublicKey, error) {
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	return key, r.fill(key, field)
}

func (r *wireReader) vec(field string) ([]byte, error) {
	n, err := r.length(field)
	if err != nil {
		return nil, err
	}

	b := make([]byte, n)
	return b, r.fill(b, field)
}

func (t Transaction) Marshal() []byte {
	w := &wireWriter{}
	w.length(len(t.Signatures))
	for _, sig := range t.Signatures {
		w.raw(sig[:])
	}
	t.Message.encode(w)
	return w.buf
}

func (t *Transaction) Unmarshal(b []byte) error {
	r := newWireReader(b)

	count, err := r.length("signature")
	if err != nil {
		return err
	}

	t.Signatures = make([]Signature, count)
	for i := range t.Signatures {
		if err := r.fill(t.Signatures[i][:], "signature"); err != nil {
			return errors.Wrapf(err, "signature %d", i)
		}
	}

	return t.Message.decode(r)
}

func (m Message) Marshal() []byte {
	w := &wireWriter{}
	m.encode(w)
	return w.buf
}

func (m *Message) Unmarshal(b []byte) error {
	return m.decode(newWireReader(b))
}

func (m Message) encode(w *wireWriter) {
	switch m.Version {
	case MessageVersionLegacy:
	case MessageVersion0:
		w.u8(versionPrefixMask | byte(m.Version-MessageVersion0))
	default:
		panic("unsupported message version")
	}

	w.u8(m.Header.NumSignatures)
	w.u8(m.Header.NumReadonlySigned)
	w.u8(m.Header.NumReadOnly)

	w.length(len(m.Accounts))
	for _, account := range m.Accounts {
		w.raw(account)
	}

	w.raw(m.RecentBlockhash[:])

	w.length(len(m.Instructions))
	for _, instruction := range m.Instructions {
		w.u8(instruction.ProgramIndex)
		w.vec(instruction.Accounts)
		w.vec(instruction.Data)
	}

	if m.Version == MessageVersionLegacy {
		return
	}

	w.length(len(m.AddressTableLookups))
	for _, lookup := range m.AddressTableLookups {
		w.raw(lookup.PublicKey)
		w.vec(lookup.WritableIndexes)
		w.vec(lookup.ReadonlyIndexes)
	}
}

func (m *Message) decode(r *wireReader) error {
	prefix, err := r.u8("message")
	if err != nil {
		return errors.New("empty message")
	}

	m.Version = MessageVersionLegacy
	if prefix&versionPrefixMask != 0 {
		if version := prefix &^ versionPrefixMask; version != 0 {
			return errors.Errorf("unsupported message version: %d", version)
		}
		m.Version = MessageVersion0
	} else if err := r.r.UnreadByte(); err != nil {
		return err
	}

	if m.Header.NumSignatures, err = r.u8("num signatures"); err != nil {
		return err
	}
	if m.Header.NumReadonlySigned, err = r.u8("num readonly signed"); err != nil {
		return err
	}
	if m.Header.NumReadOnly, err = r.u8("num readonly"); err != nil {
		return err
	}

	count, err := r.length("account")
	if err != nil {
		return err
	}
	m.Accounts = make([]ed25519.PublicKey, count)
	for i := range m.Accounts {
		if m.Accounts[i], err = r.key("account"); err != nil {
			return errors.Wrapf(err, "account %d", i)
		}
	}

	if err := r.fill(m.RecentBlockhash[:], "recent blockhash"); err != nil {
		return err
	}

	if count, err = r.length("instruction"); err != nil {
		return err
	}
	m.Instructions = make([]CompiledInstruction, count)
	for i := range m.Instructions {
		if err := m.decodeInstruction(r, &m.Instructions[i]); err != nil {
			return errors.Wrapf(err, "instruction %d", i)
		}
	}

	if m.Version == MessageVersionLegacy {
		m.AddressTableLookups = nil
		return nil
	}

	if count, err = r.length("address table lookup"); err != nil {
		return err
	}
	m.AddressTableLookups = make([]MessageAddressTableLookup, count)
	for i := range m.AddressTableLookups {
		lookup := &m.AddressTableLookups[i]
		if lookup.PublicKey, err = r.key("address table"); err != nil {
			return errors.Wrapf(err, "address table lookup %d", i)
		}
		if lookup.WritableIndexes, err = r.vec("writable indexes"); err != nil {
			return errors.Wrapf(err, "address table lookup %d", i)
		}
		if lookup.ReadonlyIndexes, err = r.vec("readonly indexes"); err != nil {
			return errors.Wrapf(err, "address table lookup %d", i)
		}
	}

	return nil
}

func (m *Message) decodeInstruction(r *wireReader, c *CompiledInstruction) (err error) {
	if c.ProgramIndex, err = r.u8("program index"); err != nil {
		return err
	}
	if int(c.ProgramIndex) >= len(m.Accounts) {
		return errors.Errorf("program index %d out of range", c.ProgramIndex)
	}

	if c.Accounts, err = r.vec("account indexes"); err != nil {
		return err
	}

	// Lookup table entries are indexed past the static accounts, so the range
	// is only known for legacy messages.
	if m.Version == MessageVersionLegacy {
		for _, index := range c.Accounts {
			if int(index) >= len(m.Accounts) {
				return errors.Errorf("account index %d out of range", index)
			}
		}
	}

	c.Data, err = r.vec("data")
	return err
}
