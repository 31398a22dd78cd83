package addresslookuptable

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/code-payments/compressed-wallet/pkg/solana"
	"github.com/code-payments/compressed-wallet/pkg/solana/binary"
)

// AddressLookupTab1e1111111111111111111111111
var ProgramKey = ed25519.PublicKey{2, 119, 166, 175, 151, 51, 155, 122, 200, 141, 24, 146, 201, 4, 70, 245, 0, 2, 48, 146, 102, 246, 46, 83, 193, 24, 36, 73, 130, 0, 0, 0}

var (
	ErrInvalidAccountSize  = errors.New("invalid address lookup table account size")
	ErrInvalidAccountType  = errors.New("invalid account type")
	ErrInvalidAccountOwner = errors.New("account not owned by the address lookup table program")
)

const (
	altDiscriminator = 1

	metadataSize = 56
	maxAddresses = 256

	optionTagSize = 1
)

// Reference: https://github.com/solana-program/address-lookup-table/blob/main/program/src/state.rs
type AddressLookupTableAccount struct {
	DeactivationSlot           uint64
	LastExtendedSlot           uint64
	LastExtendedSlotStartIndex uint8
	Authority                  ed25519.PublicKey
	Addresses                  []ed25519.PublicKey
}

// FromAccountInfo decodes a lookup table loaded over RPC, verifying the owning
// program along the way.
func FromAccountInfo(info solana.AccountInfo) (*AddressLookupTableAccount, error) {
	if len(info.Owner) > 0 && !bytes.Equal(info.Owner, ProgramKey) {
		return nil, ErrInvalidAccountOwner
	}

	var account AddressLookupTableAccount
	if err := account.Unmarshal(info.Data); err != nil {
		return nil, err
	}
	return &account, nil
}

func (obj *AddressLookupTableAccount) Unmarshal(data []byte) error {
	if len(data) < metadataSize {
		return ErrInvalidAccountSize
	}

	dec := binary.NewDecoder(data)
	if dec.Uint32() != altDiscriminator {
		return ErrInvalidAccountType
	}

	obj.DeactivationSlot = dec.Uint64()
	obj.LastExtendedSlot = dec.Uint64()
	obj.LastExtendedSlotStartIndex = dec.Uint8()
	obj.Authority = dec.OptionalKey(optionTagSize)

	dec.Seek(metadataSize)
	if dec.Remaining()%ed25519.PublicKeySize != 0 {
		return ErrInvalidAccountSize
	}
	addressCount := dec.Remaining() / ed25519.PublicKeySize
	if addressCount > maxAddresses {
		return ErrInvalidAccountSize
	}

	obj.Addresses = make([]ed25519.PublicKey, addressCount)
	for i := range obj.Addresses {
		obj.Addresses[i] = dec.Key()
	}

	return nil
}

// IsActive reports whether the table can still be referenced by new
// transactions.
func (obj *AddressLookupTableAccount) IsActive() bool {
	return obj.DeactivationSlot == math.MaxUint64
}

// ToLookupTable converts the account into the form consumed when compiling
// versioned transactions.
func (obj *AddressLookupTableAccount) ToLookupTable(address ed25519.PublicKey) solana.AddressLookupTable {
	return solana.AddressLookupTable{
		PublicKey: address,
		Addresses: obj.Addresses,
	}
}

func (obj *AddressLookupTableAccount) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, address := range obj.Addresses {
		sb.WriteString(fmt.Sprintf("%d:%s,", i, base58.Encode(address)))
	}
	sb.WriteString("}")

	return fmt.Sprintf(
		"AddressLookupTable{deactivation_slot=%d,last_extended_slot=%d,last_extended_slot_start_index=%d,authority=%s,addresses=%s}",
		obj.DeactivationSlot,
		obj.LastExtendedSlot,
		obj.LastExtendedSlotStartIndex,
		base58.Encode(obj.Authority),
		sb.String(),
	)
}
