package computebudget

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/compressed-wallet/pkg/solana"
)

// ComputeBudget111111111111111111111111111111
var ProgramKey = ed25519.PublicKey{3, 6, 70, 111, 229, 33, 23, 50, 255, 236, 173, 186, 114, 195, 155, 231, 188, 140, 229, 187, 197, 247, 18, 107, 44, 67, 155, 58, 64, 0, 0, 0}

type Command byte

const (
	CommandRequestUnits Command = iota
	CommandRequestHeapFrame
	CommandSetComputeUnitLimit
	CommandSetComputeUnitPrice
)

var ErrInvalidInstructionData = errors.New("invalid compute budget instruction data")

// SetComputeUnitLimit caps the compute units a transaction may consume
func SetComputeUnitLimit(units uint32) solana.Instruction {
	data := make([]byte, 5)
	data[0] = byte(CommandSetComputeUnitLimit)
	binary.LittleEndian.PutUint32(data[1:], units)
	return solana.NewInstruction(ProgramKey, data)
}

// SetComputeUnitPrice sets the priority fee, in micro-lamports per compute unit
func SetComputeUnitPrice(microLamports uint64) solana.Instruction {
	data := make([]byte, 9)
	data[0] = byte(CommandSetComputeUnitPrice)
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return solana.NewInstruction(ProgramKey, data)
}

// Budget is the compute budget requested by a transaction. Unset values are
// zero.
type Budget struct {
	UnitLimit uint32
	UnitPrice uint64
}

// DecompileBudget collects every compute budget instruction in the message
func DecompileBudget(m solana.Message) (*Budget, error) {
	var budget Budget
	for _, ixn := range m.Instructions {
		if !bytes.Equal(m.Accounts[ixn.ProgramIndex], ProgramKey) || len(ixn.Data) == 0 {
			continue
		}

		var err error
		switch Command(ixn.Data[0]) {
		case CommandSetComputeUnitLimit:
			budget.UnitLimit, err = ParseSetComputeUnitLimit(ixn.Data)
		case CommandSetComputeUnitPrice:
			budget.UnitPrice, err = ParseSetComputeUnitPrice(ixn.Data)
		}
		if err != nil {
			return nil, err
		}
	}
	return &budget, nil
}

func ParseSetComputeUnitLimit(data []byte) (uint32, error) {
	if len(data) != 5 || Command(data[0]) != CommandSetComputeUnitLimit {
		return 0, ErrInvalidInstructionData
	}
	return binary.LittleEndian.Uint32(data[1:]), nil
}

func ParseSetComputeUnitPrice(data []byte) (uint64, error) {
	if len(data) != 9 || Command(data[0]) != CommandSetComputeUnitPrice {
		return 0, ErrInvalidInstructionData
	}
	return binary.LittleEndian.Uint64(data[1:]), nil
}
