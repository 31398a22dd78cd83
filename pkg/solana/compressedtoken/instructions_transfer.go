package compressedtoken

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/compressed-wallet/pkg/solana"
)

type CompressedProof struct {
	A [32]byte
	B [64]byte
	C [32]byte
}

type QueueIndex struct {
	QueueId uint8
	Index   uint16
}

type PackedMerkleContext struct {
	MerkleTreePubkeyIndex     uint8
	NullifierQueuePubkeyIndex uint8
	LeafIndex                 uint32
	QueueIndex                *QueueIndex
}

type InputTokenDataWithContext struct {
	Amount        uint64
	DelegateIndex *uint8
	MerkleContext PackedMerkleContext
	RootIndex     uint16
	Lamports      *uint64
	Tlv           []byte
}

type PackedTokenTransferOutputData struct {
	Owner           ed25519.PublicKey
	Amount          uint64
	Lamports        *uint64
	MerkleTreeIndex uint8
	Tlv             []byte
}

type TransferInstructionArgs struct {
	Proof                                *CompressedProof
	Mint                                 ed25519.PublicKey
	InputTokenDataWithContext            []InputTokenDataWithContext
	OutputCompressedAccounts             []PackedTokenTransferOutputData
	IsCompress                           bool
	CompressOrDecompressAmount           *uint64
	LamportsChangeAccountMerkleTreeIndex *uint8
}

type TransferInstructionAccounts struct {
	FeePayer  ed25519.PublicKey
	Authority ed25519.PublicKey

	// Only set when compressing or decompressing
	TokenPool                        ed25519.PublicKey
	CompressOrDecompressTokenAccount ed25519.PublicKey

	// Packed tree and queue accounts referenced by index from the args
	RemainingAccounts []ed25519.PublicKey
}

// Marshal encodes the args as the program's CompressedTokenInstructionDataTransfer.
// Delegated transfers and CPI contexts are never used, so both are encoded as
// None.
func (args *TransferInstructionArgs) Marshal() []byte {
	var data []byte

	if args.Proof == nil {
		data = append(data, 0)
	} else {
		data = append(data, 1)
		data = append(data, args.Proof.A[:]...)
		data = append(data, args.Proof.B[:]...)
		data = append(data, args.Proof.C[:]...)
	}

	data = putKey(data, args.Mint)

	// delegated_transfer
	data = append(data, 0)

	data = putUint32(data, uint32(len(args.InputTokenDataWithContext)))
	for _, input := range args.InputTokenDataWithContext {
		data = putUint64(data, input.Amount)
		data = putOptionalUint8(data, input.DelegateIndex)
		data = putUint8(data, input.MerkleContext.MerkleTreePubkeyIndex)
		data = putUint8(data, input.MerkleContext.NullifierQueuePubkeyIndex)
		data = putUint32(data, input.MerkleContext.LeafIndex)
		if input.MerkleContext.QueueIndex == nil {
			data = append(data, 0)
		} else {
			data = append(data, 1)
			data = putUint8(data, input.MerkleContext.QueueIndex.QueueId)
			data = putUint16(data, input.MerkleContext.QueueIndex.Index)
		}
		data = putUint16(data, input.RootIndex)
		data = putOptionalUint64(data, input.Lamports)
		data = putOptionalBytes(data, input.Tlv)
	}

	data = putUint32(data, uint32(len(args.OutputCompressedAccounts)))
	for _, output := range args.OutputCompressedAccounts {
		data = putKey(data, output.Owner)
		data = putUint64(data, output.Amount)
		data = putOptionalUint64(data, output.Lamports)
		data = putUint8(data, output.MerkleTreeIndex)
		data = putOptionalBytes(data, output.Tlv)
	}

	data = putBool(data, args.IsCompress)
	data = putOptionalUint64(data, args.CompressOrDecompressAmount)

	// cpi_context
	data = append(data, 0)

	data = putOptionalUint8(data, args.LamportsChangeAccountMerkleTreeIndex)

	return data
}

func (args *TransferInstructionArgs) Unmarshal(data []byte) error {
	var offset int
	var ok bool

	*args = TransferInstructionArgs{}

	var hasProof bool
	if !getBool(data, &hasProof, &offset) {
		return ErrInvalidInstructionData
	}
	if hasProof {
		args.Proof = &CompressedProof{}
		if !getFixed(data, args.Proof.A[:], &offset) ||
			!getFixed(data, args.Proof.B[:], &offset) ||
			!getFixed(data, args.Proof.C[:], &offset) {
			return ErrInvalidInstructionData
		}
	}

	if !getKey(data, &args.Mint, &offset) {
		return ErrInvalidInstructionData
	}

	var hasDelegatedTransfer bool
	if !getBool(data, &hasDelegatedTransfer, &offset) || hasDelegatedTransfer {
		return ErrInvalidInstructionData
	}

	var inputCount uint32
	if !getUint32(data, &inputCount, &offset) {
		return ErrInvalidInstructionData
	}
	for i := uint32(0); i < inputCount; i++ {
		var input InputTokenDataWithContext
		ok = getUint64(data, &input.Amount, &offset) &&
			getOptionalUint8(data, &input.DelegateIndex, &offset) &&
			getUint8(data, &input.MerkleContext.MerkleTreePubkeyIndex, &offset) &&
			getUint8(data, &input.MerkleContext.NullifierQueuePubkeyIndex, &offset) &&
			getUint32(data, &input.MerkleContext.LeafIndex, &offset)
		if !ok {
			return ErrInvalidInstructionData
		}

		var hasQueueIndex bool
		if !getBool(data, &hasQueueIndex, &offset) {
			return ErrInvalidInstructionData
		}
		if hasQueueIndex {
			input.MerkleContext.QueueIndex = &QueueIndex{}
			if !getUint8(data, &input.MerkleContext.QueueIndex.QueueId, &offset) ||
				!getUint16(data, &input.MerkleContext.QueueIndex.Index, &offset) {
				return ErrInvalidInstructionData
			}
		}

		ok = getUint16(data, &input.RootIndex, &offset) &&
			getOptionalUint64(data, &input.Lamports, &offset) &&
			getOptionalBytes(data, &input.Tlv, &offset)
		if !ok {
			return ErrInvalidInstructionData
		}

		args.InputTokenDataWithContext = append(args.InputTokenDataWithContext, input)
	}

	var outputCount uint32
	if !getUint32(data, &outputCount, &offset) {
		return ErrInvalidInstructionData
	}
	for i := uint32(0); i < outputCount; i++ {
		var output PackedTokenTransferOutputData
		ok = getKey(data, &output.Owner, &offset) &&
			getUint64(data, &output.Amount, &offset) &&
			getOptionalUint64(data, &output.Lamports, &offset) &&
			getUint8(data, &output.MerkleTreeIndex, &offset) &&
			getOptionalBytes(data, &output.Tlv, &offset)
		if !ok {
			return ErrInvalidInstructionData
		}

		args.OutputCompressedAccounts = append(args.OutputCompressedAccounts, output)
	}

	if !getBool(data, &args.IsCompress, &offset) ||
		!getOptionalUint64(data, &args.CompressOrDecompressAmount, &offset) {
		return ErrInvalidInstructionData
	}

	var hasCpiContext bool
	if !getBool(data, &hasCpiContext, &offset) || hasCpiContext {
		return ErrInvalidInstructionData
	}

	if !getOptionalUint8(data, &args.LamportsChangeAccountMerkleTreeIndex, &offset) {
		return ErrInvalidInstructionData
	}

	if offset != len(data) {
		return ErrInvalidInstructionData
	}
	return nil
}

// NewTransferInstruction builds the compressed token program's transfer
// instruction. Optional accounts that aren't provided are replaced with the
// program address.
func NewTransferInstruction(
	accounts *TransferInstructionAccounts,
	args *TransferInstructionArgs,
) (solana.Instruction, error) {
	cpiAuthority, _, err := GetCpiAuthorityAddress()
	if err != nil {
		return solana.Instruction{}, errors.Wrap(err, "error deriving cpi authority")
	}

	// The payload is wrapped as the instruction's single `inputs: Vec<u8>`
	// argument.
	payload := args.Marshal()
	data := make([]byte, 0, len(TransferInstructionDiscriminator)+4+len(payload))
	data = putDiscriminator(data, TransferInstructionDiscriminator)
	data = putBytes(data, payload)

	tokenPool := accounts.TokenPool
	if len(tokenPool) == 0 {
		tokenPool = PROGRAM_ID
	}
	compressOrDecompressTokenAccount := accounts.CompressOrDecompressTokenAccount
	if len(compressOrDecompressTokenAccount) == 0 {
		compressOrDecompressTokenAccount = PROGRAM_ID
	}
	tokenProgram := PROGRAM_ID
	if len(accounts.TokenPool) > 0 {
		tokenProgram = SPL_TOKEN_PROGRAM_ID
	}

	metas := []solana.AccountMeta{
		{
			PublicKey:  accounts.FeePayer,
			IsWritable: true,
			IsSigner:   true,
		},
		{
			PublicKey:  accounts.Authority,
			IsWritable: false,
			IsSigner:   true,
		},
		{
			PublicKey: cpiAuthority,
		},
		{
			PublicKey: LIGHT_SYSTEM_PROGRAM_ID,
		},
		{
			PublicKey: REGISTERED_PROGRAM_PDA,
		},
		{
			PublicKey: NOOP_PROGRAM_ID,
		},
		{
			PublicKey: ACCOUNT_COMPRESSION_AUTHORITY,
		},
		{
			PublicKey: ACCOUNT_COMPRESSION_PROGRAM_ID,
		},
		{
			PublicKey: PROGRAM_ID,
		},
		{
			PublicKey:  tokenPool,
			IsWritable: !bytes.Equal(tokenPool, PROGRAM_ID),
		},
		{
			PublicKey:  compressOrDecompressTokenAccount,
			IsWritable: !bytes.Equal(compressOrDecompressTokenAccount, PROGRAM_ID),
		},
		{
			PublicKey: tokenProgram,
		},
		{
			PublicKey: SYSTEM_PROGRAM_ID,
		},
	}

	for _, remaining := range accounts.RemainingAccounts {
		metas = append(metas, solana.AccountMeta{
			PublicKey:  remaining,
			IsWritable: true,
		})
	}

	return solana.Instruction{
		Program:  PROGRAM_ADDRESS,
		Data:     data,
		Accounts: metas,
	}, nil
}

// DecompileTransferInstructionArgs parses the args of a compiled transfer
// instruction.
func DecompileTransferInstructionArgs(m solana.Message, index int) (*TransferInstructionArgs, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]
	if int(i.ProgramIndex) >= len(m.Accounts) || !bytes.Equal(m.Accounts[i.ProgramIndex], PROGRAM_ID) {
		return nil, ErrInvalidProgram
	}

	return parseTransferInstructionData(i.Data)
}

func parseTransferInstructionData(data []byte) (*TransferInstructionArgs, error) {
	if len(data) < 12 || !bytes.Equal(data[:8], TransferInstructionDiscriminator) {
		return nil, ErrInvalidInstructionData
	}

	var offset = 8
	var length uint32
	if !getUint32(data, &length, &offset) || int(length) != len(data)-offset {
		return nil, ErrInvalidInstructionData
	}

	var args TransferInstructionArgs
	if err := args.Unmarshal(data[offset:]); err != nil {
		return nil, err
	}
	return &args, nil
}
