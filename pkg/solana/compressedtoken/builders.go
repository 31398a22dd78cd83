package compressedtoken

import (
	"bytes"
	"crypto/ed25519"
	"sort"

	"github.com/pkg/errors"

	"github.com/code-payments/compressed-wallet/pkg/pointer"
	"github.com/code-payments/compressed-wallet/pkg/solana"
	"github.com/code-payments/compressed-wallet/pkg/solana/compression"
)

var (
	ErrInsufficientBalance = errors.New("insufficient compressed balance")
	ErrTooManyInputs       = errors.New("too many input accounts required")
	ErrNoInputs            = errors.New("no input accounts provided")
	ErrMixedInputs         = errors.New("input accounts must share an owner and mint")
	ErrProofMismatch       = errors.New("validity proof doesn't cover the inputs")
)

// TokenTransferOutput is a compressed token account to be created
type TokenTransferOutput struct {
	Owner  ed25519.PublicKey
	Amount uint64
}

// SelectInputAccounts greedily selects the largest compressed token accounts
// until amount is covered. The change is the selected total minus amount.
func SelectInputAccounts(accounts []*compression.TokenAccount, amount uint64) (selected []*compression.TokenAccount, change uint64, err error) {
	sorted := make([]*compression.TokenAccount, len(accounts))
	copy(sorted, accounts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TokenData.Amount > sorted[j].TokenData.Amount
	})

	var total uint64
	for _, account := range sorted {
		if total >= amount {
			break
		}
		if account.TokenData.Amount == 0 {
			continue
		}

		selected = append(selected, account)
		total += account.TokenData.Amount
	}

	if total < amount {
		return nil, 0, errors.Wrapf(ErrInsufficientBalance, "required %d, available %d", amount, total)
	}
	if len(selected) > MaxInputAccounts {
		return nil, 0, errors.Wrapf(ErrTooManyInputs, "%d accounts needed to cover %d", len(selected), amount)
	}

	return selected, total - amount, nil
}

// accountPacker assigns indices into the instruction's remaining accounts
type accountPacker struct {
	accounts []ed25519.PublicKey
}

func (p *accountPacker) indexOf(key ed25519.PublicKey) uint8 {
	for i, existing := range p.accounts {
		if bytes.Equal(existing, key) {
			return uint8(i)
		}
	}
	p.accounts = append(p.accounts, key)
	return uint8(len(p.accounts) - 1)
}

type packedState struct {
	inputs            []InputTokenDataWithContext
	outputs           []PackedTokenTransferOutputData
	remainingAccounts []ed25519.PublicKey
}

// pack converts the inputs and outputs into their index-based form. Outputs
// are placed into outputTree when set, otherwise into the tree of the first
// input.
func pack(inputs []*compression.TokenAccount, proof *compression.ValidityProof, outputs []TokenTransferOutput, outputTree ed25519.PublicKey) (*packedState, error) {
	if len(inputs) > 0 {
		if proof == nil || len(proof.RootIndices) != len(inputs) {
			return nil, ErrProofMismatch
		}
	}

	packer := &accountPacker{}
	state := &packedState{}

	for i, input := range inputs {
		tree := input.Account.Tree
		if i < len(proof.MerkleTrees) && len(proof.MerkleTrees[i]) > 0 {
			tree = proof.MerkleTrees[i]
		}
		if len(tree) == 0 {
			tree = DefaultTreeAccounts.StateTree
		}

		queue := DefaultTreeAccounts.NullifierQueue
		if i < len(proof.NullifierQueues) && len(proof.NullifierQueues[i]) > 0 {
			queue = proof.NullifierQueues[i]
		}

		packed := InputTokenDataWithContext{
			Amount: input.TokenData.Amount,
			MerkleContext: PackedMerkleContext{
				MerkleTreePubkeyIndex:     packer.indexOf(tree),
				NullifierQueuePubkeyIndex: packer.indexOf(queue),
				LeafIndex:                 input.Account.LeafIndex,
			},
			RootIndex: proof.RootIndices[i],
		}
		if input.Account.Lamports > 0 {
			packed.Lamports = pointer.Uint64(input.Account.Lamports)
		}

		state.inputs = append(state.inputs, packed)
	}

	if len(outputs) > 0 {
		if len(outputTree) == 0 {
			if len(inputs) == 0 {
				outputTree = DefaultTreeAccounts.StateTree
			} else {
				outputTree = packer.accounts[state.inputs[0].MerkleContext.MerkleTreePubkeyIndex]
			}
		}
		outputTreeIndex := packer.indexOf(outputTree)

		for _, output := range outputs {
			state.outputs = append(state.outputs, PackedTokenTransferOutputData{
				Owner:           output.Owner,
				Amount:          output.Amount,
				MerkleTreeIndex: outputTreeIndex,
			})
		}
	}

	state.remainingAccounts = packer.accounts
	return state, nil
}

func toCompressedProof(proof *compression.ValidityProof) *CompressedProof {
	if proof == nil || proof.CompressedProof == nil {
		return nil
	}
	return &CompressedProof{
		A: proof.CompressedProof.A,
		B: proof.CompressedProof.B,
		C: proof.CompressedProof.C,
	}
}

func validateInputs(inputs []*compression.TokenAccount, mint ed25519.PublicKey) (ed25519.PublicKey, uint64, error) {
	if len(inputs) == 0 {
		return nil, 0, ErrNoInputs
	}

	owner := inputs[0].TokenData.Owner

	var total uint64
	for _, input := range inputs {
		if !bytes.Equal(input.TokenData.Owner, owner) || !bytes.Equal(input.TokenData.Mint, mint) {
			return nil, 0, ErrMixedInputs
		}
		total += input.TokenData.Amount
	}

	return owner, total, nil
}

type TransferArgs struct {
	FeePayer  ed25519.PublicKey
	Mint      ed25519.PublicKey
	Recipient ed25519.PublicKey
	Amount    uint64

	// Inputs are owned by the transfer authority
	Inputs []*compression.TokenAccount
	Proof  *compression.ValidityProof

	OutputStateTree ed25519.PublicKey
}

// NewCompressedTransferInstruction moves compressed tokens between owners.
// Any change is returned to the owner of the inputs ahead of the recipient's
// output.
func NewCompressedTransferInstruction(args *TransferArgs) (solana.Instruction, error) {
	owner, total, err := validateInputs(args.Inputs, args.Mint)
	if err != nil {
		return solana.Instruction{}, err
	}
	if total < args.Amount {
		return solana.Instruction{}, errors.Wrapf(ErrInsufficientBalance, "required %d, available %d", args.Amount, total)
	}

	var outputs []TokenTransferOutput
	if change := total - args.Amount; change > 0 {
		outputs = append(outputs, TokenTransferOutput{Owner: owner, Amount: change})
	}
	outputs = append(outputs, TokenTransferOutput{Owner: args.Recipient, Amount: args.Amount})

	packed, err := pack(args.Inputs, args.Proof, outputs, args.OutputStateTree)
	if err != nil {
		return solana.Instruction{}, err
	}

	return NewTransferInstruction(
		&TransferInstructionAccounts{
			FeePayer:          args.FeePayer,
			Authority:         owner,
			RemainingAccounts: packed.remainingAccounts,
		},
		&TransferInstructionArgs{
			Proof:                     toCompressedProof(args.Proof),
			Mint:                      args.Mint,
			InputTokenDataWithContext: packed.inputs,
			OutputCompressedAccounts:  packed.outputs,
		},
	)
}

type CompressArgs struct {
	FeePayer  ed25519.PublicKey
	Owner     ed25519.PublicKey
	Source    ed25519.PublicKey
	Recipient ed25519.PublicKey
	Mint      ed25519.PublicKey
	Amount    uint64

	OutputStateTree ed25519.PublicKey
}

// NewCompressInstruction moves tokens out of an SPL token account owned by
// Owner into the token pool, minting a compressed balance for the recipient.
func NewCompressInstruction(args *CompressArgs) (solana.Instruction, error) {
	tokenPool, _, err := GetTokenPoolAddress(&GetTokenPoolAddressArgs{Mint: args.Mint})
	if err != nil {
		return solana.Instruction{}, errors.Wrap(err, "error deriving token pool")
	}

	outputs := []TokenTransferOutput{
		{Owner: args.Recipient, Amount: args.Amount},
	}

	packed, err := pack(nil, nil, outputs, args.OutputStateTree)
	if err != nil {
		return solana.Instruction{}, err
	}

	return NewTransferInstruction(
		&TransferInstructionAccounts{
			FeePayer:                         args.FeePayer,
			Authority:                        args.Owner,
			TokenPool:                        tokenPool,
			CompressOrDecompressTokenAccount: args.Source,
			RemainingAccounts:                packed.remainingAccounts,
		},
		&TransferInstructionArgs{
			Mint:                       args.Mint,
			OutputCompressedAccounts:   packed.outputs,
			IsCompress:                 true,
			CompressOrDecompressAmount: pointer.Uint64(args.Amount),
		},
	)
}

type DecompressArgs struct {
	FeePayer    ed25519.PublicKey
	Destination ed25519.PublicKey
	Mint        ed25519.PublicKey
	Amount      uint64

	Inputs []*compression.TokenAccount
	Proof  *compression.ValidityProof

	OutputStateTree ed25519.PublicKey
}

// NewDecompressInstruction releases tokens from the token pool into the
// destination SPL token account, consuming the compressed inputs. Change
// stays compressed with the owner of the inputs.
func NewDecompressInstruction(args *DecompressArgs) (solana.Instruction, error) {
	owner, total, err := validateInputs(args.Inputs, args.Mint)
	if err != nil {
		return solana.Instruction{}, err
	}
	if total < args.Amount {
		return solana.Instruction{}, errors.Wrapf(ErrInsufficientBalance, "required %d, available %d", args.Amount, total)
	}

	tokenPool, _, err := GetTokenPoolAddress(&GetTokenPoolAddressArgs{Mint: args.Mint})
	if err != nil {
		return solana.Instruction{}, errors.Wrap(err, "error deriving token pool")
	}

	var outputs []TokenTransferOutput
	if change := total - args.Amount; change > 0 {
		outputs = append(outputs, TokenTransferOutput{Owner: owner, Amount: change})
	}

	packed, err := pack(args.Inputs, args.Proof, outputs, args.OutputStateTree)
	if err != nil {
		return solana.Instruction{}, err
	}

	return NewTransferInstruction(
		&TransferInstructionAccounts{
			FeePayer:                         args.FeePayer,
			Authority:                        owner,
			TokenPool:                        tokenPool,
			CompressOrDecompressTokenAccount: args.Destination,
			RemainingAccounts:                packed.remainingAccounts,
		},
		&TransferInstructionArgs{
			Proof:                      toCompressedProof(args.Proof),
			Mint:                       args.Mint,
			InputTokenDataWithContext:  packed.inputs,
			OutputCompressedAccounts:   packed.outputs,
			CompressOrDecompressAmount: pointer.Uint64(args.Amount),
		},
	)
}

// InputHashes returns the leaf hashes a validity proof must be requested for
func InputHashes(inputs []*compression.TokenAccount) []compression.Hash {
	hashes := make([]compression.Hash, len(inputs))
	for i, input := range inputs {
		hashes[i] = input.Account.Hash
	}
	return hashes
}
