package solana

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/ybbus/jsonrpc"
)

// TransactionErrorKey names a transaction level failure reported by the
// runtime.
type TransactionErrorKey string

const (
	TransactionErrorAccountInUse            TransactionErrorKey = "AccountInUse"
	TransactionErrorAccountNotFound         TransactionErrorKey = "AccountNotFound"
	TransactionErrorBlockhashNotFound       TransactionErrorKey = "BlockhashNotFound"
	TransactionErrorDuplicateSignature      TransactionErrorKey = "DuplicateSignature"
	TransactionErrorInstructionError        TransactionErrorKey = "InstructionError"
	TransactionErrorInsufficientFundsForFee TransactionErrorKey = "InsufficientFundsForFee"
	TransactionErrorSignatureFailure        TransactionErrorKey = "SignatureFailure"
)

// InstructionErrorKey names the failure of a single instruction.
type InstructionErrorKey string

const (
	InstructionErrorCustom            InstructionErrorKey = "Custom"
	InstructionErrorInsufficientFunds InstructionErrorKey = "InsufficientFunds"
	InstructionErrorInvalidArgument   InstructionErrorKey = "InvalidArgument"
)

// CustomError is a program specific error code.
type CustomError int

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: 0x%x", int(c))
}

// InstructionError identifies the instruction that failed a transaction.
type InstructionError struct {
	Index int
	Err   error
}

func (e InstructionError) Error() string {
	return fmt.Sprintf("Error processing Instruction %d: %v", e.Index, e.Err)
}

func (e InstructionError) ErrorKey() InstructionErrorKey {
	switch err := e.Err.(type) {
	case nil:
		return ""
	case CustomError:
		return InstructionErrorCustom
	default:
		return InstructionErrorKey(err.Error())
	}
}

func (e InstructionError) CustomError() *CustomError {
	if custom, ok := e.Err.(CustomError); ok {
		return &custom
	}
	return nil
}

// TransactionError is a failed transaction result.
type TransactionError struct {
	key         TransactionErrorKey
	instruction *InstructionError
	raw         string
}

func NewTransactionError(key TransactionErrorKey) *TransactionError {
	return &TransactionError{key: key, raw: fmt.Sprintf("%q", key)}
}

func (e *TransactionError) Error() string {
	if e.instruction != nil {
		return e.instruction.Error()
	}
	return string(e.key)
}

func (e *TransactionError) ErrorKey() TransactionErrorKey {
	return e.key
}

func (e *TransactionError) InstructionError() *InstructionError {
	return e.instruction
}

// JSONString returns the error as reported by the RPC node.
func (e *TransactionError) JSONString() string {
	return e.raw
}

// ParseTransactionError decodes the "err" value of a transaction result,
// which is either a bare key or a single entry object keyed by the error
// name. An absent or null value yields a nil error.
func ParseTransactionError(raw []byte) (*TransactionError, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("malformed transaction error")
	}
	return parseTransactionError(gjson.ParseBytes(raw))
}

// ParseRPCError extracts the transaction error carried in the data of an RPC
// error, as returned when sendTransaction fails preflight simulation. A nil
// error is returned when the RPC error doesn't carry one.
func ParseRPCError(rpcErr *jsonrpc.RPCError) (*TransactionError, error) {
	if rpcErr == nil || rpcErr.Data == nil {
		return nil, nil
	}

	raw, err := json.Marshal(rpcErr.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal rpc error data")
	}

	value := gjson.GetBytes(raw, "err")
	if !value.Exists() {
		return nil, nil
	}
	return parseTransactionError(value)
}

func parseTransactionError(value gjson.Result) (*TransactionError, error) {
	switch {
	case value.Type == gjson.Null:
		return nil, nil
	case value.Type == gjson.String:
		return &TransactionError{key: TransactionErrorKey(value.Str), raw: value.Raw}, nil
	case !value.IsObject():
		return nil, errors.Errorf("unhandled transaction error: %s", value.Raw)
	}

	name, detail, err := singleEntry(value)
	if err != nil {
		return nil, errors.Wrap(err, "invalid transaction error")
	}

	txErr := &TransactionError{key: TransactionErrorKey(name), raw: value.Raw}
	if txErr.key != TransactionErrorInstructionError {
		return txErr, nil
	}

	if txErr.instruction, err = parseInstructionError(detail); err != nil {
		return nil, errors.Wrap(err, "invalid instruction error")
	}
	return txErr, nil
}

// parseInstructionError decodes an [index, error] tuple.
func parseInstructionError(value gjson.Result) (*InstructionError, error) {
	tuple := value.Array()
	if !value.IsArray() || len(tuple) != 2 {
		return nil, errors.Errorf("expected [index, error], got %s", value.Raw)
	}

	index, err := parseIndex(tuple[0])
	if err != nil {
		return nil, err
	}

	result := &InstructionError{Index: index}

	detail := tuple[1]
	switch {
	case detail.Type == gjson.String:
		result.Err = errors.New(detail.Str)
	case detail.IsObject():
		name, inner, err := singleEntry(detail)
		if err != nil {
			return nil, err
		}

		if InstructionErrorKey(name) == InstructionErrorCustom {
			code, err := parseIndex(inner)
			if err != nil {
				return nil, errors.Wrap(err, "invalid custom error code")
			}
			result.Err = CustomError(code)
		} else {
			result.Err = errors.New(name)
		}
	default:
		return nil, errors.Errorf("unhandled instruction error: %s", detail.Raw)
	}

	return result, nil
}

func singleEntry(object gjson.Result) (key string, value gjson.Result, err error) {
	entries := object.Map()
	if len(entries) != 1 {
		return "", gjson.Result{}, errors.Errorf("expected a single entry, got %d", len(entries))
	}
	for key, value = range entries {
	}
	return key, value, nil
}

// parseIndex accepts numbers and numeric strings, both of which appear in
// RPC responses depending on the node version.
func parseIndex(value gjson.Result) (int, error) {
	switch value.Type {
	case gjson.Number:
		return int(value.Int()), nil
	case gjson.String:
		index, err := strconv.Atoi(value.Str)
		if err != nil {
			return 0, errors.Errorf("non numeric value: %s", value.Raw)
		}
		return index, nil
	default:
		return 0, errors.Errorf("non numeric value: %s", value.Raw)
	}
}
