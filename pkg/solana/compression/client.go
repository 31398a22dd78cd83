package compression

import (
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/compressed-wallet/pkg/retry"
	"github.com/code-payments/compressed-wallet/pkg/solana"
)

const (
	// Upper bound on pages fetched when following an indexer cursor
	maxPages = 20

	defaultPageLimit = 1000
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidResponse     = errors.New("invalid indexer response")
)

// Client provides an interaction with the compression (ZK compression)
// indexer API. The indexer is queried over JSON RPC, with every method taking
// a single named parameter object.
//
// Reference: https://www.zkcompression.com/developers/json-rpc-methods
type Client interface {
	GetCompressedTokenBalancesByOwner(owner, mint ed25519.PublicKey) ([]*TokenBalance, error)
	GetCompressedTokenAccountsByOwner(owner, mint ed25519.PublicKey) ([]*TokenAccount, error)
	GetValidityProof(hashes []Hash) (*ValidityProof, error)
	GetCompressionSignaturesForTokenOwner(owner ed25519.PublicKey, limit uint64) ([]*SignatureInfo, error)
	GetCompressionSignaturesForOwner(owner ed25519.PublicKey, limit uint64) ([]*SignatureInfo, error)
	GetTransactionWithCompressionInfo(sig solana.Signature) (*TransactionWithCompressionInfo, error)
}

type client struct {
	log     *logrus.Entry
	client  jsonrpc.RPCClient
	retrier retry.Retrier
}

// New returns a client using the specified endpoint.
func New(endpoint string) Client {
	return NewWithRPCOptions(endpoint, &jsonrpc.RPCClientOpts{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	})
}

// NewWithRPCOptions returns a client configured with the specified RPC options.
func NewWithRPCOptions(endpoint string, opts *jsonrpc.RPCClientOpts) Client {
	return &client{
		log:     logrus.StandardLogger().WithField("type", "solana/compression/client"),
		client:  jsonrpc.NewClientWithOpts(endpoint, opts),
		retrier: solana.NewRPCRetrier(),
	}
}

// call invokes the method and returns the raw result. Responses wrapped in an
// RPC context have their value unwrapped.
func (c *client) call(method string, params interface{}) (gjson.Result, error) {
	var raw json.RawMessage
	_, err := c.retrier.Retry(func() error {
		err := c.client.CallFor(&raw, method, params)
		if err == nil {
			return nil
		}

		return solana.MapRPCError(c.log, method, err)
	})
	if err != nil {
		return gjson.Result{}, err
	}

	result := gjson.ParseBytes(raw)
	if value := result.Get("value"); result.Get("context").Exists() && value.Exists() {
		return value, nil
	}
	return result, nil
}

func (c *client) GetCompressedTokenBalancesByOwner(owner, mint ed25519.PublicKey) ([]*TokenBalance, error) {
	params := struct {
		Owner string  `json:"owner"`
		Mint  *string `json:"mint,omitempty"`
	}{
		Owner: base58.Encode(owner),
	}
	if len(mint) > 0 {
		encoded := base58.Encode(mint)
		params.Mint = &encoded
	}

	value, err := c.call("getCompressedTokenBalancesByOwner", params)
	if err != nil {
		return nil, errors.Wrap(err, "getCompressedTokenBalancesByOwner() failed to send request")
	}

	// Older indexers name the list token_balances
	items := value.Get("items")
	if !items.Exists() {
		items = value.Get("token_balances")
	}

	var balances []*TokenBalance
	for _, item := range items.Array() {
		mint, err := decodeKey(item.Get("mint"))
		if err != nil {
			return nil, errors.Wrap(err, "invalid mint in token balance")
		}

		balances = append(balances, &TokenBalance{
			Mint:    mint,
			Balance: item.Get("balance").Uint(),
		})
	}
	return balances, nil
}

// GetCompressedTokenAccountsByOwner follows the indexer cursor until every
// account for the mint has been loaded.
func (c *client) GetCompressedTokenAccountsByOwner(owner, mint ed25519.PublicKey) ([]*TokenAccount, error) {
	params := struct {
		Owner  string  `json:"owner"`
		Mint   string  `json:"mint"`
		Cursor *string `json:"cursor,omitempty"`
		Limit  uint64  `json:"limit"`
	}{
		Owner: base58.Encode(owner),
		Mint:  base58.Encode(mint),
		Limit: defaultPageLimit,
	}

	var accounts []*TokenAccount
	for page := 0; page < maxPages; page++ {
		value, err := c.call("getCompressedTokenAccountsByOwner", params)
		if err != nil {
			return nil, errors.Wrap(err, "getCompressedTokenAccountsByOwner() failed to send request")
		}

		for _, item := range value.Get("items").Array() {
			account, err := decodeCompressedAccount(item.Get("account"))
			if err != nil {
				return nil, err
			}

			tokenData, err := decodeTokenData(item.Get("tokenData"))
			if err != nil {
				return nil, err
			}

			accounts = append(accounts, &TokenAccount{
				Account:   *account,
				TokenData: *tokenData,
			})
		}

		cursor := value.Get("cursor")
		if cursor.Type != gjson.String || len(cursor.String()) == 0 {
			return accounts, nil
		}
		next := cursor.String()
		params.Cursor = &next
	}

	c.log.WithFields(logrus.Fields{
		"method": "GetCompressedTokenAccountsByOwner",
		"owner":  base58.Encode(owner),
	}).Warn("page limit reached, returning partial account set")
	return accounts, nil
}

func (c *client) GetValidityProof(hashes []Hash) (*ValidityProof, error) {
	if len(hashes) == 0 {
		return nil, errors.New("at least one hash is required")
	}

	encoded := make([]string, len(hashes))
	for i, hash := range hashes {
		encoded[i] = base58.Encode(hash[:])
	}

	params := struct {
		Hashes       []string `json:"hashes"`
		NewAddresses []string `json:"newAddresses"`
	}{
		Hashes:       encoded,
		NewAddresses: []string{},
	}

	value, err := c.call("getValidityProof", params)
	if err != nil {
		return nil, errors.Wrap(err, "getValidityProof() failed to send request")
	}

	proof := &ValidityProof{}

	if compressed := value.Get("compressedProof"); compressed.IsObject() {
		proof.CompressedProof = &CompressedProof{}
		if err := decodeByteArray(compressed.Get("a"), proof.CompressedProof.A[:]); err != nil {
			return nil, errors.Wrap(err, "invalid proof.a")
		}
		if err := decodeByteArray(compressed.Get("b"), proof.CompressedProof.B[:]); err != nil {
			return nil, errors.Wrap(err, "invalid proof.b")
		}
		if err := decodeByteArray(compressed.Get("c"), proof.CompressedProof.C[:]); err != nil {
			return nil, errors.Wrap(err, "invalid proof.c")
		}
	}

	for _, root := range value.Get("roots").Array() {
		hash, err := decodeHash(root)
		if err != nil {
			return nil, errors.Wrap(err, "invalid root")
		}
		proof.Roots = append(proof.Roots, hash)
	}
	for _, leaf := range value.Get("leaves").Array() {
		hash, err := decodeHash(leaf)
		if err != nil {
			return nil, errors.Wrap(err, "invalid leaf")
		}
		proof.Leaves = append(proof.Leaves, hash)
	}
	for _, index := range value.Get("rootIndices").Array() {
		proof.RootIndices = append(proof.RootIndices, uint16(index.Uint()))
	}
	for _, index := range value.Get("leafIndices").Array() {
		proof.LeafIndices = append(proof.LeafIndices, uint32(index.Uint()))
	}
	for _, tree := range value.Get("merkleTrees").Array() {
		key, err := decodeKey(tree)
		if err != nil {
			return nil, errors.Wrap(err, "invalid merkle tree")
		}
		proof.MerkleTrees = append(proof.MerkleTrees, key)
	}
	for _, queue := range value.Get("nullifierQueues").Array() {
		key, err := decodeKey(queue)
		if err != nil {
			return nil, errors.Wrap(err, "invalid nullifier queue")
		}
		proof.NullifierQueues = append(proof.NullifierQueues, key)
	}

	if len(proof.RootIndices) != len(hashes) {
		return nil, errors.Wrapf(ErrInvalidResponse, "expected %d root indices, got %d", len(hashes), len(proof.RootIndices))
	}

	return proof, nil
}

func (c *client) GetCompressionSignaturesForTokenOwner(owner ed25519.PublicKey, limit uint64) ([]*SignatureInfo, error) {
	return c.getSignatures("getCompressionSignaturesForTokenOwner", owner, limit)
}

func (c *client) GetCompressionSignaturesForOwner(owner ed25519.PublicKey, limit uint64) ([]*SignatureInfo, error) {
	return c.getSignatures("getCompressionSignaturesForOwner", owner, limit)
}

func (c *client) getSignatures(method string, owner ed25519.PublicKey, limit uint64) ([]*SignatureInfo, error) {
	params := struct {
		Owner string  `json:"owner"`
		Limit *uint64 `json:"limit,omitempty"`
	}{
		Owner: base58.Encode(owner),
	}
	if limit > 0 {
		params.Limit = &limit
	}

	value, err := c.call(method, params)
	if err != nil {
		return nil, errors.Wrapf(err, "%s() failed to send request", method)
	}

	var result []*SignatureInfo
	for _, item := range value.Get("items").Array() {
		sig, err := decodeSignature(item.Get("signature"))
		if err != nil {
			return nil, err
		}

		info := &SignatureInfo{
			Signature: sig,
			Slot:      item.Get("slot").Uint(),
		}
		if blockTime := item.Get("blockTime"); blockTime.Exists() && blockTime.Type != gjson.Null {
			t := time.Unix(blockTime.Int(), 0)
			info.BlockTime = &t
		}

		result = append(result, info)
	}
	return result, nil
}

func (c *client) GetTransactionWithCompressionInfo(sig solana.Signature) (*TransactionWithCompressionInfo, error) {
	params := struct {
		Signature string `json:"signature"`
	}{
		Signature: base58.Encode(sig[:]),
	}

	value, err := c.call("getTransactionWithCompressionInfo", params)
	if err != nil {
		return nil, errors.Wrap(err, "getTransactionWithCompressionInfo() failed to send request")
	}

	if !value.Exists() || value.Type == gjson.Null {
		return nil, ErrTransactionNotFound
	}

	info := value.Get("compressionInfo")
	if !info.Exists() {
		info = value.Get("compression_info")
	}

	txn := &TransactionWithCompressionInfo{
		Signature: sig,
		Slot:      value.Get("transaction.slot").Uint(),
	}

	txn.OpenedAccounts, err = decodeAccountsWithTokenData(info.Get("openedAccounts"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid opened accounts")
	}
	txn.ClosedAccounts, err = decodeAccountsWithTokenData(info.Get("closedAccounts"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid closed accounts")
	}

	return txn, nil
}

func decodeAccountsWithTokenData(value gjson.Result) ([]*AccountWithTokenData, error) {
	var result []*AccountWithTokenData
	for _, item := range value.Array() {
		account, err := decodeCompressedAccount(item.Get("account"))
		if err != nil {
			return nil, err
		}

		decoded := &AccountWithTokenData{Account: *account}
		if tokenData := item.Get("maybeTokenData"); tokenData.IsObject() {
			decoded.TokenData, err = decodeTokenData(tokenData)
			if err != nil {
				return nil, err
			}
		}

		result = append(result, decoded)
	}
	return result, nil
}

func decodeCompressedAccount(value gjson.Result) (*CompressedAccount, error) {
	if !value.IsObject() {
		return nil, errors.Wrap(ErrInvalidResponse, "missing compressed account")
	}

	var account CompressedAccount
	var err error

	account.Hash, err = decodeHash(value.Get("hash"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid account hash")
	}

	if address := value.Get("address"); address.Type == gjson.String {
		account.Address, err = base58.Decode(address.String())
		if err != nil {
			return nil, errors.Wrap(err, "invalid account address")
		}
	}

	account.Owner, err = decodeKey(value.Get("owner"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid account owner")
	}

	account.Tree, err = decodeKey(value.Get("tree"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid account tree")
	}

	account.Lamports = value.Get("lamports").Uint()
	account.LeafIndex = uint32(value.Get("leafIndex").Uint())
	account.SlotCreated = value.Get("slotCreated").Uint()
	if seq := value.Get("seq"); seq.Exists() && seq.Type != gjson.Null {
		v := seq.Uint()
		account.Seq = &v
	}

	return &account, nil
}

func decodeTokenData(value gjson.Result) (*TokenData, error) {
	if !value.IsObject() {
		return nil, errors.Wrap(ErrInvalidResponse, "missing token data")
	}

	var data TokenData
	var err error

	data.Mint, err = decodeKey(value.Get("mint"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid token mint")
	}
	data.Owner, err = decodeKey(value.Get("owner"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid token owner")
	}
	data.Delegate, err = decodeKey(value.Get("delegate"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid token delegate")
	}

	data.Amount = value.Get("amount").Uint()
	data.State = value.Get("state").String()

	return &data, nil
}

func decodeKey(value gjson.Result) (ed25519.PublicKey, error) {
	if value.Type != gjson.String || len(value.String()) == 0 {
		return nil, nil
	}

	decoded, err := base58.Decode(value.String())
	if err != nil {
		return nil, err
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid key length: %d", len(decoded))
	}
	return decoded, nil
}

func decodeHash(value gjson.Result) (Hash, error) {
	var hash Hash

	decoded, err := base58.Decode(value.String())
	if err != nil {
		return hash, err
	}
	if len(decoded) != HashSize {
		return hash, errors.Errorf("invalid hash length: %d", len(decoded))
	}

	copy(hash[:], decoded)
	return hash, nil
}

func decodeSignature(value gjson.Result) (solana.Signature, error) {
	var sig solana.Signature

	decoded, err := base58.Decode(value.String())
	if err != nil {
		return sig, errors.Wrap(err, "invalid signature")
	}
	if len(decoded) != len(sig) {
		return sig, errors.Errorf("invalid signature length: %d", len(decoded))
	}

	copy(sig[:], decoded)
	return sig, nil
}

func decodeByteArray(value gjson.Result, dst []byte) error {
	items := value.Array()
	if len(items) != len(dst) {
		return errors.Errorf("expected %d bytes, got %d", len(dst), len(items))
	}

	for i, item := range items {
		v := item.Uint()
		if v > 255 {
			return errors.Errorf("byte out of range at %d", i)
		}
		dst[i] = byte(v)
	}
	return nil
}
