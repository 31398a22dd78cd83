package compression

import (
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/compressed-wallet/pkg/solana"
)

type rpcRequest struct {
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params"`
	ID     int                    `json:"id"`
}

func newTestServer(t *testing.T, handler func(req rpcRequest) (interface{}, *jsonrpc.RPCError)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
		}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func withContext(value interface{}) map[string]interface{} {
	return map[string]interface{}{
		"context": map[string]interface{}{"slot": 100},
		"value":   value,
	}
}

func newKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}

func newHash(b byte) Hash {
	var h Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func TestGetCompressedTokenBalancesByOwner(t *testing.T) {
	owner := newKey(t)
	mint := newKey(t)
	other := newKey(t)

	for _, field := range []string{"items", "token_balances"} {
		server := newTestServer(t, func(req rpcRequest) (interface{}, *jsonrpc.RPCError) {
			assert.Equal(t, "getCompressedTokenBalancesByOwner", req.Method)
			assert.Equal(t, base58.Encode(owner), req.Params["owner"])
			_, hasMint := req.Params["mint"]
			assert.False(t, hasMint)

			return withContext(map[string]interface{}{
				field: []interface{}{
					map[string]interface{}{"mint": base58.Encode(other), "balance": 5},
					map[string]interface{}{"mint": base58.Encode(mint), "balance": "1500000"},
				},
				"cursor": nil,
			}), nil
		})

		balances, err := New(server.URL).GetCompressedTokenBalancesByOwner(owner, nil)
		require.NoError(t, err)
		require.Len(t, balances, 2)
		assert.EqualValues(t, other, balances[0].Mint)
		assert.EqualValues(t, 5, balances[0].Balance)
		assert.EqualValues(t, mint, balances[1].Mint)
		assert.EqualValues(t, 1_500_000, balances[1].Balance)

		server.Close()
	}
}

func TestGetCompressedTokenAccountsByOwner_Pagination(t *testing.T) {
	owner := newKey(t)
	mint := newKey(t)
	tree := newKey(t)

	account := func(hash Hash, amount uint64, leaf uint32) map[string]interface{} {
		return map[string]interface{}{
			"account": map[string]interface{}{
				"hash":        base58.Encode(hash[:]),
				"address":     nil,
				"owner":       base58.Encode(newKey(t)),
				"lamports":    0,
				"tree":        base58.Encode(tree),
				"leafIndex":   leaf,
				"seq":         7,
				"slotCreated": 42,
			},
			"tokenData": map[string]interface{}{
				"mint":     base58.Encode(mint),
				"owner":    base58.Encode(owner),
				"amount":   amount,
				"delegate": nil,
				"state":    "initialized",
			},
		}
	}

	var calls int
	server := newTestServer(t, func(req rpcRequest) (interface{}, *jsonrpc.RPCError) {
		calls++
		assert.Equal(t, "getCompressedTokenAccountsByOwner", req.Method)
		assert.Equal(t, base58.Encode(mint), req.Params["mint"])

		if calls == 1 {
			_, hasCursor := req.Params["cursor"]
			assert.False(t, hasCursor)
			return withContext(map[string]interface{}{
				"items":  []interface{}{account(newHash(1), 10, 3)},
				"cursor": "next-page",
			}), nil
		}

		assert.Equal(t, "next-page", req.Params["cursor"])
		return withContext(map[string]interface{}{
			"items":  []interface{}{account(newHash(2), 20, 4)},
			"cursor": nil,
		}), nil
	})
	defer server.Close()

	accounts, err := New(server.URL).GetCompressedTokenAccountsByOwner(owner, mint)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, 2, calls)

	assert.Equal(t, newHash(1), accounts[0].Account.Hash)
	assert.EqualValues(t, tree, accounts[0].Account.Tree)
	assert.EqualValues(t, 3, accounts[0].Account.LeafIndex)
	require.NotNil(t, accounts[0].Account.Seq)
	assert.EqualValues(t, 7, *accounts[0].Account.Seq)
	assert.EqualValues(t, 10, accounts[0].TokenData.Amount)
	assert.EqualValues(t, owner, accounts[0].TokenData.Owner)
	assert.Nil(t, accounts[0].TokenData.Delegate)
	assert.Nil(t, accounts[0].Account.Address)

	assert.Equal(t, newHash(2), accounts[1].Account.Hash)
	assert.EqualValues(t, 20, accounts[1].TokenData.Amount)
}

func TestGetValidityProof(t *testing.T) {
	tree := newKey(t)
	queue := newKey(t)

	a := make([]interface{}, 32)
	b := make([]interface{}, 64)
	c := make([]interface{}, 32)
	for i := range a {
		a[i] = 1
		c[i] = 3
	}
	for i := range b {
		b[i] = 2
	}

	root := newHash(9)
	leaf := newHash(1)

	server := newTestServer(t, func(req rpcRequest) (interface{}, *jsonrpc.RPCError) {
		assert.Equal(t, "getValidityProof", req.Method)
		assert.Equal(t, []interface{}{base58.Encode(leaf[:])}, req.Params["hashes"])

		return withContext(map[string]interface{}{
			"compressedProof": map[string]interface{}{"a": a, "b": b, "c": c},
			"roots":           []string{base58.Encode(root[:])},
			"rootIndices":     []int{12},
			"leafIndices":     []int{3},
			"leaves":          []string{base58.Encode(leaf[:])},
			"merkleTrees":     []string{base58.Encode(tree)},
			"nullifierQueues": []string{base58.Encode(queue)},
		}), nil
	})
	defer server.Close()

	proof, err := New(server.URL).GetValidityProof([]Hash{leaf})
	require.NoError(t, err)

	require.NotNil(t, proof.CompressedProof)
	assert.EqualValues(t, 1, proof.CompressedProof.A[0])
	assert.EqualValues(t, 2, proof.CompressedProof.B[63])
	assert.EqualValues(t, 3, proof.CompressedProof.C[31])
	assert.Equal(t, []Hash{root}, proof.Roots)
	assert.Equal(t, []uint16{12}, proof.RootIndices)
	assert.Equal(t, []uint32{3}, proof.LeafIndices)
	assert.Equal(t, []Hash{leaf}, proof.Leaves)
	assert.EqualValues(t, tree, proof.MerkleTrees[0])
	assert.EqualValues(t, queue, proof.NullifierQueues[0])
}

func TestGetValidityProof_MismatchedResponse(t *testing.T) {
	server := newTestServer(t, func(req rpcRequest) (interface{}, *jsonrpc.RPCError) {
		return withContext(map[string]interface{}{
			"rootIndices": []int{},
		}), nil
	})
	defer server.Close()

	_, err := New(server.URL).GetValidityProof([]Hash{newHash(1)})
	assert.Error(t, err)

	_, err = New(server.URL).GetValidityProof(nil)
	assert.Error(t, err)
}

func TestGetCompressionSignatures(t *testing.T) {
	owner := newKey(t)

	var sig solana.Signature
	sig[0] = 7

	for _, method := range []string{"getCompressionSignaturesForTokenOwner", "getCompressionSignaturesForOwner"} {
		server := newTestServer(t, func(req rpcRequest) (interface{}, *jsonrpc.RPCError) {
			assert.Equal(t, method, req.Method)
			assert.Equal(t, base58.Encode(owner), req.Params["owner"])
			assert.EqualValues(t, 25, req.Params["limit"])

			return withContext(map[string]interface{}{
				"items": []interface{}{
					map[string]interface{}{"signature": base58.Encode(sig[:]), "slot": 55, "blockTime": 1700000000},
					map[string]interface{}{"signature": base58.Encode(sig[:]), "slot": 54, "blockTime": nil},
				},
				"cursor": nil,
			}), nil
		})

		client := New(server.URL)

		var sigs []*SignatureInfo
		var err error
		if method == "getCompressionSignaturesForTokenOwner" {
			sigs, err = client.GetCompressionSignaturesForTokenOwner(owner, 25)
		} else {
			sigs, err = client.GetCompressionSignaturesForOwner(owner, 25)
		}
		require.NoError(t, err)
		require.Len(t, sigs, 2)
		assert.Equal(t, sig, sigs[0].Signature)
		assert.EqualValues(t, 55, sigs[0].Slot)
		require.NotNil(t, sigs[0].BlockTime)
		assert.EqualValues(t, 1700000000, sigs[0].BlockTime.Unix())
		assert.Nil(t, sigs[1].BlockTime)

		server.Close()
	}
}

func TestGetTransactionWithCompressionInfo(t *testing.T) {
	mint := newKey(t)
	sender := newKey(t)
	receiver := newKey(t)

	entry := func(hash Hash, owner ed25519.PublicKey, amount uint64) map[string]interface{} {
		return map[string]interface{}{
			"account": map[string]interface{}{
				"hash":      base58.Encode(hash[:]),
				"owner":     base58.Encode(newKey(t)),
				"tree":      base58.Encode(newKey(t)),
				"leafIndex": 1,
			},
			"maybeTokenData": map[string]interface{}{
				"mint":   base58.Encode(mint),
				"owner":  base58.Encode(owner),
				"amount": amount,
			},
		}
	}

	var sig solana.Signature
	sig[1] = 1

	server := newTestServer(t, func(req rpcRequest) (interface{}, *jsonrpc.RPCError) {
		assert.Equal(t, "getTransactionWithCompressionInfo", req.Method)
		assert.Equal(t, base58.Encode(sig[:]), req.Params["signature"])

		return map[string]interface{}{
			"compressionInfo": map[string]interface{}{
				"closedAccounts": []interface{}{entry(newHash(1), sender, 100)},
				"openedAccounts": []interface{}{
					entry(newHash(2), receiver, 40),
					entry(newHash(3), sender, 60),
					map[string]interface{}{
						"account": map[string]interface{}{
							"hash": base58.Encode(newHash(4).Bytes()),
						},
						"maybeTokenData": nil,
					},
				},
			},
			"transaction": map[string]interface{}{"slot": 77},
		}, nil
	})
	defer server.Close()

	txn, err := New(server.URL).GetTransactionWithCompressionInfo(sig)
	require.NoError(t, err)
	assert.EqualValues(t, 77, txn.Slot)
	assert.Len(t, txn.ClosedAccounts, 1)
	require.Len(t, txn.OpenedAccounts, 3)
	assert.Nil(t, txn.OpenedAccounts[2].TokenData)

	deltas := txn.TokenBalanceDeltas(mint)
	assert.EqualValues(t, -40, deltas[base58.Encode(sender)])
	assert.EqualValues(t, 40, deltas[base58.Encode(receiver)])
}

func TestGetTransactionWithCompressionInfo_NotFound(t *testing.T) {
	server := newTestServer(t, func(req rpcRequest) (interface{}, *jsonrpc.RPCError) {
		return nil, nil
	})
	defer server.Close()

	_, err := New(server.URL).GetTransactionWithCompressionInfo(solana.Signature{})
	assert.Equal(t, ErrTransactionNotFound, err)
}
