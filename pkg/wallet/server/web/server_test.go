package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/compressed-wallet/pkg/solana"
	"github.com/code-payments/compressed-wallet/pkg/wallet/collection"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
	"github.com/code-payments/compressed-wallet/pkg/wallet/gateway"
	memory_gateway "github.com/code-payments/compressed-wallet/pkg/wallet/gateway/memory"
	"github.com/code-payments/compressed-wallet/pkg/wallet/transfer"
)

type testEnv struct {
	ctx        context.Context
	gateway    *memory_gateway.Gateway
	collection *collection.Collection
	router     chi.Router
}

type testResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T, network solana.Network) testEnv {
	env := testEnv{
		ctx:     context.Background(),
		gateway: memory_gateway.New(network),
	}
	env.collection = collection.New(data.NewTestDataProvider(), env.gateway)
	require.NoError(t, env.collection.Load(env.ctx))

	env.router = chi.NewRouter()
	NewWalletServer(env.collection, env.gateway, transfer.New(env.gateway, env.collection)).RegisterRoutes(env.router)
	return env
}

func (e testEnv) do(t *testing.T, method, path, body string) (int, testResponse) {
	var req *http.Request
	if len(body) > 0 {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res testResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, rec.Code < 300, res.Success)
	if !res.Success {
		assert.NotEmpty(t, res.Error)
	}
	return rec.Code, res
}

func (e testEnv) generate(t *testing.T, balances gateway.Balances) *wallet.Wallet {
	record, err := e.collection.Generate(e.ctx)
	require.NoError(t, err)

	e.gateway.SetBalances(record.PublicKeyBytes(), balances)
	require.NoError(t, e.collection.UpdateWalletBalance(e.ctx, record.PublicKey))
	return record
}

func TestWalletLifecycle(t *testing.T) {
	env := setup(t, solana.NetworkDevnet)

	status, res := env.do(t, http.MethodGet, "/v1/wallets", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(res.Data))

	status, res = env.do(t, http.MethodPost, "/v1/wallets", "")
	require.Equal(t, http.StatusCreated, status)

	var created walletDetailView
	require.NoError(t, json.Unmarshal(res.Data, &created))
	assert.Equal(t, 0, created.Index)
	assert.Equal(t, "0.000000000", created.SolBalance)
	assert.Equal(t, "0.000000", created.SplBalance)
	assert.Equal(t, "0.000000", created.ZkBalance)
	assert.Equal(t, "compressed", created.DefaultBalanceType)
	assert.Equal(t, "https://faucet.circle.com/", created.FaucetURL)
	assert.Equal(t, "https://explorer.solana.com/address/"+created.PublicKey+"?cluster=devnet", created.ExplorerURL)
	assert.True(t, created.AirdropAvailable)
	assert.Nil(t, created.LastRefreshedAt)

	imported, err := wallet.Generate()
	require.NoError(t, err)

	status, res = env.do(t, http.MethodPost, "/v1/wallets", `{"privateKey":"`+imported.PrivateKeyString()+`"}`)
	require.Equal(t, http.StatusCreated, status)

	status, res = env.do(t, http.MethodPost, "/v1/wallets", `{"privateKey":"`+imported.PrivateKeyString()+`"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, collection.ErrWalletExists.Error(), res.Error)

	status, res = env.do(t, http.MethodPost, "/v1/wallets", `{"privateKey":"bad"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, wallet.ErrInvalidPrivateKey.Error(), res.Error)

	status, _ = env.do(t, http.MethodPost, "/v1/wallets", `{"unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, res = env.do(t, http.MethodGet, "/v1/wallets", "")
	require.Equal(t, http.StatusOK, status)

	var listed []walletView
	require.NoError(t, json.Unmarshal(res.Data, &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, created.PublicKey, listed[0].PublicKey)
	assert.Equal(t, imported.PublicKey, listed[1].PublicKey)
	assert.Equal(t, 1, listed[1].Index)

	status, res = env.do(t, http.MethodGet, "/v1/wallets/"+imported.PublicKey, "")
	require.Equal(t, http.StatusOK, status)

	var detail walletDetailView
	require.NoError(t, json.Unmarshal(res.Data, &detail))
	assert.Equal(t, 1, detail.Index)
	assert.NotNil(t, detail.History)

	status, _ = env.do(t, http.MethodDelete, "/v1/wallets/"+created.PublicKey, "")
	require.Equal(t, http.StatusOK, status)

	status, res = env.do(t, http.MethodDelete, "/v1/wallets/"+created.PublicKey, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, collection.ErrWalletNotFound.Error(), res.Error)

	status, _ = env.do(t, http.MethodGet, "/v1/wallets/"+created.PublicKey, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, res = env.do(t, http.MethodGet, "/v1/wallets/not-an-address", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, errInvalidAddress.Error(), res.Error)
}

func TestNotHydrated(t *testing.T) {
	gw := memory_gateway.New(solana.NetworkDevnet)
	c := collection.New(data.NewTestDataProvider(), gw)

	router := chi.NewRouter()
	NewWalletServer(c, gw, transfer.New(gw, c)).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/wallets", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAirdrop(t *testing.T) {
	env := setup(t, solana.NetworkDevnet)
	record := env.generate(t, gateway.Balances{})

	status, res := env.do(t, http.MethodPost, "/v1/wallets/"+record.PublicKey+"/airdrop", "")
	require.Equal(t, http.StatusOK, status)

	var result sendResultView
	require.NoError(t, json.Unmarshal(res.Data, &result))
	assert.NotEmpty(t, result.Signature)
	assert.Equal(t, env.gateway.ExplorerTxURL(result.Signature), result.ExplorerURL)

	actual, err := env.collection.Get(record.PublicKey)
	require.NoError(t, err)
	assert.EqualValues(t, gateway.DefaultAirdropLamports, actual.SolBalance)
	require.Len(t, actual.TxnHistory, 1)
	assert.Equal(t, result.Signature, actual.TxnHistory[0].Signature)

	status, _ = env.do(t, http.MethodPost, "/v1/wallets/"+record.PublicKey+"/airdrop", `{"sol":"0.5"}`)
	require.Equal(t, http.StatusOK, status)

	actual, err = env.collection.Get(record.PublicKey)
	require.NoError(t, err)
	assert.EqualValues(t, 1_500_000_000, actual.SolBalance)

	status, _ = env.do(t, http.MethodPost, "/v1/wallets/"+record.PublicKey+"/airdrop", `{"sol":"-1"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	other, err := wallet.Generate()
	require.NoError(t, err)
	status, _ = env.do(t, http.MethodPost, "/v1/wallets/"+other.PublicKey+"/airdrop", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAirdrop_Mainnet(t *testing.T) {
	env := setup(t, solana.NetworkMainnet)
	record := env.generate(t, gateway.Balances{})

	status, res := env.do(t, http.MethodPost, "/v1/wallets/"+record.PublicKey+"/airdrop", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, gateway.ErrAirdropUnavailable.Error(), res.Error)
	assert.Equal(t, 0, env.gateway.Calls("Airdrop"))

	status, res = env.do(t, http.MethodGet, "/v1/wallets/"+record.PublicKey, "")
	require.Equal(t, http.StatusOK, status)

	var detail walletDetailView
	require.NoError(t, json.Unmarshal(res.Data, &detail))
	assert.False(t, detail.AirdropAvailable)
	assert.Contains(t, detail.ExplorerURL, "cluster=mainnet")
}

func TestSendToken(t *testing.T) {
	env := setup(t, solana.NetworkDevnet)
	source := env.generate(t, gateway.Balances{Sol: 1_000_000_000, Spl: 2_000_000, Zk: 1_000_000})
	recipient := env.generate(t, gateway.Balances{})

	path := "/v1/wallets/" + source.PublicKey + "/send"

	status, res := env.do(t, http.MethodPost, path, `{"token":"USDC","amount":"1.5","recipient":"`+recipient.PublicKey+`"}`)
	require.Equal(t, http.StatusOK, status, res.Error)

	var result sendResultView
	require.NoError(t, json.Unmarshal(res.Data, &result))
	assert.NotEmpty(t, result.Signature)
	assert.Contains(t, result.ExplorerURL, result.Signature)

	// The regular pool was larger, so a regular transfer was made
	assert.Equal(t, 1, env.gateway.Calls("TransferSpl"))

	status, res = env.do(t, http.MethodGet, "/v1/wallets/"+recipient.PublicKey, "")
	require.Equal(t, http.StatusOK, status)

	var detail walletDetailView
	require.NoError(t, json.Unmarshal(res.Data, &detail))
	assert.Equal(t, "1.500000", detail.SplBalance)
	require.Len(t, detail.History, 1)
	assert.Equal(t, result.Signature, detail.History[0].Signature)

	status, res = env.do(t, http.MethodPost, path, `{"token":"USDC","isCompressed":true,"balanceType":"compressed","amount":"5","recipient":"`+recipient.PublicKey+`"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Insufficient ZK USDC balance", res.Error)

	status, res = env.do(t, http.MethodPost, path, `{"token":"SOL","amount":"0.1","recipient":"`+recipient.PublicKey+`","feePayer":"`+recipient.PublicKey+`"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Insufficient SOL balance for transaction fees: 0.000000000", res.Error)

	unmanaged, err := wallet.Generate()
	require.NoError(t, err)
	status, res = env.do(t, http.MethodPost, path, `{"token":"SOL","amount":"0.1","recipient":"`+recipient.PublicKey+`","feePayer":"`+unmanaged.PublicKey+`"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Fee payer wallet is required", res.Error)

	status, res = env.do(t, http.MethodPost, path, `{"token":"SOL","amount":"","recipient":"`+recipient.PublicKey+`"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid amount", res.Error)

	status, _ = env.do(t, http.MethodPost, path, `{"token":"BONK","amount":"1","recipient":"`+recipient.PublicKey+`"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, path, `{"token":"USDC","balanceType":"savings","amount":"1","recipient":"`+recipient.PublicKey+`"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/v1/wallets/"+unmanaged.PublicKey+"/send", `{"token":"SOL","amount":"1","recipient":"`+recipient.PublicKey+`"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSendToken_GatewayFailure(t *testing.T) {
	env := setup(t, solana.NetworkDevnet)
	source := env.generate(t, gateway.Balances{Sol: 1_000_000_000})
	recipient := env.generate(t, gateway.Balances{})

	env.gateway.InduceFailure("TransferSol", assert.AnError)

	status, res := env.do(t, http.MethodPost, "/v1/wallets/"+source.PublicKey+"/send", `{"token":"SOL","amount":"0.5","recipient":"`+recipient.PublicKey+`"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, errInternal.Error(), res.Error)
}

func TestHistory(t *testing.T) {
	env := setup(t, solana.NetworkDevnet)
	record := env.generate(t, gateway.Balances{})

	path := "/v1/wallets/" + record.PublicKey + "/history"

	status, res := env.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(res.Data))

	sig, err := env.gateway.Airdrop(env.ctx, record.PublicKeyBytes(), 0)
	require.NoError(t, err)

	// Served from the collection until refreshed
	status, res = env.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(res.Data))

	status, res = env.do(t, http.MethodGet, path+"?refresh=true", "")
	require.Equal(t, http.StatusOK, status)

	var items []historyItemView
	require.NoError(t, json.Unmarshal(res.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, sig, items[0].Signature)
	assert.False(t, items[0].IsCompressed)
	assert.Equal(t, "https://explorer.solana.com/tx/"+sig+"?cluster=devnet", items[0].ExplorerURL)

	other, err := wallet.Generate()
	require.NoError(t, err)
	status, _ = env.do(t, http.MethodGet, "/v1/wallets/"+other.PublicKey+"/history?refresh=true", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandleErrorInWebContext(t *testing.T) {
	status, err := HandleErrorInWebContext(nil)
	assert.Equal(t, http.StatusOK, status)
	assert.NoError(t, err)

	status, err = HandleErrorInWebContext(transfer.ErrInvalidAmount)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, transfer.ErrInvalidAmount, err)

	status, err = HandleErrorInWebContext(gateway.ErrAirdropRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, gateway.ErrAirdropRateLimited, err)

	status, err = HandleErrorInWebContext(context.DeadlineExceeded)
	assert.Equal(t, http.StatusRequestTimeout, status)
	assert.Equal(t, errTimeout, err)

	status, err = HandleErrorInWebContext(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, errInternal, err)
}
