package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/compressed-wallet/pkg/pointer"
	"github.com/code-payments/compressed-wallet/pkg/sol"
	"github.com/code-payments/compressed-wallet/pkg/usdc"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
	"github.com/code-payments/compressed-wallet/pkg/wallet/gateway"
	"github.com/code-payments/compressed-wallet/pkg/wallet/transfer"
)

const maxRequestBodySize = 64 * 1024

type walletView struct {
	Index              int        `json:"index"`
	PublicKey          string     `json:"publicKey"`
	SolBalance         string     `json:"solBalance"`
	SplBalance         string     `json:"splBalance"`
	ZkBalance          string     `json:"zkBalance"`
	DefaultBalanceType string     `json:"defaultBalanceType"`
	CreatedAt          time.Time  `json:"createdAt"`
	LastRefreshedAt    *time.Time `json:"lastRefreshedAt,omitempty"`
}

type walletDetailView struct {
	walletView

	ExplorerURL      string            `json:"explorerUrl"`
	FaucetURL        string            `json:"faucetUrl"`
	AirdropAvailable bool              `json:"airdropAvailable"`
	History          []historyItemView `json:"history"`
}

type historyItemView struct {
	Signature    string `json:"signature"`
	Slot         uint64 `json:"slot"`
	IsCompressed bool   `json:"isCompressed"`
	ExplorerURL  string `json:"explorerUrl"`
}

type sendResultView struct {
	Signature   string `json:"signature"`
	ExplorerURL string `json:"explorerUrl"`
}

func newWalletView(index int, record *wallet.Wallet) walletView {
	return walletView{
		Index:              index,
		PublicKey:          record.PublicKey,
		SolBalance:         sol.FormatLamports(record.SolBalance),
		SplBalance:         usdc.FormatQuarks(record.SplBalance),
		ZkBalance:          usdc.FormatQuarks(record.ZkBalance),
		DefaultBalanceType: string(transfer.DefaultBalanceType(record)),
		CreatedAt:          record.CreatedAt,
		LastRefreshedAt:    pointer.TimeIfNotZero(record.LastRefreshedAt),
	}
}

func newHistoryViews(gw gateway.Gateway, items []wallet.TxnHistoryItem) []historyItemView {
	res := make([]historyItemView, 0, len(items))
	for _, item := range items {
		res = append(res, historyItemView{
			Signature:    item.Signature,
			Slot:         item.Slot,
			IsCompressed: item.IsCompressed,
			ExplorerURL:  gw.ExplorerTxURL(item.Signature),
		})
	}
	return res
}

type createWalletRequest struct {
	// PrivateKey optionally imports an existing keypair, either base58 or a
	// JSON byte array
	PrivateKey string `json:"privateKey"`
}

type airdropRequest struct {
	// Sol is the amount to request. Empty requests the default amount.
	Sol string `json:"sol"`
}

type sendRequest struct {
	Token        string `json:"token"`
	IsCompressed bool   `json:"isCompressed"`
	BalanceType  string `json:"balanceType"`
	Amount       string `json:"amount"`
	Recipient    string `json:"recipient"`

	// FeePayer is the address of a managed wallet. Empty uses the source.
	FeePayer string `json:"feePayer"`
}

// decodeOptionalJsonBody decodes a JSON request body, leaving dst untouched
// when the body is empty
func decodeOptionalJsonBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}

	if contentType := r.Header.Get(contentTypeHeaderName); len(contentType) > 0 && !strings.HasPrefix(contentType, jsonContentTypeHeaderValue) {
		return errors.New("content type must be application/json")
	}

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	decoder.DisallowUnknownFields()

	err := decoder.Decode(dst)
	if err == io.EOF {
		return nil
	} else if err != nil {
		return errInvalidJsonBody
	}
	return nil
}
