package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/compressed-wallet/pkg/metrics"
	"github.com/code-payments/compressed-wallet/pkg/sol"
	"github.com/code-payments/compressed-wallet/pkg/solana"
	"github.com/code-payments/compressed-wallet/pkg/wallet/collection"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
	"github.com/code-payments/compressed-wallet/pkg/wallet/gateway"
	"github.com/code-payments/compressed-wallet/pkg/wallet/transfer"
	"github.com/code-payments/compressed-wallet/pkg/web/client"
)

const (
	v1PathPrefix      = "/v1"
	v1WalletsPath     = v1PathPrefix + "/wallets"
	v1WalletPath      = v1WalletsPath + "/{address}"
	v1WalletHistory   = v1WalletPath + "/history"
	v1WalletAirdrop   = v1WalletPath + "/airdrop"
	v1WalletSendToken = v1WalletPath + "/send"

	addressUrlParam = "address"

	walletGeneratedEventName = "WalletGenerated"
	tokensSentEventName      = "WalletTokensSent"
)

type Server struct {
	log *logrus.Entry

	collection *collection.Collection
	gateway    gateway.Gateway
	transfers  *transfer.Orchestrator
}

func NewWalletServer(
	collection *collection.Collection,
	gateway gateway.Gateway,
	transfers *transfer.Orchestrator,
) *Server {
	return &Server{
		log:        logrus.StandardLogger().WithField("type", "wallet/server/web"),
		collection: collection,
		gateway:    gateway,
		transfers:  transfers,
	}
}

// RegisterRoutes installs the wallet API on the router
func (s *Server) RegisterRoutes(router chi.Router) {
	router.Get(v1WalletsPath, s.listWalletsHandler(v1WalletsPath))
	router.Post(v1WalletsPath, s.createWalletHandler(v1WalletsPath))
	router.Get(v1WalletPath, s.getWalletHandler(v1WalletPath))
	router.Delete(v1WalletPath, s.deleteWalletHandler(v1WalletPath))
	router.Get(v1WalletHistory, s.getHistoryHandler(v1WalletHistory))
	router.Post(v1WalletAirdrop, s.airdropHandler(v1WalletAirdrop))
	router.Post(v1WalletSendToken, s.sendTokenHandler(v1WalletSendToken))
}

func (s *Server) listWalletsHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := client.InjectLoggingMetadata(r, s.log.WithField("path", path))

		statusCode, body := func() (int, GenericApiResponseBody) {
			wallets, err := s.collection.Wallets()
			if err != nil {
				log.WithError(err).Warn("failure getting wallets")
				statusCode, err := HandleErrorInWebContext(err)
				return statusCode, NewGenericApiFailureResponseBody(err)
			}

			views := make([]walletView, 0, len(wallets))
			for i, record := range wallets {
				views = append(views, newWalletView(i, record))
			}
			return http.StatusOK, NewGenericApiSuccessResponseBody(views)
		}()

		writeResponse(log, w, statusCode, body)
	}
}

func (s *Server) createWalletHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := client.InjectLoggingMetadata(r, s.log.WithField("path", path))

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			var req createWalletRequest
			if err := decodeOptionalJsonBody(r, &req); err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}

			record, err := s.createWallet(ctx, req.PrivateKey)
			if err != nil {
				log.WithError(err).Warn("failure creating wallet")
				statusCode, err := HandleErrorInWebContext(err)
				return statusCode, NewGenericApiFailureResponseBody(err)
			}

			log.WithField("wallet", record.PublicKey).Info("wallet created")
			metrics.RecordEvent(ctx, walletGeneratedEventName, map[string]interface{}{
				"imported": len(req.PrivateKey) > 0,
			})

			_, detail, err := s.getWalletDetail(record.PublicKey)
			if err != nil {
				statusCode, err := HandleErrorInWebContext(err)
				return statusCode, NewGenericApiFailureResponseBody(err)
			}
			return http.StatusCreated, NewGenericApiSuccessResponseBody(detail)
		}()

		writeResponse(log, w, statusCode, body)
	}
}

func (s *Server) getWalletHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := client.InjectLoggingMetadata(r, s.log.WithField("path", path))

		statusCode, body := func() (int, GenericApiResponseBody) {
			address, err := addressFromRequest(r)
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}
			log = log.WithField("wallet", address)

			_, detail, err := s.getWalletDetail(address)
			if err != nil {
				statusCode, err := HandleErrorInWebContext(err)
				return statusCode, NewGenericApiFailureResponseBody(err)
			}
			return http.StatusOK, NewGenericApiSuccessResponseBody(detail)
		}()

		writeResponse(log, w, statusCode, body)
	}
}

func (s *Server) deleteWalletHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := client.InjectLoggingMetadata(r, s.log.WithField("path", path))

		statusCode, body := func() (int, GenericApiResponseBody) {
			address, err := addressFromRequest(r)
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}
			log = log.WithField("wallet", address)

			err = s.collection.Remove(r.Context(), address)
			if err != nil {
				if err != collection.ErrWalletNotFound {
					log.WithError(err).Warn("failure removing wallet")
				}
				statusCode, err := HandleErrorInWebContext(err)
				return statusCode, NewGenericApiFailureResponseBody(err)
			}

			log.Info("wallet removed")
			return http.StatusOK, NewGenericApiSuccessResponseBody(nil)
		}()

		writeResponse(log, w, statusCode, body)
	}
}

func (s *Server) getHistoryHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := client.InjectLoggingMetadata(r, s.log.WithField("path", path))

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			address, err := addressFromRequest(r)
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}
			log = log.WithField("wallet", address)

			if r.URL.Query().Get("refresh") == "true" {
				err = s.collection.UpdateWalletHistory(ctx, address)
				if err != nil && err != collection.ErrWalletNotFound {
					log.WithError(err).Warn("failure refreshing wallet history")
				}
				if err != nil {
					statusCode, err := HandleErrorInWebContext(err)
					return statusCode, NewGenericApiFailureResponseBody(err)
				}
			}

			record, err := s.collection.Get(address)
			if err != nil {
				statusCode, err := HandleErrorInWebContext(err)
				return statusCode, NewGenericApiFailureResponseBody(err)
			}
			return http.StatusOK, NewGenericApiSuccessResponseBody(newHistoryViews(s.gateway, record.TxnHistory))
		}()

		writeResponse(log, w, statusCode, body)
	}
}

func (s *Server) airdropHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := client.InjectLoggingMetadata(r, s.log.WithField("path", path))

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			if s.gateway.Network() != solana.NetworkDevnet {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(gateway.ErrAirdropUnavailable)
			}

			address, err := addressFromRequest(r)
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}
			log = log.WithField("wallet", address)

			var req airdropRequest
			if err := decodeOptionalJsonBody(r, &req); err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}

			var lamports uint64
			if len(req.Sol) > 0 {
				lamports, err = sol.ToLamports(req.Sol)
				if err != nil || lamports == 0 {
					return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("invalid sol amount"))
				}
			}

			record, err := s.collection.Get(address)
			if err != nil {
				statusCode, err := HandleErrorInWebContext(err)
				return statusCode, NewGenericApiFailureResponseBody(err)
			}

			sig, err := s.gateway.Airdrop(ctx, record.PublicKeyBytes(), lamports)
			if err != nil {
				log.WithError(err).Warn("failure requesting airdrop")
				statusCode, err := HandleErrorInWebContext(err)
				return statusCode, NewGenericApiFailureResponseBody(err)
			}
			log = log.WithField("signature", sig)

			if err := s.collection.UpdateWalletSolBalance(ctx, address); err != nil {
				log.WithError(err).Warn("failure refreshing wallet sol balance")
			}
			if err := s.collection.UpdateWalletHistory(ctx, address); err != nil {
				log.WithError(err).Warn("failure refreshing wallet history")
			}

			return http.StatusOK, NewGenericApiSuccessResponseBody(sendResultView{
				Signature:   sig,
				ExplorerURL: s.gateway.ExplorerTxURL(sig),
			})
		}()

		writeResponse(log, w, statusCode, body)
	}
}

func (s *Server) sendTokenHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := client.InjectLoggingMetadata(r, s.log.WithField("path", path))

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			address, err := addressFromRequest(r)
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}
			log = log.WithField("wallet", address)

			var req sendRequest
			if err := decodeOptionalJsonBody(r, &req); err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}

			token, err := transfer.ParseToken(req.Token)
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}

			balanceType, err := transfer.ParseBalanceType(req.BalanceType)
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}

			wallets, err := s.collection.Wallets()
			if err != nil {
				statusCode, err := HandleErrorInWebContext(err)
				return statusCode, NewGenericApiFailureResponseBody(err)
			}

			feePayer := req.FeePayer
			if len(feePayer) == 0 {
				feePayer = address
			}

			sourceIndex := indexOf(wallets, address)
			if sourceIndex < 0 {
				return http.StatusNotFound, NewGenericApiFailureResponseBody(collection.ErrWalletNotFound)
			}

			result, err := s.transfers.Send(ctx, &transfer.Request{
				Token:         token,
				IsCompressed:  req.IsCompressed,
				BalanceType:   balanceType,
				Amount:        req.Amount,
				Recipient:     req.Recipient,
				SourceIndex:   sourceIndex,
				FeePayerIndex: indexOf(wallets, feePayer),
			})
			if err != nil {
				if !transfer.IsValidationError(err) {
					log.WithError(err).Warn("failure sending tokens")
				}
				statusCode, err := HandleErrorInWebContext(err)
				return statusCode, NewGenericApiFailureResponseBody(err)
			}

			metrics.RecordEvent(ctx, tokensSentEventName, map[string]interface{}{
				"token":      string(token),
				"compressed": req.IsCompressed,
			})

			return http.StatusOK, NewGenericApiSuccessResponseBody(sendResultView{
				Signature:   result.Signature,
				ExplorerURL: result.ExplorerURL,
			})
		}()

		writeResponse(log, w, statusCode, body)
	}
}

// createWallet generates a wallet, or imports one when a private key is
// provided
func (s *Server) createWallet(ctx context.Context, privateKey string) (*wallet.Wallet, error) {
	if len(privateKey) == 0 {
		return s.collection.Generate(ctx)
	}

	parsed, err := wallet.ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	record, err := wallet.FromPrivateKey(parsed)
	if err != nil {
		return nil, err
	}

	if err := s.collection.Import(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Server) getWalletDetail(address string) (int, *walletDetailView, error) {
	wallets, err := s.collection.Wallets()
	if err != nil {
		return 0, nil, err
	}

	index := indexOf(wallets, address)
	if index < 0 {
		return 0, nil, collection.ErrWalletNotFound
	}
	record := wallets[index]

	return index, &walletDetailView{
		walletView:       newWalletView(index, record),
		ExplorerURL:      s.gateway.ExplorerAddressURL(record.PublicKey),
		FaucetURL:        gateway.UsdcFaucetURL,
		AirdropAvailable: s.gateway.Network() == solana.NetworkDevnet,
		History:          newHistoryViews(s.gateway, record.TxnHistory),
	}, nil
}

func addressFromRequest(r *http.Request) (string, error) {
	address := chi.URLParam(r, addressUrlParam)
	if _, err := wallet.ParsePublicKey(address); err != nil {
		return "", errInvalidAddress
	}
	return address, nil
}

func indexOf(wallets []*wallet.Wallet, address string) int {
	for i, record := range wallets {
		if record.PublicKey == address {
			return i
		}
	}
	return -1
}
