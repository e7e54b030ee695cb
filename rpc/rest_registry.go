package rpc

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/alphabill-org/chainauthority/internal/metrics"
	"github.com/alphabill-org/chainauthority/ownership"
	"github.com/alphabill-org/chainauthority/registry"
	"github.com/alphabill-org/chainauthority/types"
	"github.com/gorilla/mux"
)

const (
	pathChains            = "/chains"
	pathOwnership         = "/chains/{chainId}/ownership"
	pathOwnershipConfig   = "/chains/{chainId}/ownership/config"
	pathReconfigure       = "/chains/{chainId}/ownership/reconfigure/{proposer}"
	pathFirstRound        = "/chains/{chainId}/rounds/first"
	pathRoundTimeout      = "/chains/{chainId}/rounds/{round}/timeout"
	pathNextRound         = "/chains/{chainId}/rounds/{round}/next"
	pathRoundLeader       = "/chains/{chainId}/rounds/{round}/leader"
	pathOwnerVerification = "/chains/{chainId}/owners/{owner}"
)

var (
	receivedOwnershipUpdatesMeter = metrics.GetOrRegisterCounter("rest/ownership/received")
	invalidOwnershipUpdatesMeter  = metrics.GetOrRegisterCounter("rest/ownership/invalid")
)

type (
	ownershipRegistry interface {
		Get(chainID types.ChainID) (*ownership.ChainOwnership, error)
		Create(chainID types.ChainID, co *ownership.ChainOwnership) error
		Remove(chainID types.ChainID, proposer types.AccountOwner) error
		ChainIDs() ([]types.ChainID, error)
		Reconfigure(chainID types.ChainID, proposer types.AccountOwner, co *ownership.ChainOwnership) error
	}

	RoundTimeoutResponse struct {
		Round types.Round `json:"round"`
		// nil when the round does not time out
		Timeout *types.TimeDelta `json:"timeout"`
	}

	NextRoundResponse struct {
		Round types.Round `json:"round"`
		Next  types.Round `json:"next"`
	}

	RoundLeaderResponse struct {
		Round  types.Round        `json:"round"`
		Leader types.AccountOwner `json:"leader"`
	}

	OwnerResponse struct {
		Owner        types.AccountOwner `json:"owner"`
		IsOwner      bool               `json:"isOwner"`
		IsSuperOwner bool               `json:"isSuperOwner"`
		Weight       uint64             `json:"weight"`
	}
)

// RegistryEndpoints exposes the ownership registry and the round queries of
// the registered chains.
func RegistryEndpoints(reg ownershipRegistry) RegistrarFunc {
	return func(r *mux.Router) {
		r.HandleFunc(pathChains, listChains(reg)).Methods(http.MethodGet, http.MethodOptions)

		r.HandleFunc(pathOwnership, getOwnership(reg)).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc(pathOwnership, createOwnership(reg)).Methods(http.MethodPut)
		r.HandleFunc(pathOwnership, removeOwnership(reg)).Methods(http.MethodDelete)
		r.HandleFunc(pathOwnershipConfig, getOwnershipConfig(reg)).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc(pathReconfigure, reconfigure(reg)).Methods(http.MethodPost)

		r.HandleFunc(pathFirstRound, withOwnership(reg, firstRound)).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc(pathRoundTimeout, withOwnership(reg, roundTimeout)).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc(pathNextRound, withOwnership(reg, nextRound)).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc(pathRoundLeader, withOwnership(reg, roundLeader)).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc(pathOwnerVerification, withOwnership(reg, verifyOwner)).Methods(http.MethodGet, http.MethodOptions)
	}
}

func listChains(reg ownershipRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := reg.ChainIDs()
		if err != nil {
			writeError(w, err, http.StatusInternalServerError)
			return
		}
		if ids == nil {
			ids = []types.ChainID{}
		}
		writeJSONResponse(w, ids, http.StatusOK)
	}
}

func getOwnership(reg ownershipRegistry) http.HandlerFunc {
	return withOwnership(reg, func(w http.ResponseWriter, r *http.Request, co *ownership.ChainOwnership) {
		writeCBORResponse(w, co, http.StatusOK)
	})
}

func getOwnershipConfig(reg ownershipRegistry) http.HandlerFunc {
	return withOwnership(reg, func(w http.ResponseWriter, r *http.Request, co *ownership.ChainOwnership) {
		writeJSONResponse(w, ownership.ConfigFrom(co), http.StatusOK)
	})
}

// createOwnership registers a new chain, replacing the ownership of a
// registered chain goes through reconfigure.
func createOwnership(reg ownershipRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receivedOwnershipUpdatesMeter.Inc(1)
		chainID, err := chainIDVar(r)
		if err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		co, err := decodeOwnership(r.Body)
		if err != nil {
			invalidOwnershipUpdatesMeter.Inc(1)
			writeError(w, err, http.StatusBadRequest)
			return
		}
		if err := reg.Create(chainID, co); err != nil {
			invalidOwnershipUpdatesMeter.Inc(1)
			writeError(w, err, registryErrorStatus(err))
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

// removeOwnership deletes the chain from the registry, the "proposer" query
// parameter names the owner on whose authority the chain is removed.
func removeOwnership(reg ownershipRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chainID, err := chainIDVar(r)
		if err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		param := r.URL.Query().Get("proposer")
		if param == "" {
			writeError(w, errors.New("proposer is missing"), http.StatusBadRequest)
			return
		}
		proposer, err := types.AccountOwnerFromString(param)
		if err != nil {
			writeError(w, fmt.Errorf("invalid proposer: %w", err), http.StatusBadRequest)
			return
		}
		if err := reg.Remove(chainID, proposer); err != nil {
			writeError(w, err, registryErrorStatus(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reconfigure(reg ownershipRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receivedOwnershipUpdatesMeter.Inc(1)
		chainID, err := chainIDVar(r)
		if err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		proposer, err := types.AccountOwnerFromString(mux.Vars(r)["proposer"])
		if err != nil {
			writeError(w, fmt.Errorf("invalid proposer: %w", err), http.StatusBadRequest)
			return
		}
		co, err := decodeOwnership(r.Body)
		if err != nil {
			invalidOwnershipUpdatesMeter.Inc(1)
			writeError(w, err, http.StatusBadRequest)
			return
		}
		if err := reg.Reconfigure(chainID, proposer, co); err != nil {
			invalidOwnershipUpdatesMeter.Inc(1)
			writeError(w, err, registryErrorStatus(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func firstRound(w http.ResponseWriter, r *http.Request, co *ownership.ChainOwnership) {
	writeJSONResponse(w, co.FirstRound(), http.StatusOK)
}

func roundTimeout(w http.ResponseWriter, r *http.Request, co *ownership.ChainOwnership) {
	round, err := roundVar(r)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	rsp := RoundTimeoutResponse{Round: round}
	if d, ok := co.RoundTimeout(round); ok {
		rsp.Timeout = &d
	}
	writeJSONResponse(w, rsp, http.StatusOK)
}

func nextRound(w http.ResponseWriter, r *http.Request, co *ownership.ChainOwnership) {
	round, err := roundVar(r)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	next, ok := co.NextRound(round)
	if !ok {
		writeError(w, fmt.Errorf("round %s is the last round", round), http.StatusNotFound)
		return
	}
	writeJSONResponse(w, NextRoundResponse{Round: round, Next: next}, http.StatusOK)
}

func roundLeader(w http.ResponseWriter, r *http.Request, co *ownership.ChainOwnership) {
	round, err := roundVar(r)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	leader, ok := co.RoundLeader(round)
	if !ok {
		writeError(w, fmt.Errorf("round %s has no leader", round), http.StatusNotFound)
		return
	}
	writeJSONResponse(w, RoundLeaderResponse{Round: round, Leader: leader}, http.StatusOK)
}

func verifyOwner(w http.ResponseWriter, r *http.Request, co *ownership.ChainOwnership) {
	owner, err := types.AccountOwnerFromString(mux.Vars(r)["owner"])
	if err != nil {
		writeError(w, fmt.Errorf("invalid owner: %w", err), http.StatusBadRequest)
		return
	}
	weight, _ := co.Weight(owner)
	writeJSONResponse(w, OwnerResponse{
		Owner:        owner,
		IsOwner:      co.VerifyOwner(owner),
		IsSuperOwner: co.IsSuperOwner(owner),
		Weight:       weight,
	}, http.StatusOK)
}

// withOwnership loads the ownership of the chain in the request path and
// passes it to the handler.
func withOwnership(reg ownershipRegistry, h func(http.ResponseWriter, *http.Request, *ownership.ChainOwnership)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chainID, err := chainIDVar(r)
		if err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		co, err := reg.Get(chainID)
		if err != nil {
			writeError(w, err, registryErrorStatus(err))
			return
		}
		h(w, r, co)
	}
}

func decodeOwnership(body io.Reader) (*ownership.ChainOwnership, error) {
	co := &ownership.ChainOwnership{}
	if err := types.Cbor.GetDecoder(body).Decode(co); err != nil {
		return nil, fmt.Errorf("unable to decode request body as chain ownership: %w", err)
	}
	return co, nil
}

func chainIDVar(r *http.Request) (types.ChainID, error) {
	id, err := types.ChainIDFromString(mux.Vars(r)["chainId"])
	if err != nil {
		return types.ChainID{}, fmt.Errorf("invalid chain id: %w", err)
	}
	return id, nil
}

func roundVar(r *http.Request) (types.Round, error) {
	round, err := types.ParseRound(mux.Vars(r)["round"])
	if err != nil {
		return types.Round{}, fmt.Errorf("invalid round: %w", err)
	}
	return round, nil
}

func registryErrorStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrChainNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrReconfigureNotPermitted):
		return http.StatusForbidden
	case errors.Is(err, registry.ErrChainExists):
		return http.StatusConflict
	case errors.Is(err, registry.ErrInvalidOwnership):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
