package registry

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/alphabill-org/chainauthority/internal/logger"
	"github.com/alphabill-org/chainauthority/internal/metrics"
	"github.com/alphabill-org/chainauthority/keyvaluedb"
	"github.com/alphabill-org/chainauthority/ownership"
	"github.com/alphabill-org/chainauthority/types"
)

var (
	ErrChainNotFound           = errors.New("chain not found")
	ErrChainExists             = errors.New("chain is already registered")
	ErrInvalidOwnership        = errors.New("invalid ownership")
	ErrReconfigureNotPermitted = errors.New("owner is not permitted to change the chain ownership")

	log = logger.CreateForPackage()

	ownershipPrefix = []byte("chain_ownership_") // append chain ID

	reconfiguredCounter = metrics.GetOrRegisterCounter("registry/reconfigured")
	removedCounter      = metrics.GetOrRegisterCounter("registry/removed")
)

// OwnershipRegistry persists the ownership records of chains. A record is
// created once, after that it is only changed or removed by an owner who
// may change the ownership of the chain.
type OwnershipRegistry struct {
	storage keyvaluedb.Store
}

func New(db keyvaluedb.Store) (*OwnershipRegistry, error) {
	if db == nil {
		return nil, errors.New("storage is nil")
	}
	return &OwnershipRegistry{storage: db}, nil
}

// Create registers the chain with its initial ownership, ErrChainExists when
// the chain already has a record.
func (r *OwnershipRegistry) Create(chainID types.ChainID, co *ownership.ChainOwnership) error {
	if err := validate(chainID, co); err != nil {
		return err
	}
	err := r.storage.Update(func(rw keyvaluedb.ReadWriter) error {
		var existing ownership.ChainOwnership
		found, err := rw.Read(ownershipKey(chainID), &existing)
		if err != nil {
			return fmt.Errorf("failed to read ownership of chain %s: %w", chainID, err)
		}
		if found {
			return fmt.Errorf("%w: %s", ErrChainExists, chainID)
		}
		return rw.Write(ownershipKey(chainID), co)
	})
	if err != nil {
		return fmt.Errorf("registering chain: %w", err)
	}
	log.Debug("Registered chain %s", chainID)
	return nil
}

// Get returns the ownership of the chain, ErrChainNotFound when there is none.
func (r *OwnershipRegistry) Get(chainID types.ChainID) (*ownership.ChainOwnership, error) {
	return read(r.storage, chainID)
}

// ChainIDs returns identifiers of all the chains in the registry in
// ascending order.
func (r *OwnershipRegistry) ChainIDs() ([]types.ChainID, error) {
	keys, err := r.storage.Keys(ownershipPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing chains: %w", err)
	}
	ids := make([]types.ChainID, 0, len(keys))
	for _, key := range keys {
		id, err := types.ChainIDFromBytes(key[len(ownershipPrefix):])
		if err != nil {
			return nil, fmt.Errorf("invalid registry key %x: %w", key, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Reconfigure replaces the ownership of the chain wholesale. The proposer
// must be allowed to change the ownership by the current record.
func (r *OwnershipRegistry) Reconfigure(chainID types.ChainID, proposer types.AccountOwner, co *ownership.ChainOwnership) error {
	if err := validate(chainID, co); err != nil {
		return err
	}
	if err := r.storage.Update(func(rw keyvaluedb.ReadWriter) error {
		if err := authorize(rw, chainID, proposer); err != nil {
			return err
		}
		return rw.Write(ownershipKey(chainID), co)
	}); err != nil {
		return err
	}
	reconfiguredCounter.Inc(1)
	log.Info("Chain %s ownership changed by %s", chainID, proposer)
	return nil
}

// Remove deletes the record of the chain, the proposer must be allowed to
// change the ownership of the chain.
func (r *OwnershipRegistry) Remove(chainID types.ChainID, proposer types.AccountOwner) error {
	if err := r.storage.Update(func(rw keyvaluedb.ReadWriter) error {
		if err := authorize(rw, chainID, proposer); err != nil {
			return err
		}
		return rw.Delete(ownershipKey(chainID))
	}); err != nil {
		return err
	}
	removedCounter.Inc(1)
	log.Info("Chain %s removed by %s", chainID, proposer)
	return nil
}

func authorize(db keyvaluedb.Reader, chainID types.ChainID, proposer types.AccountOwner) error {
	current, err := read(db, chainID)
	if err != nil {
		return err
	}
	if !current.CanChangeOwnership(proposer) {
		return fmt.Errorf("%w: owner %s, chain %s", ErrReconfigureNotPermitted, proposer, chainID)
	}
	return nil
}

func validate(chainID types.ChainID, co *ownership.ChainOwnership) error {
	if co == nil {
		return fmt.Errorf("%w: chain ownership is nil", ErrInvalidOwnership)
	}
	if err := co.Validate(); err != nil {
		return fmt.Errorf("%w of chain %s: %w", ErrInvalidOwnership, chainID, err)
	}
	return nil
}

func read(db keyvaluedb.Reader, chainID types.ChainID) (*ownership.ChainOwnership, error) {
	var co ownership.ChainOwnership
	found, err := db.Read(ownershipKey(chainID), &co)
	if err != nil {
		return nil, fmt.Errorf("failed to read ownership of chain %s: %w", chainID, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	return &co, nil
}

func ownershipKey(chainID types.ChainID) []byte {
	return append(bytes.Clone(ownershipPrefix), chainID.Bytes()...)
}
