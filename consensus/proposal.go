package consensus

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/alphabill-org/chainauthority/ownership"
	"github.com/alphabill-org/chainauthority/types"
)

type OperationKind uint8

const (
	OpCloseChain OperationKind = iota + 1
	OpChangeApplicationPermissions
	OpChangeOwnership
	OpAccount
)

func (k OperationKind) String() string {
	switch k {
	case OpCloseChain:
		return "close-chain"
	case OpChangeApplicationPermissions:
		return "change-application-permissions"
	case OpChangeOwnership:
		return "change-ownership"
	case OpAccount:
		return "account"
	default:
		return fmt.Sprintf("OperationKind(%d)", uint8(k))
	}
}

type (
	// ApplicationPermissions restricts which applications may be used on the chain.
	ApplicationPermissions struct {
		_ struct{} `cbor:",toarray"`
		// ExecuteOperations lists the applications allowed to execute
		// operations, nil means all applications are allowed.
		ExecuteOperations []types.Bytes
		// MandatoryApplications must be used in every block.
		MandatoryApplications []types.Bytes
	}

	// Operation is a system operation included in a block. Fields other
	// than Kind are used depending on the kind of the operation.
	Operation struct {
		_           struct{} `cbor:",toarray"`
		Kind        OperationKind
		Account     types.AccountOwner
		Ownership   *ownership.ChainOwnership
		Permissions *ApplicationPermissions
		Payload     types.Bytes
	}

	// BlockProposal is a block proposed for the chain at given height and round.
	BlockProposal struct {
		_          struct{} `cbor:",toarray"`
		ChainID    types.ChainID
		Height     uint64
		Round      types.Round
		Proposer   types.AccountOwner
		Timestamp  types.Timestamp
		Operations []Operation
	}
)

func CloseChain() Operation {
	return Operation{Kind: OpCloseChain}
}

func ChangeApplicationPermissions(p ApplicationPermissions) Operation {
	return Operation{Kind: OpChangeApplicationPermissions, Permissions: &p}
}

func ChangeOwnership(co *ownership.ChainOwnership) Operation {
	return Operation{Kind: OpChangeOwnership, Ownership: co}
}

// AccountOperation returns operation acting on the account of the owner,
// payload is opaque to the chain manager.
func AccountOperation(owner types.AccountOwner, payload []byte) Operation {
	return Operation{Kind: OpAccount, Account: owner, Payload: payload}
}

func (op *Operation) IsValid() error {
	switch op.Kind {
	case OpCloseChain, OpAccount:
	case OpChangeApplicationPermissions:
		if op.Permissions == nil {
			return errors.New("application permissions are missing")
		}
	case OpChangeOwnership:
		if op.Ownership == nil {
			return errors.New("ownership is missing")
		}
		if err := op.Ownership.Validate(); err != nil {
			return fmt.Errorf("invalid ownership: %w", err)
		}
	default:
		return fmt.Errorf("unknown operation kind %d", op.Kind)
	}
	return nil
}

func (p *BlockProposal) IsValid() error {
	if p == nil {
		return errors.New("proposal is nil")
	}
	if err := p.Round.Valid(); err != nil {
		return err
	}
	for i := range p.Operations {
		if err := p.Operations[i].IsValid(); err != nil {
			return fmt.Errorf("%w %d (%s): %w", ErrInvalidOperation, i, p.Operations[i].Kind, err)
		}
	}
	return nil
}

// Hash returns SHA-256 hash of the CBOR encoded proposal.
func (p *BlockProposal) Hash() ([]byte, error) {
	data, err := types.Cbor.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding block proposal: %w", err)
	}
	h := sha256.Sum256(data)
	return h[:], nil
}
