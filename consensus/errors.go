package consensus

import "errors"

var (
	ErrChainClosed                 = errors.New("chain is closed")
	ErrWrongChain                  = errors.New("proposal is for another chain")
	ErrUnexpectedHeight            = errors.New("unexpected block height")
	ErrUnexpectedRound             = errors.New("unexpected round")
	ErrRoundExpired                = errors.New("round has timed out")
	ErrProposerNotAuthorized       = errors.New("proposer is not permitted to propose in the round")
	ErrTimestampBeforeParent       = errors.New("block timestamp is before the previous block")
	ErrTimestampBeforeRoundStart   = errors.New("block timestamp is before the start of the round")
	ErrTimestampInFuture           = errors.New("block timestamp is in the future")
	ErrRoundsExhausted             = errors.New("no rounds left to escalate to")
	ErrInvalidOperation            = errors.New("invalid operation")
	ErrOwnershipChangeNotPermitted = errors.New("unauthorized attempt to change the chain ownership")
)
