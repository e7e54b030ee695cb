package consensus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alphabill-org/chainauthority/consensus/leader"
	"github.com/alphabill-org/chainauthority/internal/logger"
	"github.com/alphabill-org/chainauthority/ownership"
	"github.com/alphabill-org/chainauthority/types"
	"github.com/benbjohnson/clock"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var log = logger.CreateForPackage()

type (
	// ChainManager tracks the block height and the round of a single chain
	// and decides which block proposals are accepted. Rounds escalate when
	// they time out: the manager is the caller of the ownership round state
	// machine and the only place where time is taken into account.
	ChainManager struct {
		mu        sync.RWMutex
		chainID   types.ChainID
		params    *Parameters
		clock     clock.Clock
		committee *leader.Weighted
		ownership *ownership.ChainOwnership
		// height of the next block
		height             uint64
		round              types.Round
		roundStart         types.Timestamp
		lastBlockTimestamp types.Timestamp
		closed             bool
		permissions        ApplicationPermissions
		// signalled whenever the round changes
		roundChanged chan struct{}
	}

	// Status is a snapshot of the chain manager state.
	Status struct {
		ChainID            types.ChainID    `json:"chainId"`
		Height             uint64           `json:"height"`
		Round              types.Round      `json:"round"`
		RoundStart         types.Timestamp  `json:"roundStart"`
		RoundDeadline      *types.Timestamp `json:"roundDeadline,omitempty"`
		LastBlockTimestamp types.Timestamp  `json:"lastBlockTimestamp"`
		Closed             bool             `json:"closed"`
	}

	// blockState is the state changed by the operations of a block.
	blockState struct {
		ownership   *ownership.ChainOwnership
		closed      bool
		permissions ApplicationPermissions
	}
)

// NewChainManager returns manager for the chain starting at height zero in
// the first round of the ownership, the round starts at "now".
func NewChainManager(chainID types.ChainID, co *ownership.ChainOwnership, opts ...Option) (*ChainManager, error) {
	if co == nil {
		return nil, errors.New("chain ownership is nil")
	}
	conf, err := LoadConf(opts)
	if err != nil {
		return nil, fmt.Errorf("loading optional configuration: %w", err)
	}
	m := &ChainManager{
		chainID:      chainID,
		params:       conf.Params,
		clock:        conf.Clock,
		ownership:    co,
		roundChanged: make(chan struct{}, 1),
	}
	if len(conf.Committee) > 0 {
		// committee members must be in the same order for everybody
		members := maps.Keys(conf.Committee)
		slices.SortFunc(members, func(a, b types.AccountOwner) bool { return a.Compare(b) < 0 })
		weights := make([]uint64, len(members))
		for i, member := range members {
			weights[i] = conf.Committee[member]
		}
		if m.committee, err = leader.NewWeighted(members, weights); err != nil {
			return nil, fmt.Errorf("validator committee: %w", err)
		}
	}
	m.startRound(co.FirstRound(), m.now())
	return m, nil
}

func (m *ChainManager) now() types.Timestamp {
	return types.TimestampFromTime(m.clock.Now())
}

func (m *ChainManager) ChainID() types.ChainID {
	return m.chainID
}

func (m *ChainManager) Ownership() *ownership.ChainOwnership {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ownership
}

func (m *ChainManager) Height() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.height
}

func (m *ChainManager) CurrentRound() types.Round {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round
}

func (m *ChainManager) ApplicationPermissions() ApplicationPermissions {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.permissions
}

func (m *ChainManager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Status{
		ChainID:            m.chainID,
		Height:             m.height,
		Round:              m.round,
		RoundStart:         m.roundStart,
		LastBlockTimestamp: m.lastBlockTimestamp,
		Closed:             m.closed,
	}
	if deadline, ok := m.roundDeadline(); ok {
		s.RoundDeadline = &deadline
	}
	return s
}

// RoundDeadline returns the time when the current round times out, false
// if the round never times out.
func (m *ChainManager) RoundDeadline() (types.Timestamp, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roundDeadline()
}

func (m *ChainManager) roundDeadline() (types.Timestamp, bool) {
	d, ok := m.ownership.RoundTimeout(m.round)
	if !ok {
		return 0, false
	}
	return m.roundStart.SaturatingAddDelta(d), true
}

// RoundLeader returns the leader of the current round. Only single-leader
// rounds and, when the committee is configured, validator rounds have a leader.
func (m *ChainManager) RoundLeader() (types.AccountOwner, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roundLeader(m.round)
}

func (m *ChainManager) roundLeader(round types.Round) (types.AccountOwner, bool) {
	if round.IsValidator() {
		if m.committee == nil {
			return types.AccountOwner{}, false
		}
		return m.committee.Leader(uint64(round.Index)), true
	}
	return m.ownership.RoundLeader(round)
}

// CanPropose returns true if the owner may propose a block in the current round.
func (m *ChainManager) CanPropose(owner types.AccountOwner) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.canPropose(owner, m.round)
}

func (m *ChainManager) canPropose(owner types.AccountOwner, round types.Round) bool {
	if m.ownership.CanPropose(owner, round) {
		return true
	}
	if round.IsValidator() {
		l, ok := m.roundLeader(round)
		return ok && l == owner
	}
	return false
}

// HandleTimeout moves to the next round if the deadline of the current round
// has passed. Returns true if the round was advanced.
func (m *ChainManager) HandleTimeout(now types.Timestamp) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deadline, ok := m.roundDeadline()
	if !ok || now < deadline {
		return false, nil
	}
	log.Debug("Chain %s height %d: round %s timed out", m.chainID, m.height, m.round)
	if err := m.advanceRound(now); err != nil {
		return false, err
	}
	return true, nil
}

// AdvanceRound moves to the next round regardless of the deadline, ie when
// a timeout certificate for the current round is received.
func (m *ChainManager) AdvanceRound(now types.Timestamp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advanceRound(now)
}

func (m *ChainManager) advanceRound(now types.Timestamp) error {
	next, ok := m.ownership.NextRound(m.round)
	if !ok {
		return fmt.Errorf("chain %s round %s: %w", m.chainID, m.round, ErrRoundsExhausted)
	}
	roundsAdvancedCounter.Inc(1)
	m.startRound(next, now)
	return nil
}

// CheckFallback switches the chain to validator rounds when the oldest
// message waiting for confirmation is older than the fallback duration.
// Returns true if the chain fell back.
func (m *ChainManager) CheckFallback(now, oldestMessage types.Timestamp) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.round.IsValidator() || m.closed {
		return false
	}
	fallback := m.ownership.TimeoutConfig().FallbackDuration
	if fallback == types.MaxTimeDelta || now.DeltaSince(oldestMessage) < fallback {
		return false
	}
	log.Info("Chain %s height %d: falling back to validator rounds from round %s", m.chainID, m.height, m.round)
	roundsFallbackCounter.Inc(1)
	m.startRound(types.ValidatorRound(0), now)
	return true
}

// HandleProposal validates the proposal against the current state of the
// chain and, if valid, commits it: the height is incremented and the next
// height starts in the first round of the (possibly changed) ownership.
func (m *ChainManager) HandleProposal(p *BlockProposal, now types.Timestamp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.handleProposal(p, now); err != nil {
		proposalsRejectedCounter.Inc(1)
		return err
	}
	proposalsAcceptedCounter.Inc(1)
	return nil
}

func (m *ChainManager) handleProposal(p *BlockProposal, now types.Timestamp) error {
	if err := p.IsValid(); err != nil {
		return fmt.Errorf("invalid block proposal: %w", err)
	}
	if m.closed {
		return ErrChainClosed
	}
	if p.ChainID != m.chainID {
		return fmt.Errorf("%w: %s", ErrWrongChain, p.ChainID)
	}
	if p.Height != m.height {
		return fmt.Errorf("%w: expected %d, got %d", ErrUnexpectedHeight, m.height, p.Height)
	}
	if err := m.checkRound(p.Round); err != nil {
		return err
	}
	if deadline, ok := m.roundDeadline(); ok && p.Round == m.round && now >= deadline {
		return fmt.Errorf("%w: round %s ended at %s", ErrRoundExpired, m.round, deadline)
	}
	if !m.canPropose(p.Proposer, p.Round) {
		return fmt.Errorf("%w: owner %s, round %s", ErrProposerNotAuthorized, p.Proposer, p.Round)
	}
	if p.Timestamp < m.lastBlockTimestamp {
		return fmt.Errorf("%w: block %s, previous block %s", ErrTimestampBeforeParent, p.Timestamp, m.lastBlockTimestamp)
	}
	if p.Timestamp < m.roundStart {
		return fmt.Errorf("%w: block %s, round started %s", ErrTimestampBeforeRoundStart, p.Timestamp, m.roundStart)
	}
	if limit := now.SaturatingAddDelta(m.params.MaxClockSkew); p.Timestamp > limit {
		return fmt.Errorf("%w: block %s, local time %s", ErrTimestampInFuture, p.Timestamp, now)
	}
	st, err := m.executeOperations(p)
	if err != nil {
		return err
	}

	log.Debug("Chain %s: committed block %d proposed by %s in round %s", m.chainID, m.height, p.Proposer, p.Round)
	m.height++
	m.lastBlockTimestamp = p.Timestamp
	m.ownership = st.ownership
	m.closed = st.closed
	m.permissions = st.permissions
	m.startRound(m.ownership.FirstRound(), now)
	return nil
}

// checkRound verifies that the proposal is for the current round. While the
// chain is in the multi-leader rounds a proposal may also be for a later
// multi-leader round, ie the proposer has seen a timeout the local node has not.
func (m *ChainManager) checkRound(round types.Round) error {
	if round == m.round {
		return nil
	}
	if round.IsMultiLeader() &&
		round.Index < m.ownership.MultiLeaderRounds() &&
		(m.round.IsFast() || m.round.IsMultiLeader()) &&
		m.round.Less(round) {
		return nil
	}
	return fmt.Errorf("%w: current round is %s, proposal is for %s", ErrUnexpectedRound, m.round, round)
}

// executeOperations checks that the proposer is authorized to execute the
// operations of the block and returns the resulting state. The chain's state
// is not modified.
func (m *ChainManager) executeOperations(p *BlockProposal) (blockState, error) {
	st := blockState{
		ownership:   m.ownership,
		closed:      m.closed,
		permissions: m.permissions,
	}
	// authorization is checked against the ownership the block started with
	co := m.ownership
	for i, op := range p.Operations {
		if st.closed {
			return st, fmt.Errorf("operation %d (%s): %w", i, op.Kind, ErrChainClosed)
		}
		var err error
		switch op.Kind {
		case OpCloseChain:
			if !co.VerifyOwner(p.Proposer) {
				err = ownership.ErrCloseChainNotPermitted
				break
			}
			st.closed = true
		case OpChangeApplicationPermissions:
			if !co.VerifyOwner(p.Proposer) {
				err = ownership.ErrChangeApplicationPermissionsNotPermitted
				break
			}
			st.permissions = *op.Permissions
		case OpChangeOwnership:
			if !co.CanChangeOwnership(p.Proposer) {
				err = ErrOwnershipChangeNotPermitted
				break
			}
			st.ownership = op.Ownership
		case OpAccount:
			err = checkAccountAccess(co, p.Proposer, op.Account)
		}
		if err != nil {
			return st, fmt.Errorf("operation %d (%s): %w", i, op.Kind, err)
		}
	}
	return st, nil
}

// checkAccountAccess returns error unless the proposer owns the account. The
// chain's own account belongs to the owners of the chain.
func checkAccountAccess(co *ownership.ChainOwnership, proposer, account types.AccountOwner) error {
	if account.IsChain() {
		if co.VerifyOwner(proposer) {
			return nil
		}
	} else if proposer == account {
		return nil
	}
	return ownership.AccountPermissionError{Owner: account}
}

func (m *ChainManager) startRound(round types.Round, now types.Timestamp) {
	m.round = round
	m.roundStart = now
	select {
	case m.roundChanged <- struct{}{}:
	default:
	}
}

// Run handles round timeouts using the manager's clock until the context is
// cancelled or the rounds are exhausted.
func (m *ChainManager) Run(ctx context.Context) error {
	for {
		// nil channel blocks forever, ie the round has no deadline
		var timeout <-chan time.Time
		var timer *clock.Timer
		if deadline, ok := m.RoundDeadline(); ok {
			timer = m.clock.Timer(deadline.Time().Sub(m.clock.Now()))
			timeout = timer.C
		}
		select {
		case <-ctx.Done():
			stopTimer(timer)
			return ctx.Err()
		case <-m.roundChanged:
			stopTimer(timer)
		case <-timeout:
			if _, err := m.HandleTimeout(m.now()); err != nil {
				log.Warning("Chain %s: %v", m.chainID, err)
				return err
			}
		}
	}
}

func stopTimer(t *clock.Timer) {
	if t != nil {
		t.Stop()
	}
}
