// Package governance implements the multi-party proposal workflow gating
// privileged ledger operations.
package governance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agrichain-io/token_layer/internal/app/domain/governance"
	ledgersvc "github.com/agrichain-io/token_layer/internal/app/services/ledger"
	"github.com/agrichain-io/token_layer/internal/app/storage"
	"github.com/agrichain-io/token_layer/pkg/logger"
)

var (
	ErrExpired         = errors.New("proposal expired")
	ErrAlreadyExecuted = errors.New("proposal already executed")
	ErrQuorumNotMet    = errors.New("quorum not met")
)

// ProposalTTL is how long a proposal stays votable after creation.
const ProposalTTL = 7 * 24 * time.Hour

// DefaultRequiredApprovals applies until the admin configures a quorum.
const DefaultRequiredApprovals = 3

// ExecutionResult reports the side effect of an executed proposal. For mint
// proposals Grant carries the capability the caller passes to Ledger.Mint;
// the mint itself does not happen inside Execute.
type ExecutionResult struct {
	Proposal governance.Proposal
	Grant    *ledgersvc.MintGrant
}

// Service manages proposals, voting and execution.
type Service struct {
	store  storage.GovernanceStore
	ledger *ledgersvc.Service
	key    ledgersvc.ModuleKey
	log    *logger.Logger
}

// New constructs the governance service. The module key must have been issued
// by the ledger for the committee module so executed proposals can authorize
// mints and pause flips.
func New(store storage.GovernanceStore, ledger *ledgersvc.Service, key ledgersvc.ModuleKey, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("governance")
	}
	return &Service{
		store:  store,
		ledger: ledger,
		key:    key,
		log:    log,
	}
}

func (s *Service) loadState(ctx context.Context) (governance.State, error) {
	st, err := s.store.GetGovernanceState(ctx)
	if err == nil {
		return st, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return governance.State{RequiredApprovals: DefaultRequiredApprovals}, nil
	}
	return governance.State{}, err
}

// Propose creates a proposal. The creator's own vote counts immediately, so
// the proposal starts with VoteCount 1.
func (s *Service) Propose(ctx context.Context, creator string, typ governance.ProposalType, payload governance.Payload, now time.Time) (governance.Proposal, error) {
	creator = strings.TrimSpace(creator)
	if creator == "" {
		return governance.Proposal{}, fmt.Errorf("creator is required")
	}
	switch typ {
	case governance.TypeMint:
		if payload.Recipient == "" || payload.Amount == 0 {
			return governance.Proposal{}, ledgersvc.ErrInvalidAmount
		}
	case governance.TypePause, governance.TypeUnpause, governance.TypeText:
	default:
		return governance.Proposal{}, fmt.Errorf("unknown proposal type %q", typ)
	}

	prop := governance.Proposal{
		ID:        uuid.NewString(),
		Creator:   creator,
		Type:      typ,
		Payload:   payload,
		VoteCount: 1,
		Voters:    []string{creator},
		Expiry:    now.Add(ProposalTTL),
	}
	prop, err := s.store.CreateProposal(ctx, prop)
	if err != nil {
		return governance.Proposal{}, err
	}

	s.log.WithField("proposal_id", prop.ID).
		WithField("type", string(typ)).
		WithField("creator", creator).
		Info("proposal created")
	return prop, nil
}

// Vote records a vote. Approving votes increment the counter on every call:
// the same identity voting twice counts twice. That mirrors the deployed
// contract and is pinned by tests; Voters is kept as an audit trail only.
func (s *Service) Vote(ctx context.Context, id, voter string, approve bool, now time.Time) (governance.Proposal, error) {
	prop, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return governance.Proposal{}, err
	}
	if prop.Executed {
		return governance.Proposal{}, ErrAlreadyExecuted
	}
	if prop.Expired(now) {
		return governance.Proposal{}, ErrExpired
	}

	if approve {
		prop.VoteCount++
	}
	prop.Voters = append(prop.Voters, voter)

	prop, err = s.store.UpdateProposal(ctx, prop)
	if err != nil {
		return governance.Proposal{}, err
	}

	s.log.WithField("proposal_id", id).
		WithField("voter", voter).
		WithField("approve", approve).
		WithField("vote_count", prop.VoteCount).
		Info("vote recorded")
	return prop, nil
}

// Execute finalizes a proposal once quorum is reached before expiry. Mint
// proposals yield a single-use MintGrant in the result; pause and unpause
// proposals flip the ledger flag directly.
func (s *Service) Execute(ctx context.Context, id string, now time.Time) (ExecutionResult, error) {
	prop, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return ExecutionResult{}, err
	}
	if prop.Executed {
		return ExecutionResult{}, ErrAlreadyExecuted
	}
	if prop.Expired(now) {
		return ExecutionResult{}, ErrExpired
	}

	st, err := s.loadState(ctx)
	if err != nil {
		return ExecutionResult{}, err
	}
	if prop.VoteCount < st.RequiredApprovals {
		return ExecutionResult{}, ErrQuorumNotMet
	}

	result := ExecutionResult{}
	switch prop.Type {
	case governance.TypeMint:
		grant, err := s.ledger.IssueMintGrant(ctx, s.key, prop.ID, prop.Payload.Recipient, prop.Payload.Amount)
		if err != nil {
			return ExecutionResult{}, err
		}
		result.Grant = grant
	case governance.TypePause:
		if err := s.ledger.SetPausedWithAuthority(ctx, s.key, true); err != nil {
			return ExecutionResult{}, err
		}
	case governance.TypeUnpause:
		if err := s.ledger.SetPausedWithAuthority(ctx, s.key, false); err != nil {
			return ExecutionResult{}, err
		}
	case governance.TypeText:
		// advisory only; nothing to apply
	}

	prop.Executed = true
	prop, err = s.store.UpdateProposal(ctx, prop)
	if err != nil {
		// the executed flag did not persist, so a retry will re-issue;
		// withdraw this grant to keep one live grant per proposal
		if result.Grant != nil {
			if revokeErr := s.ledger.RevokeMintGrant(ctx, s.key, result.Grant); revokeErr != nil {
				s.log.WithError(revokeErr).
					WithField("proposal_id", id).
					Error("failed to revoke stranded mint grant")
			}
		}
		return ExecutionResult{}, err
	}
	result.Proposal = prop

	s.log.WithField("proposal_id", id).
		WithField("type", string(prop.Type)).
		Info("proposal executed")
	return result, nil
}

// SetRequiredApprovals configures the quorum. Admin-only, minimum 1.
func (s *Service) SetRequiredApprovals(ctx context.Context, caller string, n int) (governance.State, error) {
	ledgerState, err := s.ledger.State(ctx)
	if err != nil {
		return governance.State{}, err
	}
	if caller != ledgerState.Admin {
		return governance.State{}, ledgersvc.ErrUnauthorized
	}
	if n < 1 {
		return governance.State{}, ledgersvc.ErrInvalidAmount
	}

	st, err := s.loadState(ctx)
	if err != nil {
		return governance.State{}, err
	}
	st.RequiredApprovals = n
	st, err = s.store.SaveGovernanceState(ctx, st)
	if err != nil {
		return governance.State{}, err
	}
	s.log.WithField("required_approvals", n).Info("quorum updated")
	return st, nil
}

// GetProposal returns a single proposal.
func (s *Service) GetProposal(ctx context.Context, id string) (governance.Proposal, error) {
	return s.store.GetProposal(ctx, id)
}

// ListProposals returns all proposals.
func (s *Service) ListProposals(ctx context.Context) ([]governance.Proposal, error) {
	return s.store.ListProposals(ctx)
}

// State returns the governance settings.
func (s *Service) State(ctx context.Context) (governance.State, error) {
	return s.loadState(ctx)
}
