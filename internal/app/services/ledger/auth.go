package ledger

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Authorization is the capability presented to Mint. It is either a ModuleKey
// handed to a trusted module at wiring time, or a single-use MintGrant issued
// by the committee when a mint proposal passes. Both are only constructible
// through the ledger service, so holding one is the proof of authorization.
type Authorization interface {
	authorization()
}

// ModuleKey identifies a trusted in-process module (rewards accrual, station
// settlement, escrow, the governance committee). The zero value is invalid.
type ModuleKey struct {
	module string
	id     string
}

func (ModuleKey) authorization() {}

// Module returns the module name the key was issued for.
func (k ModuleKey) Module() string { return k.module }

// MintGrant authorizes exactly one mint of Amount to Recipient. It is
// consumed by the Mint call that uses it.
type MintGrant struct {
	id         string
	proposalID string
	recipient  string
	amount     uint64
}

func (*MintGrant) authorization() {}

// ProposalID returns the proposal the grant was issued for.
func (g *MintGrant) ProposalID() string { return g.proposalID }

// Recipient returns the only address the grant can mint to.
func (g *MintGrant) Recipient() string { return g.recipient }

// Amount returns the exact amount the grant authorizes.
func (g *MintGrant) Amount() uint64 { return g.amount }

// authority tracks capabilities issued by a Service instance. Capabilities
// are process-scoped: they exist only for the lifetime of the wiring that
// created them and are never persisted.
type authority struct {
	mu      sync.Mutex
	modules map[string]string // key id -> module name
	grants  map[string]*MintGrant
}

func newAuthority() *authority {
	return &authority{
		modules: make(map[string]string),
		grants:  make(map[string]*MintGrant),
	}
}

// IssueModuleKey mints a capability for a trusted module. Admin-only; module
// names must be unique per service instance.
func (s *Service) IssueModuleKey(ctx context.Context, caller, module string) (ModuleKey, error) {
	module = strings.TrimSpace(module)
	if module == "" {
		return ModuleKey{}, ErrInvalidAmount
	}

	st, err := s.loadState(ctx)
	if err != nil {
		return ModuleKey{}, err
	}
	if caller != st.Admin {
		return ModuleKey{}, ErrUnauthorized
	}

	s.auth.mu.Lock()
	defer s.auth.mu.Unlock()
	for _, existing := range s.auth.modules {
		if existing == module {
			return ModuleKey{}, ErrAlreadyActive
		}
	}
	key := ModuleKey{module: module, id: uuid.NewString()}
	s.auth.modules[key.id] = module
	return key, nil
}

// IssueMintGrant creates a single-use mint capability. Only the committee
// module may issue grants; the committee name comes from the ledger state.
func (s *Service) IssueMintGrant(ctx context.Context, key ModuleKey, proposalID, recipient string, amount uint64) (*MintGrant, error) {
	if amount == 0 || strings.TrimSpace(recipient) == "" {
		return nil, ErrInvalidAmount
	}

	st, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}

	s.auth.mu.Lock()
	defer s.auth.mu.Unlock()
	module, ok := s.auth.modules[key.id]
	if !ok || module != key.module || module != st.Committee {
		return nil, ErrUnauthorized
	}

	grant := &MintGrant{
		id:         uuid.NewString(),
		proposalID: proposalID,
		recipient:  recipient,
		amount:     amount,
	}
	s.auth.grants[grant.id] = grant
	return grant, nil
}

// RevokeMintGrant withdraws an unused grant. Committee-only, like issuance;
// the committee calls this when the step that should hand the grant to its
// holder fails after issuance, so a retry cannot end up with two live grants.
func (s *Service) RevokeMintGrant(ctx context.Context, key ModuleKey, grant *MintGrant) error {
	if grant == nil {
		return nil
	}

	st, err := s.loadState(ctx)
	if err != nil {
		return err
	}

	s.auth.mu.Lock()
	defer s.auth.mu.Unlock()
	module, ok := s.auth.modules[key.id]
	if !ok || module != key.module || module != st.Committee {
		return ErrUnauthorized
	}
	delete(s.auth.grants, grant.id)
	return nil
}

// checkMintAuthorization validates the capability against the requested mint.
// A MintGrant is consumed here; a second use fails with ErrUnauthorized.
func (s *Service) checkMintAuthorization(auth Authorization, recipient string, amount uint64) error {
	s.auth.mu.Lock()
	defer s.auth.mu.Unlock()

	switch a := auth.(type) {
	case ModuleKey:
		module, ok := s.auth.modules[a.id]
		if !ok || module != a.module {
			return ErrUnauthorized
		}
		return nil
	case *MintGrant:
		if a == nil {
			return ErrUnauthorized
		}
		issued, ok := s.auth.grants[a.id]
		if !ok || issued != a {
			return ErrUnauthorized
		}
		if a.recipient != recipient || a.amount != amount {
			return ErrUnauthorized
		}
		delete(s.auth.grants, a.id)
		return nil
	default:
		return ErrUnauthorized
	}
}

// releaseGrant re-registers a consumed grant after a failed mint so the
// capability is not lost to a storage error.
func (s *Service) releaseGrant(auth Authorization) {
	grant, ok := auth.(*MintGrant)
	if !ok || grant == nil {
		return
	}
	s.auth.mu.Lock()
	s.auth.grants[grant.id] = grant
	s.auth.mu.Unlock()
}
