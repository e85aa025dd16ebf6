package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cramdesk/internal/domain"
)

// Reason classifies why a ledger decision denied an operation. Denials are
// expected, user-facing outcomes and are reported as decisions, never as
// errors.
type Reason string

const (
	ReasonSubscriptionExpired Reason = "subscription_expired"
	ReasonInsufficientPages   Reason = "insufficient_pages"
)

// Decision is the outcome of a ledger check or deduction.
type Decision struct {
	Allowed        bool
	Reason         Reason
	PagesRemaining int
	PagesRequired  int
}

// AccountStore is the persistence contract the ledger depends on. Read
// resolves an account or domain.ErrNotFound; ConditionalUpdate atomically
// replaces the page balance only when it still equals expected, reporting
// whether the swap applied. Any other store failure is fatal to the calling
// request.
type AccountStore interface {
	Read(ctx context.Context, accountID string) (*domain.Account, error)
	ConditionalUpdate(ctx context.Context, accountID string, expected, updated int) (bool, error)
}

// Ledger gates and meters consumption of prepaid pages per account. All
// mutation goes through the store's conditional update, so concurrent
// deductions against one account serialize without in-process locks.
type Ledger struct {
	store      AccountStore
	logger     zerolog.Logger
	now        func() time.Time
	maxRetries int
}

const defaultDeductRetries = 5

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source, used by tests to pin trial expiry.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithRetries overrides the bounded retry count for conditional-update
// conflicts during Deduct.
func WithRetries(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxRetries = n
		}
	}
}

// NewLedger constructs a Ledger over the given store.
func NewLedger(store AccountStore, logger zerolog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:      store,
		logger:     logger,
		now:        time.Now,
		maxRetries: defaultDeductRetries,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckAllowed answers whether an operation of the given page cost may
// proceed. It performs no mutation, so callers can show a cost estimate
// before committing to expensive upstream work.
func (l *Ledger) CheckAllowed(ctx context.Context, accountID string, cost int) (Decision, error) {
	if cost <= 0 {
		return Decision{}, fmt.Errorf("quota: cost must be positive, got %d: %w", cost, domain.ErrInvalidArgument)
	}
	account, err := l.store.Read(ctx, accountID)
	if err != nil {
		return Decision{}, fmt.Errorf("quota: read account %s: %w", accountID, err)
	}
	return l.decide(account, cost), nil
}

// Deduct atomically debits the realized cost of a completed operation. The
// balance and subscription state are re-validated at deduction time: the
// balance may have moved since the pre-flight check due to a concurrent
// operation or a billing-cycle reset. On a conditional-update conflict the
// read-validate-swap cycle is retried a bounded number of times. A balance is
// never driven negative; denial leaves it untouched.
func (l *Ledger) Deduct(ctx context.Context, accountID string, cost int) (Decision, error) {
	if cost <= 0 {
		return Decision{}, fmt.Errorf("quota: cost must be positive, got %d: %w", cost, domain.ErrInvalidArgument)
	}
	for attempt := 0; attempt < l.maxRetries; attempt++ {
		account, err := l.store.Read(ctx, accountID)
		if err != nil {
			return Decision{}, fmt.Errorf("quota: read account %s: %w", accountID, err)
		}
		decision := l.decide(account, cost)
		if !decision.Allowed {
			return decision, nil
		}
		applied, err := l.store.ConditionalUpdate(ctx, accountID, account.PagesRemaining, account.PagesRemaining-cost)
		if err != nil {
			return Decision{}, fmt.Errorf("quota: deduct %d pages from account %s: %w", cost, accountID, err)
		}
		if applied {
			return Decision{
				Allowed:        true,
				PagesRemaining: account.PagesRemaining - cost,
				PagesRequired:  cost,
			}, nil
		}
		l.logger.Debug().
			Str("account_id", accountID).
			Int("attempt", attempt+1).
			Msg("quota deduct conflict, retrying")
	}
	return Decision{}, fmt.Errorf("quota: deduct contention on account %s after %d attempts: %w", accountID, l.maxRetries, domain.ErrStoreUnavailable)
}

// decide applies the access policy in order: active subscriptions always have
// access, trials have access until their deadline, everything else is
// expired. Only then is the balance compared against the cost, so an expired
// account with a large balance is still told to upgrade rather than to buy
// pages.
func (l *Ledger) decide(account *domain.Account, cost int) Decision {
	if !account.HasAccess(l.now()) {
		return Decision{
			Allowed:        false,
			Reason:         ReasonSubscriptionExpired,
			PagesRemaining: account.PagesRemaining,
			PagesRequired:  cost,
		}
	}
	if cost > account.PagesRemaining {
		return Decision{
			Allowed:        false,
			Reason:         ReasonInsufficientPages,
			PagesRemaining: account.PagesRemaining,
			PagesRequired:  cost,
		}
	}
	return Decision{
		Allowed:        true,
		PagesRemaining: account.PagesRemaining,
		PagesRequired:  cost,
	}
}
