package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cramdesk/internal/domain"
	"cramdesk/internal/infra"
	"cramdesk/internal/sqlinline"
)

// AccountRepositoryPG implements domain.AccountRepository and the quota
// ledger's AccountStore backed by PostgreSQL. The ledger's conditional update
// maps onto a single guarded UPDATE so concurrent deductions serialize in the
// database without in-process locks.
type AccountRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewAccountRepository creates a new AccountRepositoryPG.
func NewAccountRepository(sql infra.SQLExecutor) *AccountRepositoryPG {
	return &AccountRepositoryPG{sql: sql}
}

// UpsertByGoogleSub inserts or updates an account keyed by email, seeding new
// accounts onto the trial tier with the configured page allotment.
func (r *AccountRepositoryPG) UpsertByGoogleSub(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QUpsertGoogleAccount,
		account.GoogleSub,
		account.Email,
		account.Name,
		account.Locale,
		account.PagesRemaining,
	)
	result := *account
	var inserted bool
	if err := row.Scan(&result.ID, &result.Plan, &result.SubscriptionStatus, &result.TrialEndsAt, &result.PagesRemaining, &inserted); err != nil {
		return nil, fmt.Errorf("repo: upsert account: %w", mapStoreErr(err))
	}
	return &result, nil
}

// GetByID fetches an account by UUID.
func (r *AccountRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.scanAccount(r.sql.QueryRow(ctx, sqlinline.QSelectAccountByID, id))
}

// GetByStripeCustomerID fetches the account linked to a Stripe customer.
func (r *AccountRepositoryPG) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.Account, error) {
	return r.scanAccount(r.sql.QueryRow(ctx, sqlinline.QSelectAccountByStripeCustomer, customerID))
}

// SetPlan assigns a plan tier and status and resets the page balance,
// advancing the billing cycle anchor. Used by billing webhooks and the
// accountplan tool.
func (r *AccountRepositoryPG) SetPlan(ctx context.Context, id string, plan domain.PlanTier, status domain.SubscriptionStatus, pagesRemaining int) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QResetBillingCycle, id, plan, status, pagesRemaining)
	if err != nil {
		return fmt.Errorf("repo: set plan: %w", mapStoreErr(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AttachStripeCustomer links a Stripe customer ID to an account.
func (r *AccountRepositoryPG) AttachStripeCustomer(ctx context.Context, id, customerID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QAttachStripeCustomer, id, customerID)
	if err != nil {
		return fmt.Errorf("repo: attach stripe customer: %w", mapStoreErr(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetSubscriptionStatus updates only the subscription status, leaving the
// balance untouched.
func (r *AccountRepositoryPG) SetSubscriptionStatus(ctx context.Context, id string, status domain.SubscriptionStatus) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QSetSubscriptionStatus, id, status)
	if err != nil {
		return fmt.Errorf("repo: set subscription status: %w", mapStoreErr(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Read implements quota.AccountStore.
func (r *AccountRepositoryPG) Read(ctx context.Context, accountID string) (*domain.Account, error) {
	return r.GetByID(ctx, accountID)
}

// ConditionalUpdate implements quota.AccountStore: the balance is swapped
// only when it still equals expected. A zero-row update reports a conflict.
func (r *AccountRepositoryPG) ConditionalUpdate(ctx context.Context, accountID string, expected, updated int) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QConditionalUpdatePages, accountID, expected, updated)
	if err != nil {
		return false, mapStoreErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AccountRepositoryPG) scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.GoogleSub, &a.Email, &a.Name, &a.Locale, &a.Plan,
		&a.SubscriptionStatus, &a.TrialEndsAt, &a.PagesRemaining,
		&a.BillingCycleAnchor, &a.StripeCustomerID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &a, nil
}

// mapStoreErr translates driver errors into the domain taxonomy: missing rows
// become ErrNotFound, everything else is a fatal store failure the caller may
// retry with backoff.
func mapStoreErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
