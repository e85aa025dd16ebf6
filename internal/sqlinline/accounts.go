package sqlinline

const QUpsertGoogleAccount = `--sql 069a739f-d366-4608-834d-7c90fb41b00c
insert into accounts (
    id, google_sub, email, name, locale, plan, subscription_status,
    trial_ends_at, pages_remaining, billing_cycle_anchor, created_at, updated_at
)
values (
    gen_random_uuid(), $1::text, $2::text, $3::text, $4::text, 'trial', 'trialing',
    now() + interval '14 days', $5::int, now(), now(), now()
)
on conflict (email) do update set
    name = excluded.name,
    locale = excluded.locale,
    google_sub = excluded.google_sub,
    updated_at = now()
returning id, plan, subscription_status, trial_ends_at, pages_remaining, (xmax = 0) as inserted;
`

const QSelectAccountByID = `--sql 6b8a2b1a-c59e-4f97-a7a7-c2247b6f7c87
select
    id, google_sub, email, name, locale, plan, subscription_status,
    trial_ends_at, pages_remaining, billing_cycle_anchor,
    coalesce(stripe_customer_id, ''), created_at, updated_at
from accounts
where id = $1::uuid
limit 1;
`

const QSelectAccountByEmail = `--sql 4fb7a55e-8a0c-42c1-93d4-2c5a8f6f1e09
select
    id, google_sub, email, name, locale, plan, subscription_status,
    trial_ends_at, pages_remaining, billing_cycle_anchor,
    coalesce(stripe_customer_id, ''), created_at, updated_at
from accounts
where email = $1::text
limit 1;
`

const QExtendTrial = `--sql 9d2f0c3b-5b0e-4f3a-8f61-7e0d1a2b4c5d
update accounts
set subscription_status = 'trialing',
    trial_ends_at = greatest(coalesce(trial_ends_at, now()), now()) + make_interval(days => $2::int),
    updated_at = now()
where id = $1::uuid
returning trial_ends_at;
`

const QSelectAccountByStripeCustomer = `--sql d17e15ba-3ef1-4c13-ad16-c45b5eccc5c1
select
    id, google_sub, email, name, locale, plan, subscription_status,
    trial_ends_at, pages_remaining, billing_cycle_anchor,
    coalesce(stripe_customer_id, ''), created_at, updated_at
from accounts
where stripe_customer_id = $1::text
limit 1;
`

// QConditionalUpdatePages is the ledger's compare-and-swap primitive: the
// balance is replaced only when it still equals the value the caller read.
// A zero-row update signals a conflict, never a partial write.
const QConditionalUpdatePages = `--sql 67244ea4-01b6-4c58-a3df-97deecfd8ea7
update accounts
set pages_remaining = $3::int, updated_at = now()
where id = $1::uuid and pages_remaining = $2::int;
`

const QResetBillingCycle = `--sql a9b149d5-3ad0-49dc-a8e3-e11ce826960a
update accounts
set plan = $2::text,
    subscription_status = $3::text,
    pages_remaining = $4::int,
    billing_cycle_anchor = now(),
    updated_at = now()
where id = $1::uuid;
`

const QAttachStripeCustomer = `--sql 289b2190-43f6-4d3e-aad1-fcdc0a93fc49
update accounts
set stripe_customer_id = $2::text, updated_at = now()
where id = $1::uuid;
`

const QSetSubscriptionStatus = `--sql 588cf6cc-901b-44b7-843e-933a15e08d0f
update accounts
set subscription_status = $2::text, updated_at = now()
where id = $1::uuid;
`
