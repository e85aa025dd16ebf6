package domain

import "context"

// AccountRepository defines access methods for accounts.
type AccountRepository interface {
	UpsertByGoogleSub(ctx context.Context, account *Account) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*Account, error)
	SetPlan(ctx context.Context, id string, plan PlanTier, status SubscriptionStatus, pagesRemaining int) error
}

// DocumentRepository defines persistence for uploaded documents.
type DocumentRepository interface {
	Create(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id, accountID string) (*Document, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]Document, error)
	Delete(ctx context.Context, id, accountID string) error
}

// StudyAidRepository handles persistence for generated study aids.
type StudyAidRepository interface {
	Save(ctx context.Context, aid *StudyAid) error
	ListByDocument(ctx context.Context, documentID, accountID string) ([]StudyAid, error)
}
