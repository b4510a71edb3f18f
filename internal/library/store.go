package library

import (
	"context"

	"cartel-backend/internal/platform/query"
)

// Store is the persistence boundary of the library. Lookups that miss return
// an apperr NOT_FOUND carrying the entity and key; inserts that hit a unique
// key return DUPLICATE.
type Store interface {
	// WithTx runs fn inside one transaction. fn must only use the Store it
	// receives. A nil return commits, anything else rolls back.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	ItemStore
	ContributorStore
	CopyStore
	PersonStore
	LoanStore
}

type ItemStore interface {
	InsertItem(ctx context.Context, it *Item) error
	GetItem(ctx context.Context, barcode string) (*Item, error)
	GetItemView(ctx context.Context, barcode string) (*ItemView, error)
	UpdateItem(ctx context.Context, it *Item) error
	DeleteItem(ctx context.Context, barcode string) error
	SearchItems(ctx context.Context, spec *query.Spec[ItemView], p query.Page, s query.Sort) ([]ItemView, int64, error)

	GetExchange(ctx context.Context, barcode string) (*Exchange, error)
	UpsertExchange(ctx context.Context, ex *Exchange) error
	DeleteExchange(ctx context.Context, barcode string) error
}

type ContributorStore interface {
	InsertContributor(ctx context.Context, c *Contributor) error
	GetContributor(ctx context.Context, id int64) (*Contributor, error)
	// FindContributor matches name case-insensitively within kind.
	// A miss returns (nil, nil).
	FindContributor(ctx context.Context, kind ContributorKind, name string) (*Contributor, error)
	ListContributors(ctx context.Context, kind ContributorKind, name string) ([]Contributor, error)
	UpdateContributor(ctx context.Context, c *Contributor) error
	DeleteContributor(ctx context.Context, id int64) error
	ItemContributors(ctx context.Context, barcode string) ([]Contributor, error)
	LinkContributor(ctx context.Context, barcode string, contributorID int64) error
	UnlinkContributors(ctx context.Context, barcode string) error
}

type CopyStore interface {
	InsertCopy(ctx context.Context, c *Copy) error
	GetCopy(ctx context.Context, id int64) (*Copy, error)
	// LockCopy reads the copy and holds it for the rest of the transaction.
	LockCopy(ctx context.Context, id int64) (*Copy, error)
	UpdateCopy(ctx context.Context, c *Copy) error
	DeleteCopy(ctx context.Context, id int64) error
	ListCopies(ctx context.Context, barcode string) ([]Copy, error)
	CountCopies(ctx context.Context, barcode string) (int, error)
}

type PersonStore interface {
	InsertPerson(ctx context.Context, p *Person) error
	GetPerson(ctx context.Context, id int64) (*Person, error)
	GetPersonView(ctx context.Context, id int64) (*PersonView, error)
	UpdatePerson(ctx context.Context, p *Person) error
	DeletePerson(ctx context.Context, id int64) error
	SearchPersons(ctx context.Context, spec *query.Spec[PersonView], p query.Page, s query.Sort) ([]PersonView, int64, error)
}

type LoanStore interface {
	InsertLoan(ctx context.Context, l *Loan) error
	GetLoan(ctx context.Context, kind LoanKind, id int64) (*Loan, error)
	GetLoanByRef(ctx context.Context, kind LoanKind, ref string) (*Loan, error)
	GetLoanView(ctx context.Context, kind LoanKind, id int64) (*LoanView, error)
	// LockLoan reads the loan and holds it for the rest of the transaction.
	LockLoan(ctx context.Context, kind LoanKind, id int64) (*Loan, error)
	UpdateLoan(ctx context.Context, l *Loan) error
	DeleteLoan(ctx context.Context, kind LoanKind, id int64) error
	// OpenLoanForCopy returns the open loan of any kind referencing the copy,
	// or (nil, nil).
	OpenLoanForCopy(ctx context.Context, copyID int64) (*Loan, error)
	SearchLoans(ctx context.Context, kind LoanKind, spec *query.Spec[LoanView], p query.Page, s query.Sort) ([]LoanView, int64, error)
}
