package loans

import (
	"context"
	"crypto/rand"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/platform/query"
)

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ===== Service本体 =====

type Service struct {
	store library.Store
	clock Clock
	id    IDGen
}

type Option func(*Service)

func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }
func WithIDGen(g IDGen) Option { return func(s *Service) { s.id = g } }

func NewService(store library.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		clock: realClock{},
		id:    ulidGen{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DATETIME(6) に合わせてマイクロ秒で丸める
func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// 団体 → メンバーの貸出
func (s *Service) CreateByCartel(ctx context.Context, personID, copyID int64) (*LoanResponse, error) {
	if personID <= 0 {
		return nil, apperr.ErrInvalid("person_id must be > 0")
	}
	if copyID <= 0 {
		return nil, apperr.ErrInvalid("copy_id must be > 0")
	}
	ref, err := s.id.New()
	if err != nil {
		return nil, err
	}

	var loanID int64
	err = s.store.WithTx(ctx, func(tx library.Store) error {
		if _, err := tx.GetPerson(ctx, personID); err != nil {
			return err
		}
		c, err := tx.LockCopy(ctx, copyID)
		if err != nil {
			return err
		}
		a, err := availabilityOf(ctx, tx, c)
		if err != nil {
			return err
		}
		switch {
		case a.State != StateAvailable:
			return apperr.ErrConflict("copy already has an open loan: " + strconv.FormatInt(c.ID, 10))
		case !c.Borrowable:
			return apperr.ErrConflict("copy is consult-only: " + strconv.FormatInt(c.ID, 10))
		case !c.Available:
			return apperr.ErrConflict("copy is not available: " + strconv.FormatInt(c.ID, 10))
		}

		l := &library.Loan{
			Ref:      ref,
			Kind:     library.LoanByCartel,
			CopyID:   &c.ID,
			PersonID: personID,
			LoanDate: s.now(),
		}
		if err := tx.InsertLoan(ctx, l); err != nil {
			return err
		}
		c.Available = false
		if err := tx.UpdateCopy(ctx, c); err != nil {
			return err
		}
		loanID = l.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] loan by cartel opened: id=%d copy=%d person=%d", loanID, copyID, personID)
	return s.view(ctx, library.LoanByCartel, loanID)
}

// メンバー → 団体の貸出。既存の空き現物は使わず、毎回新しい現物を作る
func (s *Service) CreateToCartel(ctx context.Context, personID int64, barcode string) (*LoanResponse, error) {
	if personID <= 0 {
		return nil, apperr.ErrInvalid("person_id must be > 0")
	}
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, apperr.ErrInvalid("barcode is required")
	}
	ref, err := s.id.New()
	if err != nil {
		return nil, err
	}

	var loanID int64
	err = s.store.WithTx(ctx, func(tx library.Store) error {
		if _, err := tx.GetPerson(ctx, personID); err != nil {
			return err
		}
		if _, err := tx.GetItem(ctx, barcode); err != nil {
			return err
		}
		c := &library.Copy{Barcode: barcode, Available: false, Borrowable: true}
		if err := tx.InsertCopy(ctx, c); err != nil {
			return err
		}
		l := &library.Loan{
			Ref:      ref,
			Kind:     library.LoanToCartel,
			CopyID:   &c.ID,
			PersonID: personID,
			LoanDate: s.now(),
		}
		if err := tx.InsertLoan(ctx, l); err != nil {
			return err
		}
		loanID = l.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] loan to cartel opened: id=%d item=%s person=%d", loanID, barcode, personID)
	return s.view(ctx, library.LoanToCartel, loanID)
}

func (s *Service) Complete(ctx context.Context, kind library.LoanKind, id int64) (*LoanResponse, error) {
	switch kind {
	case library.LoanByCartel:
		return s.CompleteByCartel(ctx, id)
	case library.LoanToCartel:
		return s.CompleteToCartel(ctx, id)
	}
	return nil, apperr.ErrInvalid("unknown loan kind: " + string(kind))
}

// 返却。現物の available を戻す
func (s *Service) CompleteByCartel(ctx context.Context, id int64) (*LoanResponse, error) {
	err := s.store.WithTx(ctx, func(tx library.Store) error {
		l, err := s.lockOpen(ctx, tx, library.LoanByCartel, id)
		if err != nil {
			return err
		}
		end := s.endDate(l)
		l.EndDate = &end
		if err := tx.UpdateLoan(ctx, l); err != nil {
			return err
		}
		return restoreCopy(ctx, tx, l.CopyID)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] loan by cartel completed: id=%d", id)
	return s.view(ctx, library.LoanByCartel, id)
}

// 返却。預かっていた現物は貸出のためだけに作ったものなので削除する。
// 順序: 品名スナップショット → copy 参照を外す → 保存 → copy 削除 → 再保存
func (s *Service) CompleteToCartel(ctx context.Context, id int64) (*LoanResponse, error) {
	err := s.store.WithTx(ctx, func(tx library.Store) error {
		l, err := s.lockOpen(ctx, tx, library.LoanToCartel, id)
		if err != nil {
			return err
		}

		var copyID *int64
		if l.CopyID != nil {
			c, err := tx.GetCopy(ctx, *l.CopyID)
			if err != nil {
				return err
			}
			it, err := tx.GetItem(ctx, c.Barcode)
			if err != nil {
				return err
			}
			l.ItemName, l.ItemBarcode = it.Name, it.Barcode
			copyID, l.CopyID = l.CopyID, nil
		}

		end := s.endDate(l)
		l.EndDate = &end
		if err := tx.UpdateLoan(ctx, l); err != nil {
			return err
		}
		if copyID != nil {
			if err := tx.DeleteCopy(ctx, *copyID); err != nil {
				return err
			}
		}
		return tx.UpdateLoan(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] loan to cartel completed: id=%d", id)
	return s.view(ctx, library.LoanToCartel, id)
}

// Remove deletes the loan record only. Copies are left in place; an open
// by-cartel loan gives its copy back.
func (s *Service) Remove(ctx context.Context, kind library.LoanKind, id int64) error {
	if !kind.Valid() {
		return apperr.ErrInvalid("unknown loan kind: " + string(kind))
	}
	err := s.store.WithTx(ctx, func(tx library.Store) error {
		l, err := tx.LockLoan(ctx, kind, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteLoan(ctx, kind, id); err != nil {
			return err
		}
		if kind == library.LoanByCartel && l.Active() {
			return restoreCopy(ctx, tx, l.CopyID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] loan removed: kind=%s id=%d", kind, id)
	return nil
}

// CancelToCartel deletes the loan together with the copy created for it.
func (s *Service) CancelToCartel(ctx context.Context, id int64) error {
	err := s.store.WithTx(ctx, func(tx library.Store) error {
		l, err := tx.LockLoan(ctx, library.LoanToCartel, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteLoan(ctx, library.LoanToCartel, id); err != nil {
			return err
		}
		if l.CopyID == nil {
			return nil
		}
		return tx.DeleteCopy(ctx, *l.CopyID)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] loan to cartel cancelled: id=%d", id)
	return nil
}

// 貸出単一取得（ID or ULID）
func (s *Service) Get(ctx context.Context, kind library.LoanKind, key string) (*LoanResponse, error) {
	if !kind.Valid() {
		return nil, apperr.ErrInvalid("unknown loan kind: " + string(kind))
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apperr.ErrInvalid("id or ref is required")
	}
	// 数値として解釈できればID検索
	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		return s.view(ctx, kind, id)
	}
	l, err := s.store.GetLoanByRef(ctx, kind, key)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, kind, l.ID)
}

func (s *Service) Search(ctx context.Context, kind library.LoanKind, f library.LoanFilter, p query.Page, srt query.Sort) (query.Result[LoanResponse], error) {
	if !kind.Valid() {
		return query.Result[LoanResponse]{}, apperr.ErrInvalid("unknown loan kind: " + string(kind))
	}
	if err := p.Validate(); err != nil {
		return query.Result[LoanResponse]{}, err
	}
	if _, ok := library.LoanSorts[srt.Field]; !ok {
		return query.Result[LoanResponse]{}, apperr.ErrInvalid("unknown sort field: " + srt.Field)
	}
	views, total, err := s.store.SearchLoans(ctx, kind, f.Spec(), p, srt)
	if err != nil {
		return query.Result[LoanResponse]{}, err
	}
	return query.Map(query.NewResult(views, total, p), toResponse), nil
}

// ===== helpers =====

func (s *Service) view(ctx context.Context, kind library.LoanKind, id int64) (*LoanResponse, error) {
	v, err := s.store.GetLoanView(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(*v)
	return &resp, nil
}

func (s *Service) lockOpen(ctx context.Context, tx library.Store, kind library.LoanKind, id int64) (*library.Loan, error) {
	l, err := tx.LockLoan(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !l.Active() {
		return nil, apperr.ErrConflict("loan already closed: " + strconv.FormatInt(id, 10))
	}
	return l, nil
}

// endDate は loanDate より前にならない
func (s *Service) endDate(l *library.Loan) time.Time {
	now := s.now()
	if now.Before(l.LoanDate) {
		return l.LoanDate
	}
	return now
}

func restoreCopy(ctx context.Context, tx library.Store, copyID *int64) error {
	if copyID == nil {
		return nil
	}
	c, err := tx.LockCopy(ctx, *copyID)
	if err != nil {
		return err
	}
	c.Available = true
	return tx.UpdateCopy(ctx, c)
}
