package library

import "time"

// ItemKind は items.kind の判別子
type ItemKind string

const (
	KindBook      ItemKind = "book"
	KindGame      ItemKind = "game"
	KindExtension ItemKind = "extension"
)

func (k ItemKind) Valid() bool {
	switch k {
	case KindBook, KindGame, KindExtension:
		return true
	}
	return false
}

// Item は items テーブルの1行 + 種別ごとの詳細
type Item struct {
	Barcode     string
	Kind        ItemKind
	Name        string
	Description string
	Year        *int
	Language    string
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Kind に応じてどちらか一方だけが入る
	Book *BookDetails
	Game *GameDetails
}

type BookDetails struct {
	Format   string
	Category string
}

// GameDetails is shared by games and extensions. BaseGame is set only for
// extensions and holds the barcode of the extended game.
type GameDetails struct {
	MinPlayers  int
	MaxPlayers  int
	MinPlayTime int
	MaxPlayTime int
	Categories  []string
	BaseGame    string
}

// Copy は貸出対象の現物1点
type Copy struct {
	ID         int64
	Barcode    string
	Available  bool
	Borrowable bool
	CreatedAt  time.Time
}

type Person struct {
	ID        int64
	FirstName string
	Surname   string
	Contact   string
	Caution   int
}

// LoanKind は貸出の向き
type LoanKind string

const (
	// 団体 → メンバー（person は借り手）
	LoanByCartel LoanKind = "by_cartel"
	// メンバー → 団体（person は持ち主）
	LoanToCartel LoanKind = "to_cartel"
)

func (k LoanKind) Valid() bool { return k == LoanByCartel || k == LoanToCartel }

type Loan struct {
	ID       int64
	Ref      string
	Kind     LoanKind
	CopyID   *int64
	PersonID int64
	LoanDate time.Time
	EndDate  *time.Time

	// 完了時のスナップショット（copy 削除後も品名を返すため）
	ItemName    string
	ItemBarcode string
}

func (l *Loan) Active() bool { return l.EndDate == nil }

type ContributorKind string

const (
	ContributorAuthor      ContributorKind = "author"
	ContributorIllustrator ContributorKind = "illustrator"
	ContributorPublisher   ContributorKind = "publisher"
	ContributorGenre       ContributorKind = "genre"
	ContributorSeries      ContributorKind = "series"
)

func (k ContributorKind) Valid() bool {
	switch k {
	case ContributorAuthor, ContributorIllustrator, ContributorPublisher, ContributorGenre, ContributorSeries:
		return true
	}
	return false
}

// Personal reports whether the kind is named by first name + surname.
func (k ContributorKind) Personal() bool {
	return k == ContributorAuthor || k == ContributorIllustrator
}

// Contributor: authors and illustrators use FirstName/Surname, the other
// kinds only Name. Name is always filled so lookups can use one column.
type Contributor struct {
	ID        int64
	Kind      ContributorKind
	FirstName string
	Surname   string
	Name      string
}

func (c Contributor) DisplayName() string {
	if c.Kind.Personal() {
		switch {
		case c.FirstName == "":
			return c.Surname
		case c.Surname == "":
			return c.FirstName
		}
		return c.FirstName + " " + c.Surname
	}
	return c.Name
}

type ExchangeStatus string

const (
	ExchangeReference   ExchangeStatus = "reference"
	ExchangeForTrade    ExchangeStatus = "for_trade"
	ExchangeNotLoanable ExchangeStatus = "not_loanable"
)

func (s ExchangeStatus) Valid() bool {
	return s == ExchangeReference || s == ExchangeForTrade || s == ExchangeNotLoanable
}

type Exchange struct {
	Barcode string
	Status  ExchangeStatus
	Note    string
}
