package library

// ItemView は一覧・詳細で返す item の集約
type ItemView struct {
	Item
	// 現物数 + 1（元の1点を数える）
	CopyCount    int
	Contributors []Contributor
	Exchange     *Exchange
}

func (v ItemView) ContributorsOf(kind ContributorKind) []Contributor {
	var out []Contributor
	for _, c := range v.Contributors {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// CopyCount is the derived copy count of an item: stored copies plus one.
func CopyCount(copies int) int { return copies + 1 }

type PersonView struct {
	Person
	LoanByCartelCount int
	LoanToCartelCount int
}

// LoanView is a loan joined with its counterparty. ItemName and ItemBarcode
// come from the live copy while it exists and from the snapshot afterwards.
type LoanView struct {
	Loan
	FirstName string
	Surname   string
}
