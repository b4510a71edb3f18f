package bnf

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// タグは名前空間なしで書く（srw: / dc: のローカル名で一致する）
type searchResponse struct {
	NumberOfRecords int        `xml:"numberOfRecords"`
	Records         []dcRecord `xml:"records>record>recordData>dc"`
	Diagnostics     []string   `xml:"diagnostics>diagnostic>message"`
}

type dcRecord struct {
	Titles       []string `xml:"title"`
	Creators     []string `xml:"creator"`
	Contributors []string `xml:"contributor"`
	Publishers   []string `xml:"publisher"`
	Dates        []string `xml:"date"`
	Languages    []string `xml:"language"`
	Descriptions []string `xml:"description"`
	Identifiers  []string `xml:"identifier"`
}

var (
	reYear   = regexp.MustCompile(`\b(1[5-9]\d\d|20\d\d)\b`)
	reParens = regexp.MustCompile(`\s*\([^)]*\)`)
	reSpaces = regexp.MustCompile(`\s+`)
	reArk    = regexp.MustCompile(`ark:/12148/[a-z0-9]+`)
)

const coverURL = "https://catalogue.bnf.fr/couverture?appName=NE&couverture=1&idArk="

func (d dcRecord) toRecord() Record {
	r := Record{
		Title:     cleanTitle(first(d.Titles)),
		Publisher: cleanPublisher(first(d.Publishers)),
		Language:  clean(first(d.Languages)),
	}
	r.Description = clean(first(d.Descriptions))
	if m := reYear.FindString(first(d.Dates)); m != "" {
		y, _ := strconv.Atoi(m)
		r.Year = &y
	}
	for _, id := range d.Identifiers {
		if ark := reArk.FindString(id); ark != "" {
			r.ImageURL = coverURL + ark
			break
		}
	}
	for _, raw := range append(append([]string{}, d.Creators...), d.Contributors...) {
		name, role := parseCreator(raw)
		if name == (Name{}) {
			continue
		}
		switch role {
		case roleIllustrator:
			r.Illustrators = appendUnique(r.Illustrators, name)
		case roleAuthor:
			r.Authors = appendUnique(r.Authors, name)
		}
	}
	return r
}

type role int

const (
	roleOther role = iota
	roleAuthor
	roleIllustrator
)

// parseCreator splits "Herbert, Frank (1920-1986). Auteur du texte" into
// the name and its role. Creators without a role are authors.
func parseCreator(raw string) (Name, role) {
	s := clean(raw)
	r := roleAuthor
	if i := strings.LastIndex(s, ". "); i >= 0 {
		switch label := strings.ToLower(s[i+2:]); {
		case strings.Contains(label, "illustrat"):
			r = roleIllustrator
		case strings.Contains(label, "auteur"), strings.Contains(label, "scénariste"):
			r = roleAuthor
		default:
			// traducteur, préfacier など
			r = roleOther
		}
		s = s[:i]
	}
	s = strings.TrimSpace(reParens.ReplaceAllString(s, ""))
	if s == "" {
		return Name{}, r
	}
	surname, firstName, ok := strings.Cut(s, ",")
	if !ok {
		return Name{Surname: s}, r
	}
	return Name{FirstName: strings.TrimSpace(firstName), Surname: strings.TrimSpace(surname)}, r
}

// "Dune / Frank Herbert ; traduit ..." -> "Dune"
func cleanTitle(s string) string {
	s = clean(s)
	if i := strings.Index(s, " / "); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// "Pocket (Paris)" -> "Pocket"
func cleanPublisher(s string) string {
	return strings.TrimSpace(reParens.ReplaceAllString(clean(s), ""))
}

func clean(s string) string {
	s = norm.NFC.String(s)
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

func appendUnique(list []Name, n Name) []Name {
	for _, have := range list {
		if have == n {
			return list
		}
	}
	return append(list, n)
}
