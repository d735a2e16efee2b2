package matcher

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// MaxDuplicates caps the number of candidates returned by a check.
	MaxDuplicates = 3

	minCompanyNameLength = 3
	minPersonNameLength  = 2
)

// Company is an existing company a new name is compared against.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Person is an existing contact person a new name is compared against.
type Person struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Match is a ranked duplicate candidate.
type Match struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	FirstName  string  `json:"first_name,omitempty"`
	LastName   string  `json:"last_name,omitempty"`
	Similarity float64 `json:"similarity"`
}

// Result is the outcome of a duplicate check. Duplicates is never nil.
type Result struct {
	IsDuplicate bool    `json:"isDuplicate"`
	Duplicates  []Match `json:"duplicates"`
}

func noDuplicates() Result {
	return Result{Duplicates: []Match{}}
}

// CompanyNameCheckable reports whether name is long enough to be checked.
func CompanyNameCheckable(name string) bool {
	return utf8.RuneCountInString(normalize(name)) >= minCompanyNameLength
}

// PersonNameCheckable reports whether both name parts are long enough to be
// checked.
func PersonNameCheckable(firstName, lastName string) bool {
	return utf8.RuneCountInString(normalize(firstName)) >= minPersonNameLength &&
		utf8.RuneCountInString(normalize(lastName)) >= minPersonNameLength
}

// CheckCompanyDuplicate looks for existing companies whose name equals or
// contains (or is contained in) name, ignoring case. Names shorter than three
// characters are not checked. The company with excludeID, usually the record
// being edited, is skipped, as are companies without a name.
func CheckCompanyDuplicate(name, excludeID string, companies []Company) Result {
	if !CompanyNameCheckable(name) {
		return noDuplicates()
	}
	query := normalize(name)

	var matches []Match
	for _, c := range companies {
		if excludeID != "" && c.ID == excludeID {
			continue
		}
		candidate := normalize(c.Name)
		if candidate == "" || !containsEither(candidate, query) {
			continue
		}
		matches = append(matches, Match{
			ID:         c.ID,
			Name:       c.Name,
			Similarity: Similarity(name, c.Name),
		})
	}
	return rank(matches)
}

// CheckPersonDuplicate looks for existing persons with the same first and
// last name, or a loose variant of it (see isLooseNameMatch). Both names must
// have at least two characters.
func CheckPersonDuplicate(firstName, lastName, excludeID string, persons []Person) Result {
	if !PersonNameCheckable(firstName, lastName) {
		return noDuplicates()
	}
	first, last := normalize(firstName), normalize(lastName)
	fullName := first + " " + last

	var matches []Match
	for _, p := range persons {
		if excludeID != "" && p.ID == excludeID {
			continue
		}
		pFirst, pLast := normalize(p.FirstName), normalize(p.LastName)
		exact := pFirst == first && pLast == last
		if !exact && !isLooseNameMatch(first, last, pFirst, pLast) {
			continue
		}
		matches = append(matches, Match{
			ID:         p.ID,
			Name:       strings.TrimSpace(p.FirstName + " " + p.LastName),
			FirstName:  p.FirstName,
			LastName:   p.LastName,
			Similarity: Similarity(fullName, pFirst+" "+pLast),
		})
	}
	return rank(matches)
}

// isLooseNameMatch reports whether one name part matches exactly while the
// other only matches by containment in either direction, e.g. "Anna Müller"
// against "Anna Müller-Meier" or "Hans Meier" against "Hansruedi Meier".
// All arguments must already be normalized. An empty candidate part is
// contained in every string, so it matches whenever the other part is equal.
func isLooseNameMatch(first, last, candidateFirst, candidateLast string) bool {
	if first == candidateFirst && containsEither(last, candidateLast) {
		return true
	}
	return last == candidateLast && containsEither(first, candidateFirst)
}

func containsEither(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// rank orders matches by descending similarity and keeps the best ones.
// Ties keep their input order.
func rank(matches []Match) Result {
	if len(matches) == 0 {
		return noDuplicates()
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > MaxDuplicates {
		matches = matches[:MaxDuplicates]
	}
	return Result{IsDuplicate: true, Duplicates: matches}
}
