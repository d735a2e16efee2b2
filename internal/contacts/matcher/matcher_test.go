package matcher

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "Acme GmbH", "Acme GmbH", 1.0},
		{"case and whitespace ignored", "  ACME gmbh ", "acme GmbH", 1.0},
		{"both empty", "", "", 1.0},
		{"one empty", "abc", "", 0.0},
		{"one substitution", "Meier", "Meyer", 0.8},
		{"kitten sitting", "kitten", "sitting", 1.0 - 3.0/7.0},
		{"completely different", "abc", "xyz", 0.0},
		{"umlaut counts as one rune", "Müller", "Muller", 1.0 - 1.0/6.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	words := []string{"", "a", "Acme", "Acme GmbH", "ACME AG", "Reinigung Zürich", "Zürcher Reinigung", "kitten", "sitting"}
	for _, a := range words {
		for _, b := range words {
			assert.Equal(t, Similarity(a, b), Similarity(b, a), "similarity(%q, %q)", a, b)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein([]rune(""), []rune("")))
	assert.Equal(t, 3, levenshtein([]rune(""), []rune("abc")))
	assert.Equal(t, 3, levenshtein([]rune("kitten"), []rune("sitting")))
	assert.Equal(t, 2, levenshtein([]rune("flaw"), []rune("lawn")))
}

func TestCheckCompanyDuplicate(t *testing.T) {
	companies := []Company{
		{ID: "1", Name: "Acme GmbH"},
		{ID: "2", Name: "Acme Reinigung AG"},
		{ID: "3", Name: "Blitzblank AG"},
		{ID: "4", Name: ""},
	}

	t.Run("short names are not checked", func(t *testing.T) {
		for _, name := range []string{"", "  ", "Ac", " Ac "} {
			res := CheckCompanyDuplicate(name, "", companies)
			assert.False(t, res.IsDuplicate, name)
			assert.NotNil(t, res.Duplicates)
			assert.Empty(t, res.Duplicates, name)
		}
	})

	t.Run("exact match ranks first with score 1", func(t *testing.T) {
		res := CheckCompanyDuplicate("Acme GmbH", "", companies)
		require.True(t, res.IsDuplicate)
		require.Len(t, res.Duplicates, 1)
		assert.Equal(t, "1", res.Duplicates[0].ID)
		assert.Equal(t, 1.0, res.Duplicates[0].Similarity)
	})

	t.Run("substring in both directions", func(t *testing.T) {
		res := CheckCompanyDuplicate("acme", "", companies)
		require.True(t, res.IsDuplicate)
		assert.Len(t, res.Duplicates, 2)

		res = CheckCompanyDuplicate("Blitzblank AG Zürich", "", companies)
		require.True(t, res.IsDuplicate)
		assert.Equal(t, "3", res.Duplicates[0].ID)
	})

	t.Run("excluded id is skipped", func(t *testing.T) {
		res := CheckCompanyDuplicate("Acme GmbH", "1", companies)
		assert.False(t, res.IsDuplicate)
		assert.Empty(t, res.Duplicates)
	})

	t.Run("companies without a name never match", func(t *testing.T) {
		unnamed := []Company{{ID: "5", Name: ""}, {ID: "6", Name: "   "}}
		res := CheckCompanyDuplicate("Acme GmbH", "", unnamed)
		assert.False(t, res.IsDuplicate)
		assert.Empty(t, res.Duplicates)
	})

	t.Run("no match", func(t *testing.T) {
		res := CheckCompanyDuplicate("Sauber & Co", "", companies)
		assert.False(t, res.IsDuplicate)
		assert.Empty(t, res.Duplicates)
	})
}

func TestCheckCompanyDuplicate_TopThree(t *testing.T) {
	var companies []Company
	for i := 0; i < 10; i++ {
		companies = append(companies, Company{
			ID:   fmt.Sprint(i),
			Name: "Clean" + strings.Repeat("x", i+1),
		})
	}

	res := CheckCompanyDuplicate("Clean", "", companies)
	require.True(t, res.IsDuplicate)
	require.Len(t, res.Duplicates, MaxDuplicates)
	for i := 1; i < len(res.Duplicates); i++ {
		assert.GreaterOrEqual(t, res.Duplicates[i-1].Similarity, res.Duplicates[i].Similarity)
	}
	// Shorter suffixes are closer to the query.
	assert.Equal(t, []string{"0", "1", "2"}, []string{res.Duplicates[0].ID, res.Duplicates[1].ID, res.Duplicates[2].ID})
}

func TestCheckPersonDuplicate(t *testing.T) {
	persons := []Person{
		{ID: "1", FirstName: "Anna", LastName: "Müller"},
		{ID: "2", FirstName: "Anna", LastName: "Müller-Meier"},
		{ID: "3", FirstName: "Hansruedi", LastName: "Meier"},
		{ID: "4", FirstName: "Peter", LastName: "Keller"},
	}

	t.Run("short names are not checked", func(t *testing.T) {
		res := CheckPersonDuplicate("A", "Müller", "", persons)
		assert.False(t, res.IsDuplicate)
		assert.Empty(t, res.Duplicates)

		res = CheckPersonDuplicate("Anna", " M ", "", persons)
		assert.False(t, res.IsDuplicate)
	})

	t.Run("exact match first", func(t *testing.T) {
		res := CheckPersonDuplicate("anna", "MÜLLER", "", persons)
		require.True(t, res.IsDuplicate)
		require.Len(t, res.Duplicates, 2)
		assert.Equal(t, "1", res.Duplicates[0].ID)
		assert.Equal(t, 1.0, res.Duplicates[0].Similarity)
		assert.Equal(t, "Anna Müller", res.Duplicates[0].Name)
		assert.Equal(t, "2", res.Duplicates[1].ID)
	})

	t.Run("last name equal and first name contained", func(t *testing.T) {
		res := CheckPersonDuplicate("Hans", "Meier", "", persons)
		require.True(t, res.IsDuplicate)
		require.Len(t, res.Duplicates, 1)
		assert.Equal(t, "3", res.Duplicates[0].ID)
	})

	t.Run("excluded id is skipped", func(t *testing.T) {
		res := CheckPersonDuplicate("Peter", "Keller", "4", persons)
		assert.False(t, res.IsDuplicate)
	})

	t.Run("both parts only similar", func(t *testing.T) {
		res := CheckPersonDuplicate("Pete", "Kell", "", persons)
		assert.False(t, res.IsDuplicate)
	})
}

func TestIsLooseNameMatch(t *testing.T) {
	tests := []struct {
		name                string
		first, last         string
		candFirst, candLast string
		want                bool
	}{
		{"same first, last contains candidate", "anna", "müller-meier", "anna", "müller", true},
		{"same first, candidate contains last", "anna", "müller", "anna", "müller-meier", true},
		{"same last, first contained", "hans", "meier", "hansruedi", "meier", true},
		{"same last, candidate first contained", "hansruedi", "meier", "hans", "meier", true},
		{"same first, unrelated last", "anna", "müller", "anna", "keller", false},
		{"same last, unrelated first", "anna", "meier", "peter", "meier", false},
		{"nothing equal", "hans", "meier", "hansruedi", "meierhans", false},
		{"empty candidate last with equal first", "anna", "müller", "anna", "", true},
		{"empty candidate first with equal last", "anna", "müller", "", "müller", true},
		{"exact match is also loose", "anna", "müller", "anna", "müller", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isLooseNameMatch(tt.first, tt.last, tt.candFirst, tt.candLast))
		})
	}
}

func TestNameCheckable(t *testing.T) {
	assert.False(t, CompanyNameCheckable(" Ab "))
	assert.True(t, CompanyNameCheckable("Äbc"))
	assert.False(t, PersonNameCheckable("A", "Meier"))
	assert.False(t, PersonNameCheckable("Anna", " M "))
	assert.True(t, PersonNameCheckable("Jo", "Li"))
}
