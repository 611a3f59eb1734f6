package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/search"
	"github.com/pavitra93/food-ordering-admin/shared/testutil"
)

func TestPattern(t *testing.T) {
	assert.Equal(t, "%canteen%", search.Pattern("  Canteen "))
	assert.Equal(t, `%50\% off\_today%`, search.Pattern("50% OFF_today"))
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		number, perPage int
		want            search.Page
	}{
		{1, 10, search.Page{Number: 1, PerPage: 10}},
		{0, 0, search.Page{Number: 1, PerPage: 10}},
		{-3, 101, search.Page{Number: 1, PerPage: 10}},
		{4, 25, search.Page{Number: 4, PerPage: 25}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, search.NewPage(tt.number, tt.perPage))
	}
}

func TestContainsAndPaginate(t *testing.T) {
	db := testutil.NewDB(t)
	company, _ := testutil.CreateCompany(t, db, "Acme")
	for _, name := range []string{"North Canteen", "South canteen", "Cafe 50%", "Juice_Bar"} {
		testutil.CreateTerminal(t, db, company, name)
	}

	names := func(query string, page *search.Page) []string {
		t.Helper()
		q := db.Model(&models.Terminal{}).Scopes(search.Contains(query, "name", "email")).Order("name")
		if page != nil {
			q = q.Scopes(search.Paginate(*page))
		}
		var out []string
		require.NoError(t, q.Pluck("name", &out).Error)
		return out
	}

	assert.Equal(t, []string{"North Canteen", "South canteen"}, names("CANTEEN", nil))
	assert.Equal(t, []string{"Cafe 50%"}, names("50%", nil))
	assert.Equal(t, []string{"Juice_Bar"}, names("_", nil))
	assert.Empty(t, names("pizza", nil))
	assert.Len(t, names("", nil), 4)

	page := search.NewPage(2, 3)
	assert.Equal(t, []string{"South canteen"}, names("", &page))
}
