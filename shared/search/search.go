// Package search holds the gorm scopes behind list filters and pagination.
package search

import (
	"strings"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Pattern builds a lower-cased LIKE pattern matching query anywhere in a value
func Pattern(query string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(query))) + "%"
}

// Contains is a gorm scope keeping rows where any of columns contains query,
// ignoring case. An empty query leaves the scope unfiltered.
func Contains(query string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if strings.TrimSpace(query) == "" || len(columns) == 0 {
			return db
		}

		pattern := Pattern(query)
		clauses := make([]string, 0, len(columns))
		args := make([]interface{}, 0, len(columns))
		for _, column := range columns {
			clauses = append(clauses, "LOWER("+column+`) LIKE ? ESCAPE '\'`)
			args = append(args, pattern)
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}

// Page is a 1-based page request
type Page struct {
	Number  int `json:"page"`
	PerPage int `json:"per_page"`
}

// NewPage clamps raw page values to sane defaults
func NewPage(number, perPage int) Page {
	if number < 1 {
		number = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	return Page{Number: number, PerPage: perPage}
}

// Paginate is a gorm scope applying p's offset and limit
func Paginate(p Page) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((p.Number - 1) * p.PerPage).Limit(p.PerPage)
	}
}
