package repository

import (
	"strings"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// containsPattern builds a substring pattern for a LIKE ... ESCAPE '\' clause.
func containsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}

func dialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	return strings.ToLower(db.Dialector.Name())
}

// likeOperator returns a case-insensitive LIKE for the dialect. SQLite's LIKE
// already folds ASCII case.
func likeOperator(db *gorm.DB) string {
	if dialectName(db) == "postgres" {
		return "ILIKE"
	}
	return "LIKE"
}

// matchAnyColumn returns a "(a LIKE ? ESCAPE '\' OR b LIKE ? ESCAPE '\')"
// condition and its arguments.
func matchAnyColumn(db *gorm.DB, term string, columns ...string) (string, []interface{}) {
	op := likeOperator(db)
	pattern := containsPattern(term)
	parts := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, col+" "+op+` ? ESCAPE '\'`)
		args = append(args, pattern)
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}
