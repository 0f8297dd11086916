// Package dbx holds small gorm helpers shared across controllers.
package dbx

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockForUpdate adds a FOR UPDATE row lock on dialects that support it.
// SQLite serializes writing transactions at the database level and does not
// parse the clause, so it is omitted there; the transaction still provides
// the required check-then-act atomicity.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
