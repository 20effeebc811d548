package rls

import (
	"gorm.io/gorm"
)

// WithParish scopes postgres row-level security policies to the parish for
// the rest of the transaction. Other dialects have no RLS and are left alone.
func WithParish(tx *gorm.DB, parishID string) error {
	if tx == nil || tx.Dialector == nil || tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT set_config('app.current_parish_id', ?, true)", parishID).Error
}
