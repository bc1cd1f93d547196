// Package store holds the persistence primitives shared by the components
// on top of gorm.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetOrCreate inserts row unless another row already holds its unique key.
// On conflict the stored row, selected by query and args, is loaded into row.
// created reports which of the two happened.
func GetOrCreate[T any](tx *gorm.DB, row *T, query any, args ...any) (created bool, err error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	var existing T
	if err := tx.Where(query, args...).First(&existing).Error; err != nil {
		return false, err
	}
	*row = existing
	return false, nil
}

// Exists reports whether model has any row matching query.
func Exists(tx *gorm.DB, model any, query any, args ...any) (bool, error) {
	var n int64
	err := tx.Model(model).
		Where(query, args...).
		Count(&n).
		Error
	return n > 0, err
}

// WithTx runs fn in a transaction bound to ctx.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// IsDuplicate reports a unique constraint violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
