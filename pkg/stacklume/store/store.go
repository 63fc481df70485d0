// Package store is the storage layer used by the backup and import services.
// Every call goes through the retry policy; row filtering is expressed with
// gorm scopes.
package store

import (
	"context"
	"errors"

	"github.com/mikepea/stacklume/pkg/stacklume/apperr"
	"github.com/mikepea/stacklume/pkg/stacklume/retry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope narrows a query. It has the shape gorm's Scopes expects.
type Scope func(*gorm.DB) *gorm.DB

// Store runs retried reads and writes against a gorm database.
type Store struct {
	db     *gorm.DB
	policy retry.Policy
}

// New creates a store over db.
func New(db *gorm.DB, policy retry.Policy) *Store {
	return &Store{db: db, policy: policy}
}

// DB returns the underlying database handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) query(ctx context.Context, scopes []Scope) *gorm.DB {
	q := s.db.WithContext(ctx)
	for _, sc := range scopes {
		q = sc(q)
	}
	return q
}

// Select loads every row matching scopes into dest. Soft-deleted rows are
// excluded unless a scope asks for Unscoped.
func (s *Store) Select(ctx context.Context, op string, dest any, scopes ...Scope) error {
	return s.policy.Do(ctx, op, func() error {
		return s.query(ctx, scopes).Find(dest).Error
	})
}

// First loads the first row matching scopes. A miss is apperr.ErrNotFound.
func (s *Store) First(ctx context.Context, op string, dest any, scopes ...Scope) error {
	err := s.policy.Do(ctx, op, func() error {
		return s.query(ctx, scopes).Take(dest).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	return err
}

// Pluck loads a single column of the matching rows of model into dest.
func (s *Store) Pluck(ctx context.Context, op string, model any, column string, dest any, scopes ...Scope) error {
	return s.policy.Do(ctx, op, func() error {
		return s.query(ctx, scopes).Model(model).Pluck(column, dest).Error
	})
}

// Count counts the rows of model matching scopes.
func (s *Store) Count(ctx context.Context, op string, model any, scopes ...Scope) (int64, error) {
	var n int64
	err := s.policy.Do(ctx, op, func() error {
		return s.query(ctx, scopes).Model(model).Count(&n).Error
	})
	return n, err
}

// Insert writes row. A unique or primary key clash is an error.
func (s *Store) Insert(ctx context.Context, op string, row any) error {
	return s.policy.Do(ctx, op, func() error {
		return s.db.WithContext(ctx).Create(row).Error
	})
}

// InsertIfAbsent writes row unless it collides with an existing row on any
// primary or unique key. It reports whether a new row was written; an
// existing row is left as it is.
func (s *Store) InsertIfAbsent(ctx context.Context, op string, row any) (bool, error) {
	var inserted bool
	err := s.policy.Do(ctx, op, func() error {
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected > 0
		return nil
	})
	return inserted, err
}

// SoftDelete stamps the deletion time on the row of model with the given id.
func (s *Store) SoftDelete(ctx context.Context, op string, model any, id string) error {
	return s.policy.Do(ctx, op, func() error {
		return s.db.WithContext(ctx).Where("id = ?", id).Delete(model).Error
	})
}

// Delete physically removes the rows of model matching scopes and returns how
// many went away.
func (s *Store) Delete(ctx context.Context, op string, model any, scopes ...Scope) (int64, error) {
	var n int64
	err := s.policy.Do(ctx, op, func() error {
		res := s.query(ctx, scopes).Unscoped().Delete(model)
		n = res.RowsAffected
		return res.Error
	})
	return n, err
}

// OwnedBy restricts a query to rows belonging to userID.
func OwnedBy(userID uint) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

// WithID restricts a query to a single primary key.
func WithID(id string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}

// In restricts column to the given values.
func In(column string, values []string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.IN{Column: clause.Column{Name: column}, Values: toAny(values)})
	}
}

// Equals restricts column to a single value.
func Equals(column string, value any) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
	}
}

// NewestFirst orders by creation time, newest first, with the id as tie breaker.
func NewestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
