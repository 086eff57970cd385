package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// Store is the transactional persistence layer for reports and their child
// rows. Methods join the transaction carried by ctx when there is one.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

type txKey struct{}

type txState struct {
	db          *gorm.DB
	afterCommit []func()
}

// WithTx runs fn inside one transaction. Nested calls reuse the outer one.
// Hooks registered with AfterCommit run once the outermost call commits.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}
	state := &txState{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state.db = tx
		return fn(context.WithValue(ctx, txKey{}, state))
	})
	if err != nil {
		return err
	}
	for _, hook := range state.afterCommit {
		hook()
	}
	return nil
}

// AfterCommit defers fn until the transaction carried by ctx commits. It is
// dropped on rollback. Without a transaction fn runs immediately.
func (s *Store) AfterCommit(ctx context.Context, fn func()) {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.afterCommit = append(state.afterCommit, fn)
		return
	}
	fn()
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	if state, ok := ctx.Value(txKey{}).(*txState); ok && state.db != nil {
		return state.db.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	}
	return err
}
