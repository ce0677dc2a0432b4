package repository

import (
	"context"
	"errors"

	"papertrader/src/database"
	"papertrader/src/model"

	"gorm.io/gorm"
)

var ErrNoDatabase = errors.New("repository: no database configured")

// ExceptionRepository stores captured faults.
type ExceptionRepository struct {
	db *gorm.DB
}

func NewExceptionRepository() *ExceptionRepository {
	return NewExceptionRepositoryWithDB(database.MainDB)
}

func NewExceptionRepositoryWithDB(db *gorm.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

func (r *ExceptionRepository) Create(ctx context.Context, exc *model.Exception) error {
	if r.db == nil {
		return ErrNoDatabase
	}
	return r.db.WithContext(ctx).Create(exc).Error
}
