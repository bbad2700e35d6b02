package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lingo-api/internal/models"
)

// UserRepository provides access to learner records.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	IncrementXP(ctx context.Context, id uint, amount int) (int64, error)
	WithTx(tx *gorm.DB) UserRepository
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

// IncrementXP adds amount to the stored counter in SQL and returns the new value.
func (r *userRepository) IncrementXP(ctx context.Context, id uint, amount int) (int64, error) {
	db := r.db.WithContext(ctx)
	result := db.Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("xp", gorm.Expr("xp + ?", amount))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var xp int64
	if err := db.Model(&models.User{}).Where("id = ?", id).Pluck("xp", &xp).Error; err != nil {
		return 0, err
	}
	return xp, nil
}
