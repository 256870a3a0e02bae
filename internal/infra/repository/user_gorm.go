package repository

import (
	"context"
	"time"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"gorm.io/gorm"
)

type UserGormRepository struct {
	db *gorm.DB
}

func NewUserGormRepository(db *gorm.DB) *UserGormRepository {
	return &UserGormRepository{db: db}
}

var _ repo.UserRepository = (*UserGormRepository)(nil)

// 同じ電話番号が既にあれば ErrConflict
func (r *UserGormRepository) Create(ctx context.Context, user *model.User) error {
	return mapError(r.db.WithContext(ctx).Create(user).Error)
}

func (r *UserGormRepository) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	return r.first(ctx, "phone = ?", phone)
}

func (r *UserGormRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserGormRepository) first(ctx context.Context, cond string, args ...any) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where(cond, args...).First(&u).Error; err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

func (r *UserGormRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, map[string]any{"last_login_at": at, "updated_at": at})
}

func (r *UserGormRepository) PromoteToAdmin(ctx context.Context, id string, pin string, at time.Time) error {
	return r.update(ctx, id, map[string]any{"role": model.RoleAdmin, "admin_pin": pin, "updated_at": at})
}

func (r *UserGormRepository) update(ctx context.Context, id string, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumns(cols)
	switch {
	case res.Error != nil:
		return res.Error
	case res.RowsAffected == 0:
		return repo.ErrNotFound
	}
	return nil
}
