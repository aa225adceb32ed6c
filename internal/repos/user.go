package repos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shortlist/internal/logger"
	"shortlist/internal/models"
)

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*models.User, error)
	List(ctx context.Context, tx *gorm.DB) ([]*models.User, error)
	ListByRole(ctx context.Context, tx *gorm.DB, role models.Role) ([]*models.User, error)
	UpdateRole(ctx context.Context, tx *gorm.DB, id uuid.UUID, role models.Role) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return pick(tx, r.db).WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := pick(tx, r.db).WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	var user models.User
	err := pick(tx, r.db).WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*models.User, error) {
	var results []*models.User
	if len(ids) == 0 {
		return results, nil
	}
	if err := pick(tx, r.db).WithContext(ctx).Where("id IN ?", ids).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userRepo) List(ctx context.Context, tx *gorm.DB) ([]*models.User, error) {
	var results []*models.User
	if err := pick(tx, r.db).WithContext(ctx).Order("created_at ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userRepo) ListByRole(ctx context.Context, tx *gorm.DB, role models.Role) ([]*models.User, error) {
	var results []*models.User
	if err := pick(tx, r.db).WithContext(ctx).
		Where("role = ?", role).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userRepo) UpdateRole(ctx context.Context, tx *gorm.DB, id uuid.UUID, role models.Role) error {
	res := pick(tx, r.db).WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
