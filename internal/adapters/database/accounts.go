package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/output"
)

var (
	_ output.UserRepository    = (*UserRepository)(nil)
	_ output.ContactRepository = (*ContactRepository)(nil)
)

// UserRepository implements output.UserRepository.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) get(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	var m userModel
	err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return m.toDomain(), nil
}

// GetByUsername returns the user called username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.get(ctx, "username = ?", username)
}

// GetByID returns the user with the given ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.get(ctx, "id = ?", id)
}

// Superusers returns all active superusers ordered by ID.
func (r *UserRepository) Superusers(ctx context.Context) ([]domain.User, error) {
	var models []userModel
	err := r.db.WithContext(ctx).
		Where("is_superuser = ? AND is_active = ?", true, true).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("listing superusers: %w", err)
	}
	users := make([]domain.User, 0, len(models))
	for i := range models {
		users = append(users, *models[i].toDomain())
	}
	return users, nil
}

// Create stores a new user and sets its ID.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	m := userModel{
		Username:    user.Username,
		Password:    user.PasswordHash,
		IsSuperuser: user.IsSuperuser,
		IsActive:    user.IsActive,
	}
	err := r.db.WithContext(ctx).Create(&m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("user %s: %w", user.Username, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("creating user %s: %w", user.Username, err)
	}
	user.ID = m.ID
	return nil
}

// ContactRepository implements output.ContactRepository.
type ContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new contact repository.
func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// GetOrCreate returns the contact of user in role, creating it named after
// the user.
func (r *ContactRepository) GetOrCreate(ctx context.Context, user domain.User, role domain.ContactRole) (*domain.Contact, error) {
	var m contactModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND role = ?", user.ID, string(role)).First(&m).Error
		if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		m = contactModel{UserID: user.ID, Role: string(role), Name: user.Username}
		return tx.Omit(clause.Associations).Create(&m).Error
	})
	if err != nil {
		return nil, fmt.Errorf("get or create contact for %s: %w", user.Username, err)
	}
	return m.toDomain(), nil
}
