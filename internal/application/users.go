package application

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/output"
)

// UsersService resolves the accounts that own uploads and call the API.
type UsersService struct {
	users  output.UserRepository
	logger *slog.Logger
}

// NewUsersService creates a new users service.
func NewUsersService(users output.UserRepository, logger *slog.Logger) *UsersService {
	return &UsersService{
		users:  users,
		logger: logger,
	}
}

// DefaultUser returns the only superuser.
func (s *UsersService) DefaultUser(ctx context.Context) (*domain.User, error) {
	admins, err := s.users.Superusers(ctx)
	if err != nil {
		return nil, err
	}
	switch len(admins) {
	case 0:
		return nil, domain.NewError(domain.KindInvalidInput, "",
			"you must have an admin account configured before importing data; try: geonode createsuperuser")
	case 1:
		return &admins[0], nil
	default:
		return nil, domain.NewError(domain.KindInvalidInput, "",
			"you have multiple admin accounts, please specify which one to use")
	}
}

// ValidUser returns the account called username, or the default superuser
// when username is empty.
func (s *UsersService) ValidUser(ctx context.Context, username string) (*domain.User, error) {
	if username == "" {
		return s.DefaultUser(ctx)
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.WrapError(domain.KindInvalidInput, username, err,
				"user %s does not exist", username)
		}
		return nil, err
	}
	return s.RequireUser(*user)
}

// RequireUser rejects the anonymous user as an uploader.
func (s *UsersService) RequireUser(user domain.User) (*domain.User, error) {
	if user.IsAnonymous() {
		return nil, domain.NewError(domain.KindPermissionDenied, "",
			"the user uploading files must not be anonymous")
	}
	return &user, nil
}

// Authenticate checks username/password against the stored hash.
func (s *UsersService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPermissionDenied
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrPermissionDenied
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug("authentication failed", "username", username)
		return nil, domain.ErrPermissionDenied
	}
	return user, nil
}

// CreateUser stores a new account with a hashed password.
func (s *UsersService) CreateUser(ctx context.Context, username, password string, superuser bool) (*domain.User, error) {
	if username == "" {
		return nil, &domain.ValidationError{Field: "username", Value: username, Constraint: "non-empty", Message: "username is required"}
	}
	if len(password) < 4 {
		return nil, &domain.ValidationError{Field: "password", Value: "***", Constraint: "min 4 characters", Message: "password is too short"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		IsSuperuser:  superuser,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user created", "username", username, "superuser", superuser)
	return user, nil
}
