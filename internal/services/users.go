package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shortlist/internal/apierr"
	"shortlist/internal/logger"
	"shortlist/internal/models"
	"shortlist/internal/repos"
)

const MinPasswordLength = 6

var ErrInvalidCredentials = errors.New("invalid email or password")

// UserService owns accounts: sign-up, credential checks and roles.
type UserService struct {
	log            *logger.Logger
	repos          *repos.Repos
	bootstrapEmail string
	bcryptCost     int
}

func NewUserService(log *logger.Logger, r *repos.Repos, bootstrapPowerEmail string) *UserService {
	return &UserService{
		log:            log.With("service", "UserService"),
		repos:          r,
		bootstrapEmail: strings.ToLower(strings.TrimSpace(bootstrapPowerEmail)),
		bcryptCost:     bcrypt.DefaultCost,
	}
}

// Signup creates a secondary user, or a power user for the bootstrap email.
func (s *UserService) Signup(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, apierr.Validation(errors.New("a valid email is required"))
	}
	if len(password) < MinPasswordLength {
		return nil, apierr.Validation(fmt.Errorf("password must be at least %d characters", MinPasswordLength))
	}

	if _, err := s.repos.Users.GetByEmail(ctx, nil, email); err == nil {
		return nil, apierr.Conflict(errors.New("email already registered"))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.Upstream(fmt.Errorf("lookup user: %w", err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, apierr.Upstream(fmt.Errorf("hash password: %w", err))
	}

	role := models.RoleSecondary
	if s.bootstrapEmail != "" && email == s.bootstrapEmail {
		role = models.RolePower
	}
	user := &models.User{Email: email, Password: string(hash), Role: role}
	if err := s.repos.Users.Create(ctx, nil, user); err != nil {
		return nil, apierr.Upstream(fmt.Errorf("create user: %w", err))
	}
	s.log.Info("User registered", "user_id", user.ID, "role", role)
	return user, nil
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repos.Users.GetByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.Unauthorized(ErrInvalidCredentials)
		}
		return nil, apierr.Upstream(fmt.Errorf("lookup user: %w", err))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apierr.Unauthorized(ErrInvalidCredentials)
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repos.Users.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(errors.New("user not found"))
		}
		return nil, apierr.Upstream(fmt.Errorf("fetch user: %w", err))
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.repos.Users.List(ctx, nil)
	if err != nil {
		return nil, apierr.Upstream(fmt.Errorf("list users: %w", err))
	}
	return users, nil
}

// UpdateRole lets a power user change another account's role.
func (s *UserService) UpdateRole(ctx context.Context, actor *models.User, id uuid.UUID, role models.Role) (*models.User, error) {
	if !actor.IsPower() {
		return nil, apierr.Forbidden(errors.New("only power users can change roles"))
	}
	if !role.Valid() {
		return nil, apierr.Validation(fmt.Errorf("unknown role %q", role))
	}
	if err := s.repos.Users.UpdateRole(ctx, nil, id, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(errors.New("user not found"))
		}
		return nil, apierr.Upstream(fmt.Errorf("update role: %w", err))
	}
	s.log.Info("User role changed", "user_id", id, "role", role, "by", actor.ID)
	return s.Get(ctx, id)
}
