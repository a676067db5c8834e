// Package directory resolves actors to their role and active status and
// manages registration.
package directory

import (
	"context"
	"net/mail"
	"strings"

	"wastetrack/backend/internal/apperr"
	"wastetrack/backend/internal/models"
	"wastetrack/backend/internal/storage"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Service is the actor directory.
type Service struct {
	Store storage.UserStore
}

func NewService(s storage.UserStore) *Service {
	return &Service{Store: s}
}

// Resolve returns the user or a NotFound error.
func (s *Service) Resolve(ctx context.Context, userID string) (*models.User, error) {
	return s.Store.GetUserByID(ctx, userID)
}

// RequireRole fails with Unauthorized when user does not have role.
func RequireRole(user *models.User, role models.Role) error {
	if user == nil || user.Role != role {
		return apperr.Unauthorized("action requires role %s", role)
	}
	return nil
}

// IsActive is advisory. Inactive actors can still complete transitions;
// they only disappear from role listings and cannot log in.
func IsActive(user *models.User) bool {
	return user != nil && user.IsActive
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     models.Role
}

func (in RegisterInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.InvalidArgument("name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return apperr.InvalidArgument("email is invalid")
	}
	if len(in.Password) < minPasswordLength {
		return apperr.InvalidArgument("password must be at least %d characters", minPasswordLength)
	}
	if !in.Role.Valid() {
		return apperr.InvalidArgument("role must be one of CITIZEN, WORKER, AGENT")
	}
	return nil
}

// Register creates an active user with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    in.Email,
		Password: string(hash),
		Phone:    in.Phone,
		Role:     in.Role,
		IsActive: true,
	}
	if err := s.Store.CreateUser(ctx, user); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("user with email %s already exists", in.Email)
		}
		return nil, err
	}

	log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	return user, nil
}

// Authenticate checks the credentials of an active user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.Store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	if !IsActive(user) {
		return nil, apperr.Unauthorized("account is deactivated")
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.Store.ListUsers(ctx, storage.UserFilter{})
}

// ListActiveByRole returns active users of role, e.g. the workers an agent
// can assign.
func (s *Service) ListActiveByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	return s.Store.ListUsers(ctx, storage.UserFilter{Role: role, ActiveOnly: true})
}

// SetActive toggles the active flag. Past assignments are not touched.
func (s *Service) SetActive(ctx context.Context, userID string, active bool) error {
	if err := s.Store.SetUserActive(ctx, userID, active); err != nil {
		return err
	}
	log.Info().Str("user_id", userID).Bool("active", active).Msg("user activity flag changed")
	return nil
}
