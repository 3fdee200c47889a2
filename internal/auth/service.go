package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingFields      = errors.New("missing required fields")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUserInactive       = errors.New("user not found or inactive")
)

// Tokens is a freshly issued pair.
type Tokens struct {
	Access  string
	Refresh string
}

type Service struct {
	repo   UserRepository
	tokens *TokenManager
}

func NewService(repo UserRepository, tokens *TokenManager) *Service {
	return &Service{repo: repo, tokens: tokens}
}

func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// REGISTER
func (s *Service) Register(ctx context.Context, name, email, password, role string) (*User, error) {
	name, email = strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if role == "" {
		role = RoleSupervisor
	}
	if !ValidRole(role) {
		return nil, ErrInvalidRole
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword(
		[]byte(password),
		bcrypt.DefaultCost,
	)
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:     name,
		Email:    email,
		Password: string(hashedPassword),
		Role:     role,
		IsActive: true,
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// EnsureAdmin registers the bootstrap admin unless the email is taken.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.Register(ctx, name, email, password, RoleAdmin)
	if errors.Is(err, ErrEmailExists) {
		return nil
	}
	return err
}

// LOGIN
func (s *Service) Login(ctx context.Context, email, password string) (*User, Tokens, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, Tokens{}, ErrInvalidCredentials
	}
	if err != nil {
		return nil, Tokens{}, err
	}

	err = bcrypt.CompareHashAndPassword(
		[]byte(user.Password),
		[]byte(password),
	)
	if err != nil || !user.IsActive {
		return nil, Tokens{}, ErrInvalidCredentials
	}

	tokens, err := s.issue(user)
	if err != nil {
		return nil, Tokens{}, err
	}
	return user, tokens, nil
}

// Refresh trades a refresh token for a new access token. The user is read
// again so a deactivated account loses access at the next refresh.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*User, string, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, "", err
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, "", ErrUserInactive
	}
	if err != nil {
		return nil, "", err
	}
	if !user.IsActive {
		return nil, "", ErrUserInactive
	}

	access, err := s.tokens.GenerateAccess(user)
	if err != nil {
		return nil, "", err
	}
	return user, access, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *Service) issue(user *User) (Tokens, error) {
	access, err := s.tokens.GenerateAccess(user)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := s.tokens.GenerateRefresh(user)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{Access: access, Refresh: refresh}, nil
}
