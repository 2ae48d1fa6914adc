package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nochance19900208-source/Real-Estate/internal/subscriptions"
	"github.com/nochance19900208-source/Real-Estate/internal/users"
	pkgauth "github.com/nochance19900208-source/Real-Estate/pkg/auth"
	"github.com/nochance19900208-source/Real-Estate/pkg/config"
	pkgerrors "github.com/nochance19900208-source/Real-Estate/pkg/errors"
	"github.com/nochance19900208-source/Real-Estate/pkg/logger"
	"github.com/nochance19900208-source/Real-Estate/pkg/security"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateNameRequest struct {
	Name string `json:"name" validate:"required"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type RegisterResult struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

type LoginResult struct {
	AccessToken  string                      `json:"access_token"`
	TokenType    string                      `json:"token_type"`
	User         *users.DTO                  `json:"user"`
	Subscription *subscriptions.Subscription `json:"subscription"`
}

// EmailCheck is the availability report returned before registration.
type EmailCheck struct {
	Exists  bool   `json:"exists"`
	Message string `json:"message"`
	Valid   bool   `json:"valid"`
}

type userStore interface {
	Create(ctx context.Context, user *users.User) error
	GetByEmail(ctx context.Context, email string) (*users.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateName(ctx context.Context, email, name string) error
	UpdatePassword(ctx context.Context, email, hashed string) error
}

type subscriptionReader interface {
	Current(ctx context.Context, user *users.User) (*subscriptions.Subscription, error)
}

// Service owns account registration and credential checks.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
	PrepareAccount(ctx context.Context, req RegisterRequest) (*users.User, error)
	SaveAccount(ctx context.Context, user *users.User) error
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	CheckEmail(ctx context.Context, email string) (*EmailCheck, error)
	UpdateName(ctx context.Context, user *users.User, name string) error
	UpdatePassword(ctx context.Context, user *users.User, current, updated string) error
}

type ServiceParams struct {
	Users         userStore
	Subscriptions subscriptionReader
	JWT           config.JWTConfig
	Logger        *logger.Logger
	Now           func() time.Time
}

type service struct {
	users userStore
	subs  subscriptionReader
	jwt   config.JWTConfig
	logg  *logger.Logger
	now   func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	if p.Users == nil {
		return nil, fmt.Errorf("auth: user store is required")
	}
	if p.Subscriptions == nil {
		return nil, fmt.Errorf("auth: subscription reader is required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("auth: logger is required")
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &service{
		users: p.Users,
		subs:  p.Subscriptions,
		jwt:   p.JWT,
		logg:  p.Logger,
		now:   p.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	user, err := s.PrepareAccount(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.SaveAccount(ctx, user); err != nil {
		return nil, err
	}
	return &RegisterResult{
		Message: "Account created successfully! You can now log in.",
		UserID:  user.PublicID(),
	}, nil
}

// PrepareAccount validates a registration and builds the account document
// without persisting it. The signup-and-subscribe flow charges the card
// between prepare and save, so a declined payment leaves no account behind.
func (s *service) PrepareAccount(ctx context.Context, req RegisterRequest) (*users.User, error) {
	if len(req.Password) < 6 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Password must be at least 6 characters long")
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing account")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Email already registered")
	}

	hashed, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	return &users.User{
		Email:          users.NormalizeEmail(req.Email),
		Name:           req.Name,
		Role:           pkgauth.RoleUser,
		HashedPassword: hashed,
		IsActive:       true,
	}, nil
}

// SaveAccount inserts a prepared account. A unique-index race on email maps
// to the same conflict the pre-check reports.
func (s *service) SaveAccount(ctx context.Context, user *users.User) error {
	if err := s.users.Create(ctx, user); err != nil {
		if pkgerrors.IsDuplicateKey(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "Email already registered")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}
	return nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Incorrect email or password")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	if !security.VerifyPassword(req.Password, user.HashedPassword) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Incorrect email or password")
	}

	token, err := pkgauth.MintAccessToken(s.jwt, s.now(), pkgauth.AccessTokenPayload{
		Email: user.Email,
		Role:  user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	// An expired or cancelled subscription never blocks login; the record is
	// returned as-is so the client can offer renewal.
	sub, err := s.subs.Current(ctx, user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  token,
		TokenType:    "bearer",
		User:         user.DTO(),
		Subscription: sub,
	}, nil
}

func (s *service) CheckEmail(ctx context.Context, email string) (*EmailCheck, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Email is required")
	}
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return &EmailCheck{Exists: false, Message: "Invalid email format", Valid: false}, nil
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing account")
	}
	check := &EmailCheck{Exists: exists, Valid: true, Message: "Email available"}
	if exists {
		check.Message = "Email already registered"
	}
	return check, nil
}

func (s *service) UpdateName(ctx context.Context, user *users.User, name string) error {
	if err := s.users.UpdateName(ctx, user.Email, name); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update name")
	}
	return nil
}

func (s *service) UpdatePassword(ctx context.Context, user *users.User, current, updated string) error {
	if !security.VerifyPassword(current, user.HashedPassword) {
		return pkgerrors.New(pkgerrors.CodeValidation, "Current password is incorrect")
	}
	if len(updated) < 6 {
		return pkgerrors.New(pkgerrors.CodeValidation, "Password must be at least 6 characters long")
	}

	hashed, err := security.HashPassword(updated)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.Email, hashed); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	return nil
}
