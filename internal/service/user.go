package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/repository"
)

// UserService manages account registration, credentials and profile
// data. Deleting an account also deletes every task the account owns.
type UserService struct {
	repo   *repository.UserRepository
	hasher *auth.PasswordHasher
}

// NewUserService creates a new UserService.
func NewUserService(repo *repository.UserRepository, hasher *auth.PasswordHasher) *UserService {
	return &UserService{repo: repo, hasher: hasher}
}

// Register creates a new account with a hashed password. A taken email
// is reported as model.ErrEmailTaken.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.Register")
	defer span.End()

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &model.User{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     req.Email,
		Password:  hash,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	return user, nil
}

// Login verifies the credentials and returns the account. An unknown
// email and a wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.Login")
	defer span.End()

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(req.Password, user.Password) {
		return nil, model.ErrInvalidCredentials
	}
	return user, nil
}

// GetProfile returns the account for userID.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.GetProfile",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return s.repo.FindByID(ctx, userID)
}

// UpdateProfile applies the fields present in req to the account.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *model.UpdateProfileRequest) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.UpdateProfile",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	user.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the account password after verifying the
// current one.
func (s *UserService) ChangePassword(ctx context.Context, userID string, req *model.ChangePasswordRequest) error {
	ctx, span := tracer.Start(ctx, "UserService.ChangePassword",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(req.CurrentPassword, user.Password) {
		return model.ErrInvalidPassword
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	user.Password = hash
	user.UpdatedAt = time.Now()

	return s.repo.Save(ctx, user)
}

// DeleteAccount removes the account and all of its tasks after verifying
// the password.
func (s *UserService) DeleteAccount(ctx context.Context, userID, password string) error {
	ctx, span := tracer.Start(ctx, "UserService.DeleteAccount",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(password, user.Password) {
		return model.ErrInvalidPassword
	}

	return s.repo.Delete(ctx, user.ID)
}
