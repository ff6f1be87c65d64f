package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"ameenhub/internal/auth"
	"ameenhub/internal/model"
	"ameenhub/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
	IsActive *bool  `json:"is_active"`
}

type UpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"omitempty,email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	IsActive *bool  `json:"is_active"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	IsActive  bool      `json:"is_active"`
	IsSystem  bool      `json:"is_system"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// UserService defines the interface for business logic related to staff users
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest, createdBy string) (*UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, search string, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, id string, req UpdateUserRequest, updatedBy string) (*UserResponse, error)
	DeleteUser(ctx context.Context, id string, deletedBy string) error
}

type userService struct {
	tx       repository.TransactionManager
	repo     repository.UserRepository
	tokens   repository.RefreshTokenRepository
	audit    repository.AuditRepository
	tokenMgr *auth.TokenManager
	notifier ChangeNotifier
}

// NewUserService returns a new instance of UserService
func NewUserService(
	tx repository.TransactionManager,
	repo repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	audit repository.AuditRepository,
	tokenMgr *auth.TokenManager,
	notifier ChangeNotifier,
) UserService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &userService{tx: tx, repo: repo, tokens: tokens, audit: audit, tokenMgr: tokenMgr, notifier: notifier}
}

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		Phone:     user.Phone,
		IsActive:  user.IsActive,
		IsSystem:  user.IsSystem,
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest, createdBy string) (*UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailRegex.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	actor, err := parseActor(createdBy)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &model.User{
		Username: strings.TrimSpace(req.Username),
		Email:    email,
		FullName: req.FullName,
		Phone:    req.Phone,
		Password: string(hashedPassword),
		IsActive: req.IsActive == nil || *req.IsActive,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureUnique(txCtx, user.Username, user.Email, uuid.Nil); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: username or email", ErrConflict)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionCreateUser, user.ID.String(), user.Username,
			map[string]any{"email": user.Email})
	})
	if err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthenticated)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is disabled", ErrUnauthenticated)
	}

	return s.issueTokens(ctx, user)
}

// RefreshToken rotates the refresh token: the presented one is consumed.
func (s *userService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	var res *TokenResponse
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		rt, err := s.tokens.FindValid(txCtx, req.RefreshToken)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: invalid or expired refresh token", ErrUnauthenticated)
			}
			return fmt.Errorf("failed to load refresh token: %w", err)
		}

		user, err := s.repo.GetByID(txCtx, rt.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
			}
			return fmt.Errorf("failed to load user: %w", err)
		}
		if !user.IsActive {
			return fmt.Errorf("%w: account is disabled", ErrUnauthenticated)
		}

		if err := s.tokens.Delete(txCtx, req.RefreshToken); err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}

		res, err = s.issueTokens(txCtx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokens.Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	access, expiresAt, err := s.tokenMgr.IssueAccessToken(user.ID.String(), user.Username)
	if err != nil {
		return nil, err
	}

	refresh, refreshExpiresAt, err := s.tokenMgr.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Create(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: refreshExpiresAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenResponse{
		Token:        access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	uid, err := parseID("user", id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, search string, page, limit int) ([]UserResponse, int64, error) {
	p := pageParams(page, limit)
	users, total, err := s.repo.List(ctx, strings.TrimSpace(search), p.Offset, p.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}

	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, req UpdateUserRequest, updatedBy string) (*UserResponse, error) {
	uid, err := parseID("user", id)
	if err != nil {
		return nil, err
	}
	actor, err := parseActor(updatedBy)
	if err != nil {
		return nil, err
	}

	var user *model.User
	activityChanged := false
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err = s.repo.LockByID(txCtx, uid)
		if err != nil {
			return notFoundOr(err, "user")
		}

		username := user.Username
		if req.Username != "" {
			username = strings.TrimSpace(req.Username)
		}
		email := user.Email
		if req.Email != "" {
			email = strings.ToLower(strings.TrimSpace(req.Email))
			if !emailRegex.MatchString(email) {
				return fmt.Errorf("%w: invalid email format", ErrInvalidInput)
			}
		}
		if err := s.ensureUnique(txCtx, username, email, user.ID); err != nil {
			return err
		}

		user.Username = username
		user.Email = email
		if req.FullName != "" {
			user.FullName = req.FullName
		}
		if req.Phone != "" {
			user.Phone = req.Phone
		}
		if req.IsActive != nil && *req.IsActive != user.IsActive {
			user.IsActive = *req.IsActive
			activityChanged = true
		}

		if err := s.repo.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if activityChanged && !user.IsActive {
			if err := s.tokens.DeleteByUser(txCtx, user.ID); err != nil {
				return fmt.Errorf("failed to revoke sessions: %w", err)
			}
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionUpdateUser, user.ID.String(), user.Username,
			map[string]any{"email": user.Email, "is_active": user.IsActive})
	})
	if err != nil {
		return nil, err
	}

	if activityChanged {
		s.notifier.PermissionsChanged(ScopeUser, uid.String())
	}
	return mapToResponse(user), nil
}

// DeleteUser soft deletes a user and revokes their refresh tokens.
func (s *userService) DeleteUser(ctx context.Context, id string, deletedBy string) error {
	uid, err := parseID("user", id)
	if err != nil {
		return err
	}
	actor, err := parseActor(deletedBy)
	if err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.repo.LockByID(txCtx, uid)
		if err != nil {
			return notFoundOr(err, "user")
		}
		if user.IsSystem {
			return fmt.Errorf("%w: cannot delete system user '%s'", ErrSystemProtected, user.Username)
		}
		if err := s.tokens.DeleteByUser(txCtx, uid); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		if err := s.repo.Delete(txCtx, uid); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionDeleteUser, uid.String(), user.Username, nil)
	})
	if err != nil {
		return err
	}

	s.notifier.PermissionsChanged(ScopeUser, uid.String())
	return nil
}

// ensureUnique rejects a username or email held by another user.
func (s *userService) ensureUnique(ctx context.Context, username, email string, self uuid.UUID) error {
	if existing, err := s.repo.GetByUsername(ctx, username); err == nil && existing.ID != self {
		return fmt.Errorf("%w: username", ErrConflict)
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check username: %w", err)
	}

	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing.ID != self {
		return fmt.Errorf("%w: email", ErrConflict)
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}
	return nil
}
