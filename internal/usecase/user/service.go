package user

import (
	"context"
	"time"

	"lxcloud/internal/config"
	domainUser "lxcloud/internal/domain/user"
	"lxcloud/internal/logger"
	appErrors "lxcloud/pkg/errors"
	"lxcloud/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service handles operator accounts. The very first account registered
// becomes an administrator; everyone after that is a regular owner.
type Service struct {
	userRepo  domainUser.Repository
	jwtConfig *config.JWTConfig
}

func NewService(userRepo domainUser.Repository, jwtConfig *config.JWTConfig) *Service {
	return &Service{
		userRepo:  userRepo,
		jwtConfig: jwtConfig,
	}
}

func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*UserResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid registration data", err)
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", err.Error(), err)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	u := &domainUser.User{
		ID:           uuid.New(),
		Username:     utils.SanitizeString(req.Username),
		Email:        utils.SanitizeString(req.Email),
		PasswordHash: hash,
		IsAdmin:      count == 0,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	logger.Info("User registered",
		zap.String("username", u.Username),
		zap.Bool("is_admin", u.IsAdmin),
		zap.String("event", "user_registered"),
	)

	return ToUserResponse(u), nil
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Username and password are required", err)
	}

	u, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		// Same response as a bad password so usernames cannot be probed.
		return nil, appErrors.ErrInvalidCredentials
	}

	if !utils.CheckPassword(u.PasswordHash, req.Password) {
		logger.Warn("Login failed",
			zap.String("username", req.Username),
			zap.String("event", "login_failed"),
		)
		return nil, appErrors.ErrInvalidCredentials
	}

	expiry := time.Duration(s.jwtConfig.ExpiryHours) * time.Hour
	token, err := utils.GenerateToken(u.ID, u.Username, u.IsAdmin, s.jwtConfig.Secret, expiry)
	if err != nil {
		return nil, err
	}

	logger.Info("User logged in",
		zap.String("username", u.Username),
		zap.String("event", "user_login"),
	)

	return &LoginResponse{Token: token, User: ToUserResponse(u)}, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToUserResponse(u), nil
}
