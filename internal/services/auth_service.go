package services

import (
	"context"
	"strings"
	"time"

	"wattschain/internal/config"
	"wattschain/internal/models"
	"wattschain/internal/repositories/interfaces"
	"wattschain/internal/utils"
	"wattschain/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, request *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, request *LoginRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
}

type RegisterRequest struct {
	FirstName    string `json:"first_name" binding:"required,min=2,max=50"`
	LastName     string `json:"last_name" binding:"required,min=2,max=50"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone"`
	Password     string `json:"password" binding:"required,min=8"`
	ReferralCode string `json:"referral_code"`
	IPAddress    string `json:"-"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

type TokenClaims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Refresh bool   `json:"refresh,omitempty"`
	jwt.RegisteredClaims
}

type authService struct {
	userRepo   interfaces.UserRepository
	walletRepo interfaces.WalletRepository
	mlmService MLMService
	security   *config.SecurityConfig
	logger     *logger.Logger
}

func NewAuthService(
	userRepo interfaces.UserRepository,
	walletRepo interfaces.WalletRepository,
	mlmService MLMService,
	security *config.SecurityConfig,
	logger *logger.Logger,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		mlmService: mlmService,
		security:   security,
		logger:     logger,
	}
}

// Register creates the account, its wallet and its tree position. The
// referral code is validated up front so a bad code fails the whole
// registration instead of silently producing a root node.
func (s *authService) Register(ctx context.Context, request *RegisterRequest) (*AuthResponse, error) {
	email := utils.NormalizeEmail(request.Email)
	if !utils.IsValidEmail(email) {
		return nil, utils.NewValidationError("email", "invalid email address")
	}
	if len(request.Password) < s.security.PasswordMinLength {
		return nil, utils.NewValidationError("password", "password is too short")
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, utils.NewConflictError("user", utils.ErrUserExists)
	} else if !utils.IsNotFound(err) {
		return nil, err
	}

	referralCode := strings.ToUpper(strings.TrimSpace(request.ReferralCode))
	var referredBy *primitive.ObjectID
	if referralCode != "" {
		validation, err := s.mlmService.ValidateReferralCode(ctx, referralCode)
		if err != nil {
			return nil, err
		}
		if !validation.Valid {
			return nil, utils.NewValidationError("referral_code", utils.ErrInvalidReferral)
		}
		referredBy = validation.ReferrerID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	ownCode, err := s.uniqueReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName:      strings.TrimSpace(request.FirstName),
		LastName:       strings.TrimSpace(request.LastName),
		Email:          email,
		Phone:          strings.TrimSpace(request.Phone),
		Password:       string(hash),
		Status:         models.UserStatusActive,
		KYCStatus:      models.KYCStatusNotSubmitted,
		ReferralCode:   ownCode,
		ReferredBy:     referredBy,
		RegistrationIP: request.IPAddress,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if _, err := s.walletRepo.GetOrCreate(ctx, user.ID); err != nil {
		s.logger.WithUserID(user.ID).WithError(err).Error("Failed to provision wallet")
	}

	if _, err := s.mlmService.InsertNode(ctx, user.ID, referralCode); err != nil {
		s.logger.WithUserID(user.ID).WithError(err).Error("Failed to place user in referral tree")
	}

	s.logger.WithUserID(user.ID).WithField("event", utils.EventUserRegistered).Info("User registered")

	return s.issueTokens(user)
}

func (s *authService) Login(ctx context.Context, request *LoginRequest) (*AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, utils.NormalizeEmail(request.Email))
	if err != nil {
		if utils.IsNotFound(err) {
			return nil, utils.NewValidationError("email", utils.ErrInvalidCredentials)
		}
		return nil, err
	}
	if user.IsBanned() {
		return nil, utils.NewValidationError("email", "account is suspended")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(request.Password)) != nil {
		return nil, utils.NewValidationError("password", utils.ErrInvalidCredentials)
	}

	now := time.Now()
	if err := s.userRepo.Update(ctx, user.ID, map[string]interface{}{"last_login_at": now}); err != nil {
		s.logger.WithUserID(user.ID).WithError(err).Warn("Failed to stamp last login")
	}
	user.LastLoginAt = &now

	return s.issueTokens(user)
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.parseToken(refreshToken)
	if err != nil || !claims.Refresh {
		return nil, utils.NewValidationError("refresh_token", utils.ErrInvalidToken)
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, utils.NewValidationError("refresh_token", utils.ErrInvalidToken)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsBanned() {
		return nil, utils.NewValidationError("refresh_token", "account is suspended")
	}

	return s.issueTokens(user)
}

func (s *authService) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	claims, err := s.parseToken(token)
	if err != nil || claims.Refresh {
		return nil, utils.NewValidationError("token", utils.ErrInvalidToken)
	}
	return claims, nil
}

func (s *authService) issueTokens(user *models.User) (*AuthResponse, error) {
	access, err := s.signToken(user, false, s.security.JWTAccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.signToken(user, true, s.security.JWTRefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.security.JWTAccessTokenTTL.Seconds()),
	}, nil
}

func (s *authService) signToken(user *models.User, refresh bool, ttl time.Duration) (string, error) {
	claims := &TokenClaims{
		UserID:  user.ID.Hex(),
		Email:   user.Email,
		Refresh: refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.security.JWTSecret))
}

func (s *authService) parseToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.security.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, utils.NewValidationError("token", utils.ErrInvalidToken)
	}
	return claims, nil
}

// uniqueReferralCode retries generation until the code does not collide. The
// keyspace makes collisions rare; the cap just bounds a pathological run.
func (s *authService) uniqueReferralCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code := utils.GenerateReferralCode()
		_, err := s.userRepo.GetByReferralCode(ctx, code)
		if utils.IsNotFound(err) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", utils.NewConflictError("referral code", "could not allocate a unique code")
}
