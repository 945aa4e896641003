package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sellerdesk/sellerdesk-backend/internal/config"
	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/models"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired session token")
	ErrUserNotFound       = errors.New("user not found")
	ErrOwnsShops          = errors.New("account still owns shops, transfer or delete them first")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

const verificationTokenExpiry = 24 * time.Hour
const passwordResetExpiry = time.Hour

type AuthService struct {
	db         *gorm.DB
	cfg        *config.Config
	googleJWKS *GoogleJWKSClient
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{
		db:         db,
		cfg:        cfg,
		googleJWKS: NewGoogleJWKSClient(),
	}
}

func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, errors.New("email is required")
	}
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	var existing models.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:       uuid.New(),
		Email:    email,
		Password: string(hash),
		Name:     strings.TrimSpace(req.Name),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return s.issueVerificationToken(tx, email)
	})
	if err != nil {
		return nil, err
	}

	return s.generateTokenPair(&user)
}

func (s *AuthService) Login(req *dto.LoginRequest) (*dto.AuthResponse, error) {
	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(&user)
}

// GoogleSignIn verifies the id token, then links or creates the account.
// Linkage is keyed on (provider, provider_account_id); a first sign-in with
// a verified email joins an existing user with that email instead of
// creating a duplicate.
func (s *AuthService) GoogleSignIn(req *dto.GoogleSignInRequest) (*dto.AuthResponse, error) {
	if req.IDToken == "" {
		return nil, errors.New("id token is required")
	}

	claims, err := s.googleJWKS.VerifyToken(req.IDToken, s.cfg.GoogleClientID)
	if err != nil {
		slog.Error("Google token verification failed", "error", err)
		return nil, fmt.Errorf("failed to verify Google id token: %w", err)
	}

	email := normalizeEmail(claims.Email)
	if email == "" {
		return nil, errors.New("Google token carries no email")
	}

	var user models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var account models.Account
		err := tx.Where("provider = ? AND provider_account_id = ?", "google", claims.Sub).
			First(&account).Error

		switch {
		case err == nil:
			return tx.First(&user, "id = ?", account.UserID).Error

		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				if !claims.Verified() {
					return errors.New("Google email not verified")
				}
				now := time.Now()
				user = models.User{
					ID:              uuid.New(),
					Email:           email,
					Name:            claims.Name,
					Image:           claims.Picture,
					EmailVerifiedAt: &now,
				}
				if err := tx.Create(&user).Error; err != nil {
					return fmt.Errorf("failed to create user: %w", err)
				}
			}
			account = models.Account{
				ID:                uuid.New(),
				UserID:            user.ID,
				Provider:          "google",
				ProviderAccountID: claims.Sub,
				IDToken:           req.IDToken,
			}
			return tx.Create(&account).Error

		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	if user.EmailVerifiedAt == nil && claims.Verified() {
		now := time.Now()
		if err := s.db.Model(&user).Update("email_verified_at", now).Error; err == nil {
			user.EmailVerifiedAt = &now
		}
	}

	return s.generateTokenPair(&user)
}

func (s *AuthService) Refresh(req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	tokenHash := hashToken(req.SessionToken)

	var stored models.Session
	if err := s.db.Where("token_hash = ? AND revoked = false", tokenHash).First(&stored).Error; err != nil {
		return nil, ErrInvalidToken
	}

	if time.Now().After(stored.ExpiresAt) {
		s.db.Model(&stored).Update("revoked", true)
		return nil, ErrInvalidToken
	}

	s.db.Model(&stored).Update("revoked", true)

	var user models.User
	if err := s.db.First(&user, "id = ?", stored.UserID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	return s.generateTokenPair(&user)
}

func (s *AuthService) Logout(req *dto.LogoutRequest) error {
	tokenHash := hashToken(req.SessionToken)
	return s.db.Model(&models.Session{}).
		Where("token_hash = ?", tokenHash).
		Update("revoked", true).Error
}

func (s *AuthService) GetUser(userID uuid.UUID) (*dto.UserResponse, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	resp := userResponse(&user)
	return &resp, nil
}

// VerifyEmail consumes a verification token and stamps the user's
// email_verified_at. The token is single-use.
func (s *AuthService) VerifyEmail(token string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var record models.VerificationToken
		if err := tx.Where("token = ?", token).First(&record).Error; err != nil {
			return ErrInvalidToken
		}
		if time.Now().After(record.ExpiresAt) {
			tx.Delete(&record)
			return ErrInvalidToken
		}

		if err := tx.Model(&models.User{}).
			Where("email = ? AND email_verified_at IS NULL", record.Identifier).
			Update("email_verified_at", time.Now()).Error; err != nil {
			return err
		}
		return tx.Delete(&record).Error
	})
}

// RequestPasswordReset creates a single-use reset token. It reports success
// even for unknown emails so the endpoint cannot be used to probe accounts.
func (s *AuthService) RequestPasswordReset(email string) error {
	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil
	}

	token, err := randomHexToken()
	if err != nil {
		return err
	}

	record := models.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(passwordResetExpiry),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	slog.Info("Password reset token issued", "user_id", user.ID.String())
	return nil
}

// ConfirmPasswordReset consumes the token, replaces the password hash and
// revokes every live session of the user.
func (s *AuthService) ConfirmPasswordReset(req *dto.PasswordResetConfirmRequest) error {
	if len(req.Password) < 8 {
		return ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var record models.PasswordResetToken
		if err := tx.Where("token = ? AND used_at IS NULL", req.Token).First(&record).Error; err != nil {
			return ErrInvalidToken
		}
		if time.Now().After(record.ExpiresAt) {
			return ErrInvalidToken
		}

		if err := tx.Model(&record).Update("used_at", time.Now()).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", record.UserID).
			Update("password", string(hash)).Error; err != nil {
			return err
		}
		return tx.Model(&models.Session{}).Where("user_id = ?", record.UserID).
			Update("revoked", true).Error
	})
}

// DeleteAccount removes the user and everything hanging off them. It refuses
// while the user still owns shops; ownership must move or the shops go first.
func (s *AuthService) DeleteAccount(userID uuid.UUID, password string) error {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return ErrUserNotFound
	}

	if user.Password != "" {
		if password == "" {
			return errors.New("password is required")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
			return ErrInvalidCredentials
		}
	}

	var owned int64
	if err := s.db.Model(&models.Shop{}).Where("owner_id = ?", userID).Count(&owned).Error; err != nil {
		return err
	}
	if owned > 0 {
		return ErrOwnsShops
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		tx.Where("user_id = ?", userID).Delete(&models.Session{})
		tx.Where("user_id = ?", userID).Delete(&models.Account{})
		tx.Where("user_id = ?", userID).Delete(&models.PasswordResetToken{})
		tx.Where("user_id = ?", userID).Delete(&models.ShopUser{})
		tx.Where("identifier = ?", user.Email).Delete(&models.VerificationToken{})
		return tx.Delete(&user).Error
	})
}

func (s *AuthService) generateTokenPair(user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	sessionToken, err := s.generateSessionToken(user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		SessionToken: sessionToken,
		ExpiresIn:    int64(s.cfg.JWTAccessExpiry.Seconds()),
		User:         userResponse(user),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// generateSessionToken mints an opaque token, stores only its SHA-256 hash
// and hands the raw value to the client.
func (s *AuthService) generateSessionToken(user *models.User) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)

	record := models.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: time.Now().Add(s.cfg.SessionExpiry),
	}

	if err := s.db.Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return rawToken, nil
}

func (s *AuthService) issueVerificationToken(tx *gorm.DB, email string) error {
	token, err := randomHexToken()
	if err != nil {
		return err
	}

	record := models.VerificationToken{
		ID:         uuid.New(),
		Identifier: email,
		Token:      token,
		ExpiresAt:  time.Now().Add(verificationTokenExpiry),
	}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	slog.Info("Email verification token issued", "email", email)
	return nil
}

func userResponse(user *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Image:         user.Image,
		EmailVerified: user.EmailVerifiedAt != nil,
		CreatedAt:     user.CreatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomHexToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
