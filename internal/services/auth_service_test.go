package services

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/models"
)

func TestRegister(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())

	resp, err := svc.Register(&dto.RegisterRequest{
		Email:    "Seller@Example.com",
		Password: "supersecret",
		Name:     "Seller One",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if resp.AccessToken == "" || resp.SessionToken == "" {
		t.Error("expected both tokens in response")
	}
	if resp.User.Email != "seller@example.com" {
		t.Errorf("email = %s, want normalized seller@example.com", resp.User.Email)
	}
	if resp.User.EmailVerified {
		t.Error("fresh registration should not be email-verified")
	}

	var user models.User
	if err := db.First(&user, "email = ?", "seller@example.com").Error; err != nil {
		t.Fatalf("user row missing: %v", err)
	}
	if user.Password == "supersecret" {
		t.Error("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("supersecret")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}

	var tokens int64
	db.Model(&models.VerificationToken{}).Where("identifier = ?", "seller@example.com").Count(&tokens)
	if tokens != 1 {
		t.Errorf("verification tokens = %d, want 1", tokens)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())

	req := &dto.RegisterRequest{Email: "dup@example.com", Password: "supersecret"}
	if _, err := svc.Register(req); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if _, err := svc.Register(req); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("second Register() error = %v, want ErrEmailTaken", err)
	}
}

func TestRegisterShortPassword(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())

	_, err := svc.Register(&dto.RegisterRequest{Email: "a@b.com", Password: "short"})
	if !errors.Is(err, ErrWeakPassword) {
		t.Errorf("Register() error = %v, want ErrWeakPassword", err)
	}
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())

	if _, err := svc.Register(&dto.RegisterRequest{Email: "login@example.com", Password: "supersecret"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	resp, err := svc.Login(&dto.LoginRequest{Email: "login@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("expected access token")
	}

	if _, err := svc.Login(&dto.LoginRequest{Email: "login@example.com", Password: "wrong-password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(&dto.LoginRequest{Email: "nobody@example.com", Password: "supersecret"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())

	reg, err := svc.Register(&dto.RegisterRequest{Email: "rotate@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	refreshed, err := svc.Refresh(&dto.RefreshRequest{SessionToken: reg.SessionToken})
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if refreshed.SessionToken == reg.SessionToken {
		t.Error("refresh should mint a new session token")
	}

	// The presented token is revoked; replaying it must fail.
	if _, err := svc.Refresh(&dto.RefreshRequest{SessionToken: reg.SessionToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("replayed token error = %v, want ErrInvalidToken", err)
	}

	var live int64
	db.Model(&models.Session{}).Where("revoked = false").Count(&live)
	if live != 1 {
		t.Errorf("live sessions = %d, want 1", live)
	}
}

func TestRefreshExpiredSession(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())

	reg, err := svc.Register(&dto.RegisterRequest{Email: "expired@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	db.Model(&models.Session{}).
		Where("token_hash = ?", hashToken(reg.SessionToken)).
		Update("expires_at", time.Now().Add(-time.Minute))

	if _, err := svc.Refresh(&dto.RefreshRequest{SessionToken: reg.SessionToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token error = %v, want ErrInvalidToken", err)
	}
}

func TestLogout(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())

	reg, err := svc.Register(&dto.RegisterRequest{Email: "logout@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := svc.Logout(&dto.LogoutRequest{SessionToken: reg.SessionToken}); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.Refresh(&dto.RefreshRequest{SessionToken: reg.SessionToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh after logout error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyEmail(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())

	if _, err := svc.Register(&dto.RegisterRequest{Email: "verify@example.com", Password: "supersecret"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	var record models.VerificationToken
	if err := db.First(&record, "identifier = ?", "verify@example.com").Error; err != nil {
		t.Fatalf("verification token missing: %v", err)
	}

	if err := svc.VerifyEmail(record.Token); err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}

	var user models.User
	db.First(&user, "email = ?", "verify@example.com")
	if user.EmailVerifiedAt == nil {
		t.Error("email_verified_at not stamped")
	}

	// Single use.
	if err := svc.VerifyEmail(record.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reused token error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())

	if _, err := svc.Register(&dto.RegisterRequest{Email: "late@example.com", Password: "supersecret"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	var record models.VerificationToken
	db.First(&record, "identifier = ?", "late@example.com")
	db.Model(&models.VerificationToken{}).Where("id = ?", record.ID).
		Update("expires_at", time.Now().Add(-time.Hour))

	if err := svc.VerifyEmail(record.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token error = %v, want ErrInvalidToken", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())

	reg, err := svc.Register(&dto.RegisterRequest{Email: "reset@example.com", Password: "oldpassword"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := svc.RequestPasswordReset("reset@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}

	var record models.PasswordResetToken
	if err := db.First(&record, "user_id = ?", reg.User.ID).Error; err != nil {
		t.Fatalf("reset token missing: %v", err)
	}

	err = svc.ConfirmPasswordReset(&dto.PasswordResetConfirmRequest{
		Token:    record.Token,
		Password: "newpassword",
	})
	if err != nil {
		t.Fatalf("ConfirmPasswordReset() error = %v", err)
	}

	if _, err := svc.Login(&dto.LoginRequest{Email: "reset@example.com", Password: "oldpassword"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old password still accepted after reset")
	}
	if _, err := svc.Login(&dto.LoginRequest{Email: "reset@example.com", Password: "newpassword"}); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	// Every pre-reset session is revoked.
	if _, err := svc.Refresh(&dto.RefreshRequest{SessionToken: reg.SessionToken}); !errors.Is(err, ErrInvalidToken) {
		t.Error("pre-reset session survived the reset")
	}

	// The token is single use.
	err = svc.ConfirmPasswordReset(&dto.PasswordResetConfirmRequest{
		Token:    record.Token,
		Password: "anotherpassword",
	})
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reused reset token error = %v, want ErrInvalidToken", err)
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())

	// Unknown emails report success so the endpoint cannot probe accounts.
	if err := svc.RequestPasswordReset("ghost@example.com"); err != nil {
		t.Errorf("RequestPasswordReset() for unknown email error = %v, want nil", err)
	}

	var tokens int64
	db.Model(&models.PasswordResetToken{}).Count(&tokens)
	if tokens != 0 {
		t.Errorf("reset tokens = %d, want 0", tokens)
	}
}

func TestDeleteAccountRefusedWhileOwningShops(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())

	reg, err := svc.Register(&dto.RegisterRequest{Email: "owner@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	createTestShop(t, db, reg.User.ID)

	if err := svc.DeleteAccount(reg.User.ID, "supersecret"); !errors.Is(err, ErrOwnsShops) {
		t.Errorf("DeleteAccount() error = %v, want ErrOwnsShops", err)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())

	reg, err := svc.Register(&dto.RegisterRequest{Email: "gone@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Member of someone else's shop, not an owner.
	other := createTestUser(t, db, "other-owner@example.com")
	shop := createTestShop(t, db, other.ID)
	addTestMember(t, db, shop.ID, reg.User.ID, models.RolePacker)

	if err := svc.DeleteAccount(reg.User.ID, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if err := svc.DeleteAccount(reg.User.ID, "supersecret"); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}

	var sessions, memberships int64
	db.Model(&models.Session{}).Where("user_id = ?", reg.User.ID).Count(&sessions)
	db.Model(&models.ShopUser{}).Where("user_id = ?", reg.User.ID).Count(&memberships)
	if sessions != 0 {
		t.Errorf("sessions left = %d, want 0", sessions)
	}
	if memberships != 0 {
		t.Errorf("memberships left = %d, want 0", memberships)
	}

	var user models.User
	if err := db.First(&user, "id = ?", reg.User.ID).Error; err == nil {
		t.Error("user row still visible after delete")
	}
}
