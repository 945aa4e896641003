package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sellerdesk/sellerdesk-backend/internal/config"
	"github.com/sellerdesk/sellerdesk-backend/internal/events"
	"github.com/sellerdesk/sellerdesk-backend/internal/models"
	"github.com/sellerdesk/sellerdesk-backend/internal/shopee"
)

// Test mirrors of the production tables. The real models default their ids
// with gen_random_uuid(), which sqlite cannot migrate; these lean twins map
// to the same table names and the services run unchanged against them.

type testUser struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email           string    `gorm:"uniqueIndex"`
	Password        string
	Name            string
	Image           string
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt
}

func (testUser) TableName() string { return "users" }

type testAccount struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID `gorm:"type:uuid"`
	Provider          string    `gorm:"uniqueIndex:idx_accounts_provider_account"`
	ProviderAccountID string    `gorm:"uniqueIndex:idx_accounts_provider_account"`
	AccessToken       string
	RefreshToken      string
	IDToken           string
	TokenType         string
	Scope             string
	ExpiresAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (testAccount) TableName() string { return "accounts" }

type testSession struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid"`
	TokenHash string    `gorm:"uniqueIndex"`
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

func (testSession) TableName() string { return "sessions" }

type testVerificationToken struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Identifier string
	Token      string `gorm:"uniqueIndex"`
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

func (testVerificationToken) TableName() string { return "verification_tokens" }

type testPasswordResetToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid"`
	Token     string    `gorm:"uniqueIndex"`
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (testPasswordResetToken) TableName() string { return "password_reset_tokens" }

type testShop struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name       string
	TaxID      string
	Address    string
	City       string
	Province   string
	PostalCode string
	Currency   string
	OwnerID    uuid.UUID `gorm:"type:uuid"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt
}

func (testShop) TableName() string { return "shops" }

type testShopUser struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ShopID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_shop_users_shop_user"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_shop_users_shop_user"`
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (testShopUser) TableName() string { return "shop_users" }

type testInvitation struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ShopID      uuid.UUID `gorm:"type:uuid"`
	Email       string
	Role        string
	Token       string `gorm:"uniqueIndex"`
	ExpiresAt   time.Time
	AcceptedAt  *time.Time
	InvitedByID uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (testInvitation) TableName() string { return "invitations" }

type testIntegration struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ShopID       uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	ShopeeShopID int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Status       string
	FailureCount int
	LastSyncAt   *time.Time
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (testIntegration) TableName() string { return "shopee_integrations" }

type testProduct struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	ShopID          uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_products_shop_external"`
	Platform        string
	Name            string
	SKU             string
	ShopeeProductID *int64 `gorm:"uniqueIndex:idx_products_shop_external"`
	Stock           int
	Price           decimal.Decimal `gorm:"type:decimal(12,2)"`
	Currency        string
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt
}

func (testProduct) TableName() string { return "products" }

type testOrder struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	ShopID          uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_orders_shop_external"`
	ShopeeOrderID   string    `gorm:"uniqueIndex:idx_orders_shop_external"`
	Platform        string
	Total           decimal.Decimal `gorm:"type:decimal(12,2)"`
	Currency        string
	Status          string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Items           string `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (testOrder) TableName() string { return "orders" }

type testWebhookPayload struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ShopID       uuid.UUID `gorm:"type:uuid"`
	Platform     string
	EventType    string
	Payload      string `gorm:"type:text"`
	Signature    string
	Status       string
	ErrorMessage string
	RetryCount   int
	ProcessedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (testWebhookPayload) TableName() string { return "webhook_payloads" }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&testUser{}, &testAccount{}, &testSession{},
		&testVerificationToken{}, &testPasswordResetToken{},
		&testShop{}, &testShopUser{}, &testInvitation{},
		&testIntegration{}, &testProduct{}, &testOrder{}, &testWebhookPayload{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		SessionExpiry:    168 * time.Hour,
		GoogleClientID:   "test-client.apps.googleusercontent.com",
		ShopeePartnerKey: "test-partner-key",
		ShopeePushURL:    "https://api.example.com/api/v1/webhooks/shopee",
	}
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{
		ID:    uuid.New(),
		Email: email,
		Name:  "Test User",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", email, err)
	}
	return &user
}

func createTestShop(t *testing.T, db *gorm.DB, ownerID uuid.UUID) *models.Shop {
	t.Helper()
	shop := models.Shop{
		ID:       uuid.New(),
		Name:     "Test Shop",
		Currency: "THB",
		OwnerID:  ownerID,
	}
	if err := db.Create(&shop).Error; err != nil {
		t.Fatalf("failed to seed shop: %v", err)
	}
	member := models.ShopUser{
		ID:     uuid.New(),
		ShopID: shop.ID,
		UserID: ownerID,
		Role:   models.RoleOwner,
	}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("failed to seed owner membership: %v", err)
	}
	return &shop
}

func addTestMember(t *testing.T, db *gorm.DB, shopID, userID uuid.UUID, role string) {
	t.Helper()
	member := models.ShopUser{
		ID:     uuid.New(),
		ShopID: shopID,
		UserID: userID,
		Role:   role,
	}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("failed to seed member: %v", err)
	}
}

// capturingPublisher records published events for assertions.
type capturingPublisher struct {
	published []events.Event
}

func (p *capturingPublisher) Publish(e events.Event) error {
	p.published = append(p.published, e)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) ofType(eventType string) []events.Event {
	var out []events.Event
	for _, e := range p.published {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakeDedup is an in-memory stand-in for the Redis dedup store.
type fakeDedup struct {
	seen map[string]bool
	err  error
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{seen: make(map[string]bool)}
}

func (f *fakeDedup) MarkWebhookSeen(_ context.Context, platform, deliveryID string, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	key := platform + ":" + deliveryID
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

// fakeFetcher stands in for the integration service's detail fetch.
type fakeFetcher struct {
	detail *shopee.OrderDetail
	err    error
	calls  int
}

func (f *fakeFetcher) FetchOrderDetail(uuid.UUID, string) (*shopee.OrderDetail, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}
