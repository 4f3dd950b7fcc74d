package tests

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"foodexchange/marketplace/config"
	"foodexchange/marketplace/schema"
	"foodexchange/marketplace/services"
	"foodexchange/marketplace/storage"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	marketplace services.Marketplace
	api         chi.Router
	store       storage.Storage
	db          *gorm.DB
	settings    config.Settings
}

func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	err = db.AutoMigrate(
		&schema.User{}, &schema.Role{}, &schema.CategoryStatus{},
		&schema.SharedPost{}, &schema.PostMedia{}, &schema.BitDetails{}, &schema.Review{},
		&schema.Delivery{}, &schema.DeliveryStatus{}, &schema.DeliveryStatusHistory{},
		&schema.Payment{}, &schema.PaymentType{},
		&schema.ShareStory{}, &schema.PriceFeed{},
	)
	if err != nil {
		t.Fatal(err)
	}

	seedLookupTables(t, db)

	storagePath := filepath.Join(t.TempDir(), "storage")
	err = os.MkdirAll(storagePath, 0777)
	if err != nil {
		t.Fatalf("error creating storage directory: %v", err)
	}

	store := storage.NewSharedDisk(storagePath)
	settings := config.DefaultSettings()

	marketplace := services.NewMarketplace(db, store, settings)

	return &testEnv{
		marketplace: marketplace,
		api:         marketplace.Routes(),
		store:       store,
		db:          db,
		settings:    settings,
	}
}

func seedLookupTables(t *testing.T, db *gorm.DB) {
	categories := []schema.CategoryStatus{
		{Id: schema.SellingPostCategory, Status: schema.SellingPost},
		{Id: schema.BuyingPostCategory, Status: schema.BuyingPost},
	}
	statuses := []schema.DeliveryStatus{
		{Id: 1, Name: "Pending"},
		{Id: 2, Name: "Packed"},
		{Id: 3, Name: "Shipped"},
		{Id: 4, Name: "In Transit"},
		{Id: 5, Name: "Delivered"},
	}
	paymentTypes := []schema.PaymentType{
		{Id: 1, Name: "Cash"},
		{Id: 2, Name: "Card"},
		{Id: 3, Name: "Bank Transfer"},
		{Id: 4, Name: "Mobile Wallet"},
		{Id: 5, Name: "Pending"},
	}

	for _, category := range categories {
		if err := db.Create(&category).Error; err != nil {
			t.Fatal(err)
		}
	}
	for _, status := range statuses {
		if err := db.Create(&status).Error; err != nil {
			t.Fatal(err)
		}
	}
	for _, paymentType := range paymentTypes {
		if err := db.Create(&paymentType).Error; err != nil {
			t.Fatal(err)
		}
	}
}

func (e *testEnv) newClient() client {
	return client{api: e.api}
}

// Fixture helpers insert rows directly so tests only exercise the endpoint
// under test through the api.

func (e *testEnv) seedRole(t *testing.T, name string) schema.Role {
	role := schema.Role{Name: name}
	if err := e.db.Create(&role).Error; err != nil {
		t.Fatal(err)
	}
	return role
}

func (e *testEnv) seedUser(t *testing.T, username string, roles ...schema.Role) schema.User {
	user := schema.User{
		Name:         username,
		City:         "Colombo",
		Nic:          username + "-nic",
		MobileNumber: 771234567,
		Username:     username,
		Password:     []byte("not-a-real-hash"),
		Roles:        roles,
	}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatal(err)
	}
	return user
}

func (e *testEnv) seedPost(t *testing.T, userId int, title string, categoryId int) schema.SharedPost {
	post := schema.SharedPost{
		Title:            title,
		Description:      "description of " + title,
		Quantity:         "10kg",
		CreatedAt:        time.Now().UTC(),
		UserId:           userId,
		CategoryStatusId: categoryId,
	}
	if err := e.db.Create(&post).Error; err != nil {
		t.Fatal(err)
	}
	return post
}

func (e *testEnv) seedBit(t *testing.T, postId, userId int, rate, amount float64, confirmed bool) schema.BitDetails {
	state := "0"
	if confirmed {
		state = "1"
	}
	bit := schema.BitDetails{
		BitRate:        rate,
		NeedAmount:     amount,
		ConfirmedState: state,
		SharedPostId:   postId,
		UserId:         userId,
	}
	if err := e.db.Create(&bit).Error; err != nil {
		t.Fatal(err)
	}
	return bit
}
