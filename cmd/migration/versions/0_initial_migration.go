package versions

import (
	"log"

	"foodexchange/marketplace/schema"

	"gorm.io/gorm"
)

/*
 * The legacy database was created by a JPA application, so its indexes and
 * constraints carry different names than the ones gorm generates. For
 * simplicity these migrations just delete the old indexes/constraints and
 * let gorm recreate them.
 */
func dropIndexes(model interface{}, txn *gorm.DB, indexes ...string) error {
	for _, idx := range indexes {
		if !txn.Migrator().HasIndex(model, idx) {
			continue
		}
		if err := txn.Migrator().DropIndex(model, idx); err != nil {
			return err
		}
	}
	return nil
}

func dropColumns(model interface{}, txn *gorm.DB, columns ...string) error {
	for _, column := range columns {
		if !txn.Migrator().HasColumn(model, column) {
			continue
		}
		if err := txn.Migrator().DropColumn(model, column); err != nil {
			return err
		}
	}
	return nil
}

func migrateUser(txn *gorm.DB) error {
	if err := dropIndexes(&schema.User{}, txn, "UK_user_nic", "UK_user_username"); err != nil {
		return err
	}

	// The legacy rows reference a community member profile that no longer
	// exists as a separate table.
	if err := dropColumns(&schema.User{}, txn, "community_member_id"); err != nil {
		return err
	}

	return txn.AutoMigrate(&schema.User{}, &schema.Role{})
}

// migrateSharedPost moves posts off the serialized media container column.
// Media files now live in the shared storage with one row of metadata per
// file, so the old blob column is dropped. The blobs themselves cannot be
// recovered into files here since the serialization format was owned by the
// old application, posts keep their data and lose only the inline media.
func migrateSharedPost(txn *gorm.DB) error {
	if err := dropColumns(&schema.SharedPost{}, txn, "media_container", "image"); err != nil {
		return err
	}

	if err := txn.AutoMigrate(&schema.SharedPost{}, &schema.PostMedia{}); err != nil {
		return err
	}

	return txn.AutoMigrate(&schema.BitDetails{}, &schema.Review{})
}

func migrateDelivery(txn *gorm.DB) error {
	if err := txn.AutoMigrate(&schema.Delivery{}, &schema.DeliveryStatus{}, &schema.DeliveryStatusHistory{}); err != nil {
		return err
	}

	return txn.AutoMigrate(&schema.Payment{}, &schema.PaymentType{})
}

// seedLookupTables fills the enumeration tables the application logic
// depends on. Inserts are skipped when a row with the id already exists so
// the migration can run against a populated legacy database.
func seedLookupTables(txn *gorm.DB) error {
	categories := []schema.CategoryStatus{
		{Id: schema.SellingPostCategory, Status: schema.SellingPost},
		{Id: schema.BuyingPostCategory, Status: schema.BuyingPost},
	}
	for _, category := range categories {
		result := txn.Where("id = ?", category.Id).FirstOrCreate(&category)
		if result.Error != nil {
			return result.Error
		}
	}

	statuses := []schema.DeliveryStatus{
		{Id: 1, Name: "Pending"},
		{Id: 2, Name: "Packed"},
		{Id: 3, Name: "Shipped"},
		{Id: 4, Name: "In Transit"},
		{Id: 5, Name: "Delivered"},
	}
	for _, status := range statuses {
		result := txn.Where("id = ?", status.Id).FirstOrCreate(&status)
		if result.Error != nil {
			return result.Error
		}
	}

	paymentTypes := []schema.PaymentType{
		{Id: 1, Name: "Cash"},
		{Id: 2, Name: "Card"},
		{Id: 3, Name: "Bank Transfer"},
		{Id: 4, Name: "Mobile Wallet"},
		{Id: 5, Name: "Pending"},
	}
	for _, paymentType := range paymentTypes {
		result := txn.Where("id = ?", paymentType.Id).FirstOrCreate(&paymentType)
		if result.Error != nil {
			return result.Error
		}
	}

	return nil
}

func Migration_0_initial_migration(txn *gorm.DB) error {
	log.Println("running migration 0_initial_migration")

	if err := migrateUser(txn); err != nil {
		return err
	}

	if err := migrateSharedPost(txn); err != nil {
		return err
	}

	if err := migrateDelivery(txn); err != nil {
		return err
	}

	if err := txn.AutoMigrate(&schema.CategoryStatus{}, &schema.ShareStory{}, &schema.PriceFeed{}); err != nil {
		return err
	}

	if err := seedLookupTables(txn); err != nil {
		return err
	}

	log.Println("migration 0_initial_migration complete")

	return nil
}
