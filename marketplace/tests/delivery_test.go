package tests

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"foodexchange/marketplace/schema"
)

type deliveryStatus struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

type statusHistoryEntry struct {
	Id               int             `json:"id"`
	StatusDateChange time.Time       `json:"statusDateChange"`
	DeliveryStatusId int             `json:"deliveryStatusId"`
	DeliveryStatus   *deliveryStatus `json:"deliveryStatus"`
	DeliveryId       int             `json:"deliveryId"`
}

type deliveryPayment struct {
	Id            int     `json:"id"`
	Amount        float64 `json:"amount"`
	PaymentTypeId int     `json:"paymentTypeId"`
}

type deliveryResponse struct {
	Id                     int                  `json:"id"`
	TrackingNumber         string               `json:"trackingNumber"`
	Location               string               `json:"location"`
	CurrentPackageLocation string               `json:"currentPackageLocation"`
	DeliveryCompany        string               `json:"deliveryCompany"`
	Description            string               `json:"description"`
	Payment                *deliveryPayment     `json:"payment"`
	CurrentStatus          *deliveryStatus      `json:"currentStatus"`
	StatusHistory          []statusHistoryEntry `json:"statusHistory"`
}

func (e *testEnv) createDelivery(t *testing.T, postId int) deliveryResponse {
	c := e.newClient()

	var delivery deliveryResponse
	err := c.Post(fmt.Sprintf("/delivery/create?postId=%d", postId)).
		Json(map[string]string{
			"location":        "Colombo",
			"deliveryCompany": "QuickShip",
		}).
		Do(&delivery)
	if err != nil {
		t.Fatal(err)
	}

	return delivery
}

func TestCreateDelivery(t *testing.T) {
	env := setupTestEnv(t)

	user := env.seedUser(t, "amara")
	post := env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)

	delivery := env.createDelivery(t, post.Id)

	if delivery.Payment == nil {
		t.Fatal("delivery should have a placeholder payment")
	}
	if delivery.Payment.Amount != 0 {
		t.Fatalf("placeholder payment should have zero amount, got %v", delivery.Payment.Amount)
	}
	if delivery.Payment.PaymentTypeId != env.settings.PlaceholderPaymentTypeId {
		t.Fatalf("placeholder payment has wrong type %d", delivery.Payment.PaymentTypeId)
	}

	if len(delivery.StatusHistory) != 1 {
		t.Fatalf("new delivery should have exactly one history row, got %d", len(delivery.StatusHistory))
	}
	if delivery.CurrentStatus == nil || delivery.CurrentStatus.Id != env.settings.InitialDeliveryStatusId {
		t.Fatalf("new delivery should start at the initial status, got %+v", delivery.CurrentStatus)
	}

	if delivery.TrackingNumber == "" {
		t.Fatal("delivery should get a generated tracking number")
	}
}

func TestCreateDeliveryMissingPost(t *testing.T) {
	env := setupTestEnv(t)
	c := env.newClient()

	w := c.Post("/delivery/create?postId=99").Json(map[string]string{}).DoRaw()
	if w.Code != 404 {
		t.Fatalf("expected 404 for missing post, got %d", w.Code)
	}
}

func TestCreateDeliveryDuplicate(t *testing.T) {
	env := setupTestEnv(t)

	user := env.seedUser(t, "amara")
	post := env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)

	env.createDelivery(t, post.Id)

	c := env.newClient()
	w := c.Post(fmt.Sprintf("/delivery/create?postId=%d", post.Id)).Json(map[string]string{}).DoRaw()
	if w.Code != 409 {
		t.Fatalf("expected 409 for duplicate delivery, got %d", w.Code)
	}

	var count int64
	if err := env.db.Model(&schema.Delivery{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 delivery after duplicate create, got %d", count)
	}
}

func TestUpdateStatusAppendsHistory(t *testing.T) {
	env := setupTestEnv(t)

	user := env.seedUser(t, "amara")
	post := env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)
	delivery := env.createDelivery(t, post.Id)

	c := env.newClient()

	statusSequence := []int{2, 3, 2, 5}
	for _, statusId := range statusSequence {
		w := c.Post("/delivery/update-status").
			Json(map[string]int{"deliveryId": delivery.Id, "statusId": statusId}).
			DoRaw()
		if w.Code != 200 {
			t.Fatalf("status update failed with code %d: %v", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "Status updated successfully") {
			t.Fatalf("unexpected update response: %v", w.Body.String())
		}
	}

	var history []statusHistoryEntry
	err := c.Get(fmt.Sprintf("/delivery/status-history/%d", delivery.Id)).Do(&history)
	if err != nil {
		t.Fatal(err)
	}

	if len(history) != len(statusSequence)+1 {
		t.Fatalf("expected %d history rows, got %d", len(statusSequence)+1, len(history))
	}

	// History comes back newest-first.
	for i := 0; i+1 < len(history); i++ {
		if history[i].StatusDateChange.Before(history[i+1].StatusDateChange) {
			t.Fatal("history should be ordered newest-first")
		}
	}

	var current statusHistoryEntry
	err = c.Get(fmt.Sprintf("/delivery/current-status/%d", delivery.Id)).Do(&current)
	if err != nil {
		t.Fatal(err)
	}
	if current.DeliveryStatusId != 5 {
		t.Fatalf("current status should be the last appended, got %d", current.DeliveryStatusId)
	}
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	env := setupTestEnv(t)

	user := env.seedUser(t, "amara")
	post := env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)
	delivery := env.createDelivery(t, post.Id)

	c := env.newClient()
	w := c.Post("/delivery/update-status").
		Json(map[string]int{"deliveryId": delivery.Id, "statusId": 77}).
		DoRaw()
	if w.Code != 404 {
		t.Fatalf("expected 404 for unknown status, got %d", w.Code)
	}

	var count int64
	err := env.db.Model(&schema.DeliveryStatusHistory{}).Where("delivery_id = ?", delivery.Id).Count(&count).Error
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("failed update should not append a history row, found %d rows", count)
	}
}

func TestUpdateStatusMissingFields(t *testing.T) {
	env := setupTestEnv(t)
	c := env.newClient()

	w := c.Post("/delivery/update-status").Json(map[string]int{"deliveryId": 1}).DoRaw()
	if w.Code != 400 {
		t.Fatalf("expected 400 for missing statusId, got %d", w.Code)
	}
}

func TestCurrentStatusTiebreak(t *testing.T) {
	env := setupTestEnv(t)

	user := env.seedUser(t, "amara")
	post := env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)
	delivery := env.createDelivery(t, post.Id)

	// Two rows sharing the same timestamp, the higher id must win.
	at := time.Now().UTC().Add(time.Hour)
	rows := []schema.DeliveryStatusHistory{
		{StatusChangedAt: at, DeliveryStatusId: 2, DeliveryId: delivery.Id},
		{StatusChangedAt: at, DeliveryStatusId: 4, DeliveryId: delivery.Id},
	}
	for i := range rows {
		if err := env.db.Create(&rows[i]).Error; err != nil {
			t.Fatal(err)
		}
	}

	c := env.newClient()
	var current statusHistoryEntry
	err := c.Get(fmt.Sprintf("/delivery/current-status/%d", delivery.Id)).Do(&current)
	if err != nil {
		t.Fatal(err)
	}

	if current.Id != rows[1].Id || current.DeliveryStatusId != 4 {
		t.Fatalf("tie on timestamp should resolve to the highest id, got row %d status %d", current.Id, current.DeliveryStatusId)
	}
}

func TestCurrentStatusNoHistory(t *testing.T) {
	env := setupTestEnv(t)
	c := env.newClient()

	w := c.Get("/delivery/current-status/42").DoRaw()
	if w.Code != 404 {
		t.Fatalf("expected 404 for delivery with no history, got %d", w.Code)
	}
}

func TestUpdateAllDetailsPartial(t *testing.T) {
	env := setupTestEnv(t)

	user := env.seedUser(t, "amara")
	post := env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)
	delivery := env.createDelivery(t, post.Id)

	c := env.newClient()

	var response map[string]interface{}
	err := c.Put(fmt.Sprintf("/delivery/update-all-details?deliveryId=%d", delivery.Id)).
		Json(map[string]interface{}{"location": "Kandy"}).
		Do(&response)
	if err != nil {
		t.Fatal(err)
	}
	if response["success"] != true {
		t.Fatalf("expected success response, got %v", response)
	}

	var updated deliveryResponse
	err = c.Get(fmt.Sprintf("/delivery/getbyid?deliveryid=%d", delivery.Id)).Do(&updated)
	if err != nil {
		t.Fatal(err)
	}

	if updated.Location != "Kandy" {
		t.Fatalf("location should be updated, got %v", updated.Location)
	}
	if updated.DeliveryCompany != delivery.DeliveryCompany || updated.TrackingNumber != delivery.TrackingNumber {
		t.Fatal("fields not present in the update should be unchanged")
	}
	if len(updated.StatusHistory) != 1 {
		t.Fatalf("detail-only update should not append history, got %d rows", len(updated.StatusHistory))
	}
}

func TestUpdateAllDetailsWithStatus(t *testing.T) {
	env := setupTestEnv(t)

	user := env.seedUser(t, "amara")
	post := env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)
	delivery := env.createDelivery(t, post.Id)

	c := env.newClient()

	var response map[string]interface{}
	err := c.Put(fmt.Sprintf("/delivery/update-all-details?deliveryId=%d", delivery.Id)).
		Json(map[string]interface{}{"location": "Galle", "deliveryStatus": 3}).
		Do(&response)
	if err != nil {
		t.Fatal(err)
	}

	var updated deliveryResponse
	err = c.Get(fmt.Sprintf("/delivery/getbyid?deliveryid=%d", delivery.Id)).Do(&updated)
	if err != nil {
		t.Fatal(err)
	}

	if updated.Location != "Galle" {
		t.Fatalf("location should be updated, got %v", updated.Location)
	}
	if len(updated.StatusHistory) != 2 {
		t.Fatalf("expected 2 history rows after status update, got %d", len(updated.StatusHistory))
	}
	if updated.CurrentStatus == nil || updated.CurrentStatus.Id != 3 {
		t.Fatalf("current status should be 3, got %+v", updated.CurrentStatus)
	}
}

func TestUpdateAllDetailsRollsBackOnBadStatus(t *testing.T) {
	env := setupTestEnv(t)

	user := env.seedUser(t, "amara")
	post := env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)
	delivery := env.createDelivery(t, post.Id)

	c := env.newClient()

	w := c.Put(fmt.Sprintf("/delivery/update-all-details?deliveryId=%d", delivery.Id)).
		Json(map[string]interface{}{"location": "Galle", "deliveryStatus": 99}).
		DoRaw()
	if w.Code != 404 {
		t.Fatalf("expected 404 for unknown status, got %d", w.Code)
	}

	// The whole update runs in one transaction, so the detail change must
	// be rolled back along with the failed status append.
	var stored schema.Delivery
	if err := env.db.First(&stored, "id = ?", delivery.Id).Error; err != nil {
		t.Fatal(err)
	}
	if stored.Location != delivery.Location {
		t.Fatalf("failed status append should roll back detail updates, location is %v", stored.Location)
	}

	var count int64
	err := env.db.Model(&schema.DeliveryStatusHistory{}).Where("delivery_id = ?", delivery.Id).Count(&count).Error
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected history unchanged at 1 row, got %d", count)
	}
}

func TestGetDeliveryByPostId(t *testing.T) {
	env := setupTestEnv(t)

	user := env.seedUser(t, "amara")
	post := env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)
	created := env.createDelivery(t, post.Id)

	c := env.newClient()

	var delivery deliveryResponse
	err := c.Get(fmt.Sprintf("/delivery/getbypostid?postId=%d", post.Id)).Do(&delivery)
	if err != nil {
		t.Fatal(err)
	}
	if delivery.Id != created.Id {
		t.Fatalf("expected delivery %d, got %d", created.Id, delivery.Id)
	}

	otherPost := env.seedPost(t, user.Id, "Carrot Sale", schema.SellingPostCategory)
	w := c.Get(fmt.Sprintf("/delivery/getbypostid?postId=%d", otherPost.Id)).DoRaw()
	if w.Code != 404 {
		t.Fatalf("expected 404 for post without delivery, got %d", w.Code)
	}

	w = c.Get("/delivery/getbypostid?postId=999").DoRaw()
	if w.Code != 404 {
		t.Fatalf("expected 404 for missing post, got %d", w.Code)
	}
}

func TestGetDeliveryWithStatus(t *testing.T) {
	env := setupTestEnv(t)

	user := env.seedUser(t, "amara")
	post := env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)
	created := env.createDelivery(t, post.Id)

	c := env.newClient()

	w := c.Post("/delivery/update-status").
		Json(map[string]int{"deliveryId": created.Id, "statusId": 2}).
		DoRaw()
	if w.Code != 200 {
		t.Fatalf("status update failed: %v", w.Body.String())
	}

	var response struct {
		Delivery      deliveryResponse     `json:"delivery"`
		CurrentStatus *statusHistoryEntry  `json:"currentStatus"`
		StatusHistory []statusHistoryEntry `json:"statusHistory"`
	}
	err := c.Get(fmt.Sprintf("/delivery/getbypostid-with-status?postId=%d", post.Id)).Do(&response)
	if err != nil {
		t.Fatal(err)
	}

	if response.Delivery.Id != created.Id {
		t.Fatalf("expected delivery %d, got %d", created.Id, response.Delivery.Id)
	}
	if response.CurrentStatus == nil || response.CurrentStatus.DeliveryStatusId != 2 {
		t.Fatalf("expected current status 2, got %+v", response.CurrentStatus)
	}
	if len(response.StatusHistory) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(response.StatusHistory))
	}
}

func TestListDeliveryStatuses(t *testing.T) {
	env := setupTestEnv(t)
	c := env.newClient()

	var statuses []deliveryStatus
	err := c.Get("/deliveryStatus/").Do(&statuses)
	if err != nil {
		t.Fatal(err)
	}

	if len(statuses) != 5 {
		t.Fatalf("expected 5 seeded statuses, got %d", len(statuses))
	}
}
