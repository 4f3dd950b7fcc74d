package tests

import (
	"net/http/httptest"
	"testing"

	apiclient "foodexchange/client"
)

// These tests run the api behind a real http server so the client package is
// exercised over the wire rather than against the router directly.
func startServer(t *testing.T) (*testEnv, *apiclient.MarketplaceClient) {
	env := setupTestEnv(t)
	server := httptest.NewServer(env.api)
	t.Cleanup(server.Close)
	return env, apiclient.NewMarketplaceClient(server.URL)
}

func TestClientHealth(t *testing.T) {
	_, api := startServer(t)

	if err := api.Health(); err != nil {
		t.Fatal(err)
	}
}

func TestClientUserFlow(t *testing.T) {
	env, api := startServer(t)

	role := env.seedRole(t, "seller")

	created, err := api.CreateUser(apiclient.CreateUserRequest{
		Name:         "Sunil Perera",
		City:         "Kandy",
		Address:      "12 Temple Road",
		Nic:          "902345678V",
		MobileNumber: 771234567,
		Username:     "sunil",
		Password:     "secret-pw",
		RoleIds:      []int{role.Id},
	})
	if err != nil {
		t.Fatal(err)
	}
	if created.Id == 0 {
		t.Fatal("expected created user to have an id")
	}

	fetched, err := api.GetUserByUsername("sunil")
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Id != created.Id || fetched.City != "Kandy" {
		t.Fatalf("unexpected user: %+v", fetched)
	}
	if len(fetched.Roles) != 1 || fetched.Roles[0].Name != "seller" {
		t.Fatalf("expected seller role, got %+v", fetched.Roles)
	}

	roleName, err := api.LoginRole(created.Id)
	if err != nil {
		t.Fatal(err)
	}
	if roleName != "seller" {
		t.Fatalf("expected role 'seller', got %v", roleName)
	}
}

func TestClientPostAndBidFlow(t *testing.T) {
	env, api := startServer(t)

	user := env.seedUser(t, "vendor")

	msg, err := api.UploadPost(apiclient.UploadPostRequest{
		Title:            "Tomato",
		Description:      "fresh tomatoes",
		Quantity:         "25kg",
		UserId:           user.Id,
		CategoryStatusId: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Post uploaded successfully!" {
		t.Fatalf("unexpected response: %v", msg)
	}

	titles, err := api.SharedPostComparison("vendor")
	if err != nil {
		t.Fatal(err)
	}
	if len(titles) != 1 || titles[0] != "Tomato" {
		t.Fatalf("unexpected titles: %v", titles)
	}

	bidder := env.seedUser(t, "bidder")
	post := env.seedPost(t, user.Id, "Beans", 1)

	msg, err = api.AddBit(post.Id, apiclient.AddBitRequest{
		BitRate:          12.5,
		NeedAmount:       4,
		ConfirmedState:   "0",
		DeliveryLocation: "Galle",
		UserId:           bidder.Id,
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Bit details added successfully!" {
		t.Fatalf("unexpected response: %v", msg)
	}
}

func TestClientPostMediaRoundTrip(t *testing.T) {
	env, api := startServer(t)

	user := env.seedUser(t, "vendor")
	imageBytes := []byte("jpg-bytes-for-client-test")

	msg, err := api.UploadPostWithMedia(apiclient.UploadPostRequest{
		Title:            "Carrot",
		Quantity:         "5kg",
		UserId:           user.Id,
		CategoryStatusId: 1,
	}, apiclient.File{
		Field:       "files",
		Name:        "carrot.jpg",
		ContentType: "image/jpeg",
		Data:        imageBytes,
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Post with 1 media files uploaded successfully!" {
		t.Fatalf("unexpected response: %v", msg)
	}

	var postId int
	if err := env.db.Raw("SELECT id FROM sharedpost ORDER BY id DESC LIMIT 1").Scan(&postId).Error; err != nil {
		t.Fatal(err)
	}

	info, err := api.PostMediaInfo(postId)
	if err != nil {
		t.Fatal(err)
	}
	if info.TotalFiles != 1 || info.Files[0].FileName != "carrot.jpg" {
		t.Fatalf("unexpected media info: %+v", info)
	}

	data, err := api.PostMedia(postId, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(imageBytes) {
		t.Fatal("retrieved media does not match upload")
	}
}

func TestClientDeliveryFlow(t *testing.T) {
	env, api := startServer(t)

	user := env.seedUser(t, "vendor")
	post := env.seedPost(t, user.Id, "Onion", 1)

	delivery, err := api.CreateDelivery(post.Id, apiclient.CreateDeliveryRequest{
		Location:        "Colombo",
		DeliveryCompany: "Island Express",
	})
	if err != nil {
		t.Fatal(err)
	}
	if delivery.Id == 0 || delivery.TrackingNumber == "" {
		t.Fatalf("unexpected delivery: %+v", delivery)
	}
	if delivery.CurrentStatus == nil || delivery.CurrentStatus.Id != env.settings.InitialDeliveryStatusId {
		t.Fatalf("expected initial status, got %+v", delivery.CurrentStatus)
	}

	msg, err := api.UpdateDeliveryStatus(delivery.Id, 3)
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Status updated successfully" {
		t.Fatalf("unexpected response: %v", msg)
	}

	current, err := api.DeliveryCurrentStatus(delivery.Id)
	if err != nil {
		t.Fatal(err)
	}
	if current.DeliveryStatus == nil || current.DeliveryStatus.Id != 3 {
		t.Fatalf("expected current status 3, got %+v", current)
	}

	history, err := api.DeliveryStatusHistory(delivery.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}

	res, err := api.UpdateDeliveryDetails(delivery.Id, map[string]interface{}{
		"location":       "Kandy",
		"deliveryStatus": 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res["success"] != true {
		t.Fatalf("unexpected update response: %v", res)
	}

	updated, err := api.GetDeliveryByPostId(post.Id)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Location != "Kandy" {
		t.Fatalf("expected location update, got %v", updated.Location)
	}
	if updated.CurrentStatus == nil || updated.CurrentStatus.Id != 5 {
		t.Fatalf("expected current status 5, got %+v", updated.CurrentStatus)
	}
}

func TestClientPaymentUpload(t *testing.T) {
	_, api := startServer(t)

	msg, err := api.UploadPayment(apiclient.UploadPaymentRequest{
		Amount:        1500,
		Note:          "advance",
		PaymentTypeId: 2,
		Status:        true,
	}, apiclient.File{
		Field:       "file",
		Name:        "receipt.png",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Payment uploaded successfully!" {
		t.Fatalf("unexpected response: %v", msg)
	}

	info, err := api.PaymentFileInfo(1)
	if err != nil {
		t.Fatal(err)
	}
	if !info.HasFile || info.FileType != "png" {
		t.Fatalf("unexpected file info: %+v", info)
	}
}

func TestClientReports(t *testing.T) {
	env, api := startServer(t)

	role := env.seedRole(t, "seller")
	seller := env.seedUser(t, "farmer", role)
	buyer := env.seedUser(t, "shopper")

	post := env.seedPost(t, seller.Id, "Tomato", 1)
	env.seedBit(t, post.Id, buyer.Id, 10, 2, true)

	report, err := api.UserReport("farmer")
	if err != nil {
		t.Fatal(err)
	}
	if report["total_profit"] != "20" {
		t.Fatalf("unexpected report: %v", report)
	}

	err = api.AddPriceFeed(apiclient.AddPriceFeedRequest{
		FileName: "feed.json",
		Report: map[string]interface{}{
			"items": []map[string]interface{}{
				{
					"Item-name":                    "Tomato",
					"category":                     "Vegetables",
					"Wholesale-Pettah-today":       100.0,
					"Wholesale-Pettah-yesterday":   90.0,
					"Wholesale-Dambulla-today":     80.0,
					"Wholesale-Dambulla-yesterday": 95.0,
				},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	items, err := api.RecentItems("farmer")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].PriceChanges != 10 {
		t.Fatalf("unexpected recent items: %+v", items)
	}
}
