package tests

import (
	"encoding/json"
	"testing"

	"foodexchange/marketplace/schema"
)

func addPriceFeed(t *testing.T, c client, items []map[string]interface{}) {
	report, err := json.Marshal(map[string]interface{}{"items": items})
	if err != nil {
		t.Fatal(err)
	}

	err = c.Post("/pricefeed/add").
		Json(map[string]interface{}{"fileName": "wholesale.json", "report": json.RawMessage(report)}).
		Do(nil)
	if err != nil {
		t.Fatal(err)
	}
}

func tomatoFeedItem() map[string]interface{} {
	return map[string]interface{}{
		"Item-name":                  "Tomato",
		"category":                   "Vegetables",
		"Wholesale-Pettah-today":     "100",
		"Wholesale-Pettah-yesterday": "90",
		"Wholesale-Dambulla-today":   "80",
		"Wholesale-Dambulla-yesterday": "95",
	}
}

type recentItem struct {
	Id           int     `json:"id"`
	Name         string  `json:"name"`
	PriceChanges float64 `json:"priceChanges"`
	Category     string  `json:"category"`
}

func TestRecentItemsSellerTakesMaxDelta(t *testing.T) {
	env := setupTestEnv(t)

	seller := env.seedRole(t, "seller")
	user := env.seedUser(t, "amara", seller)
	env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)

	c := env.newClient()
	addPriceFeed(t, c, []map[string]interface{}{tomatoFeedItem()})

	var items []recentItem
	if err := c.Get("/userreport/recent-items?username=amara").Do(&items); err != nil {
		t.Fatal(err)
	}

	if len(items) != 1 {
		t.Fatalf("expected 1 matched item, got %d", len(items))
	}
	if items[0].Name != "Tomato" || items[0].Category != "Vegetables" {
		t.Fatalf("unexpected item: %+v", items[0])
	}
	// Pettah delta is 10, Dambulla is -15, a seller takes the max.
	if items[0].PriceChanges != 10 {
		t.Fatalf("seller should see delta 10, got %v", items[0].PriceChanges)
	}
}

func TestRecentItemsBuyerTakesMinDelta(t *testing.T) {
	env := setupTestEnv(t)

	buyer := env.seedRole(t, "buyer")
	user := env.seedUser(t, "kasun", buyer)
	env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)

	c := env.newClient()
	addPriceFeed(t, c, []map[string]interface{}{tomatoFeedItem()})

	var items []recentItem
	if err := c.Get("/userreport/recent-items?username=kasun").Do(&items); err != nil {
		t.Fatal(err)
	}

	if len(items) != 1 {
		t.Fatalf("expected 1 matched item, got %d", len(items))
	}
	if items[0].PriceChanges != -15 {
		t.Fatalf("buyer should see delta -15, got %v", items[0].PriceChanges)
	}
}

func TestRecentItemsNoFeed(t *testing.T) {
	env := setupTestEnv(t)

	user := env.seedUser(t, "amara")
	env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)

	c := env.newClient()

	var items []recentItem
	if err := c.Get("/userreport/recent-items?username=amara").Do(&items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty result without a feed, got %d items", len(items))
	}
}

func TestRecentItemsFirstMatchWins(t *testing.T) {
	env := setupTestEnv(t)

	seller := env.seedRole(t, "seller")
	user := env.seedUser(t, "amara", seller)
	env.seedPost(t, user.Id, "Tomato", schema.SellingPostCategory)

	second := tomatoFeedItem()
	second["Item-name"] = "Tomato Cherry"
	second["Wholesale-Pettah-today"] = "500"

	c := env.newClient()
	addPriceFeed(t, c, []map[string]interface{}{tomatoFeedItem(), second})

	var items []recentItem
	if err := c.Get("/userreport/recent-items?username=amara").Do(&items); err != nil {
		t.Fatal(err)
	}

	if len(items) != 1 || items[0].Name != "Tomato" {
		t.Fatalf("the first feed match should win, got %+v", items)
	}
}

func TestUserReportAggregates(t *testing.T) {
	env := setupTestEnv(t)

	user := env.seedUser(t, "amara")
	other := env.seedUser(t, "kasun")

	sellingPost := env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)
	buyingPost := env.seedPost(t, user.Id, "Need Carrots", schema.BuyingPostCategory)
	env.seedPost(t, user.Id, "More Tomatoes", schema.SellingPostCategory)

	// Confirmed bids count toward the aggregates, unconfirmed ones do not.
	env.seedBit(t, sellingPost.Id, other.Id, 10, 2, true)
	env.seedBit(t, sellingPost.Id, other.Id, 100, 5, false)
	env.seedBit(t, buyingPost.Id, other.Id, 7, 3, true)

	c := env.newClient()

	var report map[string]string
	if err := c.Get("/userreport/?username=amara").Do(&report); err != nil {
		t.Fatal(err)
	}

	if report["total_profit"] != "20" {
		t.Fatalf("expected total_profit 20, got %v", report["total_profit"])
	}
	if report["total_cost"] != "21" {
		t.Fatalf("expected total_cost 21, got %v", report["total_cost"])
	}
	if report["shared_selling_post_count"] != "2" {
		t.Fatalf("expected 2 selling posts, got %v", report["shared_selling_post_count"])
	}
	if report["shared_buying_post_count"] != "1" {
		t.Fatalf("expected 1 buying post, got %v", report["shared_buying_post_count"])
	}
}

func TestUserReportUnknownUser(t *testing.T) {
	env := setupTestEnv(t)
	c := env.newClient()

	w := c.Get("/userreport/?username=nobody").DoRaw()
	if w.Code != 404 {
		t.Fatalf("expected 404 for unknown user, got %d", w.Code)
	}

	w = c.Get("/userreport/").DoRaw()
	if w.Code != 400 {
		t.Fatalf("expected 400 when username is missing, got %d", w.Code)
	}
}

func TestSharedPostComparisonDistinctTitles(t *testing.T) {
	env := setupTestEnv(t)

	user := env.seedUser(t, "amara")
	env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)
	env.seedPost(t, user.Id, "Tomato Sale", schema.SellingPostCategory)
	env.seedPost(t, user.Id, "Need Carrots", schema.BuyingPostCategory)

	c := env.newClient()

	var titles []string
	if err := c.Get("/userreport/sharedpostComparsion?username=amara").Do(&titles); err != nil {
		t.Fatal(err)
	}

	if len(titles) != 2 || titles[0] != "Tomato Sale" || titles[1] != "Need Carrots" {
		t.Fatalf("expected deduplicated titles in post order, got %v", titles)
	}
}

func TestPriceFeedLatest(t *testing.T) {
	env := setupTestEnv(t)
	c := env.newClient()

	w := c.Get("/pricefeed/").DoRaw()
	if w.Code != 404 {
		t.Fatalf("expected 404 before any feed is uploaded, got %d", w.Code)
	}

	addPriceFeed(t, c, []map[string]interface{}{tomatoFeedItem()})

	var document struct {
		Items []map[string]interface{} `json:"items"`
	}
	if err := c.Get("/pricefeed/").Do(&document); err != nil {
		t.Fatal(err)
	}
	if len(document.Items) != 1 {
		t.Fatalf("expected 1 item in the latest feed, got %d", len(document.Items))
	}

	// The legacy alias serves the same payload.
	if err := c.Get("/csvfileHandeling/").Do(&document); err != nil {
		t.Fatal(err)
	}
	if len(document.Items) != 1 {
		t.Fatalf("expected 1 item via the legacy alias, got %d", len(document.Items))
	}
}
