package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"foodexchange/marketplace/config"
	"foodexchange/marketplace/schema"
	"foodexchange/utils"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var reportQueriesMetric = promauto.NewCounter(prometheus.CounterOpts{
	Name: "marketplace_report_queries",
	Help: "User report and price matching queries served.",
})

// ReportService computes per-user financial aggregates and cross-references
// post titles against the latest stored price feed.
type ReportService struct {
	db       *gorm.DB
	settings config.Settings
	matcher  Matcher
}

func (s *ReportService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.UserReport)
	r.Get("/sharedpostComparsion", s.SharedPostComparison)
	r.Get("/recent-items", s.RecentItems)

	return r
}

// The aggregates are delegated to the database engine, same shape as the
// legacy reports: sum of rate x amount across confirmed bids, split by the
// post category, plus per-category post counts. The user table name must be
// quoted since it is reserved in postgres.
const (
	userProfitQuery = `SELECT SUM(bd.bitrate * bd.needamount) AS total
		FROM "user" u
		JOIN sharedpost sp ON u.id = sp.user_id
		JOIN bitdetails bd ON sp.id = bd.sharedpost_id
		JOIN categoreystatus cs ON cs.id = sp.categoreystatus_id
		WHERE cs.status = 'Selling post' AND u.username = ? AND bd.conformedstate = '1'
		GROUP BY u.id`

	userCostQuery = `SELECT SUM(bd.bitrate * bd.needamount) AS total
		FROM "user" u
		JOIN sharedpost sp ON u.id = sp.user_id
		JOIN bitdetails bd ON sp.id = bd.sharedpost_id
		JOIN categoreystatus cs ON cs.id = sp.categoreystatus_id
		WHERE cs.status = 'Buying post' AND u.username = ? AND bd.conformedstate = '1'
		GROUP BY u.id`

	postCountQuery = `SELECT COUNT(sp.id) AS total
		FROM sharedpost sp
		JOIN "user" u ON sp.user_id = u.id
		WHERE sp.categoreystatus_id = ? AND u.username = ?
		GROUP BY u.id`
)

func (s *ReportService) sumQuery(query string, args ...interface{}) (float64, error) {
	var row struct {
		Total float64
	}
	result := s.db.Raw(query, args...).Scan(&row)
	if result.Error != nil {
		slog.Error("sql error running report aggregate", "error", result.Error)
		return 0, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}
	// No rows means the user has no matching activity, which reads as zero.
	return row.Total, nil
}

func (s *ReportService) callerFromRequest(w http.ResponseWriter, r *http.Request) (schema.User, bool) {
	username, err := utils.QueryParam(r, "username")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return schema.User{}, false
	}

	user, err := schema.GetUserByUsername(username, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			writeError(w, CodedError(fmt.Errorf("user %v not found", username), http.StatusNotFound))
			return schema.User{}, false
		}
		writeError(w, CodedError(err, http.StatusInternalServerError))
		return schema.User{}, false
	}

	return user, true
}

func (s *ReportService) UserReport(w http.ResponseWriter, r *http.Request) {
	user, ok := s.callerFromRequest(w, r)
	if !ok {
		return
	}

	totalCost, err := s.sumQuery(userCostQuery, user.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	totalProfit, err := s.sumQuery(userProfitQuery, user.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	buyingCount, err := s.sumQuery(postCountQuery, schema.BuyingPostCategory, user.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	sellingCount, err := s.sumQuery(postCountQuery, schema.SellingPostCategory, user.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	reportQueriesMetric.Inc()

	utils.WriteJsonResponse(w, map[string]string{
		"total_cost":                strconv.FormatFloat(totalCost, 'f', -1, 64),
		"total_profit":              strconv.FormatFloat(totalProfit, 'f', -1, 64),
		"shared_buying_post_count":  strconv.Itoa(int(buyingCount)),
		"shared_selling_post_count": strconv.Itoa(int(sellingCount)),
	})
}

// distinctPostTitles returns the user's post titles, deduplicated but in
// first-posted order.
func (s *ReportService) distinctPostTitles(userId int) ([]string, error) {
	var posts []schema.SharedPost
	result := s.db.Where("user_id = ?", userId).Order("id").Find(&posts)
	if result.Error != nil {
		slog.Error("sql error listing shared posts for report", "user_id", userId, "error", result.Error)
		return nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	seen := map[string]bool{}
	titles := []string{}
	for _, post := range posts {
		if !seen[post.Title] {
			seen[post.Title] = true
			titles = append(titles, post.Title)
		}
	}
	return titles, nil
}

func (s *ReportService) SharedPostComparison(w http.ResponseWriter, r *http.Request) {
	user, ok := s.callerFromRequest(w, r)
	if !ok {
		return
	}

	titles, err := s.distinctPostTitles(user.Id)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.WriteJsonResponse(w, titles)
}

type recentItem struct {
	Id           int     `json:"id"`
	Name         string  `json:"name"`
	PriceChanges float64 `json:"priceChanges"`
	Category     string  `json:"category"`
}

type priceFeedDocument struct {
	Items []map[string]interface{} `json:"items"`
}

// feedValue reads a numeric field that the feed may encode as either a JSON
// number or a string.
func feedValue(item map[string]interface{}, key string) (float64, bool) {
	switch value := item[key].(type) {
	case float64:
		return value, true
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// priceDelta is the wholesale today-minus-yesterday change for one location.
// Missing or malformed price points read as no change.
func priceDelta(item map[string]interface{}, location string) float64 {
	today, ok := feedValue(item, "Wholesale-"+location+"-today")
	if !ok {
		return 0.0
	}
	yesterday, ok := feedValue(item, "Wholesale-"+location+"-yesterday")
	if !ok {
		return 0.0
	}
	return today - yesterday
}

func feedText(item map[string]interface{}, key string) string {
	if value, ok := item[key].(string); ok {
		return value
	}
	return ""
}

func (s *ReportService) isSeller(user schema.User) bool {
	for _, role := range user.Roles {
		if strings.EqualFold(role.Name, s.settings.SellerRoleName) {
			return true
		}
	}
	return false
}

// RecentItems matches the caller's post titles against the most recently
// uploaded price feed. Sellers get the larger of the two location deltas
// (best profit), buyers get the smaller (best savings). First feed match per
// title wins.
func (s *ReportService) RecentItems(w http.ResponseWriter, r *http.Request) {
	user, ok := s.callerFromRequest(w, r)
	if !ok {
		return
	}

	titles, err := s.distinctPostTitles(user.Id)
	if err != nil {
		writeError(w, err)
		return
	}

	var feed schema.PriceFeed
	result := s.db.Order("uploaddate DESC, id DESC").Limit(1).Find(&feed)
	if result.Error != nil {
		slog.Error("sql error loading latest price feed", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	if result.RowsAffected == 0 || len(feed.Report) == 0 {
		utils.WriteJsonResponse(w, []recentItem{})
		return
	}

	var document priceFeedDocument
	if err := json.Unmarshal(feed.Report, &document); err != nil {
		slog.Error("malformed price feed document", "price_feed_id", feed.Id, "error", err)
		writeError(w, CodedError(errors.New("stored price feed document is not valid json"), http.StatusInternalServerError))
		return
	}

	isSeller := s.isSeller(user)
	locations := s.settings.ReportLocations

	items := []recentItem{}
	for _, title := range titles {
		for _, feedItem := range document.Items {
			itemName := feedText(feedItem, "Item-name")
			if itemName == "" || !s.matcher.Match(title, itemName) {
				continue
			}

			first := priceDelta(feedItem, locations[0])
			second := priceDelta(feedItem, locations[1])

			best := first
			if isSeller {
				if second > best {
					best = second
				}
			} else {
				if second < best {
					best = second
				}
			}

			items = append(items, recentItem{
				Id:           len(items) + 1,
				Name:         itemName,
				PriceChanges: best,
				Category:     feedText(feedItem, "category"),
			})
			break
		}
	}

	reportQueriesMetric.Inc()
	utils.WriteJsonResponse(w, items)
}
