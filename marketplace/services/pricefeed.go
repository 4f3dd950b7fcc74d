package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"foodexchange/marketplace/schema"
	"foodexchange/utils"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// PriceFeedService stores uploaded wholesale price feed documents and
// serves the raw payloads back. Route aliases keep the legacy csv handling
// paths working.
type PriceFeedService struct {
	db *gorm.DB
}

func (s *PriceFeedService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.Latest)
	r.Get("/all", s.List)
	r.Post("/add", s.Add)

	return r
}

func (s *PriceFeedService) Latest(w http.ResponseWriter, r *http.Request) {
	var feed schema.PriceFeed
	result := s.db.Order("uploaddate DESC, id DESC").Limit(1).Find(&feed)
	if result.Error != nil {
		slog.Error("sql error loading latest price feed", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteErrorResponse(w, errors.New("no price feed has been uploaded"), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(feed.Report)
}

func (s *PriceFeedService) List(w http.ResponseWriter, r *http.Request) {
	var feeds []schema.PriceFeed
	result := s.db.Order("uploaddate DESC, id DESC").Find(&feeds)
	if result.Error != nil {
		slog.Error("sql error listing price feeds", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	utils.WriteJsonResponse(w, feeds)
}

type addPriceFeedRequest struct {
	FileName string          `json:"fileName"`
	Report   json.RawMessage `json:"report"`
}

// Add stores a new feed document with the upload time stamped server-side.
// The report payload must at least be valid json since the matcher will
// parse it later.
func (s *PriceFeedService) Add(w http.ResponseWriter, r *http.Request) {
	var params addPriceFeedRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if len(params.Report) == 0 || !json.Valid(params.Report) {
		utils.WriteErrorResponse(w, errors.New("report must be a valid json document"), http.StatusBadRequest)
		return
	}

	feed := schema.PriceFeed{
		FileName:   params.FileName,
		UploadedAt: time.Now().UTC(),
		Report:     params.Report,
	}

	result := s.db.Create(&feed)
	if result.Error != nil {
		slog.Error("sql error creating price feed", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}

	slog.Info("stored price feed", "price_feed_id", feed.Id, "file_name", feed.FileName)
	utils.WriteJsonResponse(w, feed)
}
