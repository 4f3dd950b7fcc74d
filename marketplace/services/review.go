package services

import (
	"errors"
	"log/slog"
	"net/http"

	"foodexchange/marketplace/schema"
	"foodexchange/utils"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type ReviewService struct {
	db *gorm.DB
}

func (s *ReviewService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/all", s.List)
	r.Get("/post/{postId}", s.ListForPost)
	r.Post("/add", s.Add)

	return r
}

func (s *ReviewService) List(w http.ResponseWriter, r *http.Request) {
	var reviews []schema.Review
	result := s.db.Order("id").Find(&reviews)
	if result.Error != nil {
		slog.Error("sql error listing reviews", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, reviews)
}

func (s *ReviewService) ListForPost(w http.ResponseWriter, r *http.Request) {
	postId, err := utils.URLParamInt(r, "postId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	if err := checkSharedPostExists(s.db, postId); err != nil {
		writeError(w, err)
		return
	}

	var reviews []schema.Review
	result := s.db.Where("sharedpost_id = ?", postId).Order("id").Find(&reviews)
	if result.Error != nil {
		slog.Error("sql error listing reviews for post", "post_id", postId, "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, reviews)
}

type addReviewRequest struct {
	Comment string `json:"comment"`
	Rate    string `json:"rate"`
	PostId  int    `json:"postId"`
}

func (s *ReviewService) Add(w http.ResponseWriter, r *http.Request) {
	var params addReviewRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Comment == "" {
		utils.WriteErrorResponse(w, errors.New("comment is required"), http.StatusBadRequest)
		return
	}

	review := schema.Review{
		Comment:      params.Comment,
		Rate:         params.Rate,
		SharedPostId: params.PostId,
	}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkSharedPostExists(txn, params.PostId); err != nil {
			return err
		}

		result := txn.Create(&review)
		if result.Error != nil {
			slog.Error("sql error creating review", "post_id", params.PostId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		slog.Error("error adding review", "post_id", params.PostId, "error", err)
		writeError(w, err)
		return
	}

	utils.WriteJsonResponse(w, review)
}
