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

type BitDetailsService struct {
	db *gorm.DB
}

func (s *BitDetailsService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/all", s.List)
	r.Get("/post/{postId}", s.ListForPost)
	r.Post("/addbit", s.Add)

	return r
}

func (s *BitDetailsService) List(w http.ResponseWriter, r *http.Request) {
	var bits []schema.BitDetails
	result := s.db.Find(&bits)
	if result.Error != nil {
		slog.Error("sql error listing bit details", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	utils.WriteJsonResponse(w, bits)
}

func (s *BitDetailsService) ListForPost(w http.ResponseWriter, r *http.Request) {
	postId, err := utils.URLParamInt(r, "postId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	if err := checkSharedPostExists(s.db, postId); err != nil {
		writeError(w, err)
		return
	}

	var bits []schema.BitDetails
	result := s.db.Where("sharedpost_id = ?", postId).Order("id").Find(&bits)
	if result.Error != nil {
		slog.Error("sql error listing bit details for post", "post_id", postId, "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, bits)
}

type addBitRequest struct {
	BitRate          float64 `json:"bitRate"`
	NeedAmount       float64 `json:"needAmount"`
	ConfirmedState   string  `json:"confirmedState"`
	DeliveryLocation string  `json:"deliveryLocation"`
	UserId           int     `json:"userId"`
}

func (s *BitDetailsService) Add(w http.ResponseWriter, r *http.Request) {
	postId, err := utils.QueryParamInt(r, "postid")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	var params addBitRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.BitRate <= 0 || params.NeedAmount <= 0 {
		utils.WriteErrorResponse(w, errors.New("bitRate and needAmount must be positive"), http.StatusBadRequest)
		return
	}

	bit := schema.BitDetails{
		BitRate:          params.BitRate,
		NeedAmount:       params.NeedAmount,
		ConfirmedState:   params.ConfirmedState,
		DeliveryLocation: params.DeliveryLocation,
		SharedPostId:     postId,
		UserId:           params.UserId,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkSharedPostExists(txn, postId); err != nil {
			return err
		}
		if params.UserId != 0 {
			if err := checkUserExists(txn, params.UserId); err != nil {
				return err
			}
		}

		result := txn.Create(&bit)
		if result.Error != nil {
			slog.Error("sql error creating bit details", "post_id", postId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		slog.Error("error adding bit details", "post_id", postId, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("added bit details", "bit_id", bit.Id, "post_id", postId)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Bit details added successfully!"))
}
