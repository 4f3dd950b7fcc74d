package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"foodexchange/marketplace/config"
	"foodexchange/marketplace/schema"
	"foodexchange/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	deliveriesCreatedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_deliveries_created",
		Help: "Deliveries created with an initial placeholder payment.",
	})
	statusUpdatesMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_delivery_status_updates",
		Help: "Status history rows appended to deliveries.",
	})
)

type DeliveryService struct {
	db       *gorm.DB
	settings config.Settings
}

func (s *DeliveryService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/getbypostid", s.GetByPostId)
	r.Get("/getbyid", s.GetById)
	r.Get("/getbypostid-with-status", s.GetWithStatus)
	r.Post("/create", s.Create)
	r.Post("/update-status", s.UpdateStatus)
	r.Get("/status-history/{deliveryId}", s.StatusHistory)
	r.Get("/current-status/{deliveryId}", s.CurrentStatus)
	r.Put("/update-all-details", s.UpdateAllDetails)

	return r
}

// deliveryResponse combines delivery fields with the derived current status
// and the full history so callers never have to walk relations themselves.
type deliveryResponse struct {
	Id                     int                            `json:"id"`
	TrackingNumber         string                         `json:"trackingNumber"`
	Location               string                         `json:"location"`
	CurrentPackageLocation string                         `json:"currentPackageLocation"`
	DeliveryCompany        string                         `json:"deliveryCompany"`
	Description            string                         `json:"description"`
	Payment                *schema.Payment                `json:"payment"`
	SharedPost             *schema.SharedPost             `json:"sharedPost"`
	CurrentStatus          *schema.DeliveryStatus         `json:"currentStatus"`
	StatusHistory          []schema.DeliveryStatusHistory `json:"statusHistory"`
}

// currentStatusRow returns the history row with the latest status change.
// Ties on the timestamp are broken by the highest row id so the result is
// deterministic even when two updates land in the same instant.
func currentStatusRow(db *gorm.DB, deliveryId int) (*schema.DeliveryStatusHistory, error) {
	var row schema.DeliveryStatusHistory
	result := db.Preload("DeliveryStatus").
		Where("delivery_id = ?", deliveryId).
		Order("status_date_change DESC, id DESC").
		First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("sql error loading current delivery status", "delivery_id", deliveryId, "error", result.Error)
		return nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}
	return &row, nil
}

// statusHistoryRows returns the full history newest-first.
func statusHistoryRows(db *gorm.DB, deliveryId int) ([]schema.DeliveryStatusHistory, error) {
	var rows []schema.DeliveryStatusHistory
	result := db.Preload("DeliveryStatus").
		Where("delivery_id = ?", deliveryId).
		Order("status_date_change DESC, id DESC").
		Find(&rows)
	if result.Error != nil {
		slog.Error("sql error loading delivery status history", "delivery_id", deliveryId, "error", result.Error)
		return nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}
	return rows, nil
}

func (s *DeliveryService) toResponse(db *gorm.DB, delivery schema.Delivery) (deliveryResponse, error) {
	res := deliveryResponse{
		Id:                     delivery.Id,
		TrackingNumber:         delivery.TrackingNumber,
		Location:               delivery.Location,
		CurrentPackageLocation: delivery.CurrentPackageLocation,
		DeliveryCompany:        delivery.DeliveryCompany,
		Description:            delivery.Description,
		Payment:                delivery.Payment,
		SharedPost:             delivery.SharedPost,
	}

	current, err := currentStatusRow(db, delivery.Id)
	if err != nil {
		return res, err
	}
	if current != nil {
		res.CurrentStatus = current.DeliveryStatus
	}

	history, err := statusHistoryRows(db, delivery.Id)
	if err != nil {
		return res, err
	}
	res.StatusHistory = history

	return res, nil
}

func (s *DeliveryService) deliveryForPost(db *gorm.DB, postId int) (schema.Delivery, error) {
	if err := checkSharedPostExists(db, postId); err != nil {
		return schema.Delivery{}, err
	}

	var delivery schema.Delivery
	result := db.Preload("Payment").Preload("Payment.PaymentType").Preload("SharedPost").
		First(&delivery, "sharedpost_id = ?", postId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return delivery, CodedError(fmt.Errorf("delivery not found for post ID %d", postId), http.StatusNotFound)
		}
		slog.Error("sql error loading delivery for post", "post_id", postId, "error", result.Error)
		return delivery, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}
	return delivery, nil
}

func (s *DeliveryService) GetByPostId(w http.ResponseWriter, r *http.Request) {
	postId, err := utils.QueryParamInt(r, "postId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	delivery, err := s.deliveryForPost(s.db, postId)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.toResponse(s.db, delivery)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.WriteJsonResponse(w, res)
}

func (s *DeliveryService) GetById(w http.ResponseWriter, r *http.Request) {
	deliveryId, err := utils.QueryParamInt(r, "deliveryid")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	delivery, err := schema.GetDelivery(deliveryId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrDeliveryNotFound) {
			writeError(w, CodedError(fmt.Errorf("delivery with ID %d not found", deliveryId), http.StatusNotFound))
			return
		}
		writeError(w, CodedError(err, http.StatusInternalServerError))
		return
	}

	res, err := s.toResponse(s.db, delivery)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.WriteJsonResponse(w, res)
}

type deliveryWithStatusResponse struct {
	Delivery      deliveryResponse               `json:"delivery"`
	CurrentStatus *schema.DeliveryStatusHistory  `json:"currentStatus"`
	StatusHistory []schema.DeliveryStatusHistory `json:"statusHistory"`
}

func (s *DeliveryService) GetWithStatus(w http.ResponseWriter, r *http.Request) {
	postId, err := utils.QueryParamInt(r, "postId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	delivery, err := s.deliveryForPost(s.db, postId)
	if err != nil {
		writeError(w, err)
		return
	}

	deliveryDto, err := s.toResponse(s.db, delivery)
	if err != nil {
		writeError(w, err)
		return
	}

	current, err := currentStatusRow(s.db, delivery.Id)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.WriteJsonResponse(w, deliveryWithStatusResponse{
		Delivery:      deliveryDto,
		CurrentStatus: current,
		StatusHistory: deliveryDto.StatusHistory,
	})
}

type createDeliveryRequest struct {
	TrackingNumber         string `json:"trackingNumber"`
	Location               string `json:"location"`
	CurrentPackageLocation string `json:"currentPackageLocation"`
	DeliveryCompany        string `json:"deliveryCompany"`
	Description            string `json:"description"`
}

// Create sets up a delivery for a shared post: a zero-amount placeholder
// payment, the delivery row, and the first status history entry are all
// written in one transaction so a failure leaves no partial state behind.
func (s *DeliveryService) Create(w http.ResponseWriter, r *http.Request) {
	postId, err := utils.QueryParamInt(r, "postId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	var params createDeliveryRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	var delivery schema.Delivery

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkSharedPostExists(txn, postId); err != nil {
			return err
		}

		var existing schema.Delivery
		result := txn.Limit(1).Find(&existing, "sharedpost_id = ?", postId)
		if result.Error != nil {
			slog.Error("sql error checking for existing delivery", "post_id", postId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected != 0 {
			return CodedError(fmt.Errorf("delivery already exists for post ID %d", postId), http.StatusConflict)
		}

		payment, err := s.createPlaceholderPayment(txn)
		if err != nil {
			return err
		}

		trackingNumber := params.TrackingNumber
		if trackingNumber == "" {
			trackingNumber = uuid.NewString()
		}

		delivery = schema.Delivery{
			TrackingNumber:         trackingNumber,
			Location:               params.Location,
			CurrentPackageLocation: params.CurrentPackageLocation,
			DeliveryCompany:        params.DeliveryCompany,
			Description:            params.Description,
			PaymentId:              payment.Id,
			SharedPostId:           postId,
		}

		result = txn.Create(&delivery)
		if result.Error != nil {
			slog.Error("sql error creating delivery", "post_id", postId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return s.appendStatus(txn, delivery.Id, s.settings.InitialDeliveryStatusId)
	})

	if err != nil {
		slog.Error("error creating delivery", "post_id", postId, "error", err)
		writeError(w, err)
		return
	}

	deliveriesCreatedMetric.Inc()
	slog.Info("created delivery", "delivery_id", delivery.Id, "post_id", postId)

	created, err := schema.GetDelivery(delivery.Id, s.db)
	if err != nil {
		writeError(w, CodedError(err, http.StatusInternalServerError))
		return
	}

	res, err := s.toResponse(s.db, created)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.WriteJsonResponse(w, res)
}

// createPlaceholderPayment makes the zero-amount payment every new delivery
// is attached to until real payment data arrives. The configured payment
// type row must exist, its absence is a deployment data problem.
func (s *DeliveryService) createPlaceholderPayment(txn *gorm.DB) (schema.Payment, error) {
	paymentType, err := schema.GetPaymentType(s.settings.PlaceholderPaymentTypeId, txn)
	if err != nil {
		if errors.Is(err, schema.ErrPaymentTypeNotFound) {
			slog.Error("placeholder payment type missing", "payment_type_id", s.settings.PlaceholderPaymentTypeId)
			return schema.Payment{}, CodedError(
				fmt.Errorf("failed to create initial payment for delivery: payment type with ID %d not found", s.settings.PlaceholderPaymentTypeId),
				http.StatusInternalServerError,
			)
		}
		return schema.Payment{}, CodedError(err, http.StatusInternalServerError)
	}

	payment := schema.Payment{
		Amount:        0.0,
		Status:        false,
		PaymentTypeId: paymentType.Id,
	}

	result := txn.Create(&payment)
	if result.Error != nil {
		slog.Error("sql error creating placeholder payment", "error", result.Error)
		return schema.Payment{}, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	return payment, nil
}

// appendStatus adds a history row for the delivery. History is append-only,
// existing rows are never touched.
func (s *DeliveryService) appendStatus(txn *gorm.DB, deliveryId, statusId int) error {
	status, err := schema.GetDeliveryStatus(statusId, txn)
	if err != nil {
		if errors.Is(err, schema.ErrDeliveryStatusNotFound) {
			return CodedError(fmt.Errorf("delivery status not found with ID: %d", statusId), http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}

	history := schema.DeliveryStatusHistory{
		StatusChangedAt:  time.Now().UTC(),
		DeliveryStatusId: status.Id,
		DeliveryId:       deliveryId,
	}

	result := txn.Create(&history)
	if result.Error != nil {
		slog.Error("sql error appending status history", "delivery_id", deliveryId, "status_id", statusId, "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	statusUpdatesMetric.Inc()
	return nil
}

type updateStatusRequest struct {
	DeliveryId *int `json:"deliveryId"`
	StatusId   *int `json:"statusId"`
}

func (s *DeliveryService) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var params updateStatusRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.DeliveryId == nil || params.StatusId == nil {
		utils.WriteErrorResponse(w, errors.New("DeliveryId and StatusId are required"), http.StatusBadRequest)
		return
	}

	slog.Info("updating delivery status", "delivery_id", *params.DeliveryId, "status_id", *params.StatusId)

	err := s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkDeliveryExists(txn, *params.DeliveryId); err != nil {
			return err
		}
		return s.appendStatus(txn, *params.DeliveryId, *params.StatusId)
	})

	if err != nil {
		slog.Error("error updating delivery status", "delivery_id", *params.DeliveryId, "error", err)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Status updated successfully"))
}

func (s *DeliveryService) StatusHistory(w http.ResponseWriter, r *http.Request) {
	deliveryId, err := utils.URLParamInt(r, "deliveryId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	history, err := statusHistoryRows(s.db, deliveryId)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.WriteJsonResponse(w, history)
}

func (s *DeliveryService) CurrentStatus(w http.ResponseWriter, r *http.Request) {
	deliveryId, err := utils.URLParamInt(r, "deliveryId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	current, err := currentStatusRow(s.db, deliveryId)
	if err != nil {
		writeError(w, err)
		return
	}
	if current == nil {
		utils.WriteErrorResponse(w, fmt.Errorf("no status history for delivery %d", deliveryId), http.StatusNotFound)
		return
	}

	utils.WriteJsonResponse(w, current)
}

// UpdateAllDetails applies a partial field bag to a delivery. Every
// recognized key is applied independently; a deliveryStatus key also
// appends a history row. The detail writes and the status append run in a
// single transaction, so a bad status id rolls the whole update back.
func (s *DeliveryService) UpdateAllDetails(w http.ResponseWriter, r *http.Request) {
	deliveryId, err := utils.QueryParamInt(r, "deliveryId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	var details map[string]interface{}
	if !utils.ParseRequestBody(w, r, &details) {
		return
	}

	response := map[string]interface{}{}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		var delivery schema.Delivery
		result := txn.First(&delivery, "id = ?", deliveryId)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return CodedError(fmt.Errorf("delivery not found for ID: %d", deliveryId), http.StatusNotFound)
			}
			slog.Error("sql error loading delivery for update", "delivery_id", deliveryId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		updates := map[string]interface{}{}
		fields := map[string]string{
			"trackingNumber":         "tracking_number",
			"location":               "location",
			"currentPackageLocation": "current_package_location",
			"deliveryCompany":        "delivery_company",
			"description":            "description",
		}
		for key, column := range fields {
			if value, ok := details[key]; ok {
				text, ok := value.(string)
				if !ok {
					return CodedError(fmt.Errorf("invalid data type in request: %v must be a string", key), http.StatusBadRequest)
				}
				updates[column] = text
			}
		}

		if len(updates) > 0 {
			result := txn.Model(&delivery).Updates(updates)
			if result.Error != nil {
				slog.Error("sql error updating delivery details", "delivery_id", deliveryId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		response["success"] = true
		response["deliveryId"] = delivery.Id

		if value, ok := details["deliveryStatus"]; ok {
			statusId, ok := value.(float64)
			if !ok {
				return CodedError(errors.New("invalid data type in request: deliveryStatus must be a number"), http.StatusBadRequest)
			}
			if err := s.appendStatus(txn, delivery.Id, int(statusId)); err != nil {
				return err
			}
			response["message"] = "Delivery updated successfully"
			response["statusUpdateMessage"] = "Status updated successfully"
		} else {
			response["message"] = "Delivery updated successfully (no status change)"
		}

		return nil
	})

	if err != nil {
		slog.Error("error updating delivery details", "delivery_id", deliveryId, "error", err)
		utils.WriteErrorResponse(w, err, GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, response)
}

// DeliveryStatusService exposes the status lookup table.
type DeliveryStatusService struct {
	db *gorm.DB
}

func (s *DeliveryStatusService) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", s.List)
	return r
}

func (s *DeliveryStatusService) List(w http.ResponseWriter, r *http.Request) {
	var statuses []schema.DeliveryStatus
	result := s.db.Find(&statuses)
	if result.Error != nil {
		slog.Error("sql error listing delivery statuses", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	utils.WriteJsonResponse(w, statuses)
}
