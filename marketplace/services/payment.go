package services

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
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

var paymentUploadsMetric = promauto.NewCounter(prometheus.CounterOpts{
	Name: "marketplace_payment_uploads",
	Help: "Payment records created through the upload endpoint.",
})

// mimeTypes maps the stored file extension to the content type used when
// serving the file back. Anything unrecognized is served as a raw binary.
var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"pdf":  "application/pdf",
}

func contentTypeForExtension(ext string) string {
	if mime, ok := mimeTypes[strings.ToLower(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}

type PaymentService struct {
	db       *gorm.DB
	settings config.Settings
}

func (s *PaymentService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/all", s.List)
	r.Post("/upload", s.Upload)
	r.Get("/file/{paymentId}", s.File)
	r.Get("/file/info/{paymentId}", s.FileInfo)
	r.Put("/updatepayment", s.Update)
	r.Get("/types", s.ListTypes)

	return r
}

func (s *PaymentService) List(w http.ResponseWriter, r *http.Request) {
	var payments []schema.Payment
	result := s.db.Preload("PaymentType").Find(&payments)
	if result.Error != nil {
		slog.Error("sql error listing payments", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	utils.WriteJsonResponse(w, payments)
}

func (s *PaymentService) ListTypes(w http.ResponseWriter, r *http.Request) {
	var types []schema.PaymentType
	result := s.db.Find(&types)
	if result.Error != nil {
		slog.Error("sql error listing payment types", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	utils.WriteJsonResponse(w, types)
}

// readPaymentFile pulls the optional file part out of a multipart request.
// Returns nil bytes and an empty extension when no file was sent.
func (s *PaymentService) readPaymentFile(r *http.Request) ([]byte, string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", nil
		}
		return nil, "", CodedError(fmt.Errorf("error reading file from request: %w", err), http.StatusBadRequest)
	}
	defer file.Close()

	if header.Size > s.settings.PaymentFileMaxBytes {
		return nil, "", CodedError(
			fmt.Errorf("file exceeds the maximum allowed size of %s", utils.FormatFileSize(s.settings.PaymentFileMaxBytes)),
			http.StatusBadRequest,
		)
	}

	data, err := io.ReadAll(io.LimitReader(file, s.settings.PaymentFileMaxBytes+1))
	if err != nil {
		return nil, "", CodedError(fmt.Errorf("error reading file contents: %w", err), http.StatusBadRequest)
	}
	if int64(len(data)) > s.settings.PaymentFileMaxBytes {
		return nil, "", CodedError(
			fmt.Errorf("file exceeds the maximum allowed size of %s", utils.FormatFileSize(s.settings.PaymentFileMaxBytes)),
			http.StatusBadRequest,
		)
	}

	ext := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	return data, strings.ToLower(ext), nil
}

func (s *PaymentService) validateNote(note string) error {
	if len(note) > s.settings.PaymentNoteMaxLen {
		return CodedError(fmt.Errorf("note must be at most %d characters", s.settings.PaymentNoteMaxLen), http.StatusBadRequest)
	}
	return nil
}

func (s *PaymentService) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.settings.PaymentFileMaxBytes); err != nil {
		utils.WriteErrorResponse(w, fmt.Errorf("error parsing multipart request: %w", err), http.StatusBadRequest)
		return
	}

	amount, err := strconv.ParseFloat(r.FormValue("amount"), 64)
	if err != nil {
		utils.WriteErrorResponse(w, errors.New("invalid amount format"), http.StatusBadRequest)
		return
	}

	note := r.FormValue("note")
	if err := s.validateNote(note); err != nil {
		writeError(w, err)
		return
	}

	paymentTypeId := s.settings.PlaceholderPaymentTypeId
	if value := r.FormValue("paymentTypeId"); value != "" {
		paymentTypeId, err = strconv.Atoi(value)
		if err != nil {
			utils.WriteErrorResponse(w, errors.New("invalid paymentTypeId format"), http.StatusBadRequest)
			return
		}
	}

	status := r.FormValue("status") == "true"

	data, ext, err := s.readPaymentFile(r)
	if err != nil {
		writeError(w, err)
		return
	}

	payment := schema.Payment{
		Amount:        amount,
		Note:          note,
		File:          data,
		Status:        status,
		FileType:      ext,
		PaymentTypeId: paymentTypeId,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := schema.GetPaymentType(paymentTypeId, txn); err != nil {
			if errors.Is(err, schema.ErrPaymentTypeNotFound) {
				return CodedError(fmt.Errorf("payment type with ID %d not found", paymentTypeId), http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		result := txn.Create(&payment)
		if result.Error != nil {
			slog.Error("sql error creating payment", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		slog.Error("error uploading payment", "error", err)
		writeError(w, err)
		return
	}

	paymentUploadsMetric.Inc()
	slog.Info("uploaded payment", "payment_id", payment.Id, "amount", amount, "has_file", len(data) > 0)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Payment uploaded successfully!"))
}

func (s *PaymentService) loadPayment(w http.ResponseWriter, r *http.Request) (schema.Payment, bool) {
	paymentId, err := utils.URLParamInt(r, "paymentId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return schema.Payment{}, false
	}

	payment, err := schema.GetPayment(paymentId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrPaymentNotFound) {
			writeError(w, CodedError(fmt.Errorf("payment with ID %d not found", paymentId), http.StatusNotFound))
			return schema.Payment{}, false
		}
		writeError(w, CodedError(err, http.StatusInternalServerError))
		return schema.Payment{}, false
	}

	return payment, true
}

func (s *PaymentService) File(w http.ResponseWriter, r *http.Request) {
	payment, ok := s.loadPayment(w, r)
	if !ok {
		return
	}

	if len(payment.File) == 0 {
		utils.WriteErrorResponse(w, fmt.Errorf("payment %d has no file attached", payment.Id), http.StatusNotFound)
		return
	}

	filename := fmt.Sprintf("payment-%d", payment.Id)
	if payment.FileType != "" {
		filename += "." + payment.FileType
	}

	w.Header().Set("Content-Type", contentTypeForExtension(payment.FileType))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payment.File)
}

type paymentFileInfo struct {
	PaymentId   int    `json:"paymentId"`
	HasFile     bool   `json:"hasFile"`
	FileType    string `json:"fileType"`
	ContentType string `json:"contentType"`
	FileSize    string `json:"fileSize"`
}

func (s *PaymentService) FileInfo(w http.ResponseWriter, r *http.Request) {
	payment, ok := s.loadPayment(w, r)
	if !ok {
		return
	}

	utils.WriteJsonResponse(w, paymentFileInfo{
		PaymentId:   payment.Id,
		HasFile:     len(payment.File) > 0,
		FileType:    payment.FileType,
		ContentType: contentTypeForExtension(payment.FileType),
		FileSize:    utils.FormatFileSize(int64(len(payment.File))),
	})
}

// Update applies a partial multipart update, any omitted field keeps its
// stored value. Sending a new file replaces the previous blob outright.
func (s *PaymentService) Update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.settings.PaymentFileMaxBytes); err != nil {
		utils.WriteErrorResponse(w, fmt.Errorf("error parsing multipart request: %w", err), http.StatusBadRequest)
		return
	}

	paymentId, err := strconv.Atoi(r.FormValue("paymentId"))
	if err != nil {
		utils.WriteErrorResponse(w, errors.New("paymentId is required"), http.StatusBadRequest)
		return
	}

	updates := map[string]interface{}{}

	if value := r.FormValue("amount"); value != "" {
		amount, err := strconv.ParseFloat(value, 64)
		if err != nil {
			utils.WriteErrorResponse(w, errors.New("invalid amount format"), http.StatusBadRequest)
			return
		}
		updates["amount"] = amount
	}

	if _, ok := r.MultipartForm.Value["note"]; ok {
		note := r.FormValue("note")
		if err := s.validateNote(note); err != nil {
			writeError(w, err)
			return
		}
		updates["note"] = note
	}

	if value := r.FormValue("status"); value != "" {
		updates["status"] = value == "true"
	}

	if value := r.FormValue("paymentTypeId"); value != "" {
		typeId, err := strconv.Atoi(value)
		if err != nil {
			utils.WriteErrorResponse(w, errors.New("invalid paymentTypeId format"), http.StatusBadRequest)
			return
		}
		updates["payment_type_id"] = typeId
	}

	data, ext, err := s.readPaymentFile(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if data != nil {
		updates["file"] = data
		updates["filetype"] = ext
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		payment, err := schema.GetPayment(paymentId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrPaymentNotFound) {
				return CodedError(fmt.Errorf("payment with ID %d not found", paymentId), http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if typeId, ok := updates["payment_type_id"].(int); ok {
			if _, err := schema.GetPaymentType(typeId, txn); err != nil {
				if errors.Is(err, schema.ErrPaymentTypeNotFound) {
					return CodedError(fmt.Errorf("payment type with ID %d not found", typeId), http.StatusNotFound)
				}
				return CodedError(err, http.StatusInternalServerError)
			}
		}

		if len(updates) == 0 {
			return nil
		}

		result := txn.Model(&payment).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error updating payment", "payment_id", paymentId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		slog.Error("error updating payment", "payment_id", paymentId, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("updated payment", "payment_id", paymentId, "fields", len(updates))

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Payment updated successfully"))
}
