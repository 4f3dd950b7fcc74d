package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"foodexchange/marketplace/schema"
	"foodexchange/marketplace/storage"
	"foodexchange/utils"

	"gorm.io/gorm"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	utils.WriteErrorResponse(w, err, GetResponseCode(err))
}

func checkDeliveryExists(txn *gorm.DB, deliveryId int) error {
	if _, err := schema.GetDelivery(deliveryId, txn); err != nil {
		if errors.Is(err, schema.ErrDeliveryNotFound) {
			return CodedError(fmt.Errorf("delivery not found with ID: %d", deliveryId), http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkUserExists(txn *gorm.DB, userId int) error {
	if _, err := schema.GetUser(userId, txn); err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			return CodedError(fmt.Errorf("user not found with ID: %d", userId), http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkSharedPostExists(txn *gorm.DB, postId int) error {
	if _, err := schema.GetSharedPost(postId, txn, false); err != nil {
		if errors.Is(err, schema.ErrSharedPostNotFound) {
			return CodedError(fmt.Errorf("SharedPost with ID %d not found", postId), http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkDiskUsage(store storage.Storage) error {
	stats, err := store.Usage()
	if err != nil {
		slog.Error("unable to get disk usage from media storage", "error", err)
		return CodedError(errors.New("unable to get disk usage"), http.StatusInternalServerError)
	}
	oneMib := uint64(1024 * 1024)
	// Either 20% disk needs to be free or 20Gb (in case the disk is very large)
	threshold := min(stats.TotalBytes/5, 20*1024*oneMib)
	if stats.FreeBytes < threshold {
		used := (stats.TotalBytes - stats.FreeBytes) / oneMib
		total := stats.TotalBytes / oneMib
		delta := (threshold - stats.FreeBytes) / oneMib
		return CodedError(fmt.Errorf("insufficient disk space available, usage: %d/%d Mib, please clear %d Mib", used, total, delta), http.StatusInsufficientStorage)
	}
	return nil
}

func checkSufficientStorage(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			if err := checkDiskUsage(store); err != nil {
				slog.Error(err.Error())
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(handler)
	}
}
