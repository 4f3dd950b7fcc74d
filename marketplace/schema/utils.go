package schema

import (
	"errors"
	"log/slog"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrSharedPostNotFound     = errors.New("shared post not found")
	ErrDeliveryNotFound       = errors.New("delivery not found")
	ErrDeliveryStatusNotFound = errors.New("delivery status not found")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrPaymentTypeNotFound    = errors.New("payment type not found")
	ErrDbAccessFailed         = errors.New("db access failed")
)

func GetUser(userId int, db *gorm.DB) (User, error) {
	var user User

	result := db.Preload("Roles").First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user", "user_id", userId, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetUserByUsername(username string, db *gorm.DB) (User, error) {
	var user User

	result := db.Preload("Roles").First(&user, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user by username", "username", username, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetSharedPost(postId int, db *gorm.DB, loadRelations bool) (SharedPost, error) {
	var post SharedPost

	query := db
	if loadRelations {
		query = query.Preload("BitDetails").Preload("Reviews").Preload("Media").Preload("CategoryStatus").Preload("User")
	}
	result := query.First(&post, "id = ?", postId)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return post, ErrSharedPostNotFound
		}
		slog.Error("sql error in get shared post", "post_id", postId, "error", result.Error)
		return post, ErrDbAccessFailed
	}

	return post, nil
}

func GetDelivery(deliveryId int, db *gorm.DB) (Delivery, error) {
	var delivery Delivery

	result := db.Preload("Payment").Preload("Payment.PaymentType").Preload("SharedPost").First(&delivery, "id = ?", deliveryId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return delivery, ErrDeliveryNotFound
		}
		slog.Error("sql error in get delivery", "delivery_id", deliveryId, "error", result.Error)
		return delivery, ErrDbAccessFailed
	}

	return delivery, nil
}

func GetDeliveryStatus(statusId int, db *gorm.DB) (DeliveryStatus, error) {
	var status DeliveryStatus

	result := db.First(&status, "id = ?", statusId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return status, ErrDeliveryStatusNotFound
		}
		slog.Error("sql error in get delivery status", "status_id", statusId, "error", result.Error)
		return status, ErrDbAccessFailed
	}

	return status, nil
}

func GetPayment(paymentId int, db *gorm.DB) (Payment, error) {
	var payment Payment

	result := db.Preload("PaymentType").First(&payment, "id = ?", paymentId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return payment, ErrPaymentNotFound
		}
		slog.Error("sql error in get payment", "payment_id", paymentId, "error", result.Error)
		return payment, ErrDbAccessFailed
	}

	return payment, nil
}

func GetPaymentType(typeId int, db *gorm.DB) (PaymentType, error) {
	var paymentType PaymentType

	result := db.First(&paymentType, "id = ?", typeId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return paymentType, ErrPaymentTypeNotFound
		}
		slog.Error("sql error in get payment type", "payment_type_id", typeId, "error", result.Error)
		return paymentType, ErrDbAccessFailed
	}

	return paymentType, nil
}
