package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"foodexchange/marketplace/schema"
	"foodexchange/utils"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func (s *UserService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/all", s.List)
	r.Get("/id/{userId}", s.GetById)
	r.Get("/username/{username}", s.GetByUsername)
	r.Post("/", s.Create)
	r.Get("/logingrole", s.LoginRole)

	return r
}

func (s *UserService) List(w http.ResponseWriter, r *http.Request) {
	var users []schema.User
	result := s.db.Preload("Roles").Find(&users)
	if result.Error != nil {
		slog.Error("sql error listing users", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	utils.WriteJsonResponse(w, users)
}

func (s *UserService) GetById(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.URLParamInt(r, "userId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	user, err := schema.GetUser(userId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			writeError(w, CodedError(fmt.Errorf("user with ID %d not found", userId), http.StatusNotFound))
			return
		}
		writeError(w, CodedError(err, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, user)
}

func (s *UserService) GetByUsername(w http.ResponseWriter, r *http.Request) {
	username, err := utils.URLParam(r, "username")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	user, err := schema.GetUserByUsername(username, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			writeError(w, CodedError(fmt.Errorf("user %v not found", username), http.StatusNotFound))
			return
		}
		writeError(w, CodedError(err, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, user)
}

type createUserRequest struct {
	Name         string `json:"name"`
	City         string `json:"city"`
	Address      string `json:"address"`
	Nic          string `json:"nic"`
	MobileNumber int64  `json:"mobileNumber"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	RoleIds      []int  `json:"roleIds"`
}

func (s *UserService) Create(w http.ResponseWriter, r *http.Request) {
	var params createUserRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Username == "" || params.Password == "" || params.Nic == "" {
		utils.WriteErrorResponse(w, errors.New("username, password, and nic are required"), http.StatusBadRequest)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteErrorResponse(w, fmt.Errorf("error hashing password: %w", err), http.StatusInternalServerError)
		return
	}

	user := schema.User{
		Name:         params.Name,
		City:         params.City,
		Address:      params.Address,
		Nic:          params.Nic,
		MobileNumber: params.MobileNumber,
		Username:     params.Username,
		Password:     hashed,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		var existing schema.User
		result := txn.Limit(1).Find(&existing, "username = ? OR nic = ?", params.Username, params.Nic)
		if result.Error != nil {
			slog.Error("sql error checking for duplicate user", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected != 0 {
			return CodedError(errors.New("a user with the given username or nic already exists"), http.StatusConflict)
		}

		if len(params.RoleIds) > 0 {
			result := txn.Find(&user.Roles, "id IN ?", params.RoleIds)
			if result.Error != nil {
				slog.Error("sql error loading roles", "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
			if len(user.Roles) != len(params.RoleIds) {
				return CodedError(errors.New("one or more of the given role ids do not exist"), http.StatusBadRequest)
			}
		}

		result = txn.Create(&user)
		if result.Error != nil {
			slog.Error("sql error creating user", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		slog.Error("error creating user", "username", params.Username, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("created user", "user_id", user.Id, "username", user.Username)
	utils.WriteJsonResponse(w, user)
}

// LoginRole returns the first role name of the given user. The caller is
// identified by an explicit userId query parameter.
func (s *UserService) LoginRole(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.QueryParamInt(r, "userId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	user, err := schema.GetUser(userId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			writeError(w, CodedError(fmt.Errorf("user with ID %d not found", userId), http.StatusNotFound))
			return
		}
		writeError(w, CodedError(err, http.StatusInternalServerError))
		return
	}

	if len(user.Roles) == 0 {
		writeError(w, CodedError(fmt.Errorf("user with ID %d has no assigned role", userId), http.StatusNotFound))
		return
	}

	utils.WriteJsonResponse(w, map[string]string{"role": user.Roles[0].Name})
}
