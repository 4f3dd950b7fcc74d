package services

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"foodexchange/marketplace/schema"
	"foodexchange/utils"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// ShareStoryService handles community stories, short posts with a single
// optional image kept inline in the row.
type ShareStoryService struct {
	db *gorm.DB
}

func (s *ShareStoryService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/all", s.List)
	r.Post("/upload", s.Upload)
	r.Get("/image/{storyId}", s.Image)

	return r
}

func (s *ShareStoryService) List(w http.ResponseWriter, r *http.Request) {
	var stories []schema.ShareStory
	result := s.db.Order("createdateandtime DESC").Find(&stories)
	if result.Error != nil {
		slog.Error("sql error listing stories", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	utils.WriteJsonResponse(w, stories)
}

func (s *ShareStoryService) Upload(w http.ResponseWriter, r *http.Request) {
	const maxUploadBytes = 16 << 20

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.WriteErrorResponse(w, fmt.Errorf("error parsing multipart request: %w", err), http.StatusBadRequest)
		return
	}

	title := r.FormValue("title")
	if title == "" {
		utils.WriteErrorResponse(w, errors.New("title is required"), http.StatusBadRequest)
		return
	}

	userId, err := strconv.Atoi(r.FormValue("userId"))
	if err != nil {
		utils.WriteErrorResponse(w, errors.New("userId is required"), http.StatusBadRequest)
		return
	}

	var image []byte
	file, _, err := r.FormFile("image")
	if err == nil {
		image, err = io.ReadAll(file)
		file.Close()
		if err != nil {
			utils.WriteErrorResponse(w, fmt.Errorf("error reading image: %w", err), http.StatusBadRequest)
			return
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		utils.WriteErrorResponse(w, fmt.Errorf("error reading image from request: %w", err), http.StatusBadRequest)
		return
	}

	story := schema.ShareStory{
		Title:       title,
		Description: r.FormValue("description"),
		Image:       image,
		CreatedAt:   time.Now().UTC(),
		UserId:      userId,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkUserExists(txn, userId); err != nil {
			return err
		}

		result := txn.Create(&story)
		if result.Error != nil {
			slog.Error("sql error creating story", "user_id", userId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		slog.Error("error uploading story", "user_id", userId, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("uploaded story", "story_id", story.Id, "user_id", userId)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Story uploaded successfully!"))
}

func (s *ShareStoryService) Image(w http.ResponseWriter, r *http.Request) {
	storyId, err := utils.URLParamInt(r, "storyId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	var story schema.ShareStory
	result := s.db.First(&story, "id = ?", storyId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			utils.WriteErrorResponse(w, fmt.Errorf("story with ID %d not found", storyId), http.StatusNotFound)
			return
		}
		slog.Error("sql error loading story", "story_id", storyId, "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}

	if len(story.Image) == 0 {
		utils.WriteErrorResponse(w, fmt.Errorf("story %d has no image", storyId), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(story.Image)
}
