package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"foodexchange/marketplace/schema"
	"foodexchange/marketplace/storage"
	"foodexchange/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SharedPostService struct {
	db    *gorm.DB
	store storage.Storage
}

func (s *SharedPostService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/all", s.List)
	r.Get("/id/{postId}", s.GetById)
	r.Get("/user/{userId}", s.ListForUser)
	r.Post("/upload", s.Upload)
	r.With(checkSufficientStorage(s.store)).Post("/upload-media", s.UploadWithMedia)
	r.Get("/image/{postId}", s.FirstImage)
	r.Get("/media/{postId}/{index}", s.Media)
	r.Get("/{postId}/media-info", s.MediaInfo)

	return r
}

func (s *SharedPostService) List(w http.ResponseWriter, r *http.Request) {
	var posts []schema.SharedPost
	result := s.db.Preload("CategoryStatus").Preload("BitDetails").Preload("Reviews").Order("createdateandtime DESC").Find(&posts)
	if result.Error != nil {
		slog.Error("sql error listing shared posts", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	utils.WriteJsonResponse(w, posts)
}

func (s *SharedPostService) GetById(w http.ResponseWriter, r *http.Request) {
	postId, err := utils.URLParamInt(r, "postId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	post, err := schema.GetSharedPost(postId, s.db, true)
	if err != nil {
		if errors.Is(err, schema.ErrSharedPostNotFound) {
			writeError(w, CodedError(fmt.Errorf("SharedPost with ID %d not found", postId), http.StatusNotFound))
			return
		}
		writeError(w, CodedError(err, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, post)
}

func (s *SharedPostService) ListForUser(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.URLParamInt(r, "userId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	if err := checkUserExists(s.db, userId); err != nil {
		writeError(w, err)
		return
	}

	var posts []schema.SharedPost
	result := s.db.Preload("CategoryStatus").Where("user_id = ?", userId).Order("id").Find(&posts)
	if result.Error != nil {
		slog.Error("sql error listing user shared posts", "user_id", userId, "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, posts)
}

type uploadPostRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Quantity         string `json:"quantity"`
	Longitude        string `json:"longitude"`
	Latitude         string `json:"latitude"`
	UserId           int    `json:"userId"`
	CategoryStatusId int    `json:"categoryStatusId"`
}

func (s *SharedPostService) Upload(w http.ResponseWriter, r *http.Request) {
	var params uploadPostRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	post, err := s.createPost(params, nil)
	if err != nil {
		slog.Error("error uploading shared post", "error", err)
		writeError(w, err)
		return
	}

	slog.Info("uploaded shared post", "post_id", post.Id, "user_id", post.UserId)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Post uploaded successfully!"))
}

// mediaUpload is one incoming file staged for storage before the post row
// and its media rows are committed.
type mediaUpload struct {
	fileName    string
	contentType string
	kind        string
	data        []byte
}

func mediaKind(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	default:
		return ""
	}
}

// UploadWithMedia creates a post along with its attached media files. The
// file bytes go to the media storage and only the metadata rows go to the
// database, one row per file. Files with a content type that is neither
// image nor video are skipped, matching how the legacy uploader behaved.
func (s *SharedPostService) UploadWithMedia(w http.ResponseWriter, r *http.Request) {
	const maxUploadBytes = 128 << 20

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.WriteErrorResponse(w, fmt.Errorf("error parsing multipart request: %w", err), http.StatusBadRequest)
		return
	}

	userId, err := strconv.Atoi(r.FormValue("userId"))
	if err != nil {
		utils.WriteErrorResponse(w, errors.New("userId is required"), http.StatusBadRequest)
		return
	}

	categoryStatusId, err := strconv.Atoi(r.FormValue("categoryStatusId"))
	if err != nil {
		utils.WriteErrorResponse(w, errors.New("categoryStatusId is required"), http.StatusBadRequest)
		return
	}

	params := uploadPostRequest{
		Title:            r.FormValue("title"),
		Description:      r.FormValue("description"),
		Quantity:         r.FormValue("quantity"),
		Longitude:        r.FormValue("longitude"),
		Latitude:         r.FormValue("latitude"),
		UserId:           userId,
		CategoryStatusId: categoryStatusId,
	}

	var uploads []mediaUpload
	for _, header := range r.MultipartForm.File["files"] {
		kind := mediaKind(header.Header.Get("Content-Type"))
		if kind == "" {
			slog.Warn("skipping unsupported media type", "file", header.Filename, "content_type", header.Header.Get("Content-Type"))
			continue
		}

		file, err := header.Open()
		if err != nil {
			utils.WriteErrorResponse(w, fmt.Errorf("error reading file %v: %w", header.Filename, err), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			utils.WriteErrorResponse(w, fmt.Errorf("error reading file %v: %w", header.Filename, err), http.StatusBadRequest)
			return
		}

		uploads = append(uploads, mediaUpload{
			fileName:    header.Filename,
			contentType: header.Header.Get("Content-Type"),
			kind:        kind,
			data:        data,
		})
	}

	post, err := s.createPost(params, uploads)
	if err != nil {
		slog.Error("error uploading shared post with media", "error", err)
		writeError(w, err)
		return
	}

	slog.Info("uploaded shared post with media", "post_id", post.Id, "user_id", post.UserId, "files", len(uploads))

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(fmt.Sprintf("Post with %d media files uploaded successfully!", len(uploads))))
}

func (s *SharedPostService) createPost(params uploadPostRequest, uploads []mediaUpload) (schema.SharedPost, error) {
	post := schema.SharedPost{
		Title:            params.Title,
		Description:      params.Description,
		Quantity:         params.Quantity,
		Longitude:        params.Longitude,
		Latitude:         params.Latitude,
		CreatedAt:        time.Now().UTC(),
		UserId:           params.UserId,
		CategoryStatusId: params.CategoryStatusId,
	}

	var written []string

	err := s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkUserExists(txn, params.UserId); err != nil {
			return err
		}

		var category schema.CategoryStatus
		result := txn.First(&category, "id = ?", params.CategoryStatusId)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return CodedError(fmt.Errorf("category status with ID %d not found", params.CategoryStatusId), http.StatusBadRequest)
			}
			slog.Error("sql error loading category status", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if result := txn.Create(&post); result.Error != nil {
			slog.Error("sql error creating shared post", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		for position, upload := range uploads {
			storedName := uuid.NewString() + strings.ToLower(filepath.Ext(upload.fileName))
			path := storage.MediaPath(post.Id, storedName)

			if err := s.store.Write(path, bytes.NewReader(upload.data)); err != nil {
				slog.Error("error writing media file to storage", "post_id", post.Id, "file", upload.fileName, "error", err)
				return CodedError(errors.New("error saving media file"), http.StatusInternalServerError)
			}
			written = append(written, path)

			media := schema.PostMedia{
				SharedPostId: post.Id,
				Position:     position,
				FileName:     upload.fileName,
				ContentType:  upload.contentType,
				Kind:         upload.kind,
				FileSize:     int64(len(upload.data)),
				StoragePath:  path,
			}
			if result := txn.Create(&media); result.Error != nil {
				slog.Error("sql error creating post media row", "post_id", post.Id, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		return nil
	})

	if err != nil {
		// The db rows roll back on their own, stored files have to be
		// cleaned up explicitly.
		for _, path := range written {
			if deleteErr := s.store.Delete(path); deleteErr != nil {
				slog.Error("error cleaning up media file after failed upload", "path", path, "error", deleteErr)
			}
		}
		return schema.SharedPost{}, err
	}

	return post, nil
}

func (s *SharedPostService) mediaRow(w http.ResponseWriter, postId, index int) (schema.PostMedia, bool) {
	if err := checkSharedPostExists(s.db, postId); err != nil {
		writeError(w, err)
		return schema.PostMedia{}, false
	}

	var media schema.PostMedia
	result := s.db.First(&media, "shared_post_id = ? AND position = ?", postId, index)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			utils.WriteErrorResponse(w, fmt.Errorf("post %d has no media file at index %d", postId, index), http.StatusNotFound)
			return schema.PostMedia{}, false
		}
		slog.Error("sql error loading post media", "post_id", postId, "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return schema.PostMedia{}, false
	}

	return media, true
}

func (s *SharedPostService) serveMedia(w http.ResponseWriter, media schema.PostMedia) {
	file, err := s.store.Read(media.StoragePath)
	if err != nil {
		slog.Error("error reading media file from storage", "path", media.StoragePath, "error", err)
		utils.WriteErrorResponse(w, errors.New("error reading media file"), http.StatusInternalServerError)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", media.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", media.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, file); err != nil {
		slog.Error("error streaming media file", "path", media.StoragePath, "error", err)
	}
}

// FirstImage keeps the legacy single-image endpoint working by serving the
// media file at index 0.
func (s *SharedPostService) FirstImage(w http.ResponseWriter, r *http.Request) {
	postId, err := utils.URLParamInt(r, "postId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	media, ok := s.mediaRow(w, postId, 0)
	if !ok {
		return
	}
	s.serveMedia(w, media)
}

func (s *SharedPostService) Media(w http.ResponseWriter, r *http.Request) {
	postId, err := utils.URLParamInt(r, "postId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	index, err := utils.URLParamInt(r, "index")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	media, ok := s.mediaRow(w, postId, index)
	if !ok {
		return
	}
	s.serveMedia(w, media)
}

type mediaFileInfo struct {
	Index       int    `json:"index"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	MediaType   string `json:"mediaType"`
	FileSize    int64  `json:"fileSize"`
	Url         string `json:"url"`
}

type mediaInfo struct {
	TotalFiles int             `json:"totalFiles"`
	Files      []mediaFileInfo `json:"files"`
}

func (s *SharedPostService) MediaInfo(w http.ResponseWriter, r *http.Request) {
	postId, err := utils.URLParamInt(r, "postId")
	if err != nil {
		utils.WriteErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	if err := checkSharedPostExists(s.db, postId); err != nil {
		writeError(w, err)
		return
	}

	var rows []schema.PostMedia
	result := s.db.Where("shared_post_id = ?", postId).Order("position").Find(&rows)
	if result.Error != nil {
		slog.Error("sql error listing post media", "post_id", postId, "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}

	info := mediaInfo{TotalFiles: len(rows), Files: []mediaFileInfo{}}
	for _, row := range rows {
		info.Files = append(info.Files, mediaFileInfo{
			Index:       row.Position,
			FileName:    row.FileName,
			ContentType: row.ContentType,
			MediaType:   row.Kind,
			FileSize:    row.FileSize,
			Url:         fmt.Sprintf("/sharedpost/media/%d/%d", postId, row.Position),
		})
	}

	utils.WriteJsonResponse(w, info)
}
