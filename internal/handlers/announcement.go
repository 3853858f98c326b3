package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/contesthub/apiserver/internal/services"
	"github.com/contesthub/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxMultipartMemory = 8 << 20
	maxAttachmentBytes = 5 << 20

	formFieldContent     = "content"
	formFieldQuestionSet = "question_set"
	formFieldAttachment  = "attachment"
)

// AnnouncementHandler serves the announcement and comment feed of a
// competition.
type AnnouncementHandler struct {
	feedService *services.FeedService
	userService *services.UserService
}

func NewAnnouncementHandler(feedService *services.FeedService, userService *services.UserService) *AnnouncementHandler {
	return &AnnouncementHandler{
		feedService: feedService,
		userService: userService,
	}
}

// AnnouncementRouter registers feed routes under a competition subtree.
func AnnouncementRouter(r chi.Router, feedService *services.FeedService, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewAnnouncementHandler(feedService, userService)

	r.With(authMiddleware).Get("/", handler.List)
	r.With(authMiddleware).Post("/", handler.Post)
	r.With(authMiddleware).Get("/{announcementID}", handler.Get)
	r.With(authMiddleware).Delete("/{announcementID}", handler.Delete)
	r.With(authMiddleware).Post("/{announcementID}/comments", handler.PostComment)
	r.With(authMiddleware).Delete("/{announcementID}/comments/{commentID}", handler.DeleteComment)
}

func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	compID, err := parseIDParam(r, "competitionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	announcements, err := h.feedService.ListAnnouncements(r.Context(), compID)
	if err != nil {
		writeServiceError(w, err, "competition not found", "failed to list announcements")
		return
	}

	writeJSON(w, http.StatusOK, AnnouncementListResponse{Items: announcements, Total: len(announcements)})
}

func (h *AnnouncementHandler) Get(w http.ResponseWriter, r *http.Request) {
	compID, err := parseIDParam(r, "competitionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	announcementID := chi.URLParam(r, "announcementID")

	announcement, err := h.feedService.GetAnnouncement(r.Context(), compID, announcementID)
	if err != nil {
		writeServiceError(w, err, "announcement not found", "failed to fetch announcement")
		return
	}

	writeJSON(w, http.StatusOK, announcement)
}

func (h *AnnouncementHandler) Post(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	compID, err := parseIDParam(r, "competitionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := parseAnnouncementForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	author, err := h.userService.GetByID(r.Context(), identity.ID)
	if err != nil {
		writeServiceError(w, err, "user not found", "failed to fetch author")
		return
	}

	announcement, err := h.feedService.PostAnnouncement(r.Context(), compID, author, req.Content, req.QuestionSet, req.Attachment)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAttachment):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrStorageUnavailable):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeServiceError(w, err, "competition not found", "failed to post announcement")
		}
		return
	}

	writeJSON(w, http.StatusCreated, announcement)
}

func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	compID, err := parseIDParam(r, "competitionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	announcementID := chi.URLParam(r, "announcementID")

	if err := h.feedService.DeleteAnnouncement(r.Context(), compID, announcementID, identity.ID); err != nil {
		writeServiceError(w, err, "announcement not found", "failed to delete announcement")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AnnouncementHandler) PostComment(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	compID, err := parseIDParam(r, "competitionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	announcementID := chi.URLParam(r, "announcementID")

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	author, err := h.userService.GetByID(r.Context(), identity.ID)
	if err != nil {
		writeServiceError(w, err, "user not found", "failed to fetch author")
		return
	}

	comment, err := h.feedService.PostComment(r.Context(), compID, announcementID, author, req.Content)
	if err != nil {
		writeServiceError(w, err, "announcement not found", "failed to post comment")
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

func (h *AnnouncementHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	compID, err := parseIDParam(r, "competitionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	announcementID := chi.URLParam(r, "announcementID")
	commentID := chi.URLParam(r, "commentID")

	if err := h.feedService.DeleteComment(r.Context(), compID, announcementID, commentID, identity.ID); err != nil {
		writeServiceError(w, err, "comment not found", "failed to delete comment")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type AnnouncementRequest struct {
	Content     string
	QuestionSet *types.QuestionSet
	Attachment  *services.AttachmentUpload
}

func parseAnnouncementForm(r *http.Request) (AnnouncementRequest, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return AnnouncementRequest{}, errors.New("invalid multipart form")
	}

	content := strings.TrimSpace(r.FormValue(formFieldContent))
	if content == "" {
		return AnnouncementRequest{}, errors.New("content is required")
	}

	var questionSet *types.QuestionSet
	if raw := strings.TrimSpace(r.FormValue(formFieldQuestionSet)); raw != "" {
		var qs types.QuestionSet
		if err := json.Unmarshal([]byte(raw), &qs); err != nil {
			return AnnouncementRequest{}, errors.New("invalid question set")
		}
		questionSet = &qs
	}

	attachment, err := parseAttachmentFile(r.MultipartForm)
	if err != nil {
		return AnnouncementRequest{}, err
	}

	return AnnouncementRequest{
		Content:     content,
		QuestionSet: questionSet,
		Attachment:  attachment,
	}, nil
}

func parseAttachmentFile(form *multipart.Form) (*services.AttachmentUpload, error) {
	if form == nil {
		return nil, nil
	}

	files := form.File[formFieldAttachment]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > 1 {
		return nil, errors.New("only one attachment is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}

	data, err := readFileLimited(file, maxAttachmentBytes)
	_ = file.Close()
	if err != nil {
		return nil, err
	}

	return &services.AttachmentUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}

type CommentRequest struct {
	Content string `json:"content"`
}

type AnnouncementListResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}
