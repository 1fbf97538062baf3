package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"synthesis.io/tutor-backend/internal/auth"
	"synthesis.io/tutor-backend/internal/config"
	"synthesis.io/tutor-backend/internal/core"
	"synthesis.io/tutor-backend/internal/logger"
	"synthesis.io/tutor-backend/internal/store"
)

type ctxKey string

const studentIDKey ctxKey = "studentID"

type APIHandler struct {
	chatService     *core.ChatService
	progressService *core.ProgressService
	moduleCatalog   *core.ModuleCatalog
	mediaService    *core.MediaService
	chatTimeout     time.Duration
	log             *logger.Logger
}

func NewAPIHandler(cs *core.ChatService, ps *core.ProgressService, mc *core.ModuleCatalog, ms *core.MediaService, chatTimeout time.Duration, log *logger.Logger) *APIHandler {
	return &APIHandler{
		chatService:     cs,
		progressService: ps,
		moduleCatalog:   mc,
		mediaService:    ms,
		chatTimeout:     chatTimeout,
		log:             log,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeServiceError maps the core error taxonomy onto status codes.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, msg string, keysAndValues ...interface{}) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrUpstreamGeneration):
		h.log.Error(msg, append(keysAndValues, "error", err)...)
		writeError(w, http.StatusBadGateway, "The tutor could not generate a response. Please try again.")
	default:
		h.log.Error(msg, append(keysAndValues, "error", err)...)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		studentID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), studentIDKey, studentID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ownsStudent rejects the request when an authenticated token names a
// different student. Without auth every request passes.
func (h *APIHandler) ownsStudent(w http.ResponseWriter, r *http.Request, studentID string) bool {
	subject, ok := r.Context().Value(studentIDKey).(string)
	if !ok || subject == studentID {
		return true
	}
	h.log.Warn("Token subject does not match requested student", "student_id", studentID, "auth_subject", subject)
	writeError(w, http.StatusForbidden, "Token does not grant access to this student")
	return false
}

func (h *APIHandler) RootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Synthesis Tutor 2.0 API is running"})
}

type CreateStudentRequest struct {
	Name      string   `json:"name"`
	Grade     *string  `json:"grade,omitempty"`
	Interests []string `json:"interests,omitempty"`
}

type CreateStudentResponse struct {
	*store.Student
	Token string `json:"token,omitempty"`
}

func (h *APIHandler) CreateStudentHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Student name is required")
		return
	}

	student, err := h.chatService.CreateStudent(r.Context(), req.Name, req.Grade, req.Interests)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create student")
		return
	}

	resp := CreateStudentResponse{Student: student}
	if config.AppConfig.AuthEnabled() {
		token, err := auth.GenerateJWT(student.ID)
		if err != nil {
			h.log.Error("Failed to generate token", "student_id", student.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to generate token")
			return
		}
		resp.Token = token
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) GetStudentHandler(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !h.ownsStudent(w, r, studentID) {
		return
	}
	student, err := h.chatService.GetStudent(r.Context(), studentID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Student not found")
			return
		}
		h.writeServiceError(w, err, "Failed to get student", "student_id", studentID)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

type CreateMessageRequest struct {
	StudentID string `json:"student_id"`
	Content   string `json:"content"`
	Role      string `json:"role"`
}

func (h *APIHandler) CreateMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if !h.ownsStudent(w, r, req.StudentID) {
		return
	}

	msg, err := h.chatService.AppendMessage(r.Context(), req.StudentID, req.Content, req.Role)
	if err != nil {
		h.writeServiceError(w, err, "Failed to store message", "student_id", req.StudentID)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !h.ownsStudent(w, r, studentID) {
		return
	}
	messages, err := h.chatService.ListMessages(r.Context(), studentID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list messages", "student_id", studentID)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

type ChatRequest struct {
	StudentID string             `json:"student_id"`
	Message   *string            `json:"message"`
	Context   []core.ContextTurn `json:"context,omitempty"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	StudentID string `json:"student_id"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.StudentID == "" || req.Message == nil {
		writeError(w, http.StatusBadRequest, "student_id and message are required")
		return
	}

	if !h.ownsStudent(w, r, req.StudentID) {
		return
	}

	ctx := r.Context()
	if h.chatTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.chatTimeout)
		defer cancel()
	}

	reply, err := h.chatService.HandleTurn(ctx, req.StudentID, *req.Message, req.Context)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Student not found")
			return
		}
		h.writeServiceError(w, err, "Failed to chat with tutor", "student_id", req.StudentID)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Response: reply, StudentID: req.StudentID})
}

func (h *APIHandler) ListModulesHandler(w http.ResponseWriter, r *http.Request) {
	modules, err := h.moduleCatalog.ListModules(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to list modules")
		return
	}
	writeJSON(w, http.StatusOK, modules)
}

type ProgressRequest struct {
	StudentID  string   `json:"student_id"`
	ModuleID   string   `json:"module_id"`
	ModuleName string   `json:"module_name"`
	Completed  *bool    `json:"completed"`
	Score      *float64 `json:"score,omitempty"`
}

func (h *APIHandler) RecordProgressHandler(w http.ResponseWriter, r *http.Request) {
	var req ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.StudentID == "" || req.ModuleID == "" || req.Completed == nil {
		writeError(w, http.StatusBadRequest, "student_id, module_id and completed are required")
		return
	}

	if !h.ownsStudent(w, r, req.StudentID) {
		return
	}

	rec, err := h.progressService.RecordProgress(r.Context(), core.ProgressInput{
		StudentID:  req.StudentID,
		ModuleID:   req.ModuleID,
		ModuleName: req.ModuleName,
		Completed:  *req.Completed,
		Score:      req.Score,
	})
	if err != nil {
		h.writeServiceError(w, err, "Failed to record progress", "student_id", req.StudentID, "module_id", req.ModuleID)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *APIHandler) ListProgressHandler(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !h.ownsStudent(w, r, studentID) {
		return
	}
	records, err := h.progressService.ListProgress(r.Context(), studentID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list progress", "student_id", studentID)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type VideoFrameRequest struct {
	StudentID string `json:"student_id"`
	FrameData string `json:"frame_data"`
	MimeType  string `json:"mime_type,omitempty"`
}

type VideoFrameResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	ChunkID  string `json:"chunk_id"`
	Filename string `json:"filename"`
}

func (h *APIHandler) ProcessVideoFrameHandler(w http.ResponseWriter, r *http.Request) {
	var req VideoFrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if !h.ownsStudent(w, r, req.StudentID) {
		return
	}

	chunk, err := h.mediaService.IngestChunk(r.Context(), req.StudentID, req.FrameData, req.MimeType)
	if err != nil {
		h.writeServiceError(w, err, "Error processing video frame", "student_id", req.StudentID)
		return
	}

	writeJSON(w, http.StatusOK, VideoFrameResponse{
		Status:   "success",
		Message:  "Video frame processed successfully",
		ChunkID:  chunk.ID,
		Filename: chunk.Filename,
	})
}

func (h *APIHandler) ListMediaHandler(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !h.ownsStudent(w, r, studentID) {
		return
	}
	chunks, err := h.mediaService.ListChunks(r.Context(), studentID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list media chunks", "student_id", studentID)
		return
	}
	writeJSON(w, http.StatusOK, chunks)
}
