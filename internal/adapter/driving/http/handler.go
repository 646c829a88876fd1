// Package httphandler implements the JSON API driving adapter.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/pagescan/internal/application"
	"github.com/ericfisherdev/pagescan/internal/domain/model"
	"github.com/ericfisherdev/pagescan/internal/domain/port/driven"
)

// multipartMemory is the part of a multipart upload kept in memory before
// spilling to a temp file.
const multipartMemory = 1 << 20

// jsonBodyLimit caps request bodies that never carry an image.
const jsonBodyLimit = 4 << 20

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	db           Pinger
	tokens       *application.TokenService
	ocr          *application.OCRService
	export       *application.ExportService
	results      driven.ResultStore
	images       driven.ImageStore
	render       func(string) string
	cookieSecure bool
	now          func() time.Time
	logger       *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. render turns
// Markdown into sanitized HTML for the preview endpoint. db backs the health
// check and may be nil.
func NewHandler(
	db Pinger,
	tokens *application.TokenService,
	ocr *application.OCRService,
	export *application.ExportService,
	results driven.ResultStore,
	images driven.ImageStore,
	render func(string) string,
	cookieSecure bool,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		db:           db,
		tokens:       tokens,
		ocr:          ocr,
		export:       export,
		results:      results,
		images:       images,
		render:       render,
		cookieSecure: cookieSecure,
		now:          time.Now,
		logger:       logger,
	}
}

// RegisterAPIRoutes registers all JSON API and image routes on the provided mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)

	auth := func(next http.HandlerFunc) http.HandlerFunc { return RequireAuth(h.tokens, next) }

	mux.HandleFunc("POST /api/ocr", auth(h.SubmitOCR))
	mux.HandleFunc("GET /api/results", auth(h.ListResults))
	mux.HandleFunc("GET /api/results/{id}", auth(h.GetResult))
	mux.HandleFunc("GET /api/results/by-filename/{filename}", auth(h.GetResultByFilename))
	mux.HandleFunc("DELETE /api/results/{id}", auth(h.DeleteResult))
	mux.HandleFunc("POST /api/download-zip", auth(h.DownloadZip))
	mux.HandleFunc("POST /api/preview", auth(h.Preview))
	mux.HandleFunc("GET /images/{filename}", auth(h.ServeImage))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unavailable",
				Time:   h.now().UTC().Format(time.RFC3339),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   h.now().UTC().Format(time.RFC3339),
	})
}

// Login checks the operator credentials and sets the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	if !h.tokens.Authenticate(req.Username, req.Password) {
		h.logger.Warn("login rejected", "username", req.Username, "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.tokens.Issue(req.Username)
	if err != nil {
		h.logger.Error("failed to issue session token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	SetSessionCookie(w, token, h.cookieSecure)
	h.logger.Info("login succeeded", "username", req.Username)
	writeJSON(w, http.StatusOK, LoginResponse{Success: true, Username: req.Username})
}

// Logout clears the session cookie. The token itself stays valid until it
// expires.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	ClearSessionCookie(w, h.cookieSecure)
	writeJSON(w, http.StatusOK, LoginResponse{Success: true})
}

// SubmitOCR accepts one image, either as a JSON data URL or as the multipart
// field "image", and returns the formatted Markdown.
func (h *Handler) SubmitOCR(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes())

	image, err := h.readImage(r)
	if err != nil {
		h.writeServiceError(w, "read ocr upload", err)
		return
	}

	result, err := h.ocr.Process(r.Context(), image)
	if err != nil {
		h.writeServiceError(w, "process ocr upload", err)
		return
	}

	username, _ := UsernameFromContext(r.Context())
	h.logger.Info("ocr submission stored", "id", result.ResultID, "user", username)

	writeJSON(w, http.StatusOK, OCRResponse{
		Markdown:      result.Markdown,
		ImageFilename: result.ImageFilename,
		ID:            result.ResultID,
	})
}

// ListResults returns every stored result, newest first.
func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.results.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list results", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]ResultResponse, 0, len(results))
	for _, res := range results {
		resp = append(resp, toResultResponse(res))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetResult returns a single result by id.
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	id, ok := parseResultID(w, r)
	if !ok {
		return
	}

	result, err := h.results.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get result", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "OCR result not found.")
		return
	}

	writeJSON(w, http.StatusOK, toResultResponse(*result))
}

// GetResultByFilename returns the result that references an image filename.
func (h *Handler) GetResultByFilename(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if !driven.ValidImageName(filename) {
		writeError(w, http.StatusBadRequest, "Invalid image name.")
		return
	}

	result, err := h.results.GetByFilename(r.Context(), filename)
	if err != nil {
		h.logger.Error("failed to get result by filename", "filename", filename, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "OCR result not found.")
		return
	}

	writeJSON(w, http.StatusOK, toResultResponse(*result))
}

// DeleteResult removes a result row. The image file is kept.
func (h *Handler) DeleteResult(w http.ResponseWriter, r *http.Request) {
	id, ok := parseResultID(w, r)
	if !ok {
		return
	}

	deleted, err := h.results.DeleteByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete result", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "OCR result not found.")
		return
	}

	username, _ := UsernameFromContext(r.Context())
	h.logger.Info("result deleted", "id", id, "user", username)
	w.WriteHeader(http.StatusNoContent)
}

// DownloadZip streams a zip holding the (optionally edited) Markdown and the
// source image of a result.
func (h *Handler) DownloadZip(w http.ResponseWriter, r *http.Request) {
	var req DownloadZipRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OCRResultID <= 0 {
		writeError(w, http.StatusBadRequest, "ocrResultId is required")
		return
	}

	archive, err := h.export.ExportResult(r.Context(), req.OCRResultID, req.Markdown)
	if err != nil {
		h.writeServiceError(w, "export result", err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": archive.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive.Data)
}

// Preview renders Markdown to sanitized HTML for the editor.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	writeJSON(w, http.StatusOK, PreviewResponse{HTML: h.render(req.Markdown)})
}

// ServeImage streams a stored source image.
func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if !driven.ValidImageName(filename) {
		writeError(w, http.StatusNotFound, "Image file not found.")
		return
	}

	img, err := h.images.Open(r.Context(), filename)
	if err != nil {
		h.writeServiceError(w, "open image", err)
		return
	}
	defer img.Close()

	w.Header().Set("Content-Type", model.ContentTypeForFilename(filename))
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, img); err != nil {
		h.logger.Warn("image stream interrupted", "filename", filename, "error", err)
	}
}

// writeServiceError logs the root cause and sends the classified message.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	status, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", "status", status, "error", err)
	} else {
		h.logger.Warn(op+" rejected", "status", status, "error", err)
	}
	writeError(w, status, message)
}

// maxUploadBytes allows for base64 expansion of the largest accepted image
// plus JSON or multipart framing.
func (h *Handler) maxUploadBytes() int64 {
	return int64(h.ocr.MaxImageBytes())*4/3 + 64<<10
}

// readImage extracts the raw image bytes from a JSON or multipart body.
func (h *Handler) readImage(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, fmt.Errorf("%w: parse multipart form: %w", application.ErrInvalidFormat, err)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, fmt.Errorf("%w: multipart field: %w", errMissingImage, err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("read image part: %w", err)
		}
		return data, nil
	}

	var req OCRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, fmt.Errorf("%w: %w", application.ErrTooLarge, err)
		}
		return nil, fmt.Errorf("%w: decode body: %w", application.ErrInvalidFormat, err)
	}
	if req.ImageBase64 == "" {
		return nil, fmt.Errorf("%w: image_base64 is empty", errMissingImage)
	}
	return application.DecodeDataURL(req.ImageBase64)
}

// decodeBody decodes a small JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, jsonBodyLimit)
	return json.NewDecoder(r.Body).Decode(v)
}

// parseResultID reads the {id} path value, writing a 400 when it is not a
// positive integer.
func parseResultID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid result id")
		return 0, false
	}
	return id, true
}
