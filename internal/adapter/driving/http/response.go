package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ericfisherdev/pagescan/internal/application"
	"github.com/ericfisherdev/pagescan/internal/domain/model"
	"github.com/ericfisherdev/pagescan/internal/domain/port/driven"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// errMissingImage reports an OCR request that carries no image at all.
var errMissingImage = errors.New("image is required")

// classifyError maps a service error to the HTTP status and the one message
// the client is allowed to see. Refined oracle errors are checked before
// ErrOracleUnavailable, which they wrap.
func classifyError(err error) (int, string) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr), errors.Is(err, application.ErrTooLarge):
		return http.StatusBadRequest, "Image too large."
	case errors.Is(err, errMissingImage):
		return http.StatusBadRequest, "Missing image in request body."
	case errors.Is(err, application.ErrInvalidFormat):
		return http.StatusBadRequest, "Invalid image format. Please use PNG, JPEG, GIF, or WebP."
	case errors.Is(err, driven.ErrInvalidImageName):
		return http.StatusBadRequest, "Invalid image name."
	case errors.Is(err, application.ErrNoTextDetected):
		return http.StatusNotFound, "No text detected in image."
	case errors.Is(err, application.ErrOracleAuth):
		return http.StatusUnauthorized, "OCR service authentication failed."
	case errors.Is(err, application.ErrOracleQuota):
		return http.StatusTooManyRequests, "OCR service quota exceeded. Please try again later."
	case errors.Is(err, application.ErrOracleUnavailable):
		return http.StatusInternalServerError, "OCR service unavailable."
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, "OCR result not found."
	case errors.Is(err, application.ErrSourceMissing), errors.Is(err, driven.ErrImageNotFound):
		return http.StatusNotFound, "Image file not found."
	case errors.Is(err, application.ErrExport):
		return http.StatusInternalServerError, "Failed to create ZIP file."
	case errors.Is(err, application.ErrStorage):
		return http.StatusInternalServerError, "Failed to store result."
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// LoginRequest is the JSON body for the login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username,omitempty"`
}

// OCRRequest is the JSON body for the OCR endpoint. ImageBase64 is a data URL.
type OCRRequest struct {
	ImageBase64 string `json:"image_base64"`
}

// OCRResponse is the JSON body returned for a successful OCR submission.
type OCRResponse struct {
	Markdown      string `json:"markdown"`
	ImageFilename string `json:"imageFilename"`
	ID            int64  `json:"id"`
}

// ResultResponse is the JSON representation of a stored OCR result.
type ResultResponse struct {
	ID            int64  `json:"id"`
	ImageFilename string `json:"imageFilename"`
	ImageURL      string `json:"imageUrl"`
	Markdown      string `json:"markdown"`
	CreatedAt     string `json:"createdAt"`
}

// DownloadZipRequest is the JSON body for the zip export endpoint. An empty
// Markdown exports the stored text.
type DownloadZipRequest struct {
	OCRResultID int64  `json:"ocrResultId"`
	Markdown    string `json:"markdown"`
}

// PreviewRequest is the JSON body for the Markdown preview endpoint.
type PreviewRequest struct {
	Markdown string `json:"markdown"`
}

// PreviewResponse carries sanitized HTML for the editor preview pane.
type PreviewResponse struct {
	HTML string `json:"html"`
}

// toResultResponse converts a domain OCRResult to its JSON response representation.
func toResultResponse(r model.OCRResult) ResultResponse {
	return ResultResponse{
		ID:            r.ID,
		ImageFilename: r.ImageFilename,
		ImageURL:      "/images/" + r.ImageFilename,
		Markdown:      r.MarkdownText,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
	}
}
