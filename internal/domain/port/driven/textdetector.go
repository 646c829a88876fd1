package driven

import (
	"context"
	"errors"
)

// Sentinel errors returned by TextDetector implementations.
var (
	// ErrDetectorUnavailable covers transport failures and unexpected
	// responses from the OCR provider.
	ErrDetectorUnavailable = errors.New("text detector unavailable")

	// ErrDetectorAuth indicates the provider rejected our credentials.
	ErrDetectorAuth = errors.New("text detector rejected credentials")

	// ErrDetectorQuota indicates the provider's quota or rate limit was hit.
	ErrDetectorQuota = errors.New("text detector quota exceeded")
)

// TextDetector defines the driven port for the external OCR provider. It is
// treated as an opaque oracle: one encoded image in, the whole-document text
// out. An empty string with a nil error means no text was detected.
type TextDetector interface {
	DetectDocumentText(ctx context.Context, image []byte) (string, error)
}
