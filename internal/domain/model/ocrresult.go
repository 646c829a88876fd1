package model

import "time"

// OCRResult is one persisted {image, markdown} pair produced by a single OCR
// submission. Rows are written once and never updated.
type OCRResult struct {
	ID            int64
	ImageFilename string
	MarkdownText  string
	CreatedAt     time.Time
}
