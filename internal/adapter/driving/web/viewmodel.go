package web

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	vm "github.com/ericfisherdev/pagescan/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/pagescan/internal/domain/model"
)

// maxTitleRunes bounds the list title derived from a result's first line.
const maxTitleRunes = 60

const displayTimeLayout = "2006-01-02 15:04"

// toResultItemViewModel converts a domain OCRResult to a list row.
func toResultItemViewModel(r model.OCRResult, selectedID int64) vm.ResultItemViewModel {
	return vm.ResultItemViewModel{
		ID:         r.ID,
		Title:      resultTitle(r),
		CreatedAt:  r.CreatedAt.Local().Format(displayTimeLayout),
		ImageURL:   "/images/" + r.ImageFilename,
		EditorPath: fmt.Sprintf("/editor?id=%d", r.ID),
		Selected:   r.ID == selectedID,
	}
}

// toResultDetailViewModel converts a domain OCRResult to the open-document
// view, rendering its Markdown for the initial preview.
func toResultDetailViewModel(r model.OCRResult) *vm.ResultDetailViewModel {
	return &vm.ResultDetailViewModel{
		ID:            r.ID,
		ImageFilename: r.ImageFilename,
		ImageURL:      "/images/" + r.ImageFilename,
		Markdown:      r.MarkdownText,
		PreviewHTML:   RenderMarkdown(r.MarkdownText),
		CreatedAt:     r.CreatedAt.Local().Format(time.RFC1123),
		DownloadName:  fmt.Sprintf("ocr-result-%d.md", r.ID),
	}
}

// resultTitle picks the first non-empty line with heading markers stripped.
func resultTitle(r model.OCRResult) string {
	for _, line := range strings.Split(r.MarkdownText, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "#-"))
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxTitleRunes {
			runes := []rune(line)
			line = string(runes[:maxTitleRunes-1]) + "…"
		}
		return line
	}
	return fmt.Sprintf("Result #%d", r.ID)
}
