// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// LayoutViewModel holds data shared by every page chrome.
type LayoutViewModel struct {
	Title     string
	Username  string // empty on the login page
	CSRFToken string
	ActiveNav string // "capture" or "editor"
}

// LoginViewModel holds presentation-ready data for the login form.
type LoginViewModel struct {
	Action    string // form target, carries the post-login redirect
	CSRFToken string
	Username  string // echoed back after a failed attempt
	Error     string
}

// CaptureViewModel holds presentation-ready data for the camera capture page.
type CaptureViewModel struct {
	EditorPath string // where to go after a successful upload; "?id=<n>" is appended
}

// ResultItemViewModel holds presentation-ready data for a row in the results list.
type ResultItemViewModel struct {
	ID         int64
	Title      string // first non-empty Markdown line, trimmed for display
	CreatedAt  string
	ImageURL   string
	EditorPath string
	Selected   bool
}

// ResultDetailViewModel holds presentation-ready data for the open document.
type ResultDetailViewModel struct {
	ID            int64
	ImageFilename string
	ImageURL      string
	Markdown      string
	PreviewHTML   string // sanitized
	CreatedAt     string
	DownloadName  string // suggested .md filename for the plain download
}

// EditorViewModel holds presentation-ready data for the results/editor page.
type EditorViewModel struct {
	Results  []ResultItemViewModel
	Selected *ResultDetailViewModel // nil when no results exist
	NotFound bool                   // an explicit ?id= did not match
}
