package models

// These structs define the JSON payloads exchanged over the HTTP surface.

// ParseResponse is returned after a successful upload-and-parse run.
type ParseResponse struct {
	Message    string  `json:"message"`
	RunID      string  `json:"runId"`
	PageCount  int     `json:"pageCount"`
	Reconciled bool    `json:"reconciled"`
	Resume     *Resume `json:"resume"`
}

// ResumeResponse wraps a stored resume for retrieval endpoints.
type ResumeResponse struct {
	Message   string  `json:"message"`
	UserID    string  `json:"userId"`
	Resume    *Resume `json:"resume"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}
