package models

// DocumentsPostResponse is returned once uploaded documents have been
// indexed. The request is a multipart form with one "files" part per document.
type DocumentsPostResponse struct {
	BuildID   string   `json:"buildId"`
	Documents []string `json:"documents"`
	Skipped   []string `json:"skipped,omitempty"`
	Pages     int      `json:"pages"`
	Chunks    int      `json:"chunks"`
}
