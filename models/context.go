package models

type ContextPostRequest struct {
	Text string `json:"text"`
}

type ContextPostResponse struct {
	Results []Source `json:"results"`
}
