package models

type QueryPostRequest struct {
	// Text of the question.
	Text string `json:"text"`
}

type QueryPostResponse struct {
	Answer string `json:"answer"`
	// Found is false when the answer is the "Answer not in text" fallback.
	Found   bool     `json:"found"`
	Sources []Source `json:"sources"`
}

type Source struct {
	Text     string  `json:"text"`
	Position int     `json:"position"`
	Score    float32 `json:"score"`
}
