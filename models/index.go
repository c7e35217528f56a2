package models

import "time"

type IndexGetResponse struct {
	BuildID        string    `json:"buildId"`
	CreatedAt      time.Time `json:"createdAt"`
	EmbeddingModel string    `json:"embeddingModel"`
	Dimension      int       `json:"dimension"`
	Chunks         int       `json:"chunks"`
	ChunkSize      int       `json:"chunkSize"`
	ChunkOverlap   int       `json:"chunkOverlap"`
	Documents      []string  `json:"documents"`
	Encrypted      bool      `json:"encrypted"`
}
