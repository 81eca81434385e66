package domain

import "time"

// PersistedAsset is the durable output of a successful pipeline run.
type PersistedAsset struct {
	OperationID string      `json:"operation_id"`
	Provider    string      `json:"provider"`
	URL         string      `json:"url"`
	Path        string      `json:"path"`
	OriginalURL string      `json:"original_url"`
	Author      string      `json:"author,omitempty"`
	License     string      `json:"license,omitempty"`
	Width       int         `json:"width,omitempty"`
	Height      int         `json:"height,omitempty"`
	Bytes       int64       `json:"bytes"`
	ContentType string      `json:"content_type"`
	Signed      bool        `json:"signed"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
	Diagnostics Diagnostics `json:"diagnostics,omitempty"`
}
