package domain

// Itinerary is the day-by-day plan drafted by the LLM.
type Itinerary struct {
	Title string         `json:"title"`
	Days  []ItineraryDay `json:"days"`
}

type ItineraryDay struct {
	Day     int            `json:"day"`
	Theme   string         `json:"theme"`
	Places  []string       `json:"places"`
	Details string         `json:"details"`
	Images  []ImageRequest `json:"images"`
}

// ImageRequest is an image query emitted by the drafter. Asset fields are
// filled once the pipeline has persisted an image for the query.
type ImageRequest struct {
	Query       string `json:"query"`
	Caption     string `json:"caption,omitempty"`
	Reason      string `json:"reason,omitempty"`
	PublicURL   string `json:"publicUrl,omitempty"`
	Provider    string `json:"provider,omitempty"`
	OriginalURL string `json:"originalUrl,omitempty"`
	Author      string `json:"author,omitempty"`
	License     string `json:"license,omitempty"`
	StoragePath string `json:"storagePath,omitempty"`
}

// ImageCount returns the total number of image requests across all days.
func (it *Itinerary) ImageCount() int {
	n := 0
	for _, d := range it.Days {
		n += len(d.Images)
	}
	return n
}
