package domain

// Candidate is an unvalidated result proposed by a provider for a query.
// Width and Height are zero when the provider gave no dimension hint.
type Candidate struct {
	Kind     ResourceKind `json:"kind"`
	Provider string       `json:"provider"`
	URL      string       `json:"url"`
	Author   string       `json:"author,omitempty"`
	License  string       `json:"license,omitempty"`
	Width    int          `json:"width,omitempty"`
	Height   int          `json:"height,omitempty"`
}

// HasDimensions reports whether the provider supplied a width hint.
func (c Candidate) HasDimensions() bool {
	return c.Width > 0
}
