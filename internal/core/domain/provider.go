package domain

// ResourceKind identifies what a provider produces.
type ResourceKind string

const (
	ResourceImage ResourceKind = "image"
	ResourceOffer ResourceKind = "offer"
)

// Capability is a static feature flag on a provider spec.
type Capability string

const (
	CapabilityImages     Capability = "images"
	CapabilityDimensions Capability = "dimensions" // reports width/height hints
	CapabilityLicense    Capability = "license"
	CapabilityFlights    Capability = "flights"
	CapabilityHotels     Capability = "hotels"
	CapabilityActivities Capability = "activities"
)

// ProviderSpec is the configured identity and priority of one provider.
type ProviderSpec struct {
	Name         string       `json:"name"`
	Priority     int          `json:"priority"`
	Capabilities []Capability `json:"capabilities,omitempty"`
}

// Has reports whether the spec carries the capability.
func (s ProviderSpec) Has(c Capability) bool {
	for _, v := range s.Capabilities {
		if v == c {
			return true
		}
	}
	return false
}
