package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vietddude/packup/internal/core/domain"
)

// ErrInvalidOutput matches every *OutputError.
var ErrInvalidOutput = errors.New("invalid model output")

// Validation reasons reported by ValidateItinerary.
const (
	ReasonUnparseable      = "unparseable"
	ReasonNotObject        = "not_object"
	ReasonDaysMissing      = "days_missing"
	ReasonDayNumberMissing = "day_number_missing"
	ReasonPlacesMissing    = "places_missing"
	ReasonImagesMissing    = "images_missing"
)

// OutputError describes model output that could not be used.
type OutputError struct {
	Reason string
	Raw    string
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("invalid model output: %s", e.Reason)
}

func (e *OutputError) Is(target error) bool { return target == ErrInvalidOutput }

// ParseItinerary decodes model text into an itinerary. The text is parsed as
// strict JSON first; failing that, the outermost {...} span is tried.
func ParseItinerary(text string) (*domain.Itinerary, error) {
	raw, ok := decodeJSON(text)
	if !ok {
		return nil, &OutputError{Reason: ReasonUnparseable, Raw: text}
	}
	if reason := ValidateItinerary(raw); reason != "" {
		return nil, &OutputError{Reason: reason, Raw: text}
	}

	var it domain.Itinerary
	if err := json.Unmarshal(raw, &it); err != nil {
		return nil, &OutputError{Reason: ReasonUnparseable, Raw: text}
	}
	return &it, nil
}

func decodeJSON(text string) (json.RawMessage, bool) {
	text = strings.TrimSpace(text)
	if json.Valid([]byte(text)) {
		return json.RawMessage(text), true
	}
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last <= first {
		return nil, false
	}
	sub := text[first : last+1]
	if !json.Valid([]byte(sub)) {
		return nil, false
	}
	return json.RawMessage(sub), true
}

// ValidateItinerary checks the shape of a decoded itinerary and returns the
// first failing reason, or "" when the document is usable.
func ValidateItinerary(raw json.RawMessage) string {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return ReasonNotObject
	}
	days, ok := obj["days"].([]any)
	if !ok {
		return ReasonDaysMissing
	}
	for _, d := range days {
		day, ok := d.(map[string]any)
		if !ok {
			return ReasonDayNumberMissing
		}
		if _, ok := day["day"].(float64); !ok {
			return ReasonDayNumberMissing
		}
		if _, ok := day["places"].([]any); !ok {
			return ReasonPlacesMissing
		}
		if _, ok := day["images"].([]any); !ok {
			return ReasonImagesMissing
		}
	}
	return ""
}
