// Package validate holds the pure acceptance checks applied to candidates
// before they are persisted.
package validate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/vietddude/packup/internal/core/domain"
)

// DefaultMinWidth is the narrowest image accepted when the provider reports
// a width.
const DefaultMinWidth = 360

var (
	ErrMissingLocator = errors.New("candidate has no locator")
	ErrBadLocator     = errors.New("candidate locator is not an http(s) url")
	ErrTooNarrow      = errors.New("image narrower than minimum width")
)

// Validator accepts or rejects candidates without mutating them.
type Validator struct {
	MinWidth int
}

// New creates a validator; minWidth <= 0 selects DefaultMinWidth.
func New(minWidth int) *Validator {
	if minWidth <= 0 {
		minWidth = DefaultMinWidth
	}
	return &Validator{MinWidth: minWidth}
}

// Accept returns nil when the candidate may be persisted. Images without a
// width hint are accepted here and left to the sink's byte floor.
func (v *Validator) Accept(c *domain.Candidate) error {
	if c == nil || strings.TrimSpace(c.URL) == "" {
		return ErrMissingLocator
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrBadLocator, c.URL)
	}
	if c.Kind == domain.ResourceImage && c.HasDimensions() && c.Width < v.MinWidth {
		return fmt.Errorf("%w: %d < %d", ErrTooNarrow, c.Width, v.MinWidth)
	}
	return nil
}
