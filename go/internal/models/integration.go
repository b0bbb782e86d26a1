package models

import "fmt"

// MaskedAPIKey replaces a stored integration key on the wire. Saving it back
// keeps the stored key.
const MaskedAPIKey = "***configured***"

const (
	DefaultDaysAhead = 7
	MaxDaysAhead     = 30
)

// IntegrationSettings configures the external booking-calendar sync.
type IntegrationSettings struct {
	APIKey         string `json:"apiKey"`
	Enabled        bool   `json:"enabled"`
	DaysAhead      int    `json:"daysAhead"`
	CategoryFilter string `json:"categoryFilter"`
	SyncHour       int    `json:"syncHour"`
}

func DefaultIntegrationSettings() IntegrationSettings {
	return IntegrationSettings{DaysAhead: DefaultDaysAhead}
}

// Masked hides the API key, leaving only whether one is configured.
func (s IntegrationSettings) Masked() IntegrationSettings {
	if s.APIKey != "" {
		s.APIKey = MaskedAPIKey
	}
	return s
}

// IntegrationPatch is a partial update. Nil fields keep their current value.
type IntegrationPatch struct {
	APIKey         *string `json:"apiKey,omitempty"`
	Enabled        *bool   `json:"enabled,omitempty"`
	DaysAhead      *int    `json:"daysAhead,omitempty"`
	CategoryFilter *string `json:"categoryFilter,omitempty"`
	SyncHour       *int    `json:"syncHour,omitempty"`
}

// Apply overlays the patch on s and validates the result.
func (p IntegrationPatch) Apply(s IntegrationSettings) (IntegrationSettings, error) {
	if p.APIKey != nil && *p.APIKey != MaskedAPIKey {
		s.APIKey = *p.APIKey
	}
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	if p.DaysAhead != nil {
		s.DaysAhead = *p.DaysAhead
	}
	if p.CategoryFilter != nil {
		s.CategoryFilter = *p.CategoryFilter
	}
	if p.SyncHour != nil {
		s.SyncHour = *p.SyncHour
	}

	switch {
	case s.DaysAhead < 1 || s.DaysAhead > MaxDaysAhead:
		return IntegrationSettings{}, &ValidationError{Field: "daysAhead", Message: fmt.Sprintf("must be between 1 and %d", MaxDaysAhead)}
	case s.SyncHour < 0 || s.SyncHour > 23:
		return IntegrationSettings{}, &ValidationError{Field: "syncHour", Message: "must be between 0 and 23"}
	case s.Enabled && s.APIKey == "":
		return IntegrationSettings{}, &ValidationError{Field: "apiKey", Message: "is required when enabled"}
	}
	return s, nil
}
