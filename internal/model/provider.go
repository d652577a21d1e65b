package model

// Location is a point in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates are inside the WGS84 range.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// AvailabilityWindow is one weekly opening slot, times as "HH:MM".
type AvailabilityWindow struct {
	Day   string `json:"day"`
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Provider is the directory record of a repair provider.
type Provider struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Rating              float64              `json:"rating"`
	YearsExperience     int                  `json:"years_experience"`
	Approved            bool                 `json:"approved"`
	Verified            bool                 `json:"verified"`
	OnboardingCompleted bool                 `json:"onboarding_completed"`
	Location            *Location            `json:"location,omitempty"`
	Availability        []AvailabilityWindow `json:"availability,omitempty"`
}

// Eligible reports whether the provider passes the directory gates.
func (p Provider) Eligible() bool {
	return p.Approved && p.Verified && p.OnboardingCompleted
}
