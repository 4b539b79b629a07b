package jurisdiction

import (
	"errors"
	"strings"
)

var (
	ErrUnknown    = errors.New("unknown jurisdiction")
	ErrComingSoon = errors.New("jurisdiction not yet available")
)

// Jurisdiction scopes the question set and the explanation context.
type Jurisdiction struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Agency     string `json:"agency"`
	ComingSoon bool   `json:"coming_soon,omitempty"`
}

var supported = []Jurisdiction{
	{Code: "GA", Name: "Georgia", Agency: "DDS"},
	{Code: "CA", Name: "California", Agency: "DMV", ComingSoon: true},
	{Code: "TX", Name: "Texas", Agency: "DPS", ComingSoon: true},
	{Code: "FL", Name: "Florida", Agency: "DHSMV", ComingSoon: true},
	{Code: "NY", Name: "New York", Agency: "DMV", ComingSoon: true},
}

// All returns every known jurisdiction, available or not.
func All() []Jurisdiction {
	out := make([]Jurisdiction, len(supported))
	copy(out, supported)
	return out
}

// Find returns the jurisdiction for code regardless of availability.
func Find(code string) (Jurisdiction, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, j := range supported {
		if j.Code == code {
			return j, nil
		}
	}
	return Jurisdiction{}, ErrUnknown
}

// Lookup returns an available jurisdiction.
func Lookup(code string) (Jurisdiction, error) {
	j, err := Find(code)
	if err != nil {
		return Jurisdiction{}, err
	}
	if j.ComingSoon {
		return Jurisdiction{}, ErrComingSoon
	}
	return j, nil
}
