package sanitizer

import (
	"strings"

	"propdash/pkg/model"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var usernamePipeline = Pipeline{strings.TrimSpace, strings.ToLower}

// NormalizeUsername returns the lookup key for a login name.
func NormalizeUsername(username string) string {
	return usernamePipeline.Apply(username)
}

func NormalizeListingFields(f model.ListingFields) model.ListingFields {
	return model.ListingFields{
		Name:      strings.TrimSpace(f.Name),
		Price:     strings.TrimSpace(f.Price),
		Rooms:     strings.TrimSpace(f.Rooms),
		Location:  strings.TrimSpace(f.Location),
		City:      strings.TrimSpace(f.City),
		Utilities: strings.TrimSpace(f.Utilities),
		Parking:   strings.TrimSpace(f.Parking),
		PetPolicy: strings.TrimSpace(f.PetPolicy),
		Available: strings.TrimSpace(f.Available),
		Note:      strings.TrimSpace(f.Note),
	}
}

func NormalizeStatus(s model.Status) model.Status {
	return model.Status(strings.TrimSpace(string(s)))
}
