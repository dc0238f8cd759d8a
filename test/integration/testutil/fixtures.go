package testutil

import "propdash/pkg/model"

type ListingBuilder struct {
	fields model.ListingFields
}

func NewListingBuilder() *ListingBuilder {
	return &ListingBuilder{
		fields: model.ListingFields{
			Name:      "Maple Flat",
			Price:     "$1200/mo",
			Rooms:     "2BR",
			Location:  "Downtown",
			City:      "Springfield",
			Utilities: "Included",
			Parking:   "1 space",
			PetPolicy: "Cats OK",
			Available: "Immediately",
		},
	}
}

func (b *ListingBuilder) WithName(name string) *ListingBuilder {
	b.fields.Name = name
	return b
}

func (b *ListingBuilder) WithPrice(price string) *ListingBuilder {
	b.fields.Price = price
	return b
}

func (b *ListingBuilder) WithNote(note string) *ListingBuilder {
	b.fields.Note = note
	return b
}

func (b *ListingBuilder) Build() model.ListingFields {
	return b.fields
}

func ValidListing() model.ListingFields {
	return NewListingBuilder().Build()
}
