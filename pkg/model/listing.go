package model

import "time"

type Status string

const (
	StatusAvailable Status = "Available"
	StatusRented    Status = "Rented"
)

func (s Status) Valid() bool {
	return s == StatusAvailable || s == StatusRented
}

// Listing is a single apartment record. UserID is the owner's identity id and
// is never changed after creation.
type Listing struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	UserID    string    `json:"userId" bson:"user_id"`
	Name      string    `json:"name" bson:"name"`
	Price     string    `json:"price" bson:"price"`
	Rooms     string    `json:"rooms" bson:"rooms"`
	Location  string    `json:"location" bson:"location"`
	City      string    `json:"city" bson:"city"`
	Utilities string    `json:"utilities" bson:"utilities"`
	Parking   string    `json:"parking" bson:"parking"`
	PetPolicy string    `json:"petPolicy" bson:"pet_policy"`
	Available string    `json:"available" bson:"available"`
	Note      string    `json:"note" bson:"note"`
	Status    Status    `json:"status" bson:"status"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// ListingFields is the caller-editable part of a listing, accepted by create and update.
type ListingFields struct {
	Name      string `json:"name" validate:"required"`
	Price     string `json:"price" validate:"required"`
	Rooms     string `json:"rooms" validate:"required"`
	Location  string `json:"location" validate:"required"`
	City      string `json:"city" validate:"required"`
	Utilities string `json:"utilities" validate:"required"`
	Parking   string `json:"parking" validate:"required"`
	PetPolicy string `json:"petPolicy" validate:"required"`
	Available string `json:"available" validate:"required"`
	Note      string `json:"note"`
}

// Fields returns the editable part of l.
func (l *Listing) Fields() ListingFields {
	return ListingFields{
		Name:      l.Name,
		Price:     l.Price,
		Rooms:     l.Rooms,
		Location:  l.Location,
		City:      l.City,
		Utilities: l.Utilities,
		Parking:   l.Parking,
		PetPolicy: l.PetPolicy,
		Available: l.Available,
		Note:      l.Note,
	}
}

// Apply overwrites the editable fields of l with f.
func (l *Listing) Apply(f ListingFields) {
	l.Name = f.Name
	l.Price = f.Price
	l.Rooms = f.Rooms
	l.Location = f.Location
	l.City = f.City
	l.Utilities = f.Utilities
	l.Parking = f.Parking
	l.PetPolicy = f.PetPolicy
	l.Available = f.Available
	l.Note = f.Note
}

type StatusChange struct {
	Status Status `json:"status" validate:"required,oneof=Available Rented"`
}
