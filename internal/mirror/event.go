// Package mirror replicates committed listing writes to an external
// automation webhook. Delivery is best effort: failures are logged and
// dead-lettered, never reported to the caller of the listing operation.
package mirror

import (
	"time"

	"github.com/google/uuid"

	"propdash/pkg/model"
)

type Event string

const (
	EventCreated       Event = "listing.created"
	EventUpdated       Event = "listing.updated"
	EventDeleted       Event = "listing.deleted"
	EventStatusChanged Event = "listing.status_changed"
)

// Path is the webhook route that receives e, relative to the mirror base URL.
func (e Event) Path() string {
	switch e {
	case EventCreated:
		return "/add-apartment"
	case EventUpdated:
		return "/update-apartments"
	case EventDeleted:
		return "/delete-apartments"
	case EventStatusChanged:
		return "/update-status"
	default:
		return ""
	}
}

func (e Event) Valid() bool {
	return e.Path() != ""
}

func (e Event) String() string {
	return string(e)
}

// Payload is the JSON body posted to the webhook.
type Payload struct {
	EventID    string       `json:"eventId"`
	Event      Event        `json:"event"`
	OccurredAt time.Time    `json:"occurredAt"`
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Price      string       `json:"price"`
	Rooms      string       `json:"rooms"`
	Location   string       `json:"location"`
	City       string       `json:"city"`
	Utilities  string       `json:"utilities"`
	Parking    string       `json:"parking"`
	PetPolicy  string       `json:"petPolicy"`
	Available  string       `json:"available"`
	Note       string       `json:"note"`
	Status     model.Status `json:"status"`
}

// NewPayload snapshots listing for event. The owner id is not sent.
func NewPayload(event Event, listing model.Listing, occurredAt time.Time) Payload {
	return Payload{
		EventID:    uuid.NewString(),
		Event:      event,
		OccurredAt: occurredAt.UTC(),
		ID:         listing.ID,
		Name:       listing.Name,
		Price:      listing.Price,
		Rooms:      listing.Rooms,
		Location:   listing.Location,
		City:       listing.City,
		Utilities:  listing.Utilities,
		Parking:    listing.Parking,
		PetPolicy:  listing.PetPolicy,
		Available:  listing.Available,
		Note:       listing.Note,
		Status:     listing.Status,
	}
}
