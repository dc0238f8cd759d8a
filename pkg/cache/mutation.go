package cache

import (
	"fmt"

	"propdash/pkg/model"
)

type Kind int

const (
	KindAdd Kind = iota
	KindReplace
	KindRemove
	KindPatchStatus
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindReplace:
		return "replace"
	case KindRemove:
		return "remove"
	case KindPatchStatus:
		return "patch_status"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Mutation is a local change applied before the server confirms it.
type Mutation struct {
	Kind    Kind
	ID      string
	Listing model.Listing
	Status  model.Status
}

func Add(listing model.Listing) Mutation {
	return Mutation{Kind: KindAdd, ID: listing.ID, Listing: listing}
}

func Replace(listing model.Listing) Mutation {
	return Mutation{Kind: KindReplace, ID: listing.ID, Listing: listing}
}

func Remove(id string) Mutation {
	return Mutation{Kind: KindRemove, ID: id}
}

func PatchStatus(id string, status model.Status) Mutation {
	return Mutation{Kind: KindPatchStatus, ID: id, Status: status}
}

// apply returns a new slice; listings is never modified in place.
func (m Mutation) apply(listings []model.Listing) []model.Listing {
	out := make([]model.Listing, 0, len(listings)+1)
	switch m.Kind {
	case KindAdd:
		// newest first, like the server
		out = append(out, m.Listing)
		out = append(out, listings...)
	case KindReplace:
		for _, l := range listings {
			if l.ID == m.ID {
				l = m.Listing
			}
			out = append(out, l)
		}
	case KindRemove:
		for _, l := range listings {
			if l.ID != m.ID {
				out = append(out, l)
			}
		}
	case KindPatchStatus:
		for _, l := range listings {
			if l.ID == m.ID {
				l.Status = m.Status
			}
			out = append(out, l)
		}
	default:
		out = append(out, listings...)
	}
	return out
}
