package model

// Identity is the authenticated actor. ID is the stored username and is the
// owner key on every listing.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (i Identity) IsZero() bool {
	return i.ID == ""
}
