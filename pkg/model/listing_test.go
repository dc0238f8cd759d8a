package model

import "testing"

func TestStatus_Valid(t *testing.T) {
	tests := []struct {
		status Status
		valid  bool
	}{
		{StatusAvailable, true},
		{StatusRented, true},
		{"", false},
		{"available", false},
		{"Sold", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestListing_FieldsApply(t *testing.T) {
	l := &Listing{
		ID:     "665f1c2e9b1e8a3d4c5b6a79",
		UserID: "Moudh",
		Name:   "Maple Flat",
		Price:  "$1200/mo",
		Note:   "quiet street",
		Status: StatusRented,
	}

	fields := l.Fields()
	if fields.Name != "Maple Flat" || fields.Note != "quiet street" {
		t.Fatalf("unexpected fields: %+v", fields)
	}

	fields.Price = "$1300/mo"
	fields.Note = ""
	l.Apply(fields)

	if l.Price != "$1300/mo" {
		t.Errorf("expected price to change, got %q", l.Price)
	}
	if l.Note != "" {
		t.Errorf("expected note cleared, got %q", l.Note)
	}
	if l.ID != "665f1c2e9b1e8a3d4c5b6a79" || l.UserID != "Moudh" || l.Status != StatusRented {
		t.Errorf("Apply touched non-editable fields: %+v", l)
	}
}

func TestIdentity_IsZero(t *testing.T) {
	if !(Identity{}).IsZero() {
		t.Error("expected empty identity to be zero")
	}
	if (Identity{ID: "Moudh", Name: "Moudh"}).IsZero() {
		t.Error("expected identity with id to be non-zero")
	}
}
