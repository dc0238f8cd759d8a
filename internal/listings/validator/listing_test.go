package validator

import (
	"errors"
	"io"
	"reflect"
	"testing"

	"propdash/pkg/logger"
	"propdash/pkg/model"
)

func newTestValidator() *ListingValidator {
	return NewListingValidator(logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Output:  io.Discard,
		Service: "test",
	}))
}

func mapleFlat() model.ListingFields {
	return model.ListingFields{
		Name:      "Maple Flat",
		Price:     "$1200/mo",
		Rooms:     "2BR",
		Location:  "Downtown",
		City:      "Springfield",
		Utilities: "Included",
		Parking:   "1 space",
		PetPolicy: "Cats OK",
		Available: "Immediately",
	}
}

func TestValidateFields(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name       string
		mutate     func(*model.ListingFields)
		wantFields []string
	}{
		{
			name:   "all required present, empty note",
			mutate: func(f *model.ListingFields) {},
		},
		{
			name:       "missing name",
			mutate:     func(f *model.ListingFields) { f.Name = "" },
			wantFields: []string{"name"},
		},
		{
			name: "missing pet policy and availability",
			mutate: func(f *model.ListingFields) {
				f.PetPolicy = ""
				f.Available = ""
			},
			wantFields: []string{"petPolicy", "available"},
		},
		{
			name:       "everything missing",
			mutate:     func(f *model.ListingFields) { *f = model.ListingFields{Note: "only a note"} },
			wantFields: []string{"name", "price", "rooms", "location", "city", "utilities", "parking", "petPolicy", "available"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := mapleFlat()
			tt.mutate(&fields)

			err := v.ValidateFields(&fields)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T: %v", err, err)
			}
			if got := verrs.Fields(); !reflect.DeepEqual(got, tt.wantFields) {
				t.Errorf("Fields() = %v, want %v", got, tt.wantFields)
			}
			if verrs[0].Message != tt.wantFields[0]+" is required" {
				t.Errorf("message = %q", verrs[0].Message)
			}
		})
	}
}

func TestValidateStatus(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		status  model.Status
		wantErr bool
	}{
		{model.StatusAvailable, false},
		{model.StatusRented, false},
		{"", true},
		{"rented", true},
		{"Sold", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			err := v.ValidateStatus(&model.StatusChange{Status: tt.status})
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStatus(%q) error = %v, wantErr %v", tt.status, err, tt.wantErr)
			}
			var verrs ValidationErrors
			if tt.wantErr && (!errors.As(err, &verrs) || verrs[0].Field != "status") {
				t.Errorf("expected a status field error, got %v", err)
			}
		})
	}
}
