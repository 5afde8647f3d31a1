package workflow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsDoc() *Document {
	return &Document{
		ID:    "doc-1",
		State: StatePendingSignature,
		Recipients: []Recipient{
			{Name: "A", Email: "a@example.com"},
			{Name: "B", Email: "b@example.com"},
		},
	}
}

func TestParsePlaceMode(t *testing.T) {
	tests := []struct {
		in      string
		want    PlaceMode
		wantErr bool
	}{
		{"", PlaceAppend, false},
		{"append", PlaceAppend, false},
		{"Replace", PlaceReplace, false},
		{"merge", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePlaceMode(tt.in)
		if tt.wantErr {
			assert.True(t, HasCode(err, ErrCodeValidation), "ParsePlaceMode(%q) error = %v", tt.in, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestPlaceFieldsAppendAndReplace(t *testing.T) {
	doc := fieldsDoc()

	require.NoError(t, placeFields(doc, []InputField{
		{Type: "signature", OwnerRecipient: "A@example.com", Page: 0, X: 1, Y: 2},
	}, PlaceAppend))
	require.Len(t, doc.InputFields, 1)
	assert.True(t, doc.SignatureReady)
	assert.NotEmpty(t, doc.InputFields[0].ID, "missing ids are assigned")
	assert.Equal(t, "a@example.com", doc.InputFields[0].OwnerRecipient)

	// placing again appends, keeping the first field
	require.NoError(t, placeFields(doc, []InputField{
		{Type: "signature", OwnerRecipient: "b@example.com", Page: 1, X: 3, Y: 4},
	}, PlaceAppend))
	require.Len(t, doc.InputFields, 2)
	assert.Equal(t, "a@example.com", doc.InputFields[0].OwnerRecipient)

	require.NoError(t, placeFields(doc, []InputField{
		{ID: "only", Type: "initials", OwnerRecipient: "b@example.com"},
	}, PlaceReplace))
	require.Len(t, doc.InputFields, 1)
	assert.Equal(t, "only", doc.InputFields[0].ID)
}

func TestPlaceFieldsValidation(t *testing.T) {
	valid := InputField{Type: "signature", OwnerRecipient: "a@example.com"}

	tests := []struct {
		name   string
		fields []InputField
	}{
		{"empty", nil},
		{"missing type", []InputField{{OwnerRecipient: "a@example.com"}}},
		{"negative page", []InputField{{Type: "signature", OwnerRecipient: "a@example.com", Page: -1}}},
		{"negative x", []InputField{{Type: "signature", OwnerRecipient: "a@example.com", X: -1}}},
		{"NaN y", []InputField{{Type: "signature", OwnerRecipient: "a@example.com", Y: math.NaN()}}},
		{"infinite x", []InputField{{Type: "signature", OwnerRecipient: "a@example.com", X: math.Inf(1)}}},
		{"unknown recipient", []InputField{{Type: "signature", OwnerRecipient: "z@example.com"}}},
		{"duplicate ids", []InputField{{ID: "x", Type: "a", OwnerRecipient: "a@example.com"}, {ID: "x", Type: "b", OwnerRecipient: "b@example.com"}}},
		{"bad mode", []InputField{valid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := fieldsDoc()
			mode := PlaceAppend
			if tt.name == "bad mode" {
				mode = PlaceMode("merge")
			}
			err := placeFields(doc, tt.fields, mode)
			assert.True(t, HasCode(err, ErrCodeValidation), "error = %v", err)
			assert.False(t, doc.SignatureReady, "failed placement must not mark the document ready")
			assert.Empty(t, doc.InputFields)
		})
	}
}

func TestPlaceFieldsAppendRejectsExistingID(t *testing.T) {
	doc := fieldsDoc()
	require.NoError(t, placeFields(doc, []InputField{{ID: "f1", Type: "signature", OwnerRecipient: "a@example.com"}}, PlaceAppend))

	err := placeFields(doc, []InputField{{ID: "f1", Type: "signature", OwnerRecipient: "b@example.com"}}, PlaceAppend)
	assert.True(t, HasCode(err, ErrCodeValidation))
	assert.Len(t, doc.InputFields, 1)
}
