package workflow

// fields.go holds the signature field placement rules.
//
// Placing fields is what makes a document signable. Repeated placement used to silently
// append to the existing fields; callers now choose explicitly between appending and
// replacing.

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/information-sharing-networks/docsign/internal/identity"
)

// PlaceMode controls how PlaceFields combines new fields with existing ones.
type PlaceMode string

const (
	// PlaceAppend adds the new fields after any existing ones
	PlaceAppend PlaceMode = "append"
	// PlaceReplace discards existing fields
	PlaceReplace PlaceMode = "replace"
)

// maxFieldsPerDocument bounds the size of a stored document record.
const maxFieldsPerDocument = 500

// ParsePlaceMode parses a mode name. The empty string selects PlaceAppend.
func ParsePlaceMode(s string) (PlaceMode, error) {
	switch PlaceMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", PlaceAppend:
		return PlaceAppend, nil
	case PlaceReplace:
		return PlaceReplace, nil
	default:
		return "", NewValidationError(fmt.Sprintf("unknown placement mode %q (want append or replace)", s))
	}
}

// placeableStates are the states in which the owner may (re)place fields.
var placeableStates = map[State]bool{
	StatePendingSignature: true,
	StateAccepted:         true,
	StateDelayed:          true,
}

// normalizeFields validates fields against doc and returns copies with ids assigned and
// recipient emails normalized.
func normalizeFields(doc *Document, fields []InputField) ([]InputField, error) {
	if len(fields) == 0 {
		return nil, NewValidationError("at least one field is required")
	}

	out := make([]InputField, 0, len(fields))

	for i, f := range fields {
		f.Type = strings.TrimSpace(f.Type)
		if f.Type == "" {
			return nil, NewValidationError(fmt.Sprintf("field %d: type is required", i))
		}
		if f.Page < 0 {
			return nil, NewValidationError(fmt.Sprintf("field %d: page must be 0 or greater", i))
		}
		if !validCoordinate(f.X) || !validCoordinate(f.Y) {
			return nil, NewValidationError(fmt.Sprintf("field %d: x and y must be finite and non-negative", i))
		}

		r, ok := doc.RecipientByEmail(f.OwnerRecipient)
		if !ok {
			return nil, NewValidationError(fmt.Sprintf("field %d: %q is not a recipient of this document", i, f.OwnerRecipient))
		}
		f.OwnerRecipient = identity.NormalizeEmail(r.Email)

		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		out = append(out, f)
	}
	return out, nil
}

// dedupeIDs reports a validation error when ids repeat within fields.
func dedupeIDs(fields []InputField) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.ID] {
			return NewValidationError(fmt.Sprintf("duplicate field id %q", f.ID))
		}
		seen[f.ID] = true
	}
	return nil
}

func validCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// placeFields combines fields into doc according to mode and marks it signature ready.
func placeFields(doc *Document, fields []InputField, mode PlaceMode) error {
	normalized, err := normalizeFields(doc, fields)
	if err != nil {
		return err
	}

	var combined []InputField
	switch mode {
	case PlaceReplace:
		combined = normalized
	case PlaceAppend:
		combined = append(append([]InputField{}, doc.InputFields...), normalized...)
	default:
		return NewValidationError(fmt.Sprintf("unknown placement mode %q", mode))
	}

	if len(combined) > maxFieldsPerDocument {
		return NewValidationError(fmt.Sprintf("a document may have at most %d fields", maxFieldsPerDocument))
	}
	if err := dedupeIDs(combined); err != nil {
		return err
	}

	doc.InputFields = combined
	doc.SignatureReady = true
	return nil
}
