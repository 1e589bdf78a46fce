package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseProfileID("")
		assert.Error(t, err)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, input := range []string{
			"not-a-uuid",
			"550e8400-e29b-41d4-a716",
			"550e8400e29b41d4a716446655440000zz",
		} {
			_, err := ParseProfileID(input)
			assert.Error(t, err, "input %q should be rejected", input)
		}
	})

	t.Run("accepts valid uuid", func(t *testing.T) {
		raw := uuid.NewString()
		parsed, err := ParseProfileID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, parsed.String())
		assert.False(t, parsed.IsNil())
	})

	t.Run("round trips through String", func(t *testing.T) {
		original := NewProfileID()
		parsed, err := ParseProfileID(original.String())
		require.NoError(t, err)
		assert.Equal(t, original, parsed)
	})
}

func TestProfileIDIsNil(t *testing.T) {
	var zero ProfileID
	assert.True(t, zero.IsNil())
	assert.False(t, NewProfileID().IsNil())
}

// Typed IDs are wrappers over uuid.UUID and do not inherit its text
// marshaling; these tests pin the JSON representation to the canonical
// string form rather than a byte array.
func TestIDJSONEncoding(t *testing.T) {
	t.Run("profile id encodes as string", func(t *testing.T) {
		profileID := NewProfileID()
		data, err := json.Marshal(profileID)
		require.NoError(t, err)
		assert.Equal(t, `"`+profileID.String()+`"`, string(data))

		var decoded ProfileID
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, profileID, decoded)
	})

	t.Run("endorsement id encodes as string", func(t *testing.T) {
		endorsementID := NewEndorsementID()
		data, err := json.Marshal(endorsementID)
		require.NoError(t, err)
		assert.Equal(t, `"`+endorsementID.String()+`"`, string(data))
	})

	t.Run("collaboration id encodes as string", func(t *testing.T) {
		collaborationID := NewCollaborationID()
		data, err := json.Marshal(collaborationID)
		require.NoError(t, err)
		assert.Equal(t, `"`+collaborationID.String()+`"`, string(data))
	})

	t.Run("affiliation id encodes as string", func(t *testing.T) {
		affiliationID := NewAffiliationID()
		data, err := json.Marshal(affiliationID)
		require.NoError(t, err)
		assert.Equal(t, `"`+affiliationID.String()+`"`, string(data))
	})

	t.Run("invalid text fails to decode", func(t *testing.T) {
		var decoded ProfileID
		assert.Error(t, json.Unmarshal([]byte(`"not-a-uuid"`), &decoded))
	})
}

func TestIDTypesShareStringForm(t *testing.T) {
	// A ProfileID and an EndorsementID built from the same UUID are
	// different types with the same canonical string.
	u := uuid.New()
	assert.Equal(t, ProfileID(u).String(), EndorsementID(u).String())
}
