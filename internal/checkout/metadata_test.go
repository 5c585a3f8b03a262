package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calliehq/bramble/internal/domain"
)

func TestStageAndRecoverMetadata(t *testing.T) {
	data := &domain.CheckoutData{
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		Phone:    "07700 900123",
		Address1: "12 Analytical Row",
		Address2: "Flat 3",
		City:     "London",
		County:   "Greater London",
		Postcode: "N1 7AA",
		Country:  "GB",
		SaveInfo: true,
	}
	profileID := int64(42)

	md := StageMetadata(domain.Bag{"7": 2, "9": 1}, data, &profileID, "tok_abc")

	staged, ok := RecoverMetadata(md)
	require.True(t, ok)

	assert.Equal(t, domain.Bag{"7": 2, "9": 1}, staged.Bag)
	assert.Equal(t, data, staged.Data)
	require.NotNil(t, staged.ProfileID)
	assert.Equal(t, int64(42), *staged.ProfileID)
	assert.Equal(t, "tok_abc", staged.SessionToken)
}

func TestStageMetadata_NoShippingData(t *testing.T) {
	md := StageMetadata(domain.Bag{"7": 1}, nil, nil, "tok_abc")

	staged, ok := RecoverMetadata(md)
	require.True(t, ok)

	assert.Equal(t, domain.Bag{"7": 1}, staged.Bag)
	assert.Empty(t, staged.Data.FullName)
	assert.Nil(t, staged.ProfileID)
}

func TestRecoverMetadata_NoBagStaged(t *testing.T) {
	// The metadata update before confirmation never landed; only the
	// intent creation metadata is present.
	tests := []struct {
		name string
		md   map[string]string
	}{
		{name: "nil metadata", md: nil},
		{name: "empty metadata", md: map[string]string{}},
		{name: "no bag key", md: map[string]string{"session_token": "tok_abc"}},
		{name: "empty bag value", md: map[string]string{"bag": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			staged, ok := RecoverMetadata(tt.md)
			assert.False(t, ok)
			assert.Nil(t, staged)
		})
	}
}

func TestRecoverMetadata_CorruptBag(t *testing.T) {
	// A bag that fails to decode recovers as empty rather than failing;
	// callers treat an empty bag as an unusable source.
	staged, ok := RecoverMetadata(map[string]string{"bag": "{broken"})
	require.True(t, ok)
	assert.True(t, staged.Bag.IsEmpty())
}

func TestRecoverMetadata_BadProfileID(t *testing.T) {
	staged, ok := RecoverMetadata(map[string]string{
		"bag":        `{"7":1}`,
		"profile_id": "not-a-number",
	})
	require.True(t, ok)
	assert.Nil(t, staged.ProfileID)
}
