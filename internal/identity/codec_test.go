package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "john_doe@gym-1", Sanitize("john doe@gym-1"))
	assert.Equal(t, "caf__con_leche", Sanitize("café con/leche"))
	assert.Equal(t, "ok_OK_09@_-", Sanitize("ok OK 09@_-"))

	long := strings.Repeat("a", 200)
	assert.Len(t, Sanitize(long), MaxIDLength)
}

func TestExternalIDRoundTrip(t *testing.T) {
	ext := ExternalID(42, 7)
	assert.Equal(t, "user_42_t7", ext)

	userID, ok := ParseExternalID(ext)
	require.True(t, ok)
	assert.Equal(t, 42, userID)
}

func TestParseExternalIDRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "user_", "user_abc_t1", "member_3_t1", "user_3"} {
		_, ok := ParseExternalID(input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestDirectChannelIDOrderIndependent(t *testing.T) {
	a := ExternalID(10, 2)
	b := ExternalID(11, 2)

	require.Equal(t, DirectChannelID(a, b), DirectChannelID(b, a))
	assert.Equal(t, "dm_user_10_t2_user_11_t2", DirectChannelID(a, b))
}

func TestDirectChannelIDCapped(t *testing.T) {
	a := strings.Repeat("a", 100)
	b := strings.Repeat("b", 100)

	id := DirectChannelID(a, b)
	assert.LessOrEqual(t, len(id), MaxIDLength)
	// Distinct pairs with the same long prefix must stay distinct after truncation.
	other := DirectChannelID(strings.Repeat("a", 100), strings.Repeat("c", 100))
	assert.NotEqual(t, id, other)
}

func TestEventChannelIDDeterministic(t *testing.T) {
	creator := ExternalID(5, 3)
	first := EventChannelID(88, creator)
	second := EventChannelID(88, creator)

	require.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "event_88_"))
	assert.LessOrEqual(t, len(first), MaxIDLength)
}
