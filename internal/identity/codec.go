// Package identity derives the provider-visible identifiers for users and channels.
// The messaging provider only accepts letters, digits, '@', '_' and '-' and caps
// identifiers at 64 characters; everything here enforces those limits before any
// network call is made.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxIDLength is the provider-imposed cap on channel and user identifiers.
const MaxIDLength = 64

const (
	userPrefix   = "user_"
	directPrefix = "dm_"
	eventPrefix  = "event_"
)

var illegalChars = regexp.MustCompile(`[^a-zA-Z0-9@_-]`)

// Sanitize maps free text to the provider's legal character set. Every illegal
// character becomes an underscore and the result is capped at MaxIDLength.
func Sanitize(raw string) string {
	safe := illegalChars.ReplaceAllString(raw, "_")
	if len(safe) > MaxIDLength {
		safe = safe[:MaxIDLength]
	}
	return safe
}

// ExternalID maps an internal (user, tenant) pair to the provider-visible user id.
// The mapping is stable and the user id can be recovered with ParseExternalID.
func ExternalID(userID, tenantID int) string {
	return fmt.Sprintf("%s%d_t%d", userPrefix, userID, tenantID)
}

// ParseExternalID extracts the internal user id from an external identifier.
func ParseExternalID(externalID string) (int, bool) {
	rest, ok := strings.CutPrefix(externalID, userPrefix)
	if !ok {
		return 0, false
	}
	idPart, _, ok := strings.Cut(rest, "_t")
	if !ok {
		return 0, false
	}
	userID, err := strconv.Atoi(idPart)
	if err != nil {
		return 0, false
	}
	return userID, true
}

// DirectChannelID derives the canonical channel id for a two-user conversation.
// The external ids are sorted lexicographically first, so both call orders resolve
// to the same channel. When the joined id would exceed the provider cap, each
// component is truncated before concatenation; truncating the final string instead
// could collide two distinct pairs.
func DirectChannelID(extA, extB string) string {
	if extB < extA {
		extA, extB = extB, extA
	}
	budget := MaxIDLength - len(directPrefix) - 1
	perComponent := budget / 2
	if len(extA) > perComponent {
		extA = extA[:perComponent]
	}
	if len(extB) > perComponent {
		extB = extB[:perComponent]
	}
	return directPrefix + extA + "_" + extB
}

// EventChannelID derives the channel id for an event conversation: the event id
// plus a short hash of the creating member. Lookups resolve rooms by event id, so
// the creator hash only has to be stable, not requester-independent.
func EventChannelID(eventID int, creatorExternalID string) string {
	sum := sha256.Sum256([]byte(creatorExternalID))
	return fmt.Sprintf("%s%d_%s", eventPrefix, eventID, hex.EncodeToString(sum[:])[:8])
}
