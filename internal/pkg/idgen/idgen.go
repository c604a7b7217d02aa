// Package idgen builds opaque, prefixed, time-sortable identifiers.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	PrefixSession      = "cs"
	PrefixSubscription = "sub"
	PrefixEndpoint     = "we"
	PrefixReview       = "frv"
	PrefixEvent        = "evt"
)

// New returns "<prefix>_<lowercase ulid>".
func New(prefix string) string {
	return prefix + "_" + strings.ToLower(ulid.Make().String())
}

// Secret returns a random webhook signing secret ("whsec_" + 48 hex chars).
func Secret() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the OS entropy source is unavailable
		panic("idgen: crypto/rand unavailable: " + err.Error())
	}
	return "whsec_" + hex.EncodeToString(b)
}
