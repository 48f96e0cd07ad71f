package utils

import "github.com/rs/xid"

// NewID returns a globally unique, roughly time-ordered identifier.
func NewID() string {
	return xid.New().String()
}
