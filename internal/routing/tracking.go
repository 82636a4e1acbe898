package routing

import "crypto/rand"

const (
	trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	trackingLength   = 8
)

// NewTrackingCode returns an 8-character uppercase alphanumeric code. With
// 36^8 possible codes, collisions within a tenant are astronomically
// unlikely and are not checked before persisting.
func NewTrackingCode() string {
	buf := make([]byte, trackingLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// the router's recovery boundary turns this into an apology.
		panic(err)
	}
	for i, b := range buf {
		buf[i] = trackingAlphabet[int(b)%len(trackingAlphabet)]
	}
	return string(buf)
}
