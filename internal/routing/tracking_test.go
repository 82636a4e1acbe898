package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingCodeFormat(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code := NewTrackingCode()
		require.Len(t, code, 8)
		for _, r := range code {
			ok := (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			assert.True(t, ok, "unexpected rune %q in %s", r, code)
		}
		seen[code] = struct{}{}
	}
	// 36^8 keyspace: 200 draws colliding would mean a broken generator
	assert.Len(t, seen, 200)
}
