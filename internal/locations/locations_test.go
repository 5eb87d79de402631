package locations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerializedIsStableAndComplete(t *testing.T) {
	first := Serialized()
	assert.Equal(t, first, Serialized(), "ordering must not depend on map iteration")

	parts := strings.Split(first, ", ")
	assert.Len(t, parts, len(Available))
	assert.Contains(t, first, "San Francisco Bay Area: 90000084")
	assert.True(t, strings.HasPrefix(first, "Australia: "), "entries are sorted by name")
}
