package ids

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsSortableAndUnique(t *testing.T) {
	const n = 500
	generated := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := New()
		assert.True(t, Valid(id))
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
		generated = append(generated, id)
	}
	assert.True(t, sort.StringsAreSorted(generated))
}

func TestValid(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("not-a-ulid"))
}
