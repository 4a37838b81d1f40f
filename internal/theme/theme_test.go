package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndNext(t *testing.T) {
	t.Cleanup(func() { Current = Default })

	assert.False(t, Set("nope"))
	assert.Equal(t, "default", Current.Name)

	require.True(t, Set("nord"))
	assert.Equal(t, "nord", Current.Name)

	assert.Equal(t, "solarized-light", Next().Name)
	assert.Equal(t, "light", Current.Glamour)
	assert.Equal(t, "default", Next().Name)
}

func TestListIsOrdered(t *testing.T) {
	assert.Equal(t, []string{"default", "gruvbox", "nord", "solarized-light"}, List())
	for _, name := range List() {
		th, ok := Lookup(name)
		require.True(t, ok)
		assert.NotEmpty(t, th.Glamour, name)
	}
}
