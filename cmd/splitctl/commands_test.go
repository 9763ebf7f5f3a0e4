package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFriends(t *testing.T) {
	byName := map[string]string{"bob": "u2", "carol": "u3"}

	assert.Equal(t, []string{"u2", "u3", "u2"}, resolveFriends([]string{"bob", "carol", "bob"}, byName))
	assert.Equal(t, []string{"u2", "u2"}, resolveFriends([]string{"bob", "u2"}, byName), "name and ID of one friend")
	assert.Equal(t, []string{"u9"}, resolveFriends([]string{"u9"}, byName))
	assert.Empty(t, resolveFriends(nil, byName))
}
