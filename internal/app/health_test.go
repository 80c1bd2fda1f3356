package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthPhases(t *testing.T) {
	h := NewHealth()
	assert.False(t, h.IsReady())
	assert.Equal(t, "starting", h.Status())

	h.SetReady(true)
	assert.True(t, h.IsReady())
	assert.Equal(t, "ready", h.Status())

	h.SetReady(false)
	assert.False(t, h.IsReady())
	assert.Equal(t, "draining", h.Status())

	h.SetReady(true)
	assert.False(t, h.IsReady(), "draining is final")
}
