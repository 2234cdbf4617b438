package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleUser.IsValid())
	assert.True(t, RoleAssistant.IsValid())
	assert.False(t, Role("system").IsValid())
	assert.False(t, Role("").IsValid())
}

func TestDefaultSessionTitle(t *testing.T) {
	assert.Equal(t, "New Chat", DefaultSessionTitle)
}
