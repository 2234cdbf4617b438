package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPorts(t *testing.T) {
	chat := &MockChatService{}

	p := NewPorts(chat, "user-1")

	assert.Equal(t, chat, p.Chat)
	assert.Equal(t, "user-1", p.UserID)
	assert.Empty(t, p.SessionID)
}

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name  string
		ports *Ports
		err   error
	}{
		{"valid", &Ports{Chat: &MockChatService{}, UserID: "u"}, nil},
		{"missing chat", &Ports{UserID: "u"}, ErrMissingChatService},
		{"missing user", &Ports{Chat: &MockChatService{}}, ErrMissingUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
