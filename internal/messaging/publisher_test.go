package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), RequestCreated, map[string]string{"id": "1"}))
	assert.NoError(t, p.Close())
}

func TestNewEvent_Envelope(t *testing.T) {
	evt := NewEvent(MessageCreated, map[string]string{"room_id": "r1"})

	raw, err := json.Marshal(evt)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "chat.message.created", decoded["type"])
	assert.Equal(t, "r1", decoded["data"].(map[string]interface{})["room_id"])
	assert.NotEmpty(t, decoded["occurred_at"])
}
