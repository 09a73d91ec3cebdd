package queue

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNotification(t *testing.T) {
	id := uuid.New()
	body, err := json.Marshal(NotificationPayload{NotificationID: id})
	require.NoError(t, err)

	p, err := DecodeNotification(&Job{Type: JobTypeNotification, Payload: body})
	require.NoError(t, err)
	assert.Equal(t, id, p.NotificationID)
}

func TestDecodeNotificationRejectsOtherTypes(t *testing.T) {
	_, err := DecodeNotification(&Job{Type: "recording_upload", Payload: json.RawMessage(`{}`)})
	assert.Error(t, err)
}

func TestDecodeNotificationRejectsGarbage(t *testing.T) {
	_, err := DecodeNotification(&Job{Type: JobTypeNotification, Payload: json.RawMessage(`not-json`)})
	assert.Error(t, err)
}
