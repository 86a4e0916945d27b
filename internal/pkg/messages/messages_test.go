package messages

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCleanMessage(t *testing.T) {
	m := NewCleanMessage("1", "u1", "/api/transcriptions/1/audio")
	assert.Equal(t, "1", m.ID)
	assert.Equal(t, "u1", m.Owner)

	b, err := json.Marshal(m)
	require.Nil(t, err)
	var res CleanMessage
	require.Nil(t, json.Unmarshal(b, &res))
	assert.Equal(t, "1", res.ID)
	assert.Equal(t, "/api/transcriptions/1/audio", res.AudioURL)
}
