package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/caresync-health/platform/pkg/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	msg, event, err := buildMessage("observations.recorded", "patient:7", map[string]interface{}{"count": 2}, now)
	require.NoError(t, err)

	assert.Equal(t, []byte("patient:7"), msg.Key)
	assert.Equal(t, now, msg.Time)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event-type", msg.Headers[0].Key)
	assert.Equal(t, []byte("observations.recorded"), msg.Headers[0].Value)
	assert.Equal(t, []byte(event.ID), msg.Headers[1].Value)

	var decoded models.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "observations.recorded", decoded.Type)
	assert.Equal(t, "patient:7", decoded.Source)
	assert.EqualValues(t, 2, decoded.Data["count"])
}

func TestBuildMessageRejectsUnencodableData(t *testing.T) {
	_, _, err := buildMessage("x", "y", map[string]interface{}{"bad": make(chan int)}, time.Now())
	assert.Error(t, err)
}
