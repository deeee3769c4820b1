package conf

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationUnmarshal(t *testing.T) {
	var c ServerHTTP
	require.NoError(t, json.Unmarshal([]byte(`{"addr":":8000","timeout":"2s"}`), &c))
	assert.Equal(t, 2*time.Second, c.Timeout.AsDuration())

	require.NoError(t, json.Unmarshal([]byte(`{"timeout":1000000}`), &c))
	assert.Equal(t, time.Millisecond, c.Timeout.AsDuration())

	assert.Error(t, json.Unmarshal([]byte(`{"timeout":"soon"}`), &c))
}

func TestNilDuration(t *testing.T) {
	var d *Duration
	assert.Zero(t, d.AsDuration())
}
