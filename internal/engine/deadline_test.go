package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeadlineZeroMeansNoExpiry(t *testing.T) {
	unix, t2, err := parseDeadline("0")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), unix)
	assert.Nil(t, t2)
}

func TestParseDeadlineBareUnixSeconds(t *testing.T) {
	unix, t2, err := parseDeadline("1700000000")
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000), unix)
	require.NotNil(t, t2)
	assert.Equal(t, int64(1700000000), t2.Unix())
}

func TestParseDeadlineISO8601(t *testing.T) {
	unix, t2, err := parseDeadline("2023-11-14T22:13:20Z")
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000), unix)
	require.NotNil(t, t2)
}

func TestParseDeadlineRejectsGarbage(t *testing.T) {
	_, _, err := parseDeadline("not-a-deadline")
	assert.Error(t, err)
}

func TestDeadlineUnixRoundTrip(t *testing.T) {
	assert.Equal(t, uint64(0), deadlineUnix(nil))
	tm := unixToTime(1700000000)
	assert.Equal(t, uint64(1700000000), deadlineUnix(&tm))
}
