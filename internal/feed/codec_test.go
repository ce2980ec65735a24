package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage("![k[playerKill],v[1279,528,2,1,Queen]]!")
	require.NoError(t, err)
	assert.Equal(t, Message{Key: "playerKill", Value: "1279,528,2,1,Queen"}, msg)

	msg, err = ParseMessage("  ![k[alive],v[10:41:07 PM]]!\n")
	require.NoError(t, err)
	assert.Equal(t, "alive", msg.Key)
	assert.Equal(t, "10:41:07 PM", msg.Value)
}

func TestParseMessageMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"hello",
		"![k[playerKill]]!",
		"![k[playerKill],v[1,2,3,4]",
		"k[playerKill],v[1,2,3,4]]!",
	} {
		_, err := ParseMessage(raw)
		assert.ErrorIs(t, err, ErrMalformedMessage, "raw %q", raw)
	}
}

func TestMessageEncodeRoundTrip(t *testing.T) {
	msg := Message{Key: KeyImAlive, Value: "null"}
	assert.Equal(t, "![k[im alive],v[null]]!", msg.Encode())

	parsed, err := ParseMessage(msg.Encode())
	require.NoError(t, err)
	assert.Equal(t, msg, parsed)
}

func TestDecodePlayerKill(t *testing.T) {
	event, ok, err := Decode(Message{Key: KeyPlayerKill, Value: "1279,528,2,1,Queen"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, EventKill, event.Type)
	assert.Equal(t, Kill{X: 1279, Y: 528, By: 2, Killed: 1, VictimType: "Queen"}, event.Kill)
	assert.Equal(t, "![k[playerKill],v[1279,528,2,1,Queen]]!", event.Raw)

	event, ok, err = Decode(Message{Key: KeyPlayerKill, Value: "10,20,7,4"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Kill{X: 10, Y: 20, By: 7, Killed: 4}, event.Kill)
}

func TestDecodePlayerKillMalformed(t *testing.T) {
	for _, value := range []string{"", "1,2,3", "1,2,x,4", "a,b,c,d"} {
		_, ok, err := Decode(Message{Key: KeyPlayerKill, Value: value})
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrMalformedMessage, "value %q", value)
	}
}

func TestDecodePlayerNamesIsReset(t *testing.T) {
	event, ok, err := Decode(Message{Key: KeyPlayerNames, Value: ",,,,,,,,,"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, EventReset, event.Type)
}

func TestDecodeIgnoresOtherKeys(t *testing.T) {
	for _, key := range []string{"berryDeposit", "glance", KeyAlive, "victory"} {
		_, ok, err := Decode(Message{Key: key, Value: "1,2"})
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}
