package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kqstats/stats-server-go/internal/feed"
	"github.com/kqstats/stats-server-go/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type statMessage struct {
	Type string       `json:"type"`
	Data stats.Change `json:"data"`
}

func startHub(t *testing.T, snapshot SnapshotFunc) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(snapshot, 64, zap.NewNop())
	go hub.Run(ctx)
	srv := httptest.NewServer(NewMux(hub))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dialOverlay(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readStat(t *testing.T, conn *websocket.Conn) statMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg statMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubSendsSnapshotOnConnect(t *testing.T) {
	state := stats.NewState()
	state[stats.BlueQueen][stats.Kills] = 3
	_, srv := startHub(t, func() stats.State { return state })

	conn := dialOverlay(t, srv)

	var got []stats.Change
	for i := 0; i < 40; i++ {
		msg := readStat(t, conn)
		assert.Equal(t, "stat", msg.Type)
		got = append(got, msg.Data)
	}
	assert.Equal(t, stats.Change{Entity: stats.GoldQueen, Statistic: stats.Kills, Value: 0}, got[0])
	assert.Contains(t, got, stats.Change{Entity: stats.BlueQueen, Statistic: stats.Kills, Value: 3})
}

func TestHubBroadcastsEngineChanges(t *testing.T) {
	bus := feed.NewBus()
	engine := stats.NewEngine(bus, zap.NewNop())
	hub, srv := startHub(t, engine.Snapshot)

	first := dialOverlay(t, srv)
	second := dialOverlay(t, srv)
	for i := 0; i < 40; i++ {
		readStat(t, first)
		readStat(t, second)
	}

	_, err := engine.Subscribe(stats.EventChange, hub.Publish)
	require.NoError(t, err)
	require.NoError(t, engine.Start())
	for i := 0; i < 40; i++ {
		readStat(t, first)
		readStat(t, second)
	}

	require.NoError(t, bus.Publish(feed.NewKillEvent(int(stats.GoldStripes), int(stats.BlueQueen))))

	for _, conn := range []*websocket.Conn{first, second} {
		var got []stats.Change
		for i := 0; i < 4; i++ {
			got = append(got, readStat(t, conn).Data)
		}
		assert.Equal(t, []stats.Change{
			{Entity: stats.BlueQueen, Statistic: stats.Deaths, Value: 1},
			{Entity: stats.GoldStripes, Statistic: stats.Kills, Value: 1},
			{Entity: stats.GoldStripes, Statistic: stats.QueenKills, Value: 1},
			{Entity: stats.GoldStripes, Statistic: stats.OtherKills, Value: 0},
		}, got)
	}

	assert.Equal(t, 2, hub.ClientCount())
}

func TestHealthz(t *testing.T) {
	_, srv := startHub(t, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["clients"])
}

func TestHubPublishAfterStopDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil, 1, zap.NewNop())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(stats.Change{Entity: stats.GoldQueen, Statistic: stats.Kills})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked after hub stopped")
	}
	assert.Equal(t, 0, hub.ClientCount())
}
