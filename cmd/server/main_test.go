package main

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/miretskiy/colocsim/simulator"
)

func dialTestServer(t *testing.T) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(newServeMux(serverOptions{
		tickInterval:   5 * time.Millisecond,
		periodsPerTick: 2,
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	var msg ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestServer_StreamsRunToCompletion(t *testing.T) {
	conn := dialTestServer(t)

	status := readMessage(t, conn)
	require.Equal(t, "status", status.Type)
	require.NotNil(t, status.Running)
	require.False(t, *status.Running)

	config := simulator.DefaultConfig()
	config.Tenants = 2
	config.CallRates = []float64{2, 1}
	config.MinTenantCalls = 100
	config.KeySpaceSizes = []int{30}
	config.DedicatedCapacities = []int{5}
	config.RecordingPeriod = 25
	config.RandomSeed = 17
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "start", Config: &config}))

	var designated []simulator.DesignatedResult
	var samples []SampleMessage
	var results *simulator.Results
	for results == nil || designated == nil {
		msg := readMessage(t, conn)
		switch msg.Type {
		case "designated":
			designated = msg.Designated
		case "sample":
			samples = append(samples, *msg.Sample)
		case "done":
			results = msg.Results
		case "error":
			t.Fatalf("unexpected error message: %s", msg.Error)
		}
	}

	require.Len(t, designated, 2)
	require.Equal(t, 200, designated[0].Calls)
	require.Equal(t, 100, designated[1].Calls)

	require.NotEmpty(t, samples)
	for i := 1; i < len(samples); i++ {
		require.Greater(t, samples[i].Calls, samples[i-1].Calls)
	}
	last := samples[len(samples)-1]
	require.Equal(t, 300, last.Calls)
	require.Equal(t, 300, last.TotalCalls)
	require.Len(t, last.HitRates, 2)

	require.Equal(t, 10, results.Colocated.Capacity)
	require.Equal(t, []int{200, 100}, results.Colocated.Calls)
	require.Equal(t, last.HitRates[0], results.Tenants[0].Series.Last().HitRate)

	require.Equal(t, 300.0, testutil.ToFloat64(promMetrics.callsProcessed))
	require.Equal(t, designated[1].MissRate, testutil.ToFloat64(promMetrics.designatedMissRate.WithLabelValues("2")))
}

func TestServer_RejectsInvalidConfig(t *testing.T) {
	conn := dialTestServer(t)
	require.Equal(t, "status", readMessage(t, conn).Type)

	config := simulator.DefaultConfig()
	config.MinTenantCalls = 1
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "start", Config: &config}))

	msg := readMessage(t, conn)
	require.Equal(t, "error", msg.Type)
	require.Contains(t, msg.Error, "minTenantCalls")
}

func TestServer_UnknownCommand(t *testing.T) {
	conn := dialTestServer(t)
	require.Equal(t, "status", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "rewind"}))
	msg := readMessage(t, conn)
	require.Equal(t, "error", msg.Type)
	require.Contains(t, msg.Error, "rewind")
}

func TestServer_PauseAndReset(t *testing.T) {
	conn := dialTestServer(t)
	require.Equal(t, "status", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "pause"}))
	msg := readMessage(t, conn)
	require.Equal(t, "status", msg.Type)
	require.False(t, *msg.Running)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "reset"}))
	msg = readMessage(t, conn)
	require.Equal(t, "status", msg.Type)
	require.False(t, *msg.Running)
	require.Equal(t, 1, msg.Config.Tenants)
}

func TestClientMessage_StartConfigKeepsDefaults(t *testing.T) {
	var msg ClientMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"start","config":{"minTenantCalls":50,"randomSeed":9}}`), &msg))
	require.Equal(t, "start", msg.Type)
	require.NotNil(t, msg.Config)
	require.Equal(t, 50, msg.Config.MinTenantCalls)
	require.Equal(t, []int{100}, msg.Config.KeySpaceSizes)
	require.NoError(t, msg.Config.Validate())

	require.NoError(t, json.Unmarshal([]byte(`{"type":"pause"}`), &msg))
	require.Nil(t, msg.Config)
}

func TestServer_StartWithPartialConfig(t *testing.T) {
	conn := dialTestServer(t)
	require.Equal(t, "status", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"start","config":{"minTenantCalls":20,"recordingPeriod":5,"randomSeed":2}}`)))

	for {
		msg := readMessage(t, conn)
		require.NotEqual(t, "error", msg.Type, msg.Error)
		if msg.Type == "done" {
			require.Equal(t, 20, msg.Results.Colocated.TotalCalls)
			require.Equal(t, 80, msg.Results.Colocated.Capacity)
			return
		}
	}
}
