package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/auctiondraft/go/internal/draft"
	"github.com/mcdev12/auctiondraft/go/internal/draft/events"
	"github.com/mcdev12/auctiondraft/go/internal/models"
)

type fakeState struct {
	mu    sync.Mutex
	views map[uuid.UUID]*models.DraftSessionView
}

func (f *fakeState) set(view models.DraftSessionView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views[view.LeagueID] = &view
}

func (f *fakeState) GetDraft(ctx context.Context, leagueID uuid.UUID) (*models.DraftSessionView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.views[leagueID], nil
}

func (f *fakeState) GetDraftByID(ctx context.Context, draftID uuid.UUID) (*models.DraftSessionView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.views {
		if v.ID == draftID {
			return v, nil
		}
	}
	return nil, draft.ErrNotFound
}

type testGateway struct {
	svc    *Service
	state  *fakeState
	server *httptest.Server
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()

	state := &fakeState{views: make(map[uuid.UUID]*models.DraftSessionView)}
	svc := NewService(DefaultConfig())
	svc.UseStateProvider(state)

	r := mux.NewRouter()
	svc.RegisterRoutes(r)
	svc.RegisterStateRoutes(r)
	server := httptest.NewServer(r)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.Start(ctx)
	}()

	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
	})
	return &testGateway{svc: svc, state: state, server: server}
}

func (g *testGateway) dial(t *testing.T, leagueID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(g.server.URL, "http") + "/ws/draft?league_id=" + leagueID.String() + "&user_id=tester"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func bidEnvelope(t *testing.T, leagueID uuid.UUID, seq int64) events.Envelope {
	t.Helper()
	env, err := events.NewEnvelope(uuid.New(), leagueID, seq, time.Now(), events.BidPlacedPayload{
		Amount:         float64(10 + seq),
		Bidder:         events.BidderInfo{ID: uuid.NewString(), TeamName: "Aces"},
		TimerRemaining: 30,
	})
	require.NoError(t, err)
	return env
}

func TestConnectSendsSnapshotThenEvents(t *testing.T) {
	g := newTestGateway(t)
	leagueID := uuid.New()
	g.state.set(models.DraftSessionView{ID: uuid.New(), LeagueID: leagueID, Status: models.DraftStatusItemOpen, Seq: 7})

	conn := g.dial(t, leagueID)

	var snap SnapshotMessage
	readJSON(t, conn, &snap)
	assert.Equal(t, TypeSnapshot, snap.Type)
	assert.Equal(t, int64(7), snap.Seq)
	require.NotNil(t, snap.Data)
	assert.Equal(t, models.DraftStatusItemOpen, snap.Data.Status)

	g.svc.Broadcaster().Broadcast([]events.Envelope{bidEnvelope(t, leagueID, 8)})

	var env events.Envelope
	readJSON(t, conn, &env)
	assert.Equal(t, events.TypeBidPlaced, env.Type)
	assert.Equal(t, int64(8), env.Seq)
	ev, err := env.Decode()
	require.NoError(t, err)
	assert.Equal(t, 18.0, ev.(*events.BidPlacedPayload).Amount)
}

func TestSnapshotForLeagueWithoutDraft(t *testing.T) {
	g := newTestGateway(t)
	conn := g.dial(t, uuid.New())

	var snap SnapshotMessage
	readJSON(t, conn, &snap)
	assert.Equal(t, TypeSnapshot, snap.Type)
	assert.Nil(t, snap.Data)
	assert.Zero(t, snap.Seq)
}

func TestSyncRequestReturnsFreshSnapshot(t *testing.T) {
	g := newTestGateway(t)
	leagueID := uuid.New()
	draftID := uuid.New()
	g.state.set(models.DraftSessionView{ID: draftID, LeagueID: leagueID, Seq: 3})

	conn := g.dial(t, leagueID)
	var first SnapshotMessage
	readJSON(t, conn, &first)
	assert.Equal(t, int64(3), first.Seq)

	g.state.set(models.DraftSessionView{ID: draftID, LeagueID: leagueID, Seq: 9})
	require.NoError(t, conn.WriteJSON(map[string]string{"type": TypeSync}))

	var second SnapshotMessage
	readJSON(t, conn, &second)
	assert.Equal(t, TypeSnapshot, second.Type)
	assert.Equal(t, int64(9), second.Seq)
}

func TestBroadcastStaysWithinLeague(t *testing.T) {
	g := newTestGateway(t)
	leagueA, leagueB := uuid.New(), uuid.New()

	connA := g.dial(t, leagueA)
	connB := g.dial(t, leagueB)
	var snap SnapshotMessage
	readJSON(t, connA, &snap)
	readJSON(t, connB, &snap)

	require.Eventually(t, func() bool {
		return g.svc.Stats().TotalConnections == 2
	}, time.Second, 5*time.Millisecond)
	stats := g.svc.Stats()
	assert.Equal(t, 2, stats.ActiveLeagues)
	assert.Equal(t, 1, stats.LeagueConnections[leagueA.String()])

	g.svc.Broadcaster().Broadcast([]events.Envelope{bidEnvelope(t, leagueB, 1)})

	var env events.Envelope
	readJSON(t, connB, &env)
	assert.Equal(t, leagueB, env.LeagueID)

	require.NoError(t, connA.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := connA.ReadMessage()
	assert.Error(t, err, "league A must not see league B's events")
}

func TestSlowConnectionIsDropped(t *testing.T) {
	cm := NewConnectionManager(ConnectionConfig{SendBufferSize: 1})
	leagueID := uuid.New()
	conn := &Connection{ID: "slow", LeagueID: leagueID, Send: make(chan []byte, 1), Manager: cm}
	cm.registerConnection(conn)

	cm.handleBroadcast(broadcastMessage{LeagueID: leagueID, Data: []byte("1")})
	assert.Equal(t, 1, cm.Stats().TotalConnections)

	cm.handleBroadcast(broadcastMessage{LeagueID: leagueID, Data: []byte("2")})
	assert.Equal(t, 0, cm.Stats().TotalConnections)

	msg, ok := <-conn.Send
	assert.True(t, ok)
	assert.Equal(t, "1", string(msg))
	_, ok = <-conn.Send
	assert.False(t, ok, "send channel is closed on unregister")
}

func TestStateRoutes(t *testing.T) {
	g := newTestGateway(t)
	leagueID, draftID := uuid.New(), uuid.New()
	g.state.set(models.DraftSessionView{ID: draftID, LeagueID: leagueID, Seq: 2})

	resp, err := http.Get(g.server.URL + "/api/drafts/" + draftID.String() + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Draft models.DraftSessionView `json:"draft"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(2), body.Draft.Seq)

	missing, err := http.Get(g.server.URL + "/api/drafts/" + uuid.NewString() + "/state")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	bad, err := http.Get(g.server.URL + "/api/leagues/nope/draft")
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestDecodeEnvelope(t *testing.T) {
	env := bidEnvelope(t, uuid.New(), 4)
	data, err := json.Marshal(env)
	require.NoError(t, err)

	got, err := decodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, env.ID, got.ID)
	assert.Equal(t, int64(4), got.Seq)

	_, err = decodeEnvelope([]byte("{"))
	assert.Error(t, err)

	env.Type = "draft:unknown"
	data, err = json.Marshal(env)
	require.NoError(t, err)
	_, err = decodeEnvelope(data)
	assert.Error(t, err)
}

func TestInstanceConsumerName(t *testing.T) {
	t.Setenv("GATEWAY_ID", "pod.a*b>c d")
	assert.Equal(t, "draft-gateway-pod-a-b-c-d", InstanceConsumerName("draft-gateway"))
}
