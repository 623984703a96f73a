package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/scoretally/internal/logger"
	"github.com/abrezinsky/scoretally/internal/models"
	"github.com/abrezinsky/scoretally/internal/scoring"
)

type fakeSnapshots struct {
	mu   sync.Mutex
	tabs map[int]scoring.Tabulation
}

func (f *fakeSnapshots) Snapshot(contestID int) (scoring.Tabulation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tab, ok := f.tabs[contestID]
	return tab, ok
}

type received struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newServer(t *testing.T, snaps SnapshotSource) (*Hub, string) {
	t.Helper()
	hub := New(logger.Discard(), snaps)
	hub.Start()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})
	return hub, "ws" + server.URL[4:]
}

func dial(t *testing.T, url string, contestID int) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url+"?contest_id="+strconv.Itoa(contestID), nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func read(t *testing.T, ws *websocket.Conn) received {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg received
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal message: %v", err)
	}
	return msg
}

func waitClients(t *testing.T, hub *Hub, contestID, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Clients(contestID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d clients for contest %d, got %d", want, contestID, hub.Clients(contestID))
}

func TestServeWs_SnapshotOnConnect(t *testing.T) {
	snaps := &fakeSnapshots{tabs: map[int]scoring.Tabulation{
		7: {ContestID: 7, Standings: []scoring.Standing{{ParticipantID: 1, Number: "1", Rank: 1, Total: 88.5}}},
	}}
	_, url := newServer(t, snaps)

	ws := dial(t, url, 7)
	msg := read(t, ws)
	if msg.Type != TypeSnapshot {
		t.Fatalf("expected snapshot, got %s", msg.Type)
	}
	var payload TabulationPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if payload.ContestID != 7 || payload.Tabulation == nil || payload.Tabulation.Standings[0].Total != 88.5 {
		t.Errorf("unexpected snapshot: %+v", payload)
	}

	// A contest nothing is known about still gets an empty snapshot
	other := dial(t, url, 8)
	msg = read(t, other)
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if msg.Type != TypeSnapshot || payload.Tabulation != nil {
		t.Errorf("expected empty snapshot, got %s %+v", msg.Type, payload)
	}
}

func TestServeWs_RequiresContest(t *testing.T) {
	_, url := newServer(t, nil)
	for _, q := range []string{"", "?contest_id=abc", "?contest_id=0"} {
		_, resp, err := websocket.DefaultDialer.Dial(url+q, nil)
		if err == nil {
			t.Errorf("%q: expected dial to fail", q)
			continue
		}
		if resp == nil || resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %v", q, resp)
		}
	}
}

func TestHub_RoutesByContest(t *testing.T) {
	hub, url := newServer(t, nil)
	gown := dial(t, url, 1)
	talent := dial(t, url, 2)
	read(t, gown)
	read(t, talent)
	waitClients(t, hub, 1, 1)
	waitClients(t, hub, 2, 1)

	hub.PublishChange(models.ChangeEvent{Table: models.TableScores, Op: models.OpInsert, Key: 10, ContestID: 2})
	hub.PublishTabulation(1, scoring.Tabulation{ContestID: 1})

	if msg := read(t, gown); msg.Type != TypeTabulation {
		t.Errorf("contest 1 client expected tabulation, got %s", msg.Type)
	}
	msg := read(t, talent)
	if msg.Type != TypeChange {
		t.Fatalf("contest 2 client expected change, got %s", msg.Type)
	}
	var ev models.ChangeEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		t.Fatalf("bad change payload: %v", err)
	}
	if ev.Table != models.TableScores || ev.Key != 10 {
		t.Errorf("unexpected change: %+v", ev)
	}
}

func TestHub_ContestRowChangeUsesKey(t *testing.T) {
	hub, url := newServer(t, nil)
	ws := dial(t, url, 3)
	read(t, ws)
	waitClients(t, hub, 3, 1)

	// Unscoped rows go nowhere
	hub.PublishChange(models.ChangeEvent{Table: models.TableJudges, Op: models.OpUpdate, Key: 5})
	hub.PublishChange(models.ChangeEvent{Table: models.TableContests, Op: models.OpUpdate, Key: 3})

	msg := read(t, ws)
	if msg.Type != TypeChange {
		t.Fatalf("expected change, got %s", msg.Type)
	}
	var ev models.ChangeEvent
	json.Unmarshal(msg.Payload, &ev)
	if ev.Table != models.TableContests {
		t.Errorf("expected the contest row change, got %+v", ev)
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := New(logger.Discard(), nil)
	hub.Start()
	defer hub.Stop()

	// The snapshot fills the one-slot buffer
	slow := &Client{hub: hub, contestID: 4, send: make(chan models.WSMessage, 1)}
	hub.register <- slow
	waitClients(t, hub, 4, 1)

	hub.PublishTabulation(4, scoring.Tabulation{ContestID: 4})
	waitClients(t, hub, 4, 0)

	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Error("expected send channel closed after drop")
	}
}

func TestServeWs_ClientDisconnect(t *testing.T) {
	hub, url := newServer(t, nil)
	ws := dial(t, url, 1)
	read(t, ws)
	waitClients(t, hub, 1, 1)

	ws.Close()
	waitClients(t, hub, 1, 0)
}

func TestHub_StopDisconnects(t *testing.T) {
	hub, url := newServer(t, nil)
	ws := dial(t, url, 1)
	read(t, ws)
	waitClients(t, hub, 1, 1)

	hub.Stop()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("expected the connection to close after Stop")
	}

	// Publishing after Stop must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.PublishTabulation(1, scoring.Tabulation{})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("publish blocked after Stop")
	}
}

func TestHub_MultipleInstances_NoGlobalState(t *testing.T) {
	hub1, url1 := newServer(t, nil)
	hub2, _ := newServer(t, nil)

	ws := dial(t, url1, 1)
	read(t, ws)
	waitClients(t, hub1, 1, 1)
	if hub2.Clients(1) != 0 {
		t.Error("expected hubs to be independent")
	}
}
