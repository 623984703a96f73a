package websocket

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/scoretally/internal/logger"
	"github.com/abrezinsky/scoretally/internal/models"
	"github.com/abrezinsky/scoretally/internal/scoring"
)

// Message types sent to clients
const (
	TypeSnapshot   = "snapshot"
	TypeChange     = "change"
	TypeTabulation = "tabulation"
)

const (
	sendBuffer = 64
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Scoreboards are served from other hosts
	},
}

// SnapshotSource returns the last computed tabulation of a contest
type SnapshotSource interface {
	Snapshot(contestID int) (scoring.Tabulation, bool)
}

// TabulationPayload is the payload of snapshot and tabulation messages
type TabulationPayload struct {
	ContestID  int                 `json:"contest_id"`
	Tabulation *scoring.Tabulation `json:"tabulation"`
}

type outbound struct {
	contestID int
	msg       models.WSMessage
}

// Hub keeps the connected clients of every contest and fans messages out
// to the clients watching that contest
type Hub struct {
	log        logger.Logger
	snapshots  SnapshotSource
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	contestID int
	send      chan models.WSMessage
}

// New creates a new Hub. snapshots may be nil.
func New(log logger.Logger, snapshots SnapshotSource) *Hub {
	return &Hub{
		log:        log,
		snapshots:  snapshots,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// Stop ends the main loop and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mutex.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			client.send <- h.snapshotMessage(client.contestID)
			n := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("client connected", "contest_id", client.contestID, "total_clients", n)

		case client := <-h.unregister:
			h.mutex.Lock()
			h.remove(client)
			n := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("client disconnected", "contest_id", client.contestID, "total_clients", n)

		case out := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if client.contestID != out.contestID {
					continue
				}
				select {
				case client.send <- out.msg:
				default:
					h.log.Warn("dropping slow client", "contest_id", client.contestID)
					h.remove(client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// remove must be called with the mutex held
func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) snapshotMessage(contestID int) models.WSMessage {
	payload := TabulationPayload{ContestID: contestID}
	if h.snapshots != nil {
		if tab, ok := h.snapshots.Snapshot(contestID); ok {
			payload.Tabulation = &tab
		}
	}
	return models.WSMessage{Type: TypeSnapshot, Payload: payload}
}

func (h *Hub) send(contestID int, msg models.WSMessage) {
	select {
	case h.broadcast <- outbound{contestID: contestID, msg: msg}:
	case <-h.done:
	}
}

// PublishChange sends a row change to the clients of its contest
func (h *Hub) PublishChange(ev models.ChangeEvent) {
	contestID := ev.ContestID
	if ev.Table == models.TableContests {
		contestID = ev.Key
	}
	if contestID == 0 {
		return
	}
	h.send(contestID, models.WSMessage{Type: TypeChange, Payload: ev})
}

// PublishTabulation sends a recomputed tabulation to the clients of a contest
func (h *Hub) PublishTabulation(contestID int, tab scoring.Tabulation) {
	h.send(contestID, models.WSMessage{
		Type:    TypeTabulation,
		Payload: TabulationPayload{ContestID: contestID, Tabulation: &tab},
	})
}

// Clients returns how many clients watch a contest
func (h *Hub) Clients(contestID int) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	n := 0
	for c := range h.clients {
		if c.contestID == contestID {
			n++
		}
	}
	return n
}

// readPump drains the connection so close and pong frames are processed
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket error", "error", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.hub.log.Error("failed to encode websocket message", "type", message.Type, "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles /ws?contest_id=N
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	contestID, err := strconv.Atoi(r.URL.Query().Get("contest_id"))
	if err != nil || contestID <= 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"VALIDATION_ERROR","error":"contest_id is required"}`))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		contestID: contestID,
		send:      make(chan models.WSMessage, sendBuffer),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
