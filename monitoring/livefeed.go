package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/drivelab/scenrunner/runner"
)

// tickMessage is the wire form of one tick on the live feed.
type tickMessage struct {
	Tick            uint64  `json:"tick"`
	Frame           uint64  `json:"frame"`
	GameTime        float64 `json:"game_time"`
	TreeStatus      string  `json:"tree_status"`
	AgentLatencySec float64 `json:"agent_latency_sec"`
}

// liveFeed maintains the set of websocket clients subscribed to tick
// updates. Clients that cannot keep up are dropped.
type liveFeed struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func newLiveFeed() *liveFeed {
	return &liveFeed{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

func (f *liveFeed) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	send := make(chan []byte, 64)

	f.mu.Lock()
	f.clients[conn] = send
	f.mu.Unlock()

	go f.writePump(conn, send)
	go f.readPump(conn)
}

// readPump consumes incoming frames so that close frames and control
// messages are processed. A read error means the client is gone.
func (f *liveFeed) readPump(conn *websocket.Conn) {
	defer func() {
		f.drop(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *liveFeed) writePump(conn *websocket.Conn, send chan []byte) {
	defer func() {
		f.drop(conn)
		conn.Close()
	}()

	for msg := range send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (f *liveFeed) clientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *liveFeed) drop(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if send, ok := f.clients[conn]; ok {
		delete(f.clients, conn)
		close(send)
	}
}

func (f *liveFeed) broadcast(rec runner.TickRecord) {
	msg := tickMessage{
		Tick:            rec.Tick,
		Frame:           rec.Frame,
		GameTime:        float64(rec.GameTime),
		TreeStatus:      rec.TreeStatus.String(),
		AgentLatencySec: rec.AgentLatency.Seconds(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for conn, send := range f.clients {
		select {
		case send <- payload:
		default:
			delete(f.clients, conn)
			close(send)
		}
	}
}
