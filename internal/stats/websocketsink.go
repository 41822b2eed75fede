package stats

import (
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketSink streams each PassRecord as JSON to a connected
// debugger/visualizer over a single attached websocket connection.
type WebSocketSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketSink wraps an already-established *websocket.Conn; dialing
// and upgrade handshakes are the caller's concern.
func NewWebSocketSink(conn *websocket.Conn) *WebSocketSink {
	return &WebSocketSink{conn: conn}
}

// Record writes r as a single JSON text message.
func (w *WebSocketSink) Record(r PassRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(passRecordWire{
		RunID:     r.RunID.String(),
		PassID:    r.PassID,
		PreNodes:  r.PreNodes,
		PostNodes: r.PostNodes,
		ElapsedNs: r.Elapsed.Nanoseconds(),
	})
}

// Close closes the underlying connection.
func (w *WebSocketSink) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.Close()
}

type passRecordWire struct {
	RunID     string `json:"run_id"`
	PassID    string `json:"pass_id"`
	PreNodes  int    `json:"pre_nodes"`
	PostNodes int    `json:"post_nodes"`
	ElapsedNs int64  `json:"elapsed_ns"`
}
