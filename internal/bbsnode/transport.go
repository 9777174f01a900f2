package bbsnode

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// RemoteLink ships Broadcast/SysopLogin/SysopLogout messages to a peer
// process running its own NodeTable, for multi-process deployments where
// nodes aren't all hosted in one binary. It is a narrow collaborator: the
// table itself never depends on it, a session only reaches for one when a
// board's config names a peer to relay to.
type RemoteLink struct {
	conn *websocket.Conn
}

// DialRemoteLink opens a websocket connection to a peer icyboard process's
// broadcast relay endpoint.
func DialRemoteLink(url string) (*RemoteLink, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &RemoteLink{conn: conn}, nil
}

// wireMessage is RemoteLink's JSON frame shape; MessageKind round-trips as
// a small integer since both ends share this package's const block.
type wireMessage struct {
	Kind MessageKind `json:"kind"`
	From int         `json:"from"`
	Text string      `json:"text"`
}

// Send relays msg to the peer table.
func (l *RemoteLink) Send(msg Message) error {
	return l.conn.WriteJSON(wireMessage{Kind: msg.Kind, From: msg.From, Text: msg.Text})
}

// Close releases the underlying websocket connection.
func (l *RemoteLink) Close() error {
	return l.conn.Close()
}

// Relay runs until the connection closes, applying every inbound peer
// message to local by calling local.Broadcast with From forced negative so
// it is never mistaken for one of local's own node indices.
func (l *RemoteLink) Relay(local *NodeTable) error {
	for {
		var wm wireMessage
		if err := l.conn.ReadJSON(&wm); err != nil {
			return err
		}
		local.Broadcast(-1, wm.Kind, wm.Text)
	}
}

// ServeRemoteLink upgrades an incoming HTTP request into a websocket peer
// connection and relays its frames into local, for the accept side of a
// two-process broadcast bridge.
func ServeRemoteLink(upgrader websocket.Upgrader, local *NodeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		link := &RemoteLink{conn: conn}
		go link.Relay(local)
	}
}
