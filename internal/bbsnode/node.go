// Package bbsnode tracks the set of active session slots a board exposes
// (spec.md §3.5/§5/§4.6's "NodeTable"): one NodeState per configured node,
// cross-node message delivery, and a WHO'S-ON style status listing. The
// table's own mutex is only ever held across a single read/modify/write —
// never while a node blocks on network or keyboard I/O — so a node waiting
// on a caller's keystroke can never be the reason another node's status
// update stalls (spec.md §5's "no cross-lock" invariant).
package bbsnode

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"github.com/icyboard/icyboard/internal/bbsterm"
)

// Status is a node's coarse activity tag, shown in the WHO'S ON listing.
type Status int

const (
	Offline Status = iota
	Waiting
	LoggingIn
	Active
	InChat
	Paused
)

func (s Status) String() string {
	switch s {
	case Offline:
		return "Offline"
	case Waiting:
		return "Waiting for caller"
	case LoggingIn:
		return "Logging in"
	case Active:
		return "Active"
	case InChat:
		return "Chatting with sysop"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// MessageKind tags the three cross-node events spec.md §4.6 names.
type MessageKind int

const (
	Broadcast MessageKind = iota
	SysopLogin
	SysopLogout
)

// Message is delivered into a NodeState's inbox; Session's command loop
// polls it once before each command prompt (a select with a default case),
// so delivery never blocks waiting on the inbox (spec.md §4.6).
type Message struct {
	Kind MessageKind
	From int // node index the message originated from, -1 for system
	Text string
}

// NodeState is one session slot's externally-visible state plus its
// private inbox. SessionID is a uuid so log lines and websocket frames can
// name a node's *current* occupant without colliding across reconnects.
type NodeState struct {
	Index     int
	SessionID uuid.UUID
	Status    Status
	UserAlias string
	Mode      bbsterm.GraphicsMode
	LoggedAt  time.Time

	inbox chan Message
}

// Inbox returns the channel a session's get_char loop should select on
// alongside its keyboard read.
func (n *NodeState) Inbox() <-chan Message { return n.inbox }

// NodeTable is the shared registry every session borrows (spec.md's
// Arc<Mutex<NodeTable>>, minus the Arc since Go shares pointers by
// default).
type NodeTable struct {
	mu    sync.Mutex
	nodes []*NodeState
}

// NewTable allocates n empty (Offline) node slots, each with a buffered
// inbox so Broadcast never blocks on a slow or idle node.
func NewTable(n int) *NodeTable {
	t := &NodeTable{nodes: make([]*NodeState, n)}
	for i := range t.nodes {
		t.nodes[i] = &NodeState{Index: i, Status: Offline, inbox: make(chan Message, 16)}
	}
	return t
}

// Len reports the configured node count.
func (t *NodeTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}

// Join claims node idx for a freshly connected session, returning its
// NodeState for the session to hold onto for the rest of the call.
func (t *NodeTable) Join(idx int, mode bbsterm.GraphicsMode) (*NodeState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.nodes) {
		return nil, fmt.Errorf("bbsnode: node index %d out of range", idx)
	}
	n := t.nodes[idx]
	n.SessionID = uuid.New()
	n.Status = Waiting
	n.Mode = mode
	n.LoggedAt = time.Time{}
	return n, nil
}

// Login records a successful logon on node idx for the WHO'S ON listing.
func (t *NodeTable) Login(idx int, alias string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.nodes) {
		return
	}
	n := t.nodes[idx]
	n.UserAlias = alias
	n.Status = Active
	n.LoggedAt = time.Now()
}

// SetStatus updates node idx's activity tag (e.g. InChat while a sysop
// chat is open, Paused while a more-prompt is outstanding).
func (t *NodeTable) SetStatus(idx int, s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx >= 0 && idx < len(t.nodes) {
		t.nodes[idx].Status = s
	}
}

// Leave releases node idx back to Offline on hangup.
func (t *NodeTable) Leave(idx int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.nodes) {
		return
	}
	n := t.nodes[idx]
	n.Status = Offline
	n.UserAlias = ""
	n.SessionID = uuid.Nil
}

// Broadcast enqueues msg on every node other than from (or every node, if
// from < 0). Sends never block: each inbox is buffered, and a full inbox
// drops the oldest pending message rather than stall the broadcaster,
// since a node that can't keep up with chat traffic should not be able to
// wedge the whole table.
func (t *NodeTable) Broadcast(from int, kind MessageKind, text string) {
	t.mu.Lock()
	targets := make([]chan Message, 0, len(t.nodes))
	for _, n := range t.nodes {
		if n.Index == from {
			continue
		}
		targets = append(targets, n.inbox)
	}
	t.mu.Unlock()

	msg := Message{Kind: kind, From: from, Text: text}
	for _, ch := range targets {
		select {
		case ch <- msg:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- msg:
			default:
			}
		}
	}
}

// Snapshot returns a point-in-time copy of every node's status, safe to
// render without holding the table lock.
func (t *NodeTable) Snapshot() []NodeState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]NodeState, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = *n
	}
	return out
}

// WhosOn renders the current node snapshot as the PCBoard "WHO'S ON"
// table, using tablewriter the same way cmd/ppeasm's disassembly listing
// does, so both surfaces share one rendering idiom.
func (t *NodeTable) WhosOn() string {
	snap := t.Snapshot()
	var buf strings.Builder
	tw := tablewriter.NewWriter(&buf)
	tw.SetHeader([]string{"Node", "Status", "User", "Since"})
	for _, n := range snap {
		since := ""
		if !n.LoggedAt.IsZero() {
			since = n.LoggedAt.Format("15:04:05")
		}
		alias := n.UserAlias
		if alias == "" {
			alias = "-"
		}
		tw.Append([]string{
			fmt.Sprintf("%d", n.Index+1),
			n.Status.String(),
			alias,
			since,
		})
	}
	tw.Render()
	return buf.String()
}
