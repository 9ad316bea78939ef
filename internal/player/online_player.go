package player

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vincent99/chessboard/internal/chesscore"
)

// onlineMoveMessage is the wire shape of a move pushed down the remote
// game stream.
type onlineMoveMessage struct {
	UCI string `json:"uci"`
}

// OnlinePlayer subscribes to a remote game stream over a websocket, the
// same library and connection pattern the teacher's main.go uses for its
// /ws handler. Like EnginePlayer, the remote move it receives is a
// pending move: displayed via LED guidance, committed only once the human
// physically executes it.
type OnlinePlayer struct {
	url    string
	onMove MoveCallback

	mu   sync.Mutex
	conn *websocket.Conn
	quit chan struct{}
	pos  *chesscore.Position
}

// NewOnlinePlayer constructs a player that will dial url on Start.
func NewOnlinePlayer(url string, onMove MoveCallback) *OnlinePlayer {
	return &OnlinePlayer{url: url, onMove: onMove}
}

func (p *OnlinePlayer) Start() error {
	conn, _, err := websocket.DefaultDialer.Dial(p.url, nil)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.conn = conn
	p.quit = make(chan struct{})
	p.mu.Unlock()

	go p.readLoop(conn, p.quit)
	return nil
}

func (p *OnlinePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		close(p.quit)
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *OnlinePlayer) readLoop(conn *websocket.Conn, quit chan struct{}) {
	for {
		select {
		case <-quit:
			return
		default:
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("player: online stream closed: %v", err)
			return
		}
		var msg onlineMoveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		p.mu.Lock()
		pos := p.pos
		p.mu.Unlock()
		if pos == nil {
			continue
		}
		if m, ok := parseUCIMove(pos, msg.UCI); ok && p.onMove != nil {
			p.onMove(m)
		}
	}
}

// RequestMove records the current position so an incoming stream message
// can be resolved against it; the actual move arrives asynchronously.
func (p *OnlinePlayer) RequestMove(pos *chesscore.Position) {
	p.mu.Lock()
	p.pos = pos
	p.mu.Unlock()
}

func (p *OnlinePlayer) OnOpponentMove(m chesscore.Move, pos *chesscore.Position) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return
	}
	payload, _ := json.Marshal(onlineMoveMessage{UCI: m.UCI()})
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("player: failed to forward move to online stream: %v", err)
	}
}

func (p *OnlinePlayer) OnNewGame() {}
