package live

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/spool/pkg/events"
)

// client is one connected page.
type client struct {
	conn *websocket.Conn
	path string
	send chan []byte
	done chan struct{}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		s.metrics.RecordWebSocketError("upgrade")
		return
	}

	c := &client{
		conn: conn,
		path: pagePath(r),
		send: make(chan []byte, s.config.SendBuffer),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.metrics.RecordConnect()
	s.logger.Debug("client connected", "path", c.path)

	go s.writeLoop(c)

	// The page may have changed between its render and the connection.
	s.push(context.Background(), c)

	s.readLoop(c)
}

// readLoop applies actions sent by c until the connection fails.
func (s *Server) readLoop(c *client) {
	defer s.remove(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read error", "error", err)
				s.metrics.RecordWebSocketError("read")
			}
			return
		}

		action, err := events.ParseAction(data)
		if err != nil {
			s.logger.Debug("invalid action", "error", err)
			s.metrics.RecordWebSocketError("decode")
			continue
		}
		if _, err := s.apply(context.Background(), action); err != nil {
			s.logger.Warn("action failed", "type", action.Type, "name", action.Name, "error", err)
		}
	}
}

func (s *Server) writeLoop(c *client) {
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.metrics.RecordWebSocketError("write")
				_ = c.conn.Close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = c.conn.Close()
			return
		}
	}
}

// remove unregisters c. It is safe to call more than once.
func (s *Server) remove(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if !ok {
		return
	}
	close(c.done)
	s.metrics.RecordDisconnect()
	s.logger.Debug("client disconnected", "path", c.path)
}

func (s *Server) closeClients() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		s.remove(c)
	}
}

// broadcast renders and pushes the current body to every client. Each path
// is rendered once.
func (s *Server) broadcast(ctx context.Context) {
	s.mu.Lock()
	byPath := make(map[string][]*client)
	for c := range s.clients {
		byPath[c.path] = append(byPath[c.path], c)
	}
	s.mu.Unlock()

	for path, clients := range byPath {
		body, err := s.renderBody(ctx, path)
		if err != nil {
			s.logger.Error("push render failed", "path", path, "error", err)
			continue
		}
		for _, c := range clients {
			s.enqueue(c, body)
		}
	}
}

func (s *Server) push(ctx context.Context, c *client) {
	body, err := s.renderBody(ctx, c.path)
	if err != nil {
		s.logger.Error("push render failed", "path", c.path, "error", err)
		return
	}
	s.enqueue(c, body)
}

// enqueue hands body to the client's writer. A client whose buffer is full
// is dropped.
func (s *Server) enqueue(c *client, body []byte) {
	select {
	case c.send <- body:
		s.metrics.RecordPush(1)
	case <-c.done:
	default:
		s.logger.Warn("client too slow, dropping", "path", c.path)
		s.metrics.RecordWebSocketError("overflow")
		s.remove(c)
	}
}

// clientScript connects a page to the server. Each message replaces the
// root element; clicks on elements carrying data-click send the action.
func clientScript(wsPath string) string {
	return `(function(){` +
		`var root=document.getElementById(document.currentScript.dataset.spoolRoot);` +
		`var proto=location.protocol==="https:"?"wss://":"ws://";` +
		`var ws=new WebSocket(proto+location.host+` + strconv.Quote(wsPath) + `+"?path="+encodeURIComponent(location.pathname));` +
		`ws.onmessage=function(e){var d=document.createElement("div");d.innerHTML=e.data;` +
		`var next=d.firstElementChild;if(next){root.replaceWith(next);root=next;}};` +
		`document.addEventListener("click",function(e){` +
		`var el=e.target.closest("[data-click]");` +
		`if(el&&ws.readyState===1){e.preventDefault();ws.send(el.dataset.click);}});` +
		`})();`
}
