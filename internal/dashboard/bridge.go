package dashboard

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/simplestclaw/claw/internal/gateway"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard binds to loopback only.
		return true
	},
}

// handleWebSocket bridges a browser connection to the gateway WebSocket,
// appending the auth token server-side.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	status := s.gateways.Status()
	if status.State != gateway.StateRunning {
		http.Error(w, "gateway not running", http.StatusServiceUnavailable)
		return
	}

	target, err := url.Parse(status.URL)
	if err != nil {
		http.Error(w, "invalid gateway url", http.StatusInternalServerError)
		return
	}

	query := target.Query()
	query.Set("token", status.Token)
	target.RawQuery = query.Encode()

	upstream, resp, err := websocket.DefaultDialer.DialContext(r.Context(), target.String(), nil)
	if err != nil {
		s.logger.Error("gateway dial failed", "error", err)
		http.Error(w, "gateway unreachable", http.StatusBadGateway)

		return
	}

	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	client, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		_ = upstream.Close()

		return
	}

	proxyConns(client, upstream)
}

// proxyConns copies frames in both directions until either side closes.
func proxyConns(client, upstream *websocket.Conn) {
	var once sync.Once

	closeBoth := func() {
		_ = client.Close()
		_ = upstream.Close()
	}

	var wg sync.WaitGroup

	pump := func(dst, src *websocket.Conn) {
		defer wg.Done()
		defer once.Do(closeBoth)

		for {
			msgType, payload, err := src.ReadMessage()
			if err != nil {
				return
			}

			if err := dst.WriteMessage(msgType, payload); err != nil {
				return
			}
		}
	}

	wg.Add(2)

	go pump(upstream, client)

	pump(client, upstream)
	wg.Wait()
}
