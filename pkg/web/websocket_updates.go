package web

import (
	"context"
	"io"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"
)

/* WSRelay fans portal Changes out to every websocket client.
 *
 * The client set belongs to the relay goroutine. Socket handlers
 * join with their bootstrap Change, which the relay sends before
 * anything else, and leave when the peer hangs up. A client whose
 * send fails is dropped on the spot.
 */
type WSRelay struct {
	changes chan wificonnect.Change
	join    chan subscriber
	leave   chan *websocket.Conn
	log     logrus.FieldLogger
}

type subscriber struct {
	ws    *websocket.Conn
	first wificonnect.Change
	// closed by the relay once it lets go of ws
	dropped chan struct{}
}

func NewWSRelay(changes chan wificonnect.Change, log logrus.FieldLogger) *WSRelay {
	return &WSRelay{
		changes: changes,
		join:    make(chan subscriber),
		leave:   make(chan *websocket.Conn),
		log:     log.WithField("system", "wsrelay"),
	}
}

func (t *WSRelay) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		clients := map[*websocket.Conn]chan struct{}{}
		drop := func(ws *websocket.Conn) {
			if dropped, ok := clients[ws]; ok {
				close(dropped)
				delete(clients, ws)
			}
		}

		started <- true
	mainloop:
		for {
			select {
			case <-stop:
				break mainloop

			case s := <-t.join:
				clients[s.ws] = s.dropped
				if !t.send(s.ws, s.first) {
					drop(s.ws)
				}

			case ws := <-t.leave:
				drop(ws)

			case c := <-t.changes:
				for ws := range clients {
					if !t.send(ws, c) {
						drop(ws)
					}
				}
			}
		}

		for ws := range clients {
			drop(ws)
		}
		stopped <- true
	}()
	return nil
}

func (t *WSRelay) send(ws *websocket.Conn, c wificonnect.Change) bool {
	if err := websocket.JSON.Send(ws, c); err != nil {
		t.log.WithError(err).Debug("dropping websocket")
		return false
	}
	return true
}

// Handler subscribes each connection, starting it off with first().
func (t *WSRelay) Handler(first func() wificonnect.Change) *websocket.Server {
	return &websocket.Server{
		Handler: func(ws *websocket.Conn) {
			s := subscriber{ws: ws, first: first(), dropped: make(chan struct{})}
			select {
			case t.join <- s:
			case <-ws.Request().Context().Done():
				return
			}

			// clients never talk; the read ends when the peer goes away
			hungup := make(chan struct{})
			go func() {
				io.Copy(io.Discard, ws)
				close(hungup)
			}()

			select {
			case <-s.dropped:
			case <-hungup:
				select {
				case t.leave <- ws:
				case <-s.dropped:
				}
			}
		},
	}
}
