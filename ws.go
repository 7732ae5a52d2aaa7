package main

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Close code sent when a client connects to a room that does not exist.
const closeRoomNotFound = 4004

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client wraps one websocket connection with a buffered outbound channel.
// trySend never blocks: a full buffer means the message is dropped, and the
// caller decides (by discarding the result) that best-effort is enough.
type client struct {
	conn *websocket.Conn
	send chan any
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan any, 32),
	}
}

func (c *client) trySend(msg any) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// shutdown closes the outbound channel, letting writePump drain and close
// the connection. Callers must not trySend afterwards; the room guarantees
// this by only shutting down clients it has already detached.
func (c *client) shutdown() {
	c.once.Do(func() {
		close(c.send)
	})
}

func (c *client) writePump() {
	defer func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func refuseUnknownRoom(conn *websocket.Conn) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(closeRoomNotFound, "Room not found"),
		deadline,
	)
	_ = conn.Close()
}

// serveHostWS is the host channel: one connection per room, replacing any
// previous host connection in place.
func serveHostWS(cfg *Config, manager *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room := manager.Get(ps.ByName("roomid"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		if room == nil {
			refuseUnknownRoom(conn)
			return
		}

		c := newClient(conn)
		go c.writePump()
		room.SetHost(c)

		logf(cfg, "ROOMS: Host connected to room %s from %s", room.code, realIP(r))

		// Detach before shutdown so no room send can race the channel close.
		defer c.shutdown()
		defer room.HostClosed(c)

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			cmd, err := decodeHostCommand(data)
			if err != nil {
				logf(cfg, "ROOMS: Dropping host message in room %s: %v", room.code, err)
				continue
			}

			room.HandleHostCommand(cmd)
		}
	}
}

// servePlayerWS is the per-player channel, parameterized by the player's
// chosen display name. The name doubles as the reconnection key.
func servePlayerWS(cfg *Config, manager *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room := manager.Get(ps.ByName("roomid"))
		name := ps.ByName("name")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		if room == nil || name == "" {
			refuseUnknownRoom(conn)
			return
		}

		c := newClient(conn)
		go c.writePump()
		playerID := room.PlayerJoin(name, c)

		// Detach before shutdown so no room send can race the channel close.
		defer c.shutdown()
		defer room.PlayerClosed(playerID, c)

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			cmd, err := decodePlayerCommand(data)
			if err != nil {
				logf(cfg, "ROOMS: Dropping message from %q in room %s: %v", name, room.code, err)
				continue
			}

			room.HandlePlayerCommand(playerID, cmd)
		}
	}
}
