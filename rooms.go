package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

// RoomManager owns room lifetimes: rooms are created here, looked up here,
// and live in process memory until shutdown. Sessions never add or remove
// themselves.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	cfg    *Config
	source questionSource
}

func newRoomManager(cfg *Config, source questionSource) *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]*Room),
		cfg:    cfg,
		source: source,
	}
}

// Create makes a new room for the given host and returns it. The share code
// is the first six characters of the room id, uppercased, matching what
// clients print on the host display.
func (m *RoomManager) Create(hostName string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	code := strings.ToUpper(id[:6])
	room := newRoom(m.cfg, id, code, hostName, m.source)
	m.rooms[id] = room

	return room
}

// Get returns the room with the given id, or nil if it does not exist.
func (m *RoomManager) Get(id string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.rooms[id]
}

// Remove drops a room from the directory. In-flight connections keep their
// reference; new ones can no longer find it.
func (m *RoomManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rooms, id)
}

func createRoom(cfg *Config, manager *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var request struct {
			HostName string `json:"host_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}

		room := manager.Create(request.HostName)

		logf(cfg, "ROOMS: Created room %s (%s) for host %q from %s", room.code, room.id, request.HostName, realIP(r))

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"room_id":   room.id,
			"room_code": room.code,
		})
	}
}

func lookupRoom(cfg *Config, manager *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room := manager.Get(ps.ByName("roomid"))
		if room == nil {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"room_id":      room.id,
			"host_name":    room.hostName,
			"player_count": room.PlayerCount(),
		})
	}
}
