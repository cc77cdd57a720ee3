package telemetry

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Hub tracks live connections and the rooms they joined.
type Hub struct {
	mu    sync.RWMutex
	conns map[*Conn]bool
	rooms map[string]map[*Conn]bool

	states *StateStore
	now    func() time.Time

	// AdminAuth, when set, must accept the token sent with admin-connect.
	AdminAuth func(token string) bool
}

func NewHub(states *StateStore) *Hub {
	if states == nil {
		states = NewStateStore()
	}
	return &Hub{
		conns:  make(map[*Conn]bool),
		rooms:  make(map[string]map[*Conn]bool),
		states: states,
		now:    time.Now,
	}
}

func (h *Hub) States() *StateStore {
	return h.states
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.conns[c] = true
	n := len(h.conns)
	h.mu.Unlock()
	log.Debug().Str("conn", c.id).Int("connections", n).Msg("websocket connected")
}

// unregister removes c from every room. Stored playback states are kept.
func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	if !h.conns[c] {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c)
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	n := len(h.conns)
	h.mu.Unlock()

	c.closeSend()
	log.Debug().Str("conn", c.id).Str("device_id", c.device()).Int("connections", n).Msg("websocket disconnected")
}

func (h *Hub) join(c *Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Conn]bool)
	}
	h.rooms[room][c] = true
}

func (h *Hub) inRoom(c *Conn, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[room][c]
}

// RoomSize reports how many connections are in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) encode(event string, data any) ([]byte, bool) {
	env, err := NewEnvelope(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return nil, false
	}
	frame, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode frame")
		return nil, false
	}
	return frame, true
}

// EmitTo sends an event to one connection.
func (h *Hub) EmitTo(c *Conn, event string, data any) {
	if frame, ok := h.encode(event, data); ok {
		h.deliver([]*Conn{c}, frame)
	}
}

// Emit sends an event to every member of room.
func (h *Hub) Emit(room, event string, data any) {
	frame, ok := h.encode(event, data)
	if !ok {
		return
	}
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	h.deliver(targets, frame)
}

// Broadcast sends an event to every connection.
func (h *Hub) Broadcast(event string, data any) {
	frame, ok := h.encode(event, data)
	if !ok {
		return
	}
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	h.deliver(targets, frame)
}

// deliver never blocks; a connection whose buffer is full is dropped.
func (h *Hub) deliver(targets []*Conn, frame []byte) {
	for _, c := range targets {
		if !c.enqueue(frame) {
			log.Warn().Str("conn", c.id).Msg("dropping slow websocket client")
			h.unregister(c)
		}
	}
}

// Handle applies one inbound frame from c.
func (h *Hub) Handle(c *Conn, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		log.Debug().Err(err).Str("conn", c.id).Msg("ignoring malformed frame")
		return
	}

	switch env.Event {
	case EventTVRegister:
		var ref deviceRef
		if !decode(env, &ref) || ref.DeviceID == "" {
			return
		}
		c.setDevice(ref.DeviceID)
		h.join(c, TVRoom(ref.DeviceID))
		log.Info().Str("device_id", ref.DeviceID).Msg("tv registered on socket")
		if st, ok := h.states.Get(ref.DeviceID); ok {
			h.EmitTo(c, EventPlaybackState, st)
		}

	case EventPlaybackUpdate:
		var u playbackUpdate
		if !decode(env, &u) || u.DeviceID == "" {
			return
		}
		st := u.normalize(h.now().UnixMilli())
		h.states.Put(st)
		h.Emit(RoomAdmins, EventTVPlaybackUpdate, st)

	case EventAdminConnect:
		if h.AdminAuth != nil {
			var hello adminHello
			decode(env, &hello)
			if !h.AdminAuth(hello.Token) {
				log.Warn().Str("conn", c.id).Msg("rejected admin-connect")
				return
			}
		}
		h.join(c, RoomAdmins)
		h.sendAllStates(c)

	case EventRequestAllPlaybackStates:
		if !h.inRoom(c, RoomAdmins) {
			return
		}
		h.sendAllStates(c)

	case EventStopPlayback:
		var ref deviceRef
		if !h.inRoom(c, RoomAdmins) || !decode(env, &ref) || ref.DeviceID == "" {
			return
		}
		h.Emit(TVRoom(ref.DeviceID), EventStopPlayback, ref)

	case EventContentUpdate:
		if !h.inRoom(c, RoomAdmins) {
			return
		}
		var ref deviceRef
		decode(env, &ref)
		if ref.DeviceID != "" {
			h.Emit(TVRoom(ref.DeviceID), EventContentUpdate, ref)
		} else {
			h.Broadcast(EventContentUpdate, nil)
		}

	default:
		log.Debug().Str("event", env.Event).Msg("unknown websocket event")
	}
}

// sendAllStates replies with every stored state and asks every TV to report.
func (h *Hub) sendAllStates(c *Conn) {
	h.EmitTo(c, EventAllPlaybackStates, h.states.All())
	h.Broadcast(EventRequestPlaybackState, nil)
}

func decode(env Envelope, v any) bool {
	if len(env.Data) == 0 {
		return false
	}
	return json.Unmarshal(env.Data, v) == nil
}
