package feed

import (
	"context"
	"encoding/json"
	"expvar"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/nailbook/booking-api/internal/domain/appointment"
)

// salonChannelPrefix + salon id is the Redis channel of one salon's feed
const salonChannelPrefix = "salon:feed:"

const sendBufferSize = 64

var (
	feedConnectionsGauge   = expvar.NewInt("feed_connections")
	feedEventsSentTotal    = expvar.NewInt("feed_events_sent_total")
	feedEventsDroppedTotal = expvar.NewInt("feed_events_dropped_total")
)

// Connection is one staff websocket subscribed to a salon
type Connection struct {
	SalonID uuid.UUID
	StaffID uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
}

// NewConnection creates a connection with a buffered send queue
func NewConnection(salonID, staffID uuid.UUID, conn *websocket.Conn) *Connection {
	return &Connection{
		SalonID: salonID,
		StaffID: staffID,
		Conn:    conn,
		Send:    make(chan []byte, sendBufferSize),
	}
}

// Hub fans appointment events out to the staff of each salon. With Redis
// every instance receives every salon's events and delivers to its own sockets.
type Hub struct {
	connections map[uuid.UUID]map[*Connection]bool

	redis  *redis.Client
	pubsub *redis.PubSub

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub; redisClient may be nil for a single instance.
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		connections: make(map[uuid.UUID]map[*Connection]bool),
		redis:       redisClient,
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		ctx:         ctx,
		cancel:      cancel,
	}

	if redisClient != nil {
		h.pubsub = redisClient.PSubscribe(ctx, salonChannelPrefix+"*")
	}
	return h
}

// Run starts the hub (call in goroutine)
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runRedisSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.connections[conn.SalonID] == nil {
				h.connections[conn.SalonID] = make(map[*Connection]bool)
			}
			h.connections[conn.SalonID][conn] = true
			h.mu.Unlock()
			feedConnectionsGauge.Add(1)

			log.Debug().
				Str("salon_id", conn.SalonID.String()).
				Str("staff_id", conn.StaffID.String()).
				Msg("staff connected to feed")

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.connections[conn.SalonID]; ok {
				if _, exists := conns[conn]; exists {
					delete(conns, conn)
					close(conn.Send)
					feedConnectionsGauge.Add(-1)
				}
				if len(conns) == 0 {
					delete(h.connections, conn.SalonID)
				}
			}
			h.mu.Unlock()

			log.Debug().
				Str("salon_id", conn.SalonID.String()).
				Str("staff_id", conn.StaffID.String()).
				Msg("staff disconnected from feed")
		}
	}
}

func (h *Hub) runRedisSubscriber() {
	ch := h.pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			raw, found := strings.CutPrefix(msg.Channel, salonChannelPrefix)
			if !found {
				continue
			}
			salonID, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			h.broadcastLocal(salonID, []byte(msg.Payload))
		}
	}
}

// broadcastLocal never blocks: a slow socket loses the event, not the publisher.
func (h *Hub) broadcastLocal(salonID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.connections[salonID] {
		select {
		case conn.Send <- data:
			feedEventsSentTotal.Add(1)
		default:
			feedEventsDroppedTotal.Add(1)
			log.Warn().
				Str("salon_id", salonID.String()).
				Str("staff_id", conn.StaffID.String()).
				Msg("feed send buffer full")
		}
	}
}

// Publish implements appointment.EventPublisher.
func (h *Hub) Publish(ctx context.Context, e appointment.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	if h.redis == nil {
		h.broadcastLocal(e.SalonID, data)
		return nil
	}

	if err := h.redis.Publish(ctx, salonChannelPrefix+e.SalonID.String(), data).Err(); err != nil {
		h.broadcastLocal(e.SalonID, data)
		return err
	}
	return nil
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.ctx.Done():
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.ctx.Done():
	}
}

// ConnectionCount returns the number of local sockets for salonID
func (h *Hub) ConnectionCount(salonID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[salonID])
}

// Shutdown stops the hub
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}
