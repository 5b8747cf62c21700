package services

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"taskmaster-backend/shared/config"
	"taskmaster-backend/shared/database/models"
	"taskmaster-backend/shared/utils/rbac"
)

// TaskEvent is pushed to every connected member of the task's
// organization after a mutation commits
type TaskEvent struct {
	Type      string       `json:"type"`
	Task      *models.Task `json:"task"`
	ActorID   uuid.UUID    `json:"actor_id"`
	Timestamp time.Time    `json:"timestamp"`
}

const (
	TaskEventCreated       = "task.created"
	TaskEventUpdated       = "task.updated"
	TaskEventStatusChanged = "task.status_changed"
	TaskEventDeleted       = "task.deleted"
)

type eventClient struct {
	userID uuid.UUID
	orgID  uuid.UUID
	conn   *websocket.Conn
	send   chan TaskEvent
}

// EventService fans task events out to the dashboard over WebSocket.
// Connections are grouped by organization so events never cross tenant
// boundaries.
type EventService struct {
	mutex    sync.RWMutex
	clients  map[uuid.UUID]map[*eventClient]bool // orgID -> clients
	upgrader websocket.Upgrader
}

func NewEventService() *EventService {
	return &EventService{
		clients: make(map[uuid.UUID]map[*eventClient]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if origin == config.GetConfig().FrontendURL {
					return true
				}
				log.Printf("🚫 WebSocket connection rejected from origin: %s", origin)
				return false
			},
		},
	}
}

// HandleConnection upgrades the request and pumps events to the client
// until it disconnects. The principal was authenticated upstream.
func (s *EventService) HandleConnection(w http.ResponseWriter, r *http.Request, p *rbac.Principal) error {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &eventClient{
		userID: p.ID,
		orgID:  p.OrganizationID,
		conn:   conn,
		send:   make(chan TaskEvent, 16),
	}
	s.register(client)

	go s.writePump(client)
	go s.readPump(client)
	return nil
}

func (s *EventService) register(client *eventClient) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.clients[client.orgID] == nil {
		s.clients[client.orgID] = make(map[*eventClient]bool)
	}
	s.clients[client.orgID][client] = true
}

func (s *EventService) unregister(client *eventClient) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if clients, ok := s.clients[client.orgID]; ok {
		if _, registered := clients[client]; registered {
			delete(clients, client)
			close(client.send)
			if len(clients) == 0 {
				delete(s.clients, client.orgID)
			}
		}
	}
}

// readPump drains inbound frames so pings are answered and closes are
// noticed. Clients do not send application messages.
func (s *EventService) readPump(client *eventClient) {
	defer func() {
		s.unregister(client)
		client.conn.Close()
	}()
	client.conn.SetReadLimit(512)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *EventService) writePump(client *eventClient) {
	defer client.conn.Close()
	for event := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := client.conn.WriteJSON(event); err != nil {
			return
		}
	}
	client.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// BroadcastTaskEvent sends an event to every connection in the task's
// organization. Slow clients are skipped rather than blocking the
// request path.
func (s *EventService) BroadcastTaskEvent(eventType string, task *models.Task, actorID uuid.UUID) {
	event := TaskEvent{
		Type:      eventType,
		Task:      task,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for client := range s.clients[task.OrganizationID] {
		select {
		case client.send <- event:
		default:
			log.Printf("⚠️ Dropping task event for slow WebSocket client (user %s)", client.userID)
		}
	}
}

// ConnectedClients returns the connection count for an organization
func (s *EventService) ConnectedClients(orgID uuid.UUID) int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.clients[orgID])
}
