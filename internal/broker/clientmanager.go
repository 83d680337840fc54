package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/erauner12/topicsync/internal/wire"
	"github.com/rs/zerolog"
)

// Service is a named RPC endpoint some client has registered itself as the
// provider for.
type Service struct {
	Name       string
	ProviderID int
}

// ClientManager is the registry of connected clients, their topic
// subscriptions, and the services they provide. All of its methods are
// safe to call from any goroutine; each call acquires its own lock for the
// duration of the bookkeeping it touches.
type ClientManager struct {
	log zerolog.Logger

	mu            sync.Mutex
	nextID        int
	clients       map[int]*Client
	subscriptions map[string]map[int]bool // topic_name -> set of client ids
	services      map[string]*Service
}

func NewClientManager(log zerolog.Logger) *ClientManager {
	return &ClientManager{
		log:           log,
		clients:       map[int]*Client{},
		subscriptions: map[string]map[int]bool{},
		services:      map[string]*Service{},
	}
}

// Register assigns a fresh client id to conn, starts its writer loop, and
// sends the opening "hello" frame. Returns the new Client; callers should
// read frames from conn in a loop and call Disconnect on the returned Client
// once the connection ends.
func (cm *ClientManager) Register(ctx context.Context, conn Conn) (*Client, error) {
	cm.mu.Lock()
	cm.nextID++
	id := cm.nextID
	cm.mu.Unlock()

	c := newClient(id, conn, cm.log, cm.cleanUpClient)

	cm.mu.Lock()
	cm.clients[id] = c
	cm.mu.Unlock()

	go c.run(ctx)

	hello, err := wire.Encode(wire.TypeHello, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	c.Send(hello)
	cm.log.Info().Int("client_id", id).Msg("client connected")
	return c, nil
}

// cleanUpClient removes every trace of a disconnected client: its
// subscriptions, any service it provided, and its registry entry.
func (cm *ClientManager) cleanUpClient(c *Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for _, subs := range cm.subscriptions {
		delete(subs, c.ID)
	}
	for name, svc := range cm.services {
		if svc.ProviderID == c.ID {
			delete(cm.services, name)
		}
	}
	delete(cm.clients, c.ID)
	cm.log.Info().Int("client_id", c.ID).Msg("client disconnected")
}

// Subscribe records that client wants frames for topicName. Idempotent: a
// repeated subscribe from the same client to the same topic is a no-op,
// since subscriber identity is set membership, not a counted reference.
func (cm *ClientManager) Subscribe(clientID int, topicName string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	subs, ok := cm.subscriptions[topicName]
	if !ok {
		subs = map[int]bool{}
		cm.subscriptions[topicName] = subs
	}
	subs[clientID] = true
}

func (cm *ClientManager) Unsubscribe(clientID int, topicName string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if subs, ok := cm.subscriptions[topicName]; ok {
		delete(subs, clientID)
		if len(subs) == 0 {
			delete(cm.subscriptions, topicName)
		}
	}
}

func (cm *ClientManager) IsSubscribed(clientID int, topicName string) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.subscriptions[topicName][clientID]
}

// Subscribers returns the ids currently subscribed to topicName.
func (cm *ClientManager) Subscribers(topicName string) []int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	subs := cm.subscriptions[topicName]
	out := make([]int, 0, len(subs))
	for id := range subs {
		out = append(out, id)
	}
	return out
}

// PurgeTopic drops every subscription entry for a topic that no longer
// exists, called once its removal has been committed.
func (cm *ClientManager) PurgeTopic(topicName string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.subscriptions, topicName)
}

func (cm *ClientManager) Get(clientID int) (*Client, bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	c, ok := cm.clients[clientID]
	return c, ok
}

// SendTo enqueues one message to a single client by id, silently doing
// nothing if that client is no longer registered.
func (cm *ClientManager) SendTo(clientID int, messageType string, args map[string]any) {
	c, ok := cm.Get(clientID)
	if !ok {
		return
	}
	data, err := wire.Encode(messageType, args)
	if err != nil {
		cm.log.Error().Err(err).Str("type", messageType).Msg("failed to encode message")
		return
	}
	c.Send(data)
}

// Broadcast enqueues one message to every client subscribed to topicName,
// except excludeID (use -1 to exclude nobody).
func (cm *ClientManager) Broadcast(topicName string, excludeID int, messageType string, args map[string]any) {
	data, err := wire.Encode(messageType, args)
	if err != nil {
		cm.log.Error().Err(err).Str("type", messageType).Msg("failed to encode message")
		return
	}
	for _, id := range cm.Subscribers(topicName) {
		if id == excludeID {
			continue
		}
		if c, ok := cm.Get(id); ok {
			c.Send(data)
		}
	}
}

// RegisterService records client as the provider of name, overwriting any
// previous provider (the last registrant wins, matching a client simply
// reconnecting and re-registering).
func (cm *ClientManager) RegisterService(clientID int, name string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.services[name] = &Service{Name: name, ProviderID: clientID}
}

// UnregisterService removes name's registration, but only if clientID is
// still its current provider.
func (cm *ClientManager) UnregisterService(clientID int, name string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	svc, ok := cm.services[name]
	if !ok {
		return fmt.Errorf("service %q not registered", name)
	}
	if svc.ProviderID != clientID {
		return fmt.Errorf("client %d is not the provider of service %q", clientID, name)
	}
	delete(cm.services, name)
	return nil
}

func (cm *ClientManager) ServiceProvider(name string) (int, bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	svc, ok := cm.services[name]
	if !ok {
		return 0, false
	}
	return svc.ProviderID, true
}
