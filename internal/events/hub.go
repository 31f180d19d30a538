package events

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Callback receives one event. Callbacks for a single deployment are
// invoked in publish order, on the publisher's goroutine.
type Callback func(Event)

// Hub fans events out to subscribers registered per deployment id. It holds
// no entity state, only subscriber registrations.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uuid.UUID]map[uint64]Callback

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[uuid.UUID]map[uint64]Callback),
		logger: logger,
	}
}

// Subscribe registers a callback for one deployment and returns its
// unsubscribe function. Unsubscribing more than once is a no-op.
func (h *Hub) Subscribe(deploymentID uuid.UUID, cb Callback) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID

	if _, ok := h.subs[deploymentID]; !ok {
		h.subs[deploymentID] = make(map[uint64]Callback)
	}
	h.subs[deploymentID][id] = cb

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if subs, ok := h.subs[deploymentID]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(h.subs, deploymentID)
			}
		}
	}
}

// Publish delivers the event to every subscriber of its deployment.
// Delivery is synchronous so subscribers observe a single deployment's
// events in execution order.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	callbacks := make([]Callback, 0, len(h.subs[event.DeploymentID]))
	for _, cb := range h.subs[event.DeploymentID] {
		callbacks = append(callbacks, cb)
	}
	h.mu.RUnlock()

	h.logger.Debug("publishing event",
		zap.String("deployment_id", event.DeploymentID.String()),
		zap.String("type", string(event.Type)),
		zap.String("status", event.Status))

	for _, cb := range callbacks {
		cb(event)
	}
}

// Drop removes every subscription for a deployment. Called once a
// deployment is sealed and nothing will publish for it anymore.
func (h *Hub) Drop(deploymentID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs, deploymentID)
}
