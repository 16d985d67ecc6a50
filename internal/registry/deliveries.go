package registry

import (
	"sync"

	"github.com/kfish-market/auction-service/internal/models"
)

// DeliveryStore holds shipment records. Deliveries are created once by the
// auction end path and mutated only by the delivery simulator's timer.
type DeliveryStore struct {
	mu         sync.RWMutex
	deliveries map[string]*models.Delivery
	order      []string
}

// NewDeliveryStore creates an empty delivery store.
func NewDeliveryStore() *DeliveryStore {
	return &DeliveryStore{deliveries: make(map[string]*models.Delivery)}
}

// Add registers a delivery.
func (s *DeliveryStore) Add(d *models.Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[d.ID] = copyDelivery(d)
	s.order = append(s.order, d.ID)
}

// Get returns a copy of the delivery, or false if it is unknown.
func (s *DeliveryStore) Get(id string) (*models.Delivery, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deliveries[id]
	if !ok {
		return nil, false
	}
	return copyDelivery(d), true
}

// List returns all deliveries in creation order.
func (s *DeliveryStore) List() []*models.Delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Delivery, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyDelivery(s.deliveries[id]))
	}
	return out
}

// Update applies fn to the stored delivery under the store lock and returns
// a copy of the result. It returns false if the delivery is unknown, which
// the simulator treats as a signal to stop silently.
func (s *DeliveryStore) Update(id string, fn func(*models.Delivery)) (*models.Delivery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[id]
	if !ok {
		return nil, false
	}
	fn(d)
	return copyDelivery(d), true
}

func copyDelivery(d *models.Delivery) *models.Delivery {
	cp := *d
	cp.Timeline = make([]models.TimelineEntry, len(d.Timeline))
	copy(cp.Timeline, d.Timeline)
	return &cp
}
