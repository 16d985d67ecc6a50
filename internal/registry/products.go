// Package registry holds the in-process stores backing the auction service.
// Each store owns its records outright: callers get copies, never aliases,
// and there is no ambient shared collection reachable from elsewhere.
package registry

import (
	"sync"

	"github.com/kfish-market/auction-service/internal/models"
)

// ProductStore holds registered products. Products are immutable once
// created except for the quality-verification display fields.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]*models.Product
	order    []string
}

// NewProductStore creates an empty product store.
func NewProductStore() *ProductStore {
	return &ProductStore{products: make(map[string]*models.Product)}
}

// Add registers a product.
func (s *ProductStore) Add(p *models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
	s.order = append(s.order, p.ID)
}

// Get returns a copy of the product, or false if it is unknown.
func (s *ProductStore) Get(id string) (*models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// List returns all products in registration order.
func (s *ProductStore) List() []*models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Product, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.products[id]
		out = append(out, &cp)
	}
	return out
}

// SetQuality updates the quality display fields and returns the updated
// product, or false if the product is unknown.
func (s *ProductStore) SetQuality(id, status string, v *models.QualityVerification) (*models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, false
	}
	p.QualityStatus = status
	p.QualityVerify = v
	cp := *p
	return &cp, true
}
