package cart

import "sync"

// Store holds the live session carts, one per customer. Individual carts are
// session-scoped and never shared between customers, so the store only
// synchronizes the map itself.
type Store struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

// NewStore creates an empty session cart store.
func NewStore() *Store {
	return &Store{carts: make(map[string]*Cart)}
}

// Get returns the customer's session cart, creating an empty one on first
// access.
func (s *Store) Get(customerID string) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[customerID]
	if !ok {
		c = New(customerID)
		s.carts[customerID] = c
	}
	return c
}

// Put replaces the customer's session cart, e.g. after reloading it from a
// persisted mirror.
func (s *Store) Put(c *Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[c.CustomerID] = c
}
