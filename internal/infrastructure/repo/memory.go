package repo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"harvesthub-backend/internal/domain"
	"harvesthub-backend/internal/usecase"
)

// MemoryStore keeps every table in maps guarded by one RWMutex. Order
// transactions hold the write lock and undo their writes on failure.
type MemoryStore struct {
	mu  sync.RWMutex
	seq map[string]int64

	identities map[int64]domain.Identity
	emails     map[string]int64
	listings   map[int64]domain.Listing
	orders     map[int64]domain.Order
	lines      map[int64][]domain.OrderLine
	payments   map[int64]domain.Payment
	paymentOf  map[int64]int64
	deliveries map[int64]domain.Delivery
	deliveryOf map[int64]int64
	attempts   []domain.LoginAttempt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seq:        map[string]int64{},
		identities: map[int64]domain.Identity{},
		emails:     map[string]int64{},
		listings:   map[int64]domain.Listing{},
		orders:     map[int64]domain.Order{},
		lines:      map[int64][]domain.OrderLine{},
		payments:   map[int64]domain.Payment{},
		paymentOf:  map[int64]int64{},
		deliveries: map[int64]domain.Delivery{},
		deliveryOf: map[int64]int64{},
	}
}

func (s *MemoryStore) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func (s *MemoryStore) CreateIdentity(ctx context.Context, u *domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := s.emails[key]; ok {
		return usecase.ErrValidation("user with this email already exists")
	}
	u.ID = s.next("users")
	s.identities[u.ID] = *u
	s.emails[key] = u.ID
	return nil
}

func (s *MemoryStore) GetIdentity(ctx context.Context, id int64) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.identities[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetIdentityByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u := s.identities[id]
	return &u, nil
}

func (s *MemoryStore) CreateLoginAttempt(ctx context.Context, a *domain.LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.next("login_history")
	s.attempts = append(s.attempts, *a)
	return nil
}

// LoginAttempts returns a copy of the audit trail, oldest first.
func (s *MemoryStore) LoginAttempts() []domain.LoginAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.LoginAttempt(nil), s.attempts...)
}

func (s *MemoryStore) CreateListing(ctx context.Context, l *domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.next("products")
	s.listings[l.ID] = *l
	return nil
}

func (s *MemoryStore) GetListing(ctx context.Context, id int64) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getListing(id)
}

func (s *MemoryStore) getListing(id int64) (*domain.Listing, error) {
	l, ok := s.listings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (s *MemoryStore) ListListings(ctx context.Context) ([]domain.Listing, error) {
	return s.filterListings(func(domain.Listing) bool { return true }), nil
}

func (s *MemoryStore) ListListingsByOwner(ctx context.Context, ownerID int64) ([]domain.Listing, error) {
	return s.filterListings(func(l domain.Listing) bool { return l.OwnerID == ownerID }), nil
}

func (s *MemoryStore) filterListings(keep func(domain.Listing) bool) []domain.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) UpdateListing(ctx context.Context, l *domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[l.ID]; !ok {
		return domain.ErrNotFound
	}
	s.listings[l.ID] = *l
	return nil
}

func (s *MemoryStore) DeleteListing(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.listings, id)
	return nil
}

func (s *MemoryStore) WithOrderTx(ctx context.Context, fn func(tx usecase.OrderTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memoryTx{s: s}
	if err := fn(tx); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	return nil
}

type memoryTx struct {
	s    *MemoryStore
	undo []func()
}

func (t *memoryTx) GetListing(ctx context.Context, id int64) (*domain.Listing, error) {
	return t.s.getListing(id)
}

func (t *memoryTx) CreateOrder(ctx context.Context, o *domain.Order) error {
	o.ID = t.s.next("orders")
	shell := *o
	shell.Lines, shell.Payment, shell.Delivery = nil, nil, nil
	t.s.orders[o.ID] = shell
	id := o.ID
	t.undo = append(t.undo, func() { delete(t.s.orders, id) })
	return nil
}

func (t *memoryTx) UpdateOrderTotal(ctx context.Context, id int64, total float64) error {
	o, ok := t.s.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	prev := o
	o.Total = total
	t.s.orders[id] = o
	t.undo = append(t.undo, func() { t.s.orders[id] = prev })
	return nil
}

func (t *memoryTx) CreateOrderLine(ctx context.Context, l *domain.OrderLine) error {
	if _, ok := t.s.orders[l.OrderID]; !ok {
		return domain.ErrNotFound
	}
	l.ID = t.s.next("order_items")
	orderID := l.OrderID
	prev := t.s.lines[orderID]
	t.s.lines[orderID] = append(append([]domain.OrderLine(nil), prev...), *l)
	t.undo = append(t.undo, func() {
		if prev == nil {
			delete(t.s.lines, orderID)
			return
		}
		t.s.lines[orderID] = prev
	})
	return nil
}

func (t *memoryTx) CreatePayment(ctx context.Context, p *domain.Payment) error {
	if _, ok := t.s.orders[p.OrderID]; !ok {
		return domain.ErrNotFound
	}
	if _, ok := t.s.paymentOf[p.OrderID]; ok {
		return usecase.ErrValidation("order already has a payment")
	}
	p.ID = t.s.next("payment")
	t.s.payments[p.ID] = *p
	t.s.paymentOf[p.OrderID] = p.ID
	id, orderID := p.ID, p.OrderID
	t.undo = append(t.undo, func() {
		delete(t.s.payments, id)
		delete(t.s.paymentOf, orderID)
	})
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.Lines = append([]domain.OrderLine(nil), s.lines[id]...)
	if pid, ok := s.paymentOf[id]; ok {
		p := s.payments[pid]
		o.Payment = &p
	}
	if did, ok := s.deliveryOf[id]; ok {
		d := s.deliveries[did]
		o.Delivery = &d
	}
	return &o, nil
}

// CountOrders reports how many orders exist, committed or not.
func (s *MemoryStore) CountOrders() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func (s *MemoryStore) GetPayment(ctx context.Context, id int64) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) UpdatePayment(ctx context.Context, p *domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; !ok {
		return domain.ErrNotFound
	}
	s.payments[p.ID] = *p
	return nil
}

func (s *MemoryStore) CreateDelivery(ctx context.Context, d *domain.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[d.OrderID]; !ok {
		return domain.ErrNotFound
	}
	if _, ok := s.deliveryOf[d.OrderID]; ok {
		return usecase.ErrValidation("order already has a delivery")
	}
	d.ID = s.next("delivery")
	s.deliveries[d.ID] = *d
	s.deliveryOf[d.OrderID] = d.ID
	return nil
}

func (s *MemoryStore) GetDelivery(ctx context.Context, id int64) (*domain.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deliveries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (s *MemoryStore) UpdateDelivery(ctx context.Context, d *domain.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliveries[d.ID]; !ok {
		return domain.ErrNotFound
	}
	s.deliveries[d.ID] = *d
	return nil
}
