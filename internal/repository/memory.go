package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"atelier/internal/domain"
)

// MemoryStore объединённое in-memory хранилище
type MemoryStore struct {
	mu           sync.RWMutex
	productsByID map[string]domain.Product
	studioByID   map[string]domain.StudioProduct
	designsByID  map[string]domain.Design
	ordersByID   map[string]domain.Order
	orderSeq     []string // insertion order, oldest first
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		productsByID: make(map[string]domain.Product),
		studioByID:   make(map[string]domain.StudioProduct),
		designsByID:  make(map[string]domain.Design),
		ordersByID:   make(map[string]domain.Order),
	}
}

// NewMemory wires every repository of the in-memory backend.
func NewMemory() *Store {
	store := NewMemoryStore()
	return &Store{
		Products:       store,
		StudioProducts: NewMemoryStudioProducts(store),
		Designs:        NewMemoryDesigns(store),
		Orders:         NewMemoryOrders(store),
		Tx:             NewMemoryTx(store),
		Close:          func(context.Context) error { return nil },
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

func newMemoryID() string { return uuid.NewString() }

func checkMemoryID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p.ID = newMemoryID()
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if err := checkMemoryID(id); err != nil {
		return nil, err
	}
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	if err := checkMemoryID(p.ID); err != nil {
		return err
	}
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[p.ID]; !ok {
		return ErrNotFound
	}
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := checkMemoryID(id); err != nil {
		return err
	}
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[id]; !ok {
		return ErrNotFound
	}
	delete(m.productsByID, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0)
	for _, p := range m.productsByID {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) DecrementStock(ctx context.Context, id string, qty int64) error {
	if err := checkMemoryID(id); err != nil {
		return err
	}
	if err := checkQuantity(qty); err != nil {
		return err
	}
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return ErrNotFound
	}
	if p.Stock < qty {
		return fmt.Errorf("%w: product %s has %d left, %d requested", ErrConflict, id, p.Stock, qty)
	}
	p.Stock -= qty
	m.productsByID[id] = p
	return nil
}

func (m *MemoryStore) IncrementStock(ctx context.Context, id string, qty int64) error {
	if err := checkMemoryID(id); err != nil {
		return err
	}
	if err := checkQuantity(qty); err != nil {
		return err
	}
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return ErrNotFound
	}
	if p.Stock > math.MaxInt64-qty {
		return fmt.Errorf("%w: stock of product %s would overflow", ErrInvalidValue, id)
	}
	p.Stock += qty
	m.productsByID[id] = p
	return nil
}

// MemoryStudioProducts implements StudioProductRepository on the shared store.
type MemoryStudioProducts struct{ store *MemoryStore }

func NewMemoryStudioProducts(store *MemoryStore) *MemoryStudioProducts {
	return &MemoryStudioProducts{store: store}
}

var _ StudioProductRepository = (*MemoryStudioProducts)(nil)

func (ms *MemoryStudioProducts) Create(ctx context.Context, sp *domain.StudioProduct) error {
	ms.store.wlock(ctx)
	defer ms.store.wunlock(ctx)
	sp.ID = newMemoryID()
	ms.store.studioByID[sp.ID] = *sp
	return nil
}

func (ms *MemoryStudioProducts) GetByID(ctx context.Context, id string) (*domain.StudioProduct, error) {
	if err := checkMemoryID(id); err != nil {
		return nil, err
	}
	ms.store.rlock(ctx)
	defer ms.store.runlock(ctx)
	sp, ok := ms.store.studioByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sp, nil
}

func (ms *MemoryStudioProducts) Update(ctx context.Context, sp *domain.StudioProduct) error {
	if err := checkMemoryID(sp.ID); err != nil {
		return err
	}
	ms.store.wlock(ctx)
	defer ms.store.wunlock(ctx)
	if _, ok := ms.store.studioByID[sp.ID]; !ok {
		return ErrNotFound
	}
	ms.store.studioByID[sp.ID] = *sp
	return nil
}

func (ms *MemoryStudioProducts) List(ctx context.Context) ([]domain.StudioProduct, error) {
	ms.store.rlock(ctx)
	defer ms.store.runlock(ctx)
	out := make([]domain.StudioProduct, 0, len(ms.store.studioByID))
	for _, sp := range ms.store.studioByID {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MemoryDesigns implements DesignRepository on the shared store.
type MemoryDesigns struct{ store *MemoryStore }

func NewMemoryDesigns(store *MemoryStore) *MemoryDesigns { return &MemoryDesigns{store: store} }

var _ DesignRepository = (*MemoryDesigns)(nil)

func (md *MemoryDesigns) Create(ctx context.Context, d *domain.Design) error {
	md.store.wlock(ctx)
	defer md.store.wunlock(ctx)
	d.ID = newMemoryID()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	md.store.designsByID[d.ID] = *d
	return nil
}

func (md *MemoryDesigns) GetByID(ctx context.Context, id string) (*domain.Design, error) {
	if err := checkMemoryID(id); err != nil {
		return nil, err
	}
	md.store.rlock(ctx)
	defer md.store.runlock(ctx)
	d, ok := md.store.designsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (md *MemoryDesigns) ListByOwner(ctx context.Context, ownerID string) ([]domain.Design, error) {
	md.store.rlock(ctx)
	defer md.store.runlock(ctx)
	out := make([]domain.Design, 0)
	for _, d := range md.store.designsByID {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (md *MemoryDesigns) Delete(ctx context.Context, id string) error {
	if err := checkMemoryID(id); err != nil {
		return err
	}
	md.store.wlock(ctx)
	defer md.store.wunlock(ctx)
	if _, ok := md.store.designsByID[id]; !ok {
		return ErrNotFound
	}
	delete(md.store.designsByID, id)
	return nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o.ID = newMemoryID()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	mo.store.ordersByID[o.ID] = o.Clone()
	mo.store.orderSeq = append(mo.store.orderSeq, o.ID)
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := checkMemoryID(id); err != nil {
		return nil, err
	}
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o.Clone()
	return &cp, nil
}

func (mo *MemoryOrders) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for i := len(mo.store.orderSeq) - 1; i >= 0; i-- {
		o := mo.store.ordersByID[mo.store.orderSeq[i]]
		if userID == "" || o.UserID == userID {
			out = append(out, o.Clone())
		}
	}
	return out, nil
}

func (mo *MemoryOrders) Update(ctx context.Context, o *domain.Order) error {
	if err := checkMemoryID(o.ID); err != nil {
		return err
	}
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[o.ID]; !ok {
		return ErrNotFound
	}
	mo.store.ordersByID[o.ID] = o.Clone()
	return nil
}

func (mo *MemoryOrders) Delete(ctx context.Context, id string) error {
	if err := checkMemoryID(id); err != nil {
		return err
	}
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[id]; !ok {
		return ErrNotFound
	}
	delete(mo.store.ordersByID, id)
	for i, oid := range mo.store.orderSeq {
		if oid == id {
			mo.store.orderSeq = append(mo.store.orderSeq[:i], mo.store.orderSeq[i+1:]...)
			break
		}
	}
	return nil
}

// memorySnapshot holds the store state taken when a transaction begins.
type memorySnapshot struct {
	products map[string]domain.Product
	studio   map[string]domain.StudioProduct
	designs  map[string]domain.Design
	orders   map[string]domain.Order
	orderSeq []string
}

func (m *MemoryStore) snapshot() memorySnapshot {
	s := memorySnapshot{
		products: make(map[string]domain.Product, len(m.productsByID)),
		studio:   make(map[string]domain.StudioProduct, len(m.studioByID)),
		designs:  make(map[string]domain.Design, len(m.designsByID)),
		orders:   make(map[string]domain.Order, len(m.ordersByID)),
		orderSeq: append([]string(nil), m.orderSeq...),
	}
	for k, v := range m.productsByID {
		s.products[k] = v
	}
	for k, v := range m.studioByID {
		s.studio[k] = v
	}
	for k, v := range m.designsByID {
		s.designs[k] = v
	}
	for k, v := range m.ordersByID {
		s.orders[k] = v.Clone()
	}
	return s
}

func (m *MemoryStore) restore(s memorySnapshot) {
	m.productsByID = s.products
	m.studioByID = s.studio
	m.designsByID = s.designs
	m.ordersByID = s.orders
	m.orderSeq = s.orderSeq
}

// MemoryTx emulates a transaction with the store's write lock and rolls back
// by restoring a snapshot when fn fails.
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	snap := tx.store.snapshot()
	// mark the context so repositories skip their own locks
	ctx = context.WithValue(ctx, txKey{}, true)
	if err := fn(ctx); err != nil {
		tx.store.restore(snap)
		return err
	}
	return nil
}
