// server/internal/storage/memory.go
package storage

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"freight-bid-api-server/internal/models"
)

// Memory is an in-memory store implementing the same repository surface as
// the Mongo stores. Transactions take a global lock and roll back the store
// on failure, so readers observe each transaction entirely or not at all,
// the same guarantee the Mongo session transaction provides.
type Memory struct {
	mu       sync.Mutex
	loads    map[primitive.ObjectID]models.Load
	bids     map[primitive.ObjectID]models.Bid
	truckers map[primitive.ObjectID]models.Trucker
	shippers map[primitive.ObjectID]models.Shipper
}

func NewMemory() *Memory {
	return &Memory{
		loads:    make(map[primitive.ObjectID]models.Load),
		bids:     make(map[primitive.ObjectID]models.Bid),
		truckers: make(map[primitive.ObjectID]models.Trucker),
		shippers: make(map[primitive.ObjectID]models.Shipper),
	}
}

func (m *Memory) Loads() *MemoryLoads       { return &MemoryLoads{m} }
func (m *Memory) Bids() *MemoryBids         { return &MemoryBids{m} }
func (m *Memory) Truckers() *MemoryTruckers { return &MemoryTruckers{m} }
func (m *Memory) Shippers() *MemoryShippers { return &MemoryShippers{m} }

// Seed helpers.

func (m *Memory) AddLoad(l models.Load) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads[l.ID] = l
}

func (m *Memory) AddBid(b models.Bid) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bids[b.ID] = b
}

func (m *Memory) AddTrucker(t models.Trucker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.truckers[t.ID] = t
}

func (m *Memory) AddShipper(s models.Shipper) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shippers[s.ID] = s
}

type memTxKey struct{}

// WithTransaction serializes transactions behind the store lock and restores
// a snapshot when fn fails, leaving no partial state behind.
func (m *Memory) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapLoads := copyMap(m.loads)
	snapBids := copyMap(m.bids)

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.loads = snapLoads
		m.bids = snapBids
		return err
	}
	return nil
}

// lock acquires the store lock unless the context is already inside a
// transaction holding it.
func (m *Memory) lock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

type MemoryLoads struct{ m *Memory }

func (r *MemoryLoads) FindLoad(ctx context.Context, id primitive.ObjectID) (*models.Load, error) {
	defer r.m.lock(ctx)()
	if l, ok := r.m.loads[id]; ok {
		return &l, nil
	}
	return nil, nil
}

func (r *MemoryLoads) FindLoads(ctx context.Context, ids []primitive.ObjectID) ([]models.Load, error) {
	defer r.m.lock(ctx)()
	var loads []models.Load
	for _, id := range ids {
		if l, ok := r.m.loads[id]; ok {
			loads = append(loads, l)
		}
	}
	return loads, nil
}

func (r *MemoryLoads) LoadIDsByShipper(ctx context.Context, shipperID primitive.ObjectID) ([]primitive.ObjectID, error) {
	defer r.m.lock(ctx)()
	var ids []primitive.ObjectID
	for id, l := range r.m.loads {
		if l.Shipper == shipperID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *MemoryLoads) MarkBidding(ctx context.Context, id primitive.ObjectID) (bool, error) {
	defer r.m.lock(ctx)()
	l, ok := r.m.loads[id]
	if !ok || !l.Status.AcceptsBids() {
		return false, nil
	}
	l.Status = models.LoadBidding
	r.m.loads[id] = l
	return true, nil
}

func (r *MemoryLoads) CancelLoad(ctx context.Context, id primitive.ObjectID) (bool, error) {
	defer r.m.lock(ctx)()
	l, ok := r.m.loads[id]
	if !ok || !l.Status.AcceptsBids() {
		return false, nil
	}
	l.Status = models.LoadCancelled
	r.m.loads[id] = l
	return true, nil
}

func (r *MemoryLoads) DeleteLoad(ctx context.Context, id primitive.ObjectID) (bool, error) {
	defer r.m.lock(ctx)()
	l, ok := r.m.loads[id]
	if !ok || !l.Status.AcceptsBids() {
		return false, nil
	}
	delete(r.m.loads, id)
	return true, nil
}

func (r *MemoryLoads) AssignLoad(ctx context.Context, id, truckerID, bidID primitive.ObjectID) (bool, error) {
	defer r.m.lock(ctx)()
	l, ok := r.m.loads[id]
	if !ok || !l.Status.AcceptsBids() {
		return false, nil
	}
	tid, bidRef := truckerID, bidID
	l.Status = models.LoadAssigned
	l.AssignedTo = &tid
	l.WinningBid = &bidRef
	r.m.loads[id] = l
	return true, nil
}

type MemoryBids struct{ m *Memory }

func (r *MemoryBids) FindBid(ctx context.Context, id primitive.ObjectID) (*models.Bid, error) {
	defer r.m.lock(ctx)()
	if b, ok := r.m.bids[id]; ok {
		return &b, nil
	}
	return nil, nil
}

// InsertBid enforces the same partial unique index over live (load, trucker)
// bids that EnsureIndexes creates on Mongo, and fails with a driver-shaped
// duplicate-key error so callers map it the same way.
func (r *MemoryBids) InsertBid(ctx context.Context, bid *models.Bid) error {
	defer r.m.lock(ctx)()
	for _, b := range r.m.bids {
		if b.Load == bid.Load && b.Trucker == bid.Trucker && b.Status.Active() {
			return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
				Code:    11000,
				Message: "E11000 duplicate key error collection: bids",
			}}}
		}
	}
	r.m.bids[bid.ID] = *bid
	return nil
}

func (r *MemoryBids) ActiveBidByLoadAndTrucker(ctx context.Context, loadID, truckerID primitive.ObjectID) (*models.Bid, error) {
	defer r.m.lock(ctx)()
	for _, b := range r.m.bids {
		if b.Load == loadID && b.Trucker == truckerID && b.Status.Active() {
			bid := b
			return &bid, nil
		}
	}
	return nil, nil
}

func (r *MemoryBids) BidsByLoad(ctx context.Context, loadID primitive.ObjectID) ([]models.Bid, error) {
	return r.filter(ctx, func(b models.Bid) bool { return b.Load == loadID })
}

func (r *MemoryBids) BidsByLoadAndTrucker(ctx context.Context, loadID, truckerID primitive.ObjectID) ([]models.Bid, error) {
	return r.filter(ctx, func(b models.Bid) bool { return b.Load == loadID && b.Trucker == truckerID })
}

func (r *MemoryBids) BidsByTrucker(ctx context.Context, truckerID primitive.ObjectID) ([]models.Bid, error) {
	return r.filter(ctx, func(b models.Bid) bool { return b.Trucker == truckerID })
}

func (r *MemoryBids) BidsByLoads(ctx context.Context, loadIDs []primitive.ObjectID) ([]models.Bid, error) {
	wanted := make(map[primitive.ObjectID]bool, len(loadIDs))
	for _, id := range loadIDs {
		wanted[id] = true
	}
	return r.filter(ctx, func(b models.Bid) bool { return wanted[b.Load] })
}

func (r *MemoryBids) AcceptBid(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	defer r.m.lock(ctx)()
	b, ok := r.m.bids[id]
	if !ok || b.Status != models.BidPending {
		return false, nil
	}
	acceptedAt := at
	b.Status = models.BidAccepted
	b.IsWinningBid = true
	b.AcceptedAt = &acceptedAt
	r.m.bids[id] = b
	return true, nil
}

func (r *MemoryBids) UpdateBidStatus(ctx context.Context, id primitive.ObjectID, from, to models.BidStatus) (bool, error) {
	defer r.m.lock(ctx)()
	b, ok := r.m.bids[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	r.m.bids[id] = b
	return true, nil
}

func (r *MemoryBids) RejectPendingBids(ctx context.Context, loadID, except primitive.ObjectID) ([]models.Bid, error) {
	defer r.m.lock(ctx)()
	var rejected []models.Bid
	for id, b := range r.m.bids {
		if b.Load == loadID && id != except && b.Status == models.BidPending {
			b.Status = models.BidRejected
			r.m.bids[id] = b
			rejected = append(rejected, b)
		}
	}
	return rejected, nil
}

func (r *MemoryBids) DeleteBidsByLoad(ctx context.Context, loadID primitive.ObjectID) error {
	defer r.m.lock(ctx)()
	for id, b := range r.m.bids {
		if b.Load == loadID {
			delete(r.m.bids, id)
		}
	}
	return nil
}

func (r *MemoryBids) filter(ctx context.Context, keep func(models.Bid) bool) ([]models.Bid, error) {
	defer r.m.lock(ctx)()
	var bids []models.Bid
	for _, b := range r.m.bids {
		if keep(b) {
			bids = append(bids, b)
		}
	}
	return bids, nil
}

type MemoryTruckers struct{ m *Memory }

func (r *MemoryTruckers) TruckerByUser(ctx context.Context, userID primitive.ObjectID) (*models.Trucker, error) {
	defer r.m.lock(ctx)()
	for _, t := range r.m.truckers {
		if t.User == userID {
			trucker := t
			return &trucker, nil
		}
	}
	return nil, nil
}

func (r *MemoryTruckers) TruckerByID(ctx context.Context, id primitive.ObjectID) (*models.Trucker, error) {
	defer r.m.lock(ctx)()
	if t, ok := r.m.truckers[id]; ok {
		return &t, nil
	}
	return nil, nil
}

type MemoryShippers struct{ m *Memory }

func (r *MemoryShippers) ShipperByUser(ctx context.Context, userID primitive.ObjectID) (*models.Shipper, error) {
	defer r.m.lock(ctx)()
	for _, s := range r.m.shippers {
		if s.User == userID {
			shipper := s
			return &shipper, nil
		}
	}
	return nil, nil
}

func (r *MemoryShippers) ShipperByID(ctx context.Context, id primitive.ObjectID) (*models.Shipper, error) {
	defer r.m.lock(ctx)()
	if s, ok := r.m.shippers[id]; ok {
		return &s, nil
	}
	return nil, nil
}
