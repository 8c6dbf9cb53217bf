// server/internal/bidding/queries.go
package bidding

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"freight-bid-api-server/internal/models"
)

// TruckerSummary is the carrier detail attached to bid listings shown to
// shippers.
type TruckerSummary struct {
	ID           primitive.ObjectID `json:"id"`
	CompanyName  string             `json:"companyName"`
	ContactName  string             `json:"contactName"`
	ContactPhone string             `json:"contactPhone"`
	Rating       models.Rating      `json:"rating"`
}

// LoadSummary is the load detail attached to a trucker's bid listings.
type LoadSummary struct {
	ID               primitive.ObjectID `json:"id"`
	Title            string             `json:"title"`
	PickupLocation   models.Location    `json:"pickupLocation"`
	DeliveryLocation models.Location    `json:"deliveryLocation"`
	Schedule         models.Schedule    `json:"schedule"`
	Status           models.LoadStatus  `json:"status"`
}

// BidDetail is a bid with optional related summaries. Statuses are reported
// through the lazy-expiry view.
type BidDetail struct {
	models.Bid
	TruckerInfo *TruckerSummary `json:"truckerInfo,omitempty"`
	LoadInfo    *LoadSummary    `json:"loadInfo,omitempty"`
}

// ListBidsForLoad returns the bids visible to the caller on one load. The
// owning shipper sees every bid sorted by ascending amount with carrier
// summaries; a trucker sees only their own bids. Anyone else is refused.
func (s *Service) ListBidsForLoad(ctx context.Context, loadID, userID primitive.ObjectID) ([]BidDetail, error) {
	load, err := s.loads.FindLoad(ctx, loadID)
	if err != nil {
		return nil, err
	}
	if load == nil {
		return nil, notFound("Load not found")
	}

	shipper, err := s.shippers.ShipperByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if shipper != nil && load.Shipper == shipper.ID {
		bids, err := s.bids.BidsByLoad(ctx, loadID)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(bids, func(i, j int) bool { return bids[i].Amount < bids[j].Amount })
		return s.withTruckerSummaries(ctx, bids)
	}

	trucker, err := s.truckers.TruckerByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if trucker == nil {
		return nil, forbidden("Not authorized to view these bids")
	}

	bids, err := s.bids.BidsByLoadAndTrucker(ctx, loadID, trucker.ID)
	if err != nil {
		return nil, err
	}
	return s.asBidDetails(bids), nil
}

// ListBidsForTrucker returns the caller's own bids, newest first, with load
// summaries attached.
func (s *Service) ListBidsForTrucker(ctx context.Context, userID primitive.ObjectID) ([]BidDetail, error) {
	trucker, err := s.truckers.TruckerByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if trucker == nil {
		return nil, unauthorized("Not authorized. Only truckers can access their bids.")
	}

	bids, err := s.bids.BidsByTrucker(ctx, trucker.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].CreatedAt.After(bids[j].CreatedAt) })
	return s.withLoadSummaries(ctx, bids)
}

// ListBidsForShipper aggregates the bids across every load the caller owns,
// with both load and carrier summaries attached.
func (s *Service) ListBidsForShipper(ctx context.Context, userID primitive.ObjectID) ([]BidDetail, error) {
	shipper, err := s.shippers.ShipperByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if shipper == nil {
		return nil, unauthorized("Not authorized. Only shippers can access their received bids.")
	}

	loadIDs, err := s.loads.LoadIDsByShipper(ctx, shipper.ID)
	if err != nil {
		return nil, err
	}
	bids, err := s.bids.BidsByLoads(ctx, loadIDs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].CreatedAt.After(bids[j].CreatedAt) })

	details, err := s.withLoadSummaries(ctx, bids)
	if err != nil {
		return nil, err
	}
	for i := range details {
		if t, err := s.truckers.TruckerByID(ctx, details[i].Bid.Trucker); err == nil && t != nil {
			details[i].TruckerInfo = truckerSummary(t)
		}
	}
	return details, nil
}

// GetBid returns a single bid with its summaries. Only the owning shipper of
// the load or the trucker who placed the bid may see it.
func (s *Service) GetBid(ctx context.Context, bidID, userID primitive.ObjectID) (*BidDetail, error) {
	bid, err := s.bids.FindBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid == nil {
		return nil, notFound("Bid not found")
	}

	load, err := s.loads.FindLoad(ctx, bid.Load)
	if err != nil {
		return nil, err
	}

	isShipper := false
	if shipper, err := s.shippers.ShipperByUser(ctx, userID); err == nil && shipper != nil && load != nil {
		isShipper = load.Shipper == shipper.ID
	}
	isBidder := false
	if trucker, err := s.truckers.TruckerByUser(ctx, userID); err == nil && trucker != nil {
		isBidder = bid.Trucker == trucker.ID
	}
	if !isShipper && !isBidder {
		return nil, forbidden("Not authorized to view this bid")
	}

	detail := s.asBidDetails([]models.Bid{*bid})[0]
	if t, err := s.truckers.TruckerByID(ctx, bid.Trucker); err == nil && t != nil {
		detail.TruckerInfo = truckerSummary(t)
	}
	if load != nil {
		detail.LoadInfo = loadSummary(load)
	}
	return &detail, nil
}

// LowestBid returns the lowest live (Pending or Accepted) bid on a load, ties
// broken by earliest creation. Nil when no live bids exist.
func (s *Service) LowestBid(ctx context.Context, loadID primitive.ObjectID) (*models.Bid, error) {
	bids, err := s.bids.BidsByLoad(ctx, loadID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var lowest *models.Bid
	for i := range bids {
		b := bids[i]
		if !b.EffectiveStatus(now).Active() {
			continue
		}
		if lowest == nil ||
			b.Amount < lowest.Amount ||
			(b.Amount == lowest.Amount && b.CreatedAt.Before(lowest.CreatedAt)) {
			lowest = &bids[i]
		}
	}
	if lowest == nil {
		return nil, nil
	}
	view := *lowest
	view.Status = view.EffectiveStatus(now)
	return &view, nil
}

func truckerSummary(t *models.Trucker) *TruckerSummary {
	return &TruckerSummary{
		ID:           t.ID,
		CompanyName:  t.CompanyName,
		ContactName:  t.ContactName,
		ContactPhone: t.ContactPhone,
		Rating:       t.Rating,
	}
}

func loadSummary(l *models.Load) *LoadSummary {
	return &LoadSummary{
		ID:               l.ID,
		Title:            l.Title,
		PickupLocation:   l.PickupLocation,
		DeliveryLocation: l.DeliveryLocation,
		Schedule:         l.Schedule,
		Status:           l.Status,
	}
}

// asBidDetails wraps bids applying the lazy-expiry status view.
func (s *Service) asBidDetails(bids []models.Bid) []BidDetail {
	now := s.now()
	details := make([]BidDetail, len(bids))
	for i := range bids {
		b := bids[i]
		b.Status = b.EffectiveStatus(now)
		details[i] = BidDetail{Bid: b}
	}
	return details
}

func (s *Service) withTruckerSummaries(ctx context.Context, bids []models.Bid) ([]BidDetail, error) {
	details := s.asBidDetails(bids)
	for i := range details {
		t, err := s.truckers.TruckerByID(ctx, details[i].Bid.Trucker)
		if err != nil {
			return nil, err
		}
		if t != nil {
			details[i].TruckerInfo = truckerSummary(t)
		}
	}
	return details, nil
}

func (s *Service) withLoadSummaries(ctx context.Context, bids []models.Bid) ([]BidDetail, error) {
	ids := make([]primitive.ObjectID, 0, len(bids))
	seen := make(map[primitive.ObjectID]bool)
	for _, b := range bids {
		if !seen[b.Load] {
			seen[b.Load] = true
			ids = append(ids, b.Load)
		}
	}
	loads, err := s.loads.FindLoads(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*models.Load, len(loads))
	for i := range loads {
		byID[loads[i].ID] = &loads[i]
	}

	details := s.asBidDetails(bids)
	for i := range details {
		if l, ok := byID[details[i].Bid.Load]; ok {
			details[i].LoadInfo = loadSummary(l)
		}
	}
	return details, nil
}
