// server/internal/bidding/service.go
package bidding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"freight-bid-api-server/internal/eligibility"
	"freight-bid-api-server/internal/models"
)

const maxMessageLength = 300

// Service orchestrates the bid lifecycle: creation with eligibility gating,
// the atomic accept-bid settlement, withdrawal, and the read-side listings.
// It is the only component that mutates loads and bids.
type Service struct {
	loads    LoadRepository
	bids     BidRepository
	truckers TruckerRepository
	shippers ShipperRepository
	tx       TxRunner
	notifier Notifier

	now func() time.Time
}

func NewService(
	loads LoadRepository,
	bids BidRepository,
	truckers TruckerRepository,
	shippers ShipperRepository,
	tx TxRunner,
	notifier Notifier,
) *Service {
	return &Service{
		loads:    loads,
		bids:     bids,
		truckers: truckers,
		shippers: shippers,
		tx:       tx,
		notifier: notifier,
		now:      time.Now,
	}
}

type CreateBidInput struct {
	LoadID               primitive.ObjectID
	UserID               primitive.ObjectID
	Amount               float64
	Message              string
	ProposedPickupDate   *time.Time
	ProposedDeliveryDate *time.Time
}

// CreateBid places a new Pending bid on a load. The first bid against a
// Posted load flips it to Bidding inside the same transaction as the insert.
func (s *Service) CreateBid(ctx context.Context, in CreateBidInput) (*models.Bid, error) {
	var problems []string
	if in.Amount <= 0 {
		problems = append(problems, "Please provide a bid amount")
	}
	if len(in.Message) > maxMessageLength {
		problems = append(problems, fmt.Sprintf("Message cannot be more than %d characters", maxMessageLength))
	}
	if in.ProposedPickupDate != nil && in.ProposedDeliveryDate != nil &&
		in.ProposedDeliveryDate.Before(*in.ProposedPickupDate) {
		problems = append(problems, "Proposed delivery date cannot be before the proposed pickup date")
	}
	if len(problems) > 0 {
		return nil, validation(problems)
	}

	load, err := s.loads.FindLoad(ctx, in.LoadID)
	if err != nil {
		return nil, err
	}
	if load == nil {
		return nil, notFound("Load not found")
	}

	if !load.Status.AcceptsBids() {
		return nil, invalidState("Cannot bid on a load with status '%s'", load.Status)
	}

	trucker, err := s.truckers.TruckerByUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if trucker == nil {
		return nil, unauthorized("Not authorized to create bids. Only truckers can bid on loads.")
	}

	now := s.now()
	if result := eligibility.Evaluate(trucker, load.EligibilityCriteria, now); !result.IsEligible {
		return nil, eligibilityFailed(result.Reasons)
	}

	existing, err := s.bids.ActiveBidByLoadAndTrucker(ctx, load.ID, trucker.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.EffectiveStatus(now).Active() {
			return nil, conflict("You already have an active bid for this load")
		}
		// The old bid lazily expired and no longer blocks a new one, but its
		// document is still stored as Pending and covered by the live-bid
		// unique index. Persist the expiry before inserting.
		ok, err := s.bids.UpdateBidStatus(ctx, existing.ID, models.BidPending, models.BidExpired)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, conflict("You already have an active bid for this load")
		}
	}

	bid := &models.Bid{
		ID:                   primitive.NewObjectID(),
		Reference:            fmt.Sprintf("BID-%s", strings.ToUpper(uuid.New().String()[:8])),
		Load:                 load.ID,
		Trucker:              trucker.ID,
		Amount:               in.Amount,
		Currency:             load.Budget.Currency,
		Message:              in.Message,
		ProposedPickupDate:   in.ProposedPickupDate,
		ProposedDeliveryDate: in.ProposedDeliveryDate,
		Status:               models.BidPending,
		CreatedAt:            now,
		ExpiresAt:            load.ExpiresAt,
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.bids.InsertBid(ctx, bid); err != nil {
			// The live-bid unique index caught a racing insert.
			if mongo.IsDuplicateKeyError(err) {
				return conflict("You already have an active bid for this load")
			}
			return err
		}
		// Conditional flip: also acts as the commit-time guard against a
		// concurrent transition to Assigned.
		ok, err := s.loads.MarkBidding(ctx, load.ID)
		if err != nil {
			return err
		}
		if !ok {
			return conflict("Load is no longer open for bidding")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyShipper(ctx, load.Shipper, func(n Notifier, userID string) { n.BidPlaced(userID, bid) })

	return bid, nil
}

// AcceptResult is the outcome of a successful accept-bid transaction.
type AcceptResult struct {
	Bid     *models.Bid     `json:"bid"`
	Load    *models.Load    `json:"load"`
	Trucker *models.Trucker `json:"trucker"`
}

// AcceptBid settles one bid as winner, rejects every other Pending bid on the
// load, and transitions the load to Assigned, all as a single atomic unit.
// A lost race surfaces as a Conflict after the preconditions passed.
func (s *Service) AcceptBid(ctx context.Context, bidID, userID primitive.ObjectID) (*AcceptResult, error) {
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
	if load == nil {
		// Data-integrity fallback; unreachable under referential rules.
		return nil, notFound("Load not found")
	}

	shipper, err := s.shippers.ShipperByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if shipper == nil {
		return nil, unauthorized("Not authorized to accept bids. Only shippers can accept bids.")
	}
	if load.Shipper != shipper.ID {
		return nil, forbidden("Not authorized to accept bids for this load")
	}

	if !load.Status.AcceptsBids() {
		return nil, invalidState("Cannot accept bids for a load with status '%s'", load.Status)
	}

	now := s.now()
	if status := bid.EffectiveStatus(now); status != models.BidPending {
		return nil, invalidState("Cannot accept a bid with status '%s'", status)
	}

	var rejected []models.Bid
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.bids.AcceptBid(ctx, bid.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return conflict("This bid is no longer pending")
		}

		rejected, err = s.bids.RejectPendingBids(ctx, load.ID, bid.ID)
		if err != nil {
			return err
		}

		ok, err = s.loads.AssignLoad(ctx, load.ID, bid.Trucker, bid.ID)
		if err != nil {
			return err
		}
		if !ok {
			// Another accept won between our status read and the commit.
			return conflict("This load was assigned by another request just now")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	bid, err = s.bids.FindBid(ctx, bid.ID)
	if err != nil {
		return nil, err
	}
	if bid == nil {
		return nil, conflict("This bid was removed by another request just now")
	}
	load, err = s.loads.FindLoad(ctx, load.ID)
	if err != nil {
		return nil, err
	}
	if load == nil {
		return nil, conflict("This load was removed by another request just now")
	}
	trucker, err := s.truckers.TruckerByID(ctx, bid.Trucker)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if trucker != nil {
			s.notifier.BidAccepted(trucker.User.Hex(), bid)
		}
		for i := range rejected {
			loser := rejected[i]
			if t, err := s.truckers.TruckerByID(ctx, loser.Trucker); err == nil && t != nil {
				s.notifier.BidRejected(t.User.Hex(), &loser)
			}
		}
	}

	return &AcceptResult{Bid: bid, Load: load, Trucker: trucker}, nil
}

// WithdrawBid retires the caller's own Pending bid. No load-side effect.
func (s *Service) WithdrawBid(ctx context.Context, bidID, userID primitive.ObjectID) (*models.Bid, error) {
	bid, err := s.bids.FindBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid == nil {
		return nil, notFound("Bid not found")
	}

	trucker, err := s.truckers.TruckerByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if trucker == nil {
		return nil, unauthorized("Not authorized to withdraw bids. Only truckers can withdraw their bids.")
	}
	if bid.Trucker != trucker.ID {
		return nil, forbidden("Not authorized to withdraw this bid")
	}

	if status := bid.EffectiveStatus(s.now()); status != models.BidPending {
		return nil, invalidState("Cannot withdraw a bid with status '%s'", status)
	}

	ok, err := s.bids.UpdateBidStatus(ctx, bid.ID, models.BidPending, models.BidWithdrawn)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conflict("This bid was updated by another request just now")
	}

	return s.bids.FindBid(ctx, bid.ID)
}

// CancelLoad cancels an open load and rejects its pending bids as one atomic
// unit. Cancelled is terminal.
func (s *Service) CancelLoad(ctx context.Context, loadID, userID primitive.ObjectID) (*models.Load, error) {
	load, err := s.ownedLoad(ctx, loadID, userID)
	if err != nil {
		return nil, err
	}
	if !load.Status.CanTransitionTo(models.LoadCancelled) {
		return nil, invalidState("Cannot cancel a load with status '%s'", load.Status)
	}

	var rejected []models.Bid
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.loads.CancelLoad(ctx, load.ID)
		if err != nil {
			return err
		}
		if !ok {
			return conflict("This load was updated by another request just now")
		}
		rejected, err = s.bids.RejectPendingBids(ctx, load.ID, primitive.NilObjectID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		for i := range rejected {
			loser := rejected[i]
			if t, err := s.truckers.TruckerByID(ctx, loser.Trucker); err == nil && t != nil {
				s.notifier.BidRejected(t.User.Hex(), &loser)
			}
		}
	}

	load.Status = models.LoadCancelled
	return load, nil
}

// DeleteLoad removes an open load together with every bid on it.
func (s *Service) DeleteLoad(ctx context.Context, loadID, userID primitive.ObjectID) error {
	load, err := s.ownedLoad(ctx, loadID, userID)
	if err != nil {
		return err
	}
	if !load.Status.Editable() {
		return invalidState("Cannot delete a load with status '%s'", load.Status)
	}

	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.loads.DeleteLoad(ctx, load.ID)
		if err != nil {
			return err
		}
		if !ok {
			return conflict("This load was updated by another request just now")
		}
		return s.bids.DeleteBidsByLoad(ctx, load.ID)
	})
}

// ownedLoad resolves a load and verifies the caller is the shipper who
// posted it.
func (s *Service) ownedLoad(ctx context.Context, loadID, userID primitive.ObjectID) (*models.Load, error) {
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
	if shipper == nil {
		return nil, unauthorized("Not authorized to manage loads. Only shippers can manage loads.")
	}
	if load.Shipper != shipper.ID {
		return nil, forbidden("Not authorized to modify this load")
	}
	return load, nil
}

func (s *Service) notifyShipper(ctx context.Context, shipperID primitive.ObjectID, send func(Notifier, string)) {
	if s.notifier == nil {
		return
	}
	shipper, err := s.shippers.ShipperByID(ctx, shipperID)
	if err != nil || shipper == nil {
		return
	}
	send(s.notifier, shipper.User.Hex())
}
