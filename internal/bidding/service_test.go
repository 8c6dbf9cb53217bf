// server/internal/bidding/service_test.go
package bidding

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"freight-bid-api-server/internal/models"
	"freight-bid-api-server/internal/storage"
)

type notifierEvent struct {
	UserID string
	Event  string
	Bid    *models.Bid
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notifierEvent
}

func (n *fakeNotifier) BidPlaced(userID string, bid *models.Bid) {
	n.record("placed", userID, bid)
}

func (n *fakeNotifier) BidAccepted(userID string, bid *models.Bid) {
	n.record("accepted", userID, bid)
}

func (n *fakeNotifier) BidRejected(userID string, bid *models.Bid) {
	n.record("rejected", userID, bid)
}

func (n *fakeNotifier) record(event, userID string, bid *models.Bid) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifierEvent{UserID: userID, Event: event, Bid: bid})
}

func (n *fakeNotifier) byEvent(event string) []notifierEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifierEvent
	for _, e := range n.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	mem      *storage.Memory
	svc      *Service
	notifier *fakeNotifier
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := storage.NewMemory()
	notifier := &fakeNotifier{}
	svc := NewService(mem.Loads(), mem.Bids(), mem.Truckers(), mem.Shippers(), mem, notifier)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return &fixture{mem: mem, svc: svc, notifier: notifier, now: now}
}

func (f *fixture) addShipper() *models.Shipper {
	shipper := models.Shipper{
		ID:          primitive.NewObjectID(),
		User:        primitive.NewObjectID(),
		CompanyName: "Acme Logistics",
	}
	f.mem.AddShipper(shipper)
	return &shipper
}

// addTrucker seeds a clean-record carrier with a ten-year-old license.
func (f *fixture) addTrucker() *models.Trucker {
	trucker := models.Trucker{
		ID:           primitive.NewObjectID(),
		User:         primitive.NewObjectID(),
		CompanyName:  "Roadrunner Freight",
		ContactName:  "R. Runner",
		ContactPhone: "555-0101",
		DriverLicense: models.DriverLicense{
			Number:    "DL-1",
			IssueDate: f.now.AddDate(-10, 0, 0),
		},
		Truck: models.Truck{Model: "Volvo FH", Year: f.now.Year() - 2, Type: "Flatbed"},
	}
	f.mem.AddTrucker(trucker)
	return &trucker
}

func (f *fixture) addLoad(shipper *models.Shipper, status models.LoadStatus) *models.Load {
	load := models.Load{
		ID:      primitive.NewObjectID(),
		Shipper: shipper.ID,
		Title:   "Steel coils to Denver",
		Budget:  models.Budget{Amount: 2500, Currency: "USD"},
		Status:  status,
		Schedule: models.Schedule{
			PickupDate:   f.now.AddDate(0, 0, 3),
			DeliveryDate: f.now.AddDate(0, 0, 6),
		},
		CreatedAt: f.now.Add(-time.Hour),
	}
	f.mem.AddLoad(load)
	return &load
}

func (f *fixture) placeBid(t *testing.T, load *models.Load, trucker *models.Trucker, amount float64) *models.Bid {
	t.Helper()
	bid, err := f.svc.CreateBid(context.Background(), CreateBidInput{
		LoadID: load.ID,
		UserID: trucker.User,
		Amount: amount,
	})
	if err != nil {
		t.Fatalf("CreateBid(%v): %v", amount, err)
	}
	return bid
}

func assertKind(t *testing.T, err error, want Kind) *Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	svcErr, ok := AsServiceError(err)
	if !ok {
		t.Fatalf("expected service error, got %T: %v", err, err)
	}
	if svcErr.Kind != want {
		t.Fatalf("expected kind %s, got %s (%s)", want, svcErr.Kind, svcErr.Message)
	}
	return svcErr
}

func TestCreateBidHappyPath(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	trucker := f.addTrucker()
	load := f.addLoad(shipper, models.LoadPosted)

	bid, err := f.svc.CreateBid(context.Background(), CreateBidInput{
		LoadID:  load.ID,
		UserID:  trucker.User,
		Amount:  2300,
		Message: "Can pick up a day early if needed",
	})
	if err != nil {
		t.Fatalf("CreateBid: %v", err)
	}

	if bid.Status != models.BidPending {
		t.Errorf("bid status = %s, want Pending", bid.Status)
	}
	if bid.Currency != "USD" {
		t.Errorf("bid currency = %q, want USD (copied from the load budget)", bid.Currency)
	}
	if bid.Reference == "" {
		t.Error("bid reference not generated")
	}
	if bid.IsWinningBid {
		t.Error("new bid must not be flagged as winning")
	}

	stored, err := f.mem.Loads().FindLoad(context.Background(), load.ID)
	if err != nil {
		t.Fatalf("FindLoad: %v", err)
	}
	if stored.Status != models.LoadBidding {
		t.Errorf("load status = %s, want Bidding after first bid", stored.Status)
	}

	placed := f.notifier.byEvent("placed")
	if len(placed) != 1 || placed[0].UserID != shipper.User.Hex() {
		t.Errorf("expected one placed notification to the shipper, got %+v", placed)
	}
}

func TestCreateBidValidationAccumulatesProblems(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	trucker := f.addTrucker()
	load := f.addLoad(shipper, models.LoadPosted)

	longMessage := make([]byte, maxMessageLength+1)
	for i := range longMessage {
		longMessage[i] = 'x'
	}
	pickup := f.now.AddDate(0, 0, 5)
	delivery := pickup.AddDate(0, 0, -2)

	_, err := f.svc.CreateBid(context.Background(), CreateBidInput{
		LoadID:               load.ID,
		UserID:               trucker.User,
		Amount:               0,
		Message:              string(longMessage),
		ProposedPickupDate:   &pickup,
		ProposedDeliveryDate: &delivery,
	})
	svcErr := assertKind(t, err, KindValidation)
	if len(svcErr.Reasons) != 3 {
		t.Errorf("expected 3 validation reasons, got %d: %v", len(svcErr.Reasons), svcErr.Reasons)
	}
}

func TestCreateBidLoadNotFound(t *testing.T) {
	f := newFixture(t)
	trucker := f.addTrucker()

	_, err := f.svc.CreateBid(context.Background(), CreateBidInput{
		LoadID: primitive.NewObjectID(),
		UserID: trucker.User,
		Amount: 1000,
	})
	assertKind(t, err, KindNotFound)
}

func TestCreateBidOnClosedLoad(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	trucker := f.addTrucker()
	load := f.addLoad(shipper, models.LoadAssigned)

	_, err := f.svc.CreateBid(context.Background(), CreateBidInput{
		LoadID: load.ID,
		UserID: trucker.User,
		Amount: 1000,
	})
	svcErr := assertKind(t, err, KindInvalidState)
	if svcErr.Message != "Cannot bid on a load with status 'Assigned'" {
		t.Errorf("unexpected message: %q", svcErr.Message)
	}
}

func TestCreateBidRequiresTruckerProfile(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	load := f.addLoad(shipper, models.LoadPosted)

	_, err := f.svc.CreateBid(context.Background(), CreateBidInput{
		LoadID: load.ID,
		UserID: shipper.User, // a shipper, not a trucker
		Amount: 1000,
	})
	assertKind(t, err, KindUnauthorized)
}

func TestCreateBidEligibilityFailureCarriesAllReasons(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	load := f.addLoad(shipper, models.LoadPosted)
	maxAccidents, minYears := 1, 8

	trucker := models.Trucker{
		ID:   primitive.NewObjectID(),
		User: primitive.NewObjectID(),
		DriverLicense: models.DriverLicense{
			IssueDate: f.now.AddDate(-2, 0, 0), // 2 years of experience
		},
		Truck: models.Truck{Year: f.now.Year()},
		AccidentHistory: models.AccidentHistory{
			HasAccidents: true,
			Details:      []models.AccidentRecord{{}, {}, {}},
		},
	}
	f.mem.AddTrucker(trucker)

	load.EligibilityCriteria = &models.EligibilityCriteria{
		MaxAccidentHistory: &maxAccidents,
		MinExperienceYears: &minYears,
	}
	f.mem.AddLoad(*load)

	_, err := f.svc.CreateBid(context.Background(), CreateBidInput{
		LoadID: load.ID,
		UserID: trucker.User,
		Amount: 1000,
	})
	svcErr := assertKind(t, err, KindEligibilityFailed)
	if len(svcErr.Reasons) != 2 {
		t.Errorf("expected both deficiencies reported, got %v", svcErr.Reasons)
	}

	if bids, _ := f.mem.Bids().BidsByLoad(context.Background(), load.ID); len(bids) != 0 {
		t.Errorf("no bid should be created on eligibility failure, found %d", len(bids))
	}
}

func TestCreateBidDuplicateActiveBid(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	trucker := f.addTrucker()
	load := f.addLoad(shipper, models.LoadPosted)

	first := f.placeBid(t, load, trucker, 2000)

	_, err := f.svc.CreateBid(context.Background(), CreateBidInput{
		LoadID: load.ID,
		UserID: trucker.User,
		Amount: 1900,
	})
	assertKind(t, err, KindConflict)

	// After withdrawing, the trucker may bid again.
	if _, err := f.svc.WithdrawBid(context.Background(), first.ID, trucker.User); err != nil {
		t.Fatalf("WithdrawBid: %v", err)
	}
	if _, err := f.svc.CreateBid(context.Background(), CreateBidInput{
		LoadID: load.ID,
		UserID: trucker.User,
		Amount: 1900,
	}); err != nil {
		t.Fatalf("rebid after withdrawal: %v", err)
	}
}

func TestCreateBidAfterOwnBidExpired(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	trucker := f.addTrucker()
	load := f.addLoad(shipper, models.LoadPosted)

	expired := f.placeBid(t, load, trucker, 2000)
	past := f.now.Add(-time.Hour)
	expired.ExpiresAt = &past
	f.mem.AddBid(*expired)

	// The lapsed bid no longer counts against the one-live-bid rule.
	if _, err := f.svc.CreateBid(context.Background(), CreateBidInput{
		LoadID: load.ID,
		UserID: trucker.User,
		Amount: 1800,
	}); err != nil {
		t.Fatalf("bid after expiry: %v", err)
	}

	// The expiry must be persisted: a second Pending document for the same
	// (load, trucker) pair would violate the live-bid unique index.
	stored, _ := f.mem.Bids().FindBid(context.Background(), expired.ID)
	if stored.Status != models.BidExpired {
		t.Errorf("old bid stored as %s, want Expired persisted before the re-bid", stored.Status)
	}
	bids, _ := f.mem.Bids().BidsByLoadAndTrucker(context.Background(), load.ID, trucker.ID)
	var live int
	for _, b := range bids {
		if b.Status.Active() {
			live++
		}
	}
	if live != 1 {
		t.Errorf("found %d live bids stored for the pair, want 1", live)
	}
}

// blindBids hides the trucker's existing bid from the duplicate precondition,
// forcing CreateBid into the insert so the unique index is the last guard.
type blindBids struct {
	BidRepository
}

func (b *blindBids) ActiveBidByLoadAndTrucker(ctx context.Context, loadID, truckerID primitive.ObjectID) (*models.Bid, error) {
	return nil, nil
}

func TestCreateBidDuplicateIndexRaceIsConflict(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	trucker := f.addTrucker()
	load := f.addLoad(shipper, models.LoadPosted)
	f.placeBid(t, load, trucker, 2000)

	racing := NewService(f.mem.Loads(), &blindBids{BidRepository: f.mem.Bids()}, f.mem.Truckers(), f.mem.Shippers(), f.mem, nil)
	racing.now = f.svc.now

	_, err := racing.CreateBid(context.Background(), CreateBidInput{
		LoadID: load.ID,
		UserID: trucker.User,
		Amount: 1900,
	})
	assertKind(t, err, KindConflict)
}

func TestAcceptBidSettlesLoadAndSiblings(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	load := f.addLoad(shipper, models.LoadPosted)
	winner := f.addTrucker()
	loserA := f.addTrucker()
	loserB := f.addTrucker()

	winningBid := f.placeBid(t, load, winner, 2100)
	bidA := f.placeBid(t, load, loserA, 2300)
	bidB := f.placeBid(t, load, loserB, 2200)
	if _, err := f.svc.WithdrawBid(context.Background(), bidB.ID, loserB.User); err != nil {
		t.Fatalf("WithdrawBid: %v", err)
	}

	result, err := f.svc.AcceptBid(context.Background(), winningBid.ID, shipper.User)
	if err != nil {
		t.Fatalf("AcceptBid: %v", err)
	}

	if result.Bid.Status != models.BidAccepted || !result.Bid.IsWinningBid {
		t.Errorf("winner = %s winning=%v, want Accepted winning bid", result.Bid.Status, result.Bid.IsWinningBid)
	}
	if result.Bid.AcceptedAt == nil || !result.Bid.AcceptedAt.Equal(f.now) {
		t.Errorf("acceptedAt = %v, want %v", result.Bid.AcceptedAt, f.now)
	}
	if result.Load.Status != models.LoadAssigned {
		t.Errorf("load status = %s, want Assigned", result.Load.Status)
	}
	if result.Load.AssignedTo == nil || *result.Load.AssignedTo != winner.ID {
		t.Errorf("assignedTo = %v, want %v", result.Load.AssignedTo, winner.ID)
	}
	if result.Load.WinningBid == nil || *result.Load.WinningBid != winningBid.ID {
		t.Errorf("winningBid = %v, want %v", result.Load.WinningBid, winningBid.ID)
	}
	if result.Trucker == nil || result.Trucker.ID != winner.ID {
		t.Errorf("result trucker = %+v, want the winner", result.Trucker)
	}

	// The pending sibling is rejected; the withdrawn one is untouched.
	storedA, _ := f.mem.Bids().FindBid(context.Background(), bidA.ID)
	if storedA.Status != models.BidRejected {
		t.Errorf("pending sibling = %s, want Rejected", storedA.Status)
	}
	storedB, _ := f.mem.Bids().FindBid(context.Background(), bidB.ID)
	if storedB.Status != models.BidWithdrawn {
		t.Errorf("withdrawn sibling = %s, want Withdrawn untouched", storedB.Status)
	}

	accepted := f.notifier.byEvent("accepted")
	if len(accepted) != 1 || accepted[0].UserID != winner.User.Hex() {
		t.Errorf("expected one accepted notification to the winner, got %+v", accepted)
	}
	rejected := f.notifier.byEvent("rejected")
	if len(rejected) != 1 || rejected[0].UserID != loserA.User.Hex() {
		t.Errorf("expected one rejected notification to the losing bidder, got %+v", rejected)
	}
}

func TestAcceptBidOwnershipAndRole(t *testing.T) {
	f := newFixture(t)
	owner := f.addShipper()
	other := f.addShipper()
	trucker := f.addTrucker()
	load := f.addLoad(owner, models.LoadPosted)
	bid := f.placeBid(t, load, trucker, 2000)

	_, err := f.svc.AcceptBid(context.Background(), bid.ID, other.User)
	assertKind(t, err, KindForbidden)

	_, err = f.svc.AcceptBid(context.Background(), bid.ID, trucker.User)
	assertKind(t, err, KindUnauthorized)

	_, err = f.svc.AcceptBid(context.Background(), primitive.NewObjectID(), owner.User)
	assertKind(t, err, KindNotFound)
}

func TestAcceptBidOnSettledLoad(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	load := f.addLoad(shipper, models.LoadPosted)
	first := f.addTrucker()
	second := f.addTrucker()

	firstBid := f.placeBid(t, load, first, 2000)
	secondBid := f.placeBid(t, load, second, 1900)

	if _, err := f.svc.AcceptBid(context.Background(), firstBid.ID, shipper.User); err != nil {
		t.Fatalf("AcceptBid: %v", err)
	}

	_, err := f.svc.AcceptBid(context.Background(), secondBid.ID, shipper.User)
	assertKind(t, err, KindInvalidState)
}

func TestAcceptBidConcurrentDoubleAccept(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	load := f.addLoad(shipper, models.LoadPosted)
	bidOne := f.placeBid(t, load, f.addTrucker(), 2000)
	bidTwo := f.placeBid(t, load, f.addTrucker(), 1900)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, bidID := range []primitive.ObjectID{bidOne.ID, bidTwo.ID} {
		wg.Add(1)
		go func(i int, bidID primitive.ObjectID) {
			defer wg.Done()
			_, errs[i] = f.svc.AcceptBid(context.Background(), bidID, shipper.User)
		}(i, bidID)
	}
	wg.Wait()

	var successes, failures int
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		failures++
		svcErr, ok := AsServiceError(err)
		if !ok {
			t.Fatalf("unexpected error type: %v", err)
		}
		if svcErr.Kind != KindConflict && svcErr.Kind != KindInvalidState {
			t.Errorf("loser kind = %s, want Conflict or InvalidState", svcErr.Kind)
		}
	}
	if successes != 1 || failures != 1 {
		t.Fatalf("got %d successes and %d failures, want exactly one of each", successes, failures)
	}

	// One winner, one rejected sibling, load assigned exactly once.
	stored, _ := f.mem.Loads().FindLoad(context.Background(), load.ID)
	if stored.Status != models.LoadAssigned {
		t.Fatalf("load status = %s, want Assigned", stored.Status)
	}
	bids, _ := f.mem.Bids().BidsByLoad(context.Background(), load.ID)
	var acceptedCount, rejectedCount int
	for _, b := range bids {
		switch b.Status {
		case models.BidAccepted:
			acceptedCount++
			if *stored.WinningBid != b.ID {
				t.Errorf("winning bid pointer %v does not match accepted bid %v", stored.WinningBid, b.ID)
			}
		case models.BidRejected:
			rejectedCount++
		}
	}
	if acceptedCount != 1 || rejectedCount != 1 {
		t.Errorf("accepted=%d rejected=%d, want 1 and 1", acceptedCount, rejectedCount)
	}
}

func TestAcceptExpiredBid(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	trucker := f.addTrucker()
	load := f.addLoad(shipper, models.LoadPosted)

	bid := f.placeBid(t, load, trucker, 2000)
	past := f.now.Add(-time.Minute)
	bid.ExpiresAt = &past
	f.mem.AddBid(*bid)

	_, err := f.svc.AcceptBid(context.Background(), bid.ID, shipper.User)
	svcErr := assertKind(t, err, KindInvalidState)
	if svcErr.Message != "Cannot accept a bid with status 'Expired'" {
		t.Errorf("unexpected message: %q", svcErr.Message)
	}
}

func TestWithdrawBid(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	owner := f.addTrucker()
	other := f.addTrucker()
	load := f.addLoad(shipper, models.LoadPosted)
	bid := f.placeBid(t, load, owner, 2000)

	_, err := f.svc.WithdrawBid(context.Background(), bid.ID, other.User)
	assertKind(t, err, KindForbidden)

	withdrawn, err := f.svc.WithdrawBid(context.Background(), bid.ID, owner.User)
	if err != nil {
		t.Fatalf("WithdrawBid: %v", err)
	}
	if withdrawn.Status != models.BidWithdrawn {
		t.Errorf("status = %s, want Withdrawn", withdrawn.Status)
	}

	_, err = f.svc.WithdrawBid(context.Background(), bid.ID, owner.User)
	assertKind(t, err, KindInvalidState)
}

func TestListBidsForLoadVisibility(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	load := f.addLoad(shipper, models.LoadPosted)
	truckerA := f.addTrucker()
	truckerB := f.addTrucker()

	f.placeBid(t, load, truckerA, 2300)
	f.placeBid(t, load, truckerB, 2100)

	// The owning shipper sees every bid, cheapest first, with carrier info.
	all, err := f.svc.ListBidsForLoad(context.Background(), load.ID, shipper.User)
	if err != nil {
		t.Fatalf("ListBidsForLoad(shipper): %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("shipper sees %d bids, want 2", len(all))
	}
	if all[0].Amount != 2100 || all[1].Amount != 2300 {
		t.Errorf("bids not sorted by ascending amount: %v, %v", all[0].Amount, all[1].Amount)
	}
	if all[0].TruckerInfo == nil || all[0].TruckerInfo.CompanyName == "" {
		t.Error("shipper listing missing trucker summaries")
	}

	// A bidding trucker sees only their own bid.
	own, err := f.svc.ListBidsForLoad(context.Background(), load.ID, truckerA.User)
	if err != nil {
		t.Fatalf("ListBidsForLoad(trucker): %v", err)
	}
	if len(own) != 1 || own[0].Trucker != truckerA.ID {
		t.Errorf("trucker listing = %+v, want only their own bid", own)
	}

	// A user with neither profile is refused.
	if _, err := f.svc.ListBidsForLoad(context.Background(), load.ID, primitive.NewObjectID()); err == nil {
		t.Fatal("expected Forbidden for a stranger")
	} else {
		assertKind(t, err, KindForbidden)
	}
}

func TestListBidsForTruckerNewestFirst(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	trucker := f.addTrucker()
	loadA := f.addLoad(shipper, models.LoadPosted)
	loadB := f.addLoad(shipper, models.LoadPosted)

	first := f.placeBid(t, loadA, trucker, 2000)
	earlier := first.CreatedAt.Add(-time.Hour)
	first.CreatedAt = earlier
	f.mem.AddBid(*first)
	f.placeBid(t, loadB, trucker, 1500)

	bids, err := f.svc.ListBidsForTrucker(context.Background(), trucker.User)
	if err != nil {
		t.Fatalf("ListBidsForTrucker: %v", err)
	}
	if len(bids) != 2 {
		t.Fatalf("got %d bids, want 2", len(bids))
	}
	if !bids[0].CreatedAt.After(bids[1].CreatedAt) {
		t.Error("bids not sorted newest first")
	}
	if bids[0].LoadInfo == nil || bids[0].LoadInfo.Title == "" {
		t.Error("trucker listing missing load summaries")
	}

	_, err = f.svc.ListBidsForTrucker(context.Background(), shipper.User)
	assertKind(t, err, KindUnauthorized)
}

func TestListBidsForShipperAggregatesAcrossLoads(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	otherShipper := f.addShipper()
	trucker := f.addTrucker()
	mine := f.addLoad(shipper, models.LoadPosted)
	theirs := f.addLoad(otherShipper, models.LoadPosted)

	f.placeBid(t, mine, trucker, 2000)
	f.placeBid(t, theirs, trucker, 1000)

	bids, err := f.svc.ListBidsForShipper(context.Background(), shipper.User)
	if err != nil {
		t.Fatalf("ListBidsForShipper: %v", err)
	}
	if len(bids) != 1 {
		t.Fatalf("got %d bids, want only bids on the caller's loads", len(bids))
	}
	if bids[0].LoadInfo == nil || bids[0].TruckerInfo == nil {
		t.Error("aggregate listing missing summaries")
	}
}

func TestGetBidVisibility(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	trucker := f.addTrucker()
	stranger := f.addTrucker()
	load := f.addLoad(shipper, models.LoadPosted)
	bid := f.placeBid(t, load, trucker, 2000)

	if _, err := f.svc.GetBid(context.Background(), bid.ID, shipper.User); err != nil {
		t.Errorf("owning shipper refused: %v", err)
	}
	if _, err := f.svc.GetBid(context.Background(), bid.ID, trucker.User); err != nil {
		t.Errorf("bidder refused: %v", err)
	}
	_, err := f.svc.GetBid(context.Background(), bid.ID, stranger.User)
	assertKind(t, err, KindForbidden)
}

func TestLowestBid(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	load := f.addLoad(shipper, models.LoadPosted)
	truckerA := f.addTrucker()
	truckerB := f.addTrucker()
	truckerC := f.addTrucker()

	// Tie on amount: the earlier bid wins.
	first := f.placeBid(t, load, truckerA, 1800)
	earlier := first.CreatedAt.Add(-time.Hour)
	first.CreatedAt = earlier
	f.mem.AddBid(*first)
	f.placeBid(t, load, truckerB, 1800)

	// A cheaper but expired bid is ignored.
	cheap := f.placeBid(t, load, truckerC, 1500)
	past := f.now.Add(-time.Minute)
	cheap.ExpiresAt = &past
	f.mem.AddBid(*cheap)

	lowest, err := f.svc.LowestBid(context.Background(), load.ID)
	if err != nil {
		t.Fatalf("LowestBid: %v", err)
	}
	if lowest == nil {
		t.Fatal("expected a lowest bid")
	}
	if lowest.ID != first.ID {
		t.Errorf("lowest = %v amount %v, want the earlier of the tied bids", lowest.ID, lowest.Amount)
	}

	empty, err := f.svc.LowestBid(context.Background(), primitive.NewObjectID())
	if err != nil {
		t.Fatalf("LowestBid(empty): %v", err)
	}
	if empty != nil {
		t.Errorf("expected nil for a load with no bids, got %+v", empty)
	}
}

func TestCancelLoadRejectsPendingBids(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	other := f.addShipper()
	load := f.addLoad(shipper, models.LoadPosted)
	bidder := f.addTrucker()
	withdrawer := f.addTrucker()

	pending := f.placeBid(t, load, bidder, 2000)
	withdrawn := f.placeBid(t, load, withdrawer, 2100)
	if _, err := f.svc.WithdrawBid(context.Background(), withdrawn.ID, withdrawer.User); err != nil {
		t.Fatalf("WithdrawBid: %v", err)
	}

	_, err := f.svc.CancelLoad(context.Background(), load.ID, other.User)
	assertKind(t, err, KindForbidden)

	cancelled, err := f.svc.CancelLoad(context.Background(), load.ID, shipper.User)
	if err != nil {
		t.Fatalf("CancelLoad: %v", err)
	}
	if cancelled.Status != models.LoadCancelled {
		t.Errorf("load status = %s, want Cancelled", cancelled.Status)
	}

	// The pending bid is rejected with the cancellation, the withdrawn one
	// is untouched, and both writes land together.
	storedPending, _ := f.mem.Bids().FindBid(context.Background(), pending.ID)
	if storedPending.Status != models.BidRejected {
		t.Errorf("pending bid = %s, want Rejected", storedPending.Status)
	}
	storedWithdrawn, _ := f.mem.Bids().FindBid(context.Background(), withdrawn.ID)
	if storedWithdrawn.Status != models.BidWithdrawn {
		t.Errorf("withdrawn bid = %s, want Withdrawn untouched", storedWithdrawn.Status)
	}

	rejected := f.notifier.byEvent("rejected")
	if len(rejected) != 1 || rejected[0].UserID != bidder.User.Hex() {
		t.Errorf("expected one rejected notification to the pending bidder, got %+v", rejected)
	}

	// Cancelled is terminal.
	_, err = f.svc.CancelLoad(context.Background(), load.ID, shipper.User)
	assertKind(t, err, KindInvalidState)
}

func TestDeleteLoadRemovesItsBids(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	trucker := f.addTrucker()
	load := f.addLoad(shipper, models.LoadPosted)
	f.placeBid(t, load, trucker, 2000)

	if err := f.svc.DeleteLoad(context.Background(), load.ID, trucker.User); err == nil {
		t.Fatal("expected Unauthorized for a trucker")
	} else {
		assertKind(t, err, KindUnauthorized)
	}

	if err := f.svc.DeleteLoad(context.Background(), load.ID, shipper.User); err != nil {
		t.Fatalf("DeleteLoad: %v", err)
	}

	gone, _ := f.mem.Loads().FindLoad(context.Background(), load.ID)
	if gone != nil {
		t.Error("load still present after delete")
	}
	bids, _ := f.mem.Bids().BidsByLoad(context.Background(), load.ID)
	if len(bids) != 0 {
		t.Errorf("found %d orphaned bids after delete, want 0", len(bids))
	}

	err := f.svc.DeleteLoad(context.Background(), load.ID, shipper.User)
	assertKind(t, err, KindNotFound)
}

func TestDeleteSettledLoadRefused(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	load := f.addLoad(shipper, models.LoadAssigned)

	err := f.svc.DeleteLoad(context.Background(), load.ID, shipper.User)
	assertKind(t, err, KindInvalidState)
}

// vanishingBids serves the precondition read, then reports the bid gone for
// the post-settlement re-read.
type vanishingBids struct {
	BidRepository
	finds int
}

func (v *vanishingBids) FindBid(ctx context.Context, id primitive.ObjectID) (*models.Bid, error) {
	v.finds++
	if v.finds > 1 {
		return nil, nil
	}
	return v.BidRepository.FindBid(ctx, id)
}

type vanishingLoads struct {
	LoadRepository
	finds int
}

func (v *vanishingLoads) FindLoad(ctx context.Context, id primitive.ObjectID) (*models.Load, error) {
	v.finds++
	if v.finds > 1 {
		return nil, nil
	}
	return v.LoadRepository.FindLoad(ctx, id)
}

func TestAcceptBidSurvivesVanishedReread(t *testing.T) {
	seed := func(f *fixture) (primitive.ObjectID, primitive.ObjectID) {
		shipper := f.addShipper()
		trucker := f.addTrucker()
		load := f.addLoad(shipper, models.LoadPosted)
		bid := f.placeBid(t, load, trucker, 2000)
		return bid.ID, shipper.User
	}

	t.Run("bid gone", func(t *testing.T) {
		f := newFixture(t)
		bidID, shipperUser := seed(f)
		svc := NewService(f.mem.Loads(), &vanishingBids{BidRepository: f.mem.Bids()}, f.mem.Truckers(), f.mem.Shippers(), f.mem, nil)
		svc.now = f.svc.now

		_, err := svc.AcceptBid(context.Background(), bidID, shipperUser)
		assertKind(t, err, KindConflict)
	})

	t.Run("load gone", func(t *testing.T) {
		f := newFixture(t)
		bidID, shipperUser := seed(f)
		svc := NewService(&vanishingLoads{LoadRepository: f.mem.Loads()}, f.mem.Bids(), f.mem.Truckers(), f.mem.Shippers(), f.mem, nil)
		svc.now = f.svc.now

		_, err := svc.AcceptBid(context.Background(), bidID, shipperUser)
		assertKind(t, err, KindConflict)
	})
}

func TestExpiredBidReportedInListings(t *testing.T) {
	f := newFixture(t)
	shipper := f.addShipper()
	trucker := f.addTrucker()
	load := f.addLoad(shipper, models.LoadPosted)

	bid := f.placeBid(t, load, trucker, 2000)
	past := f.now.Add(-time.Minute)
	bid.ExpiresAt = &past
	f.mem.AddBid(*bid)

	listed, err := f.svc.ListBidsForLoad(context.Background(), load.ID, shipper.User)
	if err != nil {
		t.Fatalf("ListBidsForLoad: %v", err)
	}
	if len(listed) != 1 || listed[0].Status != models.BidExpired {
		t.Errorf("listing = %+v, want the bid reported as Expired", listed)
	}

	// The stored record is untouched; expiry is a read-side view.
	stored, _ := f.mem.Bids().FindBid(context.Background(), bid.ID)
	if stored.Status != models.BidPending {
		t.Errorf("stored status = %s, want Pending", stored.Status)
	}
}
