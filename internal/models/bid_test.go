package models

import (
	"testing"
	"time"
)

func TestBidStatusTerminal(t *testing.T) {
	if BidPending.Terminal() {
		t.Error("Pending must not be terminal")
	}
	for _, s := range []BidStatus{BidAccepted, BidRejected, BidWithdrawn, BidExpired} {
		if !s.Terminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
}

func TestBidStatusActive(t *testing.T) {
	if !BidPending.Active() || !BidAccepted.Active() {
		t.Error("Pending and Accepted count as active bids")
	}
	for _, s := range []BidStatus{BidRejected, BidWithdrawn, BidExpired} {
		if s.Active() {
			t.Errorf("%s must not count as active", s)
		}
	}
}

func TestEffectiveStatusLazyExpiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	bid := &Bid{Status: BidPending, ExpiresAt: &past}
	if got := bid.EffectiveStatus(now); got != BidExpired {
		t.Errorf("pending bid past expiry: got %s, want %s", got, BidExpired)
	}
	// The stored status is untouched; expiry is a read-side view.
	if bid.Status != BidPending {
		t.Errorf("stored status mutated to %s", bid.Status)
	}

	bid = &Bid{Status: BidPending, ExpiresAt: &future}
	if got := bid.EffectiveStatus(now); got != BidPending {
		t.Errorf("pending bid before expiry: got %s", got)
	}

	bid = &Bid{Status: BidPending}
	if got := bid.EffectiveStatus(now); got != BidPending {
		t.Errorf("pending bid without expiry: got %s", got)
	}

	// Terminal statuses never flip to Expired.
	bid = &Bid{Status: BidAccepted, ExpiresAt: &past}
	if got := bid.EffectiveStatus(now); got != BidAccepted {
		t.Errorf("accepted bid past expiry: got %s", got)
	}
}
