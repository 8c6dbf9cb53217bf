// server/internal/socket/notifier.go
package socket

import (
	"encoding/json"
	"log"

	"freight-bid-api-server/internal/models"
)

// BidNotifier pushes bid lifecycle events over the Hub. Delivery is best
// effort; a failed send is logged and dropped.
type BidNotifier struct {
	Hub *Hub
}

func NewBidNotifier(hub *Hub) *BidNotifier {
	return &BidNotifier{Hub: hub}
}

func (n *BidNotifier) BidPlaced(userID string, bid *models.Bid) {
	n.send(userID, "new_bid", bid)
}

func (n *BidNotifier) BidAccepted(userID string, bid *models.Bid) {
	n.send(userID, "bid_accepted", bid)
}

func (n *BidNotifier) BidRejected(userID string, bid *models.Bid) {
	n.send(userID, "bid_rejected", bid)
}

func (n *BidNotifier) send(userID, event string, bid *models.Bid) {
	payload, err := json.Marshal(map[string]interface{}{
		"event": event,
		"bid":   bid,
	})
	if err != nil {
		log.Printf("Failed to marshal %s notification: %v", event, err)
		return
	}
	if err := n.Hub.Send(userID, payload); err != nil {
		log.Printf("Failed to send %s notification to %s: %v", event, userID, err)
	}
}
