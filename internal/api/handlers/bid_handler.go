// server/internal/api/handlers/bid_handler.go
package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"freight-bid-api-server/internal/bidding"
)

type BidHandler struct {
	Service *bidding.Service
}

type CreateBidPayload struct {
	Amount               float64    `json:"amount"`
	Message              string     `json:"message"`
	ProposedPickupDate   *time.Time `json:"proposedPickupDate"`
	ProposedDeliveryDate *time.Time `json:"proposedDeliveryDate"`
}

// CreateBid places a bid on the load in the path, on behalf of the
// authenticated trucker.
func (h *BidHandler) CreateBid(c *gin.Context) {
	loadID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var payload CreateBidPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bid, err := h.Service.CreateBid(c.Request.Context(), bidding.CreateBidInput{
		LoadID:               loadID,
		UserID:               userID,
		Amount:               payload.Amount,
		Message:              payload.Message,
		ProposedPickupDate:   payload.ProposedPickupDate,
		ProposedDeliveryDate: payload.ProposedDeliveryDate,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bid)
}

// AcceptBid settles the bid as the load's winner.
func (h *BidHandler) AcceptBid(c *gin.Context) {
	bidID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.Service.AcceptBid(c.Request.Context(), bidID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Bid accepted. The load has been assigned.",
		"bid":     result.Bid,
		"load":    result.Load,
		"trucker": result.Trucker,
	})
}

// WithdrawBid retires the caller's own pending bid.
func (h *BidHandler) WithdrawBid(c *gin.Context) {
	bidID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	bid, err := h.Service.WithdrawBid(c.Request.Context(), bidID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, bid)
}

// GetBid returns one bid. The service enforces the shipper-or-bidder
// visibility rule.
func (h *BidHandler) GetBid(c *gin.Context) {
	bidID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	detail, err := h.Service.GetBid(c.Request.Context(), bidID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// GetBidsForLoad lists the bids on a load the caller is allowed to see.
func (h *BidHandler) GetBidsForLoad(c *gin.Context) {
	loadID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	bids, err := h.Service.ListBidsForLoad(c.Request.Context(), loadID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if bids == nil {
		bids = []bidding.BidDetail{}
	}

	c.JSON(http.StatusOK, bids)
}

// GetMyBids lists the authenticated trucker's bids, newest first.
func (h *BidHandler) GetMyBids(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	bids, err := h.Service.ListBidsForTrucker(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if bids == nil {
		bids = []bidding.BidDetail{}
	}

	c.JSON(http.StatusOK, bids)
}

// GetReceivedBids lists every bid across the authenticated shipper's loads.
func (h *BidHandler) GetReceivedBids(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	bids, err := h.Service.ListBidsForShipper(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if bids == nil {
		bids = []bidding.BidDetail{}
	}

	c.JSON(http.StatusOK, bids)
}

// GetLowestBid returns the lowest live bid on a load, or 404 when there is
// none.
func (h *BidHandler) GetLowestBid(c *gin.Context) {
	loadID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	bid, err := h.Service.LowestBid(c.Request.Context(), loadID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if bid == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active bids for this load"})
		return
	}

	c.JSON(http.StatusOK, bid)
}

// writeServiceError maps a typed service error onto the HTTP response.
func writeServiceError(c *gin.Context, err error) {
	svcErr, ok := bidding.AsServiceError(err)
	if !ok {
		log.Printf("Unexpected error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	body := gin.H{"error": svcErr.Message}
	if len(svcErr.Reasons) > 0 {
		body["reasons"] = svcErr.Reasons
	}

	switch svcErr.Kind {
	case bidding.KindNotFound:
		c.JSON(http.StatusNotFound, body)
	case bidding.KindForbidden:
		c.JSON(http.StatusForbidden, body)
	case bidding.KindUnauthorized:
		c.JSON(http.StatusUnauthorized, body)
	case bidding.KindConflict:
		c.JSON(http.StatusConflict, body)
	case bidding.KindInvalidState, bidding.KindEligibilityFailed, bidding.KindValidation:
		c.JSON(http.StatusBadRequest, body)
	default:
		c.JSON(http.StatusInternalServerError, body)
	}
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return primitive.NilObjectID, false
	}
	return id, true
}

func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user identity"})
		return primitive.NilObjectID, false
	}
	return id, true
}
