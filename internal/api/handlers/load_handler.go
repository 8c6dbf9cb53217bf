// server/internal/api/handlers/load_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"freight-bid-api-server/internal/bidding"
	"freight-bid-api-server/internal/models"
)

type LoadHandler struct {
	DB *mongo.Database

	// Service handles the mutations that touch bids as well as the load, so
	// they run inside one transaction.
	Service *bidding.Service
}

type CreateLoadPayload struct {
	Title               string                      `json:"title" binding:"required"`
	Description         string                      `json:"description"`
	CargoType           string                      `json:"cargoType" binding:"required"`
	Weight              models.Weight               `json:"weight" binding:"required"`
	Dimensions          *models.Dimensions          `json:"dimensions"`
	PickupLocation      models.Location             `json:"pickupLocation" binding:"required"`
	DeliveryLocation    models.Location             `json:"deliveryLocation" binding:"required"`
	Schedule            models.Schedule             `json:"schedule" binding:"required"`
	Budget              models.Budget               `json:"budget" binding:"required"`
	RequiredTruckType   string                      `json:"requiredTruckType" binding:"required"`
	SpecialRequirements []string                    `json:"specialRequirements"`
	EligibilityCriteria *models.EligibilityCriteria `json:"eligibilityCriteria"`
	ExpiresAt           *time.Time                  `json:"expiresAt"`
}

// CreateLoad posts a new load for the authenticated shipper. Loads always
// start in Posted.
func (h *LoadHandler) CreateLoad(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	shipper, ok := h.shipperByUser(c, userID)
	if !ok {
		return
	}

	var payload CreateLoadPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.Schedule.DeliveryDate.Before(payload.Schedule.PickupDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Delivery date cannot be before the pickup date"})
		return
	}

	load := models.Load{
		ID:                  primitive.NewObjectID(),
		Reference:           fmt.Sprintf("LOAD-%s", strings.ToUpper(uuid.New().String()[:8])),
		Shipper:             shipper.ID,
		Title:               payload.Title,
		Description:         payload.Description,
		CargoType:           payload.CargoType,
		Weight:              payload.Weight,
		Dimensions:          payload.Dimensions,
		PickupLocation:      payload.PickupLocation,
		DeliveryLocation:    payload.DeliveryLocation,
		Schedule:            payload.Schedule,
		Budget:              payload.Budget,
		RequiredTruckType:   payload.RequiredTruckType,
		SpecialRequirements: payload.SpecialRequirements,
		EligibilityCriteria: payload.EligibilityCriteria,
		Status:              models.LoadPosted,
		CreatedAt:           time.Now(),
		ExpiresAt:           payload.ExpiresAt,
	}

	if _, err := h.DB.Collection("loads").InsertOne(c.Request.Context(), load); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create load"})
		return
	}

	c.JSON(http.StatusCreated, load)
}

// GetLoads lists loads matching the query filters, newest first, paginated.
func (h *LoadHandler) GetLoads(c *gin.Context) {
	filter := bson.M{}

	if status := c.Query("status"); status != "" {
		filter["status"] = status
	}
	if cargoType := c.Query("cargoType"); cargoType != "" {
		filter["cargoType"] = cargoType
	}
	if truckType := c.Query("truckType"); truckType != "" {
		filter["requiredTruckType"] = truckType
	}
	if city := c.Query("pickupCity"); city != "" {
		filter["pickupLocation.city"] = caseInsensitive(city)
	}
	if state := c.Query("pickupState"); state != "" {
		filter["pickupLocation.state"] = caseInsensitive(state)
	}
	if city := c.Query("deliveryCity"); city != "" {
		filter["deliveryLocation.city"] = caseInsensitive(city)
	}
	if state := c.Query("deliveryState"); state != "" {
		filter["deliveryLocation.state"] = caseInsensitive(state)
	}
	if keyword := c.Query("keyword"); keyword != "" {
		pattern := caseInsensitive(keyword)
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}
	if dateRange := rangeFilter(dateValue(c.Query("pickupDateFrom")), dateValue(c.Query("pickupDateTo"))); dateRange != nil {
		filter["schedule.pickupDate"] = dateRange
	}
	if weightRange := rangeFilter(floatValue(c.Query("minWeight")), floatValue(c.Query("maxWeight"))); weightRange != nil {
		filter["weight.value"] = weightRange
	}
	if budgetRange := rangeFilter(floatValue(c.Query("minBudget")), floatValue(c.Query("maxBudget"))); budgetRange != nil {
		filter["budget.amount"] = budgetRange
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	collection := h.DB.Collection("loads")
	total, err := collection.CountDocuments(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count loads"})
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(c.Request.Context(), filter, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query loads"})
		return
	}
	defer cursor.Close(c.Request.Context())

	var loads []models.Load
	if err := cursor.All(c.Request.Context(), &loads); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode loads"})
		return
	}
	if loads == nil {
		loads = []models.Load{}
	}

	c.JSON(http.StatusOK, gin.H{
		"loads": loads,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// GetLoad returns a single load by ID.
func (h *LoadHandler) GetLoad(c *gin.Context) {
	loadID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var load models.Load
	err := h.DB.Collection("loads").FindOne(c.Request.Context(), bson.M{"_id": loadID}).Decode(&load)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Load not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query load"})
		return
	}

	c.JSON(http.StatusOK, load)
}

// GetMyLoads lists the authenticated shipper's own loads.
func (h *LoadHandler) GetMyLoads(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	shipper, ok := h.shipperByUser(c, userID)
	if !ok {
		return
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := h.DB.Collection("loads").Find(c.Request.Context(), bson.M{"shipper": shipper.ID}, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query loads"})
		return
	}
	defer cursor.Close(c.Request.Context())

	var loads []models.Load
	if err := cursor.All(c.Request.Context(), &loads); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode loads"})
		return
	}
	if loads == nil {
		loads = []models.Load{}
	}

	c.JSON(http.StatusOK, loads)
}

type UpdateLoadPayload struct {
	Title               *string                     `json:"title"`
	Description         *string                     `json:"description"`
	CargoType           *string                     `json:"cargoType"`
	Weight              *models.Weight              `json:"weight"`
	Dimensions          *models.Dimensions          `json:"dimensions"`
	PickupLocation      *models.Location            `json:"pickupLocation"`
	DeliveryLocation    *models.Location            `json:"deliveryLocation"`
	Schedule            *models.Schedule            `json:"schedule"`
	Budget              *models.Budget              `json:"budget"`
	RequiredTruckType   *string                     `json:"requiredTruckType"`
	SpecialRequirements []string                    `json:"specialRequirements"`
	EligibilityCriteria *models.EligibilityCriteria `json:"eligibilityCriteria"`
	ExpiresAt           *time.Time                  `json:"expiresAt"`
}

// UpdateLoad edits an open load's posting fields. Once a carrier is assigned
// the posting is frozen.
func (h *LoadHandler) UpdateLoad(c *gin.Context) {
	load, ok := h.ownedEditableLoad(c)
	if !ok {
		return
	}

	var payload UpdateLoadPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	set := bson.M{}
	if payload.Title != nil {
		set["title"] = *payload.Title
	}
	if payload.Description != nil {
		set["description"] = *payload.Description
	}
	if payload.CargoType != nil {
		set["cargoType"] = *payload.CargoType
	}
	if payload.Weight != nil {
		set["weight"] = *payload.Weight
	}
	if payload.Dimensions != nil {
		set["dimensions"] = *payload.Dimensions
	}
	if payload.PickupLocation != nil {
		set["pickupLocation"] = *payload.PickupLocation
	}
	if payload.DeliveryLocation != nil {
		set["deliveryLocation"] = *payload.DeliveryLocation
	}
	if payload.Schedule != nil {
		set["schedule"] = *payload.Schedule
	}
	if payload.Budget != nil {
		set["budget"] = *payload.Budget
	}
	if payload.RequiredTruckType != nil {
		set["requiredTruckType"] = *payload.RequiredTruckType
	}
	if payload.SpecialRequirements != nil {
		set["specialRequirements"] = payload.SpecialRequirements
	}
	if payload.EligibilityCriteria != nil {
		set["eligibilityCriteria"] = *payload.EligibilityCriteria
	}
	if payload.ExpiresAt != nil {
		set["expiresAt"] = *payload.ExpiresAt
	}
	if len(set) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	// The status filter keeps a concurrent assignment from racing the edit.
	result, err := h.DB.Collection("loads").UpdateOne(c.Request.Context(),
		bson.M{"_id": load.ID, "status": bson.M{"$in": bson.A{models.LoadPosted, models.LoadBidding}}},
		bson.M{"$set": set},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update load"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "This load was assigned by another request just now"})
		return
	}

	var updated models.Load
	if err := h.DB.Collection("loads").FindOne(c.Request.Context(), bson.M{"_id": load.ID}).Decode(&updated); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload load"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteLoad removes an open load and its bids in one transaction.
func (h *LoadHandler) DeleteLoad(c *gin.Context) {
	loadID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.Service.DeleteLoad(c.Request.Context(), loadID, userID); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Load deleted"})
}

// CancelLoad cancels an open load, rejecting its pending bids with it.
// Cancelled is terminal.
func (h *LoadHandler) CancelLoad(c *gin.Context) {
	loadID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	load, err := h.Service.CancelLoad(c.Request.Context(), loadID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, load)
}

type UpdateLoadStatusPayload struct {
	Status models.LoadStatus `json:"status" binding:"required"`
}

// UpdateLoadStatus advances an assigned load along its fulfillment states.
// The transition table is the only authority on what is legal.
func (h *LoadHandler) UpdateLoadStatus(c *gin.Context) {
	loadID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var payload UpdateLoadStatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	load, ok := h.findLoad(c, loadID)
	if !ok {
		return
	}

	if !h.mayAdvance(c, load, userID) {
		return
	}

	if !load.Status.CanTransitionTo(payload.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Cannot change load status from '%s' to '%s'", load.Status, payload.Status)})
		return
	}

	result, err := h.DB.Collection("loads").UpdateOne(c.Request.Context(),
		bson.M{"_id": load.ID, "status": load.Status},
		bson.M{"$set": bson.M{"status": payload.Status}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update load status"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "This load was updated by another request just now"})
		return
	}

	load.Status = payload.Status
	c.JSON(http.StatusOK, load)
}

// mayAdvance allows the owning shipper or the assigned trucker to move a load
// through fulfillment.
func (h *LoadHandler) mayAdvance(c *gin.Context, load *models.Load, userID primitive.ObjectID) bool {
	var shipper models.Shipper
	err := h.DB.Collection("shippers").FindOne(c.Request.Context(), bson.M{"user": userID}).Decode(&shipper)
	if err == nil && load.Shipper == shipper.ID {
		return true
	}
	if err != nil && err != mongo.ErrNoDocuments {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query shipper profile"})
		return false
	}

	if load.AssignedTo != nil {
		var trucker models.Trucker
		err := h.DB.Collection("truckers").FindOne(c.Request.Context(), bson.M{"user": userID}).Decode(&trucker)
		if err == nil && *load.AssignedTo == trucker.ID {
			return true
		}
		if err != nil && err != mongo.ErrNoDocuments {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query trucker profile"})
			return false
		}
	}

	c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to update this load"})
	return false
}

func (h *LoadHandler) findLoad(c *gin.Context, id primitive.ObjectID) (*models.Load, bool) {
	var load models.Load
	err := h.DB.Collection("loads").FindOne(c.Request.Context(), bson.M{"_id": id}).Decode(&load)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Load not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query load"})
		return nil, false
	}
	return &load, true
}

// ownedLoad resolves the path load and checks the caller owns it.
func (h *LoadHandler) ownedLoad(c *gin.Context) (*models.Load, bool) {
	loadID, ok := objectIDParam(c, "id")
	if !ok {
		return nil, false
	}
	userID, ok := currentUserID(c)
	if !ok {
		return nil, false
	}
	shipper, ok := h.shipperByUser(c, userID)
	if !ok {
		return nil, false
	}
	load, ok := h.findLoad(c, loadID)
	if !ok {
		return nil, false
	}
	if load.Shipper != shipper.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to modify this load"})
		return nil, false
	}
	return load, true
}

func (h *LoadHandler) ownedEditableLoad(c *gin.Context) (*models.Load, bool) {
	load, ok := h.ownedLoad(c)
	if !ok {
		return nil, false
	}
	if !load.Status.Editable() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Cannot modify a load with status '%s'", load.Status)})
		return nil, false
	}
	return load, true
}

func (h *LoadHandler) shipperByUser(c *gin.Context, userID primitive.ObjectID) (*models.Shipper, bool) {
	var shipper models.Shipper
	err := h.DB.Collection("shippers").FindOne(c.Request.Context(), bson.M{"user": userID}).Decode(&shipper)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized. Only shippers can manage loads."})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query shipper profile"})
		return nil, false
	}
	return &shipper, true
}

func caseInsensitive(value string) bson.M {
	return bson.M{"$regex": value, "$options": "i"}
}

// rangeFilter builds a $gte/$lte document from optional bounds.
func rangeFilter(from, to interface{}) bson.M {
	filter := bson.M{}
	if from != nil {
		filter["$gte"] = from
	}
	if to != nil {
		filter["$lte"] = to
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

func dateValue(raw string) interface{} {
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t
	}
	return nil
}

func floatValue(raw string) interface{} {
	if raw == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return nil
}
