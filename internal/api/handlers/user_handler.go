// server/internal/api/handlers/user_handler.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"freight-bid-api-server/config"
	"freight-bid-api-server/internal/auth"
	"freight-bid-api-server/internal/models"
)

type UserHandler struct {
	DB  *mongo.Database
	Cfg config.Config
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required"` // "shipper" or "trucker"

	CompanyName  string `json:"companyName" binding:"required"`
	ContactName  string `json:"contactName"`
	ContactPhone string `json:"contactPhone"`

	// Trucker-only fields.
	DriverLicense   *models.DriverLicense   `json:"driverLicense"`
	Truck           *models.Truck           `json:"truck"`
	AccidentHistory *models.AccidentHistory `json:"accidentHistory"`
	TheftComplaints *models.TheftComplaints `json:"theftComplaints"`
}

// Register creates a user account plus its shipper or trucker profile.
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Role != "shipper" && req.Role != "trucker" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be 'shipper' or 'trucker'"})
		return
	}
	if req.Role == "trucker" && (req.DriverLicense == nil || req.Truck == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Trucker registration requires driverLicense and truck"})
		return
	}

	userCollection := h.DB.Collection("users")
	count, err := userCollection.CountDocuments(c.Request.Context(), bson.M{"email": req.Email})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing users"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		ID:       primitive.NewObjectID(),
		Email:    req.Email,
		Name:     req.Name,
		Password: hashedPassword,
		Role:     req.Role,
		Status:   "active",
	}
	if _, err := userCollection.InsertOne(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	contactName := req.ContactName
	if contactName == "" {
		contactName = req.Name
	}

	switch req.Role {
	case "shipper":
		shipper := models.Shipper{
			ID:           primitive.NewObjectID(),
			User:         user.ID,
			CompanyName:  req.CompanyName,
			ContactName:  contactName,
			ContactPhone: req.ContactPhone,
			CreatedAt:    time.Now(),
		}
		if _, err := h.DB.Collection("shippers").InsertOne(c.Request.Context(), shipper); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create shipper profile"})
			return
		}
	case "trucker":
		trucker := models.Trucker{
			ID:                 primitive.NewObjectID(),
			User:               user.ID,
			CompanyName:        req.CompanyName,
			ContactName:        contactName,
			ContactPhone:       req.ContactPhone,
			DriverLicense:      *req.DriverLicense,
			Truck:              *req.Truck,
			AvailabilityStatus: "Available",
			CreatedAt:          time.Now(),
		}
		if req.AccidentHistory != nil {
			trucker.AccidentHistory = *req.AccidentHistory
		}
		if req.TheftComplaints != nil {
			trucker.TheftComplaints = *req.TheftComplaints
		}
		if _, err := h.DB.Collection("truckers").InsertOne(c.Request.Context(), trucker); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create trucker profile"})
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Account created successfully",
		"user":    user,
	})
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and issues a JWT.
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := h.DB.Collection("users").FindOne(c.Request.Context(), bson.M{"email": req.Email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query user"})
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if user.Status != "active" {
		c.JSON(http.StatusForbidden, gin.H{"error": "This account is not active"})
		return
	}

	ttl, err := time.ParseDuration(h.Cfg.JWT.Expiration)
	if err != nil {
		ttl = 24 * time.Hour
	}

	token, err := auth.GenerateJWT(user.ID.Hex(), user.Email, user.Role, ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"token":  token,
		"user":   user,
	})
}

// GetMe returns the authenticated user with their role profile attached.
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var user models.User
	err := h.DB.Collection("users").FindOne(c.Request.Context(), bson.M{"_id": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query user"})
		return
	}

	body := gin.H{"user": user}
	switch user.Role {
	case "shipper":
		var shipper models.Shipper
		if err := h.DB.Collection("shippers").FindOne(c.Request.Context(), bson.M{"user": user.ID}).Decode(&shipper); err == nil {
			body["profile"] = shipper
		}
	case "trucker":
		var trucker models.Trucker
		if err := h.DB.Collection("truckers").FindOne(c.Request.Context(), bson.M{"user": user.ID}).Decode(&trucker); err == nil {
			body["profile"] = trucker
		}
	}

	c.JSON(http.StatusOK, body)
}
