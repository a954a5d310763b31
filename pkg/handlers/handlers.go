package handlers

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arnavshah/roster-solver-go/pkg/auth"
	"github.com/arnavshah/roster-solver-go/pkg/database"
	"github.com/arnavshah/roster-solver-go/pkg/models"
	"github.com/arnavshah/roster-solver-go/pkg/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed static/*
var staticEmbed embed.FS

const defaultRateLimit = 10000

// Roster is the scheduling service behind the API
type Roster interface {
	Generate(ctx context.Context, req *models.ScheduleRequest) (*scheduler.Result, error)
	Validate(req *models.ScheduleRequest) (*models.ValidationResponse, error)
}

// Admin is the bootstrap admin account created on first use
type Admin struct {
	Username string
	Password string
}

// Handler carries what the route handlers share
type Handler struct {
	DB     *gorm.DB
	Auth   *auth.Service
	Roster Roster
	Logger *zap.Logger
	Admin  Admin
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func bearer(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

// AuthMiddleware admits requests carrying a valid admin token
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "authorization header required"})
			return
		}

		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid or expired token"})
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the HMAC API key and enforces the key's daily
// limit on solve attempts
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearer(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "api key required"})
			return
		}

		userID, err := h.Auth.VerifyHMACKey(key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid api key"})
			return
		}

		var apiKey database.APIKey
		err = h.DB.Where(database.APIKey{Key: key}).FirstOrCreate(&apiKey, database.APIKey{
			Key:        key,
			Name:       userID,
			KeyPreview: auth.KeyPreview(key),
			RateLimit:  defaultRateLimit,
		}).Error
		if err != nil {
			h.logger().Error("api key lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Error: "could not load api key"})
			return
		}

		if apiKey.RateLimit > 0 {
			var usage database.APIUsage
			err := h.DB.Where("key_id = ? AND date = ?", apiKey.ID, today()).First(&usage).Error
			if err == nil && usage.AttemptCount >= apiKey.RateLimit {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{Error: "daily request limit reached"})
				return
			}
		}

		now := time.Now()
		h.DB.Model(&apiKey).Update("last_used", &now)

		c.Set("apiKey", &apiKey)
		c.Set("userID", userID)
		c.Next()
	}
}

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges admin credentials for a bearer token
func (h *Handler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.ensureAdmin(); err != nil {
		h.logger().Error("admin bootstrap failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "admin account unavailable"})
		return
	}

	var user database.MasterUser
	err := h.DB.Where("username = ?", req.Username).First(&user).Error
	if err != nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		h.logger().Warn("admin login rejected", zap.String("username", req.Username), zap.String("request_id", requestID(c)))
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid credentials"})
		return
	}

	token, err := h.Auth.CreateToken(user.Username)
	if err != nil {
		h.logger().Error("token signing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GenerateKey issues an HMAC API key and stores its record. The full key is
// only ever returned here
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required"`
		RateLimit int    `json:"rate_limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || strings.Contains(name, ".") {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "name is required and may not contain '.'"})
		return
	}
	limit := req.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}

	key := h.Auth.GenerateHMACKey(name)
	record := database.APIKey{Key: key, Name: name, KeyPreview: auth.KeyPreview(key), RateLimit: limit}
	if err := h.DB.Create(&record).Error; err != nil {
		h.logger().Warn("api key insert failed", zap.String("name", name), zap.Error(err))
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "key already exists"})
		return
	}

	h.logger().Info("api key issued", zap.Uint("key_id", record.ID), zap.String("name", name), zap.Int("rate_limit", limit))
	c.JSON(http.StatusOK, gin.H{"id": record.ID, "name": name, "key": key})
}

// ListKeys returns every key record without the secret part
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.APIKey
	if err := h.DB.Order("id").Find(&keys).Error; err != nil {
		h.respondDBError(c, "list keys", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes a key. Its usage history is kept
func (h *Handler) RevokeKey(c *gin.Context) {
	id, ok := keyID(c)
	if !ok {
		return
	}
	res := h.DB.Delete(&database.APIKey{}, id)
	if res.Error != nil {
		h.respondDBError(c, "revoke key", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "key not found"})
		return
	}
	h.logger().Info("api key revoked", zap.Uint64("key_id", id))
	c.JSON(http.StatusOK, gin.H{"message": "key revoked"})
}

// UpdateKeyLimit sets a key's daily request limit. The limit may come from
// the JSON body or the query string
func (h *Handler) UpdateKeyLimit(c *gin.Context) {
	id, ok := keyID(c)
	if !ok {
		return
	}
	var req struct {
		RateLimit int `json:"rate_limit" form:"rate_limit"`
	}
	if c.ShouldBindJSON(&req) != nil && c.ShouldBindQuery(&req) != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "rate_limit is required"})
		return
	}
	if req.RateLimit <= 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "rate_limit must be positive"})
		return
	}

	res := h.DB.Model(&database.APIKey{}).Where("id = ?", id).Update("rate_limit", req.RateLimit)
	if res.Error != nil {
		h.respondDBError(c, "update key limit", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "key not found"})
		return
	}
	h.logger().Info("api key limit changed", zap.Uint64("key_id", id), zap.Int("rate_limit", req.RateLimit))
	c.JSON(http.StatusOK, gin.H{"message": "rate limit updated", "rate_limit": req.RateLimit})
}

// AdminInterface serves the embedded admin page
func (h *Handler) AdminInterface(c *gin.Context) {
	if err := h.ensureAdmin(); err != nil {
		h.logger().Error("admin bootstrap failed", zap.Error(err))
	}
	page, err := staticEmbed.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "admin page missing"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// GetStaticFS exposes the embedded static directory
func (h *Handler) GetStaticFS() http.FileSystem {
	sub, err := fs.Sub(staticEmbed, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

func (h *Handler) respondDBError(c *gin.Context, op string, err error) {
	h.logger().Error("database error", zap.String("op", op), zap.String("request_id", requestID(c)), zap.Error(err))
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "could not " + op})
}

// keyID parses the :id path parameter, answering 400 when it is not a
// positive integer
func keyID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid key id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) ensureAdmin() error {
	if h.Admin.Username == "" {
		return nil
	}
	created, err := h.Auth.EnsureAdminExists(h.DB, h.Admin.Username, h.Admin.Password)
	if created {
		h.logger().Info("default admin user created", zap.String("username", h.Admin.Username))
	}
	return err
}

func today() string {
	return time.Now().Format(time.DateOnly)
}
