// Package api implements the HTTP API for drop-admin.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/dropworks/drop-admin/internal/auth"
	"github.com/dropworks/drop-admin/internal/config"
	"github.com/dropworks/drop-admin/internal/logger"
	"github.com/dropworks/drop-admin/internal/models"
	"github.com/dropworks/drop-admin/internal/pipeline"
	"github.com/dropworks/drop-admin/internal/store"
	"github.com/dropworks/drop-admin/internal/telemetry"
)

// lastLoginTimeout bounds the background last-login write.
const lastLoginTimeout = 5 * time.Second

// RecordStore is the subset of the record store the handlers need.
type RecordStore interface {
	List(ctx context.Context, collection, stage string, page, limit int) ([]models.Record, int64, error)
	UpdateStage(ctx context.Context, collection string, id bson.ObjectID, stage string) error
	Delete(ctx context.Context, collection string, id bson.ObjectID) error
}

// AdminStore is the subset of the admin store the handlers need.
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	UpdateLastLogin(ctx context.Context, id bson.ObjectID) error
}

// ExtractionTrigger schedules background extraction for a record.
type ExtractionTrigger interface {
	Trigger(ctx context.Context, collection string, id bson.ObjectID) (pipeline.Outcome, error)
}

// Handlers holds the request handlers and their dependencies.
type Handlers struct {
	cfg     *config.Config
	records RecordStore
	admins  AdminStore
	machine ExtractionTrigger
	jwt     *auth.JWTManager
	metrics *telemetry.Metrics
	log     logger.Logger
}

// NewHandlers creates the API handlers.
func NewHandlers(
	cfg *config.Config,
	records RecordStore,
	admins AdminStore,
	machine ExtractionTrigger,
	jwtManager *auth.JWTManager,
	metrics *telemetry.Metrics,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		cfg:     cfg,
		records: records,
		admins:  admins,
		machine: machine,
		jwt:     jwtManager,
		metrics: metrics,
		log:     log,
	}
}

// Login authenticates an admin and issues a session token.
func (h *Handlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request")
		return
	}

	admin, err := h.admins.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Error("admin lookup failed", logger.Error(err))
		}
		h.metrics.LoginsTotal.WithLabelValues(telemetry.LoginInvalidCredentials).Inc()
		respondError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		h.log.Warn("login attempt with invalid password", logger.String("email", req.Email))
		h.metrics.LoginsTotal.WithLabelValues(telemetry.LoginInvalidCredentials).Inc()
		respondError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !admin.IsActive {
		h.metrics.LoginsTotal.WithLabelValues(telemetry.LoginDisabled).Inc()
		respondError(c, http.StatusForbidden, "account disabled")
		return
	}

	token, err := h.jwt.GenerateToken(admin)
	if err != nil {
		h.log.Error("token generation failed", logger.Error(err))
		respondInternalError(c, "failed to generate token")
		return
	}

	// Fire-and-forget: a failed stamp must not fail the login.
	go h.recordLastLogin(admin.ID)

	h.metrics.LoginsTotal.WithLabelValues(telemetry.LoginSuccess).Inc()
	h.log.Info("admin logged in", logger.String("email", admin.Email))

	c.JSON(http.StatusOK, models.LoginResponse{
		Token: token,
		Admin: models.AdminInfo{
			ID:    admin.ID.Hex(),
			Email: admin.Email,
			Role:  admin.Role,
		},
	})
}

// recordLastLogin stamps last_login_at in the background.
func (h *Handlers) recordLastLogin(id bson.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), lastLoginTimeout)
	defer cancel()

	if err := h.admins.UpdateLastLogin(ctx, id); err != nil {
		h.log.Error("update last login failed",
			logger.String("admin_id", id.Hex()),
			logger.Error(err),
		)
	}
}

// ListRecords returns one page of records, optionally filtered by stage.
func (h *Handlers) ListRecords(c *gin.Context) {
	collection, ok := h.collectionParam(c)
	if !ok {
		return
	}

	// The frontend has shipped both parameter names over time.
	stage := c.Query("stage")
	if stage == "" {
		stage = c.Query("status")
	}

	page, limit := parsePagination(c)

	records, total, err := h.records.List(c.Request.Context(), collection, stage, page, limit)
	if err != nil {
		h.log.Error("list records failed",
			logger.String("collection", collection),
			logger.Error(err),
		)
		respondInternalError(c, "failed to fetch records")
		return
	}

	c.JSON(http.StatusOK, models.RecordPage{
		Items: records,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: (total + int64(limit) - 1) / int64(limit),
	})
}

// UpdateStage sets a record's stage directly. This admin override is the
// manual recovery path for records stuck in "extracting".
func (h *Handlers) UpdateStage(c *gin.Context) {
	collection, ok := h.collectionParam(c)
	if !ok {
		return
	}

	id, ok := recordIDParam(c, c.Param("id"))
	if !ok {
		return
	}

	var req models.UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request")
		return
	}

	if !models.ValidStage(req.Stage) {
		respondBadRequest(c, "invalid stage value")
		return
	}

	if err := h.records.UpdateStage(c.Request.Context(), collection, id, req.Stage); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondNotFound(c, "record")
			return
		}
		h.log.Error("update stage failed", logger.Error(err))
		respondInternalError(c, "failed to update record")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      id.Hex(),
		"stage":   req.Stage,
	})
}

// DeleteRecord removes a record.
func (h *Handlers) DeleteRecord(c *gin.Context) {
	collection, ok := h.collectionParam(c)
	if !ok {
		return
	}

	id, ok := recordIDParam(c, c.Param("id"))
	if !ok {
		return
	}

	if err := h.records.Delete(c.Request.Context(), collection, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondNotFound(c, "record")
			return
		}
		h.log.Error("delete record failed", logger.Error(err))
		respondInternalError(c, "failed to delete record")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// TriggerExtraction starts background extraction for a record.
func (h *Handlers) TriggerExtraction(c *gin.Context) {
	collection, ok := h.collectionParam(c)
	if !ok {
		return
	}

	id, ok := recordIDParam(c, c.Query("url_id"))
	if !ok {
		return
	}

	outcome, err := h.machine.Trigger(c.Request.Context(), collection, id)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			respondNotFound(c, "record")
			return
		}
		h.log.Error("trigger extraction failed", logger.Error(err))
		respondInternalError(c, "failed to trigger extraction")
		return
	}

	if outcome == pipeline.AlreadyProcessed {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "already processed",
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "extraction started",
	})
}

// Health reports service liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// collectionParam resolves and validates the collection query parameter,
// responding 400 when the name is not on the allow-list.
func (h *Handlers) collectionParam(c *gin.Context) (string, bool) {
	collection := c.DefaultQuery("collection", h.cfg.DefaultCollection)
	if !h.cfg.CollectionAllowed(collection) {
		respondBadRequest(c, "invalid collection")
		return "", false
	}
	return collection, true
}

// recordIDParam parses a record identifier, responding 400 when invalid.
func recordIDParam(c *gin.Context, raw string) (bson.ObjectID, bool) {
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		respondBadRequest(c, "invalid record id")
		return bson.ObjectID{}, false
	}
	return id, true
}
