// Package handlers exposes the Coordination Engine over the seven
// HTTP routes of spec.md §6, grounded on
// internal/handlers/multisig_handler.go's thin-handler-over-service
// shape.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/AccountantBot/AccountantBot-Backend/internal/dto"
	"github.com/AccountantBot/AccountantBot-Backend/internal/engine"
	"github.com/AccountantBot/AccountantBot-Backend/internal/metrics"

	"github.com/gin-gonic/gin"
)

// SplitHandler wires the engine into gin request handlers.
type SplitHandler struct {
	engine *engine.Engine
}

// NewSplitHandler constructs a SplitHandler over eng.
func NewSplitHandler(eng *engine.Engine) *SplitHandler {
	return &SplitHandler{engine: eng}
}

func splitIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input: split id must be a positive integer"})
		return 0, false
	}
	return id, true
}

// CreateSplit handles POST /splits.
func (h *SplitHandler) CreateSplit(c *gin.Context) {
	var req dto.CreateSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input: " + err.Error()})
		return
	}

	legs := make([]engine.LegInput, len(req.Legs))
	for i, l := range req.Legs {
		legs[i] = engine.LegInput{Participant: l.Participant, Amount: l.Amount}
	}

	result, err := h.engine.CreateSplit(c.Request.Context(), engine.CreateSplitInput{
		Payer:         req.Payer,
		Token:         req.Token,
		Legs:          legs,
		Deadline:      req.Deadline,
		MetaHash:      req.MetaHash,
		CreateOnchain: req.CreateOnchain,
	})
	if err != nil {
		metrics.SplitCreateFailures.Inc()
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateSplitResponse{ID: result.ID, TxHash: result.TxHash})
}

// GetSplit handles GET /splits/:id.
func (h *SplitHandler) GetSplit(c *gin.Context) {
	id, ok := splitIDParam(c)
	if !ok {
		return
	}

	split, err := h.engine.GetSplit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSplitView(split))
}

// GenerateIntent handles POST /splits/:id/approve-intent.
func (h *SplitHandler) GenerateIntent(c *gin.Context) {
	id, ok := splitIDParam(c)
	if !ok {
		return
	}

	var req dto.GenerateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input: " + err.Error()})
		return
	}

	typedData, err := h.engine.GenerateIntent(c.Request.Context(), engine.GenerateIntentInput{
		SplitID:     id,
		Participant: req.Participant,
		Deadline:    req.Deadline,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, typedData)
}

// SubmitSignature handles POST /splits/:id/signatures.
func (h *SplitHandler) SubmitSignature(c *gin.Context) {
	id, ok := splitIDParam(c)
	if !ok {
		return
	}

	var req dto.SubmitSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input: " + err.Error()})
		return
	}

	err := h.engine.SubmitSignature(c.Request.Context(), engine.SubmitSignatureInput{
		SplitID:     id,
		Participant: req.Participant,
		Amount:      req.Amount,
		Salt:        req.Salt,
		Deadline:    req.Deadline,
		Signature:   req.Signature,
	})
	if err != nil {
		metrics.SignatureSubmissions.WithLabelValues("rejected").Inc()
		respondError(c, err)
		return
	}

	metrics.SignatureSubmissions.WithLabelValues("accepted").Inc()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Settle handles POST /splits/:id/settle.
func (h *SplitHandler) Settle(c *gin.Context) {
	id, ok := splitIDParam(c)
	if !ok {
		return
	}

	var req dto.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input: " + err.Error()})
		return
	}

	items := make([]engine.SettleItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = engine.SettleItemInput{
			Participant: item.Participant,
			Amount:      item.Amount,
			Deadline:    item.Deadline,
			Salt:        item.Salt,
			Signature:   item.Signature,
		}
	}

	timer := metrics.NewSettlementTimer()
	result, err := h.engine.Settle(c.Request.Context(), engine.SettleInput{SplitID: id, Items: items})
	if err != nil {
		timer.ObserveFailure()
		respondError(c, err)
		return
	}
	timer.ObserveSuccess()

	c.JSON(http.StatusOK, dto.SettleResponse{TxHash: result.TxHash})
}

// CheckAllowance handles GET /splits/allowances/check.
func (h *SplitHandler) CheckAllowance(c *gin.Context) {
	token := c.Query("token")
	owner := c.Query("owner")
	if token == "" || owner == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input: token and owner query params are required"})
		return
	}

	result, err := h.engine.CheckAllowance(c.Request.Context(), token, owner)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AllowanceResponse{
		Token:     result.Token,
		Owner:     result.Owner,
		Spender:   result.Spender,
		Allowance: result.Allowance,
	})
}

// ListTokens handles GET /tokens.
func (h *SplitHandler) ListTokens(c *gin.Context) {
	tokens, err := h.engine.ListTokens(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTokenViews(tokens))
}
