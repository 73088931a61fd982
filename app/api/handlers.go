package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zenfeed/zenfeed/app/content"
)

// resolveToken attaches the linked-account access token for platforms that
// need per-user credentials. The token is a read-only input; a missing link
// surfaces later as a per-source configuration error.
func (h *Handler) resolveToken(source *content.Source) {
	if source.Type != content.SourceTypeInstagram {
		return
	}

	account, err := h.accountRepo.GetAccount(string(source.Type))
	if err != nil {
		slog.Error("Database error", "operation", "get_account", "provider", source.Type, "error", err)
		return
	}
	if account != nil {
		source.AccessToken = account.AccessToken
	}
}

func (h *Handler) GetPlatforms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"platforms": h.svc.Platforms()})
}

func (h *Handler) AggregateContent(c *gin.Context) {
	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if len(req.Sources) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sources is required and must be a non-empty array"})
		return
	}

	srcs := make([]content.Source, 0, len(req.Sources))
	for _, payload := range req.Sources {
		source := payload.toSource()
		h.resolveToken(&source)
		srcs = append(srcs, source)
	}

	result, err := h.svc.AggregateAll(c.Request.Context(), srcs, req.Options)
	if err != nil {
		if content.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("Aggregation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":              result.Items,
		"errors":             result.Errors,
		"total_sources":      result.TotalSources,
		"successful_sources": result.SuccessfulSources,
		"platforms":          h.svc.Platforms(),
	})
}

func (h *Handler) FetchContent(c *gin.Context) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if req.SourceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_id is required"})
		return
	}
	if req.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type is required"})
		return
	}

	source := content.Source{
		ID:       req.SourceID,
		Type:     req.Type,
		Name:     req.Name,
		URL:      req.URL,
		Username: req.Username,
		Active:   true,
	}
	h.resolveToken(&source)

	result := h.svc.FetchFromSource(c.Request.Context(), source, content.FetchOptions{
		Limit:          req.Limit,
		IncludeMetrics: req.IncludeMetrics,
	})

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ValidateSource(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	source := content.Source{
		Type:     req.Type,
		Name:     req.Name,
		URL:      req.URL,
		Username: req.Username,
	}

	if err := h.svc.Validate(source); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	response := gin.H{"valid": true}

	// Source info is a best-effort preview; its failure never invalidates
	// an otherwise valid source.
	h.resolveToken(&source)
	infoCtx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	if info, err := h.svc.Info(infoCtx, source); err == nil {
		response["source_info"] = info
	} else {
		slog.Debug("Source info lookup failed", "type", source.Type, "error", err)
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetFeed(c *gin.Context) {
	limit := content.MaxSingleLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, content.MaxBatchLimit)
	}

	items, err := h.itemRepo.GetRecentItems(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = sourceCount
	}
	if itemCount, err := h.itemRepo.GetItemCount(); err == nil {
		health["cached_items"] = itemCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{
		"platforms": h.svc.Platforms(),
	}

	if records, err := h.sourceRepo.ListSources(); err == nil {
		byType := make(map[content.SourceType]int)
		active := 0
		for _, record := range records {
			byType[record.Type]++
			if record.Active {
				active++
			}
		}
		stats["sources"] = gin.H{
			"total":   len(records),
			"active":  active,
			"by_type": byType,
		}
	}

	if itemCount, err := h.itemRepo.GetItemCount(); err == nil {
		stats["cached_items"] = itemCount
	}

	c.JSON(http.StatusOK, stats)
}

// Management API

func (h *Handler) APIListSources(c *gin.Context) {
	records, err := h.sourceRepo.ListSources()
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sources": records, "total": len(records)})
}

func (h *Handler) APICreateSource(c *gin.Context) {
	var payload sourcePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	source := payload.toSource()
	if source.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if err := h.svc.Validate(source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.sourceRepo.CreateSource(source)
	if err != nil {
		slog.Error("Database error", "operation", "create_source", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) APIUpdateSource(c *gin.Context) {
	id := c.Param("id")

	existing, err := h.sourceRepo.GetSource(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
		return
	}

	var payload sourcePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	source := payload.toSource()
	source.ID = id
	if source.Name == "" {
		source.Name = existing.Name
	}

	if err := h.svc.Validate(source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sourceRepo.UpdateSource(source); err != nil {
		slog.Error("Database error", "operation", "update_source", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *Handler) APIDeleteSource(c *gin.Context) {
	id := c.Param("id")

	err := h.sourceRepo.DeleteSource(id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "delete_source", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) APIRefreshSource(c *gin.Context) {
	id := c.Param("id")

	record, err := h.sourceRepo.GetSource(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
		return
	}

	if err := h.scheduler.EnqueueRefresh(*record); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to schedule refresh: " + err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "refresh scheduled", "id": id})
}

func (h *Handler) APIGetAccount(c *gin.Context) {
	provider := c.Param("provider")

	account, err := h.accountRepo.GetAccount(provider)
	if err != nil {
		slog.Error("Database error", "operation", "get_account", "provider", provider, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	if account == nil {
		c.JSON(http.StatusOK, gin.H{"provider": provider, "connected": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider":     account.Provider,
		"connected":    true,
		"connected_at": account.ConnectedAt.Format(time.RFC3339),
	})
}

func (h *Handler) APIPutAccount(c *gin.Context) {
	provider := c.Param("provider")

	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AccessToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "access_token is required"})
		return
	}

	if err := h.accountRepo.UpsertAccount(provider, req.AccessToken); err != nil {
		slog.Error("Database error", "operation", "upsert_account", "provider", provider, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) APIDeleteAccount(c *gin.Context) {
	provider := c.Param("provider")

	err := h.accountRepo.DeleteAccount(provider)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "delete_account", "provider", provider, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.Status(http.StatusNoContent)
}
