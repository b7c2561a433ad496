package httpapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/babel/internal/cache"
	"horse.fit/babel/internal/translog"
)

// handleUsageStats serves cross-account aggregation: provider-wide with
// only ?provider set, gateway-wide with no filters.
func (s *Server) handleUsageStats(c echo.Context) error {
	provider := strings.TrimSpace(strings.ToLower(c.QueryParam("provider")))
	accountID := strings.TrimSpace(c.QueryParam("account_id"))
	if provider == "" && accountID != "" {
		return failValidation(c, map[string]string{"provider": "is required when account_id is set"})
	}

	from, to, fields := statsRange(c)
	if fields != nil {
		return failValidation(c, fields)
	}

	days, err := s.ledger.RangeStats(c.Request().Context(), provider, accountID, from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("load usage stats failed")
		return internalError(c, "Failed to load stats")
	}

	return success(c, map[string]any{
		"provider":   provider,
		"account_id": accountID,
		"from":       from.Format("2006-01-02"),
		"to":         to.Format("2006-01-02"),
		"days":       days,
	})
}

func (s *Server) handleTranslationLogs(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), 50, 1, 200)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	offset, err := parsePositiveInt(c.QueryParam("offset"), 0, 0, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"offset": err.Error()})
	}

	opts := translog.ListOptions{
		Provider:  strings.TrimSpace(strings.ToLower(c.QueryParam("provider"))),
		AccountID: strings.TrimSpace(c.QueryParam("account_id")),
		Limit:     limit,
		Offset:    offset,
	}

	entries, total, err := s.recorder.List(c.Request().Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("list translation logs failed")
		return internalError(c, "Failed to load translation logs")
	}

	return success(c, map[string]any{
		"items": entries,
		"total": total,
	})
}

func (s *Server) handleGetTranslationLog(c echo.Context) error {
	id, ok := logIDParam(c)
	if !ok {
		return failValidation(c, map[string]string{"id": "must be a positive integer"})
	}

	entry, err := s.recorder.Get(c.Request().Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Int64("log_id", id).Msg("get translation log failed")
		return internalError(c, "Failed to load translation log")
	}
	if entry == nil {
		return failNotFound(c, "Translation log not found")
	}
	return success(c, entry)
}

func (s *Server) handleDeleteTranslationLog(c echo.Context) error {
	id, ok := logIDParam(c)
	if !ok {
		return failValidation(c, map[string]string{"id": "must be a positive integer"})
	}

	deleted, err := s.recorder.Delete(c.Request().Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Int64("log_id", id).Msg("delete translation log failed")
		return internalError(c, "Failed to delete translation log")
	}
	if !deleted {
		return failNotFound(c, "Translation log not found")
	}
	return success(c, map[string]any{"deleted": true})
}

func (s *Server) handleDeleteAllTranslationLogs(c echo.Context) error {
	removed, err := s.recorder.DeleteAll(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("delete translation logs failed")
		return internalError(c, "Failed to delete translation logs")
	}
	return success(c, map[string]any{"deleted": removed})
}

func logIDParam(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type cacheClearRequest struct {
	Provider string `json:"provider"`
}

// handleCacheClear drops the in-memory tier and the shared entries:
// one provider's when a provider is named, the whole translation
// namespace otherwise.
func (s *Server) handleCacheClear(c echo.Context) error {
	var req cacheClearRequest
	if c.Request().ContentLength > 0 {
		if err := decodeJSONBody(c, &req); err != nil {
			return failValidation(c, map[string]string{"body": err.Error()})
		}
	}

	if s.cache != nil {
		s.cache.ClearMemory()
	}

	prefix := cache.KeyNamespace
	provider := strings.TrimSpace(strings.ToLower(req.Provider))
	if provider != "" {
		prefix = cache.KeyPrefix(provider)
	}

	var sharedDeleted int64
	if s.cacheStore != nil {
		deleted, err := s.cacheStore.DeleteByPrefix(c.Request().Context(), prefix)
		if err != nil {
			s.logger.Error().Err(err).Str("provider", provider).Msg("clear shared cache failed")
			return internalError(c, "Failed to clear shared cache")
		}
		sharedDeleted = deleted
	}

	return success(c, map[string]any{
		"memory_cleared": true,
		"shared_deleted": sharedDeleted,
	})
}

func (s *Server) handleCacheStats(c echo.Context) error {
	var memoryLen int
	if s.cache != nil {
		memoryLen = s.cache.MemoryLen()
	}

	var sharedCount int64
	if s.cacheStore != nil {
		count, err := s.cacheStore.Count(c.Request().Context())
		if err != nil {
			s.logger.Error().Err(err).Msg("count shared cache failed")
			return internalError(c, "Failed to load cache stats")
		}
		sharedCount = count
	}

	return success(c, map[string]any{
		"memory_entries": memoryLen,
		"shared_entries": sharedCount,
	})
}
