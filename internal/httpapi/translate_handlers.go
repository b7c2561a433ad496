package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/babel/internal/language"
	"horse.fit/babel/internal/ledger"
	"horse.fit/babel/internal/translation"
)

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req translateRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if strings.TrimSpace(req.Text) == "" {
		return failValidation(c, map[string]string{"text": "is required"})
	}

	source := language.NormalizeTag(req.SourceLang)
	if source == "" {
		source = "auto"
	}
	target := language.NormalizeTag(req.TargetLang)
	if target == "" && strings.TrimSpace(req.TargetLang) != "" {
		return failValidation(c, map[string]string{"target_lang": "must be a language tag such as en or zh-cn"})
	}

	result, err := s.manager.Translate(c.Request().Context(), req.Text, source, target)
	if err != nil {
		switch {
		case errors.Is(err, translation.ErrNoProviderAvailable):
			return fail(c, http.StatusServiceUnavailable, "No translation provider available", nil)
		case errors.Is(err, ledger.ErrRateExceeded):
			return fail(c, http.StatusTooManyRequests, "Rate limit exceeded, retry shortly", nil)
		case errors.Is(err, context.Canceled):
			return fail(c, http.StatusRequestTimeout, "Request cancelled", nil)
		default:
			s.logger.Error().Err(err).Msg("translate failed")
			return fail(c, http.StatusBadGateway, "Translation failed", nil)
		}
	}

	return success(c, result)
}
