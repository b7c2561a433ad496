package httpapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"horse.fit/babel/internal/account"
	"horse.fit/babel/internal/accountschema"
	"horse.fit/babel/internal/cycle"
	"horse.fit/babel/internal/globaltime"
)

// accountResponse is the admin view of one account. Credential values are
// never echoed back, only their field names.
type accountResponse struct {
	Provider          string     `json:"provider"`
	ID                string     `json:"id"`
	Name              string     `json:"name,omitempty"`
	CredentialFields  []string   `json:"credential_fields"`
	Enabled           bool       `json:"enabled"`
	Status            string     `json:"status"`
	ConsecutiveErrors int        `json:"consecutive_errors"`
	DisabledReason    string     `json:"disabled_reason,omitempty"`
	Quota             int64      `json:"quota"`
	Period            string     `json:"period"`
	CycleStartDay     int        `json:"cycle_start_day,omitempty"`
	CycleEndDay       int        `json:"cycle_end_day,omitempty"`
	RPS               int        `json:"rps"`
	SourceLang        string     `json:"source_lang,omitempty"`
	TargetLang        string     `json:"target_lang,omitempty"`
	LastSuccessAt     *time.Time `json:"last_success_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func accountView(acct *account.Account) accountResponse {
	fields := make([]string, 0, len(acct.Credentials))
	for name := range acct.Credentials {
		fields = append(fields, name)
	}

	return accountResponse{
		Provider:          acct.Provider,
		ID:                acct.ID,
		Name:              acct.Name,
		CredentialFields:  fields,
		Enabled:           acct.Enabled,
		Status:            string(acct.Status),
		ConsecutiveErrors: acct.ConsecutiveErrors,
		DisabledReason:    acct.DisabledReason,
		Quota:             acct.Quota,
		Period:            string(acct.Period),
		CycleStartDay:     acct.CycleStartDay,
		CycleEndDay:       acct.CycleEndDay,
		RPS:               acct.RPS,
		SourceLang:        acct.SourceLang,
		TargetLang:        acct.TargetLang,
		LastSuccessAt:     acct.LastSuccessAt,
		CreatedAt:         acct.CreatedAt,
		UpdatedAt:         acct.UpdatedAt,
	}
}

func (s *Server) handleListAccounts(c echo.Context) error {
	provider := strings.TrimSpace(strings.ToLower(c.QueryParam("provider")))
	accounts, err := s.accounts.ListAccounts(c.Request().Context(), provider)
	if err != nil {
		s.logger.Error().Err(err).Msg("list accounts failed")
		return internalError(c, "Failed to load accounts")
	}

	items := make([]accountResponse, 0, len(accounts))
	for _, acct := range accounts {
		items = append(items, accountView(acct))
	}
	return success(c, map[string]any{"items": items})
}

func (s *Server) handleGetAccount(c echo.Context) error {
	provider, id, ok := accountParams(c)
	if !ok {
		return failValidation(c, map[string]string{"path": "provider and id are required"})
	}

	acct, err := s.accounts.Get(c.Request().Context(), provider, id)
	if err != nil {
		s.logger.Error().Err(err).Msg("get account failed")
		return internalError(c, "Failed to load account")
	}
	if acct == nil {
		return failNotFound(c, "Account not found")
	}
	return success(c, accountView(acct))
}

func (s *Server) handleUpsertAccount(c echo.Context) error {
	raw, err := readRawBody(c)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	payload, err := accountschema.ValidateAccountPayload(raw)
	if err != nil {
		return failValidation(c, map[string]string{"payload": err.Error()})
	}

	if provider, id, ok := accountParams(c); ok {
		if provider != payload.Provider || id != payload.ID {
			return failValidation(c, map[string]string{"path": "must match payload provider and id"})
		}
	}

	acct := payloadToAccount(payload)

	// Preserve runtime state on updates so an edit does not silently
	// re-enable a disabled account or reset its error counter.
	existing, err := s.accounts.Get(c.Request().Context(), acct.Provider, acct.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("load existing account failed")
		return internalError(c, "Failed to store account")
	}
	if existing != nil {
		acct.Status = existing.Status
		acct.ConsecutiveErrors = existing.ConsecutiveErrors
		acct.DisabledReason = existing.DisabledReason
		acct.LastSuccessAt = existing.LastSuccessAt
		if payload.Enabled == nil {
			acct.Enabled = existing.Enabled
		}
	}

	if err := s.accounts.Put(c.Request().Context(), acct); err != nil {
		s.logger.Error().Err(err).Msg("store account failed")
		return internalError(c, "Failed to store account")
	}
	return success(c, accountView(acct))
}

func (s *Server) handleDeleteAccount(c echo.Context) error {
	provider, id, ok := accountParams(c)
	if !ok {
		return failValidation(c, map[string]string{"path": "provider and id are required"})
	}

	deleted, err := s.accounts.Delete(c.Request().Context(), provider, id)
	if err != nil {
		s.logger.Error().Err(err).Msg("delete account failed")
		return internalError(c, "Failed to delete account")
	}
	if !deleted {
		return failNotFound(c, "Account not found")
	}
	return success(c, map[string]any{"deleted": true})
}

func (s *Server) handleEnableAccount(c echo.Context) error {
	return s.setAccountEnabled(c, true)
}

func (s *Server) handleDisableAccount(c echo.Context) error {
	return s.setAccountEnabled(c, false)
}

type statusRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) setAccountEnabled(c echo.Context, enabled bool) error {
	provider, id, ok := accountParams(c)
	if !ok {
		return failValidation(c, map[string]string{"path": "provider and id are required"})
	}

	var req statusRequest
	if c.Request().ContentLength > 0 {
		if err := decodeJSONBody(c, &req); err != nil {
			return failValidation(c, map[string]string{"body": err.Error()})
		}
	}

	acct, err := s.arbiter.SetStatus(c.Request().Context(), provider, id, enabled, strings.TrimSpace(req.Reason))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return failNotFound(c, "Account not found")
		}
		s.logger.Error().Err(err).Msg("set account status failed")
		return internalError(c, "Failed to update account status")
	}
	return success(c, accountView(acct))
}

func (s *Server) handleAccountUsage(c echo.Context) error {
	provider, id, ok := accountParams(c)
	if !ok {
		return failValidation(c, map[string]string{"path": "provider and id are required"})
	}

	acct, err := s.accounts.Get(c.Request().Context(), provider, id)
	if err != nil {
		s.logger.Error().Err(err).Msg("get account failed")
		return internalError(c, "Failed to load account")
	}
	if acct == nil {
		return failNotFound(c, "Account not found")
	}

	usage, window, err := s.ledger.UsageForAccount(c.Request().Context(), acct)
	if err != nil {
		s.logger.Error().Err(err).Msg("load account usage failed")
		return internalError(c, "Failed to load usage")
	}

	remaining := acct.Quota - usage.Chars
	if remaining < 0 {
		remaining = 0
	}

	return success(c, map[string]any{
		"provider":    acct.Provider,
		"id":          acct.ID,
		"quota":       acct.Quota,
		"used_chars":  usage.Chars,
		"used_calls":  usage.Calls,
		"remaining":   remaining,
		"cycle_start": window.Start.Format("2006-01-02"),
		"cycle_end":   window.End.Format("2006-01-02"),
		"cycle_days":  window.Days(),
		// False only for accounts pinned to absolute cycle dates that
		// have lapsed (or not started yet).
		"cycle_active": window.Contains(globaltime.UTC()),
		"status":       string(acct.Status),
		"enabled":      acct.Enabled,
	})
}

func (s *Server) handleAccountStats(c echo.Context) error {
	provider, id, ok := accountParams(c)
	if !ok {
		return failValidation(c, map[string]string{"path": "provider and id are required"})
	}

	from, to, fields := statsRange(c)
	if fields != nil {
		return failValidation(c, fields)
	}

	days, err := s.ledger.RangeStats(c.Request().Context(), provider, id, from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("load range stats failed")
		return internalError(c, "Failed to load stats")
	}

	return success(c, map[string]any{
		"provider": provider,
		"id":       id,
		"from":     from.Format("2006-01-02"),
		"to":       to.Format("2006-01-02"),
		"days":     days,
	})
}

// statsRange reads the optional from/to query params. The default range
// is the last 30 days.
func statsRange(c echo.Context) (time.Time, time.Time, map[string]string) {
	now := globaltime.UTC()
	from := cycle.DateOf(now.AddDate(0, 0, -30))
	to := cycle.DateOf(now)

	if raw := c.QueryParam("from"); raw != "" {
		parsed, err := parseDateParam(raw)
		if err != nil {
			return time.Time{}, time.Time{}, map[string]string{"from": err.Error()}
		}
		from = parsed
	}
	if raw := c.QueryParam("to"); raw != "" {
		parsed, err := parseDateParam(raw)
		if err != nil {
			return time.Time{}, time.Time{}, map[string]string{"to": err.Error()}
		}
		to = parsed
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, map[string]string{"time_range": "from must be <= to"}
	}
	return from, to, nil
}

func accountParams(c echo.Context) (string, string, bool) {
	provider := strings.TrimSpace(strings.ToLower(c.Param("provider")))
	id := strings.TrimSpace(c.Param("id"))
	if provider == "" || id == "" {
		return "", "", false
	}
	return provider, id, true
}

func payloadToAccount(payload *accountschema.AccountPayload) *account.Account {
	acct := &account.Account{
		Provider:      payload.Provider,
		ID:            payload.ID,
		Name:          payload.Name,
		Credentials:   payload.Credentials,
		Enabled:       true,
		Status:        account.StatusNormal,
		Quota:         payload.Quota,
		Period:        cycle.Period(payload.Period),
		CycleStartDay: payload.CycleStartDay,
		CycleEndDay:   payload.CycleEndDay,
		RPS:           payload.RPS,
		SourceLang:    strings.ToLower(strings.TrimSpace(payload.SourceLang)),
		TargetLang:    strings.ToLower(strings.TrimSpace(payload.TargetLang)),
	}
	if payload.Enabled != nil {
		acct.Enabled = *payload.Enabled
	}
	if payload.CycleStart != nil {
		if parsed, err := time.Parse(time.RFC3339, *payload.CycleStart); err == nil {
			acct.CycleStart = parsed.UTC()
		}
	}
	if payload.CycleEnd != nil {
		if parsed, err := time.Parse(time.RFC3339, *payload.CycleEnd); err == nil {
			acct.CycleEnd = parsed.UTC()
		}
	}
	return acct
}
