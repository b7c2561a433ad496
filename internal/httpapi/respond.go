package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

type apiEnvelope struct {
	OK     bool              `json:"ok"`
	Data   any               `json:"data,omitempty"`
	Error  string            `json:"error,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func success(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, apiEnvelope{OK: true, Data: data})
}

func fail(c echo.Context, status int, message string, fields map[string]string) error {
	return c.JSON(status, apiEnvelope{OK: false, Error: message, Fields: fields})
}

func failValidation(c echo.Context, fields map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", fields)
}

func failNotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, nil)
}

func internalError(c echo.Context, message string) error {
	return fail(c, http.StatusInternalServerError, message, nil)
}

func unauthorizedResponse(c echo.Context) error {
	c.Response().Header().Set("WWW-Authenticate", `Basic realm="babel admin"`)
	return fail(c, http.StatusUnauthorized, "Authentication required", nil)
}

const maxBodyBytes = 1 << 20

func decodeJSONBody(c echo.Context, dest any) error {
	body := http.MaxBytesReader(c.Response(), c.Request().Body, maxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	decoder := json.NewDecoder(body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if decoder.More() {
		return fmt.Errorf("body contains trailing content")
	}
	return nil
}

func readRawBody(c echo.Context) (json.RawMessage, error) {
	body := http.MaxBytesReader(c.Response(), c.Request().Body, maxBodyBytes)
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return raw, nil
}
