package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

type outcomeIssue struct {
	Severity    string `json:"severity"`
	Code        string `json:"code"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

type operationOutcome struct {
	ResourceType string         `json:"resourceType"`
	Issue        []outcomeIssue `json:"issue"`
}

// internalErrorOutcome is the body sent for a recovered panic.
func internalErrorOutcome(requestID string) operationOutcome {
	diagnostics := "internal server error"
	if requestID != "" {
		diagnostics += " (request " + requestID + ")"
	}
	return operationOutcome{
		ResourceType: fhirmodels.TypeOperationOutcome,
		Issue: []outcomeIssue{{
			Severity:    "fatal",
			Code:        "exception",
			Diagnostics: diagnostics,
		}},
	}
}

// Recovery answers a handler panic with a fatal OperationOutcome and logs the
// stack. A response that was already started is left as is.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				var stack [4096]byte
				n := runtime.Stack(stack[:], false)
				requestID := GetRequestID(c)

				logger.Error().
					Str("request_id", requestID).
					Str("method", c.Request().Method).
					Str("path", c.Request().URL.Path).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(stack[:n])).
					Msg("panic recovered")

				if c.Response().Committed {
					err = nil
					return
				}
				body, merr := json.Marshal(internalErrorOutcome(requestID))
				if merr != nil {
					err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
					return
				}
				err = c.Blob(http.StatusInternalServerError, fhirmodels.MimeFHIRJSON, body)
			}()
			return next(c)
		}
	}
}
