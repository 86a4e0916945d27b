package relay

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/labstack/echo/v4"
)

var codeStatus = map[string]int{
	api.CodeValidation:          http.StatusBadRequest,
	api.CodeUnauthenticated:     http.StatusUnauthorized,
	api.CodeNotFound:            http.StatusNotFound,
	api.CodeEmailInUse:          http.StatusConflict,
	api.CodeInvalidCredentials:  http.StatusUnauthorized,
	api.CodeEmailUnconfirmed:    http.StatusForbidden,
	api.CodeWeakCredential:      http.StatusBadRequest,
	api.CodeTranscriptionFailed: http.StatusBadGateway,
	api.CodeBusy:                http.StatusConflict,
}

// mapError converts error to http status and body
func mapError(err error) (int, *api.ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, &api.ErrorResponse{Code: httpCode(he.Code), Error: fmt.Sprint(he.Message)}
	}
	code := api.Code(err)
	st, ok := codeStatus[code]
	if !ok {
		goapp.Log.Error().Err(err).Send()
		return http.StatusInternalServerError, &api.ErrorResponse{Code: api.CodeInternal, Error: "internal server error"}
	}
	return st, &api.ErrorResponse{Code: code, Error: err.Error()}
}

func httpCode(st int) string {
	switch st {
	case http.StatusUnauthorized:
		return api.CodeUnauthenticated
	case http.StatusNotFound:
		return api.CodeNotFound
	case http.StatusBadRequest:
		return api.CodeValidation
	}
	if st >= 500 {
		return api.CodeInternal
	}
	return ""
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	st, res := mapError(err)
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(st)
	} else {
		err = c.JSON(st, res)
	}
	if err != nil {
		goapp.Log.Error().Err(err).Msg("can't write error")
	}
}
