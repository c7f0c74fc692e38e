// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tracker/internal/errs"
	"tracker/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

// maxIDLen bounds path ids; generated ids are 36-char UUIDs.
const maxIDLen = 64

func isValidID(v string) bool {
	if v == "" || len(v) > maxIDLen {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

// pathID reads the named path parameter, answering 400 when it is malformed.
func pathID(c *gin.Context, name string) (types.ID, bool) {
	v := c.Param(name)
	if !isValidID(v) {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return types.ID(v), true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeDomainError maps the error taxonomy to HTTP status codes.
func writeDomainError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, errs.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrUnauthorized):
		writeError(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, errs.ErrInvalidTransition), errors.Is(err, errs.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrDriverUnavailable), errors.Is(err, errs.ErrOrderNotAssignable):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, errs.ErrUpstreamUnavailable), errs.IsTimeout(err):
		writeError(c, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// coords is the wire shape of a position in request bodies.
type coords struct {
	Lat *decimal.Decimal `json:"lat"`
	Lng *decimal.Decimal `json:"lng"`
}

func (p coords) point() (types.Point, bool) {
	if p.Lat == nil || p.Lng == nil {
		return types.Point{}, false
	}
	return types.NewPoint(*p.Lat, *p.Lng), true
}
