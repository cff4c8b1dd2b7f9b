package http

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/pulsekeeper/internal/common"
	"github.com/gin-gonic/gin"
)

// Envelope is the body of every response: ok tells success apart, msg is
// human readable and data carries the payload on success.
type Envelope struct {
	OK   bool   `json:"ok"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

var errForbidden = errors.New("forbidden")

func respondOK(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, Envelope{OK: true, Msg: msg, Data: data})
}

func respondFail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Envelope{OK: false, Msg: msg})
}

// statusFor maps the error taxonomy onto HTTP. Store failures get a generic
// message; the cause is only logged.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorNotConnected), errors.Is(err, errForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, common.ErrorInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, common.ErrorUnauthorized.Error()
	case errors.Is(err, common.ErrorInvalidRole):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(c.Request.Context(), "request failed",
			"error", err, "route", c.FullPath(), "request_id", c.GetString(requestIDKey))
	}
	respondFail(c, status, msg)
}
