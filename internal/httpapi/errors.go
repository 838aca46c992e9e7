// Package httpapi maps domain failures onto the API's response envelope.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/benariet/SemScan-Project-sub001/internal/domain"
	"github.com/benariet/SemScan-Project-sub001/pkg/response"
)

// statusFor maps each domain error kind to an HTTP status. Anything outside
// the taxonomy is an infrastructure failure and renders as 500.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindMissingIdentity:
		return http.StatusUnauthorized
	case domain.KindSlotNotFound, domain.KindTokenNotFound,
		domain.KindNotRegistered, domain.KindNotOnWaitingList:
		return http.StatusNotFound
	case domain.KindTokenMismatch:
		return http.StatusForbidden
	case domain.KindTokenExpired:
		return http.StatusGone
	case domain.KindNoSchedule, domain.KindTooEarly, domain.KindTooLate:
		return http.StatusUnprocessableEntity
	case domain.KindAlreadyInSlot, domain.KindRegisteredElsewhere,
		domain.KindSlotLocked, domain.KindExclusiveBlocked, domain.KindSlotFull,
		domain.KindNotPending, domain.KindInProgress, domain.KindAlreadyOnWaitingList:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error renders err. Domain errors keep their machine-readable code and, for
// time-window failures, the boundary timestamp; anything else is logged and
// hidden behind a generic 500.
func Error(c *gin.Context, logger *zap.Logger, err error) {
	kind := domain.KindOf(err)
	if kind == "" {
		if logger != nil {
			logger.Error("request failed", zap.Error(err), zap.String("path", c.FullPath()))
		}
		response.Internal(c, "internal error")
		return
	}
	body := response.Body{Success: false, Error: err.Error(), Code: string(kind)}
	if boundary, ok := domain.Boundary(err); ok {
		c.JSON(statusFor(kind), errorWithBoundary{Body: body, Boundary: boundary})
		return
	}
	c.JSON(statusFor(kind), body)
}

type errorWithBoundary struct {
	response.Body
	Boundary time.Time `json:"boundary"`
}
