package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/arena/internal/battle"
	"github.com/zulandar/arena/internal/matchmaking"
	"github.com/zulandar/arena/internal/quota"
)

// errorCode classifies an error into the API's stable code vocabulary.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, battle.ErrNoSession):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, battle.ErrNotOwner):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, battle.ErrBattleNotFound),
		errors.Is(err, battle.ErrAgentNotFound),
		errors.Is(err, quota.ErrUsageNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, battle.ErrAlreadyVoted),
		errors.Is(err, battle.ErrNotCompleted),
		errors.Is(err, battle.ErrUnknownWinner):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, battle.ErrInvalidVote):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, matchmaking.ErrNoRatings),
		errors.Is(err, matchmaking.ErrInsufficientAgents),
		errors.Is(err, matchmaking.ErrNoValidMatchup),
		errors.Is(err, matchmaking.ErrNoCompatibleMatchup):
		return http.StatusNotFound, "insufficient_data"
	case errors.Is(err, quota.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "quota_exceeded"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// fail writes the typed error response for err.
func fail(c *gin.Context, err error) {
	status, code := errorCode(err)
	c.JSON(status, gin.H{"code": code, "error": err.Error()})
}
