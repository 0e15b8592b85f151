package handlers

import (
	"net/http"

	"github.com/AccountantBot/AccountantBot-Backend/internal/core"

	"github.com/gin-gonic/gin"
)

// respondError maps an engine error's Kind to an HTTP status and
// writes the standard { error } body, per spec.md §7.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch core.KindOf(err) {
	case core.KindInvalidInput:
		status = http.StatusBadRequest
	case core.KindNotFound:
		status = http.StatusNotFound
	case core.KindConflict:
		status = http.StatusConflict
	case core.KindChainFailed:
		status = http.StatusBadGateway
	case core.KindMisconfigured:
		status = http.StatusInternalServerError
	case core.KindInternal:
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
