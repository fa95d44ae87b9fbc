package handler

import (
	"errors"
	"net/http"

	"lxcloud/internal/domain/registry"
	"lxcloud/internal/domain/telemetry"
	appErrors "lxcloud/pkg/errors"
	"lxcloud/pkg/utils"

	"github.com/gin-gonic/gin"
)

// respondError translates domain errors to HTTP statuses. Unmapped
// errors become a 500 with a generic message so internals never leak.
func respondError(c *gin.Context, err error) {
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case "VALIDATION_ERROR":
			utils.ErrorResponse(c, http.StatusBadRequest, appErr.Message)
		case "AUTH_FAILED":
			utils.ErrorResponse(c, http.StatusUnauthorized, appErr.Message)
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, appErr.Message)
		}
		return
	}

	switch {
	case errors.Is(err, registry.ErrAlreadyClaimed):
		utils.ErrorResponse(c, http.StatusConflict, "Serial number is already assigned")
	case errors.Is(err, registry.ErrSerialConflict):
		utils.ErrorResponse(c, http.StatusConflict, "Serial number is already in use")
	case errors.Is(err, registry.ErrControllerNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "No unassigned device with this serial number")
	case errors.Is(err, registry.ErrScreenNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "Screen not found")
	case errors.Is(err, telemetry.ErrScreenGone):
		utils.ErrorResponse(c, http.StatusNotFound, "Screen not found")
	case errors.Is(err, appErrors.ErrForbidden):
		utils.ErrorResponse(c, http.StatusForbidden, "You do not have access to this screen")
	case errors.Is(err, appErrors.ErrInvalidCredentials):
		utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, appErrors.ErrUserNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "User not found")
	case errors.Is(err, appErrors.ErrUserAlreadyExists):
		utils.ErrorResponse(c, http.StatusConflict, "Username or email is already taken")
	case errors.Is(err, appErrors.ErrStoreUnavailable):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Storage is temporarily unavailable")
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
	}
}
