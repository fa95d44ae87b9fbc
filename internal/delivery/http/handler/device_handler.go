package handler

import (
	"net/http"

	"lxcloud/internal/usecase/ingestion"
	"lxcloud/pkg/utils"

	"github.com/gin-gonic/gin"
)

// DeviceHandler serves the unauthenticated device-facing endpoints:
// controller self-registration and the periodic update/telemetry push.
type DeviceHandler struct {
	service *ingestion.Service
}

func NewDeviceHandler(service *ingestion.Service) *DeviceHandler {
	return &DeviceHandler{service: service}
}

func (h *DeviceHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/controller/register", h.RegisterController)
	router.POST("/device/update", h.Update)
}

func (h *DeviceHandler) RegisterController(c *gin.Context) {
	var req ingestion.RegisterRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Controller registered", result)
}

func (h *DeviceHandler) Update(c *gin.Context) {
	var req ingestion.UpdateRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Ingest(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	switch result.Outcome {
	case ingestion.OutcomeStored:
		utils.SuccessResponse(c, http.StatusOK, "Update stored", gin.H{
			"outcome":   result.Outcome,
			"screen_id": result.ScreenID,
			"persisted": result.Persisted,
		})
	case ingestion.OutcomeRegistered:
		utils.SuccessResponse(c, http.StatusOK, "Device registered, awaiting assignment", gin.H{
			"outcome": result.Outcome,
		})
	default:
		utils.SuccessResponse(c, http.StatusOK, "Update acknowledged, device not yet assigned", gin.H{
			"outcome": result.Outcome,
		})
	}
}
