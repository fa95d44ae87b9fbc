package handler

import (
	"net/http"

	"lxcloud/internal/middleware"
	"lxcloud/internal/usecase/assignment"
	"lxcloud/internal/usecase/screen"
	"lxcloud/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ScreenHandler serves the operator-facing screen lifecycle: listing,
// claiming, renaming, unassigning, and telemetry history.
type ScreenHandler struct {
	assignmentService *assignment.Service
	screenService     *screen.Service
}

func NewScreenHandler(assignmentService *assignment.Service, screenService *screen.Service) *ScreenHandler {
	return &ScreenHandler{
		assignmentService: assignmentService,
		screenService:     screenService,
	}
}

func (h *ScreenHandler) RegisterRoutes(router *gin.RouterGroup) {
	screens := router.Group("/screens")
	{
		screens.GET("", h.ListScreens)
		screens.POST("", h.ClaimScreen)
		screens.GET("/:serial", h.GetScreen)
		screens.GET("/:serial/data", h.GetScreenData)
		screens.PUT("/:serial", h.RenameScreen)
		screens.POST("/:serial/unassign", h.UnassignScreen)
		screens.DELETE("/:serial", h.DeleteScreen)
	}
}

func (h *ScreenHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	router.GET("/controllers", h.ListControllers)
}

func (h *ScreenHandler) ListScreens(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	screens, err := h.screenService.ListScreens(c.Request.Context(), userID, middleware.IsAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Screens retrieved", screens)
}

func (h *ScreenHandler) ListControllers(c *gin.Context) {
	controllers, err := h.screenService.ListControllers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Unassigned devices retrieved", controllers)
}

func (h *ScreenHandler) ClaimScreen(c *gin.Context) {
	var req assignment.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	result, err := h.assignmentService.Assign(c.Request.Context(), &req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Screen assigned", result)
}

func (h *ScreenHandler) GetScreen(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	result, err := h.screenService.GetScreen(c.Request.Context(), c.Param("serial"), userID, middleware.IsAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Screen retrieved", result)
}

func (h *ScreenHandler) GetScreenData(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	records, err := h.screenService.GetScreenData(c.Request.Context(), c.Param("serial"), userID, middleware.IsAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Screen data retrieved", records)
}

func (h *ScreenHandler) RenameScreen(c *gin.Context) {
	var req assignment.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	result, err := h.assignmentService.Rename(c.Request.Context(), c.Param("serial"), &req, userID, middleware.IsAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Screen renamed", result)
}

func (h *ScreenHandler) UnassignScreen(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	result, err := h.assignmentService.Unassign(c.Request.Context(), c.Param("serial"), userID, middleware.IsAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Screen returned to unassigned pool", result)
}

func (h *ScreenHandler) DeleteScreen(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	if err := h.assignmentService.Delete(c.Request.Context(), c.Param("serial"), userID, middleware.IsAdmin(c)); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Screen deleted", nil)
}
