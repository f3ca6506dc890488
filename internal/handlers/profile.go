package handlers

import (
	"github.com/gin-gonic/gin"

	"worktravel-server/internal/middleware"
	"worktravel-server/internal/services"
	"worktravel-server/internal/utils"
)

// ProfileHandler serves the caller's profile page.
type ProfileHandler struct {
	Profiles *services.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles}
}

// GetProfile returns the caller's profile with their average grade.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	view, err := h.Profiles.Get(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Profile fetched successfully", view)
}

// AddProfile creates the caller's profile.
func (h *ProfileHandler) AddProfile(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var in services.ProfileInput
	if !utils.BindAndValidate(c, &in) {
		return
	}
	profile, err := h.Profiles.Add(c.Request.Context(), userID, in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Profile created successfully", profile)
}

// EditProfile updates the caller's profile.
func (h *ProfileHandler) EditProfile(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var in services.ProfileInput
	if !utils.BindAndValidate(c, &in) {
		return
	}
	profile, err := h.Profiles.Edit(c.Request.Context(), userID, in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Profile updated successfully", profile)
}

// callerID reads the authenticated user. It responds 401 when missing.
func callerID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return 0, false
	}
	return userID, true
}
