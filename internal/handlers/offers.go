package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"worktravel-server/internal/services"
	"worktravel-server/internal/utils"
)

// OfferHandler handles the offer catalog.
type OfferHandler struct {
	Offers *services.OfferService
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(offers *services.OfferService) *OfferHandler {
	return &OfferHandler{Offers: offers}
}

// ListCategories returns every category.
func (h *OfferHandler) ListCategories(c *gin.Context) {
	categories, err := h.Offers.ListCategories(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Categories fetched successfully", categories)
}

// ListOffers pages through active offers, optionally filtered by country.
func (h *OfferHandler) ListOffers(c *gin.Context) {
	// a malformed page number is clamped like an out-of-range one
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	result, err := h.Offers.ListActive(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Offers fetched successfully", result)
}

// GetOffer returns one offer with its categories and owner.
func (h *OfferHandler) GetOffer(c *gin.Context) {
	offerID, ok := utils.ParamID(c, "offerId")
	if !ok {
		return
	}
	offer, err := h.Offers.Get(c.Request.Context(), offerID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Offer fetched successfully", offer)
}

// CreateOffer stores a new offer owned by the caller.
func (h *OfferHandler) CreateOffer(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var in services.OfferInput
	if !utils.BindAndValidate(c, &in) {
		return
	}
	offer, err := h.Offers.Create(c.Request.Context(), userID, in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Offer created successfully", offer)
}

// UpdateOffer edits an offer owned by the caller.
func (h *OfferHandler) UpdateOffer(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	offerID, ok := utils.ParamID(c, "offerId")
	if !ok {
		return
	}
	var in services.OfferInput
	if !utils.BindAndValidate(c, &in) {
		return
	}
	offer, err := h.Offers.Update(c.Request.Context(), offerID, userID, in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Offer updated successfully", offer)
}

// DeleteOffer removes an offer owned by the caller.
func (h *OfferHandler) DeleteOffer(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	offerID, ok := utils.ParamID(c, "offerId")
	if !ok {
		return
	}
	if err := h.Offers.Delete(c.Request.Context(), offerID, userID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Offer deleted successfully", nil)
}

// ListOwnOffers returns the caller's offers.
func (h *OfferHandler) ListOwnOffers(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	offers, err := h.Offers.ListOwned(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Offers fetched successfully", offers)
}
