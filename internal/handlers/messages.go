package handlers

import (
	"github.com/gin-gonic/gin"

	"worktravel-server/internal/services"
	"worktravel-server/internal/utils"
)

// MessageHandler handles messaging related requests.
type MessageHandler struct {
	Conversations *services.ConversationService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(conversations *services.ConversationService) *MessageHandler {
	return &MessageHandler{Conversations: conversations}
}

// MessageBox lists every conversation of the caller grouped by offer.
func (h *MessageHandler) MessageBox(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	inbox, err := h.Conversations.ListInbox(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Messages fetched successfully", inbox)
}

// ListThreads lists the caller's threads about one offer.
func (h *MessageHandler) ListThreads(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	offerID, ok := utils.ParamID(c, "offerId")
	if !ok {
		return
	}
	threads, err := h.Conversations.ListThreads(c.Request.Context(), userID, offerID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Threads fetched successfully", threads)
}

// GetThread returns the conversation between the caller and a counterparty.
func (h *MessageHandler) GetThread(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	offerID, ok := utils.ParamID(c, "offerId")
	if !ok {
		return
	}
	counterpartyID, ok := utils.ParamID(c, "counterpartyId")
	if !ok {
		return
	}
	thread, err := h.Conversations.GetThread(c.Request.Context(), userID, offerID, counterpartyID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Thread fetched successfully", thread)
}

// PostMessage appends a message to a thread.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	offerID, ok := utils.ParamID(c, "offerId")
	if !ok {
		return
	}
	counterpartyID, ok := utils.ParamID(c, "counterpartyId")
	if !ok {
		return
	}
	var in services.PostMessageInput
	if !utils.BindAndValidate(c, &in) {
		return
	}
	msg, err := h.Conversations.PostMessage(c.Request.Context(), userID, offerID, counterpartyID, in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Message sent successfully", msg)
}
