package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"worktravel-server/internal/apperrors"
	"worktravel-server/internal/services"
	"worktravel-server/internal/utils"
)

// YourGradesPath is where users are sent when they open an answer form that
// is not theirs.
const YourGradesPath = "/api/v1/your_grades"

// RatingHandler handles grading of applicants and their answers.
type RatingHandler struct {
	Ratings *services.RatingService
}

// NewRatingHandler creates a new RatingHandler.
func NewRatingHandler(ratings *services.RatingService) *RatingHandler {
	return &RatingHandler{Ratings: ratings}
}

// GetGrade returns the grading form for a counterparty's thread.
func (h *RatingHandler) GetGrade(c *gin.Context) {
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
	form, err := h.Ratings.GetOrInitGrade(c.Request.Context(), offerID, counterpartyID, userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Grade fetched successfully", form)
}

// SubmitGrade creates or updates the grade of a counterparty.
func (h *RatingHandler) SubmitGrade(c *gin.Context) {
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
	var in services.GradeInput
	if !utils.BindAndValidate(c, &in) {
		return
	}
	grade, err := h.Ratings.SubmitGrade(c.Request.Context(), offerID, counterpartyID, userID, in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Grade saved successfully", grade)
}

// GetAnswer returns the answer form of a grade received by the caller.
func (h *RatingHandler) GetAnswer(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	gradeID, ok := utils.ParamID(c, "gradeId")
	if !ok {
		return
	}
	form, err := h.Ratings.GetAnswer(c.Request.Context(), gradeID, userID)
	if err != nil {
		respondAnswerError(c, err)
		return
	}
	utils.Success(c, "Answer fetched successfully", form)
}

// SubmitAnswer creates or updates the caller's answer to a grade.
func (h *RatingHandler) SubmitAnswer(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	gradeID, ok := utils.ParamID(c, "gradeId")
	if !ok {
		return
	}
	var in services.AnswerInput
	if !utils.BindAndValidate(c, &in) {
		return
	}
	answer, err := h.Ratings.SubmitAnswer(c.Request.Context(), gradeID, userID, in)
	if err != nil {
		respondAnswerError(c, err)
		return
	}
	utils.Success(c, "Answer saved successfully", answer)
}

// ListMyGrades returns the grades the caller has received.
func (h *RatingHandler) ListMyGrades(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	grades, err := h.Ratings.ListMyGrades(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Grades fetched successfully", grades)
}

// respondAnswerError redirects a user who is not the graded party back to
// their own grades instead of refusing.
func respondAnswerError(c *gin.Context, err error) {
	if apperrors.Is(err, apperrors.CodePermissionDenied) {
		c.Redirect(http.StatusSeeOther, YourGradesPath)
		return
	}
	utils.RespondError(c, err)
}
