package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"worktravel-server/internal/apperrors"
	"worktravel-server/internal/config"
	"worktravel-server/internal/models"
	"worktravel-server/internal/utils"
)

const refreshCookieName = "refresh_token"

var errUsernameTaken = apperrors.InvalidFields(map[string]string{"username": "A user with that username already exists."})

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg}
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	Username   string `json:"username" binding:"required,min=3,max=150"`
	Email      string `json:"email" binding:"omitempty,email"`
	FirstName  string `json:"firstName" binding:"max=150"`
	LastName   string `json:"lastName" binding:"max=150"`
	Password   string `json:"password" binding:"required,min=8"`
	RePassword string `json:"rePassword" binding:"required,eqfield=Password"`
}

// TokenResponse represents the response body for successful register or login.
type TokenResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	username := strings.TrimSpace(req.Username)

	taken, err := usernameTaken(h.DB, username)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if taken {
		utils.RespondError(c, errUsernameTaken)
		return
	}

	user := models.User{
		Username:  username,
		Email:     strings.TrimSpace(req.Email),
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.RespondError(c, apperrors.Internal("hash password", err))
		return
	}
	if err := createAccount(h.DB, &user); err != nil {
		utils.RespondError(c, err)
		return
	}

	resp, ok := h.issueTokens(c, &user)
	if !ok {
		return
	}
	utils.Created(c, "User registered successfully", resp)
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Invalid username or password")
		} else {
			utils.RespondError(c, apperrors.Internal("find user", err))
		}
		return
	}

	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid username or password")
		return
	}

	resp, ok := h.issueTokens(c, &user)
	if !ok {
		return
	}
	utils.Success(c, "Login successful", resp)
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshToken exchanges a valid refresh token for a new token pair. The old
// refresh token is revoked.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	tokenString, err := c.Cookie(refreshCookieName)
	if err != nil || tokenString == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		tokenString = req.RefreshToken
	}

	claims, err := utils.ValidateToken(tokenString, h.Cfg.JWTRefreshSecret)
	if err != nil || claims.ID == "" {
		utils.Unauthorized(c, "Invalid refresh token")
		return
	}

	var stored models.RefreshToken
	err = h.DB.Where("token_id = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?",
		claims.ID, claims.UserID, false, time.Now()).First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		} else {
			utils.RespondError(c, apperrors.Internal("find refresh token", err))
		}
		return
	}

	var user models.User
	if err := h.DB.First(&user, claims.UserID).Error; err != nil {
		utils.Unauthorized(c, "User no longer exists")
		return
	}

	if err := h.DB.Model(&stored).Update("is_revoked", true).Error; err != nil {
		utils.RespondError(c, apperrors.Internal("revoke refresh token", err))
		return
	}

	resp, ok := h.issueTokens(c, &user)
	if !ok {
		return
	}
	utils.Success(c, "Access token refreshed successfully", resp)
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout revokes the caller's refresh token. Unknown or already revoked
// tokens are not an error.
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenString, _ := c.Cookie(refreshCookieName)
	if tokenString == "" {
		var req LogoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequest(c, "Invalid request payload: "+err.Error())
			return
		}
		tokenString = req.RefreshToken
	}
	if tokenString == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	if claims, err := utils.ValidateToken(tokenString, h.Cfg.JWTRefreshSecret); err == nil && claims.ID != "" {
		err := h.DB.Model(&models.RefreshToken{}).
			Where("token_id = ? AND is_revoked = ?", claims.ID, false).
			Updates(map[string]interface{}{"is_revoked": true, "expires_at": time.Now()}).Error
		if err != nil {
			utils.RespondError(c, apperrors.Internal("revoke refresh token", err))
			return
		}
	}

	c.SetCookie(refreshCookieName, "", -1, "/", "", h.Cfg.Environment != "development", true)
	utils.Success(c, "Logout successful", nil)
}

// issueTokens creates and stores a token pair and sets the refresh cookie.
func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User) (*TokenResponse, bool) {
	accessToken, refreshToken, refreshID, expiresAt, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		utils.RespondError(c, apperrors.Internal("generate tokens", err))
		return nil, false
	}

	stored := models.RefreshToken{
		TokenID:   refreshID,
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: expiresAt,
	}
	if err := h.DB.Create(&stored).Error; err != nil {
		utils.RespondError(c, apperrors.Internal("store refresh token", err))
		return nil, false
	}

	c.SetCookie(
		refreshCookieName,
		refreshToken,
		h.Cfg.JWTRefreshExpirationHours*60*60,
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Sanitize(),
	}, true
}

func usernameTaken(db *gorm.DB, username string) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, apperrors.Internal("find user", err)
	}
	return count > 0, nil
}

// createAccount inserts user. A concurrent registration of the same username
// loses on the unique index and gets the same field error as the pre-check.
func createAccount(db *gorm.DB, user *models.User) error {
	err := db.Create(user).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errUsernameTaken
	}
	// drivers without error translation report the violation as a plain error
	if taken, lookupErr := usernameTaken(db, user.Username); lookupErr == nil && taken {
		return errUsernameTaken
	}
	return apperrors.Internal("create user", err)
}
