package handlers

import (
	"errors"
	"log"
	"net/http"

	"finwatch/internal/auth"
	"finwatch/internal/config"
	"finwatch/internal/email"
	"finwatch/internal/models"
	"finwatch/internal/repository"
	"finwatch/internal/security"
	"finwatch/internal/useragent"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles HTTP requests for authentication
type AuthHandler struct {
	userRepo          repository.UserRepository
	coordinator       *security.Coordinator
	state             *security.AccountSecurityState
	audit             *security.AuditRecorder
	authService       *auth.Service
	emailService      email.EmailSender
	passwordResetRepo repository.PasswordResetRepository
	config            *config.Config
}

// NewAuthHandler creates a new authentication handler with the given dependencies
func NewAuthHandler(
	userRepo repository.UserRepository,
	coordinator *security.Coordinator,
	state *security.AccountSecurityState,
	audit *security.AuditRecorder,
	authService *auth.Service,
	emailService email.EmailSender,
	passwordResetRepo repository.PasswordResetRepository,
	config *config.Config,
) *AuthHandler {
	return &AuthHandler{
		userRepo:          userRepo,
		coordinator:       coordinator,
		state:             state,
		audit:             audit,
		authService:       authService,
		emailService:      emailService,
		passwordResetRepo: passwordResetRepo,
		config:            config,
	}
}

// Login godoc
// @Summary User login
// @Description Authenticate with username or email and return access and refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse "Login successful"
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 401 {object} models.ErrorResponse "Invalid credentials"
// @Failure 403 {object} models.ErrorResponse "Account blocked, suspended, terminated or deactivated"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	client := useragent.Resolve(c)

	user, err := h.coordinator.Attempt(c.Request.Context(), req.Login, req.Password, client)
	if err != nil {
		if errors.Is(err, security.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: err.Error()})
			return
		}
		var denied *security.LoginDenied
		if errors.As(err, &denied) {
			c.JSON(http.StatusForbidden, models.ErrorResponse{Error: denied.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process login"})
		return
	}

	accessToken, err := h.authService.GenerateToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to generate access token"})
		return
	}

	refreshToken, err := h.authService.GenerateRefreshToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to generate refresh token"})
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		AccessToken:       accessToken,
		RefreshToken:      refreshToken,
		PasswordChangeDue: h.state.NeedsPasswordChange(user),
	})
}

// Register godoc
// @Summary Register new user
// @Description Register a new user account. The first registered user becomes an administrator.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "User registration details"
// @Success 201 {object} models.User "User created successfully"
// @Failure 400 {object} models.ErrorResponse "Invalid request format or validation error"
// @Failure 403 {object} models.ErrorResponse "Registration is disabled"
// @Failure 409 {object} models.ErrorResponse "Username or email already exists"
// @Failure 500 {object} models.ErrorResponse "Failed to create user"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	isAdmin := c.GetBool("is_admin")

	users, err := h.userRepo.List(c.Request.Context(), repository.UserFilter{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to check existing users"})
		return
	}

	// The first user bootstraps the system and is always allowed in
	isFirstUser := len(users) == 0
	if !isFirstUser && !isAdmin && !h.config.Auth.RegistrationOpen {
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "registration is disabled"})
		return
	}

	username := req.Username
	if username == "" {
		username = req.Email
	}

	hashedPassword, err := h.authService.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process registration"})
		return
	}

	user := &models.User{
		Username:      username,
		FullName:      req.FullName,
		Email:         req.Email,
		Password:      hashedPassword,
		IsAdmin:       isFirstUser,
		AccountStatus: models.StatusActive,
		IsActive:      true,
	}

	if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: "username already exists"})
			return
		}
		if errors.Is(err, repository.ErrEmailExists) {
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: "email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create user"})
		return
	}

	h.audit.Record(c.Request.Context(), &models.CreateActivityLogRequest{
		UserID:       &user.ID,
		ActivityType: models.ActivityUserCreated,
		Description:  "User account created",
		Data: map[string]interface{}{
			"username": user.Username,
			"is_admin": user.IsAdmin,
		},
		Client: useragent.Resolve(c),
	})

	c.JSON(http.StatusCreated, user)
}

// Logout godoc
// @Summary User logout
// @Description Invalidate the presented refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token to revoke"
// @Success 200 {object} models.SuccessResponse "Logged out"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.authService.DeleteRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to log out"})
		return
	}

	if user := auth.GetUserFromContext(c); user != nil {
		h.audit.Record(c.Request.Context(), &models.CreateActivityLogRequest{
			UserID:       &user.ID,
			ActivityType: models.ActivityLogout,
			Description:  "User logged out successfully",
			Client:       useragent.Resolve(c),
		})
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "logged out"})
}

// RequestPasswordReset godoc
// @Summary Request password reset
// @Description Request a password reset email. Always returns success so email existence can't be probed.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.PasswordResetRequest true "User's email"
// @Success 200 {object} models.SuccessResponse "Reset link will be sent if email exists"
// @Failure 400 {object} models.ErrorResponse "Invalid email format"
// @Failure 500 {object} models.ErrorResponse "Failed to create token or send email"
// @Router /auth/reset-password [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req models.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	user, err := h.userRepo.GetByIdentifier(c.Request.Context(), req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		// Return success even if email doesn't exist (security)
		c.JSON(http.StatusOK, models.SuccessResponse{Message: "if the email exists, a reset link will be sent"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process request"})
		return
	}

	reset, err := h.passwordResetRepo.Create(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create reset token"})
		return
	}

	if err := h.emailService.SendPasswordResetEmail(user.Email, user.Username, reset.Token); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to send password reset email"})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "if the email exists, a reset link will be sent"})
}

// CompletePasswordReset godoc
// @Summary Complete password reset
// @Description Reset user's password using reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.CompleteResetRequest true "Reset completion details"
// @Success 200 {object} models.SuccessResponse "Password reset successfully"
// @Failure 400 {object} models.ErrorResponse "Invalid request or expired/invalid/used token"
// @Failure 500 {object} models.ErrorResponse "Failed to verify token or update password"
// @Router /auth/reset-password/complete [post]
func (h *AuthHandler) CompletePasswordReset(c *gin.Context) {
	var req models.CompleteResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	reset, err := h.passwordResetRepo.GetByToken(c.Request.Context(), req.Token)
	switch {
	case err == nil:
		// Token is valid
	case errors.Is(err, repository.ErrResetTokenExpired):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "reset token has expired"})
		return
	case errors.Is(err, repository.ErrResetTokenInvalid):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid reset token"})
		return
	case errors.Is(err, repository.ErrResetTokenUsed):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "reset token has already been used"})
		return
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to verify token"})
		return
	}

	hashedPassword, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process password"})
		return
	}

	if err := h.userRepo.UpdatePassword(c.Request.Context(), reset.UserID, hashedPassword, models.PasswordChangedBySelf); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update password"})
		return
	}

	if err := h.passwordResetRepo.MarkAsUsed(c.Request.Context(), reset.ID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to complete reset"})
		return
	}

	// Force re-authentication everywhere
	if err := h.authService.DeleteAllRefreshTokens(c.Request.Context(), reset.UserID); err != nil {
		log.Printf("WARNING: Failed to revoke refresh tokens for user %d: %v", reset.UserID, err)
	}

	h.audit.Record(c.Request.Context(), &models.CreateActivityLogRequest{
		UserID:       &reset.UserID,
		ActivityType: models.ActivityPasswordReset,
		Description:  "Password was reset via reset link",
		Client:       useragent.Resolve(c),
	})

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "password reset successfully"})
}

// RefreshRequest represents the request to refresh an access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required" example:"dG9rZW4uLi4="`
}

// RefreshResponse represents the response after refreshing an access token
type RefreshResponse struct {
	AccessToken string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIs..."`
}

// Refresh godoc
// @Summary Refresh access token
// @Description Get a new access token using a refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} RefreshResponse
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Invalid or expired refresh token"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	userID, err := h.authService.ValidateRefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		// Any error validating the token should result in 401
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid or expired refresh token"})
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to get user"})
		return
	}

	// A blocked or deactivated account cannot refresh its way back in
	if !user.IsActive || user.IsLocked || user.AccountStatus != models.StatusActive {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "account is not active"})
		return
	}

	accessToken, err := h.authService.GenerateToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to generate access token"})
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		AccessToken: accessToken,
	})
}
