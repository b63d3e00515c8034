package handlers

import (
	"errors"
	"net/http"

	"finwatch/internal/auth"
	"finwatch/internal/models"
	"finwatch/internal/repository"
	"finwatch/internal/security"
	"finwatch/internal/useragent"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserHandler handles HTTP requests for user administration
type UserHandler struct {
	userRepo    repository.UserRepository
	state       *security.AccountSecurityState
	audit       *security.AuditRecorder
	authService *auth.Service
}

// NewUserHandler creates a new user handler
func NewUserHandler(
	userRepo repository.UserRepository,
	state *security.AccountSecurityState,
	audit *security.AuditRecorder,
	authService *auth.Service,
) *UserHandler {
	return &UserHandler{
		userRepo:    userRepo,
		state:       state,
		audit:       audit,
		authService: authService,
	}
}

// resolveTarget loads the user addressed by the :id path parameter
func (h *UserHandler) resolveTarget(c *gin.Context) (*models.User, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid user id"})
		return nil, false
	}

	user, err := h.userRepo.GetByUUID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "user not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to get user"})
		return nil, false
	}
	return user, true
}

// List godoc
// @Summary List users
// @Description List user accounts with optional search and status filter
// @Tags users
// @Produce json
// @Param search query string false "Search username, full name or email"
// @Param status query string false "Filter by account status" Enums(active, blocked, suspended, terminated)
// @Success 200 {array} models.User
// @Failure 400 {object} models.ErrorResponse "Invalid filter"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	filter := repository.UserFilter{}

	if search := c.Query("search"); search != "" {
		filter.Search = &search
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := models.AccountStatus(statusStr)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid account status"})
			return
		}
		filter.Status = &status
	}

	users, err := h.userRepo.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list users"})
		return
	}

	c.JSON(http.StatusOK, users)
}

// Get godoc
// @Summary Get user
// @Description Get a single user account by its public id
// @Tags users
// @Produce json
// @Param id path string true "User UUID"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse "Invalid user id"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, ok := h.resolveTarget(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

// Me godoc
// @Summary Current user profile
// @Description Return the authenticated user's own account
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse "Not authenticated"
// @Security BearerAuth
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	user := auth.GetUserFromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Update godoc
// @Summary Update user profile
// @Description Update profile fields of a user account
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User UUID"
// @Param request body models.UpdateUserRequest true "Fields to update"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Failure 409 {object} models.ErrorResponse "Email already exists"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	user, ok := h.resolveTarget(c)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Position != nil {
		user.Position = req.Position
	}
	if req.Email != nil {
		user.Email = *req.Email
	}

	if err := h.userRepo.Update(c.Request.Context(), user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: "email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update user"})
		return
	}

	actor := auth.GetUserFromContext(c)
	entry := &models.CreateActivityLogRequest{
		UserID:       &user.ID,
		ActivityType: models.ActivityProfileUpdated,
		Description:  "User profile updated",
		Client:       useragent.Resolve(c),
	}
	if actor != nil && actor.ID != user.ID {
		entry.PerformedBy = &actor.ID
	}
	h.audit.Record(c.Request.Context(), entry)

	c.JSON(http.StatusOK, user)
}

// ChangePassword godoc
// @Summary Change own password
// @Description Change the authenticated user's password after verifying the current one
// @Tags users
// @Accept json
// @Produce json
// @Param request body models.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} models.SuccessResponse "Password changed"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Current password is wrong"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /users/me/password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	user := auth.GetUserFromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.authService.ComparePasswords(user.Password, req.CurrentPassword); err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "current password is incorrect"})
		return
	}

	hashedPassword, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process password"})
		return
	}

	if err := h.userRepo.UpdatePassword(c.Request.Context(), user.ID, hashedPassword, models.PasswordChangedBySelf); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update password"})
		return
	}

	h.audit.Record(c.Request.Context(), &models.CreateActivityLogRequest{
		UserID:       &user.ID,
		ActivityType: models.ActivityPasswordChanged,
		Description:  "Password changed by user",
		Client:       useragent.Resolve(c),
	})

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "password changed"})
}

// Delete godoc
// @Summary Delete user
// @Description Soft-delete a user account. The row is kept so the audit trail stays intact.
// @Tags users
// @Produce json
// @Param id path string true "User UUID"
// @Success 200 {object} models.SuccessResponse "User deleted"
// @Failure 400 {object} models.ErrorResponse "Invalid user id"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	user, ok := h.resolveTarget(c)
	if !ok {
		return
	}

	if err := h.userRepo.SoftDelete(c.Request.Context(), user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to delete user"})
		return
	}

	actor := auth.GetUserFromContext(c)
	entry := &models.CreateActivityLogRequest{
		UserID:       &user.ID,
		ActivityType: models.ActivityUserDeleted,
		Description:  "User account deleted",
		Client:       useragent.Resolve(c),
	}
	if actor != nil {
		entry.PerformedBy = &actor.ID
	}
	h.audit.Record(c.Request.Context(), entry)

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "user deleted"})
}

// transition runs an admin-attributed status change on the target account
func (h *UserHandler) transition(c *gin.Context, target models.AccountStatus) {
	admin := auth.GetUserFromContext(c)
	if admin == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
		return
	}

	user, ok := h.resolveTarget(c)
	if !ok {
		return
	}

	var req models.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.state.AdminTransition(c.Request.Context(), user, admin, target, req.Reason, req.Until); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Block godoc
// @Summary Block user
// @Description Block a user account with a required reason and optional expiry
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User UUID"
// @Param request body models.StatusChangeRequest true "Reason and optional expiry"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse "Invalid request or missing reason"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Security BearerAuth
// @Router /users/{id}/block [post]
func (h *UserHandler) Block(c *gin.Context) {
	h.transition(c, models.StatusBlocked)
}

// Unblock godoc
// @Summary Unblock user
// @Description Return a blocked or suspended account to active
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User UUID"
// @Param request body models.StatusChangeRequest true "Reason"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse "Invalid request or missing reason"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Security BearerAuth
// @Router /users/{id}/unblock [post]
func (h *UserHandler) Unblock(c *gin.Context) {
	h.transition(c, models.StatusActive)
}

// Suspend godoc
// @Summary Suspend user
// @Description Suspend a user account until an admin explicitly unblocks it
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User UUID"
// @Param request body models.StatusChangeRequest true "Reason"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse "Invalid request or missing reason"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Security BearerAuth
// @Router /users/{id}/suspend [post]
func (h *UserHandler) Suspend(c *gin.Context) {
	h.transition(c, models.StatusSuspended)
}

// Terminate godoc
// @Summary Terminate user
// @Description Terminate a user account. This also deactivates it and is treated as irreversible.
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User UUID"
// @Param request body models.StatusChangeRequest true "Reason"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse "Invalid request or missing reason"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Security BearerAuth
// @Router /users/{id}/terminate [post]
func (h *UserHandler) Terminate(c *gin.Context) {
	h.transition(c, models.StatusTerminated)
}
