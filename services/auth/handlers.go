package main

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pavitra93/food-ordering-admin/shared/api"
	"github.com/pavitra93/food-ordering-admin/shared/metrics"
	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken string             `json:"access_token"`
	ExpiresIn   int64              `json:"expires_in"`
	ExpiresAt   time.Time          `json:"expires_at"`
	TokenType   string             `json:"token_type"`
	SessionID   string             `json:"session_id"`
	User        models.UserProfile `json:"user_info"`
}

// handleLogin checks the password of an active user and opens a session
func handleLogin(st *store.Store, secret []byte, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		log := middleware.Logger(c).WithField("email", req.Email)
		ctx := c.Request.Context()

		user, err := st.FindUserByEmail(ctx, req.Email)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.WithError(err).Error("Failed to look up user")
			utils.InternalServerErrorResponse(c, "Failed to sign in")
			return
		}
		// unknown, inactive and wrong-password sign-ins look the same to the caller
		if user == nil || !user.IsActive || !user.CheckPassword(req.Password) {
			metrics.RecordAuthAttempt("failure")
			log.Info("Rejected sign in")
			utils.UnauthorizedResponse(c, "Invalid credentials")
			return
		}

		profile := user.Profile()
		accessToken, expiresAt, err := utils.IssueAccessToken(secret, profile, ttl)
		if err != nil {
			log.WithError(err).Error("Failed to issue access token")
			utils.InternalServerErrorResponse(c, "Failed to sign in")
			return
		}

		session, err := utils.CreateTokenSession(accessToken, profile, ttl)
		if err != nil {
			log.WithError(err).Error("Failed to create session")
			utils.InternalServerErrorResponse(c, "Failed to create session")
			return
		}

		if err := st.TouchLastLogin(ctx, user); err != nil {
			log.WithError(err).Warn("Failed to record last login")
		}

		metrics.RecordAuthAttempt("success")
		log.WithField("user_id", user.ID).Info("User signed in")
		utils.OKResponse(c, "Login successful", LoginResponse{
			AccessToken: accessToken,
			ExpiresIn:   int64(ttl.Seconds()),
			ExpiresAt:   expiresAt,
			TokenType:   "Bearer",
			SessionID:   session.SessionID,
			User:        profile,
		})
	}
}

// handleLogout revokes the session of the presented token
func handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := middleware.GetTokenFromContext(c)
		if accessToken == "" {
			utils.UnauthorizedResponse(c, "No active session found")
			return
		}

		if err := utils.RevokeTokenSession(accessToken); err != nil {
			middleware.Logger(c).WithError(err).Error("Failed to revoke session")
			utils.InternalServerErrorResponse(c, "Failed to revoke session")
			return
		}

		utils.OKResponse(c, "Logout successful", nil)
	}
}

// handleMe returns the signed-in user
func handleMe(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := middleware.GetActorFromContext(c)

		user, err := st.GetUser(c.Request.Context(), actor.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				utils.NotFoundResponse(c, "User not found")
				return
			}
			middleware.Logger(c).WithError(err).Error("Failed to fetch user")
			utils.InternalServerErrorResponse(c, "Failed to fetch user")
			return
		}

		utils.OKResponse(c, "User retrieved successfully", user)
	}
}

// ConfirmRequest sets the password of an account from a confirmation token
type ConfirmRequest struct {
	Token                string `json:"token" binding:"required"`
	Password             string `json:"password" binding:"required"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// handleConfirm spends a set-password token and stores the new password.
// The password is checked first so a rejected one leaves the token usable.
func handleConfirm(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		fields := models.FieldErrors{}
		if ve, ok := models.AsValidationError(models.ValidatePassword(req.Password)); ok {
			fields.Merge(ve.Fields)
		}
		if req.PasswordConfirmation != "" && req.PasswordConfirmation != req.Password {
			fields.Add("password_confirmation", "doesn't match Password")
		}
		if err := fields.Err(); err != nil {
			api.RenderError(c, "Failed to set password", err)
			return
		}

		log := middleware.Logger(c)
		ctx := c.Request.Context()

		userID, err := utils.ConsumeConfirmationToken(req.Token)
		if errors.Is(err, utils.ErrConfirmationNotFound) {
			api.RenderError(c, "Failed to set password", models.FieldErrors{"token": {"is invalid"}}.Err())
			return
		}
		if err != nil {
			log.WithError(err).Error("Failed to read confirmation token")
			utils.InternalServerErrorResponse(c, "Failed to set password")
			return
		}

		user, err := st.GetUser(ctx, userID)
		if err != nil {
			api.RenderError(c, "Failed to set password", err)
			return
		}
		if !user.IsActive {
			api.RenderError(c, "Failed to set password", models.FieldErrors{"token": {"is invalid"}}.Err())
			return
		}

		if err := st.SetUserPassword(ctx, user, req.Password); err != nil {
			api.RenderError(c, "Failed to set password", err)
			return
		}
		// any session opened with the old password ends here
		if err := utils.RevokeAllUserSessions(user.ID); err != nil {
			log.WithError(err).Warn("Failed to revoke sessions after password change")
		}

		log.WithField("user_id", user.ID).Info("Password set from confirmation token")
		utils.OKResponse(c, "Password set successfully", user.Profile())
	}
}

// SessionInfo describes one live session of the signed-in user
type SessionInfo struct {
	SessionID  string    `json:"session_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsCurrent  bool      `json:"is_current"`
}

// SessionsResponse lists the signed-in user's sessions
type SessionsResponse struct {
	ActiveSessions []SessionInfo `json:"active_sessions"`
	TotalSessions  int           `json:"total_sessions"`
}

// handleGetSessions lists the live sessions of the signed-in user
func handleGetSessions() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := middleware.GetActorFromContext(c)

		sessions, err := utils.ListUserSessions(actor.UserID)
		if err != nil {
			middleware.Logger(c).WithError(err).Error("Failed to list sessions")
			utils.InternalServerErrorResponse(c, "Failed to list sessions")
			return
		}

		currentID := ""
		if current, err := utils.GetTokenSession(middleware.GetTokenFromContext(c)); err == nil {
			currentID = current.SessionID
		}

		infos := make([]SessionInfo, len(sessions))
		for i, s := range sessions {
			infos[i] = SessionInfo{
				SessionID:  s.SessionID,
				CreatedAt:  s.CreatedAt,
				LastUsedAt: s.LastUsedAt,
				ExpiresAt:  s.ExpiresAt,
				IsCurrent:  s.SessionID == currentID,
			}
		}

		utils.OKResponse(c, "Sessions retrieved", SessionsResponse{
			ActiveSessions: infos,
			TotalSessions:  len(infos),
		})
	}
}

// handleRevokeSession ends one session of the signed-in user
func handleRevokeSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("session_id")
		actor := middleware.GetActorFromContext(c)

		err := utils.RevokeUserSession(actor.UserID, sessionID)
		if errors.Is(err, utils.ErrSessionNotFound) {
			utils.NotFoundResponse(c, "Session not found")
			return
		}
		if err != nil {
			middleware.Logger(c).WithError(err).Error("Failed to revoke session")
			utils.InternalServerErrorResponse(c, "Failed to revoke session")
			return
		}

		utils.OKResponse(c, "Session revoked successfully", gin.H{"session_id": sessionID})
	}
}
