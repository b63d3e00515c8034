package middleware

import (
	"log"

	"finwatch/internal/auth"
	"finwatch/internal/repository"
	"finwatch/internal/useragent"

	"github.com/gin-gonic/gin"
)

// TrackActivity refreshes the current-session snapshot of the authenticated
// user on every request. Must run after AuthRequired. Snapshot failures are
// logged and never fail the request.
func TrackActivity(userRepo repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.GetUserFromContext(c)
		if user != nil {
			client := useragent.Resolve(c)
			if err := userRepo.UpdateCurrentSession(c.Request.Context(), user.ID, client); err != nil {
				log.Printf("WARNING: Failed to update session snapshot for user %d: %v", user.ID, err)
			}
		}
		c.Next()
	}
}
