package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/food-ordering-admin/shared/config"
	"github.com/pavitra93/food-ordering-admin/shared/metrics"
	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/tenancy"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

const (
	actorKey = "actor"
	tokenKey = "access_token"
)

// AuthMiddleware authenticates requests with locally issued access tokens
// and renders tenant guard refusals as redirects
type AuthMiddleware struct {
	secret     []byte
	signInURL  string
	landingURL string
}

// NewAuthMiddleware creates the middleware from the shared app config
func NewAuthMiddleware(cfg *config.AppConfig) *AuthMiddleware {
	return &AuthMiddleware{
		secret:     []byte(cfg.JWTSecret),
		signInURL:  cfg.SignInURL,
		landingURL: cfg.LandingURL,
	}
}

// RequireAuth resolves the bearer token into an actor. When Redis is
// configured the token must also have a live session, so logout and
// deactivation take effect before the token expires.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, token, err := am.authenticate(c)
		if err != nil {
			Logger(c).WithError(err).Debug("Rejected unauthenticated request")
			am.Deny(c, tenancy.ErrUnauthenticated)
			return
		}

		c.Set(actorKey, actor)
		c.Set(tokenKey, token)
		c.Set(loggerKey, Logger(c).WithField("user_id", actor.UserID))
		c.Next()
	}
}

func (am *AuthMiddleware) authenticate(c *gin.Context) (*models.Actor, string, error) {
	token := extractToken(c)
	if token == "" {
		return nil, "", errors.New("authorization token required")
	}

	profile, err := utils.ParseAccessToken(am.secret, token)
	if err != nil {
		return nil, "", err
	}

	if utils.RedisClient != nil {
		session, err := utils.GetTokenSession(token)
		if err != nil {
			return nil, "", err
		}
		profile = &session.UserProfile
	}
	return profile.Actor(), token, nil
}

// RequireRole only lets actors holding role through
func (am *AuthMiddleware) RequireRole(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActorFromContext(c)
		if actor == nil {
			am.Deny(c, tenancy.ErrUnauthenticated)
			return
		}
		if actor.Role != role {
			am.Deny(c, tenancy.ErrInsufficientRole)
			return
		}
		c.Next()
	}
}

// RequireCompanyAccess guards routes whose company is named by the param path
// parameter. It runs before any handler reads the request body.
func (am *AuthMiddleware) RequireCompanyAccess(param string, perm tenancy.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, err := uuid.Parse(c.Param(param))
		if err != nil {
			companyID = uuid.Nil
		}
		if err := tenancy.Authorize(GetActorFromContext(c), companyID, perm); err != nil {
			am.Deny(c, err)
			return
		}
		c.Next()
	}
}

// AuthorizeResource checks that the actor may reach a resource owned by
// ownerID inside their own company. It renders the refusal and returns false
// when access is denied.
func (am *AuthMiddleware) AuthorizeResource(c *gin.Context, ownerID uuid.UUID, perm tenancy.Permission) bool {
	actor := GetActorFromContext(c)
	companyID := uuid.Nil
	if actor != nil && actor.CompanyID != nil {
		companyID = *actor.CompanyID
	}
	if err := tenancy.AuthorizeResource(actor, companyID, ownerID, perm); err != nil {
		am.Deny(c, err)
		return false
	}
	return true
}

// Deny aborts with the redirect matching err: sign-in for anonymous callers,
// the landing page for every other refusal
func (am *AuthMiddleware) Deny(c *gin.Context, err error) {
	target := am.landingURL
	reason := "denied"
	if errors.Is(err, tenancy.ErrUnauthenticated) {
		target = am.signInURL
		reason = "unauthenticated"
	}

	metrics.RecordAccessDenied(reason)
	Logger(c).WithFields(logrus.Fields{
		"path":   c.Request.URL.Path,
		"reason": err.Error(),
	}).Info("Access refused")

	c.Redirect(http.StatusFound, target)
	c.Abort()
}

// extractToken extracts the JWT token from the Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return authHeader
}

// GetActorFromContext returns the authenticated actor, or nil
func GetActorFromContext(c *gin.Context) *models.Actor {
	value, exists := c.Get(actorKey)
	if !exists {
		return nil
	}
	actor, _ := value.(*models.Actor)
	return actor
}

// GetTokenFromContext returns the bearer token RequireAuth accepted
func GetTokenFromContext(c *gin.Context) string {
	return c.GetString(tokenKey)
}
