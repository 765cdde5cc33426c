package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/config"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/handler/http/middleware"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/service"
)

// RouterDeps bundles everything the router wires together.
type RouterDeps struct {
	AuthService   *service.AuthService
	SessionSvc    *service.SessionService
	ExternalAuth  *service.ExternalAuthService
	Linking       *service.LinkingService
	Authorization *service.AuthorizationService
	Consent       *service.ConsentService
	Tokens        *service.TokenService
	Health        map[string]Pinger
	Config        *config.Config
	Logger        *zap.Logger
}

// SetupRouter builds the gin engine with the full route table.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Logging.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidations()

	router := gin.New()
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.Logging(deps.Logger))
	router.Use(middleware.CORS())
	router.Use(middleware.Metrics())

	authHandler := NewAuthHandler(deps.AuthService, deps.Config, deps.Logger)
	sessionHandler := NewSessionHandler(deps.SessionSvc, deps.Logger)
	externalHandler := NewExternalAuthHandler(deps.ExternalAuth, deps.AuthService, deps.SessionSvc, deps.Config, deps.Logger)
	linkingHandler := NewLinkingHandler(deps.Linking, deps.ExternalAuth, deps.Logger)
	oauthHandler := NewOAuthHandler(deps.Authorization, deps.Consent, deps.Tokens, deps.Logger)
	adminHandler := NewOAuthAdminHandler(deps.Authorization, deps.Logger)
	permissionHandler := NewPermissionHandler(deps.Authorization, deps.Logger)
	healthHandler := NewHealthHandler(deps.Health, deps.Logger)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", healthHandler.Health)
	router.GET("/readiness", healthHandler.Readiness)

	requireAuth := middleware.HybridAuth(deps.AuthService, deps.Logger)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/hybrid-login", authHandler.HybridLogin)
			auth.POST("/refresh-token", authHandler.Refresh)
			auth.POST("/verify-email", authHandler.ConfirmEmailVerification)

			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.POST("/hybrid-logout", requireAuth, authHandler.Logout)
			auth.POST("/verify-email/request", requireAuth, authHandler.RequestEmailVerification)
			auth.POST("/totp/enable", requireAuth, authHandler.BeginTOTP)
			auth.POST("/totp/verify", requireAuth, authHandler.ConfirmTOTP)
			auth.POST("/totp/disable", requireAuth, authHandler.DisableTOTP)

			external := auth.Group("/external")
			{
				external.GET("", externalHandler.Providers)
				external.GET("/:provider", externalHandler.Begin)
				external.GET("/:provider/callback", externalHandler.Callback)
			}
		}

		sessions := api.Group("/sessions", requireAuth)
		{
			sessions.GET("", sessionHandler.List)
			sessions.POST("/revoke-all", sessionHandler.RevokeAll)
			sessions.GET("/:id/status", sessionHandler.Status)
			sessions.POST("/:id/extend", sessionHandler.Extend)
			sessions.DELETE("/:id", sessionHandler.Revoke)
		}

		links := api.Group("/account/links", requireAuth)
		{
			links.GET("", linkingHandler.Summary)
			links.GET("/security-score", linkingHandler.SecurityScore)
			links.POST("/resolve-conflict", linkingHandler.ResolveConflict)
			links.POST("/bulk", linkingHandler.BulkAction)
			links.GET("/:provider/initiate", linkingHandler.Initiate)
			links.POST("/:provider/complete", linkingHandler.Complete)
			links.GET("/:provider/:providerUserID/status", linkingHandler.CanUnlink)
			links.DELETE("/:provider/:providerUserID", linkingHandler.Unlink)
		}

		oauth := api.Group("/oauth", requireAuth)
		{
			oauth.GET("/authorize", oauthHandler.Authorize)
			oauth.POST("/authorize/validate", oauthHandler.Validate)

			oauth.GET("/consent", oauthHandler.ConsentView)
			oauth.POST("/consent", oauthHandler.ProcessConsent)
			oauth.GET("/consents", oauthHandler.ListConsents)
			oauth.DELETE("/consents", oauthHandler.RevokeAllConsents)
			oauth.DELETE("/consent/:clientID", oauthHandler.RevokeConsent)

			clients := oauth.Group("/clients", middleware.RequirePermission(deps.Authorization, "clients:manage"))
			{
				clients.POST("", adminHandler.CreateClient)
				clients.GET("", adminHandler.ListClients)
				clients.GET("/:clientID", adminHandler.GetClient)
				clients.PATCH("/:clientID", adminHandler.UpdateClient)
				clients.DELETE("/:clientID", adminHandler.DeactivateClient)
			}

			scopes := oauth.Group("/scopes", middleware.RequirePermission(deps.Authorization, "scopes:manage"))
			{
				scopes.POST("", adminHandler.CreateScope)
				scopes.GET("", adminHandler.ListScopes)
				scopes.DELETE("/:id", adminHandler.DeactivateScope)
			}

			permissions := oauth.Group("/permissions")
			{
				permissions.GET("/effective", permissionHandler.Effective)

				manage := permissions.Group("", middleware.RequirePermission(deps.Authorization, "permissions:manage"))
				{
					manage.POST("", permissionHandler.Grant)
					manage.GET("/grants/:userID", permissionHandler.ListGrants)
					manage.DELETE("/grants/:userID/:permission", permissionHandler.Revoke)
				}
			}
		}
	}

	return router
}
