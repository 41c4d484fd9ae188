// Package router registers the HTTP routes of the identity service.  Every
// route lives under /api/v1; everything except health, register, login and
// refresh requires a bearer access token.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/identity-service/internal/config"
	"github.com/iliyamo/identity-service/internal/handler"
	"github.com/iliyamo/identity-service/internal/middleware"
	"github.com/iliyamo/identity-service/internal/service"
)

// Cache groups.  A write to either resource purges both, since role
// listings embed permission edges.
const (
	groupRoles       = "roles"
	groupPermissions = "permissions"
)

// Handlers bundles the HTTP handlers wired by main.
type Handlers struct {
	Health      *handler.HealthHandler
	Auth        *handler.AuthHandler
	Users       *handler.UserHandler
	Roles       *handler.RoleHandler
	Permissions *handler.PermissionHandler
	Profiles    *handler.ProfileHandler
}

// Cache configures the Redis response cache of the read-heavy routes.  A nil
// Redis client disables caching.
type Cache struct {
	Config config.CacheConfig
	Redis  *redis.Client
	Log    *zap.Logger
}

func (c Cache) read(group string) echo.MiddlewareFunc {
	return middleware.NewRedisCache(c.Config, c.Redis, group, c.Log)
}

func (c Cache) purge() echo.MiddlewareFunc {
	return middleware.InvalidateOnWrite(c.Config, c.Redis, c.Log, groupRoles, groupPermissions)
}

// Register wires every route on e.
func Register(e *echo.Echo, h Handlers, tokens *service.TokenService, cache Cache) {
	api := e.Group("/api/v1")
	bearer := middleware.BearerAuth(tokens)

	RegisterHealth(api, h.Health)
	RegisterAuth(api, h.Auth, bearer)
	RegisterUsers(api, h.Users, bearer, cache)
	RegisterRoles(api, h.Roles, bearer, cache)
	RegisterPermissions(api, h.Permissions, bearer, cache)
	RegisterProfiles(api, h.Profiles, bearer)
}

func RegisterHealth(g *echo.Group, h *handler.HealthHandler) {
	g.GET("/health-check", h.Check)
}

// RegisterAuth exposes register, login and refresh without a session and
// logout behind the bearer check.
func RegisterAuth(g *echo.Group, a *handler.AuthHandler, bearer echo.MiddlewareFunc) {
	auth := g.Group("/auth")
	auth.POST("/register", a.Register)
	auth.POST("/login", a.Login)
	auth.POST("/refresh", a.Refresh)
	auth.POST("/logout", a.Logout, bearer)
}

// RegisterUsers purges the cached role and permission reads after a disable,
// so a disabled account cannot keep reading them from the cache.
func RegisterUsers(g *echo.Group, u *handler.UserHandler, bearer echo.MiddlewareFunc, cache Cache) {
	users := g.Group("/users", bearer)
	users.GET("", u.List)
	users.POST("/verification", u.SetVerification)
	users.POST("/change-password", u.ChangePassword)
	users.POST("/disable", u.Disable, cache.purge())
}

// RegisterRoles caches role reads per subject and purges the cache after
// every successful write.
func RegisterRoles(g *echo.Group, r *handler.RoleHandler, bearer echo.MiddlewareFunc, cache Cache) {
	roles := g.Group("/roles", bearer)
	read, purge := cache.read(groupRoles), cache.purge()

	roles.POST("", r.Create, purge)
	roles.GET("", r.List, read)
	roles.GET("/:id", r.Get, read)
	roles.PUT("/:id", r.Update, purge)
	roles.DELETE("/:id", r.Delete, purge)

	roles.POST("/:id/users", r.AssignUser, purge)
	roles.DELETE("/:id/users/:user_id", r.RemoveUser, purge)

	roles.GET("/:id/permissions", r.Permissions, read)
	roles.POST("/:id/permissions", r.AssignPermission, purge)
	roles.DELETE("/:id/permissions/:permission_id", r.RemovePermission, purge)
}

func RegisterPermissions(g *echo.Group, p *handler.PermissionHandler, bearer echo.MiddlewareFunc, cache Cache) {
	perms := g.Group("/permissions", bearer)
	read, purge := cache.read(groupPermissions), cache.purge()

	perms.POST("", p.Create, purge)
	perms.GET("", p.List, read)
	perms.GET("/:id", p.Get, read)
	perms.PUT("/:id", p.Update, purge)
	perms.DELETE("/:id", p.Delete, purge)
}

func RegisterProfiles(g *echo.Group, p *handler.ProfileHandler, bearer echo.MiddlewareFunc) {
	profile := g.Group("/profile", bearer)
	profile.POST("", p.Create)
	profile.GET("", p.Mine)
	profile.GET("/:id", p.Get)
	profile.PUT("/:id", p.Update)
	profile.DELETE("/:id", p.Delete)
}
