package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
)

const ctxUserID = "cipherkeep.user"

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests(), s.limitBody())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	v1 := r.Group("/v1")
	v1.POST("/accounts", s.handleCreateAccount)
	v1.GET("/accounts/:username/salt", s.handleSalt)
	v1.POST("/sessions", s.handleLogin)

	authed := v1.Group("", s.requireAuth())
	authed.POST("/devices", s.handleRegisterDevice)
	authed.GET("/devices/:deviceId", s.handleDeviceStatus)
	authed.POST("/devices/:deviceId/prekeys", s.handleUploadPreKeys)
	authed.PUT("/devices/:deviceId/custody", s.handleStoreCustody)
	authed.POST("/devices/:deviceId/activate", s.handleActivate)
	authed.GET("/custody", s.handleLoadCustody)

	bundles := authed.Group("/users/:username", s.limitBundles())
	bundles.GET("/bundles", s.handleBundles)
	bundles.GET("/devices/:deviceId/bundle", s.handleDeviceBundle)

	r.NoRoute(func(c *gin.Context) { s.abort(c, failure.New(failure.ReasonNotFound, "no such route")) })
	return r
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || token == "" {
			s.abort(c, failure.New(failure.ReasonUnauthenticated, "missing bearer token"))
			return
		}
		id, err := s.tokens.parse(token)
		if err != nil {
			s.abort(c, err)
			return
		}
		c.Set(ctxUserID, id)
		c.Next()
	}
}

func (s *Server) limitBundles() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := callerID(c).String() + "|" + c.Param("username")
		if !s.rlBundles.allow(key) {
			s.abort(c, failure.New(failure.ReasonRateLimited, "too many bundle requests"))
			return
		}
		c.Next()
	}
}

func callerID(c *gin.Context) domain.UserID {
	v, _ := c.Get(ctxUserID)
	id, _ := v.(domain.UserID)
	return id
}

// ownDevice resolves the :deviceId parameter to an address of the caller.
func ownDevice(c *gin.Context) (domain.Address, error) {
	d, err := uuid.Parse(c.Param("deviceId"))
	if err != nil {
		return domain.Address{}, failure.InvalidArg("invalid device id")
	}
	return domain.Address{UserID: callerID(c), DeviceID: d}, nil
}

func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return failure.Wrap(failure.ReasonInvalidArgument, "malformed request body", err)
	}
	return nil
}
