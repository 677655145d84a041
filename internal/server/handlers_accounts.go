package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cipherkeep/internal/api"
	"cipherkeep/internal/domain"
	"cipherkeep/internal/envelope"
	"cipherkeep/internal/failure"
)

const minSaltLen = 16

func (s *Server) handleCreateAccount(c *gin.Context) {
	var req api.CreateAccountRequest
	if err := bindJSON(c, &req); err != nil {
		s.abort(c, err)
		return
	}
	if !req.Username.Valid() {
		s.abort(c, failure.InvalidArg("username must be 3-64 letters, digits, '_', '.' or '-'"))
		return
	}
	if len(req.Salt) < minSaltLen {
		s.abort(c, failure.InvalidArg("salt must be at least 16 bytes"))
		return
	}
	if len(req.Verifier) != 32 {
		s.abort(c, failure.InvalidArg("verifier must be 32 bytes"))
		return
	}
	hash, err := envelope.HashVerifier(req.Verifier)
	if err != nil {
		s.abort(c, err)
		return
	}
	acct := domain.Account{
		ID:           uuid.New(),
		Username:     req.Username,
		Salt:         req.Salt,
		VerifierHash: hash,
	}
	if err := s.store.CreateAccount(c.Request.Context(), &acct); err != nil {
		s.abort(c, err)
		return
	}
	s.log.InfoContext(c.Request.Context(), "account created", "user_id", acct.ID)
	c.JSON(http.StatusCreated, api.CreateAccountResponse{UserID: acct.ID})
}

func (s *Server) handleSalt(c *gin.Context) {
	username := domain.Username(c.Param("username"))
	acct, err := s.store.AccountByUsername(c.Request.Context(), username)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, api.SaltResponse{Salt: acct.Salt})
	case failure.Has(err, failure.ReasonNotFound):
		c.JSON(http.StatusOK, api.SaltResponse{Salt: s.fakeSalt(username.String())})
	default:
		s.abort(c, err)
	}
}

func (s *Server) handleLogin(c *gin.Context) {
	var req api.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		s.abort(c, err)
		return
	}
	acct, err := s.store.AccountByUsername(c.Request.Context(), req.Username)
	if err != nil && !failure.Has(err, failure.ReasonNotFound) {
		s.abort(c, err)
		return
	}
	hash := acct.VerifierHash
	if err != nil {
		hash = s.dummyHash
	}
	if !envelope.CheckVerifier(hash, req.Verifier) || err != nil {
		s.abort(c, failure.ErrUnauthenticated)
		return
	}
	token, exp, err := s.tokens.issue(acct.ID)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, api.LoginResponse{UserID: acct.ID, Token: token, ExpiresAt: exp})
}
