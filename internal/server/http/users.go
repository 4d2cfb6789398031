package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mwodeola/mwodeola-server/internal/server/services"
)

type signUpRequest struct {
	UserName    string `json:"user_name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
}

type signInRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func newTokenResponse(pair *services.TokenPair) tokenResponse {
	return tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
}

func (s *Server) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid payload")
		return
	}

	user, pair, err := s.auth.SignUp(c.Request.Context(), req.UserName, req.Email, req.PhoneNumber, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id": user.ID,
		"token":   newTokenResponse(pair),
	})
}

func (s *Server) verifyPhone(c *gin.Context) {
	var req struct {
		PhoneNumber string `json:"phone_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid payload")
		return
	}

	available, err := s.auth.PhoneNumberAvailable(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !available {
		c.JSON(http.StatusConflict, errorResponse{Code: "DUPLICATED", Message: "phone number already registered"})
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) verifyEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid payload")
		return
	}

	available, err := s.auth.EmailAvailable(c.Request.Context(), req.Email)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !available {
		c.JSON(http.StatusConflict, errorResponse{Code: "DUPLICATED", Message: "email already registered"})
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid payload")
		return
	}

	pair, err := s.auth.SignIn(c.Request.Context(), req.PhoneNumber, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

func (s *Server) signInAuto(c *gin.Context) {
	pair, err := s.auth.SignInAuto(c.Request.Context(), rawToken(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

func (s *Server) signOut(c *gin.Context) {
	if err := s.auth.SignOut(c.Request.Context(), rawToken(c)); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) refreshToken(c *gin.Context) {
	pair, err := s.tokens.Refresh(c.Request.Context(), rawToken(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

func (s *Server) passwordAuth(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid payload")
		return
	}

	if _, err := s.auth.Reauthenticate(c.Request.Context(), userID(c), req.Password); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) passwordChange(c *gin.Context) {
	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid payload")
		return
	}

	if err := s.auth.ChangePassword(c.Request.Context(), userID(c), req.OldPassword, req.NewPassword); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) withdrawal(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid payload")
		return
	}

	if err := s.auth.Withdraw(c.Request.Context(), userID(c), req.Password); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) lock(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid payload")
		return
	}

	if err := s.auth.Lock(c.Request.Context(), userID(c), req.RefreshToken); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) getAuthFailedCount(c *gin.Context) {
	count, limit, err := s.auth.FailedCount(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count, "limit": limit})
}

// setAuthFailedCount syncs the counter from the client's offline PIN or
// pattern attempts. Reaching the limit locks the account server-side.
func (s *Server) setAuthFailedCount(c *gin.Context) {
	var req struct {
		Count        int    `json:"count" binding:"min=0"`
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid payload")
		return
	}

	if err := s.auth.SetFailedCount(c.Request.Context(), userID(c), req.Count, req.RefreshToken); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
