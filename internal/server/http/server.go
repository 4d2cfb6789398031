// Package http exposes the server's REST API over gin. Authentication uses
// bearer JWTs; routes declare whether they expect an access or a refresh
// token, and the middleware stores the verified claims on the context.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mwodeola/mwodeola-server/internal/logging"
	"github.com/mwodeola/mwodeola-server/internal/server/auth"
	"github.com/mwodeola/mwodeola-server/internal/server/metrics"
	"github.com/mwodeola/mwodeola-server/internal/server/models"
	"github.com/mwodeola/mwodeola-server/internal/server/services"
)

// AuthAPI is the authentication surface the handlers depend on,
// implemented by services.AuthService.
type AuthAPI interface {
	SignUp(ctx context.Context, userName, email, phoneNumber, password string) (*models.User, *services.TokenPair, error)
	PhoneNumberAvailable(ctx context.Context, phoneNumber string) (bool, error)
	EmailAvailable(ctx context.Context, email string) (bool, error)
	SignIn(ctx context.Context, phoneNumber, password string) (*services.TokenPair, error)
	SignInAuto(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	SignOut(ctx context.Context, refreshToken string) error
	Reauthenticate(ctx context.Context, userID, password string) (*models.User, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	Withdraw(ctx context.Context, userID, password string) error
	Lock(ctx context.Context, userID, refreshToken string) error
	FailedCount(ctx context.Context, userID string) (count, limit int, err error)
	SetFailedCount(ctx context.Context, userID string, count int, refreshToken string) error
}

// TokenAPI is implemented by services.TokenService.
type TokenAPI interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

// AccountAPI is implemented by services.AccountService.
type AccountAPI interface {
	CreateGroup(ctx context.Context, group *models.AccountGroup, input *services.DetailInput) (*models.AccountGroup, *models.AccountDetail, error)
	AddDetail(ctx context.Context, userID, groupID string, input *services.DetailInput) (*models.AccountDetail, error)
	GetDetail(ctx context.Context, userID, detailID string) (*services.DetailOutput, error)
	UpdateDetail(ctx context.Context, userID, detailID string, input *services.DetailInput) error
	ListGroups(ctx context.Context, userID string) ([]*models.AccountGroup, error)
	SearchGroups(ctx context.Context, userID, nameSubstring string) ([]*models.AccountGroup, error)
	DeleteGroup(ctx context.Context, userID, groupID string) error
}

type Server struct {
	auth     AuthAPI
	tokens   TokenAPI
	accounts AccountAPI
	logger   logging.Logger

	srv *http.Server
}

func NewServer(addr string, auth AuthAPI, tokens TokenAPI, accounts AccountAPI, logger logging.Logger) *Server {
	s := &Server{
		auth:     auth,
		tokens:   tokens,
		accounts: accounts,
		logger:   logger,
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the gin engine with the full route table. Exposed
// separately so tests can drive it through httptest.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	users := r.Group("/users")
	{
		users.POST("/sign_up", s.signUp)
		users.POST("/sign_up/verify/phone", s.verifyPhone)
		users.POST("/sign_up/verify/email", s.verifyEmail)
		users.POST("/sign_in", s.signIn)

		refresh := users.Group("", s.requireRefreshToken())
		{
			refresh.GET("/sign_in/auto", s.signInAuto)
			refresh.PUT("/sign_out", s.signOut)
			refresh.GET("/token/refresh", s.refreshToken)
		}

		access := users.Group("", s.requireAccessToken())
		{
			access.POST("/password/auth", s.passwordAuth)
			access.PUT("/password/change", s.passwordChange)
			access.DELETE("/withdrawal", s.withdrawal)
			access.POST("/lock", s.lock)
			access.GET("/auth_failed_count", s.getAuthFailedCount)
			access.POST("/auth_failed_count", s.setAuthFailedCount)
		}
	}

	accounts := r.Group("/accounts", s.requireAccessToken())
	{
		accounts.POST("/group", s.createGroup)
		accounts.GET("/group", s.listGroups)
		accounts.GET("/group/search", s.searchGroups)
		accounts.DELETE("/group/:id", s.deleteGroup)
		accounts.POST("/detail", s.addDetail)
		accounts.GET("/detail/:id", s.getDetail)
		accounts.PUT("/detail/:id", s.updateDetail)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.Info(ctx, "http server listening", "addr", s.srv.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
