package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/announcement"
	"github.com/campushub/backend/core/assessment"
	"github.com/campushub/backend/core/course"
	"github.com/campushub/backend/core/institution"
	"github.com/campushub/backend/core/notification"
	"github.com/campushub/backend/core/user"
)

type (
	ServerDeps struct {
		Conf            *core.Config
		Logger          core.Logger
		UserSvc         *user.Service
		InstitutionSvc  *institution.Service
		CourseSvc       *course.Service
		AnnouncementSvc *announcement.Service
		AssessmentSvc   *assessment.Service
		NotificationSvc *notification.Service
		Validate        *validator.Validate
		Translator      ut.Translator
		DisableReqLogs  bool
	}

	Server struct {
		deps ServerDeps
		app  *echo.Echo
		auth *auth

		errChan      chan error
		shutdownChan chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:         deps,
		app:          echo.New(),
		auth:         newAuth(deps.Conf, deps.UserSvc),
		errChan:      make(chan error, 1),
		shutdownChan: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdownChan, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)

	registerUserAPI(v1, jwt, s.auth, s.deps.UserSvc, s.deps.Validate)
	registerInstitutionAPI(v1, jwt, s.auth, s.deps.InstitutionSvc, s.deps.Validate)
	registerCourseAPI(v1, jwt, s.auth, s.deps.CourseSvc, s.deps.Validate)
	registerAnnouncementAPI(v1, jwt, s.auth, s.deps.AnnouncementSvc, s.deps.Validate)
	registerAssessmentAPI(v1, jwt, s.auth, s.deps.AssessmentSvc, s.deps.Validate)
	registerNotificationAPI(v1, jwt, s.auth, s.deps.NotificationSvc)
}

func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errChan <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errChan }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdownChan }

// SignalShutdown triggers a graceful shutdown from within the app.
func (s *Server) SignalShutdown() {
	s.shutdownChan <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

// GenerateUserToken mints an access token for usr, saving tests a login round trip.
func (s *Server) GenerateUserToken(usr user.User) (string, error) {
	return s.auth.generateToken(s.auth.getUserClaims(usr))
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
