package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/campushub/backend/apps/api/echo"
	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/announcement"
	"github.com/campushub/backend/core/assessment"
	"github.com/campushub/backend/core/course"
	"github.com/campushub/backend/core/institution"
	"github.com/campushub/backend/core/notification"
	"github.com/campushub/backend/core/user"
	emailsvc "github.com/campushub/backend/services/email"
	logsvc "github.com/campushub/backend/services/logger"
	"github.com/campushub/backend/storage/database"
	sqlxrepos "github.com/campushub/backend/storage/database/sqlx"
)

var build = "dev" // set via ldflags on release builds

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig(build)

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up repositories
	usrRepo := sqlxrepos.NewUserRepository(db)
	instRepo := sqlxrepos.NewInstitutionRepository(db)
	crsRepo := sqlxrepos.NewCourseRepository(db)
	annRepo := sqlxrepos.NewAnnouncementRepository(db)
	asmRepo := sqlxrepos.NewAssessmentRepository(db)
	notifRepo := sqlxrepos.NewNotificationRepository(db)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	instSvc := institution.NewService(instRepo)
	crsSvc := course.NewService(crsRepo)
	notifSvc := notification.NewService(notifRepo, usrRepo, crsRepo, logger)
	annSvc := announcement.NewService(annRepo, crsSvc, notifSvc, conf, logger)
	asmSvc := assessment.NewService(asmRepo, crsSvc, notifSvc, conf, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidators()
	user.RegisterValidators(validate, translator)
	institution.RegisterValidators(validate, translator)
	course.RegisterValidators(validate, translator)
	announcement.RegisterValidators(validate, translator)
	assessment.RegisterValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			UserSvc:         usrSvc,
			InstitutionSvc:  instSvc,
			CourseSvc:       crsSvc,
			AnnouncementSvc: annSvc,
			AssessmentSvc:   asmSvc,
			NotificationSvc: notifSvc,
			Validate:        validate,
			Translator:      translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
