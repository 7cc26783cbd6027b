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
	"github.com/pkg/errors"

	"github.com/masomo-lms/visibility/apps/api/echo"
	"github.com/masomo-lms/visibility/core"
	"github.com/masomo-lms/visibility/core/discussion"
	"github.com/masomo-lms/visibility/core/quiz"
	"github.com/masomo-lms/visibility/core/visibility"
	"github.com/masomo-lms/visibility/services/logger"
	"github.com/masomo-lms/visibility/storage/database"
	"github.com/masomo-lms/visibility/storage/database/sqlboiler"
	"github.com/masomo-lms/visibility/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

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

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		dbLogger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	repo, err := newVisibilityRepository(db, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up repository: %v", err), err)
	}
	quizSvc := quiz.NewService(repo)
	discussionSvc := discussion.NewService(repo)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : %v, %s repository", conf, conf.Database.Repository))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("repository").Set(conf.Database.Repository)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			QuizSvc:       quizSvc,
			DiscussionSvc: discussionSvc,
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

	if err = database.Ping(db, 10); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err = database.Migrate(db, conf.Database.Engine); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newVisibilityRepository(db *sqlx.DB, conf *core.Config) (visibility.Repository, error) {
	switch conf.Database.Repository {
	case core.RepositorySQLX, "":
		return sqlxrepos.NewVisibilityRepository(db), nil
	case core.RepositorySQLBoiler:
		return boiledrepos.NewVisibilityRepository(db.DB, sqlx.BindType(db.DriverName())), nil
	}
	return nil, errors.Errorf("unknown repository %q", conf.Database.Repository)
}
