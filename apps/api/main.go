package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/LAVINDI111/acnsms/apps/api/echo"
	"github.com/LAVINDI111/acnsms/core"
	"github.com/LAVINDI111/acnsms/core/schedule"
	"github.com/LAVINDI111/acnsms/core/user"
	calsvc "github.com/LAVINDI111/acnsms/services/calendar"
	emailsvc "github.com/LAVINDI111/acnsms/services/email"
	logsvc "github.com/LAVINDI111/acnsms/services/logger"
	smssvc "github.com/LAVINDI111/acnsms/services/sms"
	"github.com/LAVINDI111/acnsms/storage/database"
	sqlxrepos "github.com/LAVINDI111/acnsms/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig(core.Getwd())

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up gateways; console fakes in DEV so no external account is needed
	var mailSvc core.EmailService
	var smsSvc core.SMSService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
		smsSvc = smssvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
		smsSvc = smssvc.NewTwilioService(conf, logger)
	}

	var calSvc core.CalendarService
	if conf.Debug {
		calSvc = calsvc.NewDummyService()
	} else {
		calSvc = calsvc.NewGoogleService(
			conf,
			calsvc.NewFileCredentialStore(conf.Calendar.TokenFile),
			logger,
		)
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo)
	schedSvc := schedule.NewService(
		conf,
		sqlxrepos.NewScheduleRepository(db),
		usrRepo,
		calSvc, mailSvc, smsSvc, logger,
	)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Conf:        conf,
		Logger:      logger,
		UserSvc:     usrSvc,
		ScheduleSvc: schedSvc,
		Shutdown:    shutdown,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
