package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	echoapi "github.com/trezcool/idview/apps/api/echo"
	"github.com/trezcool/idview/core"
	"github.com/trezcool/idview/core/session"
	logsvc "github.com/trezcool/idview/services/logger"
	"github.com/trezcool/idview/services/metrics"
	"github.com/trezcool/idview/services/studentapi"
	inmemdb "github.com/trezcool/idview/storage/database/inmem"
)

const evictionInterval = time.Minute

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	m := metrics.New("idview")
	client := studentapi.NewClient(conf.StudentAPI.BaseURL, conf.StudentAPI.Timeout)
	sessionSvc := session.NewService(
		inmemdb.NewSessionRepository(inmemdb.Open()),
		m.Instrument(client),
		conf.Server.SessionTTL,
		conf.Upload.MaxSize,
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// drafts are never persisted: idle sessions are simply dropped
	go sessionSvc.Run(ctx, evictionInterval, func(evicted int, err error) {
		if err != nil {
			logger.Error("evicting idle sessions", err)
			return
		}
		if evicted > 0 {
			logger.Debug(fmt.Sprintf("evicted %d idle sessions", evicted))
		}
		if n, err := sessionSvc.Count(); err == nil {
			m.SetSessions(n)
		}
	})

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			SessionSvc: sessionSvc,
			StudentAPI: client,
			Metrics:    m,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
