package actions

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/scheduler"
	"golang.org/x/net/context"
)

type WebServerConfig struct {
	Scheme string `errorTxt:"scheme" mandatory:"no"`
	Addr   net.IP `errorTxt:"address" mandatory:"no"`
	Port   int    `errorTxt:"port" mandatory:"no"`
}

// newRouter returns the routes used to monitor runs.
func newRouter(log logger.Logger, runs *scheduler.SafeMapRunInfo, chanStopServer chan string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/stop", GetHandlerStopServer(log, chanStopServer))
	r.Path("/health").HandlerFunc(GetHandlerHealth(log))
	r.Path("/runs").HandlerFunc(GetHandlerRunList(log, runs))
	r.Path("/runs/{runId}/status").HandlerFunc(GetHandlerRunStatus(log, runs))
	r.Path("/runs/{runId}/stop").HandlerFunc(GetHandlerRunStop(log, runs))
	return r
}

// runServer starts a web server and returns:
// 1) the server; and
// 2) a channel that can be used to stop the web server
func runServer(log logger.Logger, web *WebServerConfig, runs *scheduler.SafeMapRunInfo) (*http.Server, chan string) {
	chanStopServer := make(chan string, 1)
	srv := &http.Server{
		Addr:         fmt.Sprintf("%v:%v", web.Addr, web.Port),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      newRouter(log, runs, chanStopServer),
	}
	// Run HTTP server non-blocking.
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				log.Info(err)
			} else {
				log.Error("web server failed: ", err)
				select {
				case chanStopServer <- "error":
				default:
				}
			}
		}
	}()
	log.Info(fmt.Sprintf("Listening on %v://%v:%v", strings.ToLower(web.Scheme), web.Addr, web.Port))
	return srv, chanStopServer
}

// waitForServer blocks until the server is told to stop via chanStopServer or SIGINT.
// Runs that are still going are cancelled before the server shuts down.
func waitForServer(log logger.Logger, srv *http.Server, chanStopServer chan string, runs *scheduler.SafeMapRunInfo) error {
	chanOS := make(chan os.Signal, 1)
	signal.Notify(chanOS, os.Interrupt)
	defer signal.Stop(chanOS)
	select {
	case <-chanStopServer:
	case <-chanOS:
	}
	log.Info("Shutting down web server...")
	runs.CancelAll()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx) // waits for open connections until the deadline
}
