package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/divedesk/divegate/identity"
	"github.com/divedesk/divegate/internal/config"
	"github.com/divedesk/divegate/internal/metrics"
	"github.com/divedesk/divegate/router"
	"github.com/divedesk/divegate/server"
	"github.com/divedesk/divegate/server/authflowrepo"
	"github.com/divedesk/divegate/server/loginsession"
	"github.com/divedesk/divegate/signin"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	identityClient, err := identity.NewHTTPClient(c.GetIdentityBaseURL())
	if err != nil {
		return fmt.Errorf("identity.NewHTTPClient: %w", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	resolver, err := router.New(identityClient,
		router.WithTimeout(c.GetResolveTimeout()),
		router.WithRecorder(collector),
	)
	if err != nil {
		return fmt.Errorf("router.New: %w", err)
	}

	provider, err := signin.NewOIDCProvider(c, c.GetBaseURL()+server.RouteCallback)
	if err != nil {
		return fmt.Errorf("signin.NewOIDCProvider: %w", err)
	}

	srv, err := server.New(c, resolver, provider,
		authflowrepo.NewInMemoryRepo(),
		loginsession.NewInMemoryRepo(),
		server.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
