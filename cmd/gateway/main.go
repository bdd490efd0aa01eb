package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gideonheart/voicegateway/internal/bootconfig"
	"github.com/gideonheart/voicegateway/internal/configstore"
	"github.com/gideonheart/voicegateway/internal/gatewayclient"
	"github.com/gideonheart/voicegateway/internal/httpapi"
	"github.com/gideonheart/voicegateway/internal/logging"
	"github.com/gideonheart/voicegateway/internal/observability"
	"github.com/gideonheart/voicegateway/internal/rebuild"
	"github.com/gideonheart/voicegateway/internal/runtime"
	"github.com/gideonheart/voicegateway/internal/turnlog"
)

func main() {
	cfg, err := bootconfig.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	pretty := os.Getenv("LOG_PRETTY") == "true"
	logger := logging.New(pretty)

	metrics := observability.New(envOrDefault("METRICS_NAMESPACE", "voicegateway"))

	ctx := context.Background()
	turnAudit, err := turnlog.NewSink(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("turn audit sink init failed: %v", err)
	}

	store := configstore.New(cfg)
	bundle := runtime.New()
	for id, provider := range rebuild.BuildInitialProviders(cfg) {
		bundle.SetProvider(id, provider)
	}
	bundle.SetSessionClient(gatewayclient.FromConfig(cfg, logger))

	rebuild.RegisterSTTRebuilder(store, bundle, logger)
	rebuild.RegisterSessionClientRebuilder(store, bundle, logger)

	trustProxyHeaders := os.Getenv("TRUST_PROXY_HEADERS") == "true"
	readiness := httpapi.NewReadinessGate()
	api := httpapi.New(store, bundle, readiness, metrics, turnAudit, logger, trustProxyHeaders)

	stopPrune := make(chan struct{})
	go api.Limiter().RunPruneLoop(stopPrune)

	addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: api.Router(),
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("listen error: %v", err)
	}
	go func() {
		log.Printf("server listening on %s", addr)
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve error: %v", err)
		}
	}()

	// Readiness opens only once the listener above is bound; a
	// request racing the open sees the gate closed
	// and gets 503 rather than a connection refused, matching spec's
	// startup-then-ready ordering.
	readiness.Open()
	log.Printf("readiness gate open")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	readiness.Close()
	close(stopPrune)
	if client := bundle.SessionClient(); client != nil {
		client.Disconnect()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}
	_ = turnAudit.Close(shutdownCtx)

	log.Printf("shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
