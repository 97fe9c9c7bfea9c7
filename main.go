// Command damegame starts the Dame session server.
//
// It supports two modes:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from the environment (optionally via a .env file) and can be
// overridden with flags.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/damegame/api"
	"github.com/wricardo/mcp-training/damegame/game/config"
	"github.com/wricardo/mcp-training/damegame/game/engine"
	"github.com/wricardo/mcp-training/damegame/game/service"
	"github.com/wricardo/mcp-training/damegame/game/session"
	"github.com/wricardo/mcp-training/damegame/pkg/logger"
	"github.com/wricardo/mcp-training/damegame/transport/mcp"
	"github.com/wricardo/mcp-training/damegame/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Dame Game Server"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newCommand builds the CLI. Flags left unset keep the environment's value.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "damegame",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "HTTP server host (env HOST, default localhost)"},
			&cli.IntFlag{Name: "port", Usage: "HTTP server port (env PORT, default 5002)"},
			&cli.IntFlag{Name: "depth", Usage: "AI search depth (env SEARCH_DEPTH, default 5)"},
			&cli.DurationFlag{Name: "worker-timeout", Usage: "Limit for a single AI search (env WORKER_TIMEOUT, default 2m)"},
			&cli.IntFlag{Name: "queue-limit", Usage: "Undelivered boards kept per session, at least 1; the oldest is dropped when full (env QUEUE_LIMIT, default 256)"},
			&cli.IntFlag{Name: "max-plies", Usage: "Plies before a game is drawn, 0 for no limit (env MAX_PLIES, default 200)"},
			&cli.StringFlag{Name: "load", Usage: "Snapshot file consumed by the next new game (env LOAD_FILE)"},
			&cli.StringFlag{Name: "static-dir", Usage: "Directory served at / (env STATIC_DIR, default ./static)"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging, including board snapshots (env DEBUG)"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel (env NGROK_ENABLED)"},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (env NGROK_AUTHTOKEN)"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (env NGROK_DOMAIN)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServe(ctx, cmd)
		},
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runServe,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioMCP,
			},
		},
	}
}

// loadConfig reads the environment and applies any flags the user set.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("depth") {
		cfg.SearchDepth = int(cmd.Int("depth"))
	}
	if cmd.IsSet("worker-timeout") {
		cfg.WorkerTimeout = cmd.Duration("worker-timeout")
	}
	if cmd.IsSet("queue-limit") {
		cfg.QueueLimit = int(cmd.Int("queue-limit"))
	}
	if cmd.IsSet("max-plies") {
		cfg.MaxPlies = int(cmd.Int("max-plies"))
	}
	if cmd.IsSet("load") {
		cfg.LoadFile = cmd.String("load")
	}
	if cmd.IsSet("static-dir") {
		cfg.StaticDir = cmd.String("static-dir")
	}
	if cmd.IsSet("debug") {
		cfg.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("ngrok") {
		cfg.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		cfg.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Ngrok.Domain = cmd.String("ngrok-domain")
	}
	if cfg.Ngrok.AuthToken == "" {
		cfg.Ngrok.AuthToken = os.Getenv("NGROK_AUTH_TOKEN") // Also support underscore version
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// services holds everything a running server needs.
type services struct {
	manager *session.Manager
	game    service.GameService
	hub     *websocket.Hub
}

// initializeServices wires the engine, session manager, WebSocket hub and
// game service, and fills the resume slot when a snapshot file is set.
func initializeServices(cfg *config.Config, log *logger.Logger) (*services, error) {
	hub := websocket.NewHub(log)

	manager := session.NewManager(engine.NewDame(cfg.MaxPlies), session.Options{
		Depth:         cfg.SearchDepth,
		WorkerTimeout: cfg.WorkerTimeout,
		QueueLimit:    cfg.QueueLimit,
		Notifier:      hub,
		Logger:        log,
	})

	if cfg.LoadFile != "" {
		snap, err := session.LoadSnapshot(cfg.LoadFile)
		if err == nil {
			err = manager.Resume(snap)
		}
		if err != nil {
			manager.Close()
			return nil, fmt.Errorf("failed to load snapshot %s: %w", cfg.LoadFile, err)
		}
		log.Info("Loaded snapshot", logger.F("file", cfg.LoadFile), logger.F("uid", snap.UID))
	}

	return &services{
		manager: manager,
		game:    service.NewGameService(manager),
		hub:     hub,
	}, nil
}

// newHandler combines the API server and the /mcp endpoint behind the
// request middleware.
func newHandler(apiServer http.Handler, mcpClient *mcp.Client) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/mcp", mcpHandler(mcpClient))
	r.Handle("/*", apiServer)
	return r
}

// mcpHandler serves MCP JSON-RPC messages over plain HTTP POST.
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runServe starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Debug)
	log.Info("Starting server", logger.F("app", AppName), logger.F("version", Version))

	svc, err := initializeServices(cfg, log)
	if err != nil {
		return err
	}
	defer svc.manager.Close()

	// Setup graceful shutdown context
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go svc.hub.Run(ctx)

	addr := cfg.Address()
	apiServer := api.NewServer(svc.game, svc.hub, cfg.StaticDir, log)
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s%s", addr, api.RESTPrefix))
	handler := newHandler(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Handle shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info("HTTP server listening", logger.F("addr", addr))
		log.Info("REST API", logger.F("url", fmt.Sprintf("http://%s%s", addr, api.RESTPrefix)))
		log.Info("WebSocket", logger.F("url", fmt.Sprintf("ws://%s/ws?session=<uid>", addr)))
		log.Info("MCP endpoint", logger.F("url", fmt.Sprintf("http://%s/mcp", addr)))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if cfg.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg.Ngrok, handler, log)
		}()
	}

	// Wait for shutdown signal
	select {
	case sig := <-stop:
		log.Info("Shutting down", logger.F("signal", sig.String()))
	case err = <-serveErr:
	}
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("HTTP server shutdown error", logger.Err(shutdownErr))
	}

	wg.Wait()
	log.Info("Server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
func runNgrok(ctx context.Context, cfg config.NgrokConfig, handler http.Handler, log *logger.Logger) {
	if cfg.AuthToken == "" {
		log.Error("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Info("Starting ngrok tunnel")

	// Configure ngrok endpoint
	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		log.Info("Using custom ngrok domain", logger.F("domain", cfg.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		log.Error("Failed to start ngrok tunnel", logger.Err(err))
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Error("Failed to close ngrok tunnel", logger.Err(err))
		}
	}()

	ngrokURL := tun.URL()
	log.Info("Ngrok tunnel established", logger.F("url", ngrokURL))
	log.Info("REST API (ngrok)", logger.F("url", ngrokURL+api.RESTPrefix))
	log.Info("MCP endpoint (ngrok)", logger.F("url", ngrokURL+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error("Ngrok server error", logger.Err(err))
	}
	log.Info("Ngrok tunnel closed")
}

// runStdioMCP runs an MCP stdio server. It reuses an API already listening
// on the configured address; otherwise it starts an internal HTTP API bound
// to a random loopback port. Logs go to stderr since stdout carries MCP.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.Debug)

	externalURL := fmt.Sprintf("http://%s", cfg.Address())
	baseURL := externalURL + api.RESTPrefix
	log.Info("Checking for external API server", logger.F("url", externalURL))

	if !apiAvailable(externalURL) {
		log.Info("No external API server found, starting internal HTTP server")

		svc, err := initializeServices(cfg, log)
		if err != nil {
			return err
		}
		defer svc.manager.Close()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go svc.hub.Run(ctx)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		httpServer := &http.Server{
			Handler: api.NewServer(svc.game, svc.hub, "", log),
		}
		defer httpServer.Close()

		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Internal HTTP server error", logger.Err(err))
			}
		}()

		baseURL = fmt.Sprintf("http://%s%s", listener.Addr().String(), api.RESTPrefix)
		log.Info("Internal HTTP server started", logger.F("url", baseURL))
	} else {
		log.Info("External API server found, using it for MCP", logger.F("url", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiAvailable reports whether a healthy API answers at baseURL.
func apiAvailable(baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
