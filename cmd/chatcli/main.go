package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/handlers"
	"github.com/smobile/chatclient/internal/api"
	"github.com/smobile/chatclient/internal/client"
	"github.com/smobile/chatclient/internal/config"
	"github.com/smobile/chatclient/internal/logger"
	"github.com/smobile/chatclient/internal/stats"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "base URL of the marketplace backend")
	flag.IntVar(&cfg.UserId, "user-id", cfg.UserId, "authenticated user id")
	flag.StringVar(&cfg.Token, "token", cfg.Token, "session token")
	flag.IntVar(&cfg.HistoryLimit, "history-limit", cfg.HistoryLimit, "messages per history page")
	flag.BoolVar(&cfg.Reconnect, "reconnect", cfg.Reconnect, "redial with backoff after a dropped connection")
	flag.StringVar(&cfg.DebugAddr, "debug-addr", cfg.DebugAddr, "address for the debug stats endpoint")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	flag.BoolVar(&cfg.JSONLogs, "json-logs", cfg.JSONLogs, "log JSON instead of text")
	flag.Parse()

	log := logger.New(logger.Config{Service: "chatcli", Debug: cfg.Debug, JSON: cfg.JSONLogs})

	if err := cfg.Validate(); err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}

	st := stats.NewStatsUpdater()
	st.Run()
	defer st.Stop()

	if cfg.DebugAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /debug/vars", st.Handler())
		go func() {
			log.Info("debug endpoint listening", "addr", cfg.DebugAddr)
			if err := http.ListenAndServe(cfg.DebugAddr, handlers.LoggingHandler(os.Stderr, mux)); err != nil {
				log.Error("debug server", "error", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	apiClient := api.NewChatClient(cfg.ServerURL, cfg.Token, log)
	conn := client.NewConn(cfg.WSURL(), log, st)

	obs := newUIObserver()
	session := client.NewSession(log, apiClient, conn, st, obs, client.SessionConfig{
		HistoryLimit: cfg.HistoryLimit,
		Reconnect:    cfg.Reconnect,
		MaxRedials:   cfg.MaxRedials,
	})

	if err := session.Start(ctx); err != nil {
		log.Warn("starting offline", "error", err)
	}
	defer session.Stop()

	p := tea.NewProgram(newModel(session), tea.WithAltScreen(), tea.WithContext(ctx))
	obs.attach(p)

	if _, err := p.Run(); err != nil {
		log.Error("ui", "error", err)
		os.Exit(1)
	}
}
