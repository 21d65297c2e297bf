package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
	"github.com/eleven-am/visitor-pulse/internal/dashboard"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "websocket endpoint")
	country := flag.String("country", "", "refresh the view with detailed stats for this country")
	page := flag.String("page", "", "refresh the view with detailed stats for this page")
	interval := flag.Duration("interval", 30*time.Second, "snapshot log interval")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("component", "watch")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var filter *analytics.Filter
	if *country != "" || *page != "" {
		filter = &analytics.Filter{Country: *country, Page: *page}
	}

	client := dashboard.NewClient(*url, dashboard.Options{
		Logger: logger,
		OnStateChange: func(s dashboard.State) {
			logger.Info("connection state changed", "state", s)
		},
		OnNotification: func(n dashboard.Notification) {
			level := slog.LevelInfo
			if n.Urgent {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, n.Title, "kind", n.Kind, "body", n.Body)
		},
	})

	client.Connect(ctx)
	defer client.Close()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping")
			return
		case <-ticker.C:
			if filter != nil {
				if err := client.RequestDetailedStats(filter); err != nil {
					logger.Warn("failed to request detailed stats", "error", err)
				}
			}
			v := client.Snapshot()
			logger.Info("snapshot",
				"state", client.State(),
				"active_visitors", v.Stats.TotalActive,
				"visitors_today", v.Stats.TotalToday,
				"dashboards", v.TotalDashboards,
				"events", len(v.Events),
				"sessions", len(v.Sessions),
				"alerts", len(v.Alerts),
			)
		}
	}
}
