// Command oscbridge runs a bridge Engine from a simulated realtime host and
// sends its telemetry as OSC over UDP.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chabad360/osc-bridge/bridge"
	"github.com/chabad360/osc-bridge/config"
)

func main() {
	configPath := flag.String("config", "", "Path to settings file (defaults when empty)")
	savePath := flag.String("save", "", "Write the effective settings to this file on exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	jsonLogs := flag.Bool("json", false, "Log as JSON")
	rate := flag.Float64("rate", 48000, "Host sample rate in Hz")
	block := flag.Int("block", 512, "Frames per processing block")
	tone := flag.Float64("tone", 440, "Test tone frequency in Hz")
	bpm := flag.Float64("bpm", 120, "Note toggles per minute")
	lfo := flag.Float64("lfo", 0.25, "Parameter automation rate in Hz")
	duration := flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	flag.Parse()

	period, err := blockPeriod(*rate, *block, *bpm)
	if err != nil {
		fmt.Fprintln(os.Stderr, "oscbridge:", err)
		flag.Usage()
		os.Exit(2)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if *jsonLogs {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	settings := config.Default()
	if *configPath != "" {
		s, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load settings", "config", *configPath, "error", err)
			os.Exit(1)
		}
		settings = *s
	}

	engine, err := bridge.NewEngine(settings)
	if err != nil {
		slog.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	slog.Info("starting oscbridge",
		"instance", engine.ID(),
		"destination", settings.ServerAddress, "port", settings.ServerPort,
		"base", settings.AddressBase, "rate", *rate, "block", *block)

	if !engine.Initialize(bridge.BufferConfig{
		SampleRate:   *rate,
		MaxBlockSize: *block,
		Channels:     2,
		Mode:         bridge.ModeRealtime,
	}) {
		slog.Error("failed to initialize engine", "error", engine.Err())
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	h := newHost(*rate, *block, *tone, *bpm, *lfo)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	stats := time.NewTicker(5 * time.Second)
	defer stats.Stop()

loop:
	for {
		select {
		case <-ticker.C:
			h.automate(engine.Params())
			audio, events := h.next()
			engine.Process(audio, events)
		case <-stats.C:
			logStats(engine)
		case sig := <-sigChan:
			slog.Info("received shutdown signal", "signal", sig)
			break loop
		case <-deadline:
			break loop
		}
	}

	engine.Deactivate()
	if err := engine.Close(); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
	logStats(engine)

	if *savePath != "" {
		s := engine.Settings()
		if err := config.Save(*savePath, &s); err != nil {
			slog.Error("failed to save settings", "path", *savePath, "error", err)
			os.Exit(1)
		}
	}

	slog.Info("oscbridge stopped")
}

func logStats(e *bridge.Engine) {
	s := e.Stats()
	slog.Info("stats",
		"connected", e.Connected(),
		"enqueued", s.Enqueued, "sent", s.Sent, "dropped", s.Dropped,
		"discarded", s.Discarded, "send_failures", s.SendFailures,
		"partial_sends", s.PartialSends, "zero_suppressed", s.ZeroSuppressed)
}
