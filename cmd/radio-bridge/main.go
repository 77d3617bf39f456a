// ABOUTME: Entry point for the FM radio bridge
// ABOUTME: Loads config, sets up logging, and runs the bridge until interrupted
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/resonate-radio/internal/app"
	"github.com/Resonate-Protocol/resonate-radio/internal/config"
	"github.com/Resonate-Protocol/resonate-radio/internal/version"
)

var (
	configFile = flag.String("config", "", "YAML config file (defaults are used when empty)")
	port       = flag.Int("port", 0, "Listener server port (overrides config)")
	name       = flag.String("name", "", "Bridge friendly name (overrides config)")
	codec      = flag.String("codec", "", "Preferred listener codec: pcm or opus (overrides config)")
	ingestPort = flag.Int("ingest-port", 0, "UDP port for float32 samples (overrides config)")
	logFile    = flag.String("log-file", "", "Log file path (overrides config)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	autoStart  = flag.Bool("start", false, "Start a session immediately")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	useTUI := !*noTUI

	f, err := os.OpenFile(cfg.Logging.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s: %s on port %d", version.String(), cfg.Server.Name, cfg.Server.Port)
	log.Printf("Ingest on %s:%d, control to %s", cfg.Ingest.BindAddress, cfg.Ingest.Port, cfg.ControlAddress())
	if cfg.Server.Debug {
		log.Printf("Debug logging enabled")
	}
	log.Printf("Logging to: %s", cfg.Logging.File)

	bridge, err := app.NewBridge(cfg, app.BridgeOptions{
		UseTUI:    useTUI,
		AutoStart: *autoStart,
	})
	if err != nil {
		log.Fatalf("Failed to create bridge: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		bridge.Stop()
	}()

	if err := bridge.Run(); err != nil {
		log.Fatalf("Bridge error: %v", err)
	}

	log.Printf("Bridge stopped")
}

// applyFlags overrides config values with explicitly set flags
func applyFlags(cfg *config.Config) {
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *name != "" {
		cfg.Server.Name = *name
	}
	if *codec != "" {
		cfg.Server.Codec = *codec
	}
	if *ingestPort != 0 {
		cfg.Ingest.Port = *ingestPort
	}
	if *logFile != "" {
		cfg.Logging.File = *logFile
	}
	if *debug {
		cfg.Server.Debug = true
	}
	if *noMDNS {
		cfg.Server.EnableMDNS = false
	}
}
