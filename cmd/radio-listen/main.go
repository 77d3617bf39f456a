// ABOUTME: Entry point for the bridge listener
// ABOUTME: Finds a bridge over mDNS or connects directly and plays it locally
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resonate-radio/internal/app"
	"github.com/Resonate-Protocol/resonate-radio/pkg/audio/output"
)

var (
	serverURL = flag.String("url", "", "Bridge WebSocket URL, e.g. ws://host:8927/radio (skip mDNS)")
	name      = flag.String("name", "", "Listener friendly name (default: hostname-radio-listener)")
	pcmOnly   = flag.Bool("pcm", false, "Do not offer Opus")
	volume    = flag.Int("volume", 100, "Playback volume (0-100)")
	timeout   = flag.Duration("discover-timeout", 10*time.Second, "How long to search for a bridge")
	logFile   = flag.String("log-file", "radio-listener.log", "Log file path")
	debug     = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, f))

	listenerName := *name
	if listenerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		listenerName = fmt.Sprintf("%s-radio-listener", hostname)
	}

	codecs := []string{"opus", "pcm"}
	if *pcmOnly {
		codecs = []string{"pcm"}
	}

	out := output.NewOto()
	out.SetVolume(*volume)

	listener := app.NewListener(app.ListenerConfig{
		URL:              *serverURL,
		Name:             listenerName,
		Codecs:           codecs,
		Debug:            *debug,
		DiscoveryTimeout: *timeout,
	}, out)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Printf("Shutdown signal received")
		listener.Stop()
	}()

	log.Printf("Starting listener: %s", listenerName)
	if err := listener.Run(); err != nil {
		log.Fatalf("Listener error: %v", err)
	}

	log.Printf("Listener stopped after %d chunks", listener.Chunks())
}
