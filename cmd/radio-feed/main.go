// ABOUTME: Entry point for the sample feeder
// ABOUTME: Streams a test tone or an audio file to the bridge as float32 UDP datagrams
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/resonate-radio/internal/feed"
)

var (
	addr      = flag.String("addr", feed.DefaultSenderConfig().Address, "Bridge ingest address")
	audioFile = flag.String("audio", "", "Audio file to stream (MP3, FLAC, WAV). If not specified, plays test tone")
	toneHz    = flag.Float64("tone", feed.DefaultToneFrequency, "Test tone frequency in Hz")
	amplitude = flag.Float64("amplitude", 0.5, "Test tone amplitude (0-1)")
	rate      = flag.Int("rate", 48000, "Sample rate the bridge expects")
	samples   = flag.Int("samples", feed.DefaultDatagramSamples, "Samples per datagram")
	loop      = flag.Bool("loop", false, "Restart the audio file when it ends")
	burst     = flag.Bool("burst", false, "Send as fast as possible instead of in real time")
)

func main() {
	flag.Parse()

	var src feed.Source
	if *audioFile != "" {
		s, err := feed.Open(*audioFile, *loop)
		if err != nil {
			log.Fatalf("Failed to open audio: %v", err)
		}
		src = s
	} else {
		src = feed.NewToneSource(*toneHz, *amplitude, *rate)
	}
	defer src.Close()

	sender, err := feed.NewSender(feed.SenderConfig{
		Address:         *addr,
		SampleRate:      *rate,
		DatagramSamples: *samples,
		Burst:           *burst,
	})
	if err != nil {
		log.Fatalf("Failed to create sender: %v", err)
	}
	defer sender.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sender.Run(ctx, src); err != nil {
		log.Fatalf("Feed error: %v", err)
	}

	log.Printf("Sent %d samples in %d datagrams", sender.Samples(), sender.Datagrams())
}
