// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"spectra/cmd"
	"spectra/internal/analysis"
	"spectra/internal/cache"
	"spectra/internal/config"
	"spectra/internal/library"
	"spectra/internal/log"
	"spectra/internal/media"
	"spectra/internal/player"
	"spectra/internal/playlist"
	"spectra/internal/spectrum"
	"spectra/internal/transport"
	"spectra/internal/tui"
	"spectra/internal/viz"
	"spectra/pkg/build"
)

// main is the entry point for the player.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Initialize PortAudio
//   - Execute one-off commands if requested
//   - Validate and queue the requested files
//
// 2. Concurrent Phase (Hot Path):
//   - Open the output device and start playback
//   - Run the frame publisher against the configured transports
//   - Run the terminal UI (or block headless)
//
// 3. Shutdown Phase (Cold Path):
//   - Persist the session
//   - Stop the publisher and release the player
//   - Clean up device and cache resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	build.Initialize()

	opts, err := cmd.ParseArgs()
	if err != nil {
		log.Fatalf("%v", err)
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	opts.Apply(cfg)

	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}

	if opts.Command == cmd.CommandCacheClear {
		if err := clearCache(cfg); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if err := media.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}
	defer media.Terminate()

	if opts.Command == cmd.CommandDevices {
		if err := listDevices(); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	store, err := cache.Open(cfg.CacheDir())
	if err != nil {
		log.Warnf("cache unavailable, continuing without persistence: %v", err)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	list := playlist.New()
	queueFiles(list, opts.Files)

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	sink, err := media.NewSink(cfg.Audio.OutputDevice, cfg.Audio.SampleRate,
		cfg.Audio.FramesPerBuffer, cfg.Audio.LowLatency)
	if err != nil {
		log.Fatalf("failed to open output device: %v", err)
	}
	defer sink.Close()

	window, _ := analysis.ParseWindowFunc(cfg.Audio.FFTWindow)
	sampler := spectrum.NewSampler(nil, cfg.Viz.BarCount, cfg.Viz.Smoothing)

	p := player.New(sink, list, sampler, store, player.Options{
		FFTSize: cfg.Audio.FFTSize,
		Window:  window,
	})
	p.RestoreSession()

	frameSink, tr := buildTransports(cfg, opts.Headless)

	layout := viz.LayoutBars
	if cfg.Viz.Layout == "radial" {
		layout = viz.LayoutRadial
	}
	pub := viz.NewPublisher(sampler, tr, cfg.Viz.FrameInterval, layout, p.Playing)
	p.SetPublisher(pub)

	if track, ok := list.Current(); ok {
		if err := p.Load(track); err != nil {
			log.Errorf("%v", err)
		} else if err := p.Play(); err != nil {
			log.Errorf("%v", err)
		}
	}

	if opts.Headless {
		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		log.Infof("running headless; Ctrl-C to exit")
		<-done
	} else {
		if err := tui.Run(p, list, frameSink.Frames()); err != nil {
			log.Errorf("UI error: %v", err)
		}
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	p.SaveSession()
	p.Close()
	if err := pub.Close(); err != nil {
		log.Errorf("failed to close transports: %v", err)
	}
}

// queueFiles validates each requested file against the command line entry
// point and adds the survivors to the playlist. Bad files are skipped, not
// fatal.
func queueFiles(list *playlist.Playlist, files []string) {
	entry := library.PickerDefaults()
	for _, path := range files {
		track, err := entry.Validate(path)
		if err != nil {
			log.Warnf("skipping %s: %v", path, err)
			continue
		}
		if err := library.ProbeWAV(&track); err != nil {
			log.Debugf("probe %s: %v", path, err)
		}
		list.Add(track)
	}
}

// buildTransports assembles the frame fan-out: the UI sink (unless
// headless) plus any transports enabled in the configuration.
func buildTransports(cfg *config.Config, headless bool) (*tui.FrameSink, transport.Transport) {
	var outputs []transport.Transport

	frameSink := tui.NewFrameSink(4)
	if !headless {
		outputs = append(outputs, frameSink)
	}

	if cfg.Transport.WSEnabled {
		outputs = append(outputs, transport.NewWebSocketTransport(
			cfg.Transport.WSAddress, cfg.Transport.WSSendInterval))
	}
	if cfg.Transport.UDPEnabled {
		udp, err := transport.NewUDPTransport(cfg.Transport.UDPTargetAddr)
		if err != nil {
			log.Errorf("UDP transport disabled: %v", err)
		} else {
			outputs = append(outputs, udp)
		}
	}

	if len(outputs) == 0 {
		return frameSink, nil // publisher falls back to the logging transport
	}
	return frameSink, transport.Multi(outputs...)
}

func listDevices() error {
	devices, err := media.OutputDevices()
	if err != nil {
		return err
	}

	fmt.Printf("\nAvailable Output Devices\n\n")
	for _, d := range devices {
		fmt.Printf("[%d] %s\n", d.ID, d.Name)
		fmt.Printf("    Output channels: %d\n", d.MaxOutputChannels)
		fmt.Printf("    Default sample rate: %.0f Hz\n\n", d.DefaultSampleRate)
	}
	return nil
}

func clearCache(cfg *config.Config) error {
	store, err := cache.Open(cfg.CacheDir())
	if err != nil {
		return err
	}
	defer store.Close()

	var total int64
	for _, prefix := range []string{cache.PrefixAudio, cache.PrefixPlayer} {
		n, err := store.ClearPrefix(prefix)
		if err != nil {
			return err
		}
		total += n
	}
	fmt.Printf("Cleared %d cached entries.\n", total)
	return nil
}
