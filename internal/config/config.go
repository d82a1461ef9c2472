// SPDX-License-Identifier: MIT
// Package config loads player configuration from YAML with environment
// overrides. Defaults are chosen so the player runs with no config file
// at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"spectra/internal/analysis"
	"spectra/pkg/bitint"
)

// Hardware and processing limits.
const (
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer (power of 2)
	MaxFFTSize      = 32768  // Maximum FFT frame (power of 2)
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`     // Output device and analysis settings.
	Viz       VizConfig       `yaml:"viz"`       // Visualization frame settings.
	Transport TransportConfig `yaml:"transport"` // Frame transport settings (WebSocket, UDP).
	Cache     CacheConfig     `yaml:"cache"`     // Local persistence settings.
}

// AudioConfig holds settings related to audio output and analysis.
type AudioConfig struct {
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index for audio output (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Output sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Number of audio frames per device buffer (affects latency).
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	FFTSize         int     `yaml:"fft_size"`          // FFT frame length; power of 2. Snapshot length is fft_size/2+1.
	FFTWindow       string  `yaml:"fft_window"`        // Name of the window function for FFT analysis (e.g., "Hann", "Hamming").
}

// VizConfig holds settings for the visualization frame pipeline.
type VizConfig struct {
	BarCount      int           `yaml:"bar_count"`      // Number of bars per frame.
	Smoothing     float64       `yaml:"smoothing"`      // Exponential smoothing factor in [0,1]; 0 disables.
	FrameInterval time.Duration `yaml:"frame_interval"` // Interval between published frames.
	Layout        string        `yaml:"layout"`         // "bars" or "radial".
}

// TransportConfig holds settings for sending frames to external renderers.
type TransportConfig struct {
	WSEnabled       bool          `yaml:"ws_enabled"`        // Serve frames over WebSocket.
	WSAddress       string        `yaml:"ws_address"`        // Listen address for the WebSocket server.
	WSSendInterval  time.Duration `yaml:"ws_send_interval"`  // Minimum interval between broadcasts per client.
	UDPEnabled      bool          `yaml:"udp_enabled"`       // Send binary frames over UDP.
	UDPTargetAddr   string        `yaml:"udp_target_addr"`   // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
}

// CacheConfig holds local persistence settings.
type CacheConfig struct {
	Dir string `yaml:"dir"` // Directory for the cache database; empty selects the user cache dir.
}

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it searches default locations ("config.yaml"). If no file is
// found, it uses built-in defaults. After loading, it applies environment
// variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		candidates := []string{"config.yaml"}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			OutputDevice:    MinDeviceID,
			SampleRate:      44100,
			FramesPerBuffer: 1024,
			LowLatency:      false,
			FFTSize:         2048,
			FFTWindow:       "Hann",
		},
		Viz: VizConfig{
			BarCount:      64,
			Smoothing:     0.3,
			FrameInterval: 16 * time.Millisecond,
			Layout:        "bars",
		},
		Transport: TransportConfig{
			WSEnabled:      false,
			WSAddress:      "127.0.0.1:8080",
			WSSendInterval: 33 * time.Millisecond,
			UDPEnabled:     false,
			UDPTargetAddr:  "127.0.0.1:9090",
		},
		Cache: CacheConfig{Dir: ""},
	}
}

// CacheDir resolves the persistence directory, falling back to a "spectra"
// folder under the user cache dir when unset.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return ".spectra"
	}
	return filepath.Join(base, "spectra")
}

func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f outside [%d, %d]",
			c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.FramesPerBuffer < 1 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer %d outside [1, %d]",
			c.Audio.FramesPerBuffer, MaxBufferFrames)
	}
	if !bitint.IsPowerOfTwo(c.Audio.FFTSize) || c.Audio.FFTSize > MaxFFTSize {
		return fmt.Errorf("audio.fft_size must be a power of 2 up to %d, got %d",
			MaxFFTSize, c.Audio.FFTSize)
	}
	if _, err := analysis.ParseWindowFunc(c.Audio.FFTWindow); err != nil {
		return fmt.Errorf("audio.fft_window: %w", err)
	}
	if c.Viz.BarCount < 1 {
		return fmt.Errorf("viz.bar_count must be positive, got %d", c.Viz.BarCount)
	}
	if c.Viz.Smoothing < 0 || c.Viz.Smoothing > 1 {
		return fmt.Errorf("viz.smoothing %.2f outside [0, 1]", c.Viz.Smoothing)
	}
	if c.Viz.FrameInterval <= 0 {
		return fmt.Errorf("viz.frame_interval must be positive, got %s", c.Viz.FrameInterval)
	}
	if c.Viz.Layout != "bars" && c.Viz.Layout != "radial" {
		return fmt.Errorf("viz.layout must be \"bars\" or \"radial\", got %q", c.Viz.Layout)
	}
	if c.Transport.WSEnabled && c.Transport.WSAddress == "" {
		return fmt.Errorf("transport.ws_address must be set when WebSocket is enabled")
	}
	if c.Transport.UDPEnabled && c.Transport.UDPTargetAddr == "" {
		return fmt.Errorf("transport.udp_target_addr must be set when UDP is enabled")
	}
	return nil
}

// Environment overrides, applied after any file load. SPECTRA_* variables
// win over both defaults and file values.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("SPECTRA_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	if val, ok := os.LookupEnv("SPECTRA_OUTPUT_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Audio.OutputDevice = iVal
		}
	}
	if val, ok := os.LookupEnv("SPECTRA_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.WSEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("SPECTRA_WS_ADDRESS"); ok {
		cfg.Transport.WSAddress = val
	}
	if val, ok := os.LookupEnv("SPECTRA_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("SPECTRA_UDP_TARGET_ADDR"); ok {
		cfg.Transport.UDPTargetAddr = val
	}
	if val, ok := os.LookupEnv("SPECTRA_FRAME_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Viz.FrameInterval = dur
		}
	}
	if val, ok := os.LookupEnv("SPECTRA_CACHE_DIR"); ok {
		cfg.Cache.Dir = val
	}
}
