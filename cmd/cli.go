// SPDX-License-Identifier: MIT
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"spectra/internal/config"
	"spectra/pkg/build"
)

// Command names for one-off commands that skip the player entirely.
const (
	CommandDevices    = "devices"
	CommandCacheClear = "cache-clear"
)

// Options is the parsed command line: the files to queue, flag overrides
// for the config, and any one-off command.
type Options struct {
	ConfigPath string
	Command    string
	Files      []string

	DeviceID int
	BarCount int
	Layout   string
	Verbose  bool
	Headless bool

	deviceSet bool
	barsSet   bool
	layoutSet bool
}

// ParseArgs builds the cobra command tree, executes it against os.Args,
// and returns the collected options.
func ParseArgs() (*Options, error) {
	buildInfo := build.GetInfo()
	options := &Options{DeviceID: config.MinDeviceID}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name + " [files...]",
		Short:         "Terminal audio player with a live spectrum visualizer",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Files = args
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Explicit alias for the root behavior, so `spectra play a.mp3` and
	// `spectra a.mp3` both queue files.
	playCmd := &cobra.Command{
		Use:   "play [files...]",
		Short: "Queue files and start playback",
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Files = args
			return nil
		},
	}
	rootCmd.AddCommand(playCmd)

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio output devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandDevices
		},
	}
	rootCmd.AddCommand(devicesCmd)

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local cache",
	}
	cacheClearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached player and audio state",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandCacheClear
		},
	}
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)

	rootCmd.PersistentFlags().StringVarP(&options.ConfigPath, "config", "c", "",
		"Path to a YAML config file. Defaults to ./config.yaml when present.")
	rootCmd.PersistentFlags().IntVarP(&options.DeviceID, "device", "d", config.MinDeviceID,
		"Output device ID. Use the 'devices' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&options.BarCount, "bars", "b", 64,
		"Number of visualizer bars per frame")
	rootCmd.PersistentFlags().StringVarP(&options.Layout, "layout", "L", "bars",
		"Frame layout: bars or radial")
	rootCmd.PersistentFlags().BoolVar(&options.Headless, "headless", false,
		"Run without the terminal UI (frames go to configured transports only)")
	rootCmd.PersistentFlags().BoolVarP(&options.Verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	options.deviceSet = rootCmd.PersistentFlags().Changed("device")
	options.barsSet = rootCmd.PersistentFlags().Changed("bars")
	options.layoutSet = rootCmd.PersistentFlags().Changed("layout")

	return options, nil
}

// Apply overlays explicitly-set flags onto a loaded config. Flags win
// over both file values and environment overrides.
func (o *Options) Apply(cfg *config.Config) {
	if o.deviceSet {
		cfg.Audio.OutputDevice = o.DeviceID
	}
	if o.barsSet {
		cfg.Viz.BarCount = o.BarCount
	}
	if o.layoutSet {
		cfg.Viz.Layout = o.Layout
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
}
