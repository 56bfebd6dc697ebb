// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GlassOnTin/sdrangel/internal/build"
	"github.com/GlassOnTin/sdrangel/internal/dsp/window"
	"github.com/GlassOnTin/sdrangel/internal/source"
)

// Options carries the command line selection back to main. A zero value in
// an override field means the flag was not given and the configuration file
// value stands.
type Options struct {
	ConfigPath string
	Command    string // one-off command ("devices", "windows"), empty to run

	// Overrides layered on top of the loaded configuration.
	FFTSize    int
	FFTWindow  string
	SourceType string
	LogLevel   string
}

// ParseArgs parses the command line and executes one-off commands.
func ParseArgs() (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Continuous spectral analysis of complex baseband streams",
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
			return nil
		},
	}

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = "devices"
			return source.ListDevices()
		},
	}
	rootCmd.AddCommand(devicesCmd)

	windowsCmd := &cobra.Command{
		Use:   "windows",
		Short: "List available window functions",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "windows"
			fmt.Printf("\nAvailable Window Functions\n\n")
			for _, f := range window.Functions() {
				fmt.Printf("  %s\n", f)
			}
			fmt.Println()
		},
	}
	rootCmd.AddCommand(windowsCmd)

	rootCmd.PersistentFlags().StringVarP(&options.ConfigPath, "config", "f", "",
		"Path to the YAML configuration file")
	rootCmd.PersistentFlags().IntVarP(&options.FFTSize, "fft-size", "n", 0,
		"Transform length, power of two between 64 and 4096")
	rootCmd.PersistentFlags().StringVarP(&options.FFTWindow, "window", "w", "",
		"Window function. Use 'windows' command to see available functions.")
	rootCmd.PersistentFlags().StringVarP(&options.SourceType, "source", "s", "",
		"Sample source: tone, file or soundcard")
	rootCmd.PersistentFlags().StringVarP(&options.LogLevel, "log-level", "l", "",
		"Logging level: debug, info, warn, error")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return options, nil
}
