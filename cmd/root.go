// Package cmd assembles the birdmap command line interface
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/birdmap-go/cmd/observe"
	"github.com/tphakala/birdmap-go/cmd/watch"
	"github.com/tphakala/birdmap-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "birdmap",
		Short: "BirdMap-Go CLI",
		Long:  "Query geotagged bird observations around a map viewport, grouped into per-location species clusters with photo enrichment.",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		observe.Command(settings),
		watch.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.EBird.APIKey, "apikey", viper.GetString("ebird.apikey"), "eBird API key")
	rootCmd.PersistentFlags().Float64Var(&settings.Pipeline.MinMoveKm, "minmove", viper.GetFloat64("pipeline.minmovekm"), "Minimum viewport movement in km before a re-query")
}
