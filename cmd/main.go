package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/safe-ro/safe-ro/internal/cache"
	"github.com/safe-ro/safe-ro/internal/history"
	"github.com/safe-ro/safe-ro/internal/log"
	"github.com/safe-ro/safe-ro/internal/notification"
	"github.com/safe-ro/safe-ro/internal/pipeline"
	"github.com/safe-ro/safe-ro/internal/properties"
	"github.com/safe-ro/safe-ro/internal/ui"
	"github.com/safe-ro/safe-ro/internal/weather"
)

func printBanner() {
	figure1 := figure.NewFigure("SAFE-RO", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	fmt.Println()
}

// recent archive days are revised as late station reports arrive
const weatherCacheAge = 24 * time.Hour

// app holds what every command shares once the configuration is loaded.
type app struct {
	cfg     properties.Config
	discord *notification.Discord
	history *history.Store
	runner  *pipeline.Runner
}

func newApp() (*app, error) {
	cfg, err := properties.Load()
	if err != nil {
		return nil, err
	}
	if err := log.Init(cfg.Debug); err != nil {
		return nil, err
	}
	godal.RegisterAll()

	a := &app{
		cfg:     cfg,
		discord: notification.NewDiscord(cfg.DiscordErrorURL, cfg.DiscordSuccessURL),
	}

	opts := []pipeline.Option{
		pipeline.WithCache(cache.NewFileCache[pipeline.Summary](cfg.CachePath(), "summaries")),
		pipeline.WithNotifier(a.discord, cfg.FloodAlertPercent, false),
		pipeline.WithWeather(weather.NewClient(
			weather.WithArchiveURL(cfg.WeatherURL),
			weather.WithCache(cache.NewFileCache[[]weather.Day](cfg.CachePath(), "weather", cache.WithMaxAge(weatherCacheAge))),
		), cfg.WeatherDays),
	}
	if store, err := history.New(cfg.HistoryPath()); err != nil {
		log.Warnf("run history disabled: %v", err)
	} else {
		a.history = store
		opts = append(opts, pipeline.WithRecorder(store))
	}
	a.runner = pipeline.NewRunner(opts...)
	return a, nil
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			log.Warnf("failed to close history: %v", err)
		}
	}
	log.Sync()
}

// notifyPanic reports a crash of the interactive CLI to the error webhook.
func (a *app) notifyPanic() {
	r := recover()
	if r == nil {
		return
	}
	pc, file, line, ok := runtime.Caller(3)
	location := "Unknown location"
	if ok {
		location = fmt.Sprintf("%s:%d in %s", file, line, runtime.FuncForPC(pc).Name())
	}

	fmt.Printf("\n%sPANIC: %v%s\n", ui.ColorRed, r, ui.ColorReset)
	fmt.Printf("%sLocation: %s%s\n", ui.ColorRed, location, ui.ColorReset)
	fmt.Printf("%sPlease check the input and try again.%s\n", ui.ColorRed, ui.ColorReset)

	msg := fmt.Sprintf("SAFE-RO CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, debug.Stack())
	if err := a.discord.SendError(context.Background(), msg); err != nil {
		fmt.Printf("%sFailed to send notification: %s%s\n", ui.ColorRed, err.Error(), ui.ColorReset)
	}
	os.Exit(1)
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "safe-ro",
		Short: "SAFE-RO computes vegetation, flood and fire products for Romania",
		Long: `SAFE-RO loads Sentinel-2 and Sentinel-1 bands, computes NDVI and
threshold flood masks, and filters NASA FIRMS fire hotspots.
Without a subcommand it starts the interactive menu.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.notifyPanic()
			printBanner()
			ui.NewMenu(cmd.InOrStdin(), cmd.OutOrStdout(), a.runner, a.cfg.ResultPath(), a.cfg.DownsampleFactor).
				Show(cmd.Context())
			return nil
		},
	}

	rootCmd.AddCommand(newNDVICmd(a))
	rootCmd.AddCommand(newFloodCmd(a))
	rootCmd.AddCommand(newFiresCmd(a))
	rootCmd.AddCommand(newPipelineCmd(a))
	rootCmd.AddCommand(newBatchCmd(a))
	rootCmd.AddCommand(newDownloadCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))
	return rootCmd
}

func main() {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", ui.ColorRed, err.Error(), ui.ColorReset)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = newRootCmd(a).ExecuteContext(ctx)
	stop()
	a.Close()
	if err != nil {
		os.Exit(1)
	}
}
