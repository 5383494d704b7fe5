package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"igarchive/pkg/archiver"
	"igarchive/pkg/auth"
	"igarchive/pkg/browser"
	"igarchive/pkg/capture"
	"igarchive/pkg/config"
	"igarchive/pkg/errors"
	"igarchive/pkg/instagram"
	"igarchive/pkg/logger"
	"igarchive/pkg/ratelimit"
	"igarchive/pkg/storage"
	"igarchive/pkg/ui"
)

var pause bool

// closeTimeout bounds the logout navigation on shutdown
const closeTimeout = 30 * time.Second

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive <target>...",
	Short: "Archive one or more Instagram targets",
	Long: `Archive profiles, highlights, stories and posts.

A profile archives its profile record, every highlight and (unless
--stories=false) the current stories. With --update the highlight walk
stops at the first highlight that has nothing new.

If the browser is not logged in you will be asked for credentials. Stored
credentials are used first ('igarchive auth login' saves them).`,
	Example: `  # Archive a profile into ./archive
  igarchive archive @alice

  # Only fetch what is new, into a specific directory
  igarchive archive alice --update -o ~/instagram

  # Single post and a highlight, with a visible browser
  igarchive archive https://www.instagram.com/p/ABC123/ highlight:17890 --headless=false

  # Reuse a Chrome profile that is already logged in
  igarchive archive @alice -d ~/.config/igarchive/chrome`,
	Args: cobra.ArbitraryArgs,
	Run:  runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	f := archiveCmd.Flags()
	f.StringP("output", "o", "", "archive root directory (default ./archive)")
	f.StringP("user-data", "d", "", "Chrome user data directory, keeps the login between runs")
	f.Bool("update", false, "stop at the first highlight with nothing new")
	f.Bool("highlights", true, "archive a profile's highlights")
	f.Bool("stories", true, "archive a profile's current stories")
	f.Bool("incognito", true, "resolve standalone posts in an isolated browser context first")
	f.Bool("headless", true, "run Chrome without a window")
	f.BoolP("logout", "l", false, "log out of Instagram before exiting")
	f.BoolP("debug", "v", false, "log every browser request and response")
	f.BoolVar(&pause, "pause", false, "wait for Enter before closing the browser")
}

// changedFlags collects the flags set on the command line, keyed by name
func changedFlags(fs *pflag.FlagSet) map[string]interface{} {
	flags := make(map[string]interface{})
	fs.Visit(func(f *pflag.Flag) {
		switch f.Value.Type() {
		case "bool":
			v, _ := fs.GetBool(f.Name)
			flags[f.Name] = v
		case "string":
			v, _ := fs.GetString(f.Name)
			flags[f.Name] = v
		}
	})
	return flags
}

func runArchive(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		ui.PrintError("No targets given")
		cmd.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(configFile, changedFlags(cmd.Flags()))
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logging", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := archive(ctx, cfg, args, log)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeAuth) {
			ui.PrintError("Login failed", err.Error())
		} else {
			ui.PrintError("Archive run failed", err.Error())
		}
		stop()
		os.Exit(1)
	}

	ui.PrintSummary(ui.Summary{
		RunID:    res.RunID,
		Root:     cfg.Output.BaseDirectory,
		Targets:  res.Targets,
		Failed:   res.Failed,
		NewItems: res.NewItems,
	})
}

// archive runs one session over refs. The browser is always closed before
// it returns, also when login fails.
func archive(ctx context.Context, cfg *config.Config, refs []string, log logger.Logger) (archiver.Result, error) {
	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return archiver.Result{}, errors.Wrap(errors.ErrorTypeFilesystem, err, "failed to prepare archive root")
	}

	cache := capture.NewCache(store.Root(), store, log)
	listener := capture.NewListener(cache, log)

	b, err := browser.Launch(ctx, cfg.Browser, listener, cfg.Logging.DebugRequests, log)
	if err != nil {
		return archiver.Result{}, err
	}
	defer func() {
		if pause {
			waitForEnter()
		}
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		b.Close(closeCtx)
	}()

	log.Info("Navigating to Instagram")
	if err := b.Primary().Navigate(ctx, instagram.BaseURL); err != nil {
		return archiver.Result{}, errors.Wrap(errors.ErrorTypeBrowser, err, "failed to open Instagram")
	}
	if err := browser.LoginIfNeeded(ctx, b.Primary(), credentialProvider(cfg, log)); err != nil {
		return archiver.Result{}, err
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.RequestsPerMinute > 0 {
		limiter = ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)
	}
	client := instagram.NewClient(cfg.Download.Timeout, log)
	fetcher := archiver.NewAssetFetcher(client, limiter, store, log)

	a := archiver.New(b.Primary(), cache, store, fetcher, archiver.Options{
		Highlights: cfg.Archive.Highlights,
		Stories:    cfg.Archive.Stories,
		Update:     cfg.Archive.Update,
	}, log)
	if iso := b.Isolated(); iso != nil {
		a.WithIsolated(iso)
	}

	return a.Run(ctx, refs)
}

func credentialProvider(cfg *config.Config, log logger.Logger) auth.Provider {
	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("Credential stores unavailable, falling back to environment")
		manager = auth.NewManagerWithStores(auth.NewEnvironmentStore())
	}
	return auth.NewResolver(manager, auth.NewTerminalPrompter(), cfg.Auth.Username, cfg.Auth.Remember)
}

func waitForEnter() {
	fmt.Fprint(os.Stderr, "Press Enter to close the browser...")
	bufio.NewReader(os.Stdin).ReadString('\n')
}
