// Command uploader is the CLI entrypoint: publish a .3b bundle archive to
// the Service, either once for a given archive path or continuously by
// watching a drop directory, with an optional local status server for
// observing progress.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/Kavex/Third3D-uploader/internal/bundlearchive"
	"github.com/Kavex/Third3D-uploader/internal/config"
	"github.com/Kavex/Third3D-uploader/internal/credstore"
	"github.com/Kavex/Third3D-uploader/internal/historydb"
	"github.com/Kavex/Third3D-uploader/internal/logging"
	"github.com/Kavex/Third3D-uploader/internal/orchestrator"
	"github.com/Kavex/Third3D-uploader/internal/serviceclient"
	"github.com/Kavex/Third3D-uploader/internal/statusserver"
	"github.com/Kavex/Third3D-uploader/internal/upload"
	"github.com/Kavex/Third3D-uploader/internal/watch"
)

func main() {
	configPath := flag.String("config", "", "directory holding config.yaml (optional; env vars and defaults apply otherwise)")
	archivePath := flag.String("archive", "", "path to a .3b bundle archive to publish once and exit")
	username := flag.String("user", "", "VRChat username (defaults to the last signed-in account)")
	showHistory := flag.Int("history", 0, "print the N most recent publications from the history ledger and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, Service: "uploader"})
	l := logging.L()

	if *showHistory > 0 {
		printHistory(cfg, *showHistory, l)
		return
	}

	store, err := credstore.New()
	if err != nil {
		l.Fatal().Err(err).Msg("uploader: open credential store")
	}

	client := serviceclient.New(serviceclient.Config{
		BaseURL:        cfg.Service.BaseURL,
		ContactEmail:   cfg.Service.ContactEmail,
		AppVersion:     cfg.Service.AppVersion,
		RequestTimeout: cfg.Service.RequestTimeout,
	})

	driver := upload.NewDriver(&http.Client{Timeout: cfg.Service.RequestTimeout})
	userAgent := fmt.Sprintf("Third3D Uploader/%s %s", cfg.Service.AppVersion, cfg.Service.ContactEmail)

	orch := orchestrator.New(orchestrator.Config{
		Client:          client,
		Driver:          driver,
		UserAgent:       userAgent,
		PartConcurrency: cfg.Upload.Workers,
	})

	var history *historydb.DB
	if cfg.History.Enabled {
		history, err = historydb.Open(cfg.History.DBPath)
		if err != nil {
			l.Fatal().Err(err).Msg("uploader: open publication history")
		}
		defer history.Close()
	}

	var status *statusserver.Server
	var httpServer *http.Server
	if cfg.StatusHTTP.Enabled {
		status = statusserver.New()
		gin.SetMode(gin.ReleaseMode)
		router := gin.New()
		router.Use(gin.Recovery())
		status.RegisterRoutes(router)
		httpServer = &http.Server{
			Addr:         cfg.StatusHTTP.Addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			l.Info().Str("addr", cfg.StatusHTTP.Addr).Msg("uploader: status server listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				l.Error().Err(err).Msg("uploader: status server error")
			}
		}()
	}

	cookies, user, err := signIn(context.Background(), client, store, *username, l)
	if err != nil {
		l.Fatal().Err(err).Msg("uploader: sign in")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publish := func(path string) {
		runPublication(ctx, orch, status, history, cookies, user, path, l)
	}

	var watcher *watch.Watcher
	if cfg.Watch.Enabled {
		watcher, err = watch.Start(ctx, cfg.Watch.Directory, publish)
		if err != nil {
			l.Fatal().Err(err).Msg("uploader: start directory watch")
		}
		defer watcher.Stop()
		l.Info().Str("dir", cfg.Watch.Directory).Msg("uploader: watching for dropped archives")
	}

	if *archivePath != "" {
		publish(*archivePath)
		if !cfg.Watch.Enabled && !cfg.StatusHTTP.Enabled {
			return
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("uploader: shutting down")
	cancel()

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			l.Error().Err(err).Msg("uploader: status server forced shutdown")
		}
	}
}

// signIn resolves a session either from the credential store or by
// walking the console through the Service's basic-auth plus optional
// 2FA challenge.
func signIn(ctx context.Context, client *serviceclient.Client, store *credstore.Store, username string, l zerolog.Logger) (serviceclient.Cookies, string, error) {
	if username == "" {
		if last, err := store.LastUsername(); err == nil && last != "" {
			username = last
		}
	}

	if username != "" {
		if creds, err := store.Load(username); err == nil && creds.AuthCookie != "" {
			cookies := serviceclient.Cookies{Auth: creds.AuthCookie, TwoFactorAuth: creds.TwoFactorCookie}
			if err := client.Revalidate(ctx, cookies); err == nil {
				l.Info().Str("user", username).Msg("uploader: resumed saved session")
				return cookies, username, nil
			}
		}
	}

	reader := bufio.NewReader(os.Stdin)
	if username == "" {
		fmt.Print("VRChat username: ")
		line, _ := reader.ReadString('\n')
		username = trimNewline(line)
	}

	fmt.Print("VRChat password: ")
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return serviceclient.Cookies{}, username, fmt.Errorf("read password: %w", err)
	}
	password := string(passwordBytes)

	outcome, cookies, err := client.GetUser(ctx, username, password, serviceclient.Cookies{})
	if err != nil {
		return cookies, username, err
	}

	switch outcome.Kind {
	case serviceclient.AuthOutcomeInvalidCredentials:
		return cookies, username, fmt.Errorf("uploader: invalid credentials for %s", username)
	case serviceclient.AuthOutcomeTwoFactorRequired:
		fmt.Printf("Enter %s code: ", outcome.TwoFactor.Kind)
		line, _ := reader.ReadString('\n')
		code := trimNewline(line)
		cookies, err = client.VerifyTwoFactor(ctx, outcome.TwoFactor.AuthCookie, outcome.TwoFactor.Kind, code)
		if err != nil {
			return cookies, username, err
		}
	}

	if err := store.Save(username, credstore.Cookies{AuthCookie: cookies.Auth, TwoFactorCookie: cookies.TwoFactorAuth}); err != nil {
		l.Warn().Err(err).Msg("uploader: failed to persist session")
	}
	return cookies, username, nil
}

func runPublication(ctx context.Context, orch *orchestrator.Orchestrator, status *statusserver.Server, history *historydb.DB, cookies serviceclient.Cookies, username, archivePath string, l zerolog.Logger) {
	unpacked, err := bundlearchive.Open(archivePath)
	if err != nil {
		l.Error().Err(err).Str("archive", archivePath).Msg("uploader: open archive")
		return
	}
	defer unpacked.Release()

	var recordID uint
	if history != nil {
		platforms := make([]string, 0, len(unpacked.PlatformPayloads))
		for p := range unpacked.PlatformPayloads {
			platforms = append(platforms, string(p))
		}
		recordID, err = history.Record(unpacked.Manifest.BlueprintID, unpacked.Manifest.Name, username, platforms)
		if err != nil {
			l.Warn().Err(err).Msg("uploader: failed to record publication history")
		}
	}

	sink := make(chan orchestrator.Event, 16)
	publicationID := ""
	if status != nil {
		publicationID = statusserver.NewPublicationID()
		status.Track(publicationID, sink)
		l.Info().Str("publication_id", publicationID).Msg("uploader: publication tracked")
	} else {
		go func() {
			for range sink {
			}
		}()
	}

	l.Info().Str("archive", archivePath).Str("blueprint_id", unpacked.Manifest.BlueprintID).Msg("uploader: publishing")
	pubErr := orch.Publish(ctx, unpacked, cookies, sink)
	close(sink)

	if history != nil && recordID != 0 {
		outcome := historydb.OutcomeSucceeded
		if pubErr != nil {
			outcome = historydb.OutcomeFailed
		}
		if err := history.Finish(recordID, outcome, pubErr); err != nil {
			l.Warn().Err(err).Msg("uploader: failed to finalize publication history")
		}
	}

	if pubErr != nil {
		l.Error().Err(pubErr).Str("archive", archivePath).Msg("uploader: publication failed")
		return
	}
	l.Info().Str("archive", archivePath).Msg("uploader: publication complete")
}

// printHistory opens the history ledger, prints the n most
// recent publications, and returns; it never signs in or touches the
// network.
func printHistory(cfg *config.Config, n int, l zerolog.Logger) {
	if !cfg.History.Enabled {
		fmt.Fprintln(os.Stderr, "uploader: history is disabled in config")
		os.Exit(1)
	}
	history, err := historydb.Open(cfg.History.DBPath)
	if err != nil {
		l.Fatal().Err(err).Msg("uploader: open publication history")
	}
	defer history.Close()

	records, err := history.Recent(n)
	if err != nil {
		l.Fatal().Err(err).Msg("uploader: read publication history")
	}
	for _, rec := range records {
		fmt.Printf("%s  %-20s  %-12s  %-10s  %s\n", rec.StartedAt.Format(time.RFC3339), rec.Name, rec.BlueprintID, rec.Outcome, rec.ErrorMsg)
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
