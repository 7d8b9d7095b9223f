package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nikbrunner/bmsync/internal/auth"
	"github.com/nikbrunner/bmsync/internal/bookmarks"
	"github.com/nikbrunner/bmsync/internal/browser"
	"github.com/nikbrunner/bmsync/internal/exporter"
	"github.com/nikbrunner/bmsync/internal/importer"
	"github.com/nikbrunner/bmsync/internal/logger"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/pagetitle"
	"github.com/nikbrunner/bmsync/internal/picker"
	"github.com/nikbrunner/bmsync/internal/search"
	"github.com/nikbrunner/bmsync/internal/server"
	"github.com/nikbrunner/bmsync/internal/tui"
)

var version = "dev"

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "help", "--help", "-h":
			printHelp()
			return
		case "version", "--version":
			fmt.Println("bmsync", version)
			return
		case "serve":
			runServe()
			return
		case "login":
			var provider string
			if len(os.Args) >= 3 {
				provider = os.Args[2]
			}
			runLogin(provider)
			return
		case "logout":
			runLogout()
			return
		case "import":
			if len(os.Args) < 3 {
				fmt.Fprintf(os.Stderr, "Usage: bmsync import <file.html>\n")
				os.Exit(1)
			}
			runImport(os.Args[2])
			return
		case "export":
			// Export with optional path
			var outputPath string
			if len(os.Args) >= 3 {
				outputPath = os.Args[2]
			}
			runExport(outputPath)
			return
		case "find":
			if len(os.Args) < 3 {
				fmt.Fprintf(os.Stderr, "Usage: bmsync find <query>\n")
				os.Exit(1)
			}
			runFind(strings.Join(os.Args[2:], " "))
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command %q. Run 'bmsync help'.\n", os.Args[1])
			os.Exit(1)
		}
	}

	// No args - run full TUI
	runTUI()
}

func printHelp() {
	help := `bmsync - terminal bookmark manager with live sync

Usage:
  bmsync                  Open interactive TUI
  bmsync serve            Run the hosted bookmarks API
  bmsync login [provider] Sign in without opening the TUI
  bmsync logout           Sign out
  bmsync find <query>     Quick search → select → open
  bmsync import <file>    Import bookmarks from HTML
  bmsync export [path]    Export bookmarks to HTML
  bmsync help             Show this help

TUI Keybindings:
  Navigation:
    j/k         Move down/up
    gg/G        Jump to top/bottom
    h/l [/]     Previous/next page

  Actions:
    a           Add bookmark (tab switches field, enter saves)
    y           Copy URL to clipboard
    o/Enter     Open bookmark in browser
    d           Delete bookmark
    /           Filter current page
    r           Refresh
    S           Sign out

  Other:
    q           Quit

Configuration:
  ~/.config/bmsync/config.yaml (override with BMSYNC_CONFIG)
`
	fmt.Print(help)
}

// runTUI runs the full interactive TUI.
func runTUI() {
	ctx := context.Background()
	cfg := mustLoadConfig()

	// stdout belongs to the terminal UI, so logs go to a file.
	log := mustLogger(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, File: cfg.Log.File})
	defer log.Sync()

	provider := buildAuth(cfg, log)
	backend, err := buildBackend(ctx, cfg, log, provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening backend: %v\n", err)
		os.Exit(1)
	}
	defer backend.Close()

	app := tui.NewApp(tui.AppParams{
		Auth:          provider,
		Data:          backend.Data,
		Realtime:      backend.Live,
		TitleFetcher:  pagetitle.New(5 * time.Second),
		Logger:        log,
		Context:       ctx,
		SignInTimeout: cfg.SignInTimeout,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	finalModel, err := p.Run()
	if finalApp, ok := finalModel.(tui.App); ok {
		finalApp.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running app: %v\n", err)
		os.Exit(1)
	}
}

// runServe runs the HTTP API until SIGINT or SIGTERM.
func runServe() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := mustLoadConfig()
	log := mustLogger(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	defer log.Sync()

	backend, err := buildServerBackend(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open backend", logger.Error(err))
		os.Exit(1)
	}
	defer backend.Close()

	verifier, err := buildVerifier(ctx, cfg)
	if err != nil {
		log.Error("Failed to configure token verification", logger.Error(err))
		os.Exit(1)
	}

	srv := server.New(cfg.Server.Listen, server.Deps{
		Logger:         log,
		Bookmarks:      backend.Data,
		Verifier:       verifier,
		StartTime:      time.Now(),
		Version:        version,
		RequestTimeout: cfg.Server.RequestTimeout,
		Ready:          backend.Ready,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", logger.Error(err))
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", logger.Error(err))
	}
	log.Info("Shutdown complete")
}

// runLogin signs in and prints the resulting user.
func runLogin(providerName string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := mustLoadConfig()
	log := mustLogger(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	defer log.Sync()

	provider := buildAuth(cfg, log)
	if providerName == "" {
		providerName = provider.Name()
	}

	fmt.Printf("Signing in with %s...\n", providerName)
	if err := provider.SignIn(ctx, providerName); err != nil {
		fmt.Fprintf(os.Stderr, "Error signing in: %v\n", err)
		os.Exit(1)
	}

	user := mustUser(ctx, provider)
	fmt.Printf("Signed in as %s\n", user.DisplayName())
}

// runLogout clears the saved session.
func runLogout() {
	cfg := mustLoadConfig()
	provider := buildAuth(cfg, logger.Nop())

	if err := provider.SignOut(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error signing out: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Signed out")
}

// runFind performs a fuzzy search and opens the selected bookmark.
func runFind(query string) {
	ctx := context.Background()
	provider, backend := mustOpen(ctx)
	defer backend.Close()

	user := mustUser(ctx, provider)
	all, err := bookmarks.All(ctx, backend.Data, user.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading bookmarks: %v\n", err)
		os.Exit(1)
	}

	// Search
	results := search.FuzzySearchBookmarks(all, query)

	if len(results) == 0 {
		fmt.Printf("No bookmarks found for '%s'\n", query)
		return
	}

	var selectedBookmark *model.Bookmark

	if len(results) == 1 {
		// Single result - select it directly
		selectedBookmark = &results[0].Bookmark
		fmt.Printf("Opening: %s\n", selectedBookmark.Title)
	} else {
		// Multiple results - show picker
		p := picker.New(results, query)
		program := tea.NewProgram(p)
		finalModel, err := program.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running picker: %v\n", err)
			os.Exit(1)
		}

		finalPicker := finalModel.(picker.Picker)
		if finalPicker.Cancelled() {
			return
		}
		selectedBookmark = finalPicker.SelectedBookmark()
	}

	if selectedBookmark == nil {
		return
	}

	if err := browser.Open(selectedBookmark.URL); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening browser: %v\n", err)
		os.Exit(1)
	}
}

// runImport handles the import subcommand.
func runImport(filePath string) {
	ctx := context.Background()
	provider, backend := mustOpen(ctx)
	defer backend.Close()

	user := mustUser(ctx, provider)

	file, err := os.Open(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	parsed, err := importer.ParseHTMLBookmarks(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing HTML: %v\n", err)
		os.Exit(1)
	}

	res, err := bookmarks.Import(ctx, backend.Data, user.ID, parsed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error importing bookmarks (%d added so far): %v\n", res.Added, err)
		os.Exit(1)
	}

	fmt.Printf("Imported %d bookmarks", res.Added)
	if res.Skipped > 0 {
		fmt.Printf(" (%d duplicates skipped)", res.Skipped)
	}
	fmt.Println()
}

// runExport handles the export subcommand.
func runExport(outputPath string) {
	// Determine output path
	if outputPath == "" {
		var err error
		outputPath, err = exporter.DefaultExportPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting default export path: %v\n", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()
	provider, backend := mustOpen(ctx)
	defer backend.Close()

	user := mustUser(ctx, provider)
	all, err := bookmarks.All(ctx, backend.Data, user.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading bookmarks: %v\n", err)
		os.Exit(1)
	}

	// Generate HTML
	html := exporter.ExportHTML(all)

	// Write to file
	if err := os.WriteFile(outputPath, []byte(html), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Exported %d bookmarks to %s\n", len(all), outputPath)
}

// mustUser returns the signed-in user or exits with a hint to log in.
func mustUser(ctx context.Context, provider auth.Provider) model.User {
	user, err := provider.CurrentUser(ctx)
	if err == nil && user == nil {
		err = auth.ErrNotSignedIn
	}
	if err != nil {
		if errors.Is(err, auth.ErrNotSignedIn) {
			fmt.Fprintf(os.Stderr, "Not signed in. Run 'bmsync login' first.\n")
		} else {
			fmt.Fprintf(os.Stderr, "Error reading session: %v\n", err)
		}
		os.Exit(1)
	}
	return *user
}
