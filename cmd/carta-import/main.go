package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cartacocktail/carta-backend/internal/importwizard"
	"github.com/cartacocktail/carta-backend/pkg/cartaclient"
	"github.com/cartacocktail/carta-backend/pkg/env"
	"github.com/cartacocktail/carta-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "carta-import", Level: logger.ParseLevel(env.Get("CARTA_LOG_LEVEL", "warn"))})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "import", "command: login|logout|me|export|import|backup|restore")
	server := flag.String("server", env.Get("CARTA_API_URL", "http://localhost:8080"), "api base url")
	tokenFile := flag.String("token-file", defaultTokenFile(), "where the login token is kept")
	timeout := flag.Duration("timeout", 30*time.Second, "per command timeout")

	email := flag.String("email", env.Get("CARTA_EMAIL", ""), "account email (for login)")
	password := flag.String("password", env.Get("CARTA_PASSWORD", ""), "account password (for login)")
	id := flag.String("id", "", "cocktail id (for export)")
	out := flag.String("out", "", "output file, stdout when empty (for export and backup)")
	dryRun := flag.Bool("dry-run", false, "stop after the summary (for import)")

	var overrides resolutionFlags
	flag.Var(&overrides.use, "use", "map a referenced entity to an existing row: kind:key=uuid (repeatable)")
	flag.Var(&overrides.skip, "skip", "skip a referenced bottle: bottle:key (repeatable)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	ctx = logg.WithFields(ctx, map[string]any{"cmd": *cmd, "server": *server})

	tokens, err := cartaclient.NewFileTokenStore(*tokenFile)
	requireOK(ctx, logg, "token store", err)
	client, err := cartaclient.NewClient(*server, cartaclient.WithTokenStore(tokens))
	requireOK(ctx, logg, "api client", err)

	switch *cmd {
	case "login":
		user, err := client.Login(ctx, *email, *password)
		requireOK(ctx, logg, "login", err)
		fmt.Printf("logged in as %s (%s)\n", user.Email, user.Role)

	case "logout":
		requireOK(ctx, logg, "logout", client.Logout(ctx))
		fmt.Println("logged out")

	case "me":
		user, err := client.Me(ctx)
		requireOK(ctx, logg, "me", err)
		fmt.Printf("%s <%s> %s\n", user.DisplayName, user.Email, user.Role)

	case "export":
		if *id == "" {
			fmt.Fprintln(os.Stderr, "missing -id for export")
			os.Exit(2)
		}
		doc, err := client.ExportCocktail(ctx, *id)
		requireOK(ctx, logg, "export", err)
		requireOK(ctx, logg, "write export", writeOutput(*out, func(w io.Writer) error {
			return writeJSON(w, doc)
		}))

	case "import":
		path := flag.Arg(0)
		if path == "" {
			fmt.Fprintln(os.Stderr, "usage: carta-import -cmd import [-use kind:key=uuid] [-skip bottle:key] [-dry-run] recipe.json")
			os.Exit(2)
		}
		data, err := os.ReadFile(path)
		requireOK(ctx, logg, "read recipe", err)
		requireOK(ctx, logg, "import", runImport(ctx, client, data, overrides, *dryRun, os.Stdout))

	case "backup":
		requireOK(ctx, logg, "backup", writeOutput(*out, func(w io.Writer) error {
			name, err := client.DownloadBackup(ctx, w)
			if err == nil {
				fmt.Fprintln(os.Stderr, "downloaded", name)
			}
			return err
		}))

	case "restore":
		path := flag.Arg(0)
		if path == "" {
			fmt.Fprintln(os.Stderr, "usage: carta-import -cmd restore backup.json")
			os.Exit(2)
		}
		f, err := os.Open(path)
		requireOK(ctx, logg, "open backup", err)
		defer f.Close()
		summary, err := client.RestoreBackup(ctx, filepath.Base(path), f)
		requireOK(ctx, logg, "restore", err)
		requireOK(ctx, logg, "print summary", writeJSON(os.Stdout, summary))

	default:
		fmt.Fprintf(os.Stderr, "unknown -cmd %q\n", *cmd)
		os.Exit(2)
	}
}

// runImport drives the wizard without prompts: auto-resolution first, then the
// -use and -skip overrides.
func runImport(ctx context.Context, api importwizard.RecipeAPI, data []byte, overrides resolutionFlags, dryRun bool, w io.Writer) error {
	wiz, err := importwizard.New(api)
	if err != nil {
		return err
	}
	defer wiz.Close()

	if err := wiz.Upload(data); err != nil {
		return fmt.Errorf("parse recipe: %w", err)
	}
	if err := wiz.Next(ctx); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if err := overrides.apply(wiz); err != nil {
		return err
	}

	summary := wiz.Summary()
	fmt.Fprintf(w, "%s: %d referenced, %d missing\n", wiz.Document().Cocktail.Name, summary.Total(), wiz.MissingCount())
	printGroup(w, "create", summary.ToCreate)
	printGroup(w, "use existing", summary.MappedToExisting)
	printGroup(w, "skip", summary.Skipped)
	if dryRun {
		return nil
	}

	if err := wiz.Next(ctx); err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	created, err := wiz.Confirm(ctx)
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	fmt.Fprintf(w, "created cocktail %s (%s)\n", created.Name, created.ID)
	return nil
}

func printGroup(w io.Writer, label string, items []importwizard.SummaryItem) {
	for _, it := range items {
		fmt.Fprintf(w, "  %-12s %-10s %s\n", label, it.Kind, it.Name)
	}
}

func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func defaultTokenFile() string {
	if p := env.Get("CARTA_TOKEN_FILE", ""); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".carta-token"
	}
	return filepath.Join(dir, "carta", "token")
}

func requireOK(ctx context.Context, logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	var apiErr *cartaclient.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(os.Stderr, "%s failed: %s\n", what, apiErr.Error())
	} else {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", what, err)
	}
	logg.Error(ctx, what+" failed", err)
	os.Exit(1)
}

var _ importwizard.RecipeAPI = (*cartaclient.Client)(nil)
