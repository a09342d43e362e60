package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/biztap/internal/export"
	"github.com/rendis/biztap/internal/model"
	"github.com/rendis/biztap/internal/storage"
)

func runExport(args []string) error {
	var dbPath, sessionID, outputPath, format string

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "", "Path to session database (required)")
	fs.StringVar(&sessionID, "session", "", "Session id (default: most recent)")
	fs.StringVar(&outputPath, "output", "", "Output file path (default: next to the database)")
	fs.StringVar(&format, "format", "csv", "Export format: csv or json")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: biztap export [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  biztap export -db ./output/biztap.db\n")
		fmt.Fprintf(os.Stderr, "  biztap export -db ./output/biztap.db -session <id> -format json\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if dbPath == "" {
		return fmt.Errorf("-db is required")
	}
	if format != "csv" && format != "json" {
		return fmt.Errorf("unsupported format: %s (csv or json)", format)
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if sessionID == "" {
		sessions, err := store.ListSessions()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			return fmt.Errorf("no sessions in database")
		}
		sessionID = sessions[0].ID
	}

	sess, err := store.GetSession(sessionID)
	if err != nil {
		return err
	}

	if outputPath == "" {
		dir := filepath.Dir(dbPath)
		base := strings.TrimSuffix(filepath.Base(dbPath), ".db")
		outputPath = filepath.Join(dir, fmt.Sprintf("%s_%s.%s", base, shortID(sessionID), format))
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	switch format {
	case "json":
		err = export.WriteJSON(f, sess)
	default:
		err = export.WriteCSV(f, sess)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Exported %d businesses (%d phone numbers) to %s\n",
		sess.BusinessesFound, sess.PhoneNumbersFound, outputPath)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func statusGlyph(s model.Status) string {
	switch s {
	case model.StatusCompleted:
		return "✓"
	case model.StatusStopped:
		return "◼"
	case model.StatusError:
		return "✗"
	default:
		return "…"
	}
}
