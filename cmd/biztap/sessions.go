package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rendis/biztap/internal/storage"
)

func runSessions(args []string) error {
	var dbPath string

	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "", "Path to session database (required)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: biztap sessions -db <path>\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if dbPath == "" {
		return fmt.Errorf("-db is required")
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.ListSessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}

	fmt.Printf("%-10s %-2s %-20s %-24s %10s %8s  %s\n",
		"ID", "", "QUERY", "LOCATION", "BUSINESSES", "PHONES", "STARTED")
	for _, s := range sessions {
		loc := s.Location
		if s.RadiusKm > 0 {
			loc = fmt.Sprintf("%s (%.0fkm)", s.Location, s.RadiusKm)
		}
		fmt.Printf("%-10s %-2s %-20s %-24s %10d %8d  %s\n",
			shortID(s.ID), statusGlyph(s.Status), truncate(s.Query, 20), truncate(loc, 24),
			s.BusinessesFound, s.PhoneNumbersFound,
			s.StartTime.Format("2006-01-02 15:04"))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
