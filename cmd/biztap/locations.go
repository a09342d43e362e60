package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rendis/biztap/internal/storage"
)

func runLocations(args []string) error {
	var dbPath, save, del, location string
	var radius float64

	fs := flag.NewFlagSet("locations", flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "", "Path to session database (required)")
	fs.StringVar(&save, "save", "", "Save a template under this name")
	fs.StringVar(&location, "location", "", "Location for -save")
	fs.Float64Var(&radius, "radius", 10, "Radius in km for -save")
	fs.StringVar(&del, "delete", "", "Delete the template with this name")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: biztap locations -db <path> [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  biztap locations -db biztap.db\n")
		fmt.Fprintf(os.Stderr, "  biztap locations -db biztap.db -save south-coast -location Galle -radius 25\n")
		fmt.Fprintf(os.Stderr, "  biztap locations -db biztap.db -delete south-coast\n")
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

	switch {
	case save != "":
		if location == "" {
			return fmt.Errorf("-location is required with -save")
		}
		if err := store.SaveLocation(storage.SavedLocation{
			Name: save, Location: location, RadiusKm: radius,
		}); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved %q: %s (%.1fkm)\n", save, location, radius)
		return nil
	case del != "":
		if err := store.DeleteLocation(del); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "deleted %q\n", del)
		return nil
	}

	locs, err := store.ListLocations()
	if err != nil {
		return err
	}
	if len(locs) == 0 {
		fmt.Println("no saved locations")
		return nil
	}
	fmt.Printf("%-20s %-24s %8s\n", "NAME", "LOCATION", "RADIUS")
	for _, l := range locs {
		fmt.Printf("%-20s %-24s %7.1fk\n", l.Name, l.Location, l.RadiusKm)
	}
	return nil
}
