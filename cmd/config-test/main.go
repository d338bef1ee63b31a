package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/samber/lo"

	"github.com/chrissnell/hydrograph/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Comparison Test")
	fmt.Println("===========================")

	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	yamlConfig, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loading SQLite configuration: %s\n", *sqliteFile)
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening SQLite config: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	sqliteConfig, err := sqliteProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
		os.Exit(1)
	}

	diffs := compareSites(yamlConfig.Sites, sqliteConfig.Sites)
	diffs += check("Storage configuration", reflect.DeepEqual(yamlConfig.Storage, sqliteConfig.Storage))
	diffs += check("Chart configuration", reflect.DeepEqual(yamlConfig.Chart, sqliteConfig.Chart))

	fmt.Printf("\nControllers - YAML: %d, SQLite: %d\n", len(yamlConfig.Controllers), len(sqliteConfig.Controllers))
	if len(yamlConfig.Controllers) != len(sqliteConfig.Controllers) {
		fmt.Println("✗ Controller count mismatch")
		diffs++
	} else {
		for i, c := range yamlConfig.Controllers {
			diffs += check("Controller "+c.Type, reflect.DeepEqual(c, sqliteConfig.Controllers[i]))
		}
	}

	if diffs > 0 {
		fmt.Printf("\nTest completed with %d differences\n", diffs)
		os.Exit(1)
	}
	fmt.Println("\nTest completed!")
}

func compareSites(yamlSites, sqliteSites []config.SiteData) int {
	fmt.Printf("\nSites - YAML: %d, SQLite: %d\n", len(yamlSites), len(sqliteSites))

	byID := lo.KeyBy(sqliteSites, func(s config.SiteData) string { return s.ID })
	diffs := 0
	for _, site := range yamlSites {
		other, ok := byID[site.ID]
		if !ok {
			fmt.Printf("✗ Site %s missing from SQLite\n", site.ID)
			diffs++
			continue
		}
		diffs += check("Site "+site.ID, reflect.DeepEqual(site, other))
		delete(byID, site.ID)
	}
	for id := range byID {
		fmt.Printf("✗ Site %s only in SQLite\n", id)
		diffs++
	}
	return diffs
}

func check(what string, same bool) int {
	if same {
		fmt.Printf("✓ %s matches\n", what)
		return 0
	}
	fmt.Printf("✗ %s differs\n", what)
	return 1
}
