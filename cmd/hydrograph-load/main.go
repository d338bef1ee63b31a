package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/schollz/progressbar/v3"

	"github.com/chrissnell/hydrograph/internal/database"
	"github.com/chrissnell/hydrograph/internal/log"
	"github.com/chrissnell/hydrograph/internal/storage/timescaledb"
)

type Config struct {
	Host      string
	Port      int
	Database  string
	User      string
	Password  string
	SSLMode   string
	DSN       string
	CSVFile   string
	BatchSize int
	Debug     bool
}

func (c Config) connectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode)
}

func main() {
	var cfg Config

	flag.StringVar(&cfg.Host, "host", "localhost", "Database host")
	flag.IntVar(&cfg.Port, "port", 5432, "Database port")
	flag.StringVar(&cfg.Database, "database", "hydrograph", "Database name")
	flag.StringVar(&cfg.User, "user", "postgres", "Database user")
	flag.StringVar(&cfg.Password, "password", "", "Database password")
	flag.StringVar(&cfg.SSLMode, "sslmode", "disable", "SSL mode (disable, require, etc)")
	flag.StringVar(&cfg.DSN, "dsn", "", "Connection string; overrides the individual connection flags")
	flag.StringVar(&cfg.CSVFile, "file", "", "CSV file to load (columns: time, site_id, parameter_code, value, qualifiers)")
	flag.IntVar(&cfg.BatchSize, "batch-size", 10000, "Rows per COPY batch")
	flag.BoolVar(&cfg.Debug, "debug", false, "Turn on debugging output")
	flag.Parse()

	if cfg.CSVFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -file <observations.csv> [-dsn <connection string>]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10000
	}

	if err := log.Init(cfg.Debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// The schema must exist before COPY can target it
	store, err := timescaledb.New(ctx, cfg.connectionString())
	if err != nil {
		log.Fatalf("Failed to prepare observation schema: %v", err)
	}
	store.Close()

	pool, err := database.CreatePool(ctx, cfg.connectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	file, err := os.Open(cfg.CSVFile)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		log.Fatalf("Failed to stat file: %v", err)
	}
	bar := progressbar.DefaultBytes(info.Size(), "loading")
	reader := progressbar.NewReader(file, bar)

	total, err := load(ctx, pool, &reader, cfg.BatchSize)
	if err != nil {
		log.Fatalf("Failed to load observations: %v", err)
	}
	log.Infof("Loaded %d observations from %s", total, cfg.CSVFile)
}

func load(ctx context.Context, pool *pgxpool.Pool, r io.Reader, batchSize int) (int64, error) {
	reader, err := database.NewCSVReader(r)
	if err != nil {
		return 0, err
	}

	var total int64
	batch := make([]database.Observation, 0, batchSize)

	flush := func() error {
		copied, err := timescaledb.CopyObservations(ctx, pool, batch)
		if err != nil {
			return err
		}
		total += copied
		batch = batch[:0]
		log.Debugf("Processed %d rows", total)
		return nil
	}

	for {
		o, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, err
		}

		batch = append(batch, o)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}

	if len(batch) > 0 {
		if err := flush(); err != nil {
			return total, err
		}
	}
	return total, nil
}
