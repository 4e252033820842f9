package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/joho/godotenv"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jobsift/jobsift/app/scraper"
	"github.com/jobsift/jobsift/app/store"
)

var opts struct {
	URL              string        `long:"url" env:"CAREERS_URL" description:"careers page URL to scrape"`
	JobSelector      string        `long:"job-selector" env:"CAREERS_JOB_SELECTOR" description:"CSS selector matching each job entry"`
	TitleSelector    string        `long:"title-selector" env:"CAREERS_TITLE_SELECTOR" description:"CSS selector for the title inside each entry"`
	LocationSelector string        `long:"location-selector" env:"CAREERS_LOCATION_SELECTOR" description:"CSS selector for the location inside each entry"`
	LinkSelector     string        `long:"link-selector" env:"CAREERS_LINK_SELECTOR" description:"CSS selector for the link inside each entry"`
	SelectorsFile    string        `long:"selectors" env:"CAREERS_SELECTORS_FILE" description:"yaml file with job/title/location/link selectors, explicit flags win"`
	DBURL            string        `long:"db-url" description:"duckdb file or motherduck dsn (default: $CAREERS_DB_URL, then $CAREERS_DB_PATH)"`
	Replace          bool          `long:"replace" description:"delete existing rows for the URL before inserting"`
	UserAgent        string        `long:"user-agent" env:"CAREERS_USER_AGENT" description:"user agent header for scraping"`
	Timeout          time.Duration `long:"timeout" env:"CAREERS_TIMEOUT" default:"30s" description:"http request timeout"`
	List             int           `long:"list" description:"print N most recent stored postings and exit"`
	Dbg              bool          `long:"dbg" env:"JOBSIFT_DEBUG" description:"debug mode"`

	Log struct {
		Enabled    bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename   string `long:"filename" env:"FILENAME" default:"jobsift.log" description:"log file name"`
		MaxSize    int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log size in megabytes"`
		MaxBackups int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max number of rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"JOBSIFT_LOG"`
}

var revision = "unknown"

// errNoDBTarget is returned when no database target can be resolved from
// the flag or the environment.
var errNoDBTarget = errors.New("no database target, set --db-url or CAREERS_DB_URL/CAREERS_DB_PATH")

func main() {
	fmt.Printf("jobsift %s\n", revision)

	_ = godotenv.Load() // optional .env, real environment still wins

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	setupLogs()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

// run executes one fetch -> extract -> persist pass, or the list mode.
// Any stage failure aborts the remaining stages.
func run(ctx context.Context) error {
	dbTarget, err := resolveDBTarget()
	if err != nil {
		return err
	}

	if opts.List > 0 {
		return listRecent(ctx, dbTarget)
	}

	if opts.URL == "" {
		return errors.New("the required flag --url was not specified")
	}
	sel, err := resolveSelectors()
	if err != nil {
		return err
	}

	fetcher := scraper.NewFetcher(opts.Timeout, opts.UserAgent)
	body, err := fetcher.Fetch(ctx, opts.URL)
	if err != nil {
		return fmt.Errorf("fetch stage: %w", err)
	}

	postings, err := scraper.Extract(body, opts.URL, sel)
	if err != nil {
		return fmt.Errorf("extract stage: %w", err)
	}
	log.Printf("[INFO] extracted %d postings from %s", len(postings), opts.URL)

	db, err := store.New(dbTarget)
	if err != nil {
		return fmt.Errorf("persist stage: %w", err)
	}
	defer db.Close()

	inserted, err := db.Save(ctx, postings, opts.URL, opts.Replace)
	if err != nil {
		return fmt.Errorf("persist stage: %w", err)
	}

	if total, cntErr := db.CountBySource(ctx, opts.URL); cntErr == nil {
		log.Printf("[INFO] inserted %d postings into %s, source %s now has %d rows",
			inserted, dbTarget, opts.URL, total)
	} else {
		log.Printf("[WARN] can't count rows for %s: %v", opts.URL, cntErr)
		log.Printf("[INFO] inserted %d postings into %s", inserted, dbTarget)
	}
	return nil
}

// listRecent prints the most recent stored postings, newest first.
func listRecent(ctx context.Context, dbTarget string) error {
	db, err := store.New(dbTarget)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.Recent(ctx, opts.List)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s\t%s\t%s\t%s\t%s\n",
			e.ScrapedAt.Format(time.RFC3339), e.Title, e.Location, e.Link, e.SourceURL)
	}
	return nil
}

// resolveDBTarget picks the database target, flag first, then CAREERS_DB_URL,
// then CAREERS_DB_PATH. No default path, an unset target is an error.
func resolveDBTarget() (string, error) {
	if opts.DBURL != "" {
		return opts.DBURL, nil
	}
	if v := os.Getenv("CAREERS_DB_URL"); v != "" {
		return v, nil
	}
	if v := os.Getenv("CAREERS_DB_PATH"); v != "" {
		return v, nil
	}
	return "", errNoDBTarget
}

// resolveSelectors combines the selectors file (if given) with explicit flags,
// flags winning, and validates all four selectors are set.
func resolveSelectors() (scraper.Selectors, error) {
	sel := scraper.Selectors{}
	if opts.SelectorsFile != "" {
		var err error
		if sel, err = scraper.SelectorsFromFile(opts.SelectorsFile); err != nil {
			return scraper.Selectors{}, err
		}
	}
	sel = sel.Merge(scraper.Selectors{
		Job:      opts.JobSelector,
		Title:    opts.TitleSelector,
		Location: opts.LocationSelector,
		Link:     opts.LinkSelector,
	})
	if err := sel.Validate(); err != nil {
		return scraper.Selectors{}, err
	}
	return sel, nil
}

func setupLogs() io.Writer {
	logOpts := []log.Option{log.Msec, log.LevelBraces}
	if opts.Dbg {
		logOpts = []log.Option{log.Debug, log.Msec, log.LevelBraces, log.CallerFunc, log.CallerPkg, log.CallerFile}
	}

	var out io.Writer = os.Stdout
	if opts.Log.Enabled {
		out = &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
		}
	}
	logOpts = append(logOpts, log.Out(out), log.Err(out))
	log.Setup(logOpts...)
	return out
}
