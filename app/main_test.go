package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jobsift/jobsift/app/scraper"
	"github.com/jobsift/jobsift/app/store"
)

func Test_resolveDBTarget(t *testing.T) {
	reset := func(t *testing.T) {
		opts.DBURL = ""
		t.Setenv("CAREERS_DB_URL", "")
		t.Setenv("CAREERS_DB_PATH", "")
	}

	t.Run("flag wins over everything", func(t *testing.T) {
		reset(t)
		opts.DBURL = "flag.duckdb"
		t.Setenv("CAREERS_DB_URL", "url.duckdb")
		t.Setenv("CAREERS_DB_PATH", "path.duckdb")
		target, err := resolveDBTarget()
		require.NoError(t, err)
		assert.Equal(t, "flag.duckdb", target)
	})

	t.Run("CAREERS_DB_URL wins over CAREERS_DB_PATH", func(t *testing.T) {
		reset(t)
		t.Setenv("CAREERS_DB_URL", "md:my_db")
		t.Setenv("CAREERS_DB_PATH", "path.duckdb")
		target, err := resolveDBTarget()
		require.NoError(t, err)
		assert.Equal(t, "md:my_db", target)
	})

	t.Run("CAREERS_DB_PATH as last fallback", func(t *testing.T) {
		reset(t)
		t.Setenv("CAREERS_DB_PATH", "path.duckdb")
		target, err := resolveDBTarget()
		require.NoError(t, err)
		assert.Equal(t, "path.duckdb", target)
	})

	t.Run("nothing set fails", func(t *testing.T) {
		reset(t)
		_, err := resolveDBTarget()
		assert.ErrorIs(t, err, errNoDBTarget)
	})
}

func Test_resolveSelectors(t *testing.T) {
	reset := func() {
		opts.JobSelector, opts.TitleSelector, opts.LocationSelector, opts.LinkSelector = "", "", "", ""
		opts.SelectorsFile = ""
	}

	t.Run("from flags", func(t *testing.T) {
		reset()
		opts.JobSelector, opts.TitleSelector, opts.LocationSelector, opts.LinkSelector = ".job", "h2", "span", "a"
		sel, err := resolveSelectors()
		require.NoError(t, err)
		assert.Equal(t, scraper.Selectors{Job: ".job", Title: "h2", Location: "span", Link: "a"}, sel)
	})

	t.Run("file filled, flags win", func(t *testing.T) {
		reset()
		file := filepath.Join(t.TempDir(), "sel.yml")
		require.NoError(t, os.WriteFile(file,
			[]byte("job: .job\ntitle: .t\nlocation: .l\nlink: a\n"), 0o600))
		opts.SelectorsFile = file
		opts.TitleSelector = "h2.override"

		sel, err := resolveSelectors()
		require.NoError(t, err)
		assert.Equal(t, scraper.Selectors{Job: ".job", Title: "h2.override", Location: ".l", Link: "a"}, sel)
	})

	t.Run("incomplete selectors fail", func(t *testing.T) {
		reset()
		opts.JobSelector = ".job"
		_, err := resolveSelectors()
		assert.Error(t, err)
	})

	t.Run("missing file fails", func(t *testing.T) {
		reset()
		opts.SelectorsFile = "no-such.yml"
		_, err := resolveSelectors()
		assert.Error(t, err)
	})
}

func Test_setupLogs(t *testing.T) {
	t.Run("stdout by default", func(t *testing.T) {
		opts.Log.Enabled = false
		assert.Equal(t, os.Stdout, setupLogs())
	})

	t.Run("lumberjack when file logging enabled", func(t *testing.T) {
		opts.Log.Enabled = true
		opts.Log.Filename = filepath.Join(t.TempDir(), "test.log")
		opts.Log.MaxSize = 100
		opts.Log.MaxBackups = 7
		defer func() { opts.Log.Enabled = false }()

		out := setupLogs()
		require.IsType(t, &lumberjack.Logger{}, out)

		logger := out.(*lumberjack.Logger)
		assert.Equal(t, opts.Log.Filename, logger.Filename)
		assert.Equal(t, 100, logger.MaxSize)
		assert.Equal(t, 7, logger.MaxBackups)
	})
}

func Test_runPipeline(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<div class="job"><h2 class="job-title">Engineer</h2>
				<span class="job-location">Remote</span><a href="/jobs/1">go</a></div>
			<div class="job"><h2 class="job-title">Analyst</h2>
				<span class="job-location">Oslo</span><a href="/jobs/2">go</a></div>
		</body></html>`))
	}))
	defer ts.Close()

	dbFile := filepath.Join(t.TempDir(), "pipeline.duckdb")
	setOpts := func() {
		opts.URL = ts.URL
		opts.JobSelector, opts.TitleSelector = ".job", ".job-title"
		opts.LocationSelector, opts.LinkSelector = ".job-location", "a"
		opts.SelectorsFile = ""
		opts.DBURL = dbFile
		opts.Replace = false
		opts.Timeout = time.Second * 5
		opts.List = 0
	}
	setOpts()

	// duckdb locks the file per open database, check results only between runs
	countRows := func(t *testing.T) (int, []store.Entry) {
		s, err := store.New(dbFile)
		require.NoError(t, err)
		defer s.Close()
		count, err := s.CountBySource(context.Background(), ts.URL)
		require.NoError(t, err)
		entries, err := s.Recent(context.Background(), 10)
		require.NoError(t, err)
		return count, entries
	}

	require.NoError(t, run(context.Background()))

	count, entries := countRows(t)
	assert.Equal(t, 2, count)
	require.Len(t, entries, 2)
	links := []string{entries[0].Link, entries[1].Link}
	assert.ElementsMatch(t, []string{ts.URL + "/jobs/1", ts.URL + "/jobs/2"}, links,
		"relative links resolved against the server url")

	t.Run("second run with replace keeps count stable", func(t *testing.T) {
		setOpts()
		opts.Replace = true
		require.NoError(t, run(context.Background()))

		count, _ := countRows(t)
		assert.Equal(t, 2, count)
	})

	t.Run("unreachable url leaves the table alone", func(t *testing.T) {
		setOpts()
		dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		opts.URL = dead.URL
		dead.Close()

		err := run(context.Background())
		require.Error(t, err)
		var fetchErr *scraper.FetchError
		assert.True(t, errors.As(err, &fetchErr))

		count, _ := countRows(t)
		assert.Equal(t, 2, count, "no rows added or removed")
	})

	t.Run("zero matches still succeeds", func(t *testing.T) {
		setOpts()
		opts.JobSelector = ".no-such-class"
		require.NoError(t, run(context.Background()))
	})

	t.Run("list mode", func(t *testing.T) {
		setOpts()
		opts.List = 5
		require.NoError(t, run(context.Background()))
	})
}
