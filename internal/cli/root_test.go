package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Jeffail/gabs/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fknsrs.biz/p/ytmirror/internal/catalog"
	"fknsrs.biz/p/ytmirror/internal/catalog/catalogtest"
	"fknsrs.biz/p/ytmirror/internal/cli"
	"fknsrs.biz/p/ytmirror/internal/config"
	"fknsrs.biz/p/ytmirror/internal/storetest"
)

type harness struct {
	fake   *catalogtest.Fake
	dbPath string
	env    []string
}

func newHarness(t *testing.T, env ...string) *harness {
	return &harness{
		fake:   catalogtest.New(),
		dbPath: storetest.Path(t),
		env:    env,
	}
}

// run executes one command line against a fresh root command and returns
// its standard output.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	opts := cli.NewRootOptions("ytmirror", h.env)
	opts.NewCatalog = func(ctx context.Context, cfg config.Config) (catalog.Catalog, error) {
		return h.fake, nil
	}
	opts.NewVideoLookup = func(ctx context.Context, cfg config.Config) (catalog.VideoLookup, error) {
		return h.fake, nil
	}

	cmd, err := cli.NewRootCommand(opts)
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if h.dbPath != "" {
		args = append([]string{"--application_database=" + h.dbPath}, args...)
	}
	cmd.SetArgs(args)

	err = cmd.ExecuteContext(context.Background())

	return stdout.String(), err
}

func (h *harness) seedRemote() {
	h.fake.PlaylistPages = [][]*gabs.Container{{
		catalogtest.Playlist("PL1", "Present", 4),
	}}
	h.fake.ItemPages["PL1"] = [][]*gabs.Container{
		{
			catalogtest.PlaylistItem("i1", "PL1", "v1", 0),
			catalogtest.PlaylistItem("i2", "PL1", "v2", 1),
		},
		{
			catalogtest.PlaylistItem("i3", "PL1", "v1", 2),
			catalogtest.PlaylistItem("i4", "PL1", "gone", 3),
		},
	}
	h.fake.AddVideo("v1", "One")
	h.fake.AddVideo("v2", "Two")
}

func TestSync(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	h := newHarness(t, "youtube_api_key=key", "youtube_channel_id=UC0")
	h.seedRemote()

	out, err := h.run(t, "sync", "--report")
	require.NoError(t, err)

	a.Contains(out, "Synchronised 1 playlists, 4 playlist items and 2 videos")
	a.Contains(out, "not_found: gone")
	a.Contains(out, "Playlist: Present")
	a.Contains(out, "Position 1: Two")

	c, err := storetest.OpenAt(t, h.dbPath).Counts(ctx)
	require.NoError(t, err)
	a.Equal(1, c.Playlists)
	a.Equal(4, c.PlaylistItems)
	a.Equal(2, c.Videos)
}

func TestSyncNamedPlaylists(t *testing.T) {
	a := assert.New(t)

	h := newHarness(t)
	h.seedRemote()

	out, err := h.run(t, "sync", "--playlist", "https://www.youtube.com/playlist?list=PL1,PL0")
	a.Equal(2, cli.ExitCode(err))

	a.Zero(h.fake.PlaylistRequests)
	a.Contains(out, "Synchronised 0 playlists, 4 playlist items and 2 videos")
	a.Contains(out, "Playlist PL0 stopped early")
}

func TestSyncNeedsSomethingToList(t *testing.T) {
	a := assert.New(t)

	h := newHarness(t, "youtube_api_key=key")
	h.seedRemote()

	_, err := h.run(t, "sync")
	if a.Error(err) {
		a.Contains(err.Error(), "youtube_channel_id")
		a.Equal(1, cli.ExitCode(err))
	}
	a.Zero(h.fake.PlaylistRequests)
}

func TestIngestWithoutFiles(t *testing.T) {
	a := assert.New(t)

	h := newHarness(t)

	out, err := h.run(t, "ingest")
	a.Equal(1, cli.ExitCode(err))
	a.Equal("Usage: ytmirror ingest file1.txt [file2.txt ...]\n", out)

	_, statErr := os.Stat(h.dbPath)
	a.True(os.IsNotExist(statErr))
}

func TestIngestFiles(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	h := newHarness(t)
	h.fake.AddVideo("newvideo001", "Fresh")

	notes := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(notes, []byte(
		"see [this](https://www.youtube.com/watch?v=newvideo001)\n"+
			"and https://youtube.com/watch?v=missingvid1\n",
	), 0644))

	out, err := h.run(t, "ingest", notes, filepath.Join(t.TempDir(), "absent.md"))
	require.NoError(t, err)

	a.Contains(out, "Added 1 new videos to the database:\n - Fresh (ID: newvideo001)\n")
	a.Contains(out, "not_found: missingvid1")
	a.Contains(out, "io_failure: ")

	_, found, err := storetest.OpenAt(t, h.dbPath).FindVideo(ctx, "newvideo001")
	require.NoError(t, err)
	a.True(found)

	// a second run finds everything cached
	out, err = h.run(t, "ingest", notes)
	require.NoError(t, err)
	a.Contains(out, "Added 0 new videos")
	a.Equal(1, h.fake.LookupCount("newvideo001"))
}

func TestReport(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	h := newHarness(t)

	s := storetest.OpenAt(t, h.dbPath)
	require.NoError(t, s.UpsertPlaylist(ctx, storetest.Playlist("PL1", "Listening", 1)))
	require.NoError(t, s.UpsertPlaylistItem(ctx, storetest.PlaylistItem("i1", "PL1", "v1", 0)))
	require.NoError(t, s.UpsertVideo(ctx, storetest.Video("v1", "First")))

	out, err := h.run(t, "report", "--description-width", "5")
	require.NoError(t, err)

	a.Contains(out, "Found 1 playlists:")
	a.Contains(out, "Playlist: Listening")
	a.Contains(out, "Position 0: First")
}

func TestCheckStrict(t *testing.T) {
	ctx := context.Background()

	h := newHarness(t)

	s := storetest.OpenAt(t, h.dbPath)
	require.NoError(t, s.UpsertPlaylistItem(ctx, storetest.PlaylistItem("i1", "PL9", "v9", 0)))

	for _, tc := range []struct {
		name string
		args []string
		code int
	}{
		{"lenient", []string{"check"}, 0},
		{"strict", []string{"check", "--strict"}, 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			out, err := h.run(t, tc.args...)
			if tc.code == 0 {
				a.NoError(err)
			} else {
				a.Equal(tc.code, cli.ExitCode(err))
			}

			a.Contains(out, "Dangling references: 1\n - item i1: missing playlist PL9 and video v9\n")
		})
	}
}

func TestConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	fromFile := filepath.Join(dir, "file.db")
	fromFlag := filepath.Join(dir, "flag.db")
	fromEnv := filepath.Join(dir, "env.db")

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("application_database: "+fromFile+"\n"), 0644))

	for _, tc := range []struct {
		name   string
		env    []string
		args   []string
		expect string
	}{
		{"file", nil, []string{"--config=" + configPath}, fromFile},
		{"flag over file", nil, []string{"--config=" + configPath, "--application_database=" + fromFlag}, fromFlag},
		{"env over flag", []string{"application_database=" + fromEnv}, []string{"--application_database=" + fromFlag}, fromEnv},
		{"file from env", []string{"config=" + configPath}, nil, fromFile},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			for _, p := range []string{fromFile, fromFlag, fromEnv} {
				os.Remove(p)
			}

			h := newHarness(t, tc.env...)
			h.dbPath = ""

			_, err := h.run(t, append(tc.args, "check")...)
			require.NoError(t, err)

			for _, p := range []string{fromFile, fromFlag, fromEnv} {
				_, err := os.Stat(p)
				a.Equal(p == tc.expect, err == nil, p)
			}
		})
	}
}

func TestConfigValidation(t *testing.T) {
	a := assert.New(t)

	h := newHarness(t, "youtube_requests_per_second=-1")

	_, err := h.run(t, "check")
	if a.Error(err) {
		a.Contains(err.Error(), "youtube_requests_per_second")
	}
}

func TestHandler(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	s := storetest.Open(t)
	require.NoError(t, s.UpsertPlaylist(ctx, storetest.Playlist("PL1", "Listening", 1)))

	logger, hook := test.NewNullLogger()

	rt := &cli.Runtime{Logger: logger, DB: s.DB(), Store: s, HTTP: &http.Client{}}
	h := cli.NewHandler(ctx, rt, nil)

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/playlists/PL1", nil))

	a.Equal(http.StatusOK, rw.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	a.Equal("Listening", body["title"])

	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/ingest", nil))
	a.Equal(http.StatusNotFound, rw.Code)

	a.NotEmpty(hook.AllEntries())
}
