package updater

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKaggle struct {
	lastUpdated string
	archive     []byte
	listStatus  int
	downloads   atomic.Int32
}

func (f *fakeKaggle) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/datasets/list", func(w http.ResponseWriter, r *http.Request) {
		user, key, ok := r.BasicAuth()
		if !ok || user != "tester" || key != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.listStatus != 0 {
			w.WriteHeader(f.listStatus)
			return
		}
		assert.Equal(t, DefaultDataset, r.URL.Query().Get("search"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"ref":"ludmin/billboard","lastUpdated":"` + f.lastUpdated + `"}]`))
	})
	mux.HandleFunc("/api/v1/datasets/download/ludmin/billboard", func(w http.ResponseWriter, _ *http.Request) {
		f.downloads.Add(1)
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(f.archive)
	})
	return mux
}

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type fixture struct {
	updater *Updater
	kaggle  *fakeKaggle
	dataDir string
	desktop string
}

func newFixture(t *testing.T, kaggle *fakeKaggle, withCreds bool) fixture {
	t.Helper()
	srv := httptest.NewServer(kaggle.handler(t))
	t.Cleanup(srv.Close)

	home := t.TempDir()
	credsPath := filepath.Join(home, ".kaggle", "kaggle.json")
	if withCreds {
		require.NoError(t, os.MkdirAll(filepath.Dir(credsPath), 0o700))
		require.NoError(t, os.WriteFile(credsPath, []byte(`{"username":"tester","key":"secret"}`), 0o600))
	}

	cfg := Config{
		APIBaseURL:      srv.URL + "/api/v1",
		DataDir:         filepath.Join(home, "data"),
		CredentialsPath: credsPath,
		DesktopPath:     filepath.Join(home, "Desktop", "hot100.csv"),
		Timeout:         5 * time.Second,
	}
	u, err := New(cfg, nil)
	require.NoError(t, err)
	u.now = func() time.Time { return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC) }
	return fixture{updater: u, kaggle: kaggle, dataDir: cfg.DataDir, desktop: cfg.DesktopPath}
}

func writeMeta(t *testing.T, dir string, lastUpdated time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data, err := json.Marshal(Metadata{Dataset: DefaultDataset, LastUpdated: lastUpdated})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFile), data, 0o644))
}

func TestRunWithoutCredentials(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeKaggle{lastUpdated: "2024-02-10T00:00:00Z"}, false)
	_, err := f.updater.Run(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)

	info, statErr := os.Stat(f.dataDir)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir(), "data dir is created before the credential check")
	assert.Zero(t, f.kaggle.downloads.Load())
}

func TestRunFirstDownload(t *testing.T) {
	t.Parallel()

	kaggle := &fakeKaggle{
		lastUpdated: "2024-02-10T08:30:00.123Z",
		archive: zipOf(t, map[string]string{
			"billboard-200-current.csv": "date,rank\n",
			"hot-100-current.csv":       "date,rank,song\n2024-02-10,1,A\n",
		}),
	}
	f := newFixture(t, kaggle, true)

	res, err := f.updater.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, int32(1), kaggle.downloads.Load())
	require.Len(t, res.Files, 2)
	assert.Equal(t, "billboard-200-current.csv", res.Files[0].Name)
	assert.Equal(t, "hot-100-current.csv", res.Hot100File)
	assert.Equal(t, f.desktop, res.CopiedTo)

	copied, err := os.ReadFile(f.desktop)
	require.NoError(t, err)
	assert.Equal(t, "date,rank,song\n2024-02-10,1,A\n", string(copied))

	meta, err := f.updater.readMetadata()
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, DefaultDataset, meta.Dataset)
	assert.True(t, meta.LastUpdated.Equal(time.Date(2024, time.February, 10, 8, 30, 0, 123000000, time.UTC)))
	assert.Equal(t, 2024, meta.DownloadedAt.Year())

	leftovers, err := filepath.Glob(filepath.Join(f.dataDir, ".download-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRunUpToDateSkipsDownload(t *testing.T) {
	t.Parallel()

	kaggle := &fakeKaggle{lastUpdated: "2024-02-10T00:00:00"}
	f := newFixture(t, kaggle, true)
	writeMeta(t, f.dataDir, time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC))

	res, err := f.updater.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Zero(t, kaggle.downloads.Load())
	_, statErr := os.Stat(f.desktop)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunNewerRemoteDownloads(t *testing.T) {
	t.Parallel()

	kaggle := &fakeKaggle{
		lastUpdated: "2024-02-17T00:00:00Z",
		archive:     zipOf(t, map[string]string{"charts.csv": "x\n"}),
	}
	f := newFixture(t, kaggle, true)
	writeMeta(t, f.dataDir, time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC))

	res, err := f.updater.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, "charts.csv", res.Hot100File, "falls back to the first csv")
}

func TestRunRejectsPathTraversal(t *testing.T) {
	t.Parallel()

	kaggle := &fakeKaggle{
		lastUpdated: "2024-02-17T00:00:00Z",
		archive:     zipOf(t, map[string]string{"../evil.csv": "x"}),
	}
	f := newFixture(t, kaggle, true)

	_, err := f.updater.Run(context.Background())
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(filepath.Dir(f.dataDir), "evil.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunListFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeKaggle{listStatus: http.StatusInternalServerError}, true)
	_, err := f.updater.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestRunFailedDownloadStillCopiesExistingHot100(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeKaggle{listStatus: http.StatusInternalServerError}, true)
	require.NoError(t, os.MkdirAll(f.dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.dataDir, "hot-100-current.csv"), []byte("date,rank\n"), 0o644))

	res, err := f.updater.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.False(t, res.Updated)
	assert.Equal(t, "hot-100-current.csv", res.Hot100File)
	assert.Equal(t, f.desktop, res.CopiedTo)

	copied, readErr := os.ReadFile(f.desktop)
	require.NoError(t, readErr)
	assert.Equal(t, "date,rank\n", string(copied))
}

func TestRunFailedDownloadWithMetadataSkipsCopy(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeKaggle{listStatus: http.StatusInternalServerError}, true)
	writeMeta(t, f.dataDir, time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, os.WriteFile(filepath.Join(f.dataDir, "hot-100-current.csv"), []byte("date,rank\n"), 0o644))

	res, err := f.updater.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, res.CopiedTo)
	_, statErr := os.Stat(f.desktop)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFindHot100(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hot100.csv", FindHot100([]File{{Name: "a.csv"}, {Name: "hot100.csv"}, {Name: "hot_100.csv"}}))
	assert.Equal(t, "a.csv", FindHot100([]File{{Name: "a.csv"}, {Name: "b.csv"}}))
	assert.Empty(t, FindHot100(nil))
}

func TestLoadCredentialsValidation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "kaggle.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"username":"only"}`), 0o600))

	_, err := LoadCredentials(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotConfigured)

	_, err = LoadCredentials(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"2024-02-10T08:30:00Z", "2024-02-10T08:30:00", "2024-02-10 08:30:00", "2024-02-10T09:30:00+01:00"} {
		got, err := parseTimestamp(raw)
		require.NoError(t, err, raw)
		assert.True(t, got.Equal(time.Date(2024, time.February, 10, 8, 30, 0, 0, time.UTC)), raw)
	}
	_, err := parseTimestamp("last tuesday")
	require.Error(t, err)
}
