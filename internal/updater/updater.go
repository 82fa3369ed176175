package updater

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Defaults applied by New when Config leaves a field empty.
const (
	DefaultDataset    = "ludmin/billboard"
	DefaultAPIBaseURL = "https://www.kaggle.com/api/v1"
	DefaultDataDir    = "data"
	DefaultTimeout    = 5 * time.Minute
	MetadataFile      = "metadata.json"
)

// ErrNotConfigured reports missing Kaggle API credentials.
var ErrNotConfigured = errors.New("kaggle api not configured")

// hot100Candidates are checked in order before falling back to the first CSV.
var hot100Candidates = []string{
	"hot-100-current.csv",
	"hot100.csv",
	"billboard_hot_100.csv",
	"hot_100.csv",
}

// Config controls the Updater.
type Config struct {
	Dataset         string
	APIBaseURL      string
	DataDir         string
	CredentialsPath string
	DesktopPath     string
	Timeout         time.Duration
}

// Metadata describes the locally downloaded snapshot.
type Metadata struct {
	Dataset      string    `json:"dataset"`
	LastUpdated  time.Time `json:"lastUpdated"`
	DownloadedAt time.Time `json:"downloadedAt"`
}

// File is one CSV in the data directory.
type File struct {
	Name string
	Size int64
}

// Result reports what a Run did.
type Result struct {
	Updated     bool
	LastUpdated time.Time
	Files       []File
	Hot100File  string
	CopiedTo    string
}

// Updater keeps the local dataset snapshot current.
type Updater struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New builds an Updater, filling defaults relative to the user's home directory.
func New(cfg Config, logger *zap.Logger) (*Updater, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CredentialsPath == "" || cfg.DesktopPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		if cfg.CredentialsPath == "" {
			cfg.CredentialsPath = filepath.Join(home, ".kaggle", "kaggle.json")
		}
		if cfg.DesktopPath == "" {
			cfg.DesktopPath = filepath.Join(home, "Desktop", "hot100.csv")
		}
	}
	return &Updater{cfg: cfg, logger: logger, now: time.Now}, nil
}

// Run checks the remote dataset and downloads it when it is newer than the
// local snapshot or no snapshot exists. After a download the Hot 100 file is
// copied to the desktop path.
func (u *Updater) Run(ctx context.Context) (Result, error) {
	var res Result
	if err := os.MkdirAll(u.cfg.DataDir, 0o755); err != nil {
		return res, fmt.Errorf("create data dir: %w", err)
	}
	u.logger.Info("data directory ready", zap.String("path", u.cfg.DataDir))

	creds, err := LoadCredentials(u.cfg.CredentialsPath)
	if errors.Is(err, ErrNotConfigured) {
		u.logSetupInstructions()
		return res, err
	}
	if err != nil {
		return res, err
	}

	local, err := u.readMetadata()
	if err != nil {
		u.logger.Warn("local metadata unreadable; treating as absent", zap.Error(err))
		local = nil
	}

	client := newKaggleClient(u.cfg.APIBaseURL, creds, u.cfg.Timeout)
	u.logger.Info("checking for latest dataset", zap.String("dataset", u.cfg.Dataset))
	remote, err := client.lastUpdated(ctx, u.cfg.Dataset)
	if err != nil {
		return u.fallback(res, local, err)
	}
	res.LastUpdated = remote

	if local != nil && !remote.After(local.LastUpdated) {
		u.logger.Info("dataset is up to date", zap.String("last_updated", local.LastUpdated.Format(time.DateOnly)))
		return res, nil
	}

	u.logger.Info("downloading dataset",
		zap.String("dataset", u.cfg.Dataset),
		zap.String("last_updated", remote.Format(time.DateOnly)),
	)
	if err := u.downloadAndExtract(ctx, client); err != nil {
		return u.fallback(res, local, err)
	}
	meta := Metadata{Dataset: u.cfg.Dataset, LastUpdated: remote, DownloadedAt: u.now().UTC()}
	if err := u.writeMetadata(meta); err != nil {
		return res, err
	}
	res.Updated = true

	res.Files, err = u.listCSVs()
	if err != nil {
		return res, err
	}
	for _, f := range res.Files {
		u.logger.Info("downloaded file", zap.String("name", f.Name), zap.Int64("bytes", f.Size))
	}

	if err := u.publishHot100(&res); err != nil {
		return res, err
	}
	return res, nil
}

// fallback still publishes a previously unpacked Hot 100 file when no metadata
// exists, then reports the download error.
func (u *Updater) fallback(res Result, local *Metadata, cause error) (Result, error) {
	if local != nil {
		return res, cause
	}
	files, err := u.listCSVs()
	if err != nil {
		return res, errors.Join(cause, err)
	}
	res.Files = files
	if err := u.publishHot100(&res); err != nil {
		return res, errors.Join(cause, err)
	}
	return res, cause
}

func (u *Updater) logSetupInstructions() {
	u.logger.Warn("kaggle api not configured",
		zap.String("credentials_path", u.cfg.CredentialsPath),
		zap.Strings("steps", []string{
			"open https://www.kaggle.com/settings",
			"in the API section click 'Create New API Token'",
			"save kaggle.json to " + u.cfg.CredentialsPath,
			"run: chmod 600 " + u.cfg.CredentialsPath,
		}),
	)
}

func (u *Updater) metadataPath() string {
	return filepath.Join(u.cfg.DataDir, MetadataFile)
}

// readMetadata returns nil without error when no metadata was written yet.
func (u *Updater) readMetadata() (*Metadata, error) {
	data, err := os.ReadFile(u.metadataPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

func (u *Updater) writeMetadata(meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(u.metadataPath(), data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func (u *Updater) downloadAndExtract(ctx context.Context, client *kaggleClient) error {
	tmp, err := os.CreateTemp(u.cfg.DataDir, ".download-*.zip")
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}
	archivePath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(archivePath)

	if err := client.download(ctx, u.cfg.Dataset, archivePath); err != nil {
		return err
	}
	return unzip(archivePath, u.cfg.DataDir)
}

// unzip extracts every regular file of the archive under dir, rejecting
// entries that would land outside it.
func unzip(archivePath, dir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	for _, f := range r.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes data dir", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", f.Name, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", f.Name, err)
	}
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target, err)
	}
	return nil
}

// listCSVs returns the CSV files of the data directory sorted by name.
func (u *Updater) listCSVs() ([]File, error) {
	matches, err := filepath.Glob(filepath.Join(u.cfg.DataDir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("list csv files: %w", err)
	}
	sort.Strings(matches)
	files := make([]File, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", m, err)
		}
		files = append(files, File{Name: filepath.Base(m), Size: info.Size()})
	}
	return files, nil
}

// FindHot100 returns the Hot 100 file among files, preferring the known names
// and falling back to the first file. It returns "" when files is empty.
func FindHot100(files []File) string {
	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		present[f.Name] = struct{}{}
	}
	for _, name := range hot100Candidates {
		if _, ok := present[name]; ok {
			return name
		}
	}
	if len(files) > 0 {
		return files[0].Name
	}
	return ""
}

func (u *Updater) publishHot100(res *Result) error {
	name := FindHot100(res.Files)
	if name == "" {
		u.logger.Warn("no csv files in data directory")
		return nil
	}
	res.Hot100File = name
	u.logger.Info("hot 100 data file", zap.String("name", name))

	if err := copyFile(filepath.Join(u.cfg.DataDir, name), u.cfg.DesktopPath); err != nil {
		return fmt.Errorf("copy hot 100 file: %w", err)
	}
	res.CopiedTo = u.cfg.DesktopPath
	u.logger.Info("copied hot 100 file", zap.String("path", u.cfg.DesktopPath))
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
