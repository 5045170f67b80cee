package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/adrg/xdg"
	"github.com/nao1215/boardwatch/internal/extract"
	"github.com/nao1215/boardwatch/internal/fetch"
	"github.com/nao1215/boardwatch/internal/stream"
)

const (
	// AppName is the application name used for XDG directory paths.
	AppName = "boardwatch"

	// DefaultTimeout bounds a whole request, body included. Boards served
	// over Tor need the generous end of this.
	DefaultTimeout = 60 * time.Second

	// DefaultChunkSize is the default fragment size.
	DefaultChunkSize = stream.DefaultBufferSize

	// MinChunkSize is the smallest fragment that holds any UTF-8 encoding.
	MinChunkSize = utf8.UTFMax

	// DefaultConcurrency is the number of boards fetched at once.
	DefaultConcurrency = 4

	// DefaultUserAgent identifies boardwatch in HTTP requests.
	DefaultUserAgent = "boardwatch/1.0 (+https://github.com/nao1215/boardwatch)"

	// DefaultMaxBodySize limits how much of a board page is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultHistoryLimit is the number of rows history prints per table.
	DefaultHistoryLimit = 20
)

// Config holds all options of one boardwatch run. It is populated from CLI
// flags and passed down explicitly.
type Config struct {
	// Sources are the board URLs to fetch.
	Sources []string

	// ProxyAddress is a SOCKS5 proxy in "host:port" form. Empty means a
	// direct connection.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes requests through it.
	UseTor bool

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// Timeout bounds each request, including reading the body.
	Timeout time.Duration

	// ChunkSize is the fragment size handed to the scanner.
	ChunkSize int

	// Concurrency is the number of sources fetched at once.
	Concurrency int

	// LegacyMarkers selects the older table layout (</span> ... </td>
	// bodies) for every source.
	LegacyMarkers bool

	// Exclusions are tokens whose presence in a raw header drops the post.
	Exclusions []string

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize caps the bytes read per board. Zero uses the default.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches the log output to JSON.
	LogJSON bool

	// ConfigFilePath is an explicit path to the configuration file. When
	// empty, .boardwatch is searched in the current and home directories.
	ConfigFilePath string

	// File holds the loaded configuration file, if any.
	File *File

	// JSONReport and MarkdownReport select the output format. Both false
	// streams the plain "Header:" / "Body:" lines.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile redirects the report from stdout to a file.
	ReportFile string

	// DBDir is the directory of the post history database.
	DBDir string

	// SaveToDB records posts and fetches in the history database.
	SaveToDB bool
}

// NewConfig returns a Config with the defaults filled in.
func NewConfig() *Config {
	return &Config{
		TorStartupTimeout: DefaultTorStartupTimeout,
		Timeout:           DefaultTimeout,
		ChunkSize:         DefaultChunkSize,
		Concurrency:       DefaultConcurrency,
		Exclusions:        []string{extract.DefaultExclusion},
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
	}
}

// XDGDataDir returns the data directory for boardwatch,
// ~/.local/share/boardwatch on Linux.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory for boardwatch.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate returns the first problem found in the configuration.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSource
	}
	for _, s := range c.Sources {
		if !isHTTPURL(s) {
			return fmt.Errorf("%w: %q", ErrInvalidSource, s)
		}
		if err := c.validateOnion(s); err != nil {
			return err
		}
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ChunkSize < MinChunkSize {
		return ErrInvalidChunkSize
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingProxy
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}

// Source returns the settings for one board, merged from the file
// defaults, the file's entry for the source and this Config.
func (c *Config) Source(source string) SourceConfig {
	var sc SourceConfig
	if c.File != nil {
		sc = c.File.GetSourceConfig(source)
	}
	if c.LegacyMarkers {
		sc.Legacy = true
	}
	return sc
}

// Markers returns the marker set for sc.
func (c *Config) Markers(sc SourceConfig) (extract.MarkerSet, error) {
	base := extract.DefaultMarkers()
	if sc.Legacy {
		base = extract.LegacyMarkers()
	}
	if sc.Markers == nil {
		return base, nil
	}
	return sc.Markers.apply(base)
}

// ExclusionsFor returns the run's exclusion tokens plus the source's own.
func (c *Config) ExclusionsFor(sc SourceConfig) []string {
	out := make([]string, 0, len(c.Exclusions)+len(sc.Exclude))
	out = append(out, c.Exclusions...)
	return append(out, sc.Exclude...)
}

// validateOnion checks an onion source. Other sources pass.
func (c *Config) validateOnion(s string) error {
	if !fetch.IsOnionURL(s) {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidSource, s)
	}
	if !fetch.ValidOnionHost(u.Hostname()) {
		return fmt.Errorf("%w: %q", ErrInvalidOnionAddress, u.Hostname())
	}
	if !c.UseTor && c.ProxyAddress == "" {
		return fmt.Errorf("%w: %q", ErrOnionWithoutProxy, s)
	}
	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
