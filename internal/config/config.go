package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type LevelList []logrus.Level

func (a LevelList) MarshalText() ([]byte, error) {
	if len(a) == 0 {
		return []byte("-"), nil
	}

	var s []string
	for _, e := range a {
		s = append(s, e.String())
	}

	return []byte(strings.Join(s, ",")), nil
}

func (a *LevelList) UnmarshalText(d []byte) error {
	if string(d) == "" || string(d) == "-" {
		*a = LevelList{}
		return nil
	}

	var aa LevelList

	for _, e := range strings.Split(string(d), ",") {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}

		l, err := logrus.ParseLevel(e)
		if err != nil {
			return fmt.Errorf("config.LevelList.UnmarshalText: could not parse value as logrus level: %w", err)
		}

		aa = append(aa, l)
	}

	*a = aa

	return nil
}

type LogQueries struct {
	Enabled    bool
	SlowerThan time.Duration
}

func (l LogQueries) String() string {
	if !l.Enabled {
		return "none"
	}

	if l.SlowerThan != 0 {
		return ">" + l.SlowerThan.String()
	}

	return "all"
}

func (l LogQueries) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *LogQueries) UnmarshalText(d []byte) error {
	s := string(d)

	switch s {
	case "all":
		*l = LogQueries{Enabled: true}
		return nil
	case "", "none":
		*l = LogQueries{}
		return nil
	}

	if s[0] != '>' || len(s) < 2 {
		return fmt.Errorf("config.LogQueries.UnmarshalText: unrecognised input %q; valid options are none, all, or >x where x is a duration", s)
	}

	v, err := time.ParseDuration(s[1:])
	if err != nil {
		return fmt.Errorf("config.LogQueries.UnmarshalText: could not parse value as duration: %w", err)
	}

	*l = LogQueries{Enabled: true, SlowerThan: v}

	return nil
}

func (l *LogQueries) IsZero() bool {
	return !l.Enabled && l.SlowerThan == 0
}

// LookupMode selects how playlist items are resolved to videos during a
// sync: one request per item, or chunked requests after the listing ends.
type LookupMode string

const (
	LookupItem  = LookupMode("item")
	LookupBatch = LookupMode("batch")
)

func (m LookupMode) MarshalText() ([]byte, error) {
	if m == "" {
		return []byte(LookupItem), nil
	}

	return []byte(m), nil
}

func (m *LookupMode) UnmarshalText(d []byte) error {
	switch v := LookupMode(strings.ToLower(strings.TrimSpace(string(d)))); v {
	case "":
		*m = LookupItem
		return nil
	case LookupItem, LookupBatch:
		*m = v
		return nil
	default:
		return fmt.Errorf("config.LookupMode.UnmarshalText: unrecognised input %q; valid options are item or batch", string(d))
	}
}

// RemoteSource picks the implementation used for single video lookups.
type RemoteSource string

const (
	RemoteAPI    = RemoteSource("api")
	RemoteDirect = RemoteSource("direct")
)

func (s RemoteSource) MarshalText() ([]byte, error) {
	if s == "" {
		return []byte(RemoteAPI), nil
	}

	return []byte(s), nil
}

func (s *RemoteSource) UnmarshalText(d []byte) error {
	switch v := RemoteSource(strings.ToLower(strings.TrimSpace(string(d)))); v {
	case "":
		*s = RemoteAPI
		return nil
	case RemoteAPI, RemoteDirect:
		*s = v
		return nil
	default:
		return fmt.Errorf("config.RemoteSource.UnmarshalText: unrecognised input %q; valid options are api or direct", string(d))
	}
}

type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = 0
		return nil
	}

	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("config.Duration.UnmarshalText: %w", err)
	}

	*d = Duration(v)

	return nil
}

type Config struct {
	Config                   string       `name:"config" toml:"config" yaml:"config" help:"Config file location."`
	LogLevel                 logrus.Level `name:"log_level" toml:"log_level" yaml:"log_level" help:"Global log level."`
	LogDebugLevels           LevelList    `name:"log_debug_levels" toml:"log_debug_levels" yaml:"log_debug_levels" help:"Which log levels to include stack data on."`
	LogQueries               LogQueries   `name:"log_queries" toml:"log_queries" yaml:"log_queries" help:"Log SQL queries."`
	LogSORM                  bool         `name:"log_sorm" toml:"log_sorm" yaml:"log_sorm" help:"Log SORM queries."`
	ApplicationAddr          string       `name:"application_addr" toml:"application_addr" yaml:"application_addr" help:"Address to listen on for the API server."`
	ApplicationDatabase      string       `name:"application_database" toml:"application_database" yaml:"application_database" help:"Database location for the local cache."`
	ApplicationCachePath     string       `name:"application_cache_path" toml:"application_cache_path" yaml:"application_cache_path" help:"Location for HTTP client cache; empty disables it."`
	ApplicationCacheMaxAge   Duration     `name:"application_cache_max_age" toml:"application_cache_max_age" yaml:"application_cache_max_age" help:"How long cached HTTP responses stay fresh."`
	YouTubeAPIKey            string       `name:"youtube_api_key" toml:"youtube_api_key" yaml:"youtube_api_key" help:"API key for the YouTube Data API."`
	YouTubeTokenFile         string       `name:"youtube_token_file" toml:"youtube_token_file" yaml:"youtube_token_file" help:"OAuth2 token file (JSON) for the YouTube Data API."`
	YouTubeChannelID         string       `name:"youtube_channel_id" toml:"youtube_channel_id" yaml:"youtube_channel_id" help:"Channel whose playlists are mirrored; empty means the token owner's."`
	YouTubeRequestsPerSecond int          `name:"youtube_requests_per_second" toml:"youtube_requests_per_second" yaml:"youtube_requests_per_second" help:"Upper bound on remote requests per second; 0 disables pacing."`
	YouTubeLookup            RemoteSource `name:"youtube_lookup" toml:"youtube_lookup" yaml:"youtube_lookup" help:"Where single video lookups go (api or direct)."`
	SyncVideoLookup          LookupMode   `name:"sync_video_lookup" toml:"sync_video_lookup" yaml:"sync_video_lookup" help:"How playlist items are resolved to videos (item or batch)."`
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	if c.ApplicationDatabase == "" {
		return fmt.Errorf("config.Validate: application_database must be set")
	}

	if c.YouTubeRequestsPerSecond < 0 {
		return fmt.Errorf("config.Validate: youtube_requests_per_second must not be negative")
	}

	return nil
}

// CanListPlaylists is false for an API key without a channel, since only a
// token can stand in for "my playlists".
func (c Config) CanListPlaylists() bool {
	return c.YouTubeTokenFile != "" || (c.YouTubeAPIKey != "" && c.YouTubeChannelID != "")
}

// HasCredentials is true when the API can be used at all.
func (c Config) HasCredentials() bool {
	return c.YouTubeAPIKey != "" || c.YouTubeTokenFile != ""
}
