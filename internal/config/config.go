// Package config provides configuration management for the signage daemons.
// Precedence is ENV > file > defaults, matching how every other knob in the
// system is tuned in deployment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Env keys understood by the loader.
const (
	EnvListenAddr     = "SIGNAGE_LISTEN"
	EnvMediaDir       = "SIGNAGE_MEDIA_DIR"
	EnvMaxUploadMB    = "SIGNAGE_MAX_UPLOAD_MB"
	EnvUploadRateRPM  = "SIGNAGE_UPLOAD_RATE_RPM"
	EnvSendTimeout    = "SIGNAGE_SEND_TIMEOUT"
	EnvLogLevel       = "SIGNAGE_LOG_LEVEL"
	EnvServerURL      = "SIGNAGE_SERVER_URL"
	EnvDeviceID       = "SIGNAGE_DEVICE_ID"
	EnvStorageDir     = "SIGNAGE_STORAGE_DIR"
	EnvMediaRoot      = "SIGNAGE_MEDIA_ROOT"
	EnvFetchTimeout   = "SIGNAGE_FETCH_TIMEOUT"
	EnvImageSeconds   = "SIGNAGE_IMAGE_SECONDS"
	EnvVideoSeconds   = "SIGNAGE_VIDEO_SECONDS"
	EnvPlayMode       = "SIGNAGE_PLAY_MODE"
	EnvLoop           = "SIGNAGE_LOOP"
)

// Server holds the signaged configuration.
type Server struct {
	ListenAddr      string
	MediaDir        string
	MaxUploadBytes  int64
	UploadRateRPM   int
	SendTimeout     time.Duration
	LogLevel        string
	ShutdownTimeout time.Duration
}

// Player holds the screend configuration.
type Player struct {
	ServerURL    string // http(s) base used for media downloads
	DeviceID     string
	StorageDir   string // device-side flat download cache
	MediaRoot    string // images/, videos/, queue/media_queue.json
	FetchTimeout time.Duration
	ImageSeconds int
	VideoSeconds int
	PlayMode     string // "sequential" or "random"
	Loop         bool
	LogLevel     string
}

// QueuePath returns the location of the playback queue file under the media root.
func (p Player) QueuePath() string {
	return filepath.Join(p.MediaRoot, "queue", "media_queue.json")
}

// FileConfig is the YAML configuration structure shared by both daemons.
type FileConfig struct {
	LogLevel string `yaml:"logLevel,omitempty"`

	Server struct {
		Listen        string `yaml:"listen,omitempty"`
		MediaDir      string `yaml:"mediaDir,omitempty"`
		MaxUploadMB   int    `yaml:"maxUploadMB,omitempty"`
		UploadRateRPM int    `yaml:"uploadRateRPM,omitempty"`
		SendTimeout   string `yaml:"sendTimeout,omitempty"`
	} `yaml:"server,omitempty"`

	Player struct {
		ServerURL    string `yaml:"serverUrl,omitempty"`
		DeviceID     string `yaml:"deviceId,omitempty"`
		StorageDir   string `yaml:"storageDir,omitempty"`
		MediaRoot    string `yaml:"mediaRoot,omitempty"`
		FetchTimeout string `yaml:"fetchTimeout,omitempty"`
		ImageSeconds int    `yaml:"imageSeconds,omitempty"`
		VideoSeconds int    `yaml:"videoSeconds,omitempty"`
		PlayMode     string `yaml:"playMode,omitempty"`
		Loop         *bool  `yaml:"loop,omitempty"`
	} `yaml:"player,omitempty"`
}

func loadFile(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

// LoadServer loads the signaged configuration with precedence ENV > file > defaults.
// An empty path skips the file layer.
func LoadServer(path string) (Server, error) {
	cfg := Server{
		ListenAddr:      ":8080",
		MediaDir:        "uploads",
		MaxUploadBytes:  200 << 20,
		UploadRateRPM:   30,
		SendTimeout:     5 * time.Second,
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
	}

	if path != "" {
		fc, err := loadFile(path)
		if err != nil {
			return cfg, err
		}
		if fc.LogLevel != "" {
			cfg.LogLevel = fc.LogLevel
		}
		if fc.Server.Listen != "" {
			cfg.ListenAddr = fc.Server.Listen
		}
		if fc.Server.MediaDir != "" {
			cfg.MediaDir = fc.Server.MediaDir
		}
		if fc.Server.MaxUploadMB > 0 {
			cfg.MaxUploadBytes = int64(fc.Server.MaxUploadMB) << 20
		}
		if fc.Server.UploadRateRPM > 0 {
			cfg.UploadRateRPM = fc.Server.UploadRateRPM
		}
		if fc.Server.SendTimeout != "" {
			d, err := time.ParseDuration(fc.Server.SendTimeout)
			if err != nil {
				return cfg, fmt.Errorf("server.sendTimeout: %w", err)
			}
			cfg.SendTimeout = d
		}
	}

	cfg.ListenAddr = ParseString(EnvListenAddr, cfg.ListenAddr)
	cfg.MediaDir = ParseString(EnvMediaDir, cfg.MediaDir)
	if mb := ParseInt(EnvMaxUploadMB, 0); mb > 0 {
		cfg.MaxUploadBytes = int64(mb) << 20
	}
	cfg.UploadRateRPM = ParseInt(EnvUploadRateRPM, cfg.UploadRateRPM)
	cfg.SendTimeout = ParseDuration(EnvSendTimeout, cfg.SendTimeout)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)

	if abs, err := filepath.Abs(cfg.MediaDir); err == nil {
		cfg.MediaDir = abs
	}
	return cfg, cfg.validate()
}

func (c Server) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("send timeout must be positive")
	}
	return nil
}

// LoadPlayer loads the screend configuration with precedence ENV > file > defaults.
func LoadPlayer(path string) (Player, error) {
	cfg := Player{
		ServerURL:    "http://localhost:8080",
		DeviceID:     defaultDeviceID(),
		StorageDir:   "device_storage",
		MediaRoot:    "shared_media",
		FetchTimeout: 15 * time.Second,
		ImageSeconds: 5,
		VideoSeconds: 10,
		PlayMode:     "sequential",
		Loop:         true,
		LogLevel:     "info",
	}

	if path != "" {
		fc, err := loadFile(path)
		if err != nil {
			return cfg, err
		}
		if fc.LogLevel != "" {
			cfg.LogLevel = fc.LogLevel
		}
		if fc.Player.ServerURL != "" {
			cfg.ServerURL = fc.Player.ServerURL
		}
		if fc.Player.DeviceID != "" {
			cfg.DeviceID = fc.Player.DeviceID
		}
		if fc.Player.StorageDir != "" {
			cfg.StorageDir = fc.Player.StorageDir
		}
		if fc.Player.MediaRoot != "" {
			cfg.MediaRoot = fc.Player.MediaRoot
		}
		if fc.Player.FetchTimeout != "" {
			d, err := time.ParseDuration(fc.Player.FetchTimeout)
			if err != nil {
				return cfg, fmt.Errorf("player.fetchTimeout: %w", err)
			}
			cfg.FetchTimeout = d
		}
		if fc.Player.ImageSeconds > 0 {
			cfg.ImageSeconds = fc.Player.ImageSeconds
		}
		if fc.Player.VideoSeconds > 0 {
			cfg.VideoSeconds = fc.Player.VideoSeconds
		}
		if fc.Player.PlayMode != "" {
			cfg.PlayMode = fc.Player.PlayMode
		}
		if fc.Player.Loop != nil {
			cfg.Loop = *fc.Player.Loop
		}
	}

	cfg.ServerURL = ParseString(EnvServerURL, cfg.ServerURL)
	cfg.DeviceID = ParseString(EnvDeviceID, cfg.DeviceID)
	cfg.StorageDir = ParseString(EnvStorageDir, cfg.StorageDir)
	cfg.MediaRoot = ParseString(EnvMediaRoot, cfg.MediaRoot)
	cfg.FetchTimeout = ParseDuration(EnvFetchTimeout, cfg.FetchTimeout)
	cfg.ImageSeconds = ParseInt(EnvImageSeconds, cfg.ImageSeconds)
	cfg.VideoSeconds = ParseInt(EnvVideoSeconds, cfg.VideoSeconds)
	cfg.PlayMode = ParseString(EnvPlayMode, cfg.PlayMode)
	cfg.Loop = ParseBool(EnvLoop, cfg.Loop)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)

	return cfg, cfg.validate()
}

func (p Player) validate() error {
	if p.ServerURL == "" {
		return fmt.Errorf("server URL must not be empty")
	}
	if p.PlayMode != "sequential" && p.PlayMode != "random" {
		return fmt.Errorf("play mode must be sequential or random, got %q", p.PlayMode)
	}
	if p.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if p.ImageSeconds <= 0 || p.VideoSeconds <= 0 {
		return fmt.Errorf("display durations must be positive")
	}
	return nil
}

func defaultDeviceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "SCREEN_001"
}
