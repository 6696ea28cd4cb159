// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables and
// an optional JSON config file.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"
)

// Tunables holds the motion-analysis parameters of the camera entropy
// source. Every threshold that has ever been retuned lives here as a named
// option so behavior cannot silently drift between builds.
type Tunables struct {
	// FrameCount is the number of frames captured per sample.
	FrameCount int `json:"frameCount"`
	// FrameDelayMS is the minimum delay between consecutive frames in
	// milliseconds, so frames are never bit-identical.
	FrameDelayMS int `json:"frameDelayMs"`
	// Gain amplifies inter-frame differences to surface weak motion.
	Gain float64 `json:"gain"`
	// BackgroundAlpha is the exponential smoothing factor of the running
	// background estimate used to tolerate lighting drift.
	BackgroundAlpha float64 `json:"backgroundAlpha"`
	// DiffThreshold is the per-pixel cutoff (0-255) above which a pixel
	// counts as motion against the background estimate.
	DiffThreshold float64 `json:"diffThreshold"`
	// MinRegionArea is the minimum pixel area of a connected motion region.
	MinRegionArea int `json:"minRegionArea"`
	// LiveThreshold is the score above which a sample classifies as LIVE.
	LiveThreshold float64 `json:"liveThreshold"`
	// LowThreshold is the score above which a sample classifies as LOW.
	LowThreshold float64 `json:"lowThreshold"`
	// MeanWeight, StdWeight, PeakWeight and RegionWeight combine the
	// aggregate motion statistics into the final score.
	MeanWeight   float64 `json:"meanWeight"`
	StdWeight    float64 `json:"stdWeight"`
	PeakWeight   float64 `json:"peakWeight"`
	RegionWeight float64 `json:"regionWeight"`
}

// DefaultTunables returns the motion parameters tuned for a fish tank feed.
func DefaultTunables() Tunables {
	return Tunables{
		FrameCount:      10,
		FrameDelayMS:    150,
		Gain:            1.4,
		BackgroundAlpha: 0.3,
		DiffThreshold:   10,
		MinRegionArea:   30,
		LiveThreshold:   1.0,
		LowThreshold:    0.1,
		MeanWeight:      1.0,
		StdWeight:       0.5,
		PeakWeight:      0.1,
		RegionWeight:    0.2,
	}
}

// Options holds the configuration values for the application.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string `json:"addr"`

	// DatabaseDSN holds the connection string of the master-key store.
	DatabaseDSN string `json:"databaseDsn"`

	// APIKey is the shared secret expected in the X-FISH-AUTH header.
	APIKey string `json:"apiKey"`

	// EntropyMode selects the sampling strategy: "camera" or "demo".
	EntropyMode string `json:"entropyMode"`

	// CameraIndex is the video device index used in camera mode.
	CameraIndex int `json:"cameraIndex"`

	// UnlockWindowSeconds is the duration of a granted unlock window.
	UnlockWindowSeconds int `json:"unlockWindowSeconds"`

	// CaptureTimeoutSeconds bounds a single camera capture before the
	// source falls back to demo sampling.
	CaptureTimeoutSeconds int `json:"captureTimeoutSeconds"`

	// RequireLive tightens the liveness gate so only a LIVE sample (or a
	// demo-mode sample, which carries no motion signal) grants unlock.
	RequireLive bool `json:"requireLive"`

	// Config is the path to the config file.
	Config string `json:"-"`

	// Tunables holds the motion-analysis parameters.
	Tunables Tunables `json:"tunables"`
}

// options holds the current configuration values.
var options = &Options{Tunables: DefaultTunables()}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Addr, "a", "localhost:8000", "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.APIKey, "k", "dev_secret", "shared secret for the X-FISH-AUTH header")
	flag.StringVar(&options.EntropyMode, "m", "camera", "entropy mode: camera or demo")
	flag.IntVar(&options.CameraIndex, "camera", 0, "video device index")
	flag.IntVar(&options.UnlockWindowSeconds, "w", 600, "unlock window in seconds")
	flag.IntVar(&options.CaptureTimeoutSeconds, "t", 10, "camera capture timeout in seconds")
	flag.BoolVar(&options.RequireLive, "strict", false, "require a LIVE sample to grant unlock")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags, the optional JSON config file and
// environment variables to set configuration values. It returns a pointer to
// the Options struct containing the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	applyEnv(options)

	return options
}

// applyEnv overrides options with environment variables if set.
func applyEnv(o *Options) {
	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		o.Addr = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		o.DatabaseDSN = dsn
	}
	if key := os.Getenv("FISH_KMS_API_KEY"); key != "" {
		o.APIKey = key
	}
	if mode := os.Getenv("ENTROPY_MODE"); mode != "" {
		o.EntropyMode = mode
	}
	if idx := os.Getenv("CAMERA_INDEX"); idx != "" {
		if v, err := strconv.Atoi(idx); err == nil {
			o.CameraIndex = v
		}
	}
	if window := os.Getenv("UNLOCK_WINDOW_SECONDS"); window != "" {
		if v, err := strconv.Atoi(window); err == nil {
			o.UnlockWindowSeconds = v
		}
	}
}
