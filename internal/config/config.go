package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/vms-kiosk/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed endpoints.yaml
var endpointsYAML []byte

type Config struct {
	API    APIConfig
	Camera CameraConfig
	Kiosk  KioskConfig
	Web    WebConfig
	Log    LogConfig
}

type APIConfig struct {
	URL       string // VMSONE API base, e.g. http://localhost:3000/api
	Revision  string
	Endpoints Endpoints
}

// Endpoints are paths relative to APIConfig.URL.
type Endpoints struct {
	Login             string `yaml:"login"`
	Signup            string `yaml:"signup"`
	MatchFace         string `yaml:"match_face"`
	Visitors          string `yaml:"visitors"`
	ReturningVisitors string `yaml:"returning_visitors"`
	SendOTP           string `yaml:"send_otp"`
	VerifyOTP         string `yaml:"verify_otp"`
}

type CameraConfig struct {
	FFmpegPath   string        // defaults to ffmpeg
	InputFormat  string        // ffmpeg -f value, defaults to v4l2
	Device       string        // defaults to /dev/video0
	JPEGQuality  int           // defaults to 80
	StartTimeout time.Duration // time allowed until the first frame arrives
}

type KioskConfig struct {
	StateDir    string        // token persistence directory
	PrefillTTL  time.Duration // lifetime of the matched-visitor transfer slot
	OTPCooldown time.Duration
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type LogConfig struct {
	File       string // JSON log file with rotation; empty logs to console only
	Production bool
}

type endpointsFile struct {
	Default   string               `yaml:"default"`
	Revisions map[string]Endpoints `yaml:"revisions"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration reads a positive duration ("90s", "5m"), falling back to defaultVal.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "vms-kiosk")
	}
	return ".vms-kiosk"
}

// loadEndpoints returns the endpoint set for revision, with VMS_ENDPOINT_* overrides applied.
// Unknown revisions fall back to the file's default.
func loadEndpoints(revision string) (string, Endpoints) {
	var file endpointsFile
	if err := yaml.Unmarshal(endpointsYAML, &file); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded endpoints.yaml: " + err.Error())
	}

	ep, ok := file.Revisions[revision]
	if !ok {
		revision = file.Default
		ep = file.Revisions[revision]
	}

	ep.Login = envString("VMS_ENDPOINT_LOGIN", ep.Login)
	ep.Signup = envString("VMS_ENDPOINT_SIGNUP", ep.Signup)
	ep.MatchFace = envString("VMS_ENDPOINT_MATCH_FACE", ep.MatchFace)
	ep.Visitors = envString("VMS_ENDPOINT_VISITORS", ep.Visitors)
	ep.ReturningVisitors = envString("VMS_ENDPOINT_RETURNING_VISITORS", ep.ReturningVisitors)
	ep.SendOTP = envString("VMS_ENDPOINT_SEND_OTP", ep.SendOTP)
	ep.VerifyOTP = envString("VMS_ENDPOINT_VERIFY_OTP", ep.VerifyOTP)
	return revision, ep
}

func Load() *Config {
	revision, endpoints := loadEndpoints(os.Getenv("VMS_API_REVISION"))

	quality := envInt("CAMERA_JPEG_QUALITY", constants.DefaultJPEGQuality)
	if quality > 100 {
		quality = constants.DefaultJPEGQuality
	}

	return &Config{
		API: APIConfig{
			URL:       envString("VMS_API_URL", "http://localhost:3000/api"),
			Revision:  revision,
			Endpoints: endpoints,
		},
		Camera: CameraConfig{
			FFmpegPath:   envString("CAMERA_FFMPEG_PATH", "ffmpeg"),
			InputFormat:  envString("CAMERA_INPUT_FORMAT", "v4l2"),
			Device:       envString("CAMERA_DEVICE", "/dev/video0"),
			JPEGQuality:  quality,
			StartTimeout: envDuration("CAMERA_START_TIMEOUT", constants.DefaultCameraStartTimeout),
		},
		Kiosk: KioskConfig{
			StateDir:    envString("KIOSK_STATE_DIR", defaultStateDir()),
			PrefillTTL:  envDuration("KIOSK_PREFILL_TTL", constants.DefaultPrefillTTL),
			OTPCooldown: envDuration("KIOSK_OTP_COOLDOWN", constants.OTPResendCooldown),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "127.0.0.1"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			File:       os.Getenv("LOG_FILE"),
			Production: os.Getenv("KIOSK_ENV") == "production",
		},
	}
}
