package cmd

import (
	"fmt"

	"github.com/kozaktomas/vms-kiosk/internal/camera"
	"github.com/kozaktomas/vms-kiosk/internal/config"
	"github.com/kozaktomas/vms-kiosk/internal/kiosk"
	"github.com/kozaktomas/vms-kiosk/internal/logger"
	"github.com/kozaktomas/vms-kiosk/internal/matcher"
	"github.com/kozaktomas/vms-kiosk/internal/metrics"
	"github.com/kozaktomas/vms-kiosk/internal/registration"
	"github.com/kozaktomas/vms-kiosk/internal/session"
	"github.com/kozaktomas/vms-kiosk/internal/vmsone"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// app holds the services every command builds from the environment.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	client   *vmsone.Client
	session  *session.Context
	camera   *camera.Manager
}

func newApp() (*app, error) {
	cfg := config.Load()
	if stateDir != "" {
		cfg.Kiosk.StateDir = stateDir
	}

	log := logger.New(cfg.Log)

	client, err := vmsone.New(cfg.API.URL, cfg.API.Endpoints, log)
	if err != nil {
		return nil, fmt.Errorf("invalid VMS_API_URL: %w", err)
	}

	store, err := session.OpenFileStore(cfg.Kiosk.StateDir)
	if err != nil {
		return nil, fmt.Errorf("could not open session store: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	cam := camera.NewManager(camera.FFmpeg{
		Path:   cfg.Camera.FFmpegPath,
		Format: cfg.Camera.InputFormat,
		Device: cfg.Camera.Device,
	}, cfg.Camera.StartTimeout, log)
	cam.SetObserver(m)

	log.Debug("kiosk configured",
		zap.String("api", cfg.API.URL),
		zap.String("revision", cfg.API.Revision),
		zap.String("device", cfg.Camera.Device),
		zap.String("state", store.Path()),
	)

	return &app{
		cfg:      cfg,
		logger:   log,
		registry: registry,
		metrics:  m,
		client:   client,
		session:  session.New(store, cfg.Kiosk.PrefillTTL, log),
		camera:   cam,
	}, nil
}

// kiosk wires the screen controller over the app services.
func (a *app) kiosk() *kiosk.Kiosk {
	return kiosk.New(kiosk.Deps{
		Camera:    a.camera,
		Quality:   a.cfg.Camera.JPEGQuality,
		Matcher:   matcher.New(a.client, a.session, a.metrics, a.logger),
		Submitter: registration.New(a.client, a.session, a.metrics, a.logger),
		Session:   a.session,
		Metrics:   a.metrics,
		Logger:    a.logger,
	})
}

func (a *app) close() {
	_ = a.logger.Sync()
}
