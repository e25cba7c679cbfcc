package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spaghettifunk/anima-assets/engine/config"
	"github.com/spaghettifunk/anima-assets/engine/renderer"
	"github.com/spaghettifunk/anima-assets/engine/systems"
)

type ApplicationConfig struct {
	// The application name used in log lines.
	Name string
	// Engine settings. Defaults to config.Default() when nil.
	Config *config.Config
	// The graphics device textures upload to. Defaults to a headless device.
	Device renderer.Device
	// Receives LoadBatch progress, if applicable.
	Progress systems.ProgressReporter
	// Where metrics get registered. Defaults to a private registry.
	Registry *prometheus.Registry
	// Target update rate of Run, in updates per second. Defaults to 60.
	UpdateRate int
}
