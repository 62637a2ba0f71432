package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/logia/logia/internal/event"
	"github.com/logia/logia/internal/logging"
)

// Watch re-reads the config file whenever it changes on disk and publishes
// a reload event for each accepted change. Edits that fail validation are
// logged and ignored; the running configuration keeps its last good values.
func Watch(bus *event.Bus, logger *logging.Logger) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	log := logger.WithComponent("config")

	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := Load()
		if err != nil {
			log.Warn("ignoring invalid config change", "path", e.Name, "error", err)
			return
		}

		log.Info("config reloaded",
			"path", e.Name,
			"dispatch_deadline", cfg.Hub.DispatchDeadline().String(),
			"confidence_floor", cfg.Arbitration.ConfidenceFloor)
		if bus != nil {
			bus.Publish(event.NewConfigReloadedEvent(e.Name))
		}
	})
	viper.WatchConfig()
}
