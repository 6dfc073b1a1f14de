package service

import (
	"healthguard/common/mqtt"
	"healthguard/internal/config"
	"healthguard/internal/notify"

	"go.uber.org/zap"
)

// buildPresenter always logs, and adds MQTT and desktop delivery when
// enabled. The returned client is nil when MQTT is off.
func buildPresenter(cfg *config.Config, logger *zap.Logger) (notify.Presenter, *mqtt.Client, error) {
	presenters := notify.Multi{notify.NewLogPresenter(logger)}

	var client *mqtt.Client
	if cfg.MQTT.Enabled {
		c, err := mqtt.NewClient(&cfg.MQTT, logger)
		if err != nil {
			return nil, nil, err
		}
		client = c
		presenters = append(presenters, notify.NewMQTTPresenter(c, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS, logger))
	}
	if cfg.DesktopNotifications {
		presenters = append(presenters, notify.NewDesktopPresenter())
	}
	return presenters, client, nil
}
