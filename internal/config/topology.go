package config

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// TopologySettings holds the broker queue policy shared by every declared queue.
type TopologySettings struct {
	MessageTTLMillis   int    `mapstructure:"message_ttl_ms"`
	DeadLetterExchange string `mapstructure:"dead_letter_exchange"`
	ParkingLotQueue    string `mapstructure:"parking_lot_queue"`
}

func DefaultTopologySettings() TopologySettings {
	return TopologySettings{
		MessageTTLMillis:   60000,
		DeadLetterExchange: "dlx",
		ParkingLotQueue:    "dlx.parking-lot",
	}
}

// LoadTopologySettings reads topology.yml when present. An explicit
// TOPOLOGY_FILE must exist; the default search path may be empty.
func LoadTopologySettings(cfg Config) (TopologySettings, error) {
	v := viper.New()
	defaults := DefaultTopologySettings()
	v.SetDefault("topology.message_ttl_ms", defaults.MessageTTLMillis)
	v.SetDefault("topology.dead_letter_exchange", defaults.DeadLetterExchange)
	v.SetDefault("topology.parking_lot_queue", defaults.ParkingLotQueue)

	v.SetEnvPrefix("ACADEMY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := strings.TrimSpace(cfg.Broker.TopologyFile); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(path), "."))
		if err := v.ReadInConfig(); err != nil {
			return TopologySettings{}, err
		}
	} else {
		v.SetConfigName("topology")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/academy")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return TopologySettings{}, err
			}
		}
	}

	var out struct {
		Topology TopologySettings `mapstructure:"topology"`
	}
	if err := v.Unmarshal(&out); err != nil {
		return TopologySettings{}, err
	}
	if err := validateTopologySettings(out.Topology); err != nil {
		return TopologySettings{}, err
	}
	return out.Topology, nil
}

func validateTopologySettings(s TopologySettings) error {
	if s.MessageTTLMillis <= 0 {
		return errors.New("topology.message_ttl_ms must be positive")
	}
	if strings.TrimSpace(s.DeadLetterExchange) == "" {
		return errors.New("topology.dead_letter_exchange cannot be empty")
	}
	return nil
}
