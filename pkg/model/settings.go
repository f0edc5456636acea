package model

import "time"

// Settings is the single configuration record passed to the transport.
// DefaultSettings targets localhost with conservative timeouts and
// reconnection enabled.
type Settings struct {
	TargetAddress string
	TargetPort    int
	LocalAddress  string
	LocalPort     int
	RouterAddress string

	ConnectTimeout time.Duration

	AutoReconnect         bool
	AutoReconnectInterval time.Duration
	HealthCheckInterval   time.Duration
	ConnectionDownGrace   time.Duration

	SymbolVersionMonitoring   bool
	ConsoleWarnings           bool
	StructurePackModeWarnings bool
}

// DefaultSettings targets localhost with conservative reconnect behaviour.
func DefaultSettings() Settings {
	return Settings{
		TargetAddress:             "127.0.0.1",
		TargetPort:                48898,
		LocalAddress:              "127.0.0.1",
		LocalPort:                 0,
		RouterAddress:             "127.0.0.1",
		ConnectTimeout:            5 * time.Second,
		AutoReconnect:             true,
		AutoReconnectInterval:     2 * time.Second,
		HealthCheckInterval:       1 * time.Second,
		ConnectionDownGrace:       5 * time.Second,
		SymbolVersionMonitoring:   true,
		ConsoleWarnings:           true,
		StructurePackModeWarnings: true,
	}
}
