package config

import "time"

// Application constants
const (
	AppName    = "co2dash"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. CO2_SERVER_PORT
	EnvPrefix = "CO2"

	// ConfigFileName is looked up in the working directory and configs/
	ConfigFileName = "co2dash.yaml"

	// Ranking limits
	DefaultTopN = 10
	MaxTopN     = 50

	// WebSocket timings
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second
)
