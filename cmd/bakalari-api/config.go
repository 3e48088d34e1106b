package main

import (
	"bakalari-backend/lib/telemetry"
)

// PortalConfig carries the login for one known portal. Requests for a
// url without a config entry fall back to anonymous access.
type PortalConfig struct {
	Url      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthConfig protects the API itself with basic auth. Left empty, the
// API is open.
type AuthConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type DatabaseConfig struct {
	File string `json:"file"`
}

type Config struct {
	Port      int              `json:"port"`
	Auth      AuthConfig       `json:"auth"`
	Database  DatabaseConfig   `json:"database"`
	Portals   []PortalConfig   `json:"portals"`
	Telemetry telemetry.Config `json:"telemetry"`
}

func (c Config) portal(url string) (PortalConfig, bool) {
	for _, portal := range c.Portals {
		if portal.Url == url {
			return portal, true
		}
	}
	return PortalConfig{}, false
}
