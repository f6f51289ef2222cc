package config

import (
	"os"
	"strconv"
	"strings"
)

// BridgeEnv holds the legacy environment overrides for bridge startup, as
// read by LoadBridgeEnv.
type BridgeEnv struct {
	Disabled          bool
	DisableForce      bool
	WSPort            uint16
	HTTPPort          uint16
	Token             string
	HasToken          bool
	Home              string
	SyftboxURL        string
	SyftboxConfigPath string
	SyftboxDataDir    string
	SyftboxBinary     string
	SyftboxVersion    string
	SyftboxBackend    string
}

// LoadBridgeEnv reads the legacy bridge environment variables.
func LoadBridgeEnv() BridgeEnv {
	e := BridgeEnv{
		WSPort:   parsePortEnv(os.Getenv("DEV_WS_BRIDGE_PORT"), 3333),
		HTTPPort: parsePortEnv(os.Getenv("DEV_WS_BRIDGE_HTTP_PORT"), 3334),
	}

	if v := strings.ToLower(os.Getenv("DEV_WS_BRIDGE")); v == "0" || v == "false" || v == "no" {
		e.Disabled = true
	}
	if v := strings.ToLower(os.Getenv("DEV_WS_BRIDGE_DISABLE")); v == "1" || v == "true" || v == "yes" {
		e.DisableForce = true
	}

	if v, ok := EnvTokenOverride(); ok {
		e.Token = v
		e.HasToken = true
	}

	e.Home = firstNonEmpty(os.Getenv("BIOVAULT_HOME"), os.Getenv("BIOVAULT_CONFIG"))
	e.SyftboxURL = os.Getenv("SYFTBOX_SERVER_URL")
	e.SyftboxConfigPath = os.Getenv("SYFTBOX_CONFIG_PATH")
	e.SyftboxDataDir = os.Getenv("SYFTBOX_DATA_DIR")
	e.SyftboxBinary = os.Getenv("SYFTBOX_BINARY")
	e.SyftboxVersion = os.Getenv("SYFTBOX_VERSION")

	backend := os.Getenv("BV_SYFTBOX_BACKEND")
	switch backend {
	case "embedded", "process":
		e.SyftboxBackend = backend
	default:
		e.SyftboxBackend = "embedded"
	}

	return e
}

// Disables reports whether the bridge should not start at all, per the
// combined semantics of DEV_WS_BRIDGE and DEV_WS_BRIDGE_DISABLE.
func (e BridgeEnv) Disables() bool {
	return e.Disabled || e.DisableForce
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parsePortFromFlag parses a "3333" style port string into a uint16. It is
// unexported and has no caller in this package.
func parsePortFromFlag(v string) (uint16, error) {
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}
