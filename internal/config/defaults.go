package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformConfigDir returns the platform-specific config directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/mledit/
//   - Linux:   ~/.config/mledit/
//   - Windows: %APPDATA%\mledit\
func PlatformConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Application Support", "mledit")
	case "windows":
		return windowsDataDir()
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, "mledit")
		}
		return filepath.Join(homeDir(), ".config", "mledit")
	}
}

// PlatformLogDir returns the platform-specific log directory.
//
// Platform paths:
//   - macOS:   ~/Library/Logs/mledit/
//   - Linux:   ~/.local/state/mledit/
//   - Windows: %LOCALAPPDATA%\mledit\logs\
func PlatformLogDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Logs", "mledit")
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "mledit", "logs")
		}
		return filepath.Join(homeDir(), "AppData", "Local", "mledit", "logs")
	default:
		if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
			return filepath.Join(stateHome, "mledit")
		}
		return filepath.Join(homeDir(), ".local", "state", "mledit")
	}
}

func windowsDataDir() string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "mledit")
	}
	return filepath.Join(homeDir(), "AppData", "Roaming", "mledit")
}

func homeDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return home
}
