// Package config loads the optional permissionx.yaml project file.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/permissionx/pkg/permissionx"
)

// FileName is the name of the project configuration file.
const FileName = "permissionx.yaml"

// Default platform levels used when neither the config nor a scenario sets
// them.
const (
	DefaultSDK       = 33
	DefaultTargetSDK = 34
)

// Config represents the optional permissionx.yaml configuration.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Platform PlatformConfig `yaml:"platform"`
	Dialog   DialogConfig   `yaml:"dialog"`
}

// AppConfig contains application metadata.
type AppConfig struct {
	Name string `yaml:"name,omitempty"`
	ID   string `yaml:"id,omitempty"`
}

// PlatformConfig sets the simulated OS and target API levels.
type PlatformConfig struct {
	SDK       int `yaml:"sdk,omitempty"`
	TargetSDK int `yaml:"targetSdk,omitempty"`
}

// DialogConfig sets the default dialog tints. Values are CSS color names or
// #rrggbb[aa].
type DialogConfig struct {
	LightTint string `yaml:"lightTint,omitempty"`
	DarkTint  string `yaml:"darkTint,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root       string
	ModulePath string
	AppName    string
	AppID      string
	Platform   permissionx.Platform
	Tint       permissionx.TintColors
}

// LoadOptional reads permissionx.yaml if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	return &cfg, nil
}

// Resolve loads permissionx.yaml (if present) and resolves defaults. The
// module path is read from go.mod when dir has one.
func Resolve(dir string) (*Resolved, error) {
	modulePath, err := modulePath(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	appName := strings.TrimSpace(cfg.App.Name)
	if appName == "" {
		appName = defaultAppName(modulePath, dir)
	}

	appID := strings.TrimSpace(cfg.App.ID)
	if appID == "" {
		appID = defaultAppID(modulePath, appName)
	}
	if err := validateAppID(appID); err != nil {
		return nil, err
	}

	platform := permissionx.Platform{SDKVersion: DefaultSDK, TargetSDKVersion: DefaultTargetSDK}
	if cfg.Platform.SDK < 0 || cfg.Platform.TargetSDK < 0 {
		return nil, fmt.Errorf("platform levels cannot be negative")
	}
	if cfg.Platform.SDK != 0 {
		platform.SDKVersion = cfg.Platform.SDK
	}
	if cfg.Platform.TargetSDK != 0 {
		platform.TargetSDKVersion = cfg.Platform.TargetSDK
	}

	var tint permissionx.TintColors
	if tint.Light, err = ParseColor(cfg.Dialog.LightTint); err != nil {
		return nil, fmt.Errorf("dialog.lightTint: %w", err)
	}
	if tint.Dark, err = ParseColor(cfg.Dialog.DarkTint); err != nil {
		return nil, fmt.Errorf("dialog.darkTint: %w", err)
	}

	return &Resolved{
		Root:       dir,
		ModulePath: modulePath,
		AppName:    appName,
		AppID:      appID,
		Platform:   platform,
		Tint:       tint,
	}, nil
}

// FindProjectRoot walks up from the current directory to find go.mod. When
// there is none, the current directory is used.
func FindProjectRoot() (string, error) {
	start, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return start, nil
		}
		dir = parent
	}
}

// ParseColor resolves a CSS color name or a #rrggbb / #rrggbbaa literal.
// An empty string yields nil, which keeps the renderer default.
func ParseColor(s string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		if len(hex) != 6 && len(hex) != 8 {
			return nil, fmt.Errorf("invalid color %q: expected #rrggbb or #rrggbbaa", s)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid color %q: %w", s, err)
		}
		if len(hex) == 6 {
			v = v<<8 | 0xff
		}
		return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
	}
	c, ok := colornames.Map[strings.ToLower(s)]
	if !ok {
		return nil, fmt.Errorf("unknown color name %q", s)
	}
	return c, nil
}

func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

func defaultAppName(modulePath, dir string) string {
	base := filepath.Base(dir)
	if modulePath != "" {
		modName, _, ok := module.SplitPathVersion(modulePath)
		if ok {
			parts := strings.Split(modName, "/")
			base = parts[len(parts)-1]
		}
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "permissionx_app"
	}
	return base
}

func defaultAppID(modulePath, appName string) string {
	parts := strings.Split(modulePath, "/")
	if len(parts) < 2 || !strings.Contains(parts[0], ".") {
		return "com.example." + sanitizeSegment(appName)
	}

	host := strings.Split(parts[0], ".")
	slices.Reverse(host)

	segments := host
	for _, p := range parts[1:] {
		if p != "" {
			segments = append(segments, p)
		}
	}
	for i, segment := range segments {
		segments[i] = sanitizeSegment(segment)
	}
	return strings.Join(segments, ".")
}

// sanitizeSegment lowercases segment and keeps [a-z0-9_]. Android package
// segments may not start with a digit.
func sanitizeSegment(segment string) string {
	var out []rune
	for _, r := range strings.TrimSpace(segment) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == '-':
			out = append(out, '_')
		}
	}
	for len(out) > 0 && out[0] == '_' {
		out = out[1:]
	}
	if len(out) == 0 {
		out = []rune("app")
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = append([]rune{'a'}, out...)
	}
	return string(out)
}

func validateAppID(appID string) error {
	if !strings.Contains(appID, ".") {
		return fmt.Errorf("app.id must contain at least one '.' (got %q)", appID)
	}
	for _, segment := range strings.Split(appID, ".") {
		if segment == "" {
			return fmt.Errorf("app.id contains an empty segment (%q)", appID)
		}
		if segment[0] >= '0' && segment[0] <= '9' {
			return fmt.Errorf("app.id segments cannot start with a digit (%q)", appID)
		}
		if segment[0] == '_' {
			return fmt.Errorf("app.id segments cannot start with '_' (%q)", appID)
		}
		for _, r := range segment {
			if !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
				return fmt.Errorf("app.id contains invalid character %q in %q", r, appID)
			}
		}
	}
	return nil
}
