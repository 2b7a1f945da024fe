// Package config resolves the settings of one run from defaults, an optional
// JSON config file, environment variables, and CLI arguments, in that order.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/alexflint/go-arg"

	"github.com/jmagar/mdimg/internal/api"
	"github.com/jmagar/mdimg/internal/helpers"
	"github.com/jmagar/mdimg/internal/model"
	"github.com/jmagar/mdimg/internal/ui"
)

// Environment variables read by Resolve.
const (
	EnvToken    = "MDIMG_TOKEN"
	EnvEndpoint = "MDIMG_ENDPOINT"
)

const (
	defaultTimeoutSeconds = 60
	// LogDisabled as logFile turns the request log off.
	LogDisabled = "-"
)

// LoadedConfigPath tracks which config file was loaded, empty when none was found.
var LoadedConfigPath string

// Defaults returns the built-in configuration.
func Defaults() *model.Config {
	return &model.Config{
		Endpoint:       api.DefaultEndpoint,
		Permission:     api.DefaultPermission,
		StrategyID:     api.DefaultStrategyID,
		Suffix:         helpers.DefaultSuffix,
		TimeoutSeconds: defaultTimeoutSeconds,
		LogFile:        DefaultLogPath(),
	}
}

// DefaultLogPath returns ~/.mdimg/upload.log, or "" if the home directory is unknown.
func DefaultLogPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".mdimg", "upload.log")
}

// SearchPaths lists the config files tried when no explicit path is given.
func SearchPaths() []string {
	paths := []string{"mdimg.json"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".mdimg", "config.json"),
			filepath.Join(homeDir, ".config", "mdimg", "config.json"),
		)
	}
	return paths
}

// ReadConfig overlays the first config file found onto cfg. An explicit path
// must exist; otherwise a missing file is not an error.
func ReadConfig(cfg *model.Config, explicitPath string) error {
	LoadedConfigPath = ""
	candidates := SearchPaths()
	if explicitPath != "" {
		candidates = []string{explicitPath}
	}

	var data []byte
	var configPath string
	for _, path := range candidates {
		b, err := os.ReadFile(path)
		if err == nil {
			data, configPath = b, path
			break
		}
		if explicitPath != "" || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	if data == nil {
		return nil
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config at %s: %w", configPath, err)
	}
	LoadedConfigPath = configPath
	warnInsecurePermissions(configPath)
	return nil
}

// warnInsecurePermissions mirrors ssh's behaviour for files holding a token.
func warnInsecurePermissions(configPath string) {
	fileInfo, err := os.Stat(configPath)
	if err != nil {
		return
	}
	mode := fileInfo.Mode()
	if mode.Perm()&0077 == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "%s WARNING: Config file has insecure permissions (%04o)\n", ui.ColorYellow+ui.SymbolWarning+ui.ColorReset, mode.Perm())
	fmt.Fprintf(os.Stderr, "   File: %s\n", configPath)
	fmt.Fprintf(os.Stderr, "   Risk: Config contains your API token and should only be readable by you\n")
	if runtime.GOOS == "windows" {
		fmt.Fprintf(os.Stderr, "   Windows ACLs in use; skipping chmod auto-fix\n\n")
		return
	}
	if chmodErr := os.Chmod(configPath, 0600); chmodErr != nil {
		fmt.Fprintf(os.Stderr, "   Auto-fix failed: %v\n", chmodErr)
		fmt.Fprintf(os.Stderr, "   Fix manually: chmod 600 %s\n\n", configPath)
		return
	}
	fmt.Fprintf(os.Stderr, "   Auto-fix applied: chmod 600 %s\n\n", configPath)
}

// ApplyEnv overlays MDIMG_TOKEN and MDIMG_ENDPOINT onto cfg.
func ApplyEnv(cfg *model.Config) {
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		cfg.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvEndpoint)); v != "" {
		cfg.Endpoint = v
	}
}

// ApplyArgs overlays CLI arguments onto cfg.
func ApplyArgs(cfg *model.Config, args *model.Args) {
	if args.Token != "" {
		cfg.Token = args.Token
	}
	if args.Endpoint != "" {
		cfg.Endpoint = args.Endpoint
	}
	if args.SkipCode {
		cfg.SkipCode = true
	}
	cfg.DocPath = strings.TrimSpace(args.Document)
	cfg.AlbumID = strings.TrimSpace(args.AlbumID)
	cfg.ImagePath = strings.TrimSpace(args.Image)
	// In single-image mode the only positional is the album id.
	if cfg.ImagePath != "" && cfg.AlbumID == "" {
		cfg.AlbumID, cfg.DocPath = cfg.DocPath, ""
	}
}

// Validate checks that cfg can drive an upload run.
func Validate(cfg *model.Config) error {
	cfg.Token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(cfg.Token), "Bearer "))
	if cfg.Token == "" {
		return model.ErrMissingToken
	}
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if err := validateEndpoint(cfg.Endpoint); err != nil {
		return err
	}
	if cfg.AlbumID == "" {
		return model.ErrMissingAlbum
	}
	if cfg.ImagePath == "" && cfg.DocPath == "" {
		return errors.New("markdown file is required")
	}
	if cfg.ImagePath != "" && cfg.DocPath != "" {
		return errors.New("--image takes only ALBUM_ID as positional argument")
	}
	if cfg.TimeoutSeconds < 0 {
		cfg.TimeoutSeconds = 0
	}
	return nil
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", model.ErrInvalidEndpoint, endpoint)
	}
	return nil
}

// Resolve builds the run configuration: defaults, config file, environment,
// then CLI arguments.
func Resolve(args *model.Args) (*model.Config, error) {
	cfg := Defaults()
	if err := ReadConfig(cfg, args.ConfigPath); err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	ApplyArgs(cfg, args)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewArgParser returns a go-arg parser bound to args.
func NewArgParser(args *model.Args) (*arg.Parser, error) {
	return arg.NewParser(arg.Config{Program: "mdimg"}, args)
}

// ParseArgs parses argv (without the program name). Help and version
// requests are returned as arg.ErrHelp / arg.ErrVersion.
func ParseArgs(argv []string) (*model.Args, *arg.Parser, error) {
	var args model.Args
	p, err := NewArgParser(&args)
	if err != nil {
		return nil, nil, err
	}
	if err := p.Parse(argv); err != nil {
		return &args, p, err
	}
	return &args, p, nil
}

// SaveCredentials stores --token and --endpoint in the config file that would
// be loaded (or --config), keeping its other settings.
func SaveCredentials(args *model.Args) (string, error) {
	if args.Token == "" && args.Endpoint == "" {
		return "", errors.New("--save needs --token and/or --endpoint")
	}
	cfg := Defaults()
	if err := ReadConfig(cfg, args.ConfigPath); err != nil {
		if args.ConfigPath == "" || !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	if args.ConfigPath != "" {
		LoadedConfigPath = args.ConfigPath
	}
	if args.Token != "" {
		cfg.Token = strings.TrimPrefix(strings.TrimSpace(args.Token), "Bearer ")
	}
	if args.Endpoint != "" {
		cfg.Endpoint = strings.TrimSpace(args.Endpoint)
		if err := validateEndpoint(cfg.Endpoint); err != nil {
			return "", err
		}
	}
	return WriteConfig(cfg)
}

// WriteConfig writes cfg to the loaded config file, or ~/.mdimg/config.json.
func WriteConfig(cfg *model.Config) (string, error) {
	configData, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	targetPath := LoadedConfigPath
	if targetPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		targetPath = filepath.Join(homeDir, ".mdimg", "config.json")
	}

	dir := filepath.Dir(targetPath)
	if dir != "." {
		if mkErr := os.MkdirAll(dir, 0700); mkErr != nil {
			return "", fmt.Errorf("failed to create config directory %s: %w", dir, mkErr)
		}
	}
	if err := os.WriteFile(targetPath, configData, 0600); err != nil {
		return "", fmt.Errorf("failed to write config to %s: %w", targetPath, err)
	}
	return targetPath, nil
}
