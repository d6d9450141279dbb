package ironcore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config keys shared by option maps, config files and environment variables.
const (
	KeyToken      = "token"
	KeyProjectID  = "project_id"
	KeyProtocol   = "protocol"
	KeyHost       = "host"
	KeyPort       = "port"
	KeyAPIVersion = "api_version"

	// ProductSection is the config-file section whose keys override top-level ones.
	ProductSection = "iron_mq"

	missingCredentials = "token or project_id not found in any of the available sources"
)

var configKeys = []string{KeyToken, KeyProjectID, KeyProtocol, KeyHost, KeyPort, KeyAPIVersion}

// Config is a resolved connection configuration.
type Config struct {
	Token      string     `json:"-"`
	ProjectID  string     `json:"project_id"`
	Protocol   string     `json:"protocol"`
	Host       string     `json:"host"`
	Port       int        `json:"port"`
	APIVersion string     `json:"api_version"`
	Generation Generation `json:"generation"`
}

// BaseURL returns protocol://host:port/api_version/.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d/%s/", c.Protocol, c.Host, c.Port, strings.Trim(c.APIVersion, "/"))
}

// Validate checks that every required field is present.
func (c *Config) Validate() error {
	if c == nil {
		return &ConfigurationError{Reason: "config is nil"}
	}
	if strings.TrimSpace(c.Token) == "" {
		return &ConfigurationError{Field: KeyToken, Reason: missingCredentials}
	}
	if strings.TrimSpace(c.ProjectID) == "" {
		return &ConfigurationError{Field: KeyProjectID, Reason: missingCredentials}
	}
	if strings.TrimSpace(c.Protocol) == "" {
		return &ConfigurationError{Field: KeyProtocol, Reason: "protocol is empty"}
	}
	if strings.TrimSpace(c.Host) == "" {
		return &ConfigurationError{Field: KeyHost, Reason: "host is empty"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &ConfigurationError{Field: KeyPort, Reason: fmt.Sprintf("port %d out of range", c.Port)}
	}
	if strings.Trim(c.APIVersion, "/ ") == "" {
		return &ConfigurationError{Field: KeyAPIVersion, Reason: "api_version is empty"}
	}
	return nil
}

type loadOptions struct {
	values     map[string]string
	file       string
	dotEnv     string
	generation Generation
	discover   bool
	searchDirs []string
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

// WithValues supplies explicit settings; they take precedence over every other source.
func WithValues(values map[string]any) LoadOption {
	return func(o *loadOptions) {
		for k, v := range values {
			if v == nil {
				continue
			}
			o.values[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
}

// WithFile reads settings from a JSON, YAML, TOML or dotenv file. The file must exist.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.file = strings.TrimSpace(path)
	}
}

// WithDotEnv loads a .env file into the process environment before lookup.
func WithDotEnv(path string) LoadOption {
	return func(o *loadOptions) {
		o.dotEnv = strings.TrimSpace(path)
	}
}

// WithGeneration selects the endpoint defaults.
func WithGeneration(gen Generation) LoadOption {
	return func(o *loadOptions) {
		o.generation = gen
	}
}

// WithoutDiscovery disables the iron.json / ~/.iron.json lookup.
func WithoutDiscovery() LoadOption {
	return func(o *loadOptions) {
		o.discover = false
	}
}

// WithSearchDirs replaces the directories scanned for discovered config files.
func WithSearchDirs(dirs ...string) LoadOption {
	return func(o *loadOptions) {
		o.searchDirs = dirs
	}
}

// source yields a raw string for a key, or "" when it has none.
type source interface {
	lookup(key string) string
}

type mapSource map[string]string

func (m mapSource) lookup(key string) string { return m[key] }

type viperSource struct {
	v *viper.Viper
}

func (s viperSource) lookup(key string) string {
	if val := strings.TrimSpace(s.v.GetString(ProductSection + "." + key)); val != "" {
		return val
	}
	return strings.TrimSpace(s.v.GetString(key))
}

// Load resolves a Config. Sources are consulted in this order and the first
// non-empty value per key wins: explicit values, explicit file, environment
// (IRON_MQ_<KEY> then IRON_<KEY>), discovered files, generation defaults.
func Load(opts ...LoadOption) (*Config, error) {
	o := &loadOptions{
		values:     map[string]string{},
		generation: DefaultGeneration,
		discover:   true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	if o.dotEnv != "" {
		_ = godotenv.Load(o.dotEnv)
	}

	defaults, err := Defaults(o.generation)
	if err != nil {
		return nil, err
	}

	sources := []source{mapSource(o.values)}

	if o.file != "" {
		fileSrc, err := readConfigFile(o.file)
		if err != nil {
			return nil, err
		}
		sources = append(sources, fileSrc)
	}

	sources = append(sources, envSource())

	if o.discover {
		dirs := o.searchDirs
		if dirs == nil {
			dirs = defaultSearchDirs()
		}
		for _, path := range discoverFiles(dirs) {
			fileSrc, err := readConfigFile(path)
			if err != nil {
				return nil, err
			}
			sources = append(sources, fileSrc)
		}
	}

	sources = append(sources, mapSource{
		KeyProtocol:   defaults.Protocol,
		KeyHost:       defaults.Host,
		KeyPort:       strconv.Itoa(defaults.Port),
		KeyAPIVersion: defaults.APIVersion,
	})

	resolved := make(map[string]string, len(configKeys))
	for _, key := range configKeys {
		for _, src := range sources {
			if val := src.lookup(key); val != "" {
				resolved[key] = val
				break
			}
		}
	}

	port, err := strconv.Atoi(resolved[KeyPort])
	if err != nil {
		return nil, &ConfigurationError{Field: KeyPort, Reason: "port is not a number", Err: err}
	}

	cfg := &Config{
		Token:      resolved[KeyToken],
		ProjectID:  resolved[KeyProjectID],
		Protocol:   resolved[KeyProtocol],
		Host:       resolved[KeyHost],
		Port:       port,
		APIVersion: resolved[KeyAPIVersion],
		Generation: o.generation,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom accepts either an options mapping or the path of a config file,
// then merges environment and default fallbacks like Load.
func LoadFrom(src any, opts ...LoadOption) (*Config, error) {
	switch s := src.(type) {
	case nil:
		return Load(opts...)
	case string:
		return Load(append([]LoadOption{WithFile(s)}, opts...)...)
	case map[string]any:
		return Load(append([]LoadOption{WithValues(s)}, opts...)...)
	case map[string]string:
		values := make(map[string]any, len(s))
		for k, v := range s {
			values[k] = v
		}
		return Load(append([]LoadOption{WithValues(values)}, opts...)...)
	case *Config:
		if s == nil {
			return nil, &ConfigurationError{Reason: "config is nil"}
		}
		cp := *s
		if err := cp.Validate(); err != nil {
			return nil, err
		}
		return &cp, nil
	default:
		return nil, &ConfigurationError{Reason: fmt.Sprintf("wrong config source type %T", src)}
	}
}

func readConfigFile(path string) (source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("config file %s not readable", path), Err: err}
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("config file %s not found", path), Err: err}
		}
		return nil, &ConfigurationError{Reason: fmt.Sprintf("parse config file %s", path), Err: err}
	}
	return viperSource{v: v}, nil
}

func envSource() source {
	v := viper.New()
	for _, key := range configKeys {
		upper := strings.ToUpper(key)
		_ = v.BindEnv(key, "IRON_MQ_"+upper, "IRON_"+upper)
	}
	return viperSource{v: v}
}

func defaultSearchDirs() []string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		dirs = append(dirs, home)
	}
	return dirs
}

// discoverFiles returns existing iron config files in dirs, in lookup order.
func discoverFiles(dirs []string) []string {
	names := []string{"iron.json", "iron.yaml", "iron.yml", ".iron.json", ".iron.yaml", ".iron.yml"}
	var found []string
	for _, dir := range dirs {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				found = append(found, path)
			}
		}
	}
	return found
}
