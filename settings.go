package gemini

import (
	"encoding/json"
	"fmt"
	"os"
)

// ServerSettings is the top-level server_settings.json document.
// Unrecognised fields are ignored; missing fields take the defaults
// below (mirroring the serde(default) behaviour of the Rust source).
type ServerSettings struct {
	Domain            string   `json:"domain"`
	Root              string   `json:"root"`
	TLSProfile        string   `json:"tls_profile"`
	ProfilePassword   string   `json:"profile_password"`
	ErrorProfile      *string  `json:"error_profile,omitempty"`
	ConfigFiles       []string `json:"config_files"`
	MaxDynamicGenTime uint64   `json:"max_dynamic_gen_time"`
	NeverExit         bool     `json:"never_exit"`
	ServeErrors       bool     `json:"serve_errors"`
	Log               bool     `json:"log"`
	DefaultLang       *string  `json:"default_lang,omitempty"`
	DefaultCharset    string   `json:"default_charset"`
	Homepage          *string  `json:"homepage,omitempty"`
	GenDocPage        bool     `json:"gen_doc_page"`
	DocPagePath       string   `json:"doc_page_path"`
	IPv4              bool     `json:"ipv4"`
	IPv6              bool     `json:"ipv6"`
	CacheTime         uint64   `json:"cache_time"`
	DefaultPreload    bool     `json:"default_preload"`
}

// DefaultServerSettings mirrors the Default impl in the source
// implementation, so a settings file only needs to override what it
// changes.
func DefaultServerSettings() ServerSettings {
	return ServerSettings{
		Domain:            "localhost",
		Root:              "root",
		TLSProfile:        "profile.pfx",
		ProfilePassword:   "password",
		ConfigFiles:       []string{"config.json"},
		MaxDynamicGenTime: 10,
		DefaultCharset:    "utf-8",
		GenDocPage:        true,
		DocPagePath:       "links.gmi",
		IPv4:              true,
		CacheTime:         300,
	}
}

// LoadSettings reads and decodes server_settings.json. Unset fields in
// the file retain DefaultServerSettings' values.
func LoadSettings(path string) (*ServerSettings, error) {
	settings := DefaultServerSettings()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open settings file: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&settings); err != nil {
		return nil, fmt.Errorf("decode settings file: %w", err)
	}
	return &settings, nil
}

// Config is a per-directory configuration file: whitelist/blacklist
// rules plus link and dynamic entries scoped to that directory.
type Config struct {
	Domain            *string         `json:"domain,omitempty"`
	Whitelist         []string        `json:"whitelist"`
	Blacklist         []string        `json:"blacklist"`
	DefaultWhitelist  bool            `json:"default_whitelist"`
	Dynamic           []DynamicObject `json:"dynamic"`
	Link              []LinkObject    `json:"link"`
	ConfigFiles       []string        `json:"config_files"`
	DefaultPreload    *bool           `json:"default_preload,omitempty"`
}

// LoadConfig reads and decodes a single per-directory config file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config file %q: %w", path, err)
	}
	return &cfg, nil
}
