package config

import (
	"errors"
	"fmt"
	"os"

	"rfqdash/pkg/rfq"

	"github.com/pelletier/go-toml/v2"
)

const (
	BackendSheets = "sheets"
	BackendCSV    = "csv"
)

type SheetConfig struct {
	SpreadsheetID   string
	SheetName       string
	Range           string
	CredentialsFile string
}

type AuthConfig struct {
	// GlobalPassword unlocks every division and the upload panel.
	GlobalPassword string
	// DivisionPasswords maps a division to the password that locks a session to it.
	DivisionPasswords map[string]string
}

type PolicyConfig struct {
	EmptyDivisionsMeansAll bool
	ClientFallbackOnEmpty  bool
	RatioBase              string
}

type ServerConfig struct {
	ListenAddress string
	// CSRFKey enables CSRF protection on form posts when set (32 bytes).
	CSRFKey       string
	SecureCookies bool
	// SessionIdleMinutes ends sessions unused for this long.
	SessionIdleMinutes int
}

type configStore struct {
	Backend         string
	CSVPath         string
	AuditDBFilename string
	Sheet           SheetConfig
	Columns         rfq.Columns
	Auth            AuthConfig
	Policy          PolicyConfig
	Server          ServerConfig
}

type Config struct {
	Filename string
	Store    configStore
}

func defaults() configStore {
	p := rfq.DefaultPolicy()
	return configStore{
		Backend:         BackendSheets,
		CSVPath:         "rfq.csv",
		AuditDBFilename: "rfqdash.sqlite3",
		Sheet: SheetConfig{
			SheetName: "rfq_2025",
			Range:     "A1:Z",
		},
		Columns: rfq.DefaultColumns(),
		Policy: PolicyConfig{
			EmptyDivisionsMeansAll: p.EmptyDivisionsMeansAll,
			ClientFallbackOnEmpty:  p.ClientFallbackOnEmpty,
			RatioBase:              string(p.RatioBase),
		},
		Server: ServerConfig{
			ListenAddress:      ":80",
			SessionIdleMinutes: 720,
		},
	}
}

// Write the current config out to a toml file.
func (c *Config) Save() error {
	b, err := toml.Marshal(c.Store)
	if err != nil {
		return err
	}
	return os.WriteFile(c.Filename, b, 0600)
}

// Load the current config from a toml file.
func (c *Config) Load() error {
	b, err := os.ReadFile(c.Filename)
	if err != nil {
		return err
	}
	return toml.Unmarshal(b, &c.Store)
}

// New loads filename over the defaults, writing the defaults out if the file
// does not exist yet, then applies environment overrides.
func New(filename string) (*Config, error) {
	c := &Config{
		Filename: filename,
		Store:    defaults(),
	}
	if err := c.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", filename, err)
		}
		if err := c.Save(); err != nil {
			return nil, err
		}
	}
	c.applyEnv()
	return c, c.Validate()
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"SPREADSHEET_ID", &c.Store.Sheet.SpreadsheetID},
		{"GOOGLE_APPLICATION_CREDENTIALS", &c.Store.Sheet.CredentialsFile},
		{"RFQ_BACKEND", &c.Store.Backend},
		{"RFQ_CSV_PATH", &c.Store.CSVPath},
		{"RFQ_GLOBAL_PASSWORD", &c.Store.Auth.GlobalPassword},
		{"RFQ_LISTEN_ADDRESS", &c.Store.Server.ListenAddress},
		{"RFQ_CSRF_KEY", &c.Store.Server.CSRFKey},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) Validate() error {
	s := c.Store
	switch s.Backend {
	case BackendSheets:
		if s.Sheet.SpreadsheetID == "" {
			return errors.New("sheets backend needs Sheet.SpreadsheetID or SPREADSHEET_ID")
		}
	case BackendCSV:
		if s.CSVPath == "" {
			return errors.New("csv backend needs CSVPath")
		}
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	switch rfq.RatioBase(s.Policy.RatioBase) {
	case rfq.RatioBaseTotal, rfq.RatioBaseSubmitted:
	default:
		return fmt.Errorf("unknown ratio base %q", s.Policy.RatioBase)
	}
	if k := s.Server.CSRFKey; k != "" && len(k) != 32 {
		return errors.New("Server.CSRFKey must be 32 bytes")
	}
	return nil
}

func (c *Config) Policy() rfq.Policy {
	return rfq.Policy{
		EmptyDivisionsMeansAll: c.Store.Policy.EmptyDivisionsMeansAll,
		ClientFallbackOnEmpty:  c.Store.Policy.ClientFallbackOnEmpty,
		RatioBase:              rfq.RatioBase(c.Store.Policy.RatioBase),
	}
}
