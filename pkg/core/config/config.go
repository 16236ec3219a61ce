// Package config sources process-wide settings from the environment and
// loads the standard-name mapping file used to translate XBRL labels.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v2"
)

// AllowedTaxonomies are the taxonomy prefixes the scraper knows how to
// match facts against.
var AllowedTaxonomies = map[string]bool{
	"us-gaap":   true,
	"ifrs-full": true,
	"dei":       true,
	"srt":       true,
}

// Config holds every runtime setting. The requester identity fields are
// required by SEC EDGAR for non-anonymous access; everything else has a
// usable default.
type Config struct {
	RequesterCompany string
	RequesterName    string
	RequesterEmail   string

	MongoURI string
	Database string

	Taxonomy    string
	RateLimit   float64
	MappingPath string
}

// Load reads configuration from the environment. A .env file is applied
// first when present; real deployments set the environment directly.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		RequesterCompany: os.Getenv("SEC_REQUESTER_COMPANY"),
		RequesterName:    os.Getenv("SEC_REQUESTER_NAME"),
		RequesterEmail:   os.Getenv("SEC_REQUESTER_EMAIL"),
		MongoURI:         os.Getenv("MONGO_URI"),
		Database:         envDefault("MONGO_DATABASE", "SECRawData"),
		Taxonomy:         envDefault("SEC_TAXONOMY", "us-gaap"),
		RateLimit:        10,
		MappingPath:      os.Getenv("STANDARD_NAME_MAPPING"),
	}

	if v := os.Getenv("SEC_RATE_LIMIT"); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("config: invalid SEC_RATE_LIMIT %q: %w", v, err)
		}
		cfg.RateLimit = limit
	}

	if !AllowedTaxonomies[cfg.Taxonomy] {
		return nil, fmt.Errorf("config: taxonomy %q is not supported", cfg.Taxonomy)
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// StandardNameMapping maps a standard statement line name to the filing
// labels that report it. Filers name the same concept differently, so the
// mapping fans one standard name out to many labels.
type StandardNameMapping map[string][]string

// LoadStandardNameMapping reads a YAML mapping file of the form:
//
//	Revenue:
//	  - "Revenues"
//	  - "Revenue from Contract with Customer"
func LoadStandardNameMapping(path string) (StandardNameMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading mapping file: %w", err)
	}
	var m StandardNameMapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("config: parsing mapping file %s: %w", path, err)
	}
	return m, nil
}

// Reverse inverts the mapping for label lookup: filing label -> standard name.
func (m StandardNameMapping) Reverse() map[string]string {
	reverse := make(map[string]string)
	for standard, labels := range m {
		for _, label := range labels {
			reverse[label] = standard
		}
	}
	return reverse
}
