// Package config defines the authority resource layer configuration:
// tenant/service identity, document type names, NATS connection settings,
// and the reference-tracking field configuration that used to live in
// ambient service-binding state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/authoritystore/errors"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultServiceType       = "procedure"
	DefaultPageSize          = 25
	DefaultMaxHierarchyDepth = 64
	DefaultBucket            = "authority-docs"
)

// Config represents the complete resource layer configuration.
type Config struct {
	// Tenant and Service scope every name-based authority lookup and form
	// the first segments of generated reference names.
	Tenant  string `json:"tenant" yaml:"tenant"`
	Service string `json:"service" yaml:"service"`

	// ItemService names the item sub-resource (e.g. "vocabularyitems" for
	// service "vocabularies").
	ItemService string `json:"item_service" yaml:"item_service"`

	// AuthorityType and ItemType are the repository document types holding
	// authorities and their items.
	AuthorityType string `json:"authority_type" yaml:"authority_type"`
	ItemType      string `json:"item_type" yaml:"item_type"`

	NATS NATSConfig `json:"nats" yaml:"nats"`

	// Bucket is the KV bucket documents live in.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	Refs RefsConfig `json:"refs" yaml:"refs"`

	// DefaultPageSize windows list and referencing-objects results.
	DefaultPageSize int `json:"default_page_size,omitempty" yaml:"default_page_size,omitempty"`

	// MaxHierarchyDepth bounds dive/surface traversal.
	MaxHierarchyDepth int `json:"max_hierarchy_depth,omitempty" yaml:"max_hierarchy_depth,omitempty"`
}

// RefsConfig configures reference tracking. These values are passed
// explicitly into the tracker rather than read from ambient state.
type RefsConfig struct {
	// Fields lists the schema fields that hold authority references in
	// referencing documents and in items themselves.
	Fields []string `json:"fields" yaml:"fields"`

	// ServiceTypes maps a service-type category (e.g. "procedure") to the
	// document types in that category.
	ServiceTypes map[string][]string `json:"service_types" yaml:"service_types"`

	// DefaultServiceType is the category used when a referencing-objects
	// query does not name one.
	DefaultServiceType string `json:"default_service_type,omitempty" yaml:"default_service_type,omitempty"`
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs          []string `json:"urls,omitempty" yaml:"urls,omitempty"`
	MaxReconnects int      `json:"max_reconnects,omitempty" yaml:"max_reconnects,omitempty"`
	ReconnectWait Duration `json:"reconnect_wait,omitempty" yaml:"reconnect_wait,omitempty"`
	Username      string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password      string   `json:"password,omitempty" yaml:"password,omitempty"`
	Token         string   `json:"token,omitempty" yaml:"token,omitempty"`
}

// Duration is a time.Duration that unmarshals from the "2s"/"500ms" string
// form in both JSON and YAML.
type Duration time.Duration

// Std returns the standard library form.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: %q is not a duration", errors.ErrInvalidConfig, s)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: %q is not a duration", errors.ErrInvalidConfig, s)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Load reads a configuration file, applying defaults and validating. The
// format is chosen by extension: .json, or .yaml/.yml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "config", "Load", "read config file")
	}

	cfg := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: unsupported config extension %q", errors.ErrInvalidConfig, ext),
			"config", "Load", "detect config format")
	}
	if err != nil {
		return nil, errors.WrapFatal(err, "config", "Load", "parse config file")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.ItemService == "" && c.Service != "" {
		c.ItemService = singular(c.Service) + "items"
	}
	if c.AuthorityType == "" {
		c.AuthorityType = c.Service
	}
	if c.ItemType == "" {
		c.ItemType = c.ItemService
	}
	if c.Bucket == "" {
		c.Bucket = DefaultBucket
	}
	if c.Refs.DefaultServiceType == "" {
		c.Refs.DefaultServiceType = DefaultServiceType
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = DefaultPageSize
	}
	if c.MaxHierarchyDepth <= 0 {
		c.MaxHierarchyDepth = DefaultMaxHierarchyDepth
	}
}

// singular undoes the common plural forms of service names, so
// "vocabularies" derives "vocabularyitems" and "locations" derives
// "locationitems". Set item_service explicitly for irregular names.
func singular(s string) string {
	switch {
	case strings.HasSuffix(s, "ies"):
		return strings.TrimSuffix(s, "ies") + "y"
	case strings.HasSuffix(s, "s"):
		return strings.TrimSuffix(s, "s")
	}
	return s
}

// Validate checks required fields and cross-field consistency.
func (c *Config) Validate() error {
	var missing []string
	if c.Tenant == "" {
		missing = append(missing, "tenant")
	}
	if c.Service == "" {
		missing = append(missing, "service")
	}
	if c.ItemService == "" {
		missing = append(missing, "item_service")
	}
	if c.AuthorityType == "" {
		missing = append(missing, "authority_type")
	}
	if c.ItemType == "" {
		missing = append(missing, "item_type")
	}
	if len(missing) > 0 {
		return errors.WrapFatal(
			fmt.Errorf("%w: %s", errors.ErrMissingConfig, strings.Join(missing, ", ")),
			"config", "Validate", "check required fields")
	}

	if c.AuthorityType == c.ItemType {
		return errors.WrapFatal(
			fmt.Errorf("%w: authority_type and item_type must differ", errors.ErrInvalidConfig),
			"config", "Validate", "check document types")
	}

	if dst := c.Refs.DefaultServiceType; len(c.Refs.ServiceTypes) > 0 {
		if _, ok := c.Refs.ServiceTypes[dst]; !ok {
			return errors.WrapFatal(
				fmt.Errorf("%w: default_service_type %q not present in service_types",
					errors.ErrInvalidConfig, dst),
				"config", "Validate", "check service types")
		}
	}

	return nil
}
