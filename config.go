/*
Package tablemap – configuration file.

Example:

	logger:
	  level: info
	api:
	  url: https://api.airtable.com
	  baseId: appXXXXXXXX
	  tokenEnv: AIRTABLE_API_KEY
	mappings:
	  - due-date:
	      - { tableId: tblTasks, fieldId: fldDue, fieldName: Due, fieldType: date }
*/
package tablemap

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultTokenEnv is the environment variable holding the API token.
const DefaultTokenEnv = "AIRTABLE_API_KEY"

// Config is the file configuration of the library.
type Config struct {
	Logger struct {
		Level string `yaml:"level"`
	} `yaml:"logger"`
	API struct {
		URL      string `yaml:"url"`
		BaseID   string `yaml:"baseId"`
		TokenEnv string `yaml:"tokenEnv"`
		Typecast bool   `yaml:"typecast"`
	} `yaml:"api"`
	TimeZone string   `yaml:"timeZone"`
	Mappings Mappings `yaml:"mappings"`
}

// UnmarshalYAML decodes a group keeping the document order of its keys.
func (g *MappingGroup) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: mapping group must be a map", node.Line)
	}
	out := make(MappingGroup, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var entry MappingEntry
		if err := node.Content[i].Decode(&entry.Key); err != nil {
			return err
		}
		if err := node.Content[i+1].Decode(&entry.Fields); err != nil {
			return fmt.Errorf("mapping %q: %w", entry.Key, err)
		}
		out = append(out, entry)
	}
	*g = out
	return nil
}

// MarshalYAML writes a group as an ordered map.
func (g MappingGroup) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range g {
		var key, val yaml.Node
		if err := key.Encode(e.Key); err != nil {
			return nil, err
		}
		if err := val.Encode(e.Fields); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &key, &val)
	}
	return node, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if len(c.Mappings) == 0 {
		return NewError("mappings cannot be empty", WithCode(ErrConfig))
	}
	for gi, g := range c.Mappings {
		for _, e := range g {
			if e.Key == "" {
				return NewError(fmt.Sprintf("group %d has an empty key", gi), WithCode(ErrConfig))
			}
			for _, fm := range e.Fields {
				if fm.TableID == "" {
					return NewError(fmt.Sprintf("mapping %q has a binding without tableId", e.Key), WithCode(ErrConfig))
				}
				if fm.FieldID != "" && !fm.FieldType.Valid() {
					return NewError(fmt.Sprintf("mapping %q: invalid field type %q", e.Key, fm.FieldType),
						WithCode(ErrInvalidFieldType))
				}
			}
		}
	}
	return nil
}

// Token returns the API token from the environment.
func (c *Config) Token() string {
	name := c.API.TokenEnv
	if name == "" {
		name = DefaultTokenEnv
	}
	return os.Getenv(name)
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, NewError("error opening config file", WithCode(ErrConfig), WithCause(err))
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, NewError("error decoding YAML", WithCode(ErrConfig), WithCause(err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnv loads .env files into the process environment. Variables already
// set are kept. Without arguments ".env" is read if it exists.
func LoadEnv(filenames ...string) error {
	if len(filenames) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
	}
	if err := godotenv.Load(filenames...); err != nil {
		return NewError("error loading env file", WithCode(ErrConfig), WithCause(err))
	}
	return nil
}

// NewLogger returns the logrus logger configured by the file.
func (c *Config) NewLogger() *LogrusLogger {
	l := NewLogrusLogger(nil)
	if c.Logger.Level != "" {
		l.SetLevel(c.Logger.Level)
	}
	return l
}

// NewMapper builds a Mapper from the configuration.
func (c *Config) NewMapper(logger Logger) (*Mapper, error) {
	dates, err := NewConverter(c.TimeZone)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = c.NewLogger()
	}
	return NewMapper(MapperParams{Mappings: c.Mappings, Dates: dates, Logger: logger})
}

// NewRemoteClient builds a RemoteClient over an HTTPTransport, reading the
// token from the environment.
func (c *Config) NewRemoteClient(mapper *Mapper) (*RemoteClient, error) {
	transport := NewHTTPTransport(TransportParams{
		URL:    c.API.URL,
		Token:  c.Token(),
		Logger: mapper.Logger(),
	})
	return NewRemoteClient(RemoteParams{
		Fetcher:  transport,
		Mapper:   mapper,
		BaseID:   c.API.BaseID,
		Typecast: c.API.Typecast,
	})
}
