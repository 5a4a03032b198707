// Package filtercfg loads acceptance mask and filter configuration from an
// INI file. The file has one section per mask or filter:
//
//	[mask0]
//	value = 0x1FFC0000
//
//	[filter2]
//	value = 0x1D0CAFC8
//	extended = true
//
// Mask and filter values are the composite 29-bit layout (standard part in
// bits 28:18). Sections may appear in any order; absent sections leave the
// corresponding register bank untouched.
package filtercfg

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jbmendez/go-mcp2515/mcp2515"
	"gopkg.in/ini.v1"
)

// ErrValue is returned when a section is missing its value key or the value
// does not parse as a 29-bit identifier.
var ErrValue = errors.New("filtercfg: invalid value")

// Config is a parsed filter file.
type Config struct {
	Masks   mcp2515.MaskConfig
	Filters mcp2515.FilterConfig
}

// Empty reports whether the file selected no masks and no filters.
func (c *Config) Empty() bool {
	return c.Masks.Select == 0 && c.Filters.Select == 0
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("filtercfg: %w", err)
	}
	return parse(f)
}

// LoadBytes parses in-memory file content; used by tests.
func LoadBytes(data []byte) (*Config, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("filtercfg: %w", err)
	}
	return parse(f)
}

func parse(f *ini.File) (*Config, error) {
	cfg := &Config{}
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			// ini always materializes the top-level section; no
			// top-level keys are defined.
			continue
		}
		name := strings.ToLower(sec.Name())
		switch {
		case strings.HasPrefix(name, "mask"):
			idx, err := bankIndex(name, "mask", 1)
			if err != nil {
				return nil, err
			}
			v, err := idValue(sec)
			if err != nil {
				return nil, err
			}
			cfg.Masks.Select |= mcp2515.MaskSet(1) << idx
			cfg.Masks.Value[idx] = v
		case strings.HasPrefix(name, "filter"):
			idx, err := bankIndex(name, "filter", 5)
			if err != nil {
				return nil, err
			}
			v, err := idValue(sec)
			if err != nil {
				return nil, err
			}
			cfg.Filters.Select |= mcp2515.FilterSet(1) << idx
			cfg.Filters.Value[idx] = v
			if sec.Key("extended").MustBool(false) {
				cfg.Filters.Extended |= mcp2515.FilterSet(1) << idx
			}
		default:
			return nil, fmt.Errorf("filtercfg: unknown section %q", sec.Name())
		}
	}
	return cfg, nil
}

func bankIndex(name, prefix string, max int) (uint, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
	if err != nil || n < 0 || n > max {
		return 0, fmt.Errorf("filtercfg: unknown section %q", name)
	}
	return uint(n), nil
}

func idValue(sec *ini.Section) (mcp2515.ID, error) {
	raw := strings.TrimSpace(sec.Key("value").String())
	if raw == "" {
		return 0, fmt.Errorf("%w: section %q has no value", ErrValue, sec.Name())
	}
	v, err := strconv.ParseUint(raw, 0, 32)
	if err != nil || v > 0x1FFFFFFF {
		return 0, fmt.Errorf("%w: %q in section %q", ErrValue, raw, sec.Name())
	}
	return mcp2515.ID(v), nil
}
