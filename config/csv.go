package config

import (
	"encoding/csv"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/lddl/infra/logger"
)

var csvHeader = []string{"section", "key", "value"}

// rawJSON serves an in-memory JSON document to koanf.
type rawJSON []byte

func (b rawJSON) ReadBytes() ([]byte, error) { return b, nil }

func (b rawJSON) Read() (map[string]any, error) {
	return nil, errors.New("raw json provider does not support Read")
}

func flatten(cfg Config) (*koanf.Koanf, error) {
	b, err := stdjson.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(rawJSON(b), json.Parser()); err != nil {
		return nil, err
	}
	return k, nil
}

// WriteCSV writes cfg as section,key,value rows in key order. Nested keys
// keep their dotted path after the section; lists are written as JSON.
func WriteCSV(w io.Writer, cfg Config) error {
	k, err := flatten(cfg)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, key := range k.Keys() {
		v := k.Get(key)
		if v == nil {
			continue
		}
		section, rest, _ := strings.Cut(key, ".")
		val, err := formatValue(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := cw.Write([]string{section, rest, val}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads rows written by WriteCSV, then applies defaults and
// validation like Load. Rows of unknown sections are skipped with a warning.
func ReadCSV(r io.Reader) (*Config, error) {
	known, err := flatten(Config{})
	if err != nil {
		return nil, err
	}
	sections := known.Raw()
	log := logger.New("config")

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read config header: %w", err)
	}
	if len(header) < len(csvHeader) {
		return nil, fmt.Errorf("config csv header %v, want %v", header, csvHeader)
	}
	for i, h := range csvHeader {
		if strings.TrimSpace(header[i]) != h {
			return nil, fmt.Errorf("config csv header %v, want %v", header, csvHeader)
		}
	}

	k := koanf.New(".")
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("line %d: expected 3 fields, got %d", line, len(row))
		}
		section, key := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if _, ok := sections[section]; !ok {
			log.Warnf("unknown section %q at line %d, skipping row", section, line)
			continue
		}
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", line)
		}
		if err := k.Set(section+"."+key, parseValue(strings.TrimSpace(row[2]))); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return decode(k)
}

func formatValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		b, err := stdjson.Marshal(x)
		return string(b), err
	}
}

// parseValue reads JSON literals (numbers, booleans, lists, objects) and
// keeps anything else as a plain string.
func parseValue(s string) any {
	if s == "" {
		return s
	}
	var v any
	if err := stdjson.Unmarshal([]byte(s), &v); err == nil && v != nil {
		return v
	}
	return s
}
