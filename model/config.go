package model

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Config is a parsed ini-style model configuration with a [model] and
// a [fitting] section.
type Config struct {
	sections map[string]map[string]string
	dir      string
}

// ParseConfig reads an ini-style configuration file. Lines starting
// with '#' or ';' are comments, sections are given in square brackets,
// keys and values are separated by '='.
func ParseConfig(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{
		sections: make(map[string]map[string]string),
		dir:      filepath.Dir(filename),
	}

	section := ""
	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		if line[0] == '[' {
			if line[len(line)-1] != ']' {
				return nil, fmt.Errorf("%s:%d: malformed section header", filename, lineNo)
			}
			section = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			if _, ok := cfg.sections[section]; !ok {
				cfg.sections[section] = make(map[string]string)
			}
			continue
		}
		i := strings.Index(line, "=")
		if i < 0 {
			return nil, fmt.Errorf("%s:%d: expected key = value", filename, lineNo)
		}
		if section == "" {
			return nil, fmt.Errorf("%s:%d: key outside of a section", filename, lineNo)
		}
		key := strings.ToLower(strings.TrimSpace(line[:i]))
		cfg.sections[section][key] = strings.TrimSpace(line[i+1:])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Get returns a value and whether the key is present.
func (cfg *Config) Get(section, key string) (string, bool) {
	s, ok := cfg.sections[strings.ToLower(section)]
	if !ok {
		return "", false
	}
	v, ok := s[strings.ToLower(key)]
	return v, ok
}

// GetString returns a string value or the default.
func (cfg *Config) GetString(section, key, def string) string {
	if v, ok := cfg.Get(section, key); ok {
		return v
	}
	return def
}

// GetPath returns a path value resolved relative to the config file
// directory.
func (cfg *Config) GetPath(section, key string) (string, error) {
	v, ok := cfg.Get(section, key)
	if !ok {
		return "", fmt.Errorf("missing %s key in [%s] section", key, section)
	}
	if filepath.IsAbs(v) {
		return v, nil
	}
	return filepath.Join(cfg.dir, v), nil
}

// GetFloat returns a float value or the default.
func (cfg *Config) GetFloat(section, key string, def float64) (float64, error) {
	v, ok := cfg.Get(section, key)
	if !ok {
		return def, nil
	}
	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("key %s in [%s]: %v", key, section, err)
	}
	return x, nil
}

// GetInt returns an integer value or the default.
func (cfg *Config) GetInt(section, key string, def int) (int, error) {
	v, ok := cfg.Get(section, key)
	if !ok {
		return def, nil
	}
	x, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("key %s in [%s]: %v", key, section, err)
	}
	return x, nil
}

// GetIntPairs parses a flat whitespace-separated list of indices into
// index pairs.
func (cfg *Config) GetIntPairs(section, key string) ([][2]int, error) {
	v, ok := cfg.Get(section, key)
	if !ok || v == "" {
		return nil, nil
	}
	fields := strings.Fields(v)
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("key %s in [%s]: odd number of indices", key, section)
	}
	pairs := make([][2]int, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		a, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, err
		}
		b, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, [2]int{a, b})
	}
	return pairs, nil
}

// Set sets a value, creating the section if needed.
func (cfg *Config) Set(section, key, value string) {
	section = strings.ToLower(section)
	if _, ok := cfg.sections[section]; !ok {
		cfg.sections[section] = make(map[string]string)
	}
	cfg.sections[section][strings.ToLower(key)] = value
}

// Write writes the configuration to a file, [model] section first.
func (cfg *Config) Write(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	order := []string{"model", "fitting"}
	seen := make(map[string]bool)
	for _, section := range order {
		if _, ok := cfg.sections[section]; ok {
			writeSection(w, section, cfg.sections[section])
			seen[section] = true
		}
	}
	for section, kv := range cfg.sections {
		if !seen[section] {
			writeSection(w, section, kv)
		}
	}
	return w.Flush()
}

func writeSection(w *bufio.Writer, name string, kv map[string]string) {
	fmt.Fprintf(w, "[%s]\n", name)
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s = %s\n", k, kv[k])
	}
	fmt.Fprintln(w)
}
