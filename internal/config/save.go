package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Validate rejects configs that cannot be saved. Warnings are ignored.
func Validate(cfg Config) error {
	var errs []string

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		errs = append(errs, "app.port must be 1..65535")
	}
	if cfg.Crawl.SliceSize <= 0 {
		errs = append(errs, "crawl.slice_size must be > 0")
	}
	if cfg.Crawl.MaxPages <= 0 {
		errs = append(errs, "crawl.max_pages must be > 0")
	}
	if cfg.Crawl.FreshnessWindow < 0 {
		errs = append(errs, "crawl.freshness_window must be >= 0")
	}
	if cfg.Schedule.EveryHours < 0 {
		errs = append(errs, "schedule.every_hours must be >= 0")
	}

	_, v := NormalizeAndValidate(cfg)
	errs = append(errs, v.Errors...)

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

// SaveAtomic writes cfg next to path and swaps it in, keeping one .bak.
func SaveAtomic(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}

	_ = os.Remove(bak)
	_ = os.Rename(path, bak)

	return os.Rename(tmp, path)
}
