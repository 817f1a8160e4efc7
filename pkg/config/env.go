// Package config reads process configuration from the environment. Binaries
// use these helpers once at start-up to fill typed config structs; nothing
// below cmd/ reads the environment directly.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func String(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Required returns the value of k or an error naming the missing variable.
func Required(k string) (string, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return "", fmt.Errorf("%s environment variable is required", k)
	}
	return v, nil
}

func Int(k string, def int) (int, error) {
	v := String(k, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func Bool(k string, def bool) (bool, error) {
	v := String(k, "")
	if v == "" {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("%s: invalid boolean %q", k, v)
}

func Duration(k string, def time.Duration) (time.Duration, error) {
	v := String(k, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func Decimal(k string, def decimal.Decimal) (decimal.Decimal, error) {
	v := String(k, "")
	if v == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

// List splits a comma separated value, dropping blanks.
func List(k, def string) []string {
	var out []string
	for _, p := range strings.Split(String(k, def), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
