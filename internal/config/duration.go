package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a time.Duration read from the environment. Besides Go duration
// strings it accepts day and week suffixes ("10d", "1.5d", "2w") and bare
// integers, which are seconds.
type Duration struct {
	time.Duration
}

var longUnits = map[string]time.Duration{
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseDuration parses the formats accepted by Duration
func ParseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)

	if seconds, err := strconv.ParseInt(v, 10, 64); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("negative duration %q", v)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	for suffix, unit := range longUnits {
		if !strings.HasSuffix(v, suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSuffix(v, suffix), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", v, err)
		}
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", v)
		}
		return time.Duration(n * float64(unit)), nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", v)
	}
	return d, nil
}

// EnvDecode implements envconfig.Decoder
func (d *Duration) EnvDecode(ctx context.Context, v string) error {
	if v == "" {
		return nil
	}

	parsed, err := ParseDuration(v)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	return d.EnvDecode(context.Background(), string(text))
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d Duration) String() string {
	return d.Duration.String()
}
