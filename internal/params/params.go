package params

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"RoboInvestor/internal/model"

	"github.com/rs/zerolog/log"
)

// DefaultPrefix namespaces every parameter in the store.
const DefaultPrefix = "/robo-investor/"

const (
	KeyTargetAccountBalance    = "target_account_balance"
	KeyThresholdDataAgeMinutes = "threshold_data_age_minutes"
	KeyInvestmentAggression    = "investment_aggression"
	KeyPercentageFallThreshold = "percentage_fall_threshold"
	KeyAPIKey                  = "alphavantage_api_key"
)

// Load reads every parameter under prefix and converts it to its typed form.
// Missing or malformed values fail with model.ErrConfiguration.
func Load(ctx context.Context, s Store, prefix string) (model.Parameters, error) {
	return LoadWithOverrides(ctx, s, prefix, nil)
}

// LoadWithOverrides is Load with non-empty overrides taking precedence over
// stored values. Overrides are not persisted.
func LoadWithOverrides(ctx context.Context, s Store, prefix string, overrides map[string]string) (model.Parameters, error) {
	raw, err := s.GetByPath(ctx, prefix)
	if err != nil {
		return model.Parameters{}, fmt.Errorf("%w: read parameter store: %v", model.ErrConfiguration, err)
	}
	for name, value := range raw {
		if name == KeyAPIKey {
			continue
		}
		log.Info().Str("name", name).Str("value", value).Msg("loaded parameter from store")
	}
	for name, value := range overrides {
		if value == "" {
			continue
		}
		if name != KeyAPIKey {
			log.Info().Str("name", name).Str("value", value).Msg("parameter overridden")
		}
		raw[name] = value
	}
	return Parse(raw)
}

// Parse converts raw string parameters. Every key is required.
func Parse(raw map[string]string) (model.Parameters, error) {
	var p model.Parameters
	for _, key := range []string{
		KeyTargetAccountBalance,
		KeyThresholdDataAgeMinutes,
		KeyInvestmentAggression,
		KeyPercentageFallThreshold,
		KeyAPIKey,
	} {
		value, ok := raw[key]
		if !ok {
			return model.Parameters{}, fmt.Errorf("%w: missing parameter %s", model.ErrConfiguration, key)
		}
		if err := assign(&p, key, value); err != nil {
			return model.Parameters{}, err
		}
	}
	return p, nil
}

// Set validates value, persists it under prefix and applies it to p.
// p may be nil to only persist; it is left untouched when validation or the
// write fails.
func Set(ctx context.Context, s Store, prefix string, p *model.Parameters, key, value string) error {
	var next model.Parameters
	if p != nil {
		next = *p
	}
	if err := assign(&next, key, value); err != nil {
		return err
	}
	if key != KeyAPIKey {
		log.Info().Str("name", key).Str("value", value).Msg("saving parameter to store")
	}
	if err := s.Put(ctx, prefix+key, value); err != nil {
		return fmt.Errorf("save parameter %s: %w", key, err)
	}
	if p != nil {
		*p = next
	}
	return nil
}

func assign(p *model.Parameters, key, value string) error {
	switch key {
	case KeyTargetAccountBalance:
		return parseFloat(key, value, &p.TargetAccountBalance)
	case KeyInvestmentAggression:
		return parseFloat(key, value, &p.InvestmentAggression)
	case KeyPercentageFallThreshold:
		return parseFloat(key, value, &p.PercentageFallThreshold)
	case KeyThresholdDataAgeMinutes:
		minutes, err := strconv.ParseInt(value, 10, 64)
		if err != nil || minutes < 0 {
			return fmt.Errorf("%w: %s must be a non-negative whole number of minutes, got %q", model.ErrConfiguration, key, value)
		}
		p.ThresholdDataAge = time.Duration(minutes) * time.Minute
	case KeyAPIKey:
		if value == "" {
			return fmt.Errorf("%w: %s is empty", model.ErrConfiguration, key)
		}
		p.APIKey = value
	default:
		return fmt.Errorf("%w: unknown parameter %s", model.ErrConfiguration, key)
	}
	return nil
}

func parseFloat(key, value string, dst *float64) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be numeric, got %q", model.ErrConfiguration, key, value)
	}
	*dst = v
	return nil
}
