// Package fiscal provides infrastructure adapters for Argentine tax-side
// concerns: the company's retention-agent configuration and the digital
// certificate status exposed by the tax authority.
package fiscal

import (
	"context"
	"fmt"
	"sync"

	"github.com/facturacion/backend/internal/domain/treasury"
	"github.com/facturacion/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// FileAgentConfigProvider resolves the retention-agent standing from the
// service configuration, optionally loading withholding rules from a TOML
// file. The same standing applies to every company served by this instance;
// per-company overrides belong to a future registry.
type FileAgentConfigProvider struct {
	mu     sync.RWMutex
	loaded treasury.AgentConfig
}

// NewFileAgentConfigProvider builds the provider from the retention section
// of the service configuration. The rules file is read once at startup.
func NewFileAgentConfigProvider(cfg config.RetentionConfig) (*FileAgentConfigProvider, error) {
	agent := treasury.AgentConfig{
		IsRetentionAgent: cfg.IsRetentionAgent,
	}

	if cfg.IsRetentionAgent && cfg.RulesFile != "" {
		rules, err := loadRulesFile(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load retention rules: %w", err)
		}
		agent.Rules = rules
	}

	for _, rule := range agent.Rules {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("invalid retention rule %s: %w", rule.TaxCode, err)
		}
	}

	return &FileAgentConfigProvider{loaded: agent}, nil
}

// RetentionConfig returns the configured agent standing
func (p *FileAgentConfigProvider) RetentionConfig(ctx context.Context, companyID uuid.UUID) (treasury.AgentConfig, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded, nil
}

// Reload replaces the loaded rules, e.g. after a SIGHUP driven config reload
func (p *FileAgentConfigProvider) Reload(cfg config.RetentionConfig) error {
	fresh, err := NewFileAgentConfigProvider(cfg)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.loaded = fresh.loaded
	p.mu.Unlock()
	return nil
}

// ruleFile mirrors the on-disk rules layout. Rates and thresholds are kept
// as strings so the file carries exact decimals.
type ruleFile struct {
	Rules []struct {
		TaxCode      string `mapstructure:"tax_code"`
		Name         string `mapstructure:"name"`
		Rate         string `mapstructure:"rate"`
		BaseType     string `mapstructure:"base_type"`
		MinThreshold string `mapstructure:"min_threshold"`
		MinAmount    string `mapstructure:"min_amount"`
	} `mapstructure:"rules"`
}

func loadRulesFile(path string) ([]treasury.RetentionRule, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var file ruleFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, err
	}

	rules := make([]treasury.RetentionRule, 0, len(file.Rules))
	for _, r := range file.Rules {
		rate, err := decimal.NewFromString(r.Rate)
		if err != nil {
			return nil, fmt.Errorf("rule %s: bad rate %q: %w", r.TaxCode, r.Rate, err)
		}
		threshold, err := parseOptionalDecimal(r.MinThreshold)
		if err != nil {
			return nil, fmt.Errorf("rule %s: bad min_threshold %q: %w", r.TaxCode, r.MinThreshold, err)
		}
		minAmount, err := parseOptionalDecimal(r.MinAmount)
		if err != nil {
			return nil, fmt.Errorf("rule %s: bad min_amount %q: %w", r.TaxCode, r.MinAmount, err)
		}

		rules = append(rules, treasury.RetentionRule{
			TaxCode:      r.TaxCode,
			Name:         r.Name,
			Rate:         rate,
			BaseType:     treasury.RetentionBaseType(r.BaseType),
			MinThreshold: threshold,
			MinAmount:    minAmount,
		})
	}
	return rules, nil
}

func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// StaticAgentConfigProvider returns a fixed configuration, used in tests and
// for instances that never withhold
type StaticAgentConfigProvider struct {
	Config treasury.AgentConfig
}

// RetentionConfig returns the fixed configuration
func (p StaticAgentConfigProvider) RetentionConfig(ctx context.Context, companyID uuid.UUID) (treasury.AgentConfig, error) {
	return p.Config, nil
}
