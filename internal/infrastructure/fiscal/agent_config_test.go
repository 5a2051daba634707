package fiscal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturacion/backend/internal/domain/treasury"
	"github.com/facturacion/backend/internal/infrastructure/config"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "retention_rules.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sampleRules = `
[[rules]]
tax_code = "GAN"
name = "Ganancias"
rate = "0.02"
base_type = "INVOICE_NET"
min_threshold = "67170.00"
min_amount = "90.00"

[[rules]]
tax_code = "IIBB"
name = "Ingresos Brutos"
rate = "0.0175"
base_type = "GROSS_PAYMENT"
`

func TestNewFileAgentConfigProvider_LoadsRules(t *testing.T) {
	path := writeRulesFile(t, sampleRules)

	provider, err := NewFileAgentConfigProvider(config.RetentionConfig{
		IsRetentionAgent: true,
		RulesFile:        path,
	})
	require.NoError(t, err)

	cfg, err := provider.RetentionConfig(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.True(t, cfg.IsRetentionAgent)
	require.Len(t, cfg.Rules, 2)

	gan := cfg.Rules[0]
	assert.Equal(t, "GAN", gan.TaxCode)
	assert.True(t, gan.Rate.Equal(decimal.NewFromFloat(0.02)))
	assert.Equal(t, treasury.BaseInvoiceNet, gan.BaseType)
	assert.True(t, gan.MinThreshold.Equal(decimal.NewFromFloat(67170)))
	assert.True(t, gan.MinAmount.Equal(decimal.NewFromInt(90)))

	iibb := cfg.Rules[1]
	assert.Equal(t, treasury.BaseGrossPayment, iibb.BaseType)
	assert.True(t, iibb.MinThreshold.IsZero())
}

func TestNewFileAgentConfigProvider_NonAgentSkipsRules(t *testing.T) {
	provider, err := NewFileAgentConfigProvider(config.RetentionConfig{
		IsRetentionAgent: false,
		RulesFile:        "does-not-matter.toml",
	})
	require.NoError(t, err)

	cfg, err := provider.RetentionConfig(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, cfg.IsRetentionAgent)
	assert.Empty(t, cfg.Rules)
}

func TestNewFileAgentConfigProvider_MissingFile(t *testing.T) {
	_, err := NewFileAgentConfigProvider(config.RetentionConfig{
		IsRetentionAgent: true,
		RulesFile:        filepath.Join(t.TempDir(), "absent.toml"),
	})
	assert.Error(t, err)
}

func TestNewFileAgentConfigProvider_BadRate(t *testing.T) {
	path := writeRulesFile(t, `
[[rules]]
tax_code = "GAN"
rate = "two percent"
base_type = "GROSS_PAYMENT"
`)

	_, err := NewFileAgentConfigProvider(config.RetentionConfig{
		IsRetentionAgent: true,
		RulesFile:        path,
	})
	assert.Error(t, err)
}

func TestNewFileAgentConfigProvider_InvalidRuleRejected(t *testing.T) {
	path := writeRulesFile(t, `
[[rules]]
tax_code = "GAN"
rate = "1.5"
base_type = "GROSS_PAYMENT"
`)

	_, err := NewFileAgentConfigProvider(config.RetentionConfig{
		IsRetentionAgent: true,
		RulesFile:        path,
	})
	assert.Error(t, err)
}

func TestFileAgentConfigProvider_Reload(t *testing.T) {
	path := writeRulesFile(t, sampleRules)
	provider, err := NewFileAgentConfigProvider(config.RetentionConfig{
		IsRetentionAgent: true,
		RulesFile:        path,
	})
	require.NoError(t, err)

	require.NoError(t, provider.Reload(config.RetentionConfig{IsRetentionAgent: false}))

	cfg, err := provider.RetentionConfig(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, cfg.IsRetentionAgent)
	assert.Empty(t, cfg.Rules)
}

func TestFileAgentConfigProvider_ReloadKeepsOldConfigOnError(t *testing.T) {
	path := writeRulesFile(t, sampleRules)
	provider, err := NewFileAgentConfigProvider(config.RetentionConfig{
		IsRetentionAgent: true,
		RulesFile:        path,
	})
	require.NoError(t, err)

	err = provider.Reload(config.RetentionConfig{
		IsRetentionAgent: true,
		RulesFile:        filepath.Join(t.TempDir(), "absent.toml"),
	})
	assert.Error(t, err)

	cfg, err := provider.RetentionConfig(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Len(t, cfg.Rules, 2)
}

func TestStaticAgentConfigProvider(t *testing.T) {
	provider := StaticAgentConfigProvider{
		Config: treasury.AgentConfig{IsRetentionAgent: true},
	}

	cfg, err := provider.RetentionConfig(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, cfg.IsRetentionAgent)
}
