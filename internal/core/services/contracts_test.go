package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

func TestValidateContracts_Defaults(t *testing.T) {
	require.NoError(t, ValidateContracts(domain.DefaultContracts()))
}

func TestValidateContract_FieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *domain.TierContract)
		want   string
	}{
		{"missing prompt", func(c *domain.TierContract) { c.Prompt = "" }, "Prompt"},
		{"no queries", func(c *domain.TierContract) { c.Queries = nil }, "Queries"},
		{"empty query text", func(c *domain.TierContract) { c.Queries[0].Text = "" }, "Text"},
		{"zero top k", func(c *domain.TierContract) { c.TopK = 0 }, "TopK"},
		{"bad citation mode", func(c *domain.TierContract) { c.CitationMode = "lenient" }, "CitationMode"},
		{"too many regenerations", func(c *domain.TierContract) { c.Regenerations = 9 }, "Regenerations"},
		{"temperature out of range", func(c *domain.TierContract) { c.Temperature = 3 }, "Temperature"},
		{"min above max", func(c *domain.TierContract) { c.MinItems = 9 }, "min_items"},
		{"wrong schema", func(c *domain.TierContract) { c.Schema = domain.SchemaSummary }, "findings schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.DefaultContracts().A
			tt.mutate(&c)

			err := ValidateContract(c)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidContract)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateContract_TierCLabels(t *testing.T) {
	c := domain.DefaultContracts().C
	c.Queries = append(c.Queries, domain.ContractQuery{Label: "dividends", Text: "dividend policy"})

	err := ValidateContract(c)
	assert.ErrorIs(t, err, domain.ErrInvalidContract)
	assert.Contains(t, err.Error(), "dividends")
}

func TestValidateContract_TierBLength(t *testing.T) {
	c := domain.DefaultContracts().B
	c.MinLength, c.MaxLength = 500, 100

	err := ValidateContract(c)
	assert.ErrorIs(t, err, domain.ErrInvalidContract)
	assert.Contains(t, err.Error(), "min_length")
}

func TestValidateContracts_TierMismatch(t *testing.T) {
	contracts := domain.DefaultContracts()
	contracts.B.Tier = domain.TierA

	err := ValidateContracts(contracts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidContract))
}
