package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// ValidateContracts checks every tier contract against its field rules and
// the rules that span fields. Errors wrap domain.ErrInvalidContract.
func ValidateContracts(c domain.Contracts) error {
	var errs []error
	for _, tier := range domain.AllTiers() {
		contract := c.For(tier)
		if contract.Tier != tier {
			errs = append(errs, fmt.Errorf("%w: tier %s contract declares tier %q",
				domain.ErrInvalidContract, tier, contract.Tier))
			continue
		}
		if err := ValidateContract(contract); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ValidateContract checks a single tier contract.
func ValidateContract(c domain.TierContract) error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: tier %s: %s", domain.ErrInvalidContract, c.Tier, describeValidation(err))
	}

	var problems []string
	if c.MaxItems > 0 && c.MinItems > c.MaxItems {
		problems = append(problems, fmt.Sprintf("min_items %d exceeds max_items %d", c.MinItems, c.MaxItems))
	}
	if c.MaxLength > 0 && c.MinLength > c.MaxLength {
		problems = append(problems, fmt.Sprintf("min_length %d exceeds max_length %d", c.MinLength, c.MaxLength))
	}

	switch c.Tier {
	case domain.TierA:
		if c.Schema != domain.SchemaFindings {
			problems = append(problems, "tier A must use the findings schema")
		}
	case domain.TierB:
		if c.Schema != domain.SchemaSummary {
			problems = append(problems, "tier B must use the summary schema")
		}
	case domain.TierC:
		if c.Schema != domain.SchemaMetrics {
			problems = append(problems, "tier C must use the metrics schema")
		}
		for _, q := range c.Queries {
			if !domain.MetricCategory(q.Label).IsValid() {
				problems = append(problems, fmt.Sprintf("query label %q is not a metric category", q.Label))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: tier %s: %s", domain.ErrInvalidContract, c.Tier, strings.Join(problems, "; "))
	}
	return nil
}

// describeValidation flattens validator errors into "field: rule" pairs.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fe.Namespace()+": "+rule)
	}
	return strings.Join(parts, "; ")
}
