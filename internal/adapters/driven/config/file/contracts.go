package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// ContractsFile is the name of the tier contract overrides file.
const ContractsFile = "contracts.yaml"

// LoadContracts reads tier contract overrides from a YAML file and lays them
// over the built-in contracts. Fields absent from the file keep their defaults;
// a list given in the file replaces the default list. A missing file yields
// the defaults. Unknown keys are rejected so typos do not pass silently.
//
// The result is not validated here; the analyzer validates contracts on construction.
func LoadContracts(path string) (domain.Contracts, error) {
	contracts := domain.DefaultContracts()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return contracts, nil
		}
		return contracts, fmt.Errorf("read contracts: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&contracts); err != nil && !errors.Is(err, io.EOF) {
		return domain.DefaultContracts(), fmt.Errorf("%w: parse %s: %w", domain.ErrInvalidContract, path, err)
	}

	return contracts, nil
}

// SaveContracts writes contracts as YAML, creating the directory if needed.
func SaveContracts(path string, contracts domain.Contracts) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create contracts directory: %w", err)
	}

	data, err := yaml.Marshal(contracts)
	if err != nil {
		return fmt.Errorf("encode contracts: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write contracts: %w", err)
	}
	return nil
}
