package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/drivelane/dealersync/internal/model"
)

// dealersFile is the on-disk shape of the dealer roster.
type dealersFile struct {
	Dealers []model.DealerSyncConfig `yaml:"dealers"`
}

// LoadDealers reads a YAML dealer roster file and returns the sync
// configurations it contains. Entries without a dealer_id are rejected.
func LoadDealers(path string) ([]model.DealerSyncConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read dealers file %s", path)
	}

	var f dealersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "config: parse dealers file %s", path)
	}

	for i, d := range f.Dealers {
		if d.DealerID == "" {
			return nil, eris.Errorf("config: dealers file %s: entry %d missing dealer_id", path, i)
		}
	}

	return f.Dealers, nil
}
