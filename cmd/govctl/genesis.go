package main

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"agora/contexts/governance/proposal-engine/application/commands"

	"gopkg.in/yaml.v3"
)

// genesisFile lists organizations to create in order, all deployed by the
// same identity.
type genesisFile struct {
	Deployer      string                `yaml:"deployer"`
	Organizations []genesisOrganization `yaml:"organizations"`
}

type genesisOrganization struct {
	Name                    string   `yaml:"name"`
	Symbol                  string   `yaml:"symbol"`
	Members                 []string `yaml:"members"`
	Quorum                  uint64   `yaml:"quorum"`
	InitialSupply           string   `yaml:"initial_supply"`
	ExistingLedgerID        string   `yaml:"existing_ledger_id"`
	Authority               string   `yaml:"authority"`
	AcceptExternalProposals bool     `yaml:"accept_external_proposals"`
}

func parseGenesis(r io.Reader) ([]commands.CreateOrganizationCommand, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var file genesisFile
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode genesis file: %w", err)
	}
	deployer := strings.TrimSpace(file.Deployer)
	if deployer == "" {
		return nil, errors.New("genesis file: deployer is required")
	}
	if len(file.Organizations) == 0 {
		return nil, errors.New("genesis file: no organizations")
	}

	out := make([]commands.CreateOrganizationCommand, 0, len(file.Organizations))
	for i, org := range file.Organizations {
		cmd := commands.CreateOrganizationCommand{
			Deployer:                deployer,
			Name:                    org.Name,
			Symbol:                  org.Symbol,
			Members:                 org.Members,
			Quorum:                  org.Quorum,
			ExistingLedgerID:        org.ExistingLedgerID,
			Authority:               org.Authority,
			AcceptExternalProposals: org.AcceptExternalProposals,
		}
		if raw := strings.TrimSpace(org.InitialSupply); raw != "" {
			supply, ok := new(big.Int).SetString(raw, 10)
			if !ok {
				return nil, fmt.Errorf("genesis file: organization %d: invalid initial_supply %q", i, raw)
			}
			cmd.InitialSupply = supply
		}
		out = append(out, cmd)
	}
	return out, nil
}
