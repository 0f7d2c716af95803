// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package prove

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// LastLayerDegreeBound is the fixed degree bound spec §4.6.1 uses to
// derive the FRI step list.
const LastLayerDegreeBound = 128

// DefaultNQueries and DefaultPowBits are spec §4.6.1's documented
// defaults, overridable per request.
const (
	DefaultNQueries = 8
	DefaultPowBits  = 30
)

// starkFRI mirrors the nested `stark.fri` object in
// _examples/original_source/prover/src/utils/config.rs::Template.
type starkFRI struct {
	FriStepList          []uint32 `json:"fri_step_list"`
	LastLayerDegreeBound uint32   `json:"last_layer_degree_bound"`
	NQueries             uint32   `json:"n_queries"`
	ProofOfWorkBits      uint32   `json:"proof_of_work_bits"`
}

type stark struct {
	FRI        starkFRI `json:"fri"`
	LogNCosets uint32   `json:"log_n_cosets"`
}

// proverParams mirrors config.rs's Template struct, with every field's
// value fixed per spec §4.6.1 except fri_step_list (derived from
// n_steps), n_queries and proof_of_work_bits (request-overridable).
type proverParams struct {
	Field                             string          `json:"field"`
	ChannelHash                       string          `json:"channel_hash"`
	CommitmentHash                    string          `json:"commitment_hash"`
	NVerifierFriendlyCommitmentLayers uint32          `json:"n_verifier_friendly_commitment_layers"`
	PowHash                           string          `json:"pow_hash"`
	Statement                         json.RawMessage `json:"statement"`
	Stark                             stark           `json:"stark"`
	UseExtensionField                 bool            `json:"use_extension_field"`
	VerifierFriendlyChannelUpdates    bool            `json:"verifier_friendly_channel_updates"`
	VerifierFriendlyCommitmentHash    string          `json:"verifier_friendly_commitment_hash"`
}

// calculateFRIStepList computes fri_degree = round(log2(nSteps /
// degreeBound)) + 4, then emits [0, 4, 4, ..., 4] (floor(fri_degree/4)
// fours) followed by fri_degree%4 if nonzero — verbatim the algorithm in
// config.rs::calculate_fri_step_list.
func calculateFRIStepList(nSteps, degreeBound uint32) []uint32 {
	friDegree := uint32(math.Round(math.Log2(float64(nSteps)/float64(degreeBound)))) + 4
	steps := []uint32{0}
	for i := uint32(0); i < friDegree/4; i++ {
		steps = append(steps, 4)
	}
	if friDegree%4 != 0 {
		steps = append(steps, friDegree%4)
	}
	return steps
}

// GenerateParamsFile reads n_steps out of the public-input file produced
// by the run tool, derives the FRI step list, and writes the full
// cpu_air_params.json prover-parameter file, applying nQueries/powBits
// overrides when non-nil (defaulting to DefaultNQueries/DefaultPowBits
// otherwise).
func GenerateParamsFile(publicInputFile, paramsFile string, nQueries, powBits *uint32) error {
	data, err := os.ReadFile(publicInputFile)
	if err != nil {
		return fmt.Errorf("prove: read public input file: %w", err)
	}
	var parsed struct {
		NSteps uint32 `json:"n_steps"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("prove: parse public input file: %w", err)
	}
	if parsed.NSteps == 0 {
		return fmt.Errorf("prove: public input file is missing n_steps")
	}

	queries := uint32(DefaultNQueries)
	if nQueries != nil {
		queries = *nQueries
	}
	pow := uint32(DefaultPowBits)
	if powBits != nil {
		pow = *powBits
	}

	params := proverParams{
		Field:                             "PrimeField0",
		ChannelHash:                       "poseidon3",
		CommitmentHash:                    "blake256_masked160_lsb",
		NVerifierFriendlyCommitmentLayers: 9999,
		PowHash:                           "keccak256",
		Statement:                         json.RawMessage(`{"page_hash":"pedersen"}`),
		Stark: stark{
			FRI: starkFRI{
				FriStepList:          calculateFRIStepList(parsed.NSteps, LastLayerDegreeBound),
				LastLayerDegreeBound: LastLayerDegreeBound,
				NQueries:             queries,
				ProofOfWorkBits:      pow,
			},
			LogNCosets: 3,
		},
		UseExtensionField:              false,
		VerifierFriendlyChannelUpdates: true,
		VerifierFriendlyCommitmentHash: "poseidon3",
	}

	out, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return fmt.Errorf("prove: encode prover params: %w", err)
	}
	if err := os.WriteFile(paramsFile, out, 0o600); err != nil {
		return fmt.Errorf("prove: write prover params: %w", err)
	}
	return nil
}
