// Package config loads the TOML enrollment configuration administrator
// tooling (cmd/ringvote-enroll, cmd/ringvote-vote) reads: chunk size,
// candidate list, and output file paths. No on-chain cell data is
// TOML-encoded — only these off-chain enrollment inputs.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Candidate is one entry of the candidate list an enrollment config
// declares, ahead of being packed into the candidate cell.
type Candidate struct {
	ID          uint32 `toml:"id"`
	Description string `toml:"description"`
}

// Enrollment is the TOML shape an administrator hands to
// cmd/ringvote-enroll: how many voters per ring, who the candidates
// are, and where to write the generated artifacts.
type Enrollment struct {
	// ChunkSize is the ring size k (spec §3's "fixed public parameter").
	ChunkSize int `toml:"chunk_size"`

	// VoterCount is how many fresh RSA-2048 keypairs to generate.
	VoterCount int `toml:"voter_count"`

	Candidates []Candidate `toml:"candidates"`

	// Output paths. KeysDir receives one private key file per voter
	// (voter-<index>.pem-equivalent, named by the enroll CLI); the
	// remaining three are exact on-chain cell payloads.
	KeysDir              string `toml:"keys_dir"`
	PublicKeyCellPath    string `toml:"public_key_cell_path"`
	MerkleRootCellPath   string `toml:"merkle_root_cell_path"`
	CandidateCellPath    string `toml:"candidate_cell_path"`
}

// LoadEnrollment reads and validates an Enrollment config from path.
func LoadEnrollment(path string) (*Enrollment, error) {
	var cfg Enrollment
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Enrollment) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.VoterCount <= 0 {
		return fmt.Errorf("voter_count must be positive, got %d", c.VoterCount)
	}
	if len(c.Candidates) == 0 {
		return fmt.Errorf("candidates must not be empty")
	}
	seen := make(map[uint32]bool, len(c.Candidates))
	for _, cand := range c.Candidates {
		if seen[cand.ID] {
			return fmt.Errorf("duplicate candidate id %08x", cand.ID)
		}
		seen[cand.ID] = true
	}
	if c.KeysDir == "" || c.PublicKeyCellPath == "" || c.MerkleRootCellPath == "" || c.CandidateCellPath == "" {
		return fmt.Errorf("keys_dir, public_key_cell_path, merkle_root_cell_path, and candidate_cell_path are all required")
	}
	return nil
}

// Vote is the TOML shape an administrator (or a voter, in the
// degenerate one-config-per-voter case) hands to cmd/ringvote-vote:
// which voter is casting a vote, for whom, and where the enrollment
// artifacts cmd/ringvote-enroll produced can be found.
type Vote struct {
	VoterIndex        int    `toml:"voter_index"`
	PrivateKeyPath    string `toml:"private_key_path"`
	CandidateID       uint32 `toml:"candidate_id"`
	ChunkSize         int    `toml:"chunk_size"`
	PublicKeyCellPath string `toml:"public_key_cell_path"`

	// RPCURL, if set, submits the built vote through a chain.HTTPSource
	// instead of writing the vote cell and witness to files.
	RPCURL          string `toml:"rpc_url"`
	VoteCellOutPath string `toml:"vote_cell_out_path"`
	WitnessOutPath  string `toml:"witness_out_path"`
}

// LoadVote reads and validates a Vote config from path.
func LoadVote(path string) (*Vote, error) {
	var cfg Vote
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Vote) validate() error {
	if c.VoterIndex < 0 {
		return fmt.Errorf("voter_index must not be negative, got %d", c.VoterIndex)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.PrivateKeyPath == "" || c.PublicKeyCellPath == "" {
		return fmt.Errorf("private_key_path and public_key_cell_path are required")
	}
	if c.RPCURL == "" && (c.VoteCellOutPath == "" || c.WitnessOutPath == "") {
		return fmt.Errorf("vote_cell_out_path and witness_out_path are required when rpc_url is unset")
	}
	return nil
}

// Tally is the TOML shape cmd/ringvote-tally reads: which chain.Source
// to scan and which cells anchor the tally.
type Tally struct {
	RPCURL              string `toml:"rpc_url"`
	VerifierTypeHashHex string `toml:"verifier_type_hash"`
	CandidateCellTxHash string `toml:"candidate_cell_tx_hash"`
	CandidateCellIndex  uint32 `toml:"candidate_cell_index"`
	MerkleRootTxHash    string `toml:"merkle_root_tx_hash"`
	MerkleRootIndex     uint32 `toml:"merkle_root_index"`
}

// LoadTally reads and validates a Tally config from path.
func LoadTally(path string) (*Tally, error) {
	var cfg Tally
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("config: %s: rpc_url is required", path)
	}
	if cfg.CandidateCellTxHash == "" || cfg.MerkleRootTxHash == "" {
		return nil, fmt.Errorf("config: %s: candidate_cell_tx_hash and merkle_root_tx_hash are required", path)
	}
	return &cfg, nil
}
