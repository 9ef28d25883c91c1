// Command ringvote-enroll generates a fresh voter enrollment: RSA-2048
// keypairs, the ring partitioning and Merkle tree over them, and the
// on-chain candidate, public-key, and Merkle-root cell payloads.
package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/ckb-ringvote/ringvote/cell"
	"github.com/ckb-ringvote/ringvote/config"
	"github.com/ckb-ringvote/ringvote/key"
	"github.com/ckb-ringvote/ringvote/log"
	"github.com/ckb-ringvote/ringvote/merkle"
)

var configFlag = &cli.StringFlag{
	Name:     "config",
	Usage:    "path to the enrollment TOML config",
	Required: true,
}

func main() {
	app := &cli.App{
		Name:   "ringvote-enroll",
		Usage:  "generate voter keys and on-chain enrollment cells",
		Flags:  []cli.Flag{configFlag},
		Action: enroll,
	}
	if err := app.Run(os.Args); err != nil {
		log.DefaultLogger().Fatalw("", "cmd", "ringvote-enroll", "err", err)
	}
}

func enroll(c *cli.Context) error {
	cfg, err := config.LoadEnrollment(c.String(configFlag.Name))
	if err != nil {
		return err
	}
	logger := log.DefaultLogger()

	if err := os.MkdirAll(cfg.KeysDir, 0o755); err != nil {
		return fmt.Errorf("ringvote-enroll: create keys dir: %w", err)
	}

	all := make([]key.PublicKey, cfg.VoterCount)
	for i := 0; i < cfg.VoterCount; i++ {
		priv, err := key.GenerateKey(rand.Reader)
		if err != nil {
			return fmt.Errorf("ringvote-enroll: generate voter %d key: %w", i, err)
		}
		all[i] = priv.Pub

		path := filepath.Join(cfg.KeysDir, fmt.Sprintf("voter-%d.pem", i))
		if err := os.WriteFile(path, priv.MarshalPEM(), 0o600); err != nil {
			return fmt.Errorf("ringvote-enroll: write voter %d key: %w", i, err)
		}
		logger.Debugw("ringvote-enroll: generated voter key", "voter_index", i, "path", path)
	}

	rings, err := key.Partition(all, cfg.ChunkSize)
	if err != nil {
		return err
	}
	leaves := make([]merkle.Hash, len(rings))
	for i, r := range rings {
		leaves[i] = r.LeafHash()
	}
	tree := merkle.Build(leaves)

	if err := os.WriteFile(cfg.PublicKeyCellPath, key.EncodePublicKeyList(all), 0o644); err != nil {
		return fmt.Errorf("ringvote-enroll: write public key cell: %w", err)
	}

	rootCell := cell.MerkleRootCell{Root: tree.Root(), UserCount: uint32(cfg.VoterCount), LeafCount: uint32(tree.LeafCount())}
	if err := os.WriteFile(cfg.MerkleRootCellPath, rootCell.Encode(), 0o644); err != nil {
		return fmt.Errorf("ringvote-enroll: write merkle root cell: %w", err)
	}

	candidates := make([]cell.Candidate, len(cfg.Candidates))
	for i, cand := range cfg.Candidates {
		candidates[i] = cell.Candidate{ID: cand.ID, Description: cand.Description}
	}
	candBytes, err := cell.EncodeCandidateCell(candidates)
	if err != nil {
		return fmt.Errorf("ringvote-enroll: encode candidate cell: %w", err)
	}
	if err := os.WriteFile(cfg.CandidateCellPath, candBytes, 0o644); err != nil {
		return fmt.Errorf("ringvote-enroll: write candidate cell: %w", err)
	}

	logger.Infow("ringvote-enroll: enrollment complete",
		"voter_count", cfg.VoterCount, "ring_count", len(rings), "chunk_size", cfg.ChunkSize)
	return nil
}
