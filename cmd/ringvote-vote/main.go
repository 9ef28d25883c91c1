// Command ringvote-vote builds a single voter's vote-cell and witness
// payload, writing them to files or submitting them through a
// chain.Source in -rpc mode.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ckb-ringvote/ringvote/chain"
	"github.com/ckb-ringvote/ringvote/config"
	"github.com/ckb-ringvote/ringvote/key"
	"github.com/ckb-ringvote/ringvote/log"
	"github.com/ckb-ringvote/ringvote/merkle"
	"github.com/ckb-ringvote/ringvote/signer"
)

var configFlag = &cli.StringFlag{
	Name:     "config",
	Usage:    "path to the vote TOML config",
	Required: true,
}

func main() {
	app := &cli.App{
		Name:   "ringvote-vote",
		Usage:  "build and optionally submit a single vote transaction",
		Flags:  []cli.Flag{configFlag},
		Action: vote,
	}
	if err := app.Run(os.Args); err != nil {
		log.DefaultLogger().Fatalw("", "cmd", "ringvote-vote", "err", err)
	}
}

func vote(c *cli.Context) error {
	cfg, err := config.LoadVote(c.String(configFlag.Name))
	if err != nil {
		return err
	}
	logger := log.DefaultLogger()

	keyBytes, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("ringvote-vote: read private key: %w", err)
	}
	priv, err := key.ParsePrivateKeyPEM(keyBytes)
	if err != nil {
		return fmt.Errorf("ringvote-vote: parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.PublicKeyCellPath)
	if err != nil {
		return fmt.Errorf("ringvote-vote: read public key cell: %w", err)
	}
	all, err := key.DecodePublicKeyList(pubBytes)
	if err != nil {
		return fmt.Errorf("ringvote-vote: decode public key cell: %w", err)
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

	v, err := signer.BuildVote(all, cfg.ChunkSize, tree, cfg.VoterIndex, priv, cfg.CandidateID, nil)
	if err != nil {
		return fmt.Errorf("ringvote-vote: build vote: %w", err)
	}
	witnessBytes, err := v.Witness.Encode()
	if err != nil {
		return fmt.Errorf("ringvote-vote: encode witness: %w", err)
	}

	if cfg.RPCURL != "" {
		src := chain.NewHTTPSource(cfg.RPCURL, logger)
		tx := chain.VoteTx{OutputCellData: v.Cell.Encode(), Witness: witnessBytes}
		txHash, err := src.SubmitVoteTx(context.Background(), tx)
		if err != nil {
			return fmt.Errorf("ringvote-vote: submit vote tx: %w", err)
		}
		logger.Infow("ringvote-vote: submitted", "tx_hash", fmt.Sprintf("%x", txHash))
		return nil
	}

	if err := os.WriteFile(cfg.VoteCellOutPath, v.Cell.Encode(), 0o644); err != nil {
		return fmt.Errorf("ringvote-vote: write vote cell: %w", err)
	}
	if err := os.WriteFile(cfg.WitnessOutPath, witnessBytes, 0o644); err != nil {
		return fmt.Errorf("ringvote-vote: write witness: %w", err)
	}
	logger.Infow("ringvote-vote: wrote vote files", "vote_cell", cfg.VoteCellOutPath, "witness", cfg.WitnessOutPath)
	return nil
}
