// Command ringvote-tally runs the off-chain tallier against a chain
// RPC endpoint and prints per-candidate counts as a table, or, with
// --json, as a JSON map instead; a single run never prints both.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ckb-ringvote/ringvote/chain"
	"github.com/ckb-ringvote/ringvote/config"
	"github.com/ckb-ringvote/ringvote/log"
	"github.com/ckb-ringvote/ringvote/metrics"
	"github.com/ckb-ringvote/ringvote/tally"
)

var configFlag = &cli.StringFlag{
	Name:     "config",
	Usage:    "path to the tally TOML config",
	Required: true,
}

var jsonFlag = &cli.BoolFlag{
	Name:  "json",
	Usage: "print the result as JSON instead of a table",
}

func main() {
	app := &cli.App{
		Name:   "ringvote-tally",
		Usage:  "scan, verify, deduplicate, and count vote transactions",
		Flags:  []cli.Flag{configFlag, jsonFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.DefaultLogger().Fatalw("", "cmd", "ringvote-tally", "err", err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadTally(c.String(configFlag.Name))
	if err != nil {
		return err
	}
	logger := log.DefaultLogger()

	verifierTypeHash, err := decodeHash32(cfg.VerifierTypeHashHex)
	if err != nil {
		return fmt.Errorf("ringvote-tally: verifier_type_hash: %w", err)
	}
	candTxHash, err := decodeHash32(cfg.CandidateCellTxHash)
	if err != nil {
		return fmt.Errorf("ringvote-tally: candidate_cell_tx_hash: %w", err)
	}
	rootTxHash, err := decodeHash32(cfg.MerkleRootTxHash)
	if err != nil {
		return fmt.Errorf("ringvote-tally: merkle_root_tx_hash: %w", err)
	}

	src := chain.NewHTTPSource(cfg.RPCURL, logger)
	failureMonitor := metrics.NewFetchFailureMonitor(cfg.RPCURL, logger, 5)
	failureMonitor.Start()
	defer failureMonitor.Stop()

	tallier := &tally.Tallier{
		Source:                src,
		VerifierTypeHash:      verifierTypeHash,
		CandidateCellOutPoint: chain.OutPoint{TxHash: candTxHash, Index: cfg.CandidateCellIndex},
		MerkleRootOutPoint:    chain.OutPoint{TxHash: rootTxHash, Index: cfg.MerkleRootIndex},
		Logger:                logger,
		FailureMonitor:        failureMonitor,
	}

	result, err := tallier.Run(context.Background())
	if err != nil {
		return fmt.Errorf("ringvote-tally: %w", err)
	}

	if c.Bool(jsonFlag.Name) {
		body, err := result.JSON()
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	}
	fmt.Print(result.Table())
	return nil
}

func decodeHash32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}
