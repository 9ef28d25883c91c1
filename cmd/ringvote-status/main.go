// Command ringvote-status runs a background tally loop against a chain
// RPC endpoint and serves the latest result over HTTP (relaying /tally
// and /health), alongside an optional standalone Prometheus+pprof port.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ckb-ringvote/ringvote/chain"
	"github.com/ckb-ringvote/ringvote/config"
	ringvotehttp "github.com/ckb-ringvote/ringvote/http"
	"github.com/ckb-ringvote/ringvote/log"
	"github.com/ckb-ringvote/ringvote/metrics"
	"github.com/ckb-ringvote/ringvote/metrics/pprof"
	"github.com/ckb-ringvote/ringvote/tally"
)

var (
	configFlag = &cli.StringFlag{Name: "config", Usage: "path to the tally TOML config", Required: true}
	bindFlag   = &cli.StringFlag{Name: "bind", Usage: "host:port to serve /tally, /health, and /metrics on", Value: ":8090"}
	metricsFlag = &cli.StringFlag{Name: "metrics", Usage: "host:port for a standalone metrics+pprof server (optional, in addition to --bind's /metrics)"}
	intervalFlag = &cli.DurationFlag{Name: "interval", Usage: "how often to re-run the tally", Value: 30 * time.Second}
)

func main() {
	app := &cli.App{
		Name:   "ringvote-status",
		Usage:  "serve the latest tally result over HTTP on a fixed interval",
		Flags:  []cli.Flag{configFlag, bindFlag, metricsFlag, intervalFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.DefaultLogger().Fatalw("", "cmd", "ringvote-status", "err", err)
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
		return fmt.Errorf("ringvote-status: verifier_type_hash: %w", err)
	}
	candTxHash, err := decodeHash32(cfg.CandidateCellTxHash)
	if err != nil {
		return fmt.Errorf("ringvote-status: candidate_cell_tx_hash: %w", err)
	}
	rootTxHash, err := decodeHash32(cfg.MerkleRootTxHash)
	if err != nil {
		return fmt.Errorf("ringvote-status: merkle_root_tx_hash: %w", err)
	}

	if c.IsSet(metricsFlag.Name) {
		go metrics.Start(c.String(metricsFlag.Name), pprof.WithProfile())
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

	handler := ringvotehttp.New(logger)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	go runLoop(ctx, tallier, handler, c.Duration(intervalFlag.Name), logger)

	listener, err := net.Listen("tcp", c.String(bindFlag.Name))
	if err != nil {
		return fmt.Errorf("ringvote-status: listen: %w", err)
	}
	logger.Infow("ringvote-status: listening", "addr", listener.Addr())
	return http.Serve(listener, handler)
}

func runLoop(ctx context.Context, tallier *tally.Tallier, handler *ringvotehttp.Handler, interval time.Duration, logger log.Logger) {
	for {
		result, err := tallier.Run(ctx)
		handler.Update(result, err)
		if err != nil {
			logger.Warnw("ringvote-status: tally run failed", "err", err)
		} else {
			logger.Infow("ringvote-status: tally run complete", "candidates", len(result.Order))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
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
