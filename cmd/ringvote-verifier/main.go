// Command ringvote-verifier checks a single vote transaction's four
// on-disk inputs and exits with the verifier's error code, mirroring
// the fixed exit-code contract the real on-chain script runs under.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ckb-ringvote/ringvote/chain"
	"github.com/ckb-ringvote/ringvote/verifier"
)

var (
	voteCellFlag   = &cli.StringFlag{Name: "vote-cell", Required: true, Usage: "path to the vote cell's output data"}
	witnessFlag    = &cli.StringFlag{Name: "witness", Required: true, Usage: "path to the vote transaction's witness"}
	candidateFlag  = &cli.StringFlag{Name: "candidate-cell", Required: true, Usage: "path to the candidate cell-dep"}
	merkleRootFlag = &cli.StringFlag{Name: "merkle-root-cell", Required: true, Usage: "path to the merkle-root cell-dep"}
)

func main() {
	app := &cli.App{
		Name:   "ringvote-verifier",
		Usage:  "validate a single vote transaction",
		Flags:  []cli.Flag{voteCellFlag, witnessFlag, candidateFlag, merkleRootFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var code verifier.Code
		if errors.As(err, &code) {
			os.Exit(code.ExitCode())
		}
		os.Exit(verifier.Unknown.ExitCode())
	}
}

func run(c *cli.Context) error {
	voteCell, err := os.ReadFile(c.String(voteCellFlag.Name))
	if err != nil {
		return err
	}
	witness, err := os.ReadFile(c.String(witnessFlag.Name))
	if err != nil {
		return err
	}
	candidateCell, err := os.ReadFile(c.String(candidateFlag.Name))
	if err != nil {
		return err
	}
	merkleRootCell, err := os.ReadFile(c.String(merkleRootFlag.Name))
	if err != nil {
		return err
	}

	tx := chain.VoteTx{
		OutputCellData: voteCell,
		Witness:        witness,
		CandidateCell:  candidateCell,
		MerkleRootCell: merkleRootCell,
	}
	if err := verifier.Verify(tx); err != nil {
		return err
	}
	fmt.Println("vote accepted")
	return nil
}
