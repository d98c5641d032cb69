// ttlmerge is a read-only debugging aid: it opens a part catalog and
// prints the run a TTL merge selector would nominate right now.
/*
 * Copyright (c) 2024, ColStore Authors. All rights reserved.
 */
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/colstore/colstore/catalog"
	"github.com/colstore/colstore/cmn"
	"github.com/colstore/colstore/merge"
	"github.com/colstore/colstore/ttl"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	catalogFlag = cli.StringFlag{
		Name:     "catalog",
		Usage:    "part catalog `path`",
		Required: true,
	}
	policyFlag = cli.StringFlag{
		Name:  "policy",
		Usage: "selection policy: delete or recompress",
		Value: "delete",
	}
	nowFlag = cli.Int64Flag{
		Name:  "now",
		Usage: "decision clock, Unix seconds (default: wall clock)",
	}
	cooldownFlag = cli.Int64Flag{
		Name:  "cooldown",
		Usage: "per-partition cooldown, seconds",
		Value: cmn.DfltMergeWithTTLTimeout,
	}
	maxSizeFlag = cli.Uint64Flag{
		Name:  "max-size",
		Usage: "byte budget per merge, 0 = unlimited",
	}
	onlyDropFlag = cli.BoolFlag{
		Name:  "only-drop-parts",
		Usage: "qualify a part only when every row in it has expired",
	}
	rulesFlag = cli.StringFlag{
		Name:  "rules",
		Usage: "recompression rules JSON `file` (recompress policy)",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "ttlmerge"
	app.Usage = "inspect TTL merge selection against a part catalog"
	app.Commands = []cli.Command{
		{
			Name:   "select",
			Usage:  "print the run the selector would nominate",
			Flags:  []cli.Flag{catalogFlag, policyFlag, nowFlag, cooldownFlag, maxSizeFlag, onlyDropFlag, rulesFlag},
			Action: selectHdlr,
		},
		{
			Name:   "ls",
			Usage:  "list partitions and parts",
			Flags:  []cli.Flag{catalogFlag},
			Action: lsHdlr,
		},
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("ttlmerge")
	}
}

func selectHdlr(c *cli.Context) error {
	cat, err := catalog.Open(c.String("catalog"))
	if err != nil {
		return err
	}
	defer cat.Close()

	now := c.Int64("now")
	if now == 0 {
		now = time.Now().Unix()
	}
	sel, err := newSelector(c, now)
	if err != nil {
		return err
	}
	run := sel.Select(cat.Snapshot(), c.Uint64("max-size"))
	if len(run) == 0 {
		fmt.Println("nothing to merge")
		return nil
	}
	fmt.Printf("partition %s: %d part(s), %d byte(s)\n", run[0].PartitionID, len(run), run.TotalSize())
	for _, p := range run {
		meta := p.Data.(*catalog.PartMeta)
		fmt.Printf("  %-32s size=%-12d min_ttl=%-12d max_ttl=%d\n",
			meta.Name, p.Size, p.TTLInfos.PartMin, p.TTLInfos.PartMax)
	}
	return nil
}

func newSelector(c *cli.Context, now int64) (merge.Selector, error) {
	switch policy := c.String("policy"); policy {
	case "delete":
		return merge.NewDeleteSelector(now, c.Int64("cooldown"), c.Bool("only-drop-parts")), nil
	case "recompress":
		var rules ttl.Rules
		if path := c.String("rules"); path != "" {
			b, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(b, &rules); err != nil {
				return nil, errors.Wrapf(err, "parse rules %q", path)
			}
			if err := rules.Validate(); err != nil {
				return nil, err
			}
		}
		return merge.NewRecompressSelector(now, c.Int64("cooldown"), rules), nil
	default:
		return nil, errors.Errorf("unknown policy %q", policy)
	}
}

func lsHdlr(c *cli.Context) error {
	cat, err := catalog.Open(c.String("catalog"))
	if err != nil {
		return err
	}
	defer cat.Close()

	for _, id := range cat.Partitions() {
		fmt.Println(id)
		for _, name := range cat.Parts(id) {
			fmt.Println("  " + name)
		}
	}
	return nil
}
