// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command mempool-inspect loads a mempool dump file produced by
// mempool.MemPool.WriteTo, prints summary statistics about it, and can
// optionally trim it down to a target size before writing it back out.
package main

import (
	"errors"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/talerone/superbitcoin/mempool"
)

type config struct {
	DumpFile  string `short:"f" long:"dumpfile" description:"Path to a mempool dump file" required:"true"`
	LogFile   string `short:"l" long:"logfile" description:"Path to write rotated logs to"`
	LogLevel  string `short:"d" long:"loglevel" description:"Logging level {trace, debug, info, warn, error, critical}" default:"info"`
	TrimBytes int64  `short:"t" long:"trim" description:"If set, evict lowest descendant-score packages until the pool is at or below this many bytes and write the result back to --out"`
	Out       string `short:"o" long:"out" description:"Destination for --trim's trimmed dump; defaults to overwriting --dumpfile"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config{}
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}

	if cfg.LogFile != "" {
		if err := initLogRotator(cfg.LogFile); err != nil {
			return err
		}
		defer logRotator.Close()
	}
	setLogLevel(cfg.LogLevel)

	mp := mempool.NewMemPool(&mempool.Config{
		CoinView:  offlineCoinView{},
		ChainTip:  offlineChainTip{},
		Validator: offlineValidator{},
	})

	f, err := os.Open(cfg.DumpFile)
	if err != nil {
		return fmt.Errorf("opening dump file: %w", err)
	}
	loaded, err := mp.LoadFrom(f, offlineValidator{})
	f.Close()
	if err != nil {
		return fmt.Errorf("loading dump file: %w", err)
	}

	printSummary(mp, loaded)

	if cfg.TrimBytes <= 0 {
		return nil
	}
	return trim(mp, cfg)
}

func printSummary(mp *mempool.MemPool, loaded int) {
	fmt.Printf("loaded %d transactions\n", loaded)
	fmt.Printf("resident: %d\n", mp.Count())
	fmt.Printf("dynamic memory usage: %d bytes\n", mp.DynamicMemUsage())

	infos := mp.Infos()
	if len(infos) == 0 {
		return
	}
	best := infos[0]
	worst := infos[len(infos)-1]
	fmt.Printf("best descendant-package feerate txid: %s\n", best.TxHash())
	fmt.Printf("worst descendant-package feerate txid: %s\n", worst.TxHash())
}

func trim(mp *mempool.MemPool, cfg config) error {
	victims := mp.TrimToSize(cfg.TrimBytes)
	fmt.Printf("evicted %d transactions\n", len(victims))

	out := cfg.Out
	if out == "" {
		out = cfg.DumpFile
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating output dump file: %w", err)
	}
	defer f.Close()
	if _, err := mp.WriteTo(f); err != nil {
		return fmt.Errorf("writing trimmed dump: %w", err)
	}
	fmt.Printf("trimmed to %d bytes, %d transactions remain\n", mp.DynamicMemUsage(), mp.Count())
	return nil
}
