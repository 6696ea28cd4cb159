// Package main implements entropymon, a live entropy monitor. It repeatedly
// samples the configured entropy source and prints the hash, status and
// motion score, which is useful for verifying that motion detection works
// and produces distinct hashes.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"fishkms/internal/config"
	"fishkms/internal/entropy"
	"fishkms/internal/models"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses args on a dedicated FlagSet so the monitor's flags never clash
// with flags registered elsewhere in the process.
func run(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("entropymon", flag.ContinueOnError)
	var (
		mode     = flags.String("m", "camera", "entropy mode: camera or demo")
		camera   = flags.Int("camera", 0, "video device index")
		interval = flags.Duration("i", time.Second, "delay between samples")
		count    = flags.Int("n", 0, "number of samples (0 = run until interrupted)")
		timeout  = flags.Duration("t", 10*time.Second, "camera capture timeout")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	var source entropy.Source
	switch models.EntropyMode(*mode) {
	case models.ModeCamera:
		source = entropy.NewCameraSource(entropy.V4L2Factory(*camera), config.DefaultTunables(), *timeout, log)
	default:
		source = entropy.DemoSource{}
	}

	fmt.Fprintf(out, "entropy monitor: mode=%s interval=%s\n", *mode, *interval)

	ctx := context.Background()
	var previous string
	for i := 0; *count == 0 || i < *count; i++ {
		if i > 0 {
			time.Sleep(*interval)
		}
		sample, err := source.Sample(ctx)
		if err != nil {
			return fmt.Errorf("sample failed: %w", err)
		}

		hash := hex.EncodeToString(sample.Bytes)
		changed := "changed"
		if hash == previous {
			changed = "UNCHANGED"
		}
		if i == 0 {
			changed = "initial"
		}
		previous = hash

		fmt.Fprintf(out, "%s  status=%-4s score=%6.2f  %s\n", hash[:32], sample.Status, sample.Score, changed)
	}
	return nil
}
