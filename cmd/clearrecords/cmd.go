package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"otoil-backend/store"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	records store.RecordStore
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  purge -yes - delete every service record, in batches")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	purgeCmd := flag.NewFlagSet("purge", flag.ContinueOnError)
	purgeCmd.SetOutput(cli.out)
	purgeYes := purgeCmd.Bool("yes", false, "Confirm that every record should be deleted. This cannot be undone.")

	switch args[1] {
	case "purge":
		if err := purgeCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if !*purgeYes {
			purgeCmd.Usage()
			return errHelp
		}
		return cli.purge(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) purge(ctx context.Context) error {
	total, err := cli.records.DeleteAll(ctx, store.DeleteBatchSize, func(deleted int) {
		fmt.Fprintf(cli.out, "%d kayıt silindi...\n", deleted)
	})
	if err != nil {
		return fmt.Errorf("purge stopped after %d records: %w", total, err)
	}
	fmt.Fprintf(cli.out, "Toplam %d kayıt silindi.\n", total)
	return nil
}
