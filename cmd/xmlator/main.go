package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/uzsteam/xmlator/internal/archive"
	"github.com/uzsteam/xmlator/internal/config"
	"github.com/uzsteam/xmlator/internal/dataset"
	"github.com/uzsteam/xmlator/internal/eventlog"
	"github.com/uzsteam/xmlator/internal/generator"
	"github.com/uzsteam/xmlator/internal/message"
	"github.com/uzsteam/xmlator/internal/refgen"
	"github.com/uzsteam/xmlator/internal/router"
	"github.com/uzsteam/xmlator/internal/schema"
	"github.com/uzsteam/xmlator/internal/stats"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "xmlator: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xmlator",
		Short: "XMLator test message CLI",
		Long: `XMLator generates synthetic UWV test messages from tagged datasets, validates
documents against the configured schemas, and queries the generation event log.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newGenerateCmd(),
		newValidateCmd(),
		newThroughputCmd(),
		newEventsCmd(),
		newTypesCmd(),
	)
	return cmd
}

// buildService wires the core pipeline from environment configuration, the
// same way the server binary does but without the optional backends.
func buildService(cfg *config.Config) (*generator.Service, error) {
	source, err := dataset.FileSource(cfg.DatasetPath)
	if err != nil {
		return nil, err
	}
	registry := dataset.NewRegistry(source)
	composer := message.NewComposer(refgen.New())
	routes := router.New(cfg.OutputRoot)
	schemas := schema.NewStore(cfg.SchemaDir)
	events := eventlog.New(cfg.EventLogPath)
	return generator.New(registry, composer, routes, schemas, events, nil), nil
}

func newGenerateCmd() *cobra.Command {
	var (
		version   string
		selection string
		count     int
		validate  bool
		zipName   string
	)
	cmd := &cobra.Command{
		Use:   "generate <aanvraag-type>",
		Short: "Generate one or more test messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			service, err := buildService(cfg)
			if err != nil {
				return err
			}
			var entries []archive.Entry
			for i := 0; i < count; i++ {
				result, err := service.Generate(cmd.Context(), generator.Request{
					MessageType: args[0],
					Version:     version,
					Selection:   selection,
					Validate:    validate,
				})
				if err != nil {
					return err
				}
				fmt.Printf("%s (%d bytes)\n", result.Path, result.Size)
				if result.Validation != nil {
					printValidation(result.Validation.Valid, result.Validation.Skipped, result.Validation.Errors)
				}
				entries = append(entries, archive.Entry{Name: result.Filename, Path: result.Path})
			}
			if zipName != "" {
				archiver := archive.New(cfg.DownloadsDir, archive.Limits{
					MaxFiles:      cfg.ZipMaxFiles,
					MaxFileBytes:  cfg.ZipMaxFileBytes,
					MaxTotalBytes: cfg.ZipMaxTotalBytes,
				})
				path, err := archiver.Create(zipName, entries)
				if err != nil {
					return err
				}
				fmt.Printf("archive: %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&version, "version", "v0428", "Message version for output routing")
	cmd.Flags().StringVar(&selection, "select", dataset.SelectionRandom, "Record selection: an index or 'random'")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of messages to generate")
	cmd.Flags().BoolVar(&validate, "validate", false, "Validate each message against its schema")
	cmd.Flags().StringVar(&zipName, "zip", "", "Also bundle the generated files into this ZIP")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var messageType string
	cmd := &cobra.Command{
		Use:   "validate <file.xml>",
		Short: "Validate a document against a message type's schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			result := schema.NewStore(cfg.SchemaDir).Validate(data, messageType)
			printValidation(result.Valid, result.Skipped, result.Errors)
			if !result.Valid {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&messageType, "type", "ZBM", "Message type whose schema to use")
	return cmd
}

func newThroughputCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "throughput",
		Short: "Print per-day generation counts for the last N days",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			buckets, err := stats.New(eventlog.New(cfg.EventLogPath)).Throughput(days)
			if err != nil {
				return err
			}
			for _, b := range buckets {
				pct := "-"
				if b.SuccesPercentage != nil {
					pct = fmt.Sprintf("%.0f%%", *b.SuccesPercentage)
				}
				fmt.Printf("%s  totaal=%d geslaagd=%d gefaald=%d succes=%s\n",
					b.Datum, b.Totaal, b.Geslaagd, b.Gefaald, pct)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 14, "Window size in calendar days")
	return cmd
}

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events <YYYY-MM-DD>",
		Short: "Print the generation events of one calendar day as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			events, err := stats.New(eventlog.New(cfg.EventLogPath)).EventsFor(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			for _, ev := range events {
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return cmd
}

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the registered message types",
		RunE: func(cmd *cobra.Command, args []string) error {
			types := message.Types()
			sort.Strings(types)
			for _, t := range types {
				fmt.Println(t)
			}
			return nil
		},
	}
}

func printValidation(valid, skipped bool, errs []string) {
	switch {
	case skipped:
		fmt.Println("validation: skipped (no schema)")
	case valid:
		fmt.Println("validation: ok")
	default:
		fmt.Println("validation: FAILED")
		for _, e := range errs {
			fmt.Printf("  - %s\n", e)
		}
	}
}
