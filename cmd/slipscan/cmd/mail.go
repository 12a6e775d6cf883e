package cmd

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"slipscan/internal/connectors"
	"slipscan/internal/listener"
)

var (
	mailProvider  string
	mailLabel     string
	mailMax       int
	mailMessageID string
	mailBatch     int
)

var mailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Fetch and process emailed delivery slips",
}

var mailFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Store new messages from the mailbox as documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		conn, err := connectors.New(cfg, providerOrDefault())
		if err != nil {
			return err
		}
		label := mailLabel
		if label == "" {
			label = cfg.ListenerLabel
		}
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn, logger)
		result, err := fetch.FetchAndStore(cmd.Context(), label, mailMax)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "mail fetch done provider=%s fetched=%d stored=%d\n", providerOrDefault(), result.Fetched, result.Stored)
		return nil
	},
}

var mailProcessCmd = &cobra.Command{
	Use:   "process",
	Short: "Parse fetched documents into slips",
	RunE: func(cmd *cobra.Command, args []string) error {
		processor, _, closeDB, err := newProcessor(true)
		if err != nil {
			return err
		}
		defer closeDB()

		if strings.TrimSpace(mailMessageID) != "" {
			res, err := processor.ProcessByProviderMessageID(providerOrDefault(), mailMessageID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed document id=%d slips=%d items=%d skipped=%t applied=%t\n",
				res.DocumentID, len(res.Slips), res.Items, res.Skipped, res.Applied)
			return nil
		}
		docs, slips, err := processor.ProcessPending(mailBatch, mailProvider)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "processed pending documents=%d slips=%d applied=%t\n", docs, slips, cfg.Apply)
		return nil
	},
}

var mailListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run the fetch, parse and export cycle on LISTENER_SCHEDULE",
	RunE: func(cmd *cobra.Command, args []string) error {
		if mailProvider != "" {
			cfg.ListenerProvider = mailProvider
		}
		processor, db, closeDB, err := newProcessor(true)
		if err != nil {
			return err
		}
		defer closeDB()

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return listener.NewService(db, cfg, processor, logger).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mailCmd)
	mailCmd.AddCommand(mailFetchCmd, mailProcessCmd, mailListenCmd)

	mailCmd.PersistentFlags().StringVar(&mailProvider, "provider", "", "Mail provider (imap, gmail); default LISTENER_PROVIDER")
	mailFetchCmd.Flags().StringVar(&mailLabel, "label", "", "Mailbox or label; default LISTENER_LABEL")
	mailFetchCmd.Flags().IntVar(&mailMax, "max", 50, "Max messages")
	mailProcessCmd.Flags().StringVar(&mailMessageID, "message-id", "", "Process one message by Message-ID")
	mailProcessCmd.Flags().IntVar(&mailBatch, "batch", 20, "Batch size")
}

func providerOrDefault() string {
	if mailProvider != "" {
		return mailProvider
	}
	return cfg.ListenerProvider
}
