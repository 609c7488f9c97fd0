package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var pairsFilter string

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "List the pairs offered by the configured provider",
	Args:  cobra.NoArgs,
	RunE:  runPairs,
}

func init() {
	pairsCmd.Flags().StringVarP(&pairsFilter, "filter", "f", "", "only show pairs containing this text")
	rootCmd.AddCommand(pairsCmd)
}

func runPairs(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	rt, err := buildRuntime(cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	pairs, err := rt.app.Pairs(ctx)
	if err != nil {
		return err
	}

	q := strings.ToUpper(strings.TrimSpace(pairsFilter))
	out := cmd.OutOrStdout()
	for _, p := range pairs {
		if q == "" || strings.Contains(p, q) {
			fmt.Fprintln(out, p)
		}
	}
	return nil
}
