package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ppiankov/feedstream/internal/dedup"
	"github.com/spf13/cobra"
)

var seenFormat string

var seenCmd = &cobra.Command{
	Use:   "seen",
	Short: "Show how many items have been recorded per source",
	RunE:  seenAction,
}

var forgetCmd = &cobra.Command{
	Use:   "forget <source>",
	Short: "Delete recorded items of one source so they are delivered again",
	Args:  cobra.ExactArgs(1),
	RunE:  forgetAction,
}

func init() {
	seenCmd.Flags().StringVar(&seenFormat, "format", "terminal", "output format: terminal, json")
	rootCmd.AddCommand(seenCmd, forgetCmd)
}

type jsonSeenOutput struct {
	Sources []dedup.SourceCount `json:"sources"`
	Total   int64               `json:"total"`
}

func seenAction(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := openPersistent(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	counts, err := st.CountBySource(ctx)
	if err != nil {
		return fmt.Errorf("count seen items: %w", err)
	}

	switch seenFormat {
	case "json":
		return printSeenJSON(cmd.OutOrStdout(), counts)
	case "terminal", "":
		printSeen(cmd.OutOrStdout(), counts)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want terminal or json)", seenFormat)
	}
}

func printSeenJSON(w io.Writer, counts []dedup.SourceCount) error {
	out := jsonSeenOutput{Sources: counts}
	if out.Sources == nil {
		out.Sources = []dedup.SourceCount{}
	}
	for _, c := range counts {
		out.Total += c.Count
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printSeen(w io.Writer, counts []dedup.SourceCount) {
	if len(counts) == 0 {
		fmt.Fprintln(w, "No items recorded yet. Run 'feedstream stream' first.")
		return
	}

	width := 0
	var total int64
	for _, c := range counts {
		width = max(width, len(c.Source))
		total += c.Count
	}

	fmt.Fprintf(w, "%d items from %d sources\n\n", total, len(counts))
	for _, c := range counts {
		fmt.Fprintf(w, "  %-*s  %d\n", width, c.Source, c.Count)
	}
}

func forgetAction(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := openPersistent(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	n, err := st.Forget(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Forgot %d items from %s.\n", n, args[0])
	return nil
}
