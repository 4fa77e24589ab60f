// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/proposal-drafter/internal/library"
	"github.com/pdiddy/proposal-drafter/internal/slides"
	"github.com/pdiddy/proposal-drafter/pkg/types"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the exemplar library (add, list, search, export, remove)",
	Long: `Library keeps exemplar slides from past decks in a local SQLite database
with full-text search, so drafts can use them (draft --library) without
uploading the decks again. Only slide text is stored.`,
}

// --- add subcommand ---

var libraryAddCmd = &cobra.Command{
	Use:   "add <deck.pptx>...",
	Short: "Store the exemplar slides of one or more decks",
	Long: `Add reads each deck, keeps the slides the relevance policy accepts, and
stores them under the deck's filename. Adding a deck again replaces it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLibraryAdd,
}

func runLibraryAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	keywords, _ := cmd.Flags().GetStringSlice("keyword")
	policy := slides.DefaultPolicy
	if len(keywords) > 0 {
		policy = slides.KeywordPolicy(keywords...)
	}

	store, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	failed := 0
	for _, path := range args {
		up, err := readUpload(path)
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed  %s: %v\n", path, err)
			failed++
			continue
		}
		exemplars, err := slides.ExtractExemplars([]types.Upload{up}, policy)
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed  %s: %v\n", path, err)
			failed++
			continue
		}
		res, err := store.Ingest(ctx, up.Name, exemplars)
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed  %s: %v\n", path, err)
			failed++
			continue
		}
		verb := "added  "
		if res.Replaced {
			verb = "updated"
		}
		fmt.Fprintf(os.Stdout, "%s %s (%d exemplars)\n", verb, res.Deck, res.Exemplars)
	}

	if failed > 0 {
		return fmt.Errorf("%d deck(s) failed", failed)
	}
	return nil
}

// --- list subcommand ---

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored decks, or every exemplar with --exemplars",
	Args:  cobra.NoArgs,
	RunE:  runLibraryList,
}

func runLibraryList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	jsonOutput, _ := cmd.Flags().GetBool("json")
	withExemplars, _ := cmd.Flags().GetBool("exemplars")

	store, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if withExemplars {
		exemplars, err := store.List(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(exemplars)
		}
		for _, ex := range exemplars {
			fmt.Fprintf(os.Stdout, "%s #%d\n%s\n\n", ex.Deck, ex.Slide, ex.Text)
		}
		fmt.Fprintf(os.Stdout, "%d exemplars\n", len(exemplars))
		return nil
	}

	decks, err := store.Decks(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(decks)
	}
	if len(decks) == 0 {
		fmt.Println("Library is empty.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "%-40s  %-9s  %s\n", "Deck", "Exemplars", "Ingested")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 75))
	for _, d := range decks {
		fmt.Fprintf(os.Stdout, "%-40s  %-9d  %s\n", truncate(d.Name, 40), d.Exemplars, d.IngestedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// --- search subcommand ---

var librarySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over stored exemplars",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLibrarySearch,
}

func runLibrarySearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Search(cmd.Context(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(results)
	}
	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-30s  %-5s  %s\n", "Rank", "Deck", "Slide", "Text")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for i, r := range results {
		text := strings.Join(strings.Fields(r.Text), " ")
		fmt.Fprintf(os.Stdout, "%-4d  %-30s  %-5d  %s\n", i+1, truncate(r.Deck, 30), r.Slide, truncate(text, 55))
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var libraryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the library to YAML",
	Long: `Export writes every stored deck and its exemplars as YAML to
<library-dir>/export.yaml, or to stdout with --stdout.`,
	Args: cobra.NoArgs,
	RunE: runLibraryExport,
}

func runLibraryExport(cmd *cobra.Command, args []string) error {
	toStdout, _ := cmd.Flags().GetBool("stdout")

	store, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if toStdout {
		return store.Export(cmd.Context(), os.Stdout)
	}
	path, err := store.ExportFile(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// --- remove subcommand ---

var libraryRemoveCmd = &cobra.Command{
	Use:   "remove <deck-name>...",
	Short: "Remove decks from the library",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openLibrary(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		for _, name := range args {
			ok, err := store.Remove(cmd.Context(), name)
			if err != nil {
				return err
			}
			if ok {
				fmt.Println("removed", name)
			} else {
				fmt.Println("not found", name)
			}
		}
		return nil
	},
}

// --- shared helpers ---

func openLibrary(cmd *cobra.Command) (*library.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return library.Open(cfg.Library)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	libraryAddCmd.Flags().StringSlice("keyword", nil, "relevance keywords, case-sensitive (default Objective,Solution)")

	libraryListCmd.Flags().Bool("exemplars", false, "list every exemplar instead of deck summaries")
	libraryListCmd.Flags().Bool("json", false, "output as JSON")

	librarySearchCmd.Flags().Int("limit", 0, "maximum results (0 = use library.max_results)")
	librarySearchCmd.Flags().Bool("json", false, "output results as JSON")

	libraryExportCmd.Flags().Bool("stdout", false, "write YAML to stdout instead of a file")

	libraryCmd.AddCommand(libraryAddCmd)
	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(librarySearchCmd)
	libraryCmd.AddCommand(libraryExportCmd)
	libraryCmd.AddCommand(libraryRemoveCmd)

	rootCmd.AddCommand(libraryCmd)
}
