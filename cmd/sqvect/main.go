// Command sqvect is a minimal CLI driving the simse library facade, for
// manual inspection only — it carries no business logic, per
// SPEC_FULL.md §6's "ambient, not specified functionality" note.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shmor3/simse"
	"github.com/shmor3/simse/internal/model"
)

var (
	dbPath  string
	backend string
)

var rootCmd = &cobra.Command{
	Use:   "sqvect",
	Short: "CLI for inspecting a simse vector store",
}

var addCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a volume from a caller-supplied vector",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vectorStr, _ := cmd.Flags().GetString("vector")
		metadataStr, _ := cmd.Flags().GetString("metadata")
		if vectorStr == "" {
			return fmt.Errorf("--vector is required")
		}
		vector, err := parseVector(vectorStr)
		if err != nil {
			return err
		}
		metadata, err := parseMetadata(metadataStr)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close(context.Background())

		id, err := store.AddVector(context.Background(), args[0], vector, metadata)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search by a caller-supplied query vector",
	RunE: func(cmd *cobra.Command, args []string) error {
		vectorStr, _ := cmd.Flags().GetString("vector")
		topK, _ := cmd.Flags().GetInt("top-k")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		asJSON, _ := cmd.Flags().GetBool("json")
		if vectorStr == "" {
			return fmt.Errorf("--vector is required")
		}
		vector, err := parseVector(vectorStr)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close(context.Background())

		results, err := store.SearchVector(vector, topK, threshold)
		if err != nil {
			return err
		}
		return printResults(cmd, results, asJSON)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <dsl>",
	Short: "Run a DSL query (topic:, metadata:k=v, \"phrase\", fuzzy~term, score>N)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topK, _ := cmd.Flags().GetInt("top-k")
		asJSON, _ := cmd.Flags().GetBool("json")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close(context.Background())

		results, err := store.Query(args[0], topK)
		if err != nil {
			return err
		}
		return printResults(cmd, results, asJSON)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print store size and topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close(context.Background())

		topics, err := store.GetTopics()
		if err != nil {
			return err
		}
		fmt.Printf("volumes: %d\n", store.Size())
		fmt.Printf("dirty:   %v\n", store.IsDirty())
		fmt.Printf("topics:  %s\n", strings.Join(topics, ", "))
		return nil
	},
}

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Force a save, dropping any corrupt records left from the last load",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close(context.Background())
		return store.Save(context.Background())
	},
}

func openStore() (*simse.Store, error) {
	cfg := simse.DefaultConfig(dbPath)
	cfg.Backend = backend
	return simse.Open(cfg)
}

func parseVector(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	vec := make([]float32, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		vec = append(vec, float32(v))
	}
	return vec, nil
}

func parseMetadata(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid metadata pair %q, want key=value", pair)
		}
		out[k] = v
	}
	return out, nil
}

func printResults(cmd *cobra.Command, results []model.ScoredVolume, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%.4f  %s  %s\n", r.Score, r.ID, r.Text)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "vectors.db", "store file/database path")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "file", "storage backend: file or sqlite")

	addCmd.Flags().String("vector", "", "vector values (comma-separated)")
	addCmd.Flags().String("metadata", "", "metadata as key=value,key2=value2")

	searchCmd.Flags().String("vector", "", "query vector (comma-separated)")
	searchCmd.Flags().Int("top-k", 10, "number of results")
	searchCmd.Flags().Float64("threshold", 0.0, "similarity threshold")
	searchCmd.Flags().Bool("json", false, "output as JSON")

	queryCmd.Flags().Int("top-k", 10, "number of results")
	queryCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(addCmd, searchCmd, queryCmd, statsCmd, compactCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
