// Package main provides graphctl, the operator CLI for a GraphSpace data file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"graphspace/backend/internal/constants"
	"graphspace/backend/internal/graph"
	"graphspace/backend/internal/knowledge"
	"graphspace/backend/internal/mirror"
	"graphspace/backend/pkg/config"
	"graphspace/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitWithLevel("production", cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	if err := newRootCmd(cfg, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config, out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "graphctl",
		Short: "Inspect and export a GraphSpace knowledge graph",
		Long: `graphctl loads a GraphSpace data file, rebuilds the derived graph and
answers queries against it. Relationships are inferred from shared tags,
projects, organizations and mentions.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("data", cfg.DataPath, "Path to the data file")
	rootCmd.PersistentFlags().Bool("repair", cfg.RepairCorrupt, "Try to repair a corrupt data file before resetting it")
	rootCmd.SetOut(out)

	open := func(cmd *cobra.Command) (*knowledge.KnowledgeGraph, error) {
		path, _ := cmd.Flags().GetString("data")
		repair, _ := cmd.Flags().GetBool("repair")
		return knowledge.Open(path, repair)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print graph statistics and the most central entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kg, err := open(cmd)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), kg.Statistics())
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list [kind]",
		Short: "List the records of one entity kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := graph.ParseKind(args[0])
			if err != nil {
				return err
			}
			kg, err := open(cmd)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), kg.ListEntities(kind))
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "search [tag]",
		Short: "Find entities carrying a tag (exact, case-sensitive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kg, err := open(cmd)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), kg.SearchByTag(args[0]))
		},
	})

	searchTextCmd := &cobra.Command{
		Use:   "search-text [query]",
		Short: "Rank entities by keyword matches in their titles, text and tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, _ := cmd.Flags().GetStringSlice("kinds")
			limit, _ := cmd.Flags().GetInt("limit")
			kinds := make([]graph.Kind, 0, len(names))
			for _, name := range names {
				kind, err := graph.ParseKind(name)
				if err != nil {
					return err
				}
				kinds = append(kinds, kind)
			}
			kg, err := open(cmd)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), kg.TextSearch(args[0], kinds, limit))
		},
	}
	searchTextCmd.Flags().StringSlice("kinds", nil, "Entity kinds to search (default note,task,contact)")
	searchTextCmd.Flags().Int("limit", constants.DefaultSearchLimit, "Maximum number of hits, 0 for all")
	rootCmd.AddCommand(searchTextCmd)

	relatedCmd := &cobra.Command{
		Use:   "related [kind] [id]",
		Short: "List the neighbours of an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := graph.ParseKind(args[0])
			if err != nil {
				return err
			}
			relationship, _ := cmd.Flags().GetString("relationship")
			kg, err := open(cmd)
			if err != nil {
				return err
			}
			related, err := kg.RelatedEntities(kind, args[1], relationship)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), related)
		},
	}
	relatedCmd.Flags().String("relationship", "", "Only follow edges of this relationship kind")
	rootCmd.AddCommand(relatedCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "path [from-kind] [from-id] [to-kind] [to-id]",
		Short: "Print a shortest path between two entities",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := graph.ParseKind(args[0])
			if err != nil {
				return err
			}
			to, err := graph.ParseKind(args[2])
			if err != nil {
				return err
			}
			kg, err := open(cmd)
			if err != nil {
				return err
			}
			path, err := kg.FindPath(from, args[1], to, args[3])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), path)
		},
	})

	mirrorCmd := &cobra.Command{
		Use:   "mirror",
		Short: "Replace the Neo4j mirror with the current graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("neo4j-uri")
			if uri == "" {
				return fmt.Errorf("no Neo4j URI configured (set NEO4J_URI or --neo4j-uri)")
			}
			timeout, _ := cmd.Flags().GetDuration("timeout")
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			kg, err := open(cmd)
			if err != nil {
				return err
			}
			m, err := mirror.Connect(ctx, uri, cfg.Neo4jUser, cfg.Neo4jPassword)
			if err != nil {
				return err
			}
			defer m.Close(context.Background())

			if err := m.EnsureSchema(ctx); err != nil {
				return err
			}
			res, err := m.Sync(ctx, kg.Graph())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	mirrorCmd.Flags().String("neo4j-uri", cfg.Neo4jURI, "Neo4j Bolt URI")
	mirrorCmd.Flags().Duration("timeout", 2*time.Minute, "Overall mirror timeout")
	rootCmd.AddCommand(mirrorCmd)

	return rootCmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
