package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/picmap/internal/logger"
)

func newSeedCmd(env *string) *cobra.Command {
	var (
		vocabFile  string
		withBase   bool
		flushCache bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Store facet vocabularies and precomputed base data",
		Long: `Seed writes the value/label vocabulary of every aggregatable facet from a
JSON file of the form {"<facet id>": {"<value>": "<label>"}} and, with
--base, drains every address from the search backend into the base data
used for unfiltered views. Cached search responses are dropped afterwards
unless --flush-cache=false is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if vocabFile == "" && !withBase {
				return fmt.Errorf("nothing to seed: pass --vocab and/or --base")
			}
			return runSeed(cmd.Context(), *env, vocabFile, withBase, flushCache)
		},
	}
	cmd.Flags().StringVar(&vocabFile, "vocab", "", "JSON file with facet vocabularies")
	cmd.Flags().BoolVar(&withBase, "base", false, "rebuild base data from the search backend")
	cmd.Flags().BoolVar(&flushCache, "flush-cache", true, "drop cached search responses after seeding")
	return cmd
}

func runSeed(ctx context.Context, env, vocabFile string, withBase, flushCache bool) error {
	a, err := newApp(ctx, env, false)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx = logpkg.ContextWithLogger(ctx, a.logger)

	if vocabFile != "" {
		vocab, err := readVocabulary(vocabFile)
		if err != nil {
			return err
		}
		if err := a.vocab.Save(ctx, vocab); err != nil {
			return fmt.Errorf("save vocabulary: %w", err)
		}
		a.logger.Info("Vocabulary stored", zap.Int("facets", len(vocab)), zap.String("file", vocabFile))
	}

	if withBase {
		pts, err := a.search.AllPoints(ctx)
		if err != nil {
			return fmt.Errorf("build base data: %w", err)
		}
		if err := a.base.Save(ctx, pts); err != nil {
			return fmt.Errorf("save base data: %w", err)
		}
		a.logger.Info("Base data stored", zap.Int("points", len(pts)))
	}

	if flushCache {
		n, err := a.cache.Flush(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("Search cache flushed", zap.Int("keys", n))
	}
	return nil
}

func readVocabulary(path string) (map[string]map[string]string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	var vocab map[string]map[string]string
	if err := sonic.Unmarshal(data, &vocab); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	return vocab, nil
}
