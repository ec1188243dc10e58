package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/serv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

type compiled struct {
	File   string       `json:"file" yaml:"file"`
	Result *core.Result `json:"result" yaml:"result"`
}

func compileCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "compile <request-file>...",
		Short: "Compile query requests into SQL",
		Long: "Compile one or more query request files (YAML or JSON) against the " +
			"configured catalog and print the generated SQL",
		Args: cobra.MinimumNArgs(1),
		RunE: cmdCompile,
	}
	c.Flags().StringP("format", "f", "yaml", "output format: yaml or json")
	c.Flags().StringP("dialect", "d", "", "override the configured dialect")
	c.Flags().IntP("concurrency", "c", 4, "number of requests compiled in parallel")
	return c
}

func cmdCompile(cmd *cobra.Command, args []string) error {
	if err := setup(cpath); err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	dialect, _ := cmd.Flags().GetString("dialect")
	limit, _ := cmd.Flags().GetInt("concurrency")

	if dialect != "" {
		conf.Dialect = dialect
	}

	fs := afero.NewOsFs()
	e, err := serv.NewEngine(conf, fs, log.Desugar())
	if err != nil {
		return err
	}

	res, err := compileFiles(cmd.Context(), e, fs, args, limit)
	if err != nil {
		return err
	}
	return writeResults(cmd.OutOrStdout(), res, format)
}

// compileFiles compiles the request files concurrently against one engine.
// Results keep the order of files. The first failure cancels the rest.
func compileFiles(ctx context.Context, e *core.Engine, fs afero.Fs, files []string, limit int) ([]compiled, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	out := make([]compiled, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			b, err := afero.ReadFile(fs, f)
			if err != nil {
				return err
			}
			req, err := core.ParseRequest(b)
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			res, err := e.Compile(ctx, req)
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			out[i] = compiled{File: f, Result: res}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func writeResults(w io.Writer, res []compiled, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)

	case "yaml", "yml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}
