package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yungbote/catchment-service/internal/catchment"
	"github.com/yungbote/catchment-service/internal/config"
	"github.com/yungbote/catchment-service/internal/delineation"
	"github.com/yungbote/catchment-service/internal/http/response"
	"github.com/yungbote/catchment-service/internal/platform/logger"
)

const defaultOutFile = "catchment.geojson"

var errInvalidArgs = errors.New("invalid arguments")

type delineateOptions struct {
	reachcode string
	measure   string
	out       string
}

func newDelineateCmd(configPath *string) *cobra.Command {
	var opts delineateOptions

	cmd := &cobra.Command{
		Use:   "delineate",
		Short: "Write the catchment for one stream location to a file",
		Long: `delineate runs the configured resolver once and writes the resulting
features to --out. Nothing is done when --out already exists.`,
		Example: "  catchment delineate --reachcode 01010002000001 --measure 42.5 --out upstream.geojson",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			values := url.Values{}
			if cmd.Flags().Changed(catchment.ParamReachcode) {
				values.Set(catchment.ParamReachcode, opts.reachcode)
			}
			if cmd.Flags().Changed(catchment.ParamMeasure) {
				values.Set(catchment.ParamMeasure, opts.measure)
			}
			params, errs := catchment.ValidateAll(values)
			if len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintln(cmd.ErrOrStderr(), e.Error())
				}
				return errInvalidArgs
			}

			if _, err := os.Stat(opts.out); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, skipping\n", opts.out)
				return nil
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.New(cfg.Env, cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()

			n, err := delineate(cmd.Context(), cfg, log, params, opts.out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", n, opts.out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.reachcode, catchment.ParamReachcode, "", "NHDPlus2 reach code of the stream location (digits)")
	f.StringVar(&opts.measure, catchment.ParamMeasure, "", "measure along the reach, 0 at the downstream end")
	f.StringVar(&opts.out, "out", defaultOutFile, "file to write the catchment features to")
	return cmd
}

func delineate(ctx context.Context, cfg *config.Config, log *logger.Logger, params catchment.Params, out string) (int64, error) {
	resolver, err := delineation.New(cfg, log)
	if err != nil {
		return 0, err
	}
	if rc, ok := resolver.(interface{ AssertReady(context.Context) error }); ok {
		if err := rc.AssertReady(ctx); err != nil {
			return 0, err
		}
	}
	workspaces, err := catchment.NewWorkspaces(log, cfg.Work.Root, cfg.Work.Prefix)
	if err != nil {
		return 0, err
	}
	pipeline := catchment.NewPipeline(log, resolver, workspaces, cfg.Resolver.OutputName, cfg.Resolver.OutputFormat)

	var written int64
	err = pipeline.Run(ctx, params, func(src *os.File) error {
		n, err := writeAtomic(out, src)
		written = n
		return err
	})
	return written, err
}

// writeAtomic copies src next to out and renames it into place so a failed
// run never leaves a truncated file that a later run would skip.
func writeAtomic(out string, src io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(out), ".catchment-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", out, err)
	}
	if n == 0 {
		return 0, errors.New(response.MsgNoFeatures)
	}
	return n, os.Rename(tmp.Name(), out)
}
