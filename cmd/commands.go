package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/safe-ro/safe-ro/internal/api"
	"github.com/safe-ro/safe-ro/internal/firms"
	"github.com/safe-ro/safe-ro/internal/log"
	"github.com/safe-ro/safe-ro/internal/pipeline"
	"github.com/safe-ro/safe-ro/internal/products"
	"github.com/safe-ro/safe-ro/internal/raster"
	"github.com/safe-ro/safe-ro/internal/sentinel"
	"github.com/safe-ro/safe-ro/output"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func outputDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return dir, nil
}

func newNDVICmd(a *app) *cobra.Command {
	var (
		red, nir, out string
		downsample    int
	)

	cmd := &cobra.Command{
		Use:   "ndvi",
		Short: "Compute NDVI from a RED and a NIR band",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := products.ComputeIndex(red, nir, products.WithDownsample(downsample))
			if err != nil {
				return err
			}
			if out != "" {
				dir, err := outputDir(out)
				if err != nil {
					return err
				}
				if err := output.CreateIndexImage(result, nil, filepath.Join(dir, "ndvi.png")); err != nil {
					return err
				}
				if err := output.SaveIndexGeoTIFF(result, 0, filepath.Join(dir, "ndvi.tif")); err != nil {
					return err
				}
				if err := output.CreateBandPreview(red, downsample, filepath.Join(dir, "red.png")); err != nil {
					return err
				}
				if err := output.CreateBandPreview(nir, downsample, filepath.Join(dir, "nir.png")); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), pipeline.NDVISummary{Stats: result.Stats(), Bounds: result.Bounds})
		},
	}

	cmd.Flags().StringVar(&red, "red", "", "RED band (B04) path")
	cmd.Flags().StringVar(&nir, "nir", "", "NIR band (B08) path")
	cmd.Flags().IntVar(&downsample, "downsample", a.cfg.DownsampleFactor, "read bands at 1/factor resolution")
	cmd.Flags().StringVar(&out, "out", "", "directory for the PNG and GeoTIFF renderings")
	_ = cmd.MarkFlagRequired("red")
	_ = cmd.MarkFlagRequired("nir")
	return cmd
}

func newFloodCmd(a *app) *cobra.Command {
	var (
		path, out             string
		threshold, percentile float64
		downsample            int
	)

	cmd := &cobra.Command{
		Use:   "flood",
		Short: "Detect low backscatter pixels in a Sentinel-1 band",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []products.Option{products.WithDownsample(downsample), products.WithPercentile(percentile)}
			if cmd.Flags().Changed("threshold") {
				opts = append(opts, products.WithThreshold(threshold))
			}
			mask, err := products.DetectThresholdMask(path, opts...)
			if err != nil {
				return err
			}
			if out != "" {
				dir, err := outputDir(out)
				if err != nil {
					return err
				}
				if err := output.CreateMaskImage(mask, filepath.Join(dir, "flood.png")); err != nil {
					return err
				}
				if err := output.SaveMaskGeoTIFF(mask, 0, filepath.Join(dir, "flood.tif")); err != nil {
					return err
				}
				if err := output.CreateBandPreview(path, downsample, filepath.Join(dir, "vv.png")); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), pipeline.FloodSummary{
				FloodedPercent: mask.FloodedPercent(),
				Threshold:      raster.FiniteOrNil(mask.Threshold),
				Bounds:         mask.Bounds,
			})
		},
	}

	cmd.Flags().StringVar(&path, "s1", "", "Sentinel-1 band path")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "explicit backscatter threshold")
	cmd.Flags().Float64Var(&percentile, "percentile", products.DefaultPercentile, "percentile used when no threshold is given")
	cmd.Flags().IntVar(&downsample, "downsample", a.cfg.DownsampleFactor, "read the band at 1/factor resolution")
	cmd.Flags().StringVar(&out, "out", "", "directory for the PNG and GeoTIFF renderings")
	_ = cmd.MarkFlagRequired("s1")
	return cmd
}

func newFiresCmd(a *app) *cobra.Command {
	var (
		path          string
		minConfidence float64
		bbox          []float64
	)

	cmd := &cobra.Command{
		Use:   "fires",
		Short: "Filter a FIRMS CSV export by confidence",
		RunE: func(cmd *cobra.Command, args []string) error {
			detector, err := firms.Load(path)
			if err != nil {
				return err
			}
			fires := detector.FilterByConfidence(minConfidence)
			if len(bbox) > 0 {
				if len(bbox) != 4 {
					return fmt.Errorf("%w: bbox needs minLat,maxLat,minLon,maxLon", products.ErrInvalidParameter)
				}
				fires = firms.NewDetector(fires, true).FilterByBBox(bbox[0], bbox[1], bbox[2], bbox[3])
			}
			return printJSON(cmd.OutOrStdout(), pipeline.FireSummary{
				Count:   len(fires),
				Example: fires[:min(pipeline.SampleSize, len(fires))],
			})
		},
	}

	cmd.Flags().StringVar(&path, "firms", "", "FIRMS CSV path")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", firms.DefaultMinConfidence, "minimum detection confidence")
	cmd.Flags().Float64SliceVar(&bbox, "bbox", nil, "minLat,maxLat,minLon,maxLon")
	_ = cmd.MarkFlagRequired("firms")
	return cmd
}

func newPipelineCmd(a *app) *cobra.Command {
	var (
		in                    pipeline.Inputs
		threshold, percentile float64
		out                   string
	)

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Compute every product the given inputs allow",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("threshold") {
				in.Threshold = &threshold
			}
			if cmd.Flags().Changed("percentile") {
				in.Percentile = &percentile
			}
			report, err := a.runner.Run(cmd.Context(), in)
			if err != nil {
				return err
			}
			if out != "" {
				if err := writeReport(report, out); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), report.Summary)
		},
	}

	cmd.Flags().StringVar(&in.Region, "region", "", "region label")
	cmd.Flags().StringVar(&in.RedPath, "red", "", "RED band (B04) path")
	cmd.Flags().StringVar(&in.NIRPath, "nir", "", "NIR band (B08) path")
	cmd.Flags().StringVar(&in.S1Path, "s1", "", "Sentinel-1 band path")
	cmd.Flags().StringVar(&in.FIRMSPath, "firms", "", "FIRMS CSV path")
	cmd.Flags().IntVar(&in.Downsample, "downsample", a.cfg.DownsampleFactor, "read bands at 1/factor resolution")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "explicit backscatter threshold")
	cmd.Flags().Float64Var(&percentile, "percentile", products.DefaultPercentile, "percentile used when no threshold is given")
	cmd.Flags().StringVar(&out, "out", "", "directory for images, GeoTIFFs and GeoJSON")
	return cmd
}

func writeReport(report *pipeline.Report, out string) error {
	dir, err := outputDir(out)
	if err != nil {
		return err
	}
	if report.Index != nil {
		if err := output.CreateIndexImage(report.Index, report.Fires, filepath.Join(dir, "ndvi.png")); err != nil {
			return err
		}
		if err := output.SaveIndexGeoTIFF(report.Index, 0, filepath.Join(dir, "ndvi.tif")); err != nil {
			return err
		}
		props := map[string]interface{}{"product": "ndvi", "mean": raster.FiniteOrNil(report.Summary.NDVI.Stats.Mean)}
		if err := output.CreateFootprintGeoJSON(report.Index.Bounds, props, report.Fires, filepath.Join(dir, "ndvi.geojson")); err != nil {
			return err
		}
	}
	if report.Flood != nil {
		if err := output.CreateMaskImage(report.Flood, filepath.Join(dir, "flood.png")); err != nil {
			return err
		}
		if err := output.SaveMaskGeoTIFF(report.Flood, 0, filepath.Join(dir, "flood.tif")); err != nil {
			return err
		}
	}
	return nil
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		workers int
		report  string
	)

	cmd := &cobra.Command{
		Use:   "batch <manifest.csv>",
		Short: "Run the pipeline for every row of a CSV manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := pipeline.ReadManifest(args[0])
			if err != nil {
				return err
			}
			results := a.runner.RunBatch(cmd.Context(), inputs, workers)
			if report == "" {
				report = filepath.Join(a.cfg.ResultPath(), fmt.Sprintf("batch_%s.csv", time.Now().Format("20060102_150405")))
			}
			if _, err := outputDir(filepath.Dir(report)); err != nil {
				return err
			}
			if err := output.WriteSummaryReport(results, report); err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			log.Infow("batch finished", "runs", len(results), "failed", failed, "report", report)
			fmt.Fprintf(cmd.OutOrStdout(), "%d runs, %d failed. Report saved to %s\n", len(results), failed, report)
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 4, "number of concurrent runs")
	cmd.Flags().StringVar(&report, "report", "", "CSV report path")
	return cmd
}

func newDownloadCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "download <region>",
		Short: "Download the latest Sentinel scene over a monitored region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, bound, ok := sentinel.Region(args[0])
			if !ok {
				return fmt.Errorf("unknown region %q, expected one of %v", args[0], sentinel.RegionNames())
			}
			if dir == "" {
				dir = filepath.Join(a.cfg.DownloadDir, name)
			}
			client := sentinel.NewClient(sentinel.ConfigFromProperties(a.cfg))
			scene, err := client.FetchLatest(cmd.Context(), name, bound, dir)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), scene)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "download directory")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			var runs api.RunLister
			if a.history != nil {
				runs = a.history
			}
			return api.New(a.cfg, a.runner, runs).Run(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&a.cfg.APIPort, "port", a.cfg.APIPort, "listen port")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "List past pipeline runs or show one of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.history == nil {
				return fmt.Errorf("history is disabled")
			}
			if len(args) == 1 {
				run, err := a.history.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), run)
			}
			runs, err := a.history.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), runs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")
	return cmd
}
