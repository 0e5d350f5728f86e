package main

import (
	"context"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/croptrust/gapanalysis-cli/internal/fetcher"
)

var fetchFlags struct {
	dest    string
	extract bool
	exts    []string
	force   bool
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Download an occurrence or raster dataset archive",
	Long:  "Downloads a dataset and remembers its ETag in a sidecar file, so re-running against an unchanged bundle skips the transfer. Use --force to re-download unconditionally.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		rawURL := args[0]
		dest := fetchFlags.dest
		if dest == "" {
			dest = cfg.Fetch.TempDir
		}
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return eris.Wrap(err, "create destination directory")
		}

		name, err := fileNameFromURL(rawURL)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, name)

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:    cfg.Fetch.UserAgent,
			Timeout:      time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries:   cfg.Fetch.MaxRetries,
			RateLimiters: fetcher.DefaultRateLimiters(),
		})

		if err := fetchDataset(ctx, f, rawURL, target, fetchFlags.force); err != nil {
			return err
		}

		if fetchFlags.extract && strings.EqualFold(filepath.Ext(target), ".zip") {
			extracted, err := fetcher.ExtractZIPMatching(target, dest, fetchFlags.exts...)
			if err != nil {
				return err
			}
			zap.L().Info("extracted archive",
				zap.String("archive", target),
				zap.Int("files", len(extracted)),
			)
		}

		return nil
	},
}

// fetchDataset downloads the URL into target. Unless force is set, the ETag
// from the previous download (kept in a sidecar next to the target) is sent
// so an unchanged dataset skips the transfer entirely.
func fetchDataset(ctx context.Context, f fetcher.Fetcher, rawURL, target string, force bool) error {
	if force {
		n, err := f.DownloadToFile(ctx, rawURL, target)
		if err != nil {
			return err
		}
		_ = os.Remove(etagSidecar(target))
		zap.L().Info("downloaded",
			zap.String("url", rawURL),
			zap.String("path", target),
			zap.Int64("bytes", n),
		)
		return nil
	}

	prevTag := readETag(target)
	body, newTag, changed, err := f.DownloadIfChanged(ctx, rawURL, prevTag)
	if err != nil {
		return err
	}
	if !changed {
		zap.L().Info("dataset unchanged, skipping download",
			zap.String("url", rawURL),
			zap.String("path", target),
		)
		return nil
	}
	defer body.Close() //nolint:errcheck

	out, err := os.Create(target)
	if err != nil {
		return eris.Wrapf(err, "create %s", target)
	}
	n, err := io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return eris.Wrapf(err, "write %s", target)
	}

	if newTag != "" {
		if werr := os.WriteFile(etagSidecar(target), []byte(newTag), 0o644); werr != nil {
			zap.L().Warn("could not record dataset etag", zap.Error(werr))
		}
	}
	zap.L().Info("downloaded",
		zap.String("url", rawURL),
		zap.String("path", target),
		zap.Int64("bytes", n),
	)
	return nil
}

func etagSidecar(target string) string {
	return target + ".etag"
}

// readETag returns the recorded ETag for a target, or "" when the target or
// its sidecar is missing. A sidecar without its dataset forces a re-download.
func readETag(target string) string {
	if _, err := os.Stat(target); err != nil {
		return ""
	}
	data, err := os.ReadFile(etagSidecar(target))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// fileNameFromURL derives a local file name from the URL path.
func fileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "parse url %s", rawURL)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", eris.Errorf("cannot derive file name from %s", rawURL)
	}
	return name, nil
}

func init() {
	fetchCmd.Flags().StringVar(&fetchFlags.dest, "dest", "", "destination directory (default from config)")
	fetchCmd.Flags().BoolVar(&fetchFlags.extract, "extract", false, "extract downloaded .zip archives")
	fetchCmd.Flags().StringSliceVar(&fetchFlags.exts, "ext", nil, "extensions to keep when extracting (e.g. .asc,.prj,.csv)")
	fetchCmd.Flags().BoolVar(&fetchFlags.force, "force", false, "re-download even if the dataset is unchanged")
	rootCmd.AddCommand(fetchCmd)
}
