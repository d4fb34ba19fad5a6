package sentinel

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/safe-ro/safe-ro/internal/log"
	"github.com/safe-ro/safe-ro/internal/metrics"
)

// DownloadURL is the archive endpoint of a product.
func (c *Client) DownloadURL(p Product) string {
	return fmt.Sprintf("%s(%s)/$value", c.cfg.CatalogURL, p.ID)
}

func validZip(path string) bool {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	r.Close()
	return true
}

// Download fetches the product archive to <dir>/<name>.zip, resuming a
// partial file. A valid archive already on disk is reused.
func (c *Client) Download(ctx context.Context, p Product, dir string) (string, error) {
	zipPath := filepath.Join(dir, p.Name+".zip")

	err := c.locks.ExecuteWithMutex(dir, func() error {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create download directory: %w", err)
		}
		if validZip(zipPath) {
			log.Infof("using local archive %s", zipPath)
			return nil
		}

		url := c.DownloadURL(p)
		var lastErr error
		for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
			lastErr = c.downloadOnce(ctx, url, zipPath)
			if lastErr == nil && !validZip(zipPath) {
				// a complete but corrupt file would only ever get 416 back
				lastErr = fmt.Errorf("archive %s is not a valid zip", zipPath)
				if err := os.Remove(zipPath); err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("failed to discard corrupt archive: %w", err)
				}
			}
			if lastErr == nil {
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.DownloadRetries.Inc()
			log.Warnf("download attempt %d/%d of %s failed: %v", attempt, c.cfg.MaxRetries, p.Name, lastErr)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
			}
		}
		if lastErr != nil {
			return fmt.Errorf("failed to download %s after %d attempts: %w", p.Name, c.cfg.MaxRetries, lastErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return zipPath, nil
}

func (c *Client) downloadOnce(ctx context.Context, url, path string) (err error) {
	httpClient, err := c.client()
	if err != nil {
		return err
	}

	var offset int64
	if info, err := os.Stat(path); err == nil {
		offset = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	switch resp.StatusCode {
	case http.StatusRequestedRangeNotSatisfiable:
		// nothing left to fetch
		return nil
	case http.StatusPartialContent:
		flags |= os.O_APPEND
	case http.StatusOK:
		flags |= os.O_TRUNC
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	var bar *progressbar.ProgressBar
	if c.cfg.Progress {
		bar = progressbar.DefaultBytes(resp.ContentLength, "downloading")
	} else {
		bar = progressbar.DefaultBytesSilent(resp.ContentLength, "downloading")
	}

	n, err := io.Copy(io.MultiWriter(f, bar), resp.Body)
	metrics.DownloadedBytes.Add(float64(n))
	if err != nil {
		return fmt.Errorf("interrupted after %d bytes: %w", n, err)
	}
	if resp.ContentLength > 0 && n < resp.ContentLength {
		return errors.New("short read")
	}
	return nil
}
