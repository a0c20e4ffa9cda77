package geocode

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ceyeborg/virusradar/internal/logger"
	"github.com/ceyeborg/virusradar/internal/retry"
)

// DatasetFilename is the extracted dump file inside the data directory.
const DatasetFilename = "cities1000.txt"

const downloadTimeout = 5 * time.Minute

// EnsureDataset makes sure the extracted GeoNames dump exists in dataDir and
// returns its path. A missing dump is downloaded from url (a ZIP with a
// single member) and extracted; the archive is removed afterwards.
func EnsureDataset(ctx context.Context, url, dataDir string, log *logger.Logger) (string, error) {
	target := filepath.Join(dataDir, DatasetFilename)

	if _, err := os.Stat(target); err == nil {
		log.Debug("geonames dataset already present", logger.Field{Key: "path", Value: target})
		return target, nil
	}

	log.Info("geonames dataset missing, downloading",
		logger.Field{Key: "url", Value: url},
		logger.Field{Key: "target", Value: target})

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create dataset directory: %w", err)
	}

	archivePath := filepath.Join(dataDir, "cities1000.zip")
	err := retry.Do(ctx, func() error {
		return downloadFile(ctx, url, archivePath)
	}, retry.Config{})
	if err != nil {
		return "", fmt.Errorf("failed to download geonames dataset: %w", err)
	}
	defer os.Remove(archivePath)

	if err := extractSingleMember(archivePath, target); err != nil {
		return "", fmt.Errorf("failed to extract geonames dataset: %w", err)
	}

	return target, nil
}

// downloadFile fetches url into path via a temp file and rename.
func downloadFile(ctx context.Context, url, path string) error {
	reqCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// extractSingleMember extracts the first regular file from the archive.
// The cities1000 ZIP contains exactly one member.
func extractSingleMember(archivePath, target string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	for _, member := range zr.File {
		if member.FileInfo().IsDir() || strings.Contains(member.Name, "..") {
			continue
		}

		rc, err := member.Open()
		if err != nil {
			return fmt.Errorf("failed to open archive member %s: %w", member.Name, err)
		}

		out, err := os.Create(target)
		if err != nil {
			rc.Close()
			return fmt.Errorf("failed to create %s: %w", target, err)
		}

		_, copyErr := io.Copy(out, rc)
		rc.Close()
		if closeErr := out.Close(); copyErr == nil {
			copyErr = closeErr
		}
		return copyErr
	}

	return fmt.Errorf("archive %s has no usable members", archivePath)
}
