package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

// Public OncoKB cancer gene list.
const cancerGeneListURL = "https://www.oncokb.org/api/v1/utils/cancerGeneList.txt"

func newDownloadCmd() *cobra.Command {
	var (
		outputDir string
		url       string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the public cancer gene list",
		Long: `Download the OncoKB cancer gene list, the gene source of "vibe-oncokb load".
Curated alterations and evidences are not public and must be exported
separately.`,
		Example: `  vibe-oncokb download
  vibe-oncokb download --output /data/oncokb
  vibe-oncokb load --genes ~/.vibe-oncokb/cancerGeneList.tsv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir == "" {
				dir, err := dataDir()
				if err != nil {
					return err
				}
				outputDir = dir
			}
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", outputDir, err)
			}

			w := cmd.OutOrStdout()
			dest := filepath.Join(outputDir, "cancerGeneList.tsv")
			if force {
				os.Remove(dest)
			}
			fmt.Fprintf(w, "Downloading cancer gene list to %s\n", outputDir)
			if err := downloadFile(w, url, dest); err != nil {
				return fmt.Errorf("downloading cancer gene list: %w", err)
			}

			fmt.Fprintf(w, "\nDownload complete!\n")
			fmt.Fprintf(w, "To load it into the catalog, run:\n")
			fmt.Fprintf(w, "  vibe-oncokb load --genes %s\n", dest)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&outputDir, "output", "o", "", "Output directory (default: ~/.vibe-oncokb/)")
	flags.StringVar(&url, "url", cancerGeneListURL, "Cancer gene list URL")
	flags.BoolVar(&force, "force", false, "Replace an existing download")

	return cmd
}

// downloadFile downloads a file from URL to the destination path with progress.
func downloadFile(w io.Writer, url, destPath string) error {
	// Check if file already exists
	if info, err := os.Stat(destPath); err == nil {
		fmt.Fprintf(w, "  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Fprintf(w, "  Downloading %s...\n", filepath.Base(destPath))

	client := &http.Client{
		Timeout: 5 * time.Minute,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	// Write to a temp file and rename once complete
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var downloaded int64
	pw := &progressWriter{
		w:          w,
		total:      resp.ContentLength,
		downloaded: &downloaded,
		lastPrint:  time.Now(),
	}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Fprintf(w, "    Done: %s\n", formatSize(downloaded))
	return nil
}

// progressWriter tracks download progress.
type progressWriter struct {
	w          io.Writer
	total      int64
	downloaded *int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	*pw.downloaded += int64(n)

	// Print progress every second
	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(*pw.downloaded) / float64(pw.total) * 100
			fmt.Fprintf(pw.w, "\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(*pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Fprintf(pw.w, "\r    Progress: %s  ", formatSize(*pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
