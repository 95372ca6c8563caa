package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// GENCODE FTP
const (
	gencodeBaseURL        = "https://ftp.ebi.ac.uk/pub/databases/gencode/Gencode_human"
	defaultGENCODERelease = 40
)

// gencodeGFF3URL returns the primary-assembly GFF3 URL of a GENCODE release.
func gencodeGFF3URL(release int) string {
	return fmt.Sprintf("%s/release_%d/%s", gencodeBaseURL, release, gencodeGFF3Name(release))
}

func gencodeGFF3Name(release int) string {
	return fmt.Sprintf("gencode.v%d.primary_assembly.annotation.gff3.gz", release)
}

func newDownloadCmd() *cobra.Command {
	var (
		release   int
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a GENCODE primary-assembly GFF3 annotation",
		Example: `  txmap download                 # release 40 into ~/.txmap
  txmap download --release 46 --output /data/gencode`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir == "" {
				outputDir = viper.GetString(keyDataDir)
			}
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			out := cmd.OutOrStdout()
			dest := filepath.Join(outputDir, gencodeGFF3Name(release))
			fmt.Fprintf(out, "Downloading GENCODE release %d to %s\n", release, outputDir)
			if err := downloadFile(cmd.Context(), gencodeGFF3URL(release), dest, out); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nBuild the registry with:\n  txmap build %s\n", dest)
			return nil
		},
	}

	cmd.Flags().IntVar(&release, "release", defaultGENCODERelease, "GENCODE release number")
	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default: ~/.txmap/)")

	return cmd
}

// downloadFile fetches url into destPath through a .tmp file, reporting
// progress to out. An existing destPath is left alone.
func downloadFile(ctx context.Context, url, destPath string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if info, err := os.Stat(destPath); err == nil {
		fmt.Fprintf(out, "  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Fprintf(out, "  Downloading %s...\n", filepath.Base(destPath))

	client := &http.Client{
		Timeout: 30 * time.Minute,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	pw := &progressWriter{
		out:       out,
		total:     resp.ContentLength,
		lastPrint: time.Now(),
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

	fmt.Fprintf(out, "\n    Done: %s\n", formatSize(pw.downloaded))
	return nil
}

// progressWriter reports download progress at most once a second.
type progressWriter struct {
	out        io.Writer
	total      int64
	downloaded int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(pw.downloaded) / float64(pw.total) * 100
			fmt.Fprintf(pw.out, "\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Fprintf(pw.out, "\r    Progress: %s  ", formatSize(pw.downloaded))
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
