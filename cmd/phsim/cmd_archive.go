package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/phsim/internal/archive"
	"github.com/nvandessel/phsim/internal/constants"
	"github.com/nvandessel/phsim/internal/store"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Export, import and manage result archives",
		Long: `Archive saved simulation results to a file and load them back.

Default location: ~/.phsim/archives/phsim-archive-YYYYMMDD-HHMMSS.json.gz
Exports keep the most recent archives (default: last 10).

Examples:
  phsim archive export                        # compressed, default location
  phsim archive export --output run.json --plain
  phsim archive import run.json --mode replace
  phsim archive verify <file>
  phsim archive list
  phsim archive prune --max-age 30d`,
	}

	cmd.PersistentFlags().String("scope", "both", "History scope: local, global or both")

	cmd.AddCommand(
		newArchiveExportCmd(),
		newArchiveImportCmd(),
		newArchiveVerifyCmd(),
		newArchiveListCmd(),
		newArchivePruneCmd(),
	)
	return cmd
}

// defaultArchiveDir returns ~/.phsim/archives.
func defaultArchiveDir() (string, error) {
	dir, err := store.GlobalPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "archives"), nil
}

func archiveDirFlag(cmd *cobra.Command) (string, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir != "" {
		return dir, nil
	}
	return defaultArchiveDir()
}

func newArchiveExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export saved results to an archive file",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			outputPath, _ := cmd.Flags().GetString("output")
			plain, _ := cmd.Flags().GetBool("plain")
			keep, _ := cmd.Flags().GetInt("keep")

			autoPath := outputPath == ""
			if autoPath {
				dir, err := defaultArchiveDir()
				if err != nil {
					return fmt.Errorf("failed to get archive directory: %w", err)
				}
				outputPath = archive.GeneratePath(dir, time.Now())
			}

			rs, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer rs.Close()

			a, err := archive.Export(cmd.Context(), rs, outputPath, plain)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			// Rotation only applies to the managed directory.
			if autoPath && keep > 0 {
				if _, err := archive.ApplyRetention(filepath.Dir(outputPath), archive.CountPolicy{MaxCount: keep}); err != nil {
					fmt.Fprintf(os.Stderr, "warning: failed to apply retention: %v\n", err)
				}
			}

			var sizeBytes int64
			if info, err := os.Stat(outputPath); err == nil {
				sizeBytes = info.Size()
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"path":         outputPath,
					"result_count": len(a.Results),
					"compressed":   !plain,
					"size_bytes":   sizeBytes,
				})
			}

			formatLabel := "gzip"
			if plain {
				formatLabel = "json"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archive created: %d results (%s)\n", len(a.Results), formatLabel)
			fmt.Fprintf(cmd.OutOrStdout(), "  Path: %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().String("output", "", "Output file path (default: auto-generated in ~/.phsim/archives/)")
	cmd.Flags().Bool("plain", false, "Write indented JSON instead of a compressed archive")
	cmd.Flags().Int("keep", constants.MaxArchiveRotation, "Archives to keep in the default directory (0 = keep all)")
	return cmd
}

func newArchiveImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import results from an archive file",
		Long: `Import results from an archive (plain or compressed; format is
auto-detected).

Modes:
  merge   - Skip results whose ID already exists (default)
  replace - Overwrite existing results with the archived copy`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			modeFlag, _ := cmd.Flags().GetString("mode")

			mode, err := archive.ParseImportMode(modeFlag)
			if err != nil {
				return err
			}

			rs, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer rs.Close()

			result, err := archive.Import(cmd.Context(), rs, args[0], mode)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d results (%d replaced, %d skipped)\n",
				result.Imported, result.Replaced, result.Skipped)
			return nil
		},
	}

	cmd.Flags().String("mode", string(archive.ImportMerge), "Import mode: merge or replace")
	return cmd
}

func newArchiveVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify an archive's integrity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			path := args[0]

			format, err := archive.DetectFormat(path)
			if err != nil {
				return fmt.Errorf("failed to detect format: %w", err)
			}

			var count int
			if format == archive.FormatCompressed {
				if err := archive.Verify(path); err != nil {
					return fmt.Errorf("verification failed: %w", err)
				}
				header, err := archive.ReadHeader(path)
				if err != nil {
					return err
				}
				count = header.ResultCount
			} else {
				a, err := archive.ReadFile(path)
				if err != nil {
					return fmt.Errorf("verification failed: %w", err)
				}
				count = len(a.Results)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"path":         path,
					"valid":        true,
					"format":       format,
					"result_count": count,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archive OK: %d results (format %d)\n", count, format)
			return nil
		},
	}
}

func newArchiveListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archives, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			dir, err := archiveDirFlag(cmd)
			if err != nil {
				return err
			}
			list, err := archive.List(dir)
			if err != nil {
				return err
			}

			if jsonOut {
				if list == nil {
					list = []archive.Info{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"archives": list,
					"count":    len(list),
				})
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No archives found.")
				return nil
			}
			for _, info := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %8d bytes  %s\n",
					info.CreatedAt.Local().Format(time.DateTime), info.Size, info.Path)
			}
			return nil
		},
	}

	cmd.Flags().String("dir", "", "Archive directory (default ~/.phsim/archives)")
	return cmd
}

func newArchivePruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old archives",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			keep, _ := cmd.Flags().GetInt("keep")
			maxAge, _ := cmd.Flags().GetString("max-age")

			var policy archive.RetentionPolicy = archive.CountPolicy{MaxCount: keep}
			if maxAge != "" {
				d, err := archive.ParseDuration(maxAge)
				if err != nil {
					return fmt.Errorf("invalid --max-age: %w", err)
				}
				policy = archive.AgePolicy{MaxAge: d}
			}

			dir, err := archiveDirFlag(cmd)
			if err != nil {
				return err
			}
			deleted, err := archive.ApplyRetention(dir, policy)
			if err != nil {
				return fmt.Errorf("prune failed: %w", err)
			}

			if jsonOut {
				if deleted == nil {
					deleted = []string{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"deleted": deleted,
					"count":   len(deleted),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d archives\n", len(deleted))
			return nil
		},
	}

	cmd.Flags().String("dir", "", "Archive directory (default ~/.phsim/archives)")
	cmd.Flags().Int("keep", constants.MaxArchiveRotation, "Number of archives to keep")
	cmd.Flags().String("max-age", "", "Delete archives older than this (e.g. 30d); overrides --keep")
	return cmd
}
