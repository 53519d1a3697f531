package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tuition/internal/backup"
	"tuition/internal/cli"
)

// tuition-backup takes or restores full snapshots from the command
// line, against the same database and asset directories the server
// uses.
//
//	tuition-backup export            writes a timestamped archive to BACKUP_DIR
//	tuition-backup import <file>     validates and restores an archive
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: tuition-backup export | import <file>")
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	codec := backup.NewCodec(repo, cfg.UploadDir, cfg.LogoDir)
	ctx := context.Background()

	switch os.Args[1] {
	case "export":
		if err := os.MkdirAll(cfg.BackupDir, 0o755); err != nil {
			logger.Error("Failed to create backup directory", "error", err, "path", cfg.BackupDir)
			os.Exit(1)
		}
		name := fmt.Sprintf("backup_%s.zip", time.Now().Format("20060102_150405"))
		path := filepath.Join(cfg.BackupDir, name)

		out, err := os.Create(path)
		if err != nil {
			logger.Error("Failed to create archive", "error", err, "path", path)
			os.Exit(1)
		}
		if err := codec.Export(ctx, out); err != nil {
			out.Close()
			os.Remove(path)
			logger.Error("Export failed", "error", err)
			os.Exit(1)
		}
		if err := out.Close(); err != nil {
			logger.Error("Failed to finalize archive", "error", err, "path", path)
			os.Exit(1)
		}
		logger.Info("Backup written", "path", path)

	case "import":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: tuition-backup import <file>")
			os.Exit(2)
		}
		path := os.Args[2]
		in, err := os.Open(path)
		if err != nil {
			logger.Error("Failed to open archive", "error", err, "path", path)
			os.Exit(1)
		}
		defer in.Close()
		fi, err := in.Stat()
		if err != nil {
			logger.Error("Failed to stat archive", "error", err, "path", path)
			os.Exit(1)
		}

		result, err := codec.Import(ctx, in, fi.Size())
		if err != nil {
			logger.Error("Import failed", "error", err, "path", path)
			os.Exit(1)
		}
		logger.Info("Backup restored",
			"students", result.StudentsRestored,
			"fees", result.FeesRestored)

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		os.Exit(2)
	}
}
