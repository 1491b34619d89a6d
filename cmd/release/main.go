package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"qwenmt-translator/internal/release"
	"qwenmt-translator/pkg/logging/logging"
)

const usage = `usage:
  release pack   -version X [-dist dist] [-out dir]
  release appcast -version X -desc "notes" [-appcast appcast.json] [-out dir]`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("release: %v", err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	version := fs.String("version", "", "plugin version")
	dist := fs.String("dist", "dist", "directory holding the built plugin")
	outDir := fs.String("out", ".", "directory for the .bobplugin archive")
	desc := fs.String("desc", "", "release notes for the appcast entry")
	appcast := fs.String("appcast", "appcast.json", "appcast manifest path")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *version == "" {
		return fmt.Errorf("-version is required\n%s", usage)
	}

	logger := logging.DefaultLogger()
	defer logger.Sync()

	artifact := filepath.Join(*outDir, release.ArtifactName(*version))

	switch args[0] {
	case "pack":
		size, err := release.Pack(*dist, artifact)
		if err != nil {
			return err
		}
		logger.Info("packaging completed",
			zap.String("output", artifact),
			zap.Float64("size_kb", float64(size)/1024),
		)
	case "appcast":
		entry, err := release.UpdateAppcast(*appcast, artifact, *version, *desc)
		if err != nil {
			return err
		}
		logger.Info("appcast updated",
			zap.String("version", entry.Version),
			zap.String("sha256", entry.SHA256),
			zap.String("url", entry.URL),
		)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
	return nil
}
