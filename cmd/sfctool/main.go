// sfctool is a CLI utility for inspecting world saves and sprite files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/Faultbox/albia/internal/config"
	"github.com/Faultbox/albia/internal/logger"
)

func main() {
	// Global flags come before the command name
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, cfg, args[0], args[1:])
	stop()
	logger.Sync()
	os.Exit(code)
}

// run dispatches one command and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, command string, args []string) int {
	var err error
	switch command {
	case "info":
		err = cmdInfo(cfg, args, os.Stdout)
	case "rooms":
		err = cmdRooms(cfg, args, os.Stdout)
	case "objects", "agents":
		err = cmdObjects(cfg, args, os.Stdout)
	case "dump":
		err = cmdDump(cfg, args, os.Stdout)
	case "export":
		err = cmdExport(ctx, cfg, args, os.Stdout)
	case "sprite":
		err = cmdSprite(cfg, args, os.Stdout)
	case "background", "bg":
		err = cmdBackground(cfg, args, os.Stdout)
	case "help", "-h", "--help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return 1
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Println(`sfctool - world save and sprite utility

Usage:
  sfctool [--config file] [--debug] [--log-file file] [--format text|yaml] <command> [options]

Commands:
  info <file.sfc>                     Show map flags and record counts
  rooms <file.sfc> [-n N]             List rooms with render-space bounds and doors
  objects <file.sfc>                  List objects and scenery
  dump <file.sfc> [-map]              Dump the decoded document as YAML
  export <file.sfc> <out.db>          Write a SQLite index of the document
  sprite <file.s16|stem> <index> <out.bmp>
                                      Decode one sprite image to BMP
  background <file.sfc> <index> <out.bmp>
                                      Decode one image of the map background

Environment:
  ALBIA_FORMAT, ALBIA_MAX_ROOMS, ALBIA_SPRITE_PATHS, ALBIA_STRICT_TRAILING,
  ALBIA_EXPORT_BUSY_TIMEOUT, ALBIA_EXPORT_BACTERIA, ALBIA_LOG_LEVEL, ALBIA_LOG_FILE

Examples:
  sfctool info World/eden.sfc
  sfctool --format yaml rooms -n 20 World/eden.sfc
  sfctool export World/eden.sfc eden.db
  sfctool sprite back 0 back.bmp`)
}
