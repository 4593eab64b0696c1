package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/kriansa/uamount/internal/blockdev"
	"github.com/kriansa/uamount/internal/config"
	"github.com/kriansa/uamount/internal/log"
	"github.com/kriansa/uamount/internal/mount"
	"github.com/kriansa/uamount/internal/prompt"
	"github.com/kriansa/uamount/internal/reconciler"
	"github.com/kriansa/uamount/internal/udev"
	"github.com/kriansa/uamount/internal/version"
)

func main() {
	cmd := &cli.Command{
		Name:      "uamount",
		Usage:     "Configure persistent automounting for removable block devices",
		ArgsUsage: "<device> [mount-target]",
		Description: "With a mount target, configures the device to be mounted there whenever\n" +
			"it is plugged in. Without one, removes an existing configuration.\n" +
			"A bare target name is placed under the media directory.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file path",
				Value:   config.DefaultConfigPath,
			},
			&cli.StringFlag{
				Name:    "label",
				Aliases: []string{"l"},
				Usage:   "Rule file label (defaults to the device UUID)",
			},
			&cli.IntFlag{
				Name:    "priority",
				Aliases: []string{"p"},
				Usage:   "Rule priority, 0-99; lower loads earlier (default: 99)",
				Value:   -1,
			},
			&cli.StringFlag{
				Name:  "media-dir",
				Usage: "Base directory for bare mount target names",
			},
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Scope bare mount target names under <media-dir>/<user>",
			},
			&cli.StringFlag{
				Name:  "fstab",
				Usage: "Mount table file to manage",
			},
			&cli.StringFlag{
				Name:  "rule-dir",
				Usage: "udev rules directory",
			},
			&cli.StringFlag{
				Name:    "resolver",
				Aliases: []string{"r"},
				Usage:   "Device identity backend: blkid or dbus",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Answer every confirmation with yes",
			},
			&cli.BoolFlag{
				Name:    "no",
				Aliases: []string{"n"},
				Usage:   "Answer every confirmation with no",
			},
			&cli.BoolFlag{
				Name:  "no-backup",
				Usage: "Skip the mount table backup",
			},
			&cli.BoolFlag{
				Name:  "no-reload",
				Usage: "Skip the udev rule reload after a successful change",
			},
			&cli.BoolFlag{
				Name:  "keep-dir",
				Usage: "Never offer to remove the mount directory on removal",
			},
			&cli.BoolFlag{
				Name:    "test-mode",
				Aliases: []string{"t"},
				Usage:   "Use local store files and never touch system state",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:    "version",
				Aliases: []string{"V"},
				Usage:   "Print version information",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	// Handle version flag
	if cmd.Bool("version") {
		fmt.Println(version.String())
		return nil
	}

	// Setup logging
	log.Setup(cmd.Bool("verbose"))

	// Load config file
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Merge CLI flags (CLI takes precedence)
	cfg.Merge(
		cmd.String("fstab"),
		cmd.String("rule-dir"),
		cmd.String("media-dir"),
		cmd.String("resolver"),
		int(cmd.Int("priority")),
		cmd.Bool("no-backup"),
		cmd.Bool("no-reload"),
		cmd.Bool("keep-dir"),
	)

	// Apply defaults
	cfg.ApplyDefaults()

	// Test mode keeps both stores local and skips the reload
	if cmd.Bool("test-mode") {
		cfg.ApplyTestMode()
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	args := cmd.Args()
	if args.Len() < 1 || args.Len() > 2 {
		return fmt.Errorf("expected <device> [mount-target], got %d arguments", args.Len())
	}
	device := args.Get(0)
	target := args.Get(1)

	preset := prompt.AnswerNone
	switch {
	case cmd.Bool("yes") && cmd.Bool("no"):
		return fmt.Errorf("--yes and --no are mutually exclusive")
	case cmd.Bool("yes"):
		preset = prompt.AnswerYes
	case cmd.Bool("no"):
		preset = prompt.AnswerNo
	}

	resolver, err := blockdev.NewResolver(cfg.Resolver)
	if err != nil {
		return fmt.Errorf("create device resolver: %w", err)
	}

	rec := reconciler.New(
		afero.NewOsFs(),
		reconciler.Config{
			FstabPath:        cfg.FstabPath,
			RuleDir:          cfg.RuleDir,
			MediaDir:         cfg.MediaDir,
			User:             cmd.String("user"),
			RuleLabel:        cmd.String("label"),
			RulePriority:     cfg.RulePriority,
			Backup:           cfg.Backup,
			ReloadRules:      cfg.ReloadRules,
			RemoveMountPoint: cfg.RemoveMountPoint,
		},
		resolver,
		&prompt.TerminalPrompter{In: os.Stdin, Out: os.Stdout, Preset: preset},
		mount.NewSyscallMounter(),
		udev.NewUdevadmReloader(),
	)

	var result *reconciler.Result
	if target == "" {
		result, err = rec.Remove(device)
	} else {
		result, err = rec.Add(device, target)
	}
	if err != nil {
		return err
	}

	// Operator declined: clean exit, nothing was written
	if result.Cancelled {
		fmt.Println("Aborted; no changes were made.")
		return nil
	}

	success := color.New(color.FgGreen, color.Bold)
	if target == "" {
		success.Printf("Removed automount configuration for %s\n", result.UUID)
	} else {
		success.Printf("Configured %s to mount at %s\n", result.UUID, result.MountPoint)
	}
	if result.BackupPath != "" {
		fmt.Printf("Mount table backup: %s\n", result.BackupPath)
	}
	for _, warning := range result.Warnings {
		color.New(color.FgYellow).Printf("warning: %s\n", warning)
	}

	return nil
}
