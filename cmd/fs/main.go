// Command fs operates on an existing VSFS disk image: create, install,
// ls, stat, check.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/vsfs/vsfs/disk"
	"github.com/vsfs/vsfs/vsfs"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <disk_image> <command> [args...]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  create <filename>   - Create a new file (logs to journal)")
	fmt.Fprintln(os.Stderr, "  install             - Install journal transactions")
	fmt.Fprintln(os.Stderr, "  ls                  - List files in root directory")
	fmt.Fprintln(os.Stderr, "  stat                - Show file system statistics")
	fmt.Fprintln(os.Stderr, "  check               - Validate file system consistency")
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}
	path := os.Args[1]
	command := os.Args[2]

	dev, err := disk.Open(path)
	if err != nil {
		logrus.WithError(err).Errorf("cannot open disk image %q", path)
		os.Exit(1)
	}

	code := run(dev, path, command, os.Args[3:])
	dev.Close()
	os.Exit(code)
}

func run(dev *disk.Device, path, command string, args []string) int {
	switch command {
	case "create":
		if len(args) < 1 {
			logrus.Error("create requires a filename")
			usage()
			return 1
		}
		if err := vsfs.Create(dev, args[0]); err != nil {
			logrus.WithError(err).Error("create failed")
			return 1
		}
		return 0

	case "install":
		result, err := vsfs.NewJournal(dev).Install()
		if err != nil {
			logrus.WithError(err).Error("install failed")
			return 1
		}
		logrus.WithFields(logrus.Fields{
			"transactions":    result.Transactions,
			"records_applied": result.RecordsApplied,
		}).Info("install complete")
		return 0

	case "ls":
		entries, err := vsfs.List(dev)
		if err != nil {
			logrus.WithError(err).Error("ls failed")
			return 1
		}
		vsfs.WriteLS(os.Stdout, entries)
		return 0

	case "stat":
		stats, err := vsfs.Stat(dev, path)
		if err != nil {
			logrus.WithError(err).Error("stat failed")
			return 1
		}
		vsfs.WriteStat(os.Stdout, stats)
		return 0

	case "check":
		report, err := vsfs.Check(dev)
		if err != nil {
			logrus.WithError(err).Error("check failed")
			return 1
		}
		fmt.Println("Checking file system consistency...")
		for _, e := range report.Errors {
			fmt.Println("ERROR:", e)
		}
		if len(report.Errors) == 0 {
			fmt.Println("File system is consistent")
		} else {
			fmt.Printf("Found %d error(s)\n", len(report.Errors))
		}
		return 0

	default:
		logrus.Errorf("unknown command %q", command)
		usage()
		return 1
	}
}
