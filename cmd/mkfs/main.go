// Command mkfs creates and formats a VSFS disk image.
package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/vsfs/vsfs/vsfs"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	if len(os.Args) != 2 {
		logrus.Errorf("usage: %s <disk_image>", os.Args[0])
		os.Exit(1)
	}
	path := os.Args[1]

	if err := vsfs.CreateContainer(path); err != nil {
		logrus.WithError(err).Error("failed to create disk image")
		os.Exit(1)
	}
	if err := vsfs.Format(path); err != nil {
		logrus.WithError(err).Error("failed to format disk image")
		os.Exit(1)
	}

	logrus.WithFields(logrus.Fields{
		"path":   path,
		"blocks": vsfs.TotalBlocks,
		"bytes":  vsfs.TotalBlocks * vsfs.B,
	}).Info("VSFS formatted successfully")
}
