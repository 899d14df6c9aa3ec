package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"curator/internal/activity"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderStatus(status activity.Status, colorize bool) string {
	label := string(status)
	if !colorize {
		return label
	}
	switch status {
	case activity.StatusProcessing:
		return ansiYellow + label + ansiReset
	case activity.StatusCompleted:
		return ansiGreen + label + ansiReset
	case activity.StatusRejected:
		return ansiRed + label + ansiReset
	default:
		return label
	}
}
