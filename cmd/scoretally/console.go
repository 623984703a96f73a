package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/abrezinsky/scoretally/internal/logger"
)

// isTerminal reports whether f is an interactive terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// nextLevel cycles debug -> info -> warn -> error -> debug
func nextLevel(current string) string {
	switch current {
	case "DEBUG":
		return "info"
	case "INFO":
		return "warn"
	case "WARN":
		return "error"
	default:
		return "debug"
	}
}

func printConsoleHelp() {
	fmt.Printf("\n%s%s  Console commands (type and press Enter):%s\n", bold, green, reset)
	fmt.Printf("    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Printf("    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Printf("    %sq%s      - Quit server\n", cyan, reset)
	fmt.Printf("    %s?%s      - Show this help\n\n", cyan, reset)
}

// runConsole reads operator commands from in until it closes or q is
// entered, in which case quit is called
func runConsole(in io.Reader, appLog logger.Logger, quit func()) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "h":
			if appLog.IsHTTPLoggingEnabled() {
				appLog.DisableHTTPLogging()
				fmt.Printf("%sHTTP logging: %soff%s\n", green, yellow, reset)
			} else {
				appLog.EnableHTTPLogging()
				fmt.Printf("%sHTTP logging: %son%s\n", green, yellow, reset)
			}
		case "l":
			next := nextLevel(appLog.GetLevel().String())
			appLog.SetLevel(logger.ParseLevel(next))
			fmt.Printf("%sLog level: %s%s%s\n", green, yellow, next, reset)
		case "q":
			quit()
			return
		case "?", "help":
			printConsoleHelp()
		case "":
		default:
			fmt.Printf("%sUnknown command, type ? for help%s\n", yellow, reset)
		}
	}
}
