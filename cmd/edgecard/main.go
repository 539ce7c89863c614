// Package main is the edgecard CLI: the pipeline daemon plus one-shot
// subcommands for each scheduled job.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
