// Command finsim runs the personal-finance simulation: an HTTP API where a
// player spends a simulated life month by month against the guru, plus
// offline commands for scripted runs and replays.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
