package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/zeu5/rl-trainer/benchmarks/cmd"
)

func main() {
	for _, envFile := range []string{
		".env",
		"../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	if err := cmd.RootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
