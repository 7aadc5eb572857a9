package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"stockbot/src/config"
	"stockbot/src/storage"
)

// Inspects and maintains the signal state file.
//
//	go run ./src/scripts/state_admin show
//	go run ./src/scripts/state_admin -yes clear
//	go run ./src/scripts/state_admin push|pull
func main() {
	yes := flag.Bool("yes", false, "confirm destructive commands")
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("Usage: state_admin [-yes] show|clear|push|pull")
	}
	command := flag.Arg(0)

	configPath, required := config.ConfigPath()
	botConfig, err := config.LoadFromPath(configPath, required)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	storageConfig := botConfig.Storage

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch command {
	case "show":
		store, err := storage.NewFileStateStoreBuilder(storageConfig.StateFile).Build()
		if err != nil {
			log.Fatalf("Failed to open state file: %v", err)
		}
		states, err := store.LoadAll()
		if err != nil {
			log.Printf("Some records could not be read: %v", err)
		}
		symbols := make([]string, 0, len(states))
		for symbol := range states {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		for _, symbol := range symbols {
			if err := encoder.Encode(states[symbol]); err != nil {
				log.Fatalf("Failed to print state for %s: %v", symbol, err)
			}
		}
		fmt.Printf("%d symbols in %s\n", len(symbols), store.Path())

	case "clear":
		if !*yes {
			log.Fatalf("Refusing to clear %s without -yes", storageConfig.StateFile)
		}
		store, err := storage.BuildStateStore(ctx, &storageConfig)
		if err != nil {
			log.Fatalf("Failed to open state store: %v", err)
		}
		if err := store.ClearAll(); err != nil {
			log.Fatalf("Failed to clear state: %v", err)
		}
		log.Printf("Cleared all states in %s", storageConfig.StateFile)

	case "push", "pull":
		if storageConfig.Bucket == "" {
			log.Fatalf("storage.bucket is not configured")
		}
		mirror, err := storage.NewBucketMirror(ctx, storageConfig.Bucket, storageConfig.Object)
		if err != nil {
			log.Fatalf("Failed to create bucket mirror: %v", err)
		}
		defer mirror.Close()

		if command == "push" {
			if err := mirror.Push(ctx, storageConfig.StateFile); err != nil {
				log.Fatalf("Push failed: %v", err)
			}
			log.Printf("Pushed %s to gs://%s/%s", storageConfig.StateFile, storageConfig.Bucket, storageConfig.Object)
			return
		}
		restored, err := mirror.Pull(ctx, storageConfig.StateFile)
		if err != nil {
			log.Fatalf("Pull failed: %v", err)
		}
		if !restored {
			log.Printf("Nothing at gs://%s/%s", storageConfig.Bucket, storageConfig.Object)
			return
		}
		log.Printf("Pulled gs://%s/%s to %s", storageConfig.Bucket, storageConfig.Object, storageConfig.StateFile)

	default:
		log.Fatalf("Unknown command %q", command)
	}
}
