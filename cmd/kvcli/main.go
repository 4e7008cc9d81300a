package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dd0wney/kvlsm/pkg/kvconfig"
	"github.com/dd0wney/kvlsm/pkg/lsm"
	"github.com/dd0wney/kvlsm/pkg/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "get":
		handleGet(os.Args[2:])
	case "set":
		handleSet(os.Args[2:])
	case "delete":
		handleDelete(os.Args[2:])
	case "stats":
		handleStats(os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	usage := `kvcli - command-line client for a kvlsm store

Usage:
  kvcli <command> [options]

Available Commands:
  get       Look up a key
  set       Insert or overwrite a key
  delete    Delete a key
  stats     Show memtable and SSTable counts
  help      Show this help message
  version   Show version information

Global Flags:
  --path PATH      Data directory (default: ./data/kvcli)
  --config FILE    YAML config file; flags override its values

Examples:
  kvcli get --path=./data mykey
  kvcli set --path=./data mykey myvalue
  kvcli delete --path=./data mykey
`
	fmt.Print(usage)
}

func printVersion() {
	fmt.Println("kvcli v0.1.0")
}

// clientOptions mirrors the flags every subcommand shares: a data
// directory and an optional config file that supplies defaults for it.
type clientOptions struct {
	path     string
	config   string
	logLevel string
}

func parseClientFlags(name string, args []string) (*clientOptions, *flag.FlagSet) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	opts := &clientOptions{}
	fs.StringVar(&opts.path, "path", "", "data directory (overrides --config)")
	fs.StringVar(&opts.config, "config", "", "YAML config file")
	fs.StringVar(&opts.logLevel, "log-level", "", "DEBUG, INFO, WARN, or ERROR (overrides --config)")
	fs.Parse(args)
	return opts, fs
}

// openStore resolves opts against an optional config file and opens the
// store, creating the data directory on first use unless the config file
// sets create_if_missing to false. Store diagnostics go to
// stderr at the resolved level so stdout stays clean for command output.
func openStore(opts *clientOptions) (*lsm.Store, error) {
	path := opts.path
	threshold := 0
	logLevel := opts.logLevel
	noSync := false
	createIfMissing := true
	if opts.config != "" {
		cfg, err := kvconfig.LoadFile(opts.config)
		if err != nil {
			return nil, err
		}
		if path == "" {
			path = cfg.Path
		}
		threshold = cfg.MemtableFlushThreshold
		if logLevel == "" {
			logLevel = cfg.LogLevel
		}
		noSync = !cfg.Sync
		createIfMissing = cfg.CreateIfMissing
	}
	if path == "" {
		path = "./data/kvcli"
	}

	return lsm.Open(path, lsm.Options{
		CreateIfMissing:        createIfMissing,
		MemtableFlushThreshold: threshold,
		Logger:                 logging.NewJSONLogger(os.Stderr, logging.ParseLevel(logLevel)),
		NoSync:                 noSync,
	})
}

func handleGet(args []string) {
	opts, fs := parseClientFlags("get", args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: kvcli get [--path PATH] <key>")
		os.Exit(1)
	}

	store, err := openStore(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	value, ok, err := store.Get([]byte(fs.Arg(0)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Println("Key not found")
		return
	}
	fmt.Println(string(value))
}

func handleSet(args []string) {
	opts, fs := parseClientFlags("set", args)
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: kvcli set [--path PATH] <key> <value>")
		os.Exit(1)
	}

	store, err := openStore(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Put([]byte(fs.Arg(0)), []byte(fs.Arg(1))); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func handleDelete(args []string) {
	opts, fs := parseClientFlags("delete", args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: kvcli delete [--path PATH] <key>")
		os.Exit(1)
	}

	store, err := openStore(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Delete([]byte(fs.Arg(0))); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func handleStats(args []string) {
	opts, fs := parseClientFlags("stats", args)
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "usage: kvcli stats [--path PATH]")
		os.Exit(1)
	}

	store, err := openStore(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	stats := store.Stats()
	fmt.Printf("memtable entries: %d\n", stats.MemtableEntries)
	fmt.Printf("memtable bytes:   %d\n", stats.MemtableBytes)
	fmt.Printf("sstables:         %d\n", stats.SSTableCount)
	fmt.Printf("sstable bytes:    %d\n", stats.SSTableBytes)
}
