// Command heapctl drives the blockheap allocator from the command line: it
// can run a scripted sequence of allocate/free/resize/zero-allocate
// operations, print free-list statistics, and watch a tunables file for
// live threshold changes.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"unsafe"

	"github.com/blockheap/blockheap/internal/allocator"
	"github.com/blockheap/blockheap/internal/cliutil"
	"github.com/blockheap/blockheap/internal/config"
)

func main() {
	var (
		showVersion bool
		jsonOutput  bool
		configFile  string
		initConfig  bool
		watch       bool
		script      string
		showStats   bool
	)

	flag.BoolVar(&showVersion, "version", false, "show version information")
	flag.BoolVar(&jsonOutput, "json", false, "output in JSON format")
	flag.StringVar(&configFile, "config", "blockheap.json", "tunables file path")
	flag.BoolVar(&initConfig, "init", false, "write a default tunables file")
	flag.BoolVar(&watch, "watch", false, "watch the tunables file and apply changes live")
	flag.StringVar(&script, "run", "", "comma-separated ops to run, e.g. alloc:100,zero:4:4096,free:0,resize:0:50")
	flag.BoolVar(&showStats, "stats", false, "print free-list statistics after running the script")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "heapctl drives the blockheap allocator for manual inspection.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s --init                                  # write blockheap.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --run alloc:100,alloc:300,free:0 --stats\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --watch                                 # live-reload the threshold\n", os.Args[0])
	}

	flag.Parse()

	if showVersion {
		cliutil.PrintVersion("heapctl", jsonOutput)
		return
	}

	if initConfig {
		if err := config.Save(configFile, config.Default()); err != nil {
			cliutil.ExitWithError("write config: %v", err)
		}

		fmt.Printf("wrote %s\n", configFile)

		return
	}

	t, err := config.Load(configFile)
	if err != nil {
		cliutil.ExitWithError("load config: %v", err)
	}

	t.Apply()

	if watch {
		w, err := config.NewWatcher(configFile)
		if err != nil {
			cliutil.ExitWithError("watch config: %v", err)
		}
		defer w.Close()

		fmt.Printf("watching %s for changes (current threshold: %d bytes), Ctrl-C to stop\n", configFile, allocator.MapThreshold())

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		return
	}

	if script != "" {
		if err := runScript(script); err != nil {
			cliutil.ExitWithError("run: %v", err)
		}
	}

	if showStats {
		printStats(allocator.GetStats(), jsonOutput)
	}
}

// runScript executes a comma-separated sequence of allocator operations,
// keeping every handle it allocates indexed by the order it was produced
// so later ops can reference it (e.g. "free:0" frees the first handle).
func runScript(script string) error {
	var handles []unsafe.Pointer

	for _, op := range strings.Split(script, ",") {
		fields := strings.Split(op, ":")
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "alloc":
			n, err := parseUint(fields, 1)
			if err != nil {
				return err
			}

			handles = append(handles, allocator.Allocate(n))
		case "zero":
			count, err := parseUint(fields, 1)
			if err != nil {
				return err
			}

			size, err := parseUint(fields, 2)
			if err != nil {
				return err
			}

			handles = append(handles, allocator.ZeroAllocate(count, size))
		case "free":
			idx, err := parseIndex(fields, 1, len(handles))
			if err != nil {
				return err
			}

			allocator.Free(handles[idx])
			handles[idx] = nil
		case "resize":
			idx, err := parseIndex(fields, 1, len(handles))
			if err != nil {
				return err
			}

			n, err := parseUint(fields, 2)
			if err != nil {
				return err
			}

			handles[idx] = allocator.Resize(handles[idx], n)
		default:
			return fmt.Errorf("unknown op %q", fields[0])
		}
	}

	return nil
}

func parseUint(fields []string, idx int) (uintptr, error) {
	if idx >= len(fields) {
		return 0, fmt.Errorf("missing argument %d in %q", idx, strings.Join(fields, ":"))
	}

	n, err := strconv.ParseUint(fields[idx], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", fields[idx], err)
	}

	return uintptr(n), nil
}

func parseIndex(fields []string, idx, handleCount int) (int, error) {
	n, err := parseUint(fields, idx)
	if err != nil {
		return 0, err
	}

	if int(n) >= handleCount {
		return 0, fmt.Errorf("handle index %d out of range (have %d)", n, handleCount)
	}

	return int(n), nil
}

func printStats(s allocator.Stats, jsonOutput bool) {
	if jsonOutput {
		fmt.Printf("{\"blocks\":%d,\"allocated_bytes\":%d,\"free_bytes\":%d,\"mapped_bytes\":%d}\n",
			s.Blocks, s.AllocatedBytes, s.FreeBytes, s.MappedBytes)

		return
	}

	fmt.Printf("blocks: %d (allocated=%d free=%d mapped=%d)\n", s.Blocks, s.AllocatedCount, s.FreeCount, s.MappedCount)
	fmt.Printf("bytes:  allocated=%d free=%d mapped=%d\n", s.AllocatedBytes, s.FreeBytes, s.MappedBytes)
}
