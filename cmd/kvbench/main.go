package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/dd0wney/kvlsm/pkg/logging"
	"github.com/dd0wney/kvlsm/pkg/lsm"
)

func main() {
	writes := flag.Int("writes", 100000, "Number of writes")
	reads := flag.Int("reads", 10000, "Number of reads")
	valueSize := flag.Int("value-size", 1024, "Value size in bytes")
	flag.Parse()

	fmt.Printf("kvlsm Storage Benchmark\n")
	fmt.Printf("========================================\n\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Writes: %d\n", *writes)
	fmt.Printf("  Reads: %d\n", *reads)
	fmt.Printf("  Value Size: %d bytes\n\n", *valueSize)

	os.RemoveAll("./data/kvbench")

	fmt.Printf("Initializing store...\n")
	store, err := lsm.Open("./data/kvbench", lsm.Options{
		CreateIfMissing:        true,
		MemtableFlushThreshold: 4 * 1024 * 1024,
		Logger:                 logging.NewNopLogger(),
	})
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	fmt.Printf("\nBenchmark 1: Sequential Writes\n")
	value := make([]byte, *valueSize)
	for i := range value {
		value[i] = byte(rand.Intn(256))
	}

	start := time.Now()
	for i := 0; i < *writes; i++ {
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, uint64(i))

		if err := store.Put(key, value); err != nil {
			log.Fatalf("Failed to write: %v", err)
		}

		if (i+1)%10000 == 0 {
			fmt.Printf("  Written %d entries...\n", i+1)
		}
	}

	duration := time.Since(start)
	throughput := float64(*writes) / duration.Seconds()
	avgLatency := duration.Microseconds() / int64(*writes)

	fmt.Printf("Completed %d writes in %v\n", *writes, duration)
	fmt.Printf("  Average: %dus per write\n", avgLatency)
	fmt.Printf("  Throughput: %.0f writes/sec\n", throughput)
	fmt.Printf("  Data written: %.2f MB\n", float64(*writes**valueSize)/(1024*1024))

	fmt.Printf("\nBenchmark 2: Random Reads\n")
	start = time.Now()
	found := 0

	for i := 0; i < *reads; i++ {
		randomIdx := rand.Intn(*writes)
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, uint64(randomIdx))

		if _, ok, err := store.Get(key); err != nil {
			log.Fatalf("Failed to read: %v", err)
		} else if ok {
			found++
		}

		if (i+1)%1000 == 0 {
			fmt.Printf("  Read %d entries...\n", i+1)
		}
	}

	duration = time.Since(start)
	throughput = float64(*reads) / duration.Seconds()
	avgLatency = duration.Microseconds() / int64(*reads)

	fmt.Printf("Completed %d reads in %v\n", *reads, duration)
	fmt.Printf("  Found: %d/%d (%.1f%%)\n", found, *reads, float64(found)*100/float64(*reads))
	fmt.Printf("  Average: %dus per read\n", avgLatency)
	fmt.Printf("  Throughput: %.0f reads/sec\n", throughput)

	fmt.Printf("\nBenchmark 3: Random Updates\n")
	updateCount := *writes / 10
	newValue := make([]byte, *valueSize)
	for i := range newValue {
		newValue[i] = byte(0xFF)
	}

	start = time.Now()
	for i := 0; i < updateCount; i++ {
		randomIdx := rand.Intn(*writes)
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, uint64(randomIdx))

		if err := store.Put(key, newValue); err != nil {
			log.Fatalf("Failed to update: %v", err)
		}

		if (i+1)%1000 == 0 {
			fmt.Printf("  Updated %d entries...\n", i+1)
		}
	}

	duration = time.Since(start)
	throughput = float64(updateCount) / duration.Seconds()
	avgLatency = duration.Microseconds() / int64(updateCount)

	fmt.Printf("Completed %d updates in %v\n", updateCount, duration)
	fmt.Printf("  Average: %dus per update\n", avgLatency)
	fmt.Printf("  Throughput: %.0f updates/sec\n", throughput)

	fmt.Printf("\nBenchmark 4: Random Deletions\n")
	deleteCount := *writes / 20
	start = time.Now()

	for i := 0; i < deleteCount; i++ {
		randomIdx := rand.Intn(*writes)
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, uint64(randomIdx))

		if err := store.Delete(key); err != nil {
			log.Fatalf("Failed to delete: %v", err)
		}

		if (i+1)%1000 == 0 {
			fmt.Printf("  Deleted %d entries...\n", i+1)
		}
	}

	duration = time.Since(start)
	throughput = float64(deleteCount) / duration.Seconds()
	avgLatency = duration.Microseconds() / int64(deleteCount)

	fmt.Printf("Completed %d deletions in %v\n", deleteCount, duration)
	fmt.Printf("  Average: %dus per deletion\n", avgLatency)
	fmt.Printf("  Throughput: %.0f deletions/sec\n", throughput)

	if err := store.Flush(); err != nil {
		log.Fatalf("Failed to flush: %v", err)
	}

	fmt.Printf("\nFinal Store Statistics\n")
	fmt.Printf("================================\n")
	stats := store.Stats()
	fmt.Printf("  Memtable entries: %d\n", stats.MemtableEntries)
	fmt.Printf("  Memtable bytes:   %d\n", stats.MemtableBytes)
	fmt.Printf("  SSTables:         %d\n", stats.SSTableCount)
	fmt.Printf("  SSTable bytes:    %d\n", stats.SSTableBytes)

	fmt.Printf("\nBenchmark complete!\n")
}
