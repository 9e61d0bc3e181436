// Command seed writes a deterministic sample batch input to data/sample.txt.
//
// Usage:
//
//	go run ./cmd/seed
//
// The file mixes published test numbers, synthesized numbers that pass the
// checksum, and a handful of records that fail each hard check, so a local
// batch run exercises every classification path.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sterlixo/chilli-checker/internal/generator"
)

const outFile = "data/sample.txt"

// Published gateway test numbers with a far-future expiry.
var testRecords = []string{
	"4242424242424242|12|2030|123",
	"4111111111111111|12|2030|123",
	"5555555555554444|12|2030|123",
	"378282246310005|12|2030|1234",
}

// Records that end DEAD, one per failure path.
var rejectedRecords = []string{
	"4242424242424241|12|2030|123", // checksum
	"4242424242424242|13|2030|123", // month out of range
	"378282246310005|12|2030|123",  // amex needs a 4-digit cvv
	"4242424242424242|01|2000|123", // expired
	"not a record",                 // field count
	"1111222233334444|12|2030|123", // suspicious prefix
}

// Prefixes synthesized per network.
var prefixes = []string{"453201", "510510", "222300", "371449", "601100", "353011"}

func main() {
	g := generator.NewSeeded(42) // deterministic seed for reproducibility

	var lines []string
	lines = append(lines, testRecords...)
	for _, p := range prefixes {
		recs, err := g.Generate(p, 5, generator.Options{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate %s: %v\n", p, err)
			os.Exit(1)
		}
		lines = append(lines, recs...)
	}
	lines = append(lines, rejectedRecords...)

	if err := os.MkdirAll(filepath.Dir(outFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir error: %v\n", err)
		os.Exit(1)
	}
	f, err := os.Create(outFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "write error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d records to %s\n", len(lines), outFile)
}
