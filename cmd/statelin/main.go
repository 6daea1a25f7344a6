// Command statelin drives the worked-example queue specification standalone
// and prints its report, the way cabi-testgen drives its generator from a
// handful of flags with no surrounding service.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"statelin/driver"
	"statelin/examples/queue"
	"statelin/report"
)

var (
	seedflag      = flag.Int64("s", 0, "Random seed (0 picks a wall-clock seed)")
	numtestsflag  = flag.Int("n", 200, "Number of programs to try")
	threadsflag   = flag.Int("threads", 2, "Number of parallel threads to generate")
	maxlenflag    = flag.Int("max-length", 0, "Max sequential/per-thread program length (0: size-driven)")
	maxsizeflag   = flag.Int("max-size", 100, "Max size parameter passed to argument generators")
	maxtriesflag  = flag.Int("max-tries", 3, "Retries before declaring a failing program real")
	buggyflag     = flag.Bool("buggy", false, "Run the deliberately buggy pop implementation")
	verboseflag   = flag.Bool("verbose", false, "Cross-check a failure against porcupine")
	visualizeflag = flag.String("visualize", "", "Write a porcupine HTML visualization of a failure to this path")
)

func usage(msg string) {
	if len(msg) > 0 {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	}
	fmt.Fprintf(os.Stderr, "usage: statelin [flags]\n\n")
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("statelin: ")
	flag.Parse()
	if flag.NArg() != 0 {
		usage("unknown extra arguments")
	}

	table := queue.Spec()
	if *buggyflag {
		table = queue.BuggySpec()
	}

	opts := []driver.Option{
		driver.WithSeed(*seedflag),
		driver.WithNumTests(*numtestsflag),
		driver.WithThreads(*threadsflag),
		driver.WithMaxLength(*maxlenflag),
		driver.WithMaxSize(*maxsizeflag),
		driver.WithMaxTries(*maxtriesflag),
		driver.WithVerbose(*verboseflag),
	}
	if *visualizeflag != "" {
		f, err := os.Create(*visualizeflag)
		if err != nil {
			log.Fatalf("opening -visualize output: %v", err)
		}
		defer f.Close()
		opts = append(opts, driver.WithVisualize(f))
	}

	result := driver.Run(table, opts...)
	if result.Passed {
		fmt.Printf("OK: %d programs passed (seed %d)\n", result.Attempts, result.Seed)
		return
	}

	fmt.Printf("FAILED after %d programs (seed %d)\n", result.Attempts, result.Seed)
	fmt.Println(report.FormatSummary(result.Failure.Program, false))
	fmt.Println(result.Failure.Report)
	if result.Failure.Cross != nil {
		fmt.Printf("porcupine cross-check: accepted=%v\n", result.Failure.Cross.Accepted)
	}
	os.Exit(1)
}
