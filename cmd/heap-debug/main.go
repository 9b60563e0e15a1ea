package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/vellum-lang/vellum/internal/cli"
	"github.com/vellum-lang/vellum/internal/heap"
	"github.com/vellum-lang/vellum/internal/region"
)

var usageInfo = cli.CommandInfo{
	Name:        "heap-debug",
	Usage:       "heap-debug [OPTIONS]",
	Description: "drives a heap.Heap through a scripted allocate/release workload and reports its final state",
	Examples: []string{
		"heap-debug --ops 1000 --max-alloc 4096   # Larger scripted workload",
		"heap-debug --dump --verbose              # Show every operation and the final layout",
		"heap-debug --json                        # Machine-readable summary",
		"heap-debug --config run.json             # Load verbose/debug/work-dir settings from a file",
	},
	Flags: []cli.FlagInfo{
		{Name: "ops", Usage: "number of allocate/release operations to run in the scripted workload", Default: "200"},
		{Name: "max-alloc", Usage: "maximum single allocation size in bytes", Default: "512"},
		{Name: "region-size", Usage: "maximum region size in bytes", Default: "1048576"},
		{Name: "seed", Usage: "PRNG seed for the scripted workload", Default: "1"},
		{Name: "strict", Usage: "run a full consistency check after every mutation", Default: "true"},
		{Name: "dump", Usage: "print the implicit and free lists after the run; written under --config's work_dir if set"},
		{Name: "verbose", Usage: "verbose logging of each operation"},
		{Name: "mmap", Usage: "mmap-backed regions are not supported by this tool; setting this flag exits with an error"},
		{Name: "min-version", Usage: "fail unless the tool's own version is at least this semver"},
		{Name: "config", Usage: "load verbose/debug/work-dir settings from a JSON config file"},
		{Name: "save-config", Usage: "write the effective config to this path and exit"},
		{Name: "version", Short: "v", Usage: "show version information"},
		{Name: "help", Short: "h", Usage: "show help information"},
		{Name: "json", Usage: "output results in JSON format"},
	},
}

func main() {
	var (
		showVersion    = flag.Bool("version", false, "show version information")
		showHelp       = flag.Bool("help", false, "show help information")
		jsonOutput     = flag.Bool("json", false, "output results in JSON format")
		minVersion     = flag.String("min-version", "", "fail unless the tool's own version is at least this semver")
		regionSize     = flag.Uint64("region-size", 1<<20, "maximum region size in bytes")
		opCount        = flag.Int("ops", 200, "number of allocate/release operations to run in the scripted workload")
		maxAlloc       = flag.Uint64("max-alloc", 512, "maximum single allocation size in bytes")
		seed           = flag.Int64("seed", 1, "PRNG seed for the scripted workload")
		strictCheck    = flag.Bool("strict", true, "run a full consistency check after every mutation")
		dumpHeap       = flag.Bool("dump", false, "print the implicit and free lists after the run")
		verbose        = flag.Bool("verbose", false, "verbose logging of each operation")
		mmapRegion     = flag.Bool("mmap", false, "mmap-backed regions are not supported by this tool; setting this flag exits with an error")
		configPath     = flag.String("config", "", "load verbose/debug/work-dir settings from a JSON config file")
		saveConfigPath = flag.String("save-config", "", "write the effective config to this path and exit")
	)

	flag.Usage = func() { cli.PrintCommandUsage("heap-debug", usageInfo) }

	flag.Parse()

	if *showHelp {
		flag.Usage()
		cli.ExitWithCode(0, "")
	}

	if *showVersion {
		cli.PrintVersion("heap-debug", *jsonOutput)
		cli.ExitWithCode(0, "")
	}

	cfg, err := cli.LoadConfig(*configPath)
	if err != nil {
		cli.ExitWithError("%v", err)
	}

	cfg.Verbose = cfg.Verbose || *verbose

	if *saveConfigPath != "" {
		if err := cfg.SaveConfig(*saveConfigPath); err != nil {
			cli.ExitWithError("%v", err)
		}

		cli.ExitWithCode(0, "config written to %s", *saveConfigPath)
	}

	if *minVersion != "" {
		if err := cli.CheckMinVersion(*minVersion); err != nil {
			cli.ExitWithError("%v", err)
		}
	}

	if *mmapRegion {
		cli.ExitWithError("mmap-backed regions are not supported by heap-debug; rerun without --mmap")
	}

	run := &debugRun{
		logger:     cli.NewLogger(cfg.Verbose, cfg.Debug),
		opCount:    *opCount,
		maxAlloc:   uintptr(*maxAlloc),
		regionSize: uintptr(*regionSize),
		seed:       *seed,
		strict:     *strictCheck,
		dump:       *dumpHeap,
		jsonOutput: *jsonOutput,
		workDir:    cfg.WorkDir,
	}

	cli.HandleError(run.execute(), run.logger)
}

type debugRun struct {
	logger     *cli.Logger
	opCount    int
	maxAlloc   uintptr
	regionSize uintptr
	seed       int64
	strict     bool
	dump       bool
	jsonOutput bool
	workDir    string
}

// summary is the JSON-serializable report of a scripted run, mirroring
// the teacher's ProfileResult pattern for cmd-level result reporting.
type summary struct {
	Operations   int    `json:"operations"`
	Allocations  int    `json:"allocations"`
	Releases     int    `json:"releases"`
	DoubleFrees  int    `json:"double_frees_observed"`
	Corruptions  int    `json:"corruptions_observed"`
	FinalHeapLen int    `json:"final_heap_size_bytes"`
	CheckResult  string `json:"final_check_result"`
}

// fleetObserver is the heap.Observer used for this run: it counts
// events so the summary can report them, and logs each one through
// cli.Logger as a warning or error, which is printed whether or not
// verbose output is enabled.
type fleetObserver struct {
	logger      *cli.Logger
	doubleFrees int
	corruptions []error
}

func (o *fleetObserver) OnDoubleFree(off uintptr) {
	o.doubleFrees++
	o.logger.Warn("double free observed at block offset %d", off)
}

func (o *fleetObserver) OnCorruption(err error) {
	o.corruptions = append(o.corruptions, err)
	o.logger.Error("heap corruption detected: %v", err)
}

func (r *debugRun) execute() error {
	reg := region.NewBumpRegion(r.regionSize)

	obs := &fleetObserver{logger: r.logger}
	h := heap.New(reg, heap.WithObserver(obs), heap.WithStrictCheck(r.strict))

	rng := rand.New(rand.NewSource(r.seed))

	var live []unsafe.Pointer

	s := summary{Operations: r.opCount}

	for i := 0; i < r.opCount; i++ {
		// Bias toward allocation early so the live set has something to
		// free; once it grows large, bias toward release.
		allocate := len(live) == 0 || (rng.Intn(3) != 0 && len(live) < 64)

		if allocate {
			size := uintptr(rng.Intn(int(r.maxAlloc))) + 1

			ptr, err := h.Allocate(size)
			if err != nil {
				r.logger.Warn("allocate(%d) rejected: %v", size, err)
				continue
			}

			r.logger.Info("allocate(%d) -> %p", size, ptr)
			live = append(live, ptr)
			s.Allocations++
		} else {
			idx := rng.Intn(len(live))
			ptr := live[idx]
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]

			if err := h.Release(ptr); err != nil {
				r.logger.Warn("release(%p) failed: %v", ptr, err)
				continue
			}

			r.logger.Info("release(%p)", ptr)
			s.Releases++
		}
	}

	checkErr := h.Check(true)

	s.DoubleFrees = obs.doubleFrees
	s.Corruptions = len(obs.corruptions)
	s.FinalHeapLen = int(reg.CurrentSize())

	if checkErr != nil {
		s.CheckResult = checkErr.Error()
	} else {
		s.CheckResult = "ok"
	}

	if r.dump {
		if r.workDir != "" && r.workDir != "." {
			path := filepath.Join(r.workDir, "heap-dump.txt")

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create dump file: %w", err)
			}

			h.Dump(f)
			f.Close()
			r.logger.Info("wrote heap dump to %s", path)
		} else {
			h.Dump(os.Stdout)
		}
	}

	if r.jsonOutput {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}

		fmt.Println(string(data))
	} else {
		fmt.Printf("operations:   %d (alloc=%d release=%d)\n", s.Operations, s.Allocations, s.Releases)
		fmt.Printf("double frees: %d\n", s.DoubleFrees)
		fmt.Printf("corruptions:  %d\n", s.Corruptions)
		fmt.Printf("final check:  %s\n", s.CheckResult)
	}

	if checkErr != nil {
		return checkErr
	}

	return nil
}
