package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rv32emu/rv32emu/api"
	"github.com/rv32emu/rv32emu/config"
	"github.com/rv32emu/rv32emu/debugger"
	"github.com/rv32emu/rv32emu/interp"
	"github.com/rv32emu/rv32emu/loader"
	"github.com/rv32emu/rv32emu/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

func main() {
	// Command-line flags
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		debugMode   = flag.Bool("debug", false, "Start in debugger mode")
		tuiMode     = flag.Bool("tui", false, "Use TUI (Text User Interface) debugger")
		apiServer   = flag.Bool("api-server", false, "Start HTTP API server mode")
		apiPort     = flag.Int("port", 8080, "API server port (used with -api-server)")
		maxCycles   = flag.Uint64("max-cycles", 1000000, "Maximum instructions before halt")
		stackSize   = flag.Uint("stack-size", 65536, "Stack size in bytes")
		verboseMode = flag.Bool("verbose", false, "Verbose output")

		// Tracing and statistics flags
		enableTrace    = flag.Bool("trace", false, "Enable execution trace")
		traceFile      = flag.String("trace-file", "", "Trace output file (default: trace.log in log dir)")
		traceFilter    = flag.String("trace-filter", "", "Filter trace by registers (comma-separated, e.g., x1,x2,pc)")
		enableMemTrace = flag.Bool("mem-trace", false, "Enable memory access trace")
		memTraceFile   = flag.String("mem-trace-file", "", "Memory trace output file (default: memtrace.log)")
		enableStats    = flag.Bool("stats", false, "Enable performance statistics")
		statsFile      = flag.String("stats-file", "", "Statistics output file (default: stats.json)")
		statsFormat    = flag.String("stats-format", "json", "Statistics format (json, csv, html)")

		// Additional diagnostic modes
		enableCoverage      = flag.Bool("coverage", false, "Enable code coverage tracking")
		coverageFile        = flag.String("coverage-file", "", "Coverage output file (default: coverage.txt)")
		coverageFormat      = flag.String("coverage-format", "text", "Coverage format (text, json)")
		enableStackTrace    = flag.Bool("stack-trace", false, "Enable stack operation tracing")
		stackTraceFile      = flag.String("stack-trace-file", "", "Stack trace output file (default: stack_trace.txt)")
		stackTraceFormat    = flag.String("stack-trace-format", "text", "Stack trace format (text, json)")
		stackGuard          = flag.Bool("stack-guard", false, "Halt execution if the stack pointer overflows its segment")
		enableRegisterTrace = flag.Bool("register-trace", false, "Enable register access pattern tracing")
		registerTraceFile   = flag.String("register-trace-file", "", "Register trace output file (default: register_trace.txt)")
		registerTraceFormat = flag.String("register-trace-format", "text", "Register trace format (text, json)")

		// Symbol dump options
		dumpSymbols = flag.Bool("dump-symbols", false, "Dump symbol table and exit")
		symbolsFile = flag.String("symbols-file", "", "Symbol dump output file (default: stdout)")
	)

	flag.Parse()

	// Show version
	if *showVersion {
		fmt.Printf("RV32I Emulator %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	// Show help
	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// Start API server mode if requested
	if *apiServer {
		server := api.NewServer(*apiPort)

		// Setup graceful shutdown
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		// Create shutdown function with sync.Once to ensure it runs only once.
		// This prevents race conditions between the signal handler and the
		// process monitor both firing.
		var shutdownOnce sync.Once
		performShutdown := func() {
			shutdownOnce.Do(func() {
				fmt.Println("\nShutting down API server...")

				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
					os.Exit(1)
				}

				fmt.Println("API server stopped")
				os.Exit(0)
			})
		}

		// Start process monitor to detect parent death (frontend crash/force-quit)
		// so the backend doesn't linger as an orphan.
		monitor := api.NewProcessMonitor(performShutdown)
		monitor.Start()

		go func() {
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "API server error: %v\n", err)
				os.Exit(1)
			}
		}()

		<-sigChan
		performShutdown()
	}

	// Require an ELF file for emulator mode
	if flag.NArg() == 0 {
		printHelp()
		os.Exit(0)
	}

	elfFile := flag.Arg(0)
	f, err := os.Open(elfFile) // #nosec G304 -- user-specified ELF path from CLI argument
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", elfFile)
		os.Exit(1)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close ELF file: %v\n", cerr)
		}
	}()

	if *verboseMode {
		fmt.Printf("Loading ELF file: %s\n", elfFile)
	}

	regs := vm.NewRegisters()
	mem := vm.NewMemory(vm.DefaultMemorySize)
	machine := interp.New(regs, mem)

	result, err := loader.LoadELF(f, mem)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ELF: %v\n", err)
		os.Exit(1)
	}

	// Reject absurd stack sizes. The value is only reported in verbose
	// output; the stack top is always vm.DefaultStackTop.
	const maxStackSize = 0x10000000 // 256MB reasonable maximum
	if *stackSize > maxStackSize {
		fmt.Fprintf(os.Stderr, "Error: stack size %d exceeds maximum allowed %d\n", *stackSize, maxStackSize)
		os.Exit(1)
	}
	stackTop := uint32(vm.DefaultStackTop)
	loader.InitStack(regs, stackTop)
	regs.PC = result.EntryPoint

	symbols := result.Symbols
	sourceMap := make(map[uint32]string, len(symbols))
	for name, addr := range symbols {
		sourceMap[addr] = name
	}

	if *verboseMode {
		fmt.Printf("Entry point: 0x%08X\n", result.EntryPoint)
		fmt.Printf("Stack top: 0x%08X (%d bytes)\n", stackTop, *stackSize)
		fmt.Printf("Symbols: %d defined\n", len(symbols))
	}

	// Handle symbol dump if requested
	if *dumpSymbols {
		if err := dumpSymbolTable(symbols, *symbolsFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error dumping symbols: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Setup tracing and statistics
	if *enableTrace {
		tracePath := *traceFile
		if tracePath == "" {
			tracePath = filepath.Join(config.GetLogPath(), "trace.log")
		}

		traceWriter, err := os.Create(tracePath) // #nosec G304 -- user-specified trace output path
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating trace file: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			if err := traceWriter.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close trace file: %v\n", err)
			}
		}()

		machine.ExecutionTrace = vm.NewExecutionTrace(traceWriter)
		machine.ExecutionTrace.Start()

		if *traceFilter != "" {
			regsList := strings.Split(*traceFilter, ",")
			machine.ExecutionTrace.SetFilterRegisters(regsList)
		}

		if *verboseMode {
			fmt.Printf("Execution trace enabled: %s\n", tracePath)
		}
	}

	if *enableMemTrace {
		memTracePath := *memTraceFile
		if memTracePath == "" {
			memTracePath = filepath.Join(config.GetLogPath(), "memtrace.log")
		}

		memTraceWriter, err := os.Create(memTracePath) // #nosec G304 -- user-specified memory trace output path
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory trace file: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			if err := memTraceWriter.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close memory trace file: %v\n", err)
			}
		}()

		machine.MemoryTrace = vm.NewMemoryTrace(memTraceWriter)
		machine.MemoryTrace.Start()

		if *verboseMode {
			fmt.Printf("Memory trace enabled: %s\n", memTracePath)
		}
	}

	if *enableStats {
		machine.Stats = vm.NewPerformanceStatistics()
		machine.Stats.Start()

		if *verboseMode {
			fmt.Println("Performance statistics enabled")
		}
	}

	if *enableCoverage {
		covPath := *coverageFile
		if covPath == "" {
			ext := "txt"
			if *coverageFormat == "json" {
				ext = "json"
			}
			covPath = filepath.Join(config.GetLogPath(), "coverage."+ext)
		}

		covWriter, err := os.Create(covPath) // #nosec G304 -- user-specified coverage output path
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating coverage file: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			if err := covWriter.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close coverage file: %v\n", err)
			}
		}()

		machine.CodeCoverage = vm.NewCodeCoverage(covWriter)
		machine.CodeCoverage.LoadSymbols(symbols)
		machine.CodeCoverage.Start()

		if *verboseMode {
			fmt.Printf("Code coverage enabled: %s\n", covPath)
		}
	}

	// Stack guard requires stack trace tracking even without an output file.
	if *enableStackTrace || *stackGuard {
		var stWriter *os.File
		var stPath string

		if *enableStackTrace {
			stPath = *stackTraceFile
			if stPath == "" {
				ext := "txt"
				if *stackTraceFormat == "json" {
					ext = "json"
				}
				stPath = filepath.Join(config.GetLogPath(), "stack_trace."+ext)
			}

			var err error
			stWriter, err = os.Create(stPath) // #nosec G304 -- user-specified stack trace output path
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating stack trace file: %v\n", err)
				os.Exit(1)
			}
			defer func() {
				if err := stWriter.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close stack trace file: %v\n", err)
				}
			}()
		}

		machine.StackTrace = vm.NewStackTrace(stWriter, 0, stackTop)
		machine.StackTrace.Start(stackTop)

		if *stackGuard {
			machine.StackTrace.HaltOnOverflow = true
			if *verboseMode {
				fmt.Println("Stack guard enabled: execution will halt if SP overflows its segment")
			}
		}

		if *verboseMode && *enableStackTrace {
			fmt.Printf("Stack trace enabled: %s\n", stPath)
		}
	}

	if *enableRegisterTrace {
		rtPath := *registerTraceFile
		if rtPath == "" {
			ext := "txt"
			if *registerTraceFormat == "json" {
				ext = "json"
			}
			rtPath = filepath.Join(config.GetLogPath(), "register_trace."+ext)
		}

		rtWriter, err := os.Create(rtPath) // #nosec G304 -- user-specified register trace output path
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating register trace file: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			if err := rtWriter.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close register trace file: %v\n", err)
			}
		}()

		machine.RegisterTrace = vm.NewRegisterTrace(rtWriter)
		machine.RegisterTrace.LoadSymbols(symbols)
		machine.RegisterTrace.Start()

		if *verboseMode {
			fmt.Printf("Register trace enabled: %s\n", rtPath)
		}
	}

	// Run in appropriate mode
	if *debugMode || *tuiMode {
		dbg := debugger.NewDebugger(machine)
		dbg.LoadSymbols(symbols)
		dbg.LoadSourceMap(sourceMap)

		if *tuiMode {
			if err := debugger.RunTUI(dbg); err != nil {
				fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
				os.Exit(1)
			}
		} else {
			fmt.Println("RV32I Debugger - Type 'help' for commands")
			fmt.Printf("Program loaded: %s\n", elfFile)
			fmt.Println()

			if err := debugger.RunCLI(dbg); err != nil {
				fmt.Fprintf(os.Stderr, "Debugger error: %v\n", err)
				os.Exit(1)
			}
		}
	} else {
		// Direct execution mode
		if *verboseMode {
			fmt.Println("\nStarting execution...")
			fmt.Println("----------------------------------------")
		}

		if _, runErr := machine.Run(*maxCycles); runErr != nil {
			fmt.Fprintf(os.Stderr, "\nRuntime error at PC=0x%08X: %v\n", machine.Regs.PC, runErr)
			os.Exit(1)
		}

		if *verboseMode {
			fmt.Println("\n----------------------------------------")
			fmt.Println("Execution complete")
			fmt.Printf("Exit code: %d\n", machine.ExitCode)
			fmt.Printf("Instructions executed: %d\n", machine.Instructions)
		}

		// Flush traces and export statistics
		if machine.ExecutionTrace != nil {
			if err := machine.ExecutionTrace.Flush(); err != nil {
				fmt.Fprintf(os.Stderr, "Error flushing execution trace: %v\n", err)
			}
			if *verboseMode {
				fmt.Printf("Execution trace written (%d entries)\n", len(machine.ExecutionTrace.GetEntries()))
			}
		}

		if machine.MemoryTrace != nil {
			if err := machine.MemoryTrace.Flush(); err != nil {
				fmt.Fprintf(os.Stderr, "Error flushing memory trace: %v\n", err)
			}
			if *verboseMode {
				fmt.Printf("Memory trace written (%d entries)\n", len(machine.MemoryTrace.GetEntries()))
			}
		}

		if machine.Stats != nil {
			machine.Stats.Finalize()

			statPath := *statsFile
			if statPath == "" {
				ext := "json"
				if *statsFormat == "csv" {
					ext = "csv"
				} else if *statsFormat == "html" {
					ext = "html"
				}
				statPath = filepath.Join(config.GetLogPath(), "stats."+ext)
			}

			statsWriter, err := os.Create(statPath) // #nosec G304 -- user-specified stats output path
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating statistics file: %v\n", err)
			} else {
				defer func() {
					if err := statsWriter.Close(); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: failed to close statistics file: %v\n", err)
					}
				}()

				switch *statsFormat {
				case "json":
					err = machine.Stats.ExportJSON(statsWriter)
				case "csv":
					err = machine.Stats.ExportCSV(statsWriter)
				case "html":
					err = machine.Stats.ExportHTML(statsWriter)
				default:
					err = machine.Stats.ExportJSON(statsWriter)
				}

				if err != nil {
					fmt.Fprintf(os.Stderr, "Error exporting statistics: %v\n", err)
				} else if *verboseMode {
					fmt.Printf("Statistics exported: %s\n", statPath)
				}
			}

			if *verboseMode {
				fmt.Println()
				fmt.Println(machine.Stats.String())
			}
		}

		if machine.CodeCoverage != nil {
			switch *coverageFormat {
			case "json":
				if err := machine.CodeCoverage.ExportJSON(machine.CodeCoverage.Writer); err != nil {
					fmt.Fprintf(os.Stderr, "Error exporting coverage: %v\n", err)
				}
			default:
				if err := machine.CodeCoverage.Flush(); err != nil {
					fmt.Fprintf(os.Stderr, "Error flushing coverage: %v\n", err)
				}
			}
			if *verboseMode {
				fmt.Println()
				fmt.Println(machine.CodeCoverage.String())
			}
		}

		if machine.StackTrace != nil {
			switch *stackTraceFormat {
			case "json":
				if err := machine.StackTrace.ExportJSON(machine.StackTrace.Writer); err != nil {
					fmt.Fprintf(os.Stderr, "Error exporting stack trace: %v\n", err)
				}
			default:
				if err := machine.StackTrace.Flush(); err != nil {
					fmt.Fprintf(os.Stderr, "Error flushing stack trace: %v\n", err)
				}
			}
			if *verboseMode {
				fmt.Println()
				fmt.Println(machine.StackTrace.String())
			}
		}

		if machine.RegisterTrace != nil {
			switch *registerTraceFormat {
			case "json":
				if err := machine.RegisterTrace.ExportJSON(machine.RegisterTrace.Writer); err != nil {
					fmt.Fprintf(os.Stderr, "Error exporting register trace: %v\n", err)
				}
			default:
				if err := machine.RegisterTrace.Flush(); err != nil {
					fmt.Fprintf(os.Stderr, "Error flushing register trace: %v\n", err)
				}
			}
			if *verboseMode {
				fmt.Println()
				fmt.Println(machine.RegisterTrace.String())
			}
		}

		os.Exit(int(machine.ExitCode))
	}
}

func printHelp() {
	fmt.Printf(`RV32I Emulator %s

Usage: rv32emu [options] <elf-file>
       rv32emu -api-server [-port N]

Options:
  -help              Show this help message
  -version           Show version information
  -api-server        Start HTTP API server mode (no ELF file required)
  -port N            API server port (default: 8080, used with -api-server)
  -debug             Start in debugger mode (CLI)
  -tui               Start in TUI debugger mode
  -max-cycles N      Set maximum instructions to execute (default: 1000000)
  -stack-size N      Set stack size in bytes (default: 65536)
  -verbose           Enable verbose output

Symbol Options:
  -dump-symbols      Dump symbol table and exit
  -symbols-file FILE Symbol dump output file (default: stdout)

Tracing & Performance Options:
  -trace             Enable execution trace
  -trace-file FILE   Trace output file (default: trace.log in log dir)
  -trace-filter REGS Filter trace by registers (e.g., x1,x2,pc)
  -mem-trace         Enable memory access trace
  -mem-trace-file F  Memory trace file (default: memtrace.log)
  -stats             Enable performance statistics
  -stats-file FILE   Statistics output file (default: stats.json)
  -stats-format FMT  Statistics format: json, csv, html (default: json)

Diagnostic Modes:
  -coverage          Enable code coverage tracking
  -coverage-file F   Coverage output file (default: coverage.txt)
  -coverage-format   Coverage format: text, json (default: text)
  -stack-trace       Enable stack operation tracing
  -stack-trace-file  Stack trace file (default: stack_trace.txt)
  -stack-trace-format Stack trace format: text, json (default: text)
  -stack-guard       Halt execution if the stack pointer overflows its segment
  -register-trace    Enable register access pattern tracing
  -register-trace-file Register trace file (default: register_trace.txt)
  -register-trace-format Register trace format: text, json (default: text)

Examples:
  # Start API server for frontends
  rv32emu -api-server
  rv32emu -api-server -port 3000

  # Run a program directly
  rv32emu examples/hello.elf

  # Run with debugger
  rv32emu -debug examples/fibonacci.elf

  # Run with TUI debugger
  rv32emu -tui examples/bubble_sort.elf

  # Run with custom instruction limit
  rv32emu -max-cycles 5000000 program.elf

  # Run with execution trace
  rv32emu -trace -trace-filter "x1,x2,pc" examples/factorial.elf

  # Run with performance statistics
  rv32emu -stats -stats-format html program.elf

  # Run with all monitoring enabled
  rv32emu -trace -mem-trace -stats -verbose program.elf

  # Run with code coverage
  rv32emu -coverage -verbose program.elf

  # Run with stack trace to debug stack issues
  rv32emu -stack-trace program.elf

  # Run with register trace to analyze register usage patterns
  rv32emu -register-trace program.elf

  # Combine multiple diagnostic modes
  rv32emu -coverage -stack-trace -register-trace program.elf

  # Dump symbol table
  rv32emu -dump-symbols program.elf
  rv32emu -dump-symbols -symbols-file symbols.txt program.elf

Debugger Commands (when in -debug mode):
  run, r             Start/restart program execution
  continue, c        Continue execution
  step, s            Execute single instruction
  next, n            Step over function calls
  break ADDR         Set breakpoint at address/label
  info registers     Show all registers
  print EXPR         Evaluate and print expression
  help               Show debugger help
`, Version)
}

// dumpSymbolTable outputs the symbol table in a readable format.
func dumpSymbolTable(symbols map[string]uint32, filename string) error {
	var writer *os.File
	var err error

	if filename == "" {
		writer = os.Stdout
	} else {
		writer, err = os.Create(filename) // #nosec G304 -- user-specified symbol output path
		if err != nil {
			return fmt.Errorf("failed to create symbol file: %w", err)
		}
		defer func() {
			if cerr := writer.Close(); cerr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close symbol file: %v\n", cerr)
			}
		}()
	}

	if len(symbols) == 0 {
		_, _ = fmt.Fprintln(writer, "No symbols defined")
		return nil
	}

	_, _ = fmt.Fprintln(writer, "Symbol Table")
	_, _ = fmt.Fprintln(writer, "============")
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "%-30s %s\n", "Name", "Address")
	_, _ = fmt.Fprintln(writer, "--------------------------------------------------------------------------------")

	type symbolEntry struct {
		name string
		addr uint32
	}
	entries := make([]symbolEntry, 0, len(symbols))
	for name, addr := range symbols {
		entries = append(entries, symbolEntry{name, addr})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].addr < entries[j].addr
	})

	for _, entry := range entries {
		_, _ = fmt.Fprintf(writer, "%-30s 0x%08X\n", entry.name, entry.addr)
	}

	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "Total symbols: %d\n", len(entries))

	return nil
}
