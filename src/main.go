package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/engine"
	"github.com/dstrohschein/miniql/src/executor"
	"github.com/dstrohschein/miniql/src/helpers"
	"github.com/dstrohschein/miniql/src/settings"
)

func printUsage() {
	log.Println("miniql - an embedded single-file relational database")
	log.Println("\nUsage:")
	log.Println("  miniql [options]")
	log.Println("\nOptions:")
	flag.PrintDefaults()
}

func main() {
	args := settings.GetSettings()

	flag.StringVar(&args.DataFile, "datafile", args.DataFile, "path to the single-file database")
	flag.StringVar(&args.ConfigFile, "config", "", "path to a BSON config overlay")
	flag.IntVar(&args.MinDegree, "mindegree", args.MinDegree, "B-tree minimum degree")
	flag.BoolVar(&args.Verbose, "verbose", args.Verbose, "enable verbose logging")
	flag.Parse()
	settings.UpdateSettings(*args)

	if err := validateArguments(settings.GetSettings()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		printUsage()
		os.Exit(1)
	}

	if args.ConfigFile != "" {
		if _, err := helpers.LoadConfigOverlay(args.ConfigFile, nil); err != nil {
			log.Fatalf("failed to load config overlay: %v", err)
		}
	}

	args = settings.GetSettings()
	var eng *engine.Engine
	var err error
	if helpers.FileExists(args.DataFile, nil) {
		eng, err = engine.Open(args.DataFile, nil)
	} else {
		eng, err = engine.Create(args.DataFile, nil)
	}
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		fmt.Println("\nshutting down...")
		if err := eng.Close(); err != nil {
			log.Printf("error closing database: %v", err)
		}
		os.Exit(0)
	}()

	runREPL(eng)

	if err := eng.Close(); err != nil {
		log.Fatalf("error closing database: %v", err)
	}
}

// runREPL reads one statement per line from stdin until EOF, executing
// each against eng and printing its result.
func runREPL(eng *engine.Engine) {
	fmt.Println("miniql ready. Enter statements terminated by newline; Ctrl-D to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("miniql> ")
		if !scanner.Scan() {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		result, err := eng.Execute(text)
		if err != nil {
			fmt.Printf("internal error: %v\n", err)
			continue
		}
		printResult(result)
	}
}

func printResult(result *executor.QueryResult) {
	if !result.Success {
		fmt.Printf("error: %s\n", result.Message)
		return
	}
	if result.Data == nil {
		fmt.Println(result.Message)
		return
	}
	rows, err := result.Data.Materialize()
	if err != nil {
		fmt.Printf("error reading results: %v\n", err)
		return
	}
	for _, row := range rows {
		cols := make([]string, len(row.Values))
		for i, v := range row.Values {
			if i < len(result.Data.Fields) {
				if text, err := codec.Format(v, result.Data.Fields[i].Type); err == nil {
					cols[i] = text
					continue
				}
			}
			cols[i] = fmt.Sprintf("%v", v)
		}
		fmt.Println(strings.Join(cols, "\t"))
	}
	fmt.Printf("(%d rows)\n", len(rows))
}

func validateArguments(args *settings.Arguments) error {
	if args.DataFile == "" {
		return fmt.Errorf("a data file path is required")
	}
	if args.MinDegree < 2 {
		return fmt.Errorf("invalid minimum degree: %d (must be >= 2)", args.MinDegree)
	}
	if args.ConfigFile != "" {
		if _, err := os.Stat(args.ConfigFile); err != nil {
			return fmt.Errorf("could not access config file: %w", err)
		}
	}
	return nil
}
