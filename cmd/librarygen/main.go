// librarygen inspects native type library databases and converts them
// into SQLite caches.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/tangpei1215/fusion/pkg/library"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	output := flag.String("o", "", "Output path for the SQLite cache")
	cache := flag.Bool("cache", false, "Convert the database into a SQLite cache")
	list := flag.Bool("list", false, "List every type in the database")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: librarygen [options] FILE\n\n")
		fmt.Fprintf(os.Stderr, "Inspects a library database and optionally builds its SQLite cache.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  librarygen playerglobal.db              # Print a summary\n")
		fmt.Fprintf(os.Stderr, "  librarygen -list playerglobal.db        # List every type\n")
		fmt.Fprintf(os.Stderr, "  librarygen -cache playerglobal.db       # Build playerglobal.sqlite\n")
		fmt.Fprintf(os.Stderr, "  librarygen -cache -o out.sqlite lib.db  # Build a named cache\n")
	}
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "Error: too many arguments\n")
		os.Exit(2)
	}
	input := args[0]

	reg, err := library.LoadDatabase(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *cache {
		dest := *output
		if dest == "" {
			dest = strings.TrimSuffix(input, filepath.Ext(input)) + ".sqlite"
		}
		if err := buildCache(reg, dest); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Cached %d types in %s\n", reg.Len(), dest)
		return
	}

	if *list {
		printTypes(reg)
		return
	}

	printSummary(input, reg)
}

func buildCache(reg *library.Registry, dest string) error {
	store, err := library.OpenStore(dest)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.PutAll(reg)
}

func printTypes(reg *library.Registry) {
	names := make([]string, 0, reg.Len())
	for _, d := range reg.All() {
		names = append(names, d.FullName.String())
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Println(n)
	}
}

func printSummary(input string, reg *library.Registry) {
	packages := make(map[string]int)
	for _, d := range reg.All() {
		packages[d.Package()]++
	}

	fmt.Printf("%s: %d types in %d packages\n", input, reg.Len(), len(packages))

	names := make([]string, 0, len(packages))
	for n := range packages {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		label := n
		if label == "" {
			label = "(toplevel)"
		}
		fmt.Printf("  %-40s %d\n", label, packages[n])
	}
}
