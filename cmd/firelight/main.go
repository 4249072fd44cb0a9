// Command firelight imports and plays interactive stories.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/solsword/firelight/pkg/firelight"
)

func main() {
	var (
		dbPath    = flag.String("db", "firelight.db", "SQLite database path")
		force     = flag.Bool("force", false, "Replace existing stories on import")
		play      = flag.String("play", "", "Play the named story")
		reader    = flag.String("reader", "reader", "Reader name for telling persistence")
		evalStr   = flag.String("e", "", "Evaluate a macro expression and exit")
		list      = flag.Bool("list", false, "List stored stories")
		highlight = flag.String("highlight", "bracket", "Option highlighting: none, bracket, or color")
		noColor   = flag.Bool("no-color", false, "Disable colored output")
		verbose   = flag.Bool("v", false, "Verbose logging")
	)

	flag.Parse()

	if *noColor {
		color.NoColor = true
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	rt, err := firelight.New(
		firelight.WithSQLiteStore(*dbPath),
		firelight.WithHighlight(*highlight),
		firelight.WithLogger(log),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	if *evalStr != "" {
		v, err := rt.EvalExpr(*evalStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(v.Repr())
		return
	}

	// Positional arguments are story files to import.
	for _, path := range flag.Args() {
		s, err := rt.ImportStoryFile(path, *force)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error importing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Imported '%s' by %s.\n", s.Title, s.Author)
	}

	if *list {
		titles, err := rt.ListStories()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing stories: %v\n", err)
			os.Exit(1)
		}
		for _, t := range titles {
			fmt.Println(t)
		}
		return
	}

	if *play != "" {
		if err := playStory(rt, *reader, *play); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(flag.Args()) == 0 {
		flag.Usage()
	}
}

// playStory runs the interactive loop: show the current node, read a
// decision, advance, repeat until the telling finishes.
func playStory(rt *firelight.Runtime, reader, title string) error {
	t, text, err := rt.Resume(reader, title)
	if err != nil {
		return err
	}

	heading := color.New(color.FgYellow, color.Bold)
	heading.Printf("%s", t.Story.Title)
	fmt.Printf(" by %s\n\n", t.Story.Author)
	fmt.Println(text)

	in := bufio.NewReader(os.Stdin)
	for t.Status() != "finished" {
		fmt.Print("\n> ")
		line, err := in.ReadString('\n')
		if err != nil {
			return nil
		}
		decision := strings.TrimSpace(line)
		if decision == "" {
			continue
		}
		if decision == "/quit/" {
			return nil
		}
		msgs, err := rt.Advance(t, decision)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(strings.Join(msgs, "\n\n"))
	}
	fmt.Println("\nThe End.")
	return nil
}
