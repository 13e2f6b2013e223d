// Command triplit is a small interactive runner over the collection
// query engine, grounded on the teacher's cmd/datalog/main.go demo/
// interactive/single-query modes, adapted to this module's own query
// value and schema-registered demo dataset rather than a text query
// language (out of scope for this module).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/Adebesin-Cell/triplit/engine"
	"github.com/Adebesin-Cell/triplit/query"
	"github.com/Adebesin-Cell/triplit/schema"
	"github.com/Adebesin-Cell/triplit/storage"
	"github.com/Adebesin-Cell/triplit/triple"
)

func main() {
	var dbPath string
	var interactive bool
	var help bool
	var queryName string

	flag.StringVar(&dbPath, "db", "", "badger database path (empty uses an in-memory store)")
	flag.BoolVar(&interactive, "i", false, "interactive mode")
	flag.BoolVar(&help, "h", false, "show help")
	flag.StringVar(&queryName, "query", "", "run a single named demo query and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "A collection query engine demo shell.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                  # run the demo queries once\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i               # interactive menu\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -query nyc-users # run one named query and exit\n", os.Args[0])
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	store, closeStore := openStore(dbPath)
	defer closeStore()

	eng := buildDemo(store)
	seedDemoData(store)
	queries := demoQueries()

	switch {
	case queryName != "":
		runNamed(eng, queries, queryName)
	case interactive:
		runInteractive(eng, queries)
	default:
		runAll(eng, queries)
	}
}

func openStore(dbPath string) (storage.Store, func()) {
	if dbPath == "" {
		s := storage.NewMemStore()
		return s, func() { s.Close() }
	}
	s, err := storage.NewBadgerStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open badger store at %s: %v", dbPath, err)
	}
	return s, func() { s.Close() }
}

func buildDemo(store storage.Store) *engine.Engine {
	svc := schema.NewStaticService()
	svc.Declare("users", triple.Path{"name"}, schema.TypeString)
	svc.Declare("users", triple.Path{"city"}, schema.TypeString)
	svc.Declare("posts", triple.Path{"title"}, schema.TypeString)
	svc.Declare("posts", triple.Path{"author_id"}, schema.TypeString)
	svc.DeclareRelation("posts", triple.Path{"author"}, schema.CardinalityOne, schema.RelationSpec{
		TargetCollection: "users",
		TargetPath:       triple.Path{"_id"},
		LocalPath:        triple.Path{"author_id"},
	})
	svc.DeclareRelation("users", triple.Path{"posts"}, schema.CardinalityMany, schema.RelationSpec{
		TargetCollection: "posts",
		TargetPath:       triple.Path{"author_id"},
		LocalPath:        triple.Path{"_id"},
	})
	return &engine.Engine{Store: store, Schema: svc}
}

func seedDemoData(store storage.Store) {
	now := func(tick uint64) triple.Timestamp { return triple.Timestamp{Tick: tick, ClientID: "seed"} }
	alice := triple.NewEntityID("users", "alice")
	bob := triple.NewEntityID("users", "bob")
	post1 := triple.NewEntityID("posts", "p1")
	post2 := triple.NewEntityID("posts", "p2")

	writes := []triple.Triple{
		triple.CollectionTriple(alice, "users", now(1)),
		{EntityID: alice, Attribute: triple.Path{"name"}, Value: "Alice", Timestamp: now(1)},
		{EntityID: alice, Attribute: triple.Path{"city"}, Value: "New York", Timestamp: now(1)},
		triple.CollectionTriple(bob, "users", now(2)),
		{EntityID: bob, Attribute: triple.Path{"name"}, Value: "Bob", Timestamp: now(2)},
		{EntityID: bob, Attribute: triple.Path{"city"}, Value: "Boston", Timestamp: now(2)},
		triple.CollectionTriple(post1, "posts", now(3)),
		{EntityID: post1, Attribute: triple.Path{"title"}, Value: "Hello from NYC", Timestamp: now(3)},
		{EntityID: post1, Attribute: triple.Path{"author_id"}, Value: string(alice), Timestamp: now(3)},
		triple.CollectionTriple(post2, "posts", now(4)),
		{EntityID: post2, Attribute: triple.Path{"title"}, Value: "Boston diaries", Timestamp: now(4)},
		{EntityID: post2, Attribute: triple.Path{"author_id"}, Value: string(bob), Timestamp: now(4)},
	}
	if err := store.Write(writes); err != nil {
		log.Fatalf("failed to seed demo data: %v", err)
	}
}

type namedQuery struct {
	name  string
	query *query.Query
}

func demoQueries() []namedQuery {
	return []namedQuery{
		{"nyc-users", &query.Query{
			Collection: "users",
			Where: []query.Node{
				query.Statement{Path: triple.Path{"city"}, Op: query.OpEQ, Value: "New York"},
			},
		}},
		{"posts-with-author", &query.Query{
			Collection: "posts",
			Include: map[string]query.Include{
				"author": {Alias: "author", Shorthand: true, Cardinality: query.CardinalityOne},
			},
		}},
		{"users-ordered", &query.Query{
			Collection: "users",
			Order:      []query.OrderTerm{{Path: triple.Path{"name"}, Direction: query.Asc}},
		}},
	}
}

func runAll(eng *engine.Engine, queries []namedQuery) {
	color.Cyan("=== Collection Query Engine Demo ===")
	for _, nq := range queries {
		runOne(eng, nq)
	}
}

func runNamed(eng *engine.Engine, queries []namedQuery, name string) {
	for _, nq := range queries {
		if nq.name == name {
			runOne(eng, nq)
			return
		}
	}
	fmt.Fprintf(os.Stderr, "no such demo query: %s\n", name)
	os.Exit(1)
}

func runOne(eng *engine.Engine, nq namedQuery) {
	color.Yellow("\nQuery: %s", nq.name)

	prepared, err := eng.PrepareQuery(nq.query)
	if err != nil {
		color.Red("prepare error: %v", err)
		return
	}

	start := time.Now()
	results, err := eng.Fetch("cli", prepared, nil)
	elapsed := time.Since(start)
	if err != nil {
		color.Red("fetch error: %v", err)
		return
	}

	printResults(results)
	fmt.Printf("(%d rows, %.3fms)\n", len(results), float64(elapsed.Microseconds())/1000.0)
}

func printResults(results []*engine.Result) {
	if len(results) == 0 {
		fmt.Println("_No rows_")
		return
	}

	var b strings.Builder
	alignment := []tw.Align{tw.AlignNone, tw.AlignNone}
	table := tablewriter.NewTable(&b,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"id", "attributes"})
	for _, r := range results {
		table.Append([]string{string(r.View.ID), formatAttributes(r)})
	}
	table.Render()
	fmt.Print(b.String())
}

func formatAttributes(r *engine.Result) string {
	var parts []string
	for _, p := range r.View.Paths() {
		parts = append(parts, fmt.Sprintf("%s=%v", p, r.View.Get(p)))
	}
	if len(r.Includes) > 0 {
		parts = append(parts, fmt.Sprintf("includes=%v", includeSummary(r.Includes)))
	}
	return strings.Join(parts, ", ")
}

func includeSummary(includes map[string]interface{}) string {
	var parts []string
	for alias := range includes {
		parts = append(parts, alias)
	}
	return strings.Join(parts, ",")
}

func runInteractive(eng *engine.Engine, queries []namedQuery) {
	color.Cyan("=== Collection Query Engine Interactive Shell ===")
	fmt.Println("Commands:")
	fmt.Println("  .help       - show this help")
	fmt.Println("  .list       - list demo queries")
	fmt.Println("  .exit       - exit")
	fmt.Println("  <number>    - run the demo query at that index")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == ".exit":
			return
		case line == ".help":
			fmt.Println("Enter a query index from .list, or a demo query name.")
		case line == ".list":
			for i, nq := range queries {
				fmt.Printf("  %d: %s\n", i, nq.name)
			}
		case line == "":
			continue
		default:
			if idx, err := strconv.Atoi(line); err == nil && idx >= 0 && idx < len(queries) {
				runOne(eng, queries[idx])
				continue
			}
			runNamedQuiet(eng, queries, line)
		}
	}
}

func runNamedQuiet(eng *engine.Engine, queries []namedQuery, name string) {
	for _, nq := range queries {
		if nq.name == name {
			runOne(eng, nq)
			return
		}
	}
	color.Red("unknown demo query: %s (use .list)", name)
}
