package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/wbrown/hyperjoin/annotations"
	"github.com/wbrown/hyperjoin/dataset"
	"github.com/wbrown/hyperjoin/decomp"
	"github.com/wbrown/hyperjoin/engine"
	"github.com/wbrown/hyperjoin/hypergraph"
	"github.com/wbrown/hyperjoin/relation"
	"github.com/wbrown/hyperjoin/store"
)

func main() {
	var (
		datasetName string
		loadSpec    string
		engineName  string
		orderSpec   string
		fullReduce  bool
		analyze     bool
		compare     bool
		verbose     bool
		showResult  bool
		dbPath      string
		seed        int64
		size        int
		domain      int
		length      int
		maxWidth    int
		budget      int
	)

	flag.StringVar(&datasetName, "dataset", "chain", "built-in dataset: chain, triangle, triangle-diamond, random-chain")
	flag.StringVar(&loadSpec, "load", "", "load relations from CSV instead: comma-separated name=path pairs")
	flag.StringVar(&engineName, "engine", "auto", "engine: auto, yannakakis, genericjoin, hashjoin, nestedloop")
	flag.StringVar(&orderSpec, "order", "", "comma-separated attribute order for genericjoin")
	flag.BoolVar(&fullReduce, "full-reduction", false, "run the downward semi-join sweep as well")
	flag.BoolVar(&analyze, "analyze", false, "report structure and widths only, do not evaluate")
	flag.BoolVar(&compare, "compare", false, "run every engine and check the results agree")
	flag.BoolVar(&verbose, "verbose", false, "verbose mode (show evaluation annotations)")
	flag.BoolVar(&showResult, "result", true, "print the result table")
	flag.StringVar(&dbPath, "db", "", "persist the inputs and result to this database path")
	flag.Int64Var(&seed, "seed", 42, "random dataset seed")
	flag.IntVar(&size, "size", 50, "random dataset tuples per relation")
	flag.IntVar(&domain, "domain", 10, "random dataset value domain")
	flag.IntVar(&length, "length", 4, "random chain length")
	flag.IntVar(&maxWidth, "max-width", 0, "decomposition width ceiling (0: number of relations)")
	flag.IntVar(&budget, "budget", 0, "decomposition expansion budget (0: unlimited)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Evaluate multi-relation natural-join queries.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                  # chain demo with the auto engine\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -dataset triangle -engine genericjoin\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -dataset triangle-diamond -analyze\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -dataset random-chain -length 6 -compare\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -load R=r.csv,S=s.csv -verbose\n", os.Args[0])
	}
	flag.Parse()

	rels, err := buildQuery(datasetName, loadSpec, seed, size, domain, length)
	if err != nil {
		log.Fatalf("Failed to build query: %v", err)
	}

	var collector *annotations.Collector
	if verbose {
		formatter := annotations.NewOutputFormatter(os.Stderr)
		collector = annotations.NewCollector(formatter.Handle)
	}

	printStructure(rels, collector, decomp.Options{MaxWidth: maxWidth, MaxExpansions: budget})
	if analyze {
		return
	}

	opts := engine.Options{
		FullReduction: fullReduce,
		Order:         parseOrder(orderSpec),
		Collector:     collector,
	}

	var result *relation.Relation
	if compare {
		result = runComparison(rels, opts)
	} else {
		result = runEngine(engineName, rels, opts)
	}

	if showResult {
		fmt.Println(result.Table())
	}

	if dbPath != "" {
		if err := persist(dbPath, rels, result); err != nil {
			log.Fatalf("Failed to persist: %v", err)
		}
		fmt.Printf("Saved %d relations to %s\n", len(rels)+1, dbPath)
	}
}

func buildQuery(datasetName, loadSpec string, seed int64, size, domain, length int) ([]*relation.Relation, error) {
	if loadSpec != "" {
		var rels []*relation.Relation
		for _, pair := range strings.Split(loadSpec, ",") {
			name, path, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("bad -load entry %q, expected name=path", pair)
			}
			r, err := dataset.LoadFile(path, name)
			if err != nil {
				return nil, err
			}
			rels = append(rels, r)
		}
		return rels, nil
	}

	switch datasetName {
	case "chain":
		return dataset.Chain(), nil
	case "triangle":
		return dataset.Triangle(), nil
	case "triangle-diamond":
		return dataset.TriangleDiamond(seed, size, domain), nil
	case "random-chain":
		return dataset.RandomChain(seed, length, size, domain)
	default:
		return nil, fmt.Errorf("unknown dataset %q", datasetName)
	}
}

func parseOrder(spec string) []relation.Attribute {
	if spec == "" {
		return nil
	}
	parts := strings.Split(spec, ",")
	order := make([]relation.Attribute, len(parts))
	for i, p := range parts {
		order[i] = relation.Attribute(strings.TrimSpace(p))
	}
	return order
}

// printStructure reports the query's shape: relation sizes, acyclicity
// and the two width measures.
func printStructure(rels []*relation.Relation, collector *annotations.Collector, opts decomp.Options) {
	h, err := hypergraph.New(rels)
	if err != nil {
		log.Fatalf("Malformed query: %v", err)
	}

	fmt.Printf("Query: %d relations, %d attributes\n", h.NumEdges(), h.NumNodes())
	for _, r := range rels {
		attrs := make([]string, len(r.Attributes()))
		for i, a := range r.Attributes() {
			attrs[i] = string(a)
		}
		fmt.Printf("  %s(%s): %d tuples\n", r.Name(), strings.Join(attrs, ","), r.Size())
	}

	if h.Acyclic() {
		fmt.Println("Structure: acyclic (width 1)")
		return
	}

	fmt.Println("Structure: cyclic")
	ghw, err := decomp.GHWWithCollector(h, opts, collector)
	if err != nil {
		fmt.Printf("  GHW: %v\n", err)
		return
	}
	fmt.Printf("  GHW: %v (%d bags)\n", ghw.Width, ghw.NumBags())

	fhw, err := decomp.FHWWithCollector(h, opts, collector)
	if err != nil {
		fmt.Printf("  FHW: %v\n", err)
		return
	}
	fmt.Printf("  FHW: %.3f (%d bags)\n", fhw.Width, fhw.NumBags())
}

func runEngine(name string, rels []*relation.Relation, opts engine.Options) *relation.Relation {
	eval, err := selectEngine(name, rels)
	if err != nil {
		log.Fatalf("%v", err)
	}
	result, err := eval(rels, opts)
	if err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}
	return result
}

type evaluator func([]*relation.Relation, engine.Options) (*relation.Relation, error)

func selectEngine(name string, rels []*relation.Relation) (evaluator, error) {
	switch name {
	case "auto":
		h, err := hypergraph.New(rels)
		if err != nil {
			return nil, err
		}
		if h.Acyclic() {
			fmt.Println("Engine: yannakakis (acyclic query)")
			return engine.Yannakakis, nil
		}
		fmt.Println("Engine: genericjoin (cyclic query)")
		return engine.GenericJoin, nil
	case "yannakakis":
		return engine.Yannakakis, nil
	case "genericjoin":
		return engine.GenericJoin, nil
	case "hashjoin":
		return engine.HashJoinBaseline, nil
	case "nestedloop":
		return engine.NestedLoopBaseline, nil
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}

// runComparison evaluates every applicable engine, checks the tuple
// sets agree and prints a summary table.
func runComparison(rels []*relation.Relation, opts engine.Options) *relation.Relation {
	engines := []struct {
		name string
		eval evaluator
	}{
		{"yannakakis", engine.Yannakakis},
		{"genericjoin", engine.GenericJoin},
		{"hashjoin", engine.HashJoinBaseline},
		{"nestedloop", engine.NestedLoopBaseline},
	}

	type outcome struct {
		name    string
		result  *relation.Relation
		elapsed time.Duration
		err     error
	}

	var outcomes []outcome
	for _, e := range engines {
		start := time.Now()
		result, err := e.eval(rels, opts)
		outcomes = append(outcomes, outcome{e.name, result, time.Since(start), err})
	}

	// Everything successful must agree with the first success
	var reference *relation.Relation
	var referenceName string
	var canonical []relation.Attribute
	for _, o := range outcomes {
		if o.err != nil {
			continue
		}
		if reference == nil {
			reference = o.result
			referenceName = o.name
			canonical = append([]relation.Attribute{}, reference.Attributes()...)
			continue
		}
		p, err := o.result.Project(canonical)
		if err != nil || !p.Equal(reference) {
			log.Fatalf("Engine %s disagrees with %s", o.name, referenceName)
		}
	}
	if reference == nil {
		log.Fatalf("No engine could evaluate the query")
	}

	alignment := []tw.Align{tw.AlignNone, tw.AlignNone, tw.AlignNone}
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"engine", "tuples", "time"})
	for _, o := range outcomes {
		if o.err != nil {
			status := o.err.Error()
			if errors.Is(o.err, engine.ErrCyclicQuery) {
				status = "n/a (cyclic)"
			}
			table.Append([]string{o.name, status, "-"})
			continue
		}
		table.Append([]string{
			o.name,
			fmt.Sprintf("%d", o.result.Size()),
			fmt.Sprintf("%.3fms", float64(o.elapsed.Microseconds())/1000.0),
		})
	}
	table.Render()
	fmt.Println()

	return reference
}

func persist(path string, rels []*relation.Relation, result *relation.Relation) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, r := range rels {
		if err := s.Put(r); err != nil {
			return err
		}
	}
	return s.Put(result.Rename("result"))
}
