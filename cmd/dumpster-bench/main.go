package main

import (
	"fmt"
	"os"
	"runtime"
	stdsync "sync"
	"time"

	"github.com/gholt/brimutil"
	"github.com/gholt/dumpster"
	dsync "github.com/gholt/dumpster/sync"
	"github.com/gholt/dumpster/unsync"
	flags "github.com/jessevdk/go-flags"
)

type optsStruct struct {
	Cores      int    `long:"cores" description:"The number of cores. Default: CPU core count"`
	Variant    string `long:"variant" description:"unsync or sync" default:"unsync"`
	Number     int    `short:"n" long:"number" description:"Number of allocations per round" default:"1000"`
	CycleLen   int    `long:"cycle-len" description:"Length of each cycle built" default:"8"`
	Random     int    `long:"random" description:"Random number seed"`
	Clients    int    `long:"clients" description:"Goroutines driving the sync variant. Ignored for unsync" default:"8"`
	Positional struct {
		Tests []string `name:"tests" description:"alloc cycles churn"`
	} `positional-args:"yes"`
	st runtime.MemStats
}

var opts optsStruct
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		args = append(args, "-h")
	}
	if _, err := parser.ParseArgs(args); err != nil {
		os.Exit(1)
	}
	for _, arg := range opts.Positional.Tests {
		switch arg {
		case "alloc":
		case "cycles":
		case "churn":
		default:
			fmt.Fprintf(os.Stderr, "Unknown test named %#v.\n", arg)
			os.Exit(1)
		}
	}
	if opts.Variant != "unsync" && opts.Variant != "sync" {
		fmt.Fprintf(os.Stderr, "Unknown variant %#v.\n", opts.Variant)
		os.Exit(1)
	}
	if opts.Cores > 0 {
		runtime.GOMAXPROCS(opts.Cores)
	} else if os.Getenv("GOMAXPROCS") == "" {
		runtime.GOMAXPROCS(runtime.NumCPU())
	}
	opts.Cores = runtime.GOMAXPROCS(0)
	fmt.Println(opts.Cores, "cores")
	fmt.Println(opts.Variant, "variant")
	fmt.Println(opts.Number, "allocations per round")
	memstat()
	for _, arg := range opts.Positional.Tests {
		switch arg {
		case "alloc":
			alloc()
		case "cycles":
			cycles()
		case "churn":
			churn()
		}
		memstat()
	}
	if opts.Variant == "unsync" {
		fmt.Println(unsync.Info().String())
	} else {
		fmt.Println(dsync.Info().String())
	}
}

func memstat() {
	lastAlloc := opts.st.TotalAlloc
	runtime.ReadMemStats(&opts.st)
	deltaAlloc := opts.st.TotalAlloc - lastAlloc
	fmt.Printf("%0.2fG total alloc, %0.2fG delta\n\n", float64(opts.st.TotalAlloc)/1024/1024/1024, float64(deltaAlloc)/1024/1024/1024)
}

// node is the Collectable payload used by the alloc benchmark: a plain
// value with no Gc fields of its own.
type node struct {
	id int
}

func (n *node) GCAccept(dumpster.Visitor) error { return nil }

// alloc builds and immediately drops opts.Number acyclic allocations, the
// cheapest possible path through either variant (every Drop frees on the
// spot, nothing ever touches the registry).
func alloc() {
	begin := time.Now()
	switch opts.Variant {
	case "unsync":
		for i := 0; i < opts.Number; i++ {
			g := unsync.New[*node](&node{id: i})
			g.Drop()
		}
	case "sync":
		runConcurrently(func(lo, hi int) {
			for i := lo; i < hi; i++ {
				g := dsync.New[*node](&node{id: i})
				g.Drop()
			}
		})
	}
	dur := time.Now().Sub(begin)
	fmt.Printf("%s %.0f/s to alloc+drop %d acyclic values\n", dur, float64(opts.Number)/(float64(dur)/float64(time.Second)), opts.Number)
}

// ring holds a Gc to the next node in a fixed-length cycle.
type ring struct {
	id   int
	next any
}

func (r *ring) GCAccept(v dumpster.Visitor) error {
	switch n := r.next.(type) {
	case *unsync.Gc[*ring]:
		return n.GCAccept(v)
	case *dsync.Gc[*ring]:
		return n.GCAccept(v)
	}
	return nil
}

// cycles builds opts.Number/opts.CycleLen independent rings of length
// opts.CycleLen, drops every handle to each, and forces a collection,
// timing how long the collector takes to reclaim them all.
func cycles() {
	count := opts.Number / opts.CycleLen
	if count == 0 {
		count = 1
	}
	begin := time.Now()
	switch opts.Variant {
	case "unsync":
		for c := 0; c < count; c++ {
			buildUnsyncRing(opts.CycleLen)
		}
		unsync.CollectAll()
	case "sync":
		var wg stdsync.WaitGroup
		for w := 0; w < opts.Clients; w++ {
			wg.Add(1)
			go func(worker int) {
				defer wg.Done()
				for c := worker; c < count; c += opts.Clients {
					buildSyncRing(opts.CycleLen)
				}
			}(w)
		}
		wg.Wait()
		dsync.CollectAll()
	}
	dur := time.Now().Sub(begin)
	fmt.Printf("%s to build and reclaim %d cycles of length %d\n", dur, count, opts.CycleLen)
}

func buildUnsyncRing(length int) {
	handles := make([]unsync.Gc[*ring], length)
	for i := range handles {
		handles[i] = unsync.New[*ring](&ring{id: i})
	}
	for i := range handles {
		next := handles[(i+1)%length].Clone()
		(*handles[i].Value()).next = &next
	}
	for i := range handles {
		handles[i].Drop()
	}
}

func buildSyncRing(length int) {
	handles := make([]dsync.Gc[*ring], length)
	for i := range handles {
		handles[i] = dsync.New[*ring](&ring{id: i})
	}
	for i := range handles {
		next := handles[(i+1)%length].Clone()
		(*handles[i].Value()).next = &next
	}
	for i := range handles {
		handles[i].Drop()
	}
}

// churn repeatedly builds and tears down cycles, relying entirely on the
// default trigger (never calling CollectAll directly) to see how the
// amortized policy behaves under sustained pressure.
func churn() {
	begin := time.Now()
	rounds := opts.Number / opts.CycleLen
	if rounds == 0 {
		rounds = 1
	}
	// Vary each round's cycle length a little instead of building rounds
	// identical rings, so the trigger sees a more realistic mix of live
	// and freshly-dropped allocations.
	jitter := make([]byte, rounds)
	brimutil.NewSeededScrambled(int64(opts.Random)).Read(jitter)
	lengths := make([]int, rounds)
	for i, b := range jitter {
		lengths[i] = opts.CycleLen + int(b%3)
	}
	switch opts.Variant {
	case "unsync":
		unsync.SetTrigger(nil)
		for i := 0; i < rounds; i++ {
			buildUnsyncRing(lengths[i])
		}
	case "sync":
		dsync.SetTrigger(nil)
		var wg stdsync.WaitGroup
		for w := 0; w < opts.Clients; w++ {
			wg.Add(1)
			go func(worker int) {
				defer wg.Done()
				for i := worker; i < rounds; i += opts.Clients {
					buildSyncRing(lengths[i])
				}
			}(w)
		}
		wg.Wait()
	}
	dur := time.Now().Sub(begin)
	fmt.Printf("%s to churn through %d cycles relying on the default trigger\n", dur, rounds)
}

func runConcurrently(f func(lo, hi int)) {
	n := opts.Number
	clients := opts.Clients
	if clients < 1 {
		clients = 1
	}
	per := n / clients
	var wg stdsync.WaitGroup
	for c := 0; c < clients; c++ {
		lo := c * per
		hi := lo + per
		if c == clients-1 {
			hi = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			f(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
