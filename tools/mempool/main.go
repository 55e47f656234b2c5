package main

import "flag"
import "fmt"
import "math/rand"
import "strconv"
import "strings"
import "time"
import "unsafe"

import "github.com/bnclabs/mempool/malloc"
import s "github.com/bnclabs/gosettings"
import hm "github.com/dustin/go-humanize"

var options struct {
	tiers   [3]int // small,medium,large block sizes
	pertier int
	n       int
	maxsize int
	compact bool
	seed    int
}

func argParse() {
	var tiers string

	flag.StringVar(&tiers, "tiers", "",
		"small,medium,large block sizes in bytes")
	flag.IntVar(&options.pertier, "pertier", 10,
		"number of blocks per tier")
	flag.IntVar(&options.n, "n", 100000,
		"number of alloc/free operations")
	flag.IntVar(&options.maxsize, "maxsize", 8*1024,
		"allocation sizes are picked from [1,maxsize)")
	flag.BoolVar(&options.compact, "compact", false,
		"compact all blocks after the workload")
	flag.IntVar(&options.seed, "seed", 0,
		"seed for the randomized workload")
	flag.Parse()

	options.tiers = [3]int{256 * 1024, 1024 * 1024, 4 * 1024 * 1024}
	if tiers != "" {
		for i, s := range strings.Split(tiers, ",") {
			ln, _ := strconv.Atoi(s)
			options.tiers[i] = ln
		}
	}
	if options.seed == 0 {
		options.seed = int(time.Now().UnixNano())
	}
}

func main() {
	argParse()
	malloc.LogComponents("all")

	setts := s.Settings{
		"block.small":    int64(options.tiers[0]),
		"block.medium":   int64(options.tiers[1]),
		"block.large":    int64(options.tiers[2]),
		"blocks.pertier": int64(options.pertier),
	}
	mgr := malloc.NewManager(setts)
	defer mgr.Release()

	r := rand.New(rand.NewSource(int64(options.seed)))
	ptrs := make([]unsafe.Pointer, 0, 1024)
	allocfails, frees := 0, 0

	start := time.Now()
	for i := 0; i < options.n; i++ {
		if len(ptrs) > 0 && r.Intn(3) == 0 {
			off := r.Intn(len(ptrs))
			mgr.Free(ptrs[off])
			ptrs[off] = ptrs[len(ptrs)-1]
			ptrs = ptrs[:len(ptrs)-1]
			frees++
			continue
		}
		size := int64(1 + r.Intn(options.maxsize))
		if ptr := mgr.Alloc(size); ptr != nil {
			ptrs = append(ptrs, ptr)
		} else {
			allocfails++
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("%v operations in %v, %v fails, %v live pointers\n",
		hm.Comma(int64(options.n)), elapsed, allocfails, len(ptrs))

	if options.compact {
		mgr.CompactAll()
	}
	mgr.Logstats()

	for _, ptr := range ptrs {
		mgr.Free(ptr)
	}
	stats := mgr.Stats()
	fmt.Printf("allocs:%v frees:%v used:%v\n",
		stats.Allocations, stats.Deallocations, stats.Totalused)
}
