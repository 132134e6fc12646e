// Package ping is the ping aggregator (component D): concurrent
// multi-interface ICMP measurement via the shelled `ping` binary with
// trimmed-mean summarisation.
//
// This is the one true fan-out point in the agent (design note §5): one
// long-running `ping` child per interface, joined or killed after a fixed
// wall-clock window. Every prober is guaranteed to die on every return
// path, including when the caller's context is cancelled early.
package ping

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"meshnoded/internal/link"
	"meshnoded/internal/proc"
)

// Aggregator measures per-interface link RTT.
type Aggregator struct {
	Window time.Duration // defaults to 10s
}

var timeLineRe = regexp.MustCompile(`^\[\d+\.\d+\]`)
var timeValRe = regexp.MustCompile(`time=([0-9.]+)\s*ms`)

// Measure runs one ping probe per interface in ifnames, each against its
// veth/wireguard peer address, for Window (default 10s) wall-clock, and
// returns the trimmed-mean RTT per interface. A missing or absent sample
// set maps to a nil value for that interface. A single interface failing
// to spawn its prober does not abort the batch.
func (a *Aggregator) Measure(ctx context.Context, ns string, ifnames []string) map[string]*float64 {
	window := a.Window
	if window <= 0 {
		window = 10 * time.Second
	}

	results := make(map[string]*float64, len(ifnames))
	var mu sync.Mutex
	var wg sync.WaitGroup

	probeCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	for _, ifname := range ifnames {
		ifname := ifname
		wg.Add(1)
		go func() {
			defer wg.Done()
			samples := probeOne(probeCtx, ns, ifname)
			mean := trimmedMean(samples)
			mu.Lock()
			results[ifname] = mean
			mu.Unlock()
		}()
	}

	wg.Wait()
	return results
}

func probeOne(ctx context.Context, ns, ifname string) []float64 {
	linkMgr := &link.Manager{Invoker: &proc.Invoker{}}
	state, err := linkMgr.GetInterfaceState(ctx, ns, ifname)
	if err != nil || state.Addr == "" {
		return nil
	}
	peerCIDR, err := link.Complement(state.Addr + "/" + strconv.Itoa(state.PrefixLen))
	if err != nil {
		return nil
	}
	peerIP := strings.SplitN(peerCIDR, "/", 2)[0]

	argv := proc.SudoWrap(proc.NsWrap(ns, []string{"ping", "-D", "-n", "-i", "1", "-r", peerIP}))
	group, scanner, err := proc.StartGroup(ctx, argv)
	if err != nil {
		return nil
	}
	defer group.Kill()
	defer group.Wait()

	var samples []float64
	done := make(chan struct{})
	go func() {
		defer close(done)
		for scanner.Scan() {
			if ms, ok := parsePingLine(scanner.Text()); ok {
				samples = append(samples, ms)
			}
		}
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
	group.Kill()
	<-done
	return samples
}

// parsePingLine extracts the RTT in ms from a `ping -D` output line of the
// form "[<unix>.<frac>] 64 bytes from ...: ... time=27.3 ms".
func parsePingLine(line string) (float64, bool) {
	if !timeLineRe.MatchString(line) {
		return 0, false
	}
	m := timeValRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// trimmedMean drops floor(n*0.1) samples from each tail of the sorted set
// and averages what remains. If that leaves nothing, it falls back to the
// untrimmed mean. nil if there are no samples at all.
func trimmedMean(samples []float64) *float64 {
	if len(samples) == 0 {
		return nil
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	trim := len(sorted) / 10
	lo, hi := trim, len(sorted)-trim
	if lo >= hi {
		mean := average(sorted)
		return &mean
	}
	mean := average(sorted[lo:hi])
	return &mean
}

func average(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
