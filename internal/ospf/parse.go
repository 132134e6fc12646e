// Package ospf is the OSPF state parser (component E): an indent-based
// recursive-descent parser that turns `birdc show ospf state all` text
// into a typed router tree for telemetry reporting.
package ospf

import (
	"strconv"
	"strings"

	"meshnoded/internal/model"
)

// State is the full parsed result: routers grouped by area, plus routers
// reachable only as other ASBRs (outside any area section).
type State struct {
	AreaRouters map[string][]model.RouterInfo
	OtherASBRs  []model.RouterInfo
}

type line struct {
	indent  int
	content string
}

// lineReader is a peekable reader over tab-indented lines, skipping blanks.
type lineReader struct {
	lines []line
	pos   int
}

func newLineReader(text string) *lineReader {
	var out []line
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, "\r")
		indent := 0
		for indent < len(raw) && raw[indent] == '\t' {
			indent++
		}
		content := strings.TrimSpace(raw[indent:])
		if content == "" {
			continue
		}
		out = append(out, line{indent: indent, content: content})
	}
	return &lineReader{lines: out}
}

func (r *lineReader) peek() (line, bool) {
	if r.pos >= len(r.lines) {
		return line{}, false
	}
	return r.lines[r.pos], true
}

func (r *lineReader) next() (line, bool) {
	l, ok := r.peek()
	if ok {
		r.pos++
	}
	return l, ok
}

// Parse parses the full `birdc show ospf state all` dump.
func Parse(text string) State {
	r := newLineReader(text)
	st := State{AreaRouters: map[string][]model.RouterInfo{}}

	for {
		l, ok := r.peek()
		if !ok {
			break
		}
		switch {
		case strings.HasPrefix(l.content, "area "):
			r.next()
			areaID := strings.TrimSpace(strings.TrimPrefix(l.content, "area "))
			st.AreaRouters[areaID] = parseRouters(r, l.indent)
		case l.content == "other ASBRs":
			r.next()
			st.OtherASBRs = parseRouters(r, l.indent)
		default:
			// Unrecognised level-0 line: skip it to avoid an infinite loop.
			r.next()
		}
	}
	return st
}

// parseRouters reads zero or more "router <id>" blocks nested under a
// frame at parentIndent, returning when a line's indent is not greater
// than parentIndent.
func parseRouters(r *lineReader, parentIndent int) []model.RouterInfo {
	var routers []model.RouterInfo
	for {
		l, ok := r.peek()
		if !ok || l.indent <= parentIndent {
			return routers
		}
		if !strings.HasPrefix(l.content, "router ") {
			// Not a router line at this depth; stop rather than loop forever.
			return routers
		}
		r.next()
		routerID := strings.TrimSpace(strings.TrimPrefix(l.content, "router "))
		routers = append(routers, parseRouterBody(r, l.indent, routerID))
	}
}

func parseRouterBody(r *lineReader, parentIndent int, routerID string) model.RouterInfo {
	info := model.RouterInfo{RouterID: routerID}
	for {
		l, ok := r.peek()
		if !ok || l.indent <= parentIndent {
			return info
		}
		r.next()
		fields := strings.Fields(l.content)
		if len(fields) == 0 {
			continue
		}
		kw, rest := fields[0], fields[1:]
		switch kw {
		case "distance":
			if len(rest) >= 1 {
				info.Distance, _ = strconv.Atoi(rest[0])
			}
		case "vlink":
			if e, ok := parseMetricEntry(rest); ok {
				info.VLinks = append(info.VLinks, e)
			}
		case "router":
			if e, ok := parseMetricEntry(rest); ok {
				info.Routers = append(info.Routers, e)
			}
		case "stubnet":
			if e, ok := parseMetricEntry(rest); ok {
				info.StubNets = append(info.StubNets, e)
			}
		case "xnetwork":
			if e, ok := parseMetricEntry(rest); ok {
				info.XNetworks = append(info.XNetworks, e)
			}
		case "xrouter":
			if e, ok := parseMetricEntry(rest); ok {
				info.XRouters = append(info.XRouters, e)
			}
		case "external":
			info.Externals = append(info.Externals, parseExternalEntry(rest))
		case "nssa-ext":
			info.NSSAExternals = append(info.NSSAExternals, parseExternalEntry(rest))
		}
	}
}

// parseMetricEntry parses "<network> metric <n>" (used by vlink/router/
// stubnet/xnetwork/xrouter lines: the first token is the network or
// router id, "metric" precedes the metric value).
func parseMetricEntry(tokens []string) (model.MetricEntry, bool) {
	if len(tokens) == 0 {
		return model.MetricEntry{}, false
	}
	e := model.MetricEntry{Network: tokens[0]}
	for i := 1; i < len(tokens)-1; i++ {
		if tokens[i] == "metric" {
			e.Metric, _ = strconv.Atoi(tokens[i+1])
		}
	}
	return e, true
}

// parseExternalEntry parses "<network> metric <n> [metric2] [via <ip>]
// [tag <tag>]". metric_type is 2 iff the token "metric2" appears; via/tag
// are the tokens immediately following those keywords when present.
func parseExternalEntry(tokens []string) model.ExternalEntry {
	e := model.ExternalEntry{MetricType: 1}
	if len(tokens) == 0 {
		return e
	}
	e.Network = tokens[0]
	for i := 1; i < len(tokens); i++ {
		switch tokens[i] {
		case "metric":
			if i+1 < len(tokens) {
				e.Metric, _ = strconv.Atoi(tokens[i+1])
				i++
			}
		case "metric2":
			e.MetricType = 2
		case "via":
			if i+1 < len(tokens) {
				e.Via = tokens[i+1]
				i++
			}
		case "tag":
			if i+1 < len(tokens) {
				e.Tag = tokens[i+1]
				i++
			}
		}
	}
	return e
}
