// Package birdconf is the routing-daemon config generator (component F):
// it renders a BIRD-style OSPFv2 + BFD configuration from a structured
// input and reformats the result with a brace-depth indentation pass so
// output is stable regardless of how the generating code indented it.
package birdconf

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// OSPFIfaceConfig is one interface's entry under an OSPF area.
type OSPFIfaceConfig struct {
	Cost *int
	Type string
	Auth string // HMAC-SHA-512 key, empty if unauthenticated
}

// BFDIfaceConfig is one interface's BFD timers; unset fields fall back to
// BIRD's own defaults by being omitted from the rendered block.
type BFDIfaceConfig struct {
	IntervalMs *int
	TxMs       *int
	RxMs       *int
	IdleMs     *int
	Multiplier *int
}

// Input is the full set of parameters the generator accepts.
type Input struct {
	RouterID                string
	DirectInterfaceNames    []string
	OSPFImportExcludeCIDRs  []string
	OSPFExportExcludeCIDRs  []string
	OSPFAreaConfig          map[string]map[string]OSPFIfaceConfig // areaId -> ifname -> config
	BFDConfig               map[string]BFDIfaceConfig             // ifname -> config
	DebugProtocols          bool
	DisableLogging          bool
	GitVersion              string
	Timestamp               string // caller-supplied for deterministic output; omitted if empty
}

// Render produces the full configuration text for in.
func Render(in Input) string {
	var lines []string
	lines = append(lines, headerLines(in)...)
	lines = append(lines, "")
	lines = append(lines, loggingLines(in)...)
	lines = append(lines, "")
	lines = append(lines, directDeviceLines(in)...)
	lines = append(lines, "")
	lines = append(lines, filterLines("ospf_import", in.OSPFImportExcludeCIDRs)...)
	lines = append(lines, "")
	lines = append(lines, filterLines("ospf_export", in.OSPFExportExcludeCIDRs)...)
	lines = append(lines, "")
	lines = append(lines, ospfProtocolLines(in)...)
	if bfdLines := bfdProtocolLines(in); len(bfdLines) > 0 {
		lines = append(lines, "")
		lines = append(lines, bfdLines...)
	}
	return reformat(lines)
}

func headerLines(in Input) []string {
	var sb strings.Builder
	sb.WriteString("# generated by meshnoded")
	if in.GitVersion != "" {
		fmt.Fprintf(&sb, " %s", in.GitVersion)
	}
	if in.Timestamp != "" {
		fmt.Fprintf(&sb, " at %s", in.Timestamp)
	}
	lines := []string{sb.String()}
	if in.RouterID != "" {
		lines = append(lines, fmt.Sprintf("router id %s;", in.RouterID))
	}
	if in.DebugProtocols {
		lines = append(lines, "debug protocols all;")
	}
	return lines
}

func loggingLines(in Input) []string {
	if in.DisableLogging {
		return []string{`log "/dev/null" all;`}
	}
	return []string{"log syslog all;"}
}

func directDeviceLines(in Input) []string {
	lines := []string{"protocol device {", "}"}
	if len(in.DirectInterfaceNames) == 0 {
		return lines
	}
	names := append([]string(nil), in.DirectInterfaceNames...)
	sort.Strings(names)
	out := []string{"protocol direct {"}
	for _, n := range names {
		out = append(out, fmt.Sprintf("interface %q;", n))
	}
	out = append(out, "}")
	return append(lines, out...)
}

// filterLines implements the exclude-CIDR filter rule: an empty list
// degrades to "<direction> all;" style usage upstream (see usage() below);
// a non-empty list defines a named set and a filter that accepts iff
// net is not a member of it.
func filterLines(name string, excludeCIDRs []string) []string {
	if len(excludeCIDRs) == 0 {
		return []string{fmt.Sprintf("# %s: no excludes, using implicit all", name)}
	}
	setName := strings.ToUpper(name) + "_EXCLUDE"
	cidrs := append([]string(nil), excludeCIDRs...)
	sort.Strings(cidrs)
	lines := []string{fmt.Sprintf("define %s = [", setName)}
	for i, c := range cidrs {
		suffix := ","
		if i == len(cidrs)-1 {
			suffix = ""
		}
		lines = append(lines, fmt.Sprintf("%s%s", c, suffix))
	}
	lines = append(lines, "];")
	lines = append(lines, fmt.Sprintf("filter %s {", name))
	lines = append(lines, fmt.Sprintf("if net !~ %s then accept;", setName))
	lines = append(lines, "reject;")
	lines = append(lines, "}")
	return lines
}

// usage returns the import/export clause for a filter name, honoring the
// "empty list means all" rule.
func usage(direction, name string, excludeCIDRs []string) string {
	if len(excludeCIDRs) == 0 {
		return fmt.Sprintf("%s all;", direction)
	}
	return fmt.Sprintf("%s filter %s;", direction, name)
}

func ospfProtocolLines(in Input) []string {
	lines := []string{"protocol ospf v2 {"}
	lines = append(lines, usage("import", "ospf_import", in.OSPFImportExcludeCIDRs))
	lines = append(lines, usage("export", "ospf_export", in.OSPFExportExcludeCIDRs))

	areaIDs := make([]string, 0, len(in.OSPFAreaConfig))
	for id := range in.OSPFAreaConfig {
		areaIDs = append(areaIDs, id)
	}
	sort.Strings(areaIDs)

	for _, areaID := range areaIDs {
		lines = append(lines, fmt.Sprintf("area %s {", areaID))
		ifaces := in.OSPFAreaConfig[areaID]
		names := make([]string, 0, len(ifaces))
		for ifname := range ifaces {
			names = append(names, ifname)
		}
		sort.Strings(names)
		for _, ifname := range names {
			lines = append(lines, ospfInterfaceLines(ifname, ifaces[ifname], in.BFDConfig)...)
		}
		lines = append(lines, "};")
	}
	lines = append(lines, "}")
	return lines
}

func ospfInterfaceLines(ifname string, cfg OSPFIfaceConfig, bfd map[string]BFDIfaceConfig) []string {
	lines := []string{fmt.Sprintf("interface %q {", ifname)}
	if cfg.Cost != nil {
		lines = append(lines, fmt.Sprintf("cost %d;", *cfg.Cost))
	}
	if cfg.Type != "" {
		lines = append(lines, fmt.Sprintf("type %s;", cfg.Type))
	}
	if _, ok := bfd[ifname]; ok {
		lines = append(lines, "bfd yes;")
	}
	if cfg.Auth != "" {
		lines = append(lines, "authentication cryptographic;")
		lines = append(lines, "password \""+cfg.Auth+"\" {")
		lines = append(lines, "algorithm hmac sha512;")
		lines = append(lines, "};")
	}
	lines = append(lines, "};")
	return lines
}

func bfdProtocolLines(in Input) []string {
	if len(in.BFDConfig) == 0 {
		return nil
	}
	names := make([]string, 0, len(in.BFDConfig))
	for ifname := range in.BFDConfig {
		names = append(names, ifname)
	}
	sort.Strings(names)

	lines := []string{"protocol bfd {"}
	for _, ifname := range names {
		cfg := in.BFDConfig[ifname]
		lines = append(lines, fmt.Sprintf("interface %q {", ifname))
		if cfg.IntervalMs != nil {
			lines = append(lines, msLine("interval", *cfg.IntervalMs))
		}
		if cfg.RxMs != nil {
			lines = append(lines, msLine("min rx", *cfg.RxMs))
		}
		if cfg.TxMs != nil {
			lines = append(lines, msLine("min tx", *cfg.TxMs))
		}
		if cfg.IdleMs != nil {
			lines = append(lines, msLine("idle tx", *cfg.IdleMs))
		}
		if cfg.Multiplier != nil {
			lines = append(lines, fmt.Sprintf("multiplier %d;", *cfg.Multiplier))
		}
		lines = append(lines, "};")
	}
	lines = append(lines, "}")
	return lines
}

func msLine(keyword string, ms int) string {
	return fmt.Sprintf("%s %sms;", keyword, strconv.Itoa(ms))
}

// reformat re-indents a flat list of statement/brace lines by tracking
// brace depth: a line opening with "}" dedents before being printed, a
// line ending in "{" indents every line after it.
func reformat(lines []string) string {
	var out strings.Builder
	depth := 0
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			out.WriteString("\n")
			continue
		}
		if strings.HasPrefix(line, "}") {
			depth--
			if depth < 0 {
				depth = 0
			}
		}
		out.WriteString(strings.Repeat("  ", depth))
		out.WriteString(line)
		out.WriteString("\n")
		if strings.HasSuffix(line, "{") {
			depth++
		}
	}
	return out.String()
}
