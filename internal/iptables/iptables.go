// Package iptables is the iptables manager (component B): chain existence,
// rule existence/append/insert/delete, and an `iptables-save` dump parser.
//
// Rule-existence checks rely on substring-matching the two kernel error
// strings iptables emits for "this rule/chain doesn't exist" ("Bad rule"
// and "No chain/target/match by that name") rather than a structured exit
// code. That coupling is brittle by nature (design note: a future kernel
// could phrase it differently), so it is wrapped behind the single
// isNotExist predicate below — adapting to a new kernel message means
// editing one function.
package iptables

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"meshnoded/internal/proc"
)

// Manager drives iptables through the external `iptables`/`iptables-save`
// binaries, namespace- and privilege-wrapped per call.
type Manager struct {
	Invoker *proc.Invoker
	Ns      string
}

func (m *Manager) argv(args ...string) []string {
	return proc.SudoWrap(proc.NsWrap(m.Ns, append([]string{"iptables"}, args...)))
}

// isNotExist reports whether stderr indicates "this chain/rule does not
// exist" rather than a genuine failure.
func isNotExist(stderr string) bool {
	return strings.Contains(stderr, "Bad rule") ||
		strings.Contains(stderr, "No chain/target/match by that name")
}

func isChainExists(stderr string) bool {
	return strings.Contains(stderr, "Chain already exists")
}

// ChainExists reports whether table/chain exists.
func (m *Manager) ChainExists(ctx context.Context, table, chain string) (bool, error) {
	res, err := m.Invoker.Run(ctx, m.argv("-t", table, "-L", chain, "-n"), nil)
	if err != nil {
		return false, err
	}
	if res.ExitCode == 0 {
		return true, nil
	}
	if isNotExist(res.Stderr) {
		return false, nil
	}
	return false, &proc.ProcessError{Argv: res.Argv, ExitCode: res.ExitCode, Stderr: res.Stderr}
}

// CreateChain creates table/chain, tolerating "Chain already exists".
func (m *Manager) CreateChain(ctx context.Context, table, chain string) error {
	res, err := m.Invoker.Run(ctx, m.argv("-t", table, "-N", chain), nil)
	if err != nil {
		return err
	}
	if res.ExitCode == 0 || isChainExists(res.Stderr) {
		return nil
	}
	return &proc.ProcessError{Argv: res.Argv, ExitCode: res.ExitCode, Stderr: res.Stderr}
}

// RuleExists reports whether a rule matching ruleArgs exists in table/chain.
func (m *Manager) RuleExists(ctx context.Context, table, chain string, ruleArgs []string) (bool, error) {
	argv := append([]string{"-t", table, "-C", chain}, ruleArgs...)
	res, err := m.Invoker.Run(ctx, m.argv(argv...), nil)
	if err != nil {
		return false, err
	}
	if res.ExitCode == 0 {
		return true, nil
	}
	if isNotExist(res.Stderr) {
		return false, nil
	}
	return false, &proc.ProcessError{Argv: res.Argv, ExitCode: res.ExitCode, Stderr: res.Stderr}
}

// AppendIfMissing appends ruleArgs to table/chain unless an identical rule
// is already present.
func (m *Manager) AppendIfMissing(ctx context.Context, table, chain string, ruleArgs []string) error {
	exists, err := m.RuleExists(ctx, table, chain, ruleArgs)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	argv := append([]string{"-t", table, "-A", chain}, ruleArgs...)
	_, err = m.Invoker.RunChecked(ctx, m.argv(argv...), nil)
	return err
}

// InsertIfMissing inserts ruleArgs at position 1 in table/chain unless an
// identical rule is already present anywhere in the chain.
func (m *Manager) InsertIfMissing(ctx context.Context, table, chain string, ruleArgs []string) error {
	exists, err := m.RuleExists(ctx, table, chain, ruleArgs)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	argv := append([]string{"-t", table, "-I", chain, "1"}, ruleArgs...)
	_, err = m.Invoker.RunChecked(ctx, m.argv(argv...), nil)
	return err
}

// DeleteIfPresent deletes ruleArgs from table/chain if present; a missing
// rule is not an error.
func (m *Manager) DeleteIfPresent(ctx context.Context, table, chain string, ruleArgs []string) error {
	exists, err := m.RuleExists(ctx, table, chain, ruleArgs)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	argv := append([]string{"-t", table, "-D", chain}, ruleArgs...)
	_, err = m.Invoker.RunChecked(ctx, m.argv(argv...), nil)
	return err
}

// Flush flushes table/chain, best-effort: failures are logged and ignored.
func (m *Manager) Flush(ctx context.Context, table, chain string) {
	res, err := m.Invoker.Run(ctx, m.argv("-t", table, "-F", chain), nil)
	if err != nil {
		slog.Warn("iptables: flush failed to start", "table", table, "chain", chain, "err", err)
		return
	}
	if res.ExitCode != 0 && !isNotExist(res.Stderr) {
		slog.Warn("iptables: flush failed", "table", table, "chain", chain, "stderr", res.Stderr)
	}
}

// Dump is the parsed output of `iptables-save`: table name to the list of
// "-A ..." rule lines it contains, in file order.
type Dump map[string][]string

// DumpAll runs `iptables-save` and parses it into a Dump, ignoring table
// header lines (`*table`), chain-default lines (`:CHAIN - [0:0]`), comments,
// and `COMMIT`.
func (m *Manager) DumpAll(ctx context.Context) (Dump, error) {
	out, err := m.Invoker.RunChecked(ctx, proc.SudoWrap(proc.NsWrap(m.Ns, []string{"iptables-save"})), nil)
	if err != nil {
		return nil, fmt.Errorf("iptables-save: %w", err)
	}
	return parseDump(out), nil
}

func parseDump(out string) Dump {
	dump := make(Dump)
	var table string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "*"):
			table = strings.TrimPrefix(trimmed, "*")
			if _, ok := dump[table]; !ok {
				dump[table] = nil
			}
		case strings.HasPrefix(trimmed, ":"):
			continue
		case strings.HasPrefix(trimmed, "#"):
			continue
		case trimmed == "COMMIT":
			continue
		case strings.HasPrefix(trimmed, "-A "):
			if table != "" {
				dump[table] = append(dump[table], trimmed)
			}
		}
	}
	return dump
}

// RulesInChain returns the argument tokens (sans the leading "-A <chain>")
// of every rule in table/chain whose raw line contains tag.
func (m *Manager) RulesInChain(ctx context.Context, table, chain, tag string) ([][]string, error) {
	dump, err := m.DumpAll(ctx)
	if err != nil {
		return nil, err
	}
	prefix := fmt.Sprintf("-A %s ", chain)
	var matches [][]string
	for _, line := range dump[table] {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		if tag != "" && !strings.Contains(line, tag) {
			continue
		}
		rest := strings.TrimPrefix(line, prefix)
		matches = append(matches, splitShellArgs(rest))
	}
	return matches, nil
}

// splitShellArgs splits an iptables-save rule tail into tokens, honoring
// double-quoted comment strings (e.g. -m comment --comment "#peer_ns-1#").
func splitShellArgs(s string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// DeleteRulesByTag deletes every rule in table/chain whose raw dump line
// contains tag, replaying the exact argument spec captured from the dump —
// this is how stale `#local_veth#`/`#peer_{ifname}#` rules are purged.
func (m *Manager) DeleteRulesByTag(ctx context.Context, table, chain, tag string) error {
	rules, err := m.RulesInChain(ctx, table, chain, tag)
	if err != nil {
		return err
	}
	for _, args := range rules {
		argv := append([]string{"-t", table, "-D", chain}, args...)
		if _, err := m.Invoker.RunChecked(ctx, m.argv(argv...), nil); err != nil {
			return fmt.Errorf("delete tagged rule in %s/%s: %w", table, chain, err)
		}
	}
	return nil
}
