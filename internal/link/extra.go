package link

import (
	"context"
	"fmt"

	"meshnoded/internal/proc"
)

// CreateDummy creates a dummy interface in ns with addrCIDR assigned and
// brings it up. Dummy links back exit-node/anycast addressing that doesn't
// need a real peer on the other end.
func (m *Manager) CreateDummy(ctx context.Context, ns, name, addrCIDR string) error {
	if _, err := m.Invoker.RunChecked(ctx, proc.SudoWrap([]string{"ip", "link", "add", name, "type", "dummy"}), nil); err != nil {
		return fmt.Errorf("create dummy link %s: %w", name, err)
	}
	if ns != "" {
		if _, err := m.Invoker.RunChecked(ctx, proc.SudoWrap([]string{"ip", "link", "set", name, "netns", ns}), nil); err != nil {
			return fmt.Errorf("move %s into netns %s: %w", name, ns, err)
		}
	}
	if addrCIDR != "" {
		if _, err := m.Invoker.RunChecked(ctx, m.ip(ns, "addr", "add", addrCIDR, "dev", name), nil); err != nil {
			return fmt.Errorf("assign address %s to %s: %w", addrCIDR, name, err)
		}
	}
	_, err := m.Invoker.RunChecked(ctx, m.ip(ns, "link", "set", name, "up"), nil)
	return err
}

// CreateGRE creates a GRE tunnel device in ns between local and remote
// endpoints and brings it up.
func (m *Manager) CreateGRE(ctx context.Context, ns, name, local, remote string) error {
	if _, err := m.Invoker.RunChecked(ctx, proc.SudoWrap([]string{
		"ip", "link", "add", name, "type", "gre", "local", local, "remote", remote,
	}), nil); err != nil {
		return fmt.Errorf("create gre link %s: %w", name, err)
	}
	if ns != "" {
		if _, err := m.Invoker.RunChecked(ctx, proc.SudoWrap([]string{"ip", "link", "set", name, "netns", ns}), nil); err != nil {
			return fmt.Errorf("move %s into netns %s: %w", name, ns, err)
		}
	}
	_, err := m.Invoker.RunChecked(ctx, m.ip(ns, "link", "set", name, "up"), nil)
	return err
}
