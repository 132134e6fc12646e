package reconcile

import (
	"context"
	"fmt"
	"net"

	"github.com/miekg/dns"
)

// resolveHostIPv4First resolves host via the system resolver, preferring an
// A record and falling back to AAAA (spec step 8: "resolve peer endpoint
// host via DNS (IPv4 first)") — net.LookupHost doesn't expose control over
// record-type ordering the way a direct query does.
func resolveHostIPv4First(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cfg.Servers) == 0 {
		return "", fmt.Errorf("resolve %s: load resolver config: %w", host, err)
	}
	server := net.JoinHostPort(cfg.Servers[0], cfg.Port)
	client := &dns.Client{}

	if ip, err := queryAddress(ctx, client, server, host, dns.TypeA); err == nil && ip != "" {
		return ip, nil
	}
	ip, err := queryAddress(ctx, client, server, host, dns.TypeAAAA)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", host, err)
	}
	if ip == "" {
		return "", fmt.Errorf("resolve %s: no addresses found", host)
	}
	return ip, nil
}

func queryAddress(ctx context.Context, client *dns.Client, server, host string, qtype uint16) (string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	reply, _, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return "", err
	}
	for _, ans := range reply.Answer {
		switch rec := ans.(type) {
		case *dns.A:
			return rec.A.String(), nil
		case *dns.AAAA:
			return rec.AAAA.String(), nil
		}
	}
	return "", nil
}
