// Package sysmetrics samples host CPU, memory, and network interface state
// for the telemetry stream.
package sysmetrics

import (
	"context"
	"log"
	"net"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
)

// Memory mirrors the virtual memory fields the dashboard consumes.
type Memory struct {
	Total     uint64  `json:"total"`
	Available uint64  `json:"available"`
	Used      uint64  `json:"used"`
	Percent   float64 `json:"percent"`
}

// Addr is one IPv4 address bound to an interface.
type Addr struct {
	IP      string `json:"ip"`
	Netmask string `json:"netmask"`
}

// Metrics is one host snapshot.
type Metrics struct {
	CPUUsage float64           `json:"cpu_usage"`
	Memory   Memory            `json:"memory"`
	Network  map[string][]Addr `json:"network"`
}

// Sampler caches the CPU percentage from a background loop, because a
// meaningful CPU reading needs a measurement interval and the telemetry tick
// must not block on one.
type Sampler struct {
	percent func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)

	mu         sync.RWMutex
	cpuPercent float64
}

// NewSampler returns a sampler with a zero CPU reading until Run has
// completed its first interval.
func NewSampler() *Sampler {
	return &Sampler{percent: cpu.PercentWithContext}
}

// Run refreshes the cached CPU percentage once per second until ctx is
// cancelled. A sampling error waits out the measurement interval before
// retrying, since on an unsupported host the error returns immediately.
func (s *Sampler) Run(ctx context.Context) {
	for {
		pct, err := s.percent(ctx, time.Second, false)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("cpu sample error: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if len(pct) > 0 {
			s.mu.Lock()
			s.cpuPercent = pct[0]
			s.mu.Unlock()
		}
	}
}

// Snapshot assembles a metrics record without blocking on any measurement.
func (s *Sampler) Snapshot() Metrics {
	s.mu.RLock()
	cpuPct := s.cpuPercent
	s.mu.RUnlock()

	m := Metrics{
		CPUUsage: cpuPct,
		Network:  make(map[string][]Addr),
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		log.Printf("memory sample error: %v", err)
	} else {
		m.Memory = Memory{
			Total:     vm.Total,
			Available: vm.Available,
			Used:      vm.Used,
			Percent:   vm.UsedPercent,
		}
	}

	ifaces, err := psnet.Interfaces()
	if err != nil {
		log.Printf("network sample error: %v", err)
		return m
	}
	for _, iface := range ifaces {
		var addrs []Addr
		for _, a := range iface.Addrs {
			ip, ipnet, err := net.ParseCIDR(a.Addr)
			if err != nil || ip.To4() == nil {
				continue
			}
			mask := net.IP(ipnet.Mask)
			addrs = append(addrs, Addr{IP: ip.String(), Netmask: mask.String()})
		}
		if len(addrs) > 0 {
			m.Network[iface.Name] = addrs
		}
	}
	return m
}
