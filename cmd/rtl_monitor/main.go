// Command rtl_monitor lists attached RTL-SDR dongles and, optionally,
// host resource usage, to help judge whether the host can sustain
// rtl_tcp's bulk-read throughput before starting a server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"rtlsdr/internal/rtl"
)

type deviceRow struct {
	Index        int    `json:"index"`
	VID          string `json:"vid"`
	PID          string `json:"pid"`
	Description  string `json:"description"`
	Manufacturer string `json:"manufacturer"`
	Product      string `json:"product"`
	Serial       string `json:"serial"`
}

type hostStats struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemTotal    uint64  `json:"mem_total_bytes"`
	MemUsed     uint64  `json:"mem_used_bytes"`
	MemPercent  float64 `json:"mem_percent"`
}

type report struct {
	Devices []deviceRow `json:"devices"`
	Host    *hostStats  `json:"host,omitempty"`
}

func main() {
	withHost := flag.Bool("host", false, "also report host CPU/memory usage")
	asJSON := flag.Bool("json", false, "print as JSON instead of a table")
	flag.Parse()

	devices, err := rtl.ListDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtl_monitor: %v\n", err)
		os.Exit(1)
	}

	rep := report{}
	for _, d := range devices {
		rep.Devices = append(rep.Devices, deviceRow{
			Index:        d.Index,
			VID:          fmt.Sprintf("%04x", d.VID),
			PID:          fmt.Sprintf("%04x", d.PID),
			Description:  d.Description,
			Manufacturer: d.Manufacturer,
			Product:      d.Product,
			Serial:       d.Serial,
		})
	}

	if *withHost {
		stats, err := hostStatsSnapshot()
		if err != nil {
			fmt.Fprintf(os.Stderr, "rtl_monitor: host stats unavailable: %v\n", err)
		} else {
			rep.Host = stats
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(rep)
		return
	}

	printTable(rep)
}

func hostStatsSnapshot() (*hostStats, error) {
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return nil, err
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}
	var cpuPct float64
	if len(percents) > 0 {
		cpuPct = percents[0]
	}
	return &hostStats{
		CPUPercent: cpuPct,
		MemTotal:   vm.Total,
		MemUsed:    vm.Used,
		MemPercent: vm.UsedPercent,
	}, nil
}

func printTable(rep report) {
	if len(rep.Devices) == 0 {
		fmt.Println("no rtl-sdr devices found")
	} else {
		fmt.Printf("%-6s%-6s%-6s%-40s%-20s%-20s%s\n", "INDEX", "VID", "PID", "DESCRIPTION", "MANUFACTURER", "PRODUCT", "SERIAL")
		for _, d := range rep.Devices {
			fmt.Printf("%-6d%-6s%-6s%-40s%-20s%-20s%s\n", d.Index, d.VID, d.PID, d.Description, d.Manufacturer, d.Product, d.Serial)
		}
	}
	if rep.Host != nil {
		fmt.Printf("\nhost: cpu=%.1f%% mem=%.1f%% (%d/%d MiB)\n",
			rep.Host.CPUPercent, rep.Host.MemPercent,
			rep.Host.MemUsed/1024/1024, rep.Host.MemTotal/1024/1024)
	}
}
