package system

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Usage - снимок потребления ресурсов процессом и системой.
type Usage struct {
	ProcessRSS    uint64
	ProcessCPU    float64
	SystemUsedPct float64
	SystemTotal   uint64
	Goroutines    int
	LayerGets     int64
	LayerAllocs   int64
}

// Snapshot собирает метрики через gopsutil. Ошибки отдельных метрик
// не фатальны: соответствующее поле остаётся нулевым.
func Snapshot() Usage {
	u := Usage{Goroutines: runtime.NumGoroutine()}
	u.LayerGets, u.LayerAllocs = PoolStats()

	if vm, err := mem.VirtualMemory(); err == nil {
		u.SystemUsedPct = vm.UsedPercent
		u.SystemTotal = vm.Total
	}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			u.ProcessRSS = mi.RSS
		}
		if pct, err := p.CPUPercent(); err == nil {
			u.ProcessCPU = pct
		}
	}
	return u
}

// Stage - именованный этап конвейера с длительностью.
type Stage struct {
	Name     string
	Duration time.Duration
}

// Report форматирует отчёт о производительности.
func Report(build string, total time.Duration, frames int, stages []Stage, u Usage) string {
	var b strings.Builder
	b.WriteString("--- [PERFORMANCE REPORT] ---\n")
	fmt.Fprintf(&b, "Build: %s\n", build)
	fmt.Fprintf(&b, "Total Time: %.2fs\n", total.Seconds())
	for _, s := range stages {
		fmt.Fprintf(&b, "%s: %.2fs\n", s.Name, s.Duration.Seconds())
	}
	if total > 0 && frames > 0 {
		fmt.Fprintf(&b, "Effective FPS: %.2f\n", float64(frames)/total.Seconds())
	}
	fmt.Fprintf(&b, "Process RSS: %.1f MiB | CPU: %.1f%%\n", float64(u.ProcessRSS)/(1<<20), u.ProcessCPU)
	fmt.Fprintf(&b, "System Memory: %.1f%% of %.1f GiB\n", u.SystemUsedPct, float64(u.SystemTotal)/(1<<30))
	fmt.Fprintf(&b, "CPU cores: %d | Goroutines: %d\n", cpuCores(), u.Goroutines)
	if u.LayerGets > 0 {
		fmt.Fprintf(&b, "Warp layers: %d (allocated %d)\n", u.LayerGets, u.LayerAllocs)
	}
	b.WriteString("----------------------------\n")
	return b.String()
}

func cpuCores() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// AppendBenchmark дописывает строку в benchmark.log.
func AppendBenchmark(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), line)
	return err
}
