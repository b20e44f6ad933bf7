package runner

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/openmined/simlog/internal/revision"
)

// ResolveDir finds the working directory: dir when set, else the path following `-in`
// in command (its parent when it names a file), else the current directory.
func ResolveDir(dir string, command []string) (string, error) {
	if dir == "" {
		for i := 1; i < len(command); i++ {
			if command[i-1] == "-in" {
				dir = command[i]
				break
			}
		}
	}
	if dir == "" {
		dir = "."
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", &revision.PathError{Path: dir, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &revision.PathError{Path: abs, Err: err}
	}
	if !info.IsDir() {
		abs = filepath.Dir(abs)
	}
	return abs, nil
}

func runCommand(ctx context.Context, dir string, command []string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", strings.Join(command, " "))
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// logHostInfo records the machine a simulation ran on. Failures only drop attributes.
func logHostInfo(ctx context.Context) {
	attrs := []any{}

	if info, err := host.InfoWithContext(ctx); err == nil {
		attrs = append(attrs, "host", info.Hostname, "os", info.Platform+" "+info.PlatformVersion, "kernel", info.KernelVersion)
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		attrs = append(attrs, "cpus", n)
	}
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		attrs = append(attrs, "cpu", infos[0].ModelName)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		attrs = append(attrs, "mem_total", humanize.IBytes(vm.Total), "mem_available", humanize.IBytes(vm.Available))
	}

	slog.Info("host", attrs...)
}
