//go:build ignore

// build.go - co2dash build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: build, test, clean, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fatih/color"
)

const (
	binary  = "co2dash"
	pkg     = "./cmd/co2dash"
	distDir = "dist"
	appPkg  = "co2dash/internal/app"
)

// release platforms as GOOS/GOARCH
var platforms = [][2]string{
	{"linux", "amd64"},
	{"linux", "arm64"},
	{"darwin", "arm64"},
	{"windows", "amd64"},
}

var (
	info    = color.New(color.FgCyan)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
)

func main() {
	target := flag.String("target", "build", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	version := flag.String("version", "dev", "Version stamped into the binary")
	flag.Parse()

	start := time.Now()
	var err error
	switch *target {
	case "build":
		err = build(runtime.GOOS, runtime.GOARCH, *version, *verbose)
	case "test":
		err = run(*verbose, "go", "test", "-race", "./...")
	case "clean":
		err = os.RemoveAll(distDir)
	case "release":
		for _, p := range platforms {
			if err = build(p[0], p[1], *version, *verbose); err != nil {
				break
			}
		}
	default:
		err = fmt.Errorf("unknown target %q", *target)
	}

	if err != nil {
		failure.Fprintf(os.Stderr, "✗ %s failed: %v\n", *target, err)
		os.Exit(1)
	}
	success.Printf("✓ %s finished in %s\n", *target, time.Since(start).Round(time.Millisecond))
}

func build(goos, goarch, version string, verbose bool) error {
	name := binary
	if goos == "windows" {
		name += ".exe"
	}
	out := filepath.Join(distDir, goos+"-"+goarch, name)
	info.Printf("→ building %s\n", out)

	ldflags := fmt.Sprintf("-s -w -X %s.Version=%s -X %s.BuildTime=%s",
		appPkg, version, appPkg, time.Now().UTC().Format(time.RFC3339))

	cmd := exec.Command("go", "build", "-trimpath", "-ldflags", ldflags, "-o", out, pkg)
	cmd.Env = append(os.Environ(), "GOOS="+goos, "GOARCH="+goarch, "CGO_ENABLED=0")
	return runCmd(cmd, verbose)
}

func run(verbose bool, name string, args ...string) error {
	return runCmd(exec.Command(name, args...), verbose)
}

func runCmd(cmd *exec.Cmd, verbose bool) error {
	if verbose {
		info.Printf("$ %v\n", cmd.Args)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
