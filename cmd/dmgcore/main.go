// Command dmgcore runs a ROM headlessly against the core and reports on its
// serial output, for automated test-ROM harnesses (blargg, mooneye, etc.)
// that signal pass/fail over the link-cable port.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nilsvoss/dmgcore/internal/core"
)

var (
	failRe  = regexp.MustCompile(`(?i)failed\s+(\d+)\s+tests?`)
	stageRe = regexp.MustCompile(`\b(\d{2}:\d{2})\b`)
)

func main() {
	app := &cli.App{
		Name:  "dmgcore",
		Usage: "run a Game Boy ROM headlessly against the core",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "rom", Required: true, Usage: "path to the ROM (.gb/.gbc)"},
			&cli.StringFlag{Name: "bootrom", Usage: "optional 256-byte DMG boot ROM to run from 0x0000 until FF50 disables it"},
			&cli.IntFlag{Name: "steps", Value: 5_000_000, Usage: "max CPU steps to run"},
			&cli.BoolFlag{Name: "trace", Usage: "log PC/registers for every step"},
			&cli.StringFlag{Name: "until", Value: "Passed", Usage: "stop when serial output contains this substring, case-insensitive; empty disables"},
			&cli.BoolFlag{Name: "auto", Usage: "auto-detect 'Passed' / 'Failed N tests' in serial output and exit 0/1"},
			&cli.DurationFlag{Name: "timeout", Usage: "optional wall-clock timeout, e.g. 30s; 0 disables"},
			&cli.IntFlag{Name: "log-level", Value: int(slog.LevelInfo), Usage: "slog level (-4 debug, 0 info, 4 warn, 8 error)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("dmgcore failed", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(c.Int("log-level")),
	}))

	rom, err := os.ReadFile(c.String("rom"))
	if err != nil {
		return fmt.Errorf("read rom: %w", err)
	}

	m, err := core.New(rom, core.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("construct machine: %w", err)
	}

	if bootPath := c.String("bootrom"); bootPath != "" {
		boot, err := os.ReadFile(bootPath)
		if err != nil {
			return fmt.Errorf("read bootrom: %w", err)
		}
		if err := m.SetBootROM(boot); err != nil {
			return fmt.Errorf("install bootrom: %w", err)
		}
	}

	auto := c.Bool("auto")
	until := c.String("until")
	trace := c.Bool("trace")
	steps := c.Int("steps")

	var deadline time.Time
	if d := c.Duration("timeout"); d > 0 {
		deadline = time.Now().Add(d)
	}

	start := time.Now()
	lastStage := ""
	lastSerialLen := 0

	for i := 0; i < steps; i++ {
		if trace {
			regs := m.Registers()
			logger.Debug("step", "pc", fmt.Sprintf("%04X", regs.PC), "sp", fmt.Sprintf("%04X", regs.SP),
				"a", regs.A, "f", regs.F, "ime", regs.IME, "halted", regs.Halted)
		}
		m.Step()

		if (auto || until != "") && len(m.SerialOutput()) != lastSerialLen {
			out := m.SerialOutput()
			lastSerialLen = len(out)
			s := string(out)

			if auto {
				if mm := stageRe.FindAllString(s, -1); len(mm) > 0 {
					lastStage = mm[len(mm)-1]
				}
				if strings.Contains(strings.ToLower(s), "passed") {
					reportDone(logger, "PASS detected in serial output", lastStage, i+1, time.Since(start))
					os.Exit(0)
				}
				if match := failRe.FindStringSubmatch(s); match != nil {
					reportDone(logger, "FAIL detected: "+match[0], lastStage, i+1, time.Since(start))
					os.Exit(1)
				}
			} else if strings.Contains(strings.ToLower(s), strings.ToLower(until)) {
				reportDone(logger, "target substring observed in serial output", "", i+1, time.Since(start))
				return nil
			}
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			reportDone(logger, "timeout", lastStage, i+1, time.Since(start))
			os.Exit(2)
		}
	}

	reportDone(logger, "step budget exhausted", lastStage, steps, time.Since(start))
	return nil
}

func reportDone(logger *slog.Logger, reason, lastStage string, steps int, elapsed time.Duration) {
	logger.Info(reason, "steps", steps, "elapsed", elapsed.Truncate(time.Millisecond), "last_stage", lastStage)
}
