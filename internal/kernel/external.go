package kernel

import (
	"context"
	"fmt"
	"runtime"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/lifecycle"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/logging"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/platform"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/shellrunner"
)

// componentLogWriter forwards a phase's captured output to the ambient
// logger, one Write call per line the child flushes, tagged with the
// owning component and phase so interleaved output from concurrent
// components stays attributable.
type componentLogWriter struct {
	component string
	phase     string
	stderr    bool
}

func (w componentLogWriter) Write(p []byte) (int, error) {
	event := logging.Info()
	if w.stderr {
		event = logging.Warn()
	}
	event.Str("component", w.component).Str("phase", w.phase).Msg(string(p))
	return len(p), nil
}

// shellInvocation returns the shell and flag used to run an arbitrary
// command string on the current host.
func shellInvocation() (string, string) {
	if runtime.GOOS == "windows" {
		return "cmd", "/C"
	}
	return "/bin/sh", "-c"
}

// buildExternalPhases turns a recipe's per-platform command strings into a
// lifecycle.PhaseSet, resolving each phase's best command via rank and
// running it through runner. A phase with no matching command for the
// current platform is a no-op, matching lifecycle.Phase's nil convention.
func buildExternalPhases(recipe Recipe, runner shellrunner.Runner, rank platform.Rank) lifecycle.PhaseSet {
	return lifecycle.PhaseSet{
		Install:  buildPhase(recipe, "install", runner, rank),
		Startup:  buildPhase(recipe, "startup", runner, rank),
		Run:      buildPhase(recipe, "run", runner, rank),
		Shutdown: buildPhase(recipe, "shutdown", runner, rank),
	}
}

func buildPhase(recipe Recipe, phaseName string, runner shellrunner.Runner, rank platform.Rank) lifecycle.Phase {
	commands, ok := recipe.Phases[phaseName]
	if !ok || len(commands) == 0 {
		return nil
	}

	candidates := make([]string, 0, len(commands))
	for tag := range commands {
		candidates = append(candidates, tag)
	}
	tag, ok := platform.Resolve(candidates, rank)
	if !ok {
		return nil
	}
	command := commands[tag]
	timeout := recipe.Timeouts[phaseName]

	shell, flag := shellInvocation()
	return func(ctx context.Context) error {
		result, err := runner.Run(ctx, shellrunner.Spec{
			Command: shell,
			Args:    []string{flag, command},
			Timeout: timeout,
			Stdout:  componentLogWriter{component: recipe.Name, phase: phaseName},
			Stderr:  componentLogWriter{component: recipe.Name, phase: phaseName, stderr: true},
		})
		if err != nil {
			return fmt.Errorf("kernel: %s/%s: %w", recipe.Name, phaseName, err)
		}
		if result.TimedOut {
			return fmt.Errorf("timeout in %s", phaseName)
		}
		if result.ExitCode != 0 {
			return fmt.Errorf("kernel: %s/%s: exit code %d", recipe.Name, phaseName, result.ExitCode)
		}
		return nil
	}
}
