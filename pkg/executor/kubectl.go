// Package executor applies optimization plan commands to a live cluster.
package executor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/clustermind/k8s-resource-advisor/pkg/optimizer"
)

// Kubectl runs plan commands through the kubectl binary. It implements the
// optimizer.CommandRunner seam: one command, one invocation. Retries and
// rollout watches are the operator's job, not the runner's.
type Kubectl struct {
	path string
	log  *zap.Logger

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

var _ optimizer.CommandRunner = (*Kubectl)(nil)

// NewKubectl returns a runner invoking the given binary, falling back to
// kubectl on PATH.
func NewKubectl(path string, logger *zap.Logger) *Kubectl {
	if path == "" {
		path = "kubectl"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	k := &Kubectl{path: path, log: logger}
	k.run = k.execRun
	return k
}

func (k *Kubectl) execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Run executes one command string. Plan commands are generated, not typed, so
// splitting on whitespace is safe; anything other than kubectl is refused.
func (k *Kubectl) Run(ctx context.Context, command string) error {
	args := strings.Fields(command)
	if len(args) == 0 {
		return fmt.Errorf("empty command")
	}
	if args[0] != "kubectl" {
		return fmt.Errorf("refusing to run non-kubectl command %q", args[0])
	}

	k.log.Info("applying command", zap.String("command", command))

	output, err := k.run(ctx, k.path, args[1:]...)
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("command failed: %w: %s", err, msg)
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}
