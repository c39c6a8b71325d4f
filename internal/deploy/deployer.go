package deploy

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Step identifies one of the seven ordered deployment steps.
type Step int

const (
	StepConnect Step = iota + 1
	StepDirectories
	StepBinary
	StepLibraries
	StepManifest
	StepPermissions
	StepLaunch
)

// StepCount is the total number of deployment steps.
const StepCount = 7

// Name returns the operator-facing step name.
func (s Step) Name() string {
	switch s {
	case StepConnect:
		return "open ssh session"
	case StepDirectories:
		return "create remote directories"
	case StepBinary:
		return "transfer runtime binary"
	case StepLibraries:
		return "transfer block libraries"
	case StepManifest:
		return "transfer manifest"
	case StepPermissions:
		return "mark binary executable"
	case StepLaunch:
		return "launch runtime"
	default:
		return fmt.Sprintf("step %d", int(s))
	}
}

// Status is the lifecycle of one reported step.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Progress is one entry in the deployment's progress stream.
type Progress struct {
	DeploymentID string
	Step         Step
	Name         string
	Status       Status
	Detail       string
	Err          error
}

// ProgressFunc receives progress entries. It is called from the deploy
// goroutine; implementations must not block for long.
type ProgressFunc func(Progress)

// StepError reports exactly which step failed and why. No rollback is
// attempted: the remote directory may be left partially populated, and
// redeploying simply overwrites it.
type StepError struct {
	Step Step
	Name string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("deploy step %d/%d (%s): %v", int(e.Step), StepCount, e.Name, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Deployer pushes one configured deployment to its target. A Deployer is
// safe to reuse: redeploying against the same target transfers the same
// file set and leaves the same remote layout.
type Deployer struct {
	cfg  *Config
	dial func(*Config) (Session, error)

	mu  sync.Mutex
	pid int
}

// New creates a Deployer for the given target configuration.
func New(cfg *Config) *Deployer {
	return &Deployer{cfg: cfg, dial: dialSSH}
}

// Pid returns the remote process id captured by the last launch, zero
// when no launch succeeded yet.
func (d *Deployer) Pid() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pid
}

// Deploy runs the seven-step provisioning sequence, reporting each step
// through onProgress. The first failing step aborts the remainder.
// Cancellation is cooperative: the context is checked between steps, an
// in-flight transfer is never interrupted mid-file.
func (d *Deployer) Deploy(ctx context.Context, onProgress ProgressFunc) error {
	if err := d.cfg.Validate(); err != nil {
		return err
	}

	deploymentID := uuid.NewString()
	report := func(p Progress) {
		if onProgress != nil {
			p.DeploymentID = deploymentID
			onProgress(p)
		}
	}

	var sess Session
	step := func(id Step, detail string, fn func() error) error {
		if err := ctx.Err(); err != nil {
			return &StepError{Step: id, Name: id.Name(), Err: err}
		}
		report(Progress{Step: id, Name: id.Name(), Status: StatusRunning, Detail: detail})
		if err := fn(); err != nil {
			stepErr := &StepError{Step: id, Name: id.Name(), Err: err}
			report(Progress{Step: id, Name: id.Name(), Status: StatusFailed, Detail: detail, Err: err})
			return stepErr
		}
		report(Progress{Step: id, Name: id.Name(), Status: StatusDone, Detail: detail})
		return nil
	}

	if err := step(StepConnect, d.cfg.Host, func() error {
		var err error
		sess, err = d.dial(d.cfg)
		return err
	}); err != nil {
		return err
	}
	defer sess.Close()

	root := d.cfg.RemoteRoot
	if err := step(StepDirectories, root, func() error {
		for _, dir := range []string{"bin", "blocks", "manifests", "logs"} {
			if err := sess.MkdirAll(remotePath(root, dir)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	binName := filepath.Base(d.cfg.Binary)
	if err := step(StepBinary, binName, func() error {
		return sess.Upload(d.cfg.Binary, remotePath(root, "bin", binName))
	}); err != nil {
		return err
	}

	if err := step(StepLibraries, fmt.Sprintf("%d libraries", len(d.cfg.Libraries)), func() error {
		for _, lib := range d.cfg.Libraries {
			if err := sess.Upload(lib, remotePath(root, "blocks", filepath.Base(lib))); err != nil {
				return fmt.Errorf("library %s: %w", filepath.Base(lib), err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	manName := filepath.Base(d.cfg.Manifest)
	if err := step(StepManifest, manName, func() error {
		return sess.Upload(d.cfg.Manifest, remotePath(root, "manifests", manName))
	}); err != nil {
		return err
	}

	if err := step(StepPermissions, binName, func() error {
		_, err := sess.Run("chmod +x " + shellQuote(remotePath(root, "bin", binName)))
		return err
	}); err != nil {
		return err
	}

	return step(StepLaunch, manName, func() error {
		pid, err := d.launch(sess, root, binName, manName)
		if err != nil {
			return err
		}
		d.mu.Lock()
		d.pid = pid
		d.mu.Unlock()
		return nil
	})
}

// launch starts the runtime detached against the transferred manifest and
// captures the remote process id, which is also written to a pidfile next
// to the layout for later Stop calls from a fresh Deployer.
func (d *Deployer) launch(sess Session, root, binName, manName string) (int, error) {
	cmd := fmt.Sprintf(
		"cd %s && { nohup ./bin/%s manifests/%s --block-path blocks >> logs/runtime.log 2>&1 & }; echo $! > runtime.pid; cat runtime.pid",
		shellQuote(strings.TrimPrefix(root, "~/")), binName, manName)
	out, err := sess.Run(cmd)
	if err != nil {
		return 0, fmt.Errorf("launch command failed: %w (output: %s)", err, strings.TrimSpace(out))
	}
	pid, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("could not parse remote pid from %q", strings.TrimSpace(out))
	}
	return pid, nil
}

// Stop terminates the remote runtime, best-effort: it prefers the pid
// captured by this Deployer's launch and falls back to the pidfile.
func (d *Deployer) Stop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.cfg.applyDefaults()
	sess, err := d.dial(d.cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	var cmd string
	if pid := d.Pid(); pid > 0 {
		cmd = fmt.Sprintf("kill %d", pid)
	} else {
		pidfile := remotePath(d.cfg.RemoteRoot, "runtime.pid")
		cmd = fmt.Sprintf("kill $(cat %s)", shellQuote(pidfile))
	}
	if out, err := sess.Run(cmd); err != nil {
		return fmt.Errorf("stopping runtime: %w (output: %s)", err, strings.TrimSpace(out))
	}
	return nil
}

// FetchLog streams the remote runtime log into w, independent of whether
// the last deploy succeeded. Useful for post-mortem diagnosis.
func (d *Deployer) FetchLog(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.cfg.applyDefaults()
	sess, err := d.dial(d.cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	logPath := remotePath(d.cfg.RemoteRoot, "logs", "runtime.log")
	r, err := sess.Open(logPath)
	if err != nil {
		return fmt.Errorf("opening remote log %s: %w", path.Base(logPath), err)
	}
	defer r.Close()

	_, err = io.Copy(w, r)
	return err
}
