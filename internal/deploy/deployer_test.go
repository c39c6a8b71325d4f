package deploy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession records the remote protocol exchange in order.
type fakeSession struct {
	calls    []string
	runErr   map[string]error
	uploadEr map[string]error
	runOut   map[string]string
	logBody  string
	closed   bool
}

func (s *fakeSession) Run(cmd string) (string, error) {
	s.calls = append(s.calls, "run: "+cmd)
	for match, err := range s.runErr {
		if strings.Contains(cmd, match) {
			return "", err
		}
	}
	for match, out := range s.runOut {
		if strings.Contains(cmd, match) {
			return out, nil
		}
	}
	return "", nil
}

func (s *fakeSession) MkdirAll(dir string) error {
	s.calls = append(s.calls, "mkdir: "+dir)
	return nil
}

func (s *fakeSession) Upload(localPath, remotePath string) error {
	s.calls = append(s.calls, fmt.Sprintf("upload: %s -> %s", filepath.Base(localPath), remotePath))
	if err := s.uploadEr[filepath.Base(localPath)]; err != nil {
		return err
	}
	return nil
}

func (s *fakeSession) Open(remotePath string) (io.ReadCloser, error) {
	s.calls = append(s.calls, "open: "+remotePath)
	if s.logBody == "" {
		return nil, fmt.Errorf("no such file")
	}
	return io.NopCloser(strings.NewReader(s.logBody)), nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// testConfig materializes local artifacts in a temp dir so Validate's
// file checks pass.
func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()

	write := func(name string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("artifact"), 0o600))
		return p
	}

	return &Config{
		Host:     "bench-pi.local",
		User:     "pi",
		Password: "raspberry",
		Binary:   write("runtime"),
		Manifest: write("line3.json"),
		Libraries: []string{
			write("libimu-1.0.0.so"),
			write("libfilter-1.2.0.so"),
		},
	}
}

func newTestDeployer(cfg *Config, sess *fakeSession) *Deployer {
	d := New(cfg)
	d.dial = func(*Config) (Session, error) { return sess, nil }
	return d
}

func TestDeploySequence(t *testing.T) {
	cfg := testConfig(t)
	sess := &fakeSession{runOut: map[string]string{"nohup": "4242\n"}}
	d := newTestDeployer(cfg, sess)

	var steps []Step
	var statuses []Status
	var id string
	err := d.Deploy(context.Background(), func(p Progress) {
		if id == "" {
			id = p.DeploymentID
		}
		assert.Equal(t, id, p.DeploymentID, "one deployment, one id")
		if p.Status == StatusRunning {
			steps = append(steps, p.Step)
		}
		statuses = append(statuses, p.Status)
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.True(t, sess.closed)
	assert.Equal(t, 4242, d.Pid())

	assert.Equal(t, []Step{
		StepConnect, StepDirectories, StepBinary, StepLibraries,
		StepManifest, StepPermissions, StepLaunch,
	}, steps)
	for _, st := range statuses {
		assert.NotEqual(t, StatusFailed, st)
	}

	want := []string{
		"mkdir: cira-runtime/bin",
		"mkdir: cira-runtime/blocks",
		"mkdir: cira-runtime/manifests",
		"mkdir: cira-runtime/logs",
		"upload: runtime -> cira-runtime/bin/runtime",
		"upload: libimu-1.0.0.so -> cira-runtime/blocks/libimu-1.0.0.so",
		"upload: libfilter-1.2.0.so -> cira-runtime/blocks/libfilter-1.2.0.so",
		"upload: line3.json -> cira-runtime/manifests/line3.json",
		"run: chmod +x 'cira-runtime/bin/runtime'",
	}
	require.GreaterOrEqual(t, len(sess.calls), len(want)+1)
	assert.Equal(t, want, sess.calls[:len(want)])

	launch := sess.calls[len(sess.calls)-1]
	assert.Contains(t, launch, "nohup ./bin/runtime manifests/line3.json --block-path blocks")
	assert.Contains(t, launch, "runtime.pid")
}

func TestDeployFailureAbortsRemainingSteps(t *testing.T) {
	cfg := testConfig(t)
	sess := &fakeSession{uploadEr: map[string]error{
		"libfilter-1.2.0.so": fmt.Errorf("connection reset"),
	}}
	d := newTestDeployer(cfg, sess)

	var failed []Step
	err := d.Deploy(context.Background(), func(p Progress) {
		if p.Status == StatusFailed {
			failed = append(failed, p.Step)
		}
	})

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepLibraries, stepErr.Step)
	assert.Contains(t, stepErr.Error(), "4/7")
	assert.Equal(t, []Step{StepLibraries}, failed)

	assert.True(t, sess.closed)
	assert.Zero(t, d.Pid())
	for _, call := range sess.calls {
		assert.NotContains(t, call, "chmod", "later steps must not run after a failure")
		assert.NotContains(t, call, "nohup")
	}
}

func TestRedeployTransfersSameFileSet(t *testing.T) {
	cfg := testConfig(t)
	first := &fakeSession{runOut: map[string]string{"nohup": "100\n"}}
	d := newTestDeployer(cfg, first)
	require.NoError(t, d.Deploy(context.Background(), nil))

	second := &fakeSession{runOut: map[string]string{"nohup": "200\n"}}
	d.dial = func(*Config) (Session, error) { return second, nil }
	require.NoError(t, d.Deploy(context.Background(), nil))

	assert.Equal(t, first.calls, second.calls, "redeploy repeats the same remote sequence")
	assert.Equal(t, 200, d.Pid())
}

func TestDeployBadPidOutput(t *testing.T) {
	cfg := testConfig(t)
	sess := &fakeSession{runOut: map[string]string{"nohup": "no pid here"}}
	d := newTestDeployer(cfg, sess)

	err := d.Deploy(context.Background(), nil)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepLaunch, stepErr.Step)
}

func TestDeployCancelledContext(t *testing.T) {
	cfg := testConfig(t)
	sess := &fakeSession{}
	d := newTestDeployer(cfg, sess)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.Deploy(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sess.calls)
}

func TestStop(t *testing.T) {
	t.Run("uses captured pid", func(t *testing.T) {
		cfg := testConfig(t)
		sess := &fakeSession{runOut: map[string]string{"nohup": "555\n"}}
		d := newTestDeployer(cfg, sess)
		require.NoError(t, d.Deploy(context.Background(), nil))

		require.NoError(t, d.Stop(context.Background()))
		assert.Equal(t, "run: kill 555", sess.calls[len(sess.calls)-1])
	})

	t.Run("falls back to pidfile", func(t *testing.T) {
		cfg := testConfig(t)
		sess := &fakeSession{}
		d := newTestDeployer(cfg, sess)

		require.NoError(t, d.Stop(context.Background()))
		assert.Equal(t, []string{"run: kill $(cat 'cira-runtime/runtime.pid')"}, sess.calls)
	})

	t.Run("reports remote failure", func(t *testing.T) {
		cfg := testConfig(t)
		sess := &fakeSession{runErr: map[string]error{"kill": fmt.Errorf("no such process")}}
		d := newTestDeployer(cfg, sess)

		err := d.Stop(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no such process")
	})
}

func TestDialSeesDefaultedConfig(t *testing.T) {
	dialedPorts := func(d *Deployer, sess *fakeSession) *[]int {
		var ports []int
		d.dial = func(c *Config) (Session, error) {
			ports = append(ports, c.Port)
			assert.NotEmpty(t, c.RemoteRoot, "remote root must be defaulted before dialing")
			return sess, nil
		}
		return &ports
	}

	t.Run("stop", func(t *testing.T) {
		cfg := testConfig(t)
		sess := &fakeSession{}
		d := New(cfg)
		ports := dialedPorts(d, sess)

		require.NoError(t, d.Stop(context.Background()))
		assert.Equal(t, []int{22}, *ports)
	})

	t.Run("fetch log", func(t *testing.T) {
		cfg := testConfig(t)
		sess := &fakeSession{logBody: "log line\n"}
		d := New(cfg)
		ports := dialedPorts(d, sess)

		require.NoError(t, d.FetchLog(context.Background(), io.Discard))
		assert.Equal(t, []int{22}, *ports)
	})
}

func TestFetchLog(t *testing.T) {
	cfg := testConfig(t)
	sess := &fakeSession{logBody: "level=INFO msg=\"Pipeline running.\"\n"}
	d := newTestDeployer(cfg, sess)

	var buf bytes.Buffer
	require.NoError(t, d.FetchLog(context.Background(), &buf))
	assert.Equal(t, sess.logBody, buf.String())
	assert.Equal(t, []string{"open: cira-runtime/logs/runtime.log"}, sess.calls)
}

func TestConfigValidate(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		cfg := testConfig(t)
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 22, cfg.Port)
		assert.Equal(t, DefaultRemoteRoot, cfg.RemoteRoot)
		assert.Equal(t, "linux", cfg.TargetOS)
	})

	t.Run("missing credentials", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Password = ""
		cfg.KeyPath = ""
		assert.ErrorContains(t, cfg.Validate(), "password or key_path")
	})

	t.Run("missing host", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Host = ""
		assert.ErrorContains(t, cfg.Validate(), "host is required")
	})

	t.Run("missing local artifact", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Manifest = filepath.Join(t.TempDir(), "absent.json")
		assert.ErrorContains(t, cfg.Validate(), "local artifact missing")
	})

	t.Run("platform mismatch", func(t *testing.T) {
		cfg := testConfig(t)
		dll := filepath.Join(t.TempDir(), "imu-1.0.0.dll")
		require.NoError(t, os.WriteFile(dll, []byte("x"), 0o600))
		cfg.Libraries = append(cfg.Libraries, dll)
		assert.ErrorContains(t, cfg.Validate(), "does not match target platform")
	})

	t.Run("windows target accepts dll", func(t *testing.T) {
		cfg := testConfig(t)
		dir := t.TempDir()
		dll := filepath.Join(dir, "imu-1.0.0.dll")
		require.NoError(t, os.WriteFile(dll, []byte("x"), 0o600))
		cfg.TargetOS = "windows"
		cfg.Libraries = []string{dll}
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deploy.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
host = "bench-pi.local"
port = 2222
user = "pi"
key_path = "~/.ssh/id_ed25519"
remote_root = "~/cira-runtime"
target_os = "linux"

binary = "./dist/runtime"
manifest = "./line3.json"
libraries = ["./dist/libimu-1.0.0.so"]
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "bench-pi.local", cfg.Host)
	assert.Equal(t, 2222, cfg.Port)
	assert.Equal(t, "~/.ssh/id_ed25519", cfg.KeyPath)
	assert.Equal(t, []string{"./dist/libimu-1.0.0.so"}, cfg.Libraries)

	_, err = LoadConfig(filepath.Join(dir, "absent.toml"))
	assert.Error(t, err)
}
