// Command deployctl provisions a deployment target: it ships the runtime
// binary, block libraries and manifest over SSH/SFTP and manages the
// remote process.
//
// Usage:
//
//	deployctl deploy --config target.toml
//	deployctl stop   --config target.toml
//	deployctl logs   --config target.toml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cira-io/cira-runtime/internal/deploy"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outW io.Writer, args []string) error {
	if len(args) == 0 {
		usage(outW)
		return nil
	}
	command, rest := args[0], args[1:]

	flagSet := flag.NewFlagSet("deployctl "+command, flag.ContinueOnError)
	flagSet.SetOutput(outW)
	configPath := flagSet.String("config", "deploy.toml", "Path to the deployment target TOML file.")
	host := flagSet.String("host", "", "Override the target host.")
	user := flagSet.String("user", "", "Override the SSH user.")
	if err := flagSet.Parse(rest); err != nil {
		return err
	}

	cfg, err := deploy.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *user != "" {
		cfg.User = *user
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deployer := deploy.New(cfg)
	switch command {
	case "deploy":
		err := deployer.Deploy(ctx, func(p deploy.Progress) {
			switch p.Status {
			case deploy.StatusRunning:
				fmt.Fprintf(outW, "[%d/%d] %s (%s)...\n", int(p.Step), deploy.StepCount, p.Name, p.Detail)
			case deploy.StatusDone:
				fmt.Fprintf(outW, "[%d/%d] %s: ok\n", int(p.Step), deploy.StepCount, p.Name)
			case deploy.StatusFailed:
				fmt.Fprintf(outW, "[%d/%d] %s: FAILED: %v\n", int(p.Step), deploy.StepCount, p.Name, p.Err)
			}
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(outW, "deployed, remote pid %d\n", deployer.Pid())
		return nil
	case "stop":
		if err := deployer.Stop(ctx); err != nil {
			return err
		}
		fmt.Fprintln(outW, "stopped")
		return nil
	case "logs":
		return deployer.FetchLog(ctx, outW)
	default:
		usage(outW)
		return fmt.Errorf("unknown command %q", command)
	}
}

func usage(outW io.Writer) {
	fmt.Fprint(outW, `deployctl - ship and manage the block runtime on a remote device.

Commands:
  deploy    Provision the target and launch the runtime.
  stop      Terminate the remote runtime process.
  logs      Fetch the remote runtime log.

Each command accepts --config <target.toml> plus --host/--user overrides.
`)
}
