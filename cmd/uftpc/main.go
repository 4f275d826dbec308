// Command uftpc is a one-shot CLI front end over the UFTE client core:
// remote cd/ls/rm, file transfer up/down, and reboot. The interactive
// shell itself is out of scope here; this is the thinnest exerciser of
// pkg/client that still covers the external CLI surface from spec §6.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ufte/uftpc/internal/config"
	"github.com/ufte/uftpc/pkg/client"
	"github.com/ufte/uftpc/pkg/telemetry"
)

var (
	portFlag      = flag.String("port", "", "serial device path")
	baudFlag      = flag.Int("baud", 0, "baud rate (0 = use profile/default)")
	rtsctsFlag    = flag.Bool("rtscts", true, "assert the RTS line on open (output is not gated on CTS)")
	timeoutFlag   = flag.Duration("timeout", 0, "per-request timeout (0 = use profile/default)")
	configFlag    = flag.String("config", "", "YAML session profile path")
	redisAddrFlag = flag.String("redis-addr", "", "Redis address; enables the telemetry sink when set")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	if err := run(flag.Args()); err != nil {
		log.Printf("uftpc: %v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: uftpc [flags] <remote cd|ls|rm PATH | transfer up|down LOCAL REMOTE | reboot | sync>")
	}

	profile := config.Default()
	if *configFlag != "" {
		p, err := config.Load(*configFlag)
		if err != nil {
			return err
		}
		profile = p
	}
	if *portFlag != "" {
		profile.Port = *portFlag
	}
	if *baudFlag != 0 {
		profile.Baud = *baudFlag
	}
	if *timeoutFlag != 0 {
		profile.TimeoutSeconds = int(timeoutFlag.Seconds())
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "rtscts" {
			profile.RTSCTS = *rtsctsFlag
		}
	})

	if profile.Port == "" {
		return fmt.Errorf("no serial port given (--port or --config)")
	}

	var sink *telemetry.Sink
	if *redisAddrFlag != "" {
		s, err := telemetry.New(*redisAddrFlag, "", 0)
		if err != nil {
			return fmt.Errorf("connect telemetry sink: %w", err)
		}
		defer s.Close()
		sink = s
	}

	opts := client.Options{
		Port:      profile.Port,
		Baud:      profile.Baud,
		RTSCTS:    profile.RTSCTS,
		Timeout:   profile.Timeout(),
		ChunkSize: profile.ChunkSize,
	}
	if sink != nil {
		opts.Sink = sink
	}

	sess, err := client.Open(opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Sync(profile.Timeout(), 0); err != nil {
		return err
	}

	return dispatch(sess, args)
}

func dispatch(sess *client.Session, args []string) error {
	switch args[0] {
	case "sync":
		log.Printf("sync ok")
		return nil
	case "reboot":
		return sess.Reboot()
	case "remote":
		return dispatchRemote(sess, args[1:])
	case "transfer":
		return dispatchTransfer(sess, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func dispatchRemote(sess *client.Session, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: remote cd|ls|rm PATH")
	}
	sub, path := args[0], args[1]

	switch sub {
	case "cd":
		return sess.Cd(path)
	case "ls":
		entries, err := sess.Ls(path)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s\t%s\t%d\n", e.Type, e.Name, e.Size)
		}
		return nil
	case "rm":
		return sess.Rm(path)
	default:
		return fmt.Errorf("unknown remote subcommand %q", sub)
	}
}

func dispatchTransfer(sess *client.Session, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: transfer up|down LOCAL REMOTE")
	}
	direction, local, remote := args[0], args[1], args[2]

	start := time.Now()
	err := sess.Transfer(direction, local, remote, func(sent, total int64) {
		_ = total
		log.Printf("transfer: %d bytes", sent)
	})
	if err != nil {
		return err
	}
	log.Printf("transfer complete in %s", time.Since(start))
	return nil
}
