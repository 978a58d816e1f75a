package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rodaine/table"

	"alfa-scout/config"
	"alfa-scout/internal/capture"
	"alfa-scout/internal/collectlogs"
	"alfa-scout/internal/execx"
	"alfa-scout/internal/iface"
	"alfa-scout/internal/report"
	"alfa-scout/internal/survey"
	"alfa-scout/internal/version"
)

// Exit codes are part of the CLI contract and must stay stable
const (
	exitOK           = 0
	exitFailure      = 1
	exitUsage        = 2
	exitToolNotFound = 3
	exitPermission   = 4
	exitInterface    = 5
	exitScan         = 6
	exitCapture      = 7
)

func printHelp() {
	fmt.Print(`Alfa Scout - field Wi-Fi helper for the Alfa AWUS036ACM (Linux)

Drives iw, ip, and tshark for surveys and authorized captures. Use only on
networks you own or are permitted to test.

Usage: alfa-scout [--config <path>] <command> [flags]

Commands:
  status        Show interface status           --iface <name>
  list-ifaces   List wireless interfaces
  monitor-on    Switch interface to monitor mode   --iface <name>
  monitor-off   Switch interface back to managed   --iface <name>
  survey        Scan and write JSON results     --iface <name> --out <path>
  capture       Bounded packet capture          --iface <name> --out <path>
                                                --seconds <n> [--channel <n>] [--bssid <addr>]
  report        Render Markdown from a survey   --in <path> --out <path> [--top <n>]
  collect-logs  Package logs, reports, and diagnostics into a support zip

Options:
  --config <path>  Config file (default: /etc/alfa-scout/alfa-scout.json, ./alfa-scout.json)
  --version, -v    Print version and exit
  --help, -h       Show this help message and exit

Exit codes:
  0  success (including empty surveys, capture deadline expiry, and Ctrl-C
     during capture)
  1  unclassified failure
  2  usage error
  3  required external tool not found on PATH
  4  permission denied (rerun as root)
  5  interface not found or mode transition failed
  6  scan failed (timeout or unusable survey file)
  7  capture failed
`)
}

func main() {
	args := os.Args[1:]
	configPath := ""
	for len(args) > 0 && strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "--help", "-h":
			printHelp()
			return
		case "--version", "-v":
			fmt.Println(version.Version)
			return
		case "--config":
			if len(args) < 2 {
				fmt.Fprintln(os.Stderr, "--config requires a path")
				os.Exit(exitUsage)
			}
			configPath = args[1]
			args = args[2:]
		default:
			fmt.Fprintf(os.Stderr, "unknown option %s\n", args[0])
			os.Exit(exitUsage)
		}
	}
	if len(args) == 0 {
		printHelp()
		os.Exit(exitUsage)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(exitFailure)
	}
	if err := cfg.InitializeLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(exitFailure)
	}

	color.NoColor = color.NoColor ||
		!isatty.IsTerminal(os.Stdout.Fd()) ||
		os.Getenv("TERM") == "dumb"

	// Ctrl-C cancels the in-flight operation; the capture controller turns
	// this into a clean Cancelled session.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := execx.NewSystem()
	ifaces := iface.NewManager(run)

	command, rest := args[0], args[1:]
	switch command {
	case "status":
		err = cmdStatus(ctx, ifaces, rest)
	case "list-ifaces":
		err = cmdListIfaces(ctx, ifaces, rest)
	case "monitor-on":
		err = cmdMonitor(ctx, ifaces, rest, true)
	case "monitor-off":
		err = cmdMonitor(ctx, ifaces, rest, false)
	case "survey":
		err = cmdSurvey(ctx, run, ifaces, cfg, rest)
	case "capture":
		err = cmdCapture(ctx, run, ifaces, cfg, rest)
	case "report":
		err = cmdReport(cfg, rest)
	case "collect-logs":
		err = cmdCollectLogs(cfg, configPath)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (see --help)\n", command)
		os.Exit(exitUsage)
	}

	if err != nil {
		failure("%v", err)
		os.Exit(exitCodeFor(err))
	}
}

func cmdStatus(ctx context.Context, ifaces *iface.Manager, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	name := fs.String("iface", "wlan0", "wireless interface")
	fs.Parse(args)

	info, err := ifaces.Status(ctx, *name)
	if err != nil {
		return err
	}
	ifaceTable(info).Print()
	return nil
}

func cmdListIfaces(ctx context.Context, ifaces *iface.Manager, args []string) error {
	fs := flag.NewFlagSet("list-ifaces", flag.ExitOnError)
	fs.Parse(args)

	infos, err := ifaces.List(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		warn("no wireless interfaces found")
		return nil
	}
	ifaceTable(infos...).Print()
	return nil
}

func ifaceTable(infos ...iface.Info) table.Table {
	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	tbl := table.New("NAME", "PHY", "MODE", "CHANNEL", "TXPOWER", "LINK")
	tbl.WithHeaderFormatter(headerFmt)
	for _, info := range infos {
		link := "down"
		if info.Up {
			link = "up"
		}
		channel := "?"
		if info.Channel > 0 {
			channel = fmt.Sprintf("%d", info.Channel)
		}
		txpower := info.TxPower
		if txpower == "" {
			txpower = "?"
		}
		tbl.AddRow(info.Name, info.Phy, info.Mode, channel, txpower, link)
	}
	return tbl
}

func cmdMonitor(ctx context.Context, ifaces *iface.Manager, args []string, enable bool) error {
	sub := "monitor-off"
	if enable {
		sub = "monitor-on"
	}
	fs := flag.NewFlagSet(sub, flag.ExitOnError)
	name := fs.String("iface", "wlan0", "wireless interface")
	fs.Parse(args)

	var changed bool
	var err error
	mode := iface.ModeManaged
	if enable {
		mode = iface.ModeMonitor
		changed, err = ifaces.EnableMonitor(ctx, *name)
	} else {
		changed, err = ifaces.DisableMonitor(ctx, *name)
	}
	if err != nil {
		return err
	}
	if changed {
		success("%s set to %s mode.", *name, mode)
	} else {
		success("%s already in %s mode, no transition needed.", *name, mode)
	}
	return nil
}

func cmdSurvey(ctx context.Context, run execx.Runner, ifaces *iface.Manager, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("survey", flag.ExitOnError)
	name := fs.String("iface", "wlan0", "wireless interface")
	out := fs.String("out", filepath.Join(cfg.ReportsDir, "survey.json"), "output JSON path")
	fs.Parse(args)

	engine := survey.NewEngine(run, ifaces, time.Duration(cfg.Scan.TimeoutSeconds)*time.Second)
	res, err := engine.Survey(ctx, *name, *out)
	if err != nil {
		return err
	}
	if res.SkippedBlocks > 0 {
		warn("skipped %d malformed scan block(s)", res.SkippedBlocks)
	}
	success("Survey complete: %d networks -> %s", len(res.Networks), *out)
	return nil
}

func cmdCapture(ctx context.Context, run execx.Runner, ifaces *iface.Manager, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	name := fs.String("iface", "wlan0", "wireless interface")
	out := fs.String("out", filepath.Join(cfg.ReportsDir, "handshake.pcapng"), "capture file path")
	seconds := fs.Int("seconds", cfg.Capture.DefaultSeconds, "capture duration in seconds")
	channel := fs.Int("channel", 0, "set channel before capture")
	bssid := fs.String("bssid", "", "target BSSID filter to narrow capture")
	fs.Parse(args)

	if err := config.ValidateInterfaceName(*name); err != nil {
		return err
	}

	ctrl := capture.NewController(run, ifaces, time.Duration(cfg.Capture.GraceSeconds)*time.Second)
	success("Capturing for %ds on %s -> %s", *seconds, *name, *out)
	sess, err := ctrl.Capture(ctx, capture.Request{
		Iface:      *name,
		Duration:   time.Duration(*seconds) * time.Second,
		Channel:    *channel,
		BSSID:      *bssid,
		OutputPath: *out,
	})
	if err != nil {
		if sess != nil && sess.Stderr != "" {
			fmt.Fprintln(os.Stderr, strings.TrimSpace(sess.Stderr))
		}
		warn("capture output at %s may be missing or incomplete", *out)
		return err
	}

	switch sess.Status {
	case capture.StatusCancelled:
		success("Capture cancelled; partial capture saved to %s", *out)
	default:
		success("Capture saved to %s", *out)
	}
	if sess.ForcedKill {
		warn("capture process had to be killed after the grace period")
	}
	if sess.FileErr != nil {
		warn("capture file check: %v", sess.FileErr)
	}
	return nil
}

func cmdReport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	in := fs.String("in", filepath.Join(cfg.ReportsDir, "survey.json"), "survey JSON input path")
	out := fs.String("out", filepath.Join(cfg.ReportsDir, "survey.md"), "Markdown report output path")
	top := fs.Int("top", cfg.Report.TopN, "number of networks to include (0 = all)")
	fs.Parse(args)

	res, err := survey.Load(*in)
	if err != nil {
		return fmt.Errorf("%w: %w", errBadSurveyFile, err)
	}
	if err := report.Write(res, *top, *out); err != nil {
		return err
	}
	success("Markdown report written to %s", *out)
	return nil
}

func cmdCollectLogs(cfg *config.Config, configPath string) error {
	zipName := fmt.Sprintf("alfa-scout-logs-%s.zip", time.Now().Format("20060102-150405"))
	err := collectlogs.Collect(zipName, collectlogs.Inputs{
		LogFile:    cfg.Logging.File,
		ReportsDir: cfg.ReportsDir,
		ConfigPath: configPath,
	})
	if err != nil {
		return err
	}
	success("Created %s with logs, reports, config, and diagnostics.", zipName)
	return nil
}

// errBadSurveyFile marks report input problems so they map to the scan/parse
// failure exit code.
var errBadSurveyFile = errors.New("unusable survey file")

func exitCodeFor(err error) int {
	var terr *iface.TransitionError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, execx.ErrToolNotFound):
		return exitToolNotFound
	case errors.Is(err, execx.ErrPermissionDenied):
		return exitPermission
	case errors.Is(err, iface.ErrInterfaceNotFound), errors.As(err, &terr):
		return exitInterface
	case errors.Is(err, survey.ErrScanTimeout), errors.Is(err, errBadSurveyFile):
		return exitScan
	case errors.Is(err, capture.ErrCaptureFailed), errors.Is(err, capture.ErrChannelSetFailed):
		return exitCapture
	default:
		return exitFailure
	}
}

func success(format string, v ...interface{}) {
	fmt.Printf("[%s] %s\n", color.GreenString("+"), fmt.Sprintf(format, v...))
}

func warn(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", color.YellowString("!"), fmt.Sprintf(format, v...))
}

func failure(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", color.RedString("!"), fmt.Sprintf(format, v...))
}
