package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/go-drift/permissionx/cmd/permx/internal/config"
	"github.com/go-drift/permissionx/cmd/permx/internal/device"
	"github.com/go-drift/permissionx/cmd/permx/internal/scenario"
	"github.com/go-drift/permissionx/pkg/errors"
	"github.com/go-drift/permissionx/pkg/permissionx"
	"github.com/go-drift/permissionx/pkg/platform"
)

func init() {
	RegisterCommand(&Command{
		Name:  "simulate",
		Short: "Run a scenario against a simulated device",
		Long: `Run one or more scenario files against a simulated device.

Each scenario declares a permission request, scripts the app's explain
and forward-to-settings reactions, and scripts the user's answers to OS
prompts, dialogs and settings screens. The request is driven through the
platform channel layer, exactly as on a device, and the final result is
printed. When the scenario has an "expect" block, a mismatch fails the
command.

Project defaults (app id, API levels, dialog tints) come from
permissionx.yaml in the project root when present.`,
		Usage: "permx simulate [flags] <scenario.yaml>...",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("simulate", pflag.ContinueOnError)
			flags.String("codec", "json", "channel codec: json or cbor")
			flags.String("project", "", "project directory (default: nearest go.mod)")
			flags.Duration("timeout", 5*time.Second, "abort a scenario that does not settle in time")
			flags.BoolP("verbose", "V", false, "trace bridge traffic and request steps to stderr")
			return flags
		},
		Run: runSimulate,
	})
}

type simulateOptions struct {
	Codec   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// simulation is the outcome of one scenario run.
type simulation struct {
	Name      string
	Codec     string
	Platform  permissionx.Platform
	Completed bool
	Result    permissionx.Result
	Stats     device.Stats
	Explained int
	Forwarded int
	// OpenDialogs lists dialogs the simulated user never answered.
	OpenDialogs []string
	Reports     []*errors.PermissionError
	Panics      []*errors.PanicError
	// Checked is set when the scenario has an expect block. Mismatches
	// describes the differences from it.
	Checked    bool
	Mismatches []string
}

func runSimulate(flags *pflag.FlagSet, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("simulate requires at least one scenario file")
	}

	codecName, _ := flags.GetString("codec")
	project, _ := flags.GetString("project")
	timeout, _ := flags.GetDuration("timeout")
	verbose, _ := flags.GetBool("verbose")

	if project == "" {
		root, err := config.FindProjectRoot()
		if err != nil {
			return err
		}
		project = root
	}
	cfg, err := config.Resolve(project)
	if err != nil {
		return err
	}

	opts := simulateOptions{
		Codec:   codecName,
		Timeout: timeout,
		Logger:  slog.New(slog.DiscardHandler),
	}
	if verbose {
		opts.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	failed := 0
	for i, path := range args {
		sc, err := scenario.Load(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if sc.Name == "" {
			sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		sim, err := simulate(sc, cfg, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprint(stdout, sim.render())
		if len(sim.Mismatches) > 0 {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios did not match their expectation", failed, len(args))
	}
	return nil
}

func codecByName(name string) (platform.MessageCodec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return platform.JsonCodec{}, nil
	case "cbor":
		return platform.CBORCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q (want json or cbor)", name)
	}
}

// reportLog collects platform and chain reports during a run and forwards
// them to the trace logger.
type reportLog struct {
	sim   *simulation
	trace errors.ErrorHandler
}

func (l *reportLog) HandleError(err *errors.PermissionError) {
	l.sim.Reports = append(l.sim.Reports, err)
	l.trace.HandleError(err)
}

func (l *reportLog) HandlePanic(err *errors.PanicError) {
	l.sim.Panics = append(l.sim.Panics, err)
	l.trace.HandlePanic(err)
}

// simulate runs sc once on a fresh device. Global platform state is replaced,
// so runs must not overlap.
func simulate(sc *scenario.Scenario, cfg *config.Resolved, opts simulateOptions) (*simulation, error) {
	codec, err := codecByName(opts.Codec)
	if err != nil {
		return nil, err
	}
	kinds, err := sc.Specials()
	if err != nil {
		return nil, err
	}

	info := cfg.Platform
	if p := sc.Platform; p != nil {
		if p.SDK != 0 {
			info.SDKVersion = p.SDK
		}
		if p.TargetSDK != 0 {
			info.TargetSDKVersion = p.TargetSDK
		}
	}

	sim := &simulation{Name: sc.Name, Codec: strings.ToLower(opts.Codec), Platform: info}
	if sim.Codec == "" {
		sim.Codec = "json"
	}

	prev := errors.DefaultHandler
	errors.SetHandler(&reportLog{sim: sim, trace: &errors.SlogHandler{Logger: opts.Logger}})
	defer errors.SetHandler(prev)

	dev := device.New(sc.Device, info, device.WithCodec(codec), device.WithLogger(opts.Logger))
	dev.Install()
	platform.Permissions.SetPackageName(cfg.AppID)

	reactions := sc.Reactions()
	reqCfg := permissionx.Config{
		ExplainReasonBeforeRequest: sc.Request.ExplainBeforeRequest,
		DialogTint:                 cfg.Tint,
		Logger:                     opts.Logger,
	}
	reactions.Configure(&reqCfg)

	req := platform.NewPermissionRequest().
		Declare(sc.Request.Permissions, kinds...).
		Configure(reqCfg)
	stop := platform.DismissOnDetach(req)
	defer stop()

	var runErr error
	dev.Post(func() {
		runErr = req.Run(func(allGranted bool, granted, denied []string) {
			sim.Completed = true
			sim.Result = permissionx.Result{AllGranted: allGranted, Granted: granted, Denied: denied}
		})
	})

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	if _, err := dev.Run(ctx); err != nil {
		return nil, fmt.Errorf("scenario did not settle: %w", err)
	}
	if runErr != nil {
		return nil, runErr
	}

	sim.Stats = dev.Stats()
	sim.OpenDialogs = dev.OpenDialogs()
	sim.Explained = reactions.Explained
	sim.Forwarded = reactions.Forwarded
	if sc.Expect != nil {
		sim.Checked = true
		sim.Mismatches = compare(sim, sc.Expect)
	}
	return sim, nil
}

func compare(sim *simulation, want *scenario.Expect) []string {
	if !sim.Completed {
		return []string{"request did not complete"}
	}
	var diffs []string
	if sim.Result.AllGranted != want.AllGranted {
		diffs = append(diffs, fmt.Sprintf("allGranted: expected %v, got %v", want.AllGranted, sim.Result.AllGranted))
	}
	if !slices.Equal(sim.Result.Granted, want.Granted) {
		diffs = append(diffs, fmt.Sprintf("granted: expected %v, got %v", want.Granted, sim.Result.Granted))
	}
	if !slices.Equal(sim.Result.Denied, want.Denied) {
		diffs = append(diffs, fmt.Sprintf("denied: expected %v, got %v", want.Denied, sim.Result.Denied))
	}
	return diffs
}

func (s *simulation) render() string {
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(field(label, value))
		b.WriteByte('\n')
	}

	line("Scenario", headingStyle.Render(s.Name))
	line("Platform", dimStyle.Render(fmt.Sprintf("sdk %d, target %d, codec %s",
		s.Platform.SDKVersion, s.Platform.TargetSDKVersion, s.Codec)))

	switch {
	case !s.Completed:
		line("Result", pendingStyle.Render("incomplete"))
	case s.Result.AllGranted:
		line("Result", grantedStyle.Render("all granted"))
	default:
		line("Result", deniedStyle.Render("denied"))
	}
	if s.Completed {
		line("Granted", list(s.Result.Granted, grantedStyle))
		line("Denied", list(s.Result.Denied, deniedStyle))
	}
	line("Activity", fmt.Sprintf("%s, %s, %s, %s, %s",
		plural(s.Stats.Prompts, "prompt"),
		plural(s.Stats.Dialogs, "dialog"),
		plural(s.Stats.SettingsVisits, "settings visit"),
		plural(s.Explained, "explain"),
		plural(s.Forwarded, "forward")))
	if len(s.OpenDialogs) > 0 {
		line("Waiting", pendingStyle.Render(plural(len(s.OpenDialogs), "unanswered dialog")))
	}
	for _, r := range s.Reports {
		line("Report", dimStyle.Render(r.Error()))
	}
	for _, p := range s.Panics {
		line("Panic", deniedStyle.Render(p.Error()))
	}
	if s.Checked {
		if len(s.Mismatches) == 0 {
			line("Expect", grantedStyle.Render("ok"))
		}
		for _, m := range s.Mismatches {
			line("Expect", errorStyle.Render(m))
		}
	}
	return b.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
