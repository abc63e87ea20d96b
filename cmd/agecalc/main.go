package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"agecalc/internal/capture"
	"agecalc/internal/clock"
	"agecalc/internal/config"
	"agecalc/internal/datediff"
	"agecalc/internal/form"
	appLog "agecalc/internal/log"
	"agecalc/internal/metrics"
	"agecalc/internal/model"
	"agecalc/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	logLevel   string
	once       bool
	capture    string
	day        string
	month      string
	year       string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			appLog.Error("failed to load config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		// Defaults are usable even if they could not be written out.
		appLog.Error("failed to save default config", err, "config_path", flags.configPath)
	}

	// CLI flags override the config file.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		appLog.Error("invalid log level", err, "log_level", conf.LogLevel)
		os.Exit(2)
	}
	if err := appLog.Configure(os.Stderr, level, conf.LogFormat); err != nil {
		appLog.Error("failed to configure logging", err)
		os.Exit(2)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"rollover", conf.Rollover,
		"metrics", conf.Metrics,
		"basic_auth", conf.BasicAuth != nil,
		"once", flags.once,
		"capture", flags.capture,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	clk, err := clock.NewZoned(conf.Location(), conf.Rollover,
		clock.WithRolloverHook(func(_, _ model.CalendarDate) { m.IncrementRollovers() }))
	if err != nil {
		appLog.Error("failed to create clock", err)
		os.Exit(1)
	}
	calc := datediff.New(clk)
	in := form.Input{Day: flags.day, Month: flags.month, Year: flags.year}

	if flags.once {
		os.Exit(runOnce(os.Stdout, os.Stderr, calc, in))
	}

	clk.Start(ctx)
	srv := web.NewServer(conf, calc, m)

	if flags.capture != "" {
		os.Exit(runCapture(ctx, srv, conf, calc, in, flags.capture))
	}

	if err := srv.Run(ctx); err != nil {
		appLog.Error("http server failed", err, "listen", conf.Listen)
		os.Exit(1)
	}
	appLog.Info("agecalc exiting")
}

// runOnce computes a single result and prints it, returning the exit code.
func runOnce(stdout, stderr io.Writer, calc form.Calculator, in form.Input) int {
	state, outcome := form.Submit(in, calc)
	if outcome != form.OutcomeResult {
		printErrors(stderr, state)
		return 1
	}
	d := state.Display()
	fmt.Fprintf(stdout, "%s years %s months %s days\n", d.Years, d.Months, d.Days)
	if state.Next != nil {
		observed := ""
		if state.Next.Observed {
			observed = ", observed for 29 February"
		}
		fmt.Fprintf(stdout, "next birthday %v (turning %d%s) in %d days\n",
			state.Next.Date, state.Next.Age, observed, state.Next.DaysLeft)
	}
	return 0
}

func printErrors(w io.Writer, state model.FormState) {
	fields := make([]string, 0, len(state.FieldErrors))
	for f := range state.FieldErrors {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "%s: %s\n", f, state.FieldErrors[model.Field(f)])
	}
	if state.DateError != "" {
		fmt.Fprintf(w, "date: %s\n", state.DateError)
	}
}

// runCapture serves the form on the configured address just long enough
// to screenshot the result page for in.
func runCapture(ctx context.Context, srv *web.Server, conf *config.Config, calc *datediff.Calculator, in form.Input, out string) int {
	year, month, day, err := in.Check(calc.Today())
	if err == nil {
		_, err = datediff.Validate(year, month, day, calc.Today())
	}
	if err != nil {
		appLog.Error("capture needs a valid -day/-month/-year", err)
		return 2
	}

	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		appLog.Error("capture: listen failed", err, "listen", conf.Listen)
		return 1
	}

	serveCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(serveCtx, ln) }()

	err = capture.ResultPNG(ctx, capture.Options{
		BaseURL:    "http://" + ln.Addr().String(),
		Date:       model.CalendarDate{Year: year, Month: month, Day: day},
		OutputPath: out,
		Width:      conf.Capture.Width,
		Height:     conf.Capture.Height,
		Timeout:    conf.Capture.Timeout(),
	})
	cancel()
	if serr := <-done; serr != nil {
		appLog.Error("capture: server stopped with error", serr)
	}
	if err != nil {
		appLog.Error("capture failed", err, "output", out)
		return 1
	}
	appLog.Info("capture written", "output", out)
	return 0
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "agecalc.yaml", "Path to config file (created with defaults if missing)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Compute the age for -day/-month/-year, print it and exit")
	flag.StringVar(&cfg.capture, "capture", "", "Write a PNG screenshot of the result page for -day/-month/-year to this path and exit")
	flag.StringVar(&cfg.day, "day", "", "Day of the birth date")
	flag.StringVar(&cfg.month, "month", "", "Month of the birth date")
	flag.StringVar(&cfg.year, "year", "", "Year of the birth date")

	flag.Parse()

	return cfg
}
