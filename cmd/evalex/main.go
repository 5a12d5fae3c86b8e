package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/apd/v3"
	"github.com/pkg/profile"

	"github.com/zephyrtronium/evalex"
)

type cli struct {
	Exprs []string `arg:"" optional:"" help:"Expressions to evaluate. Without any, read from --in or stdin."`

	In    string   `help:"Input file with one expression per line (- for stdin)." placeholder:"FILE"`
	Given []string `help:"Variable definition, evaluated in order (any number of times)." placeholder:"NAME=EXPR"`
	Data  string   `help:"YAML file with a mapping of variable names to values." type:"existingfile" placeholder:"FILE"`

	Precision   uint32 `default:"68" help:"Significant digits of calculations."`
	Rounding    string `default:"half_even" enum:"half_even,half_up,half_down,up,down,ceiling,floor,05up" help:"Rounding mode (${enum})."`
	Places      int    `default:"-1" help:"Round every result to this many decimal places (-1 for unlimited)."`
	PowerHigher bool   `help:"Make ^ bind tighter than unary minus."`
	NoImplicit  bool   `help:"Disallow implicit multiplication."`

	Echo     bool   `help:"Print parse trees."`
	LogLevel string `default:"warn" enum:"debug,info,warn,error" help:"Log level (${enum})."`
	Profile  string `help:"Write a CPU profile to this directory." type:"path" placeholder:"DIR"`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("evalex"),
		kong.Description("Evaluate decimal expressions."),
		kong.UsageOnError(),
	)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(c.LogLevel)})))
	if c.Profile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(c.Profile), profile.Quiet).Stop()
	}
	err := run(&c, os.Stdin, os.Stdout, os.Stderr)
	if errors.Is(err, errFailed) {
		// Each failure has been reported already.
		os.Exit(1)
	}
	kctx.FatalIfErrorf(err)
}

// errFailed indicates that at least one expression failed to evaluate.
var errFailed = errors.New("evaluation failed")

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn
	}
	return l
}

// config builds the expression configuration from the flags.
func (c *cli) config() (*evalex.Config, error) {
	if c.Precision == 0 {
		return nil, fmt.Errorf("precision must be positive")
	}
	if c.Places < evalex.DecimalPlacesUnlimited {
		return nil, fmt.Errorf("decimal places (%d) must be at least %d", c.Places, evalex.DecimalPlacesUnlimited)
	}
	opts := []evalex.Option{
		evalex.WithMathContext(evalex.MathContext{Precision: c.Precision, Rounding: apd.Rounder(c.Rounding)}),
		evalex.WithDecimalPlaces(c.Places),
		evalex.WithImplicitMultiplication(!c.NoImplicit),
	}
	if c.PowerHigher {
		opts = append(opts, evalex.WithPowerOfPrecedence(evalex.PrecedencePowerHigher))
	}
	return evalex.NewConfig(opts...), nil
}

func run(c *cli, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	vars := make(map[string]evalex.Value)
	if c.Data != "" {
		b, err := os.ReadFile(c.Data)
		if err != nil {
			return err
		}
		if err := loadData(vars, b, cfg); err != nil {
			return fmt.Errorf("loading %s: %w", c.Data, err)
		}
		slog.Debug("loaded data", slog.String("file", c.Data), slog.Int("vars", len(vars)))
	}
	for _, g := range c.Given {
		if err := given(vars, g, cfg); err != nil {
			return err
		}
	}

	srcs := c.Exprs
	if c.In != "" || len(srcs) == 0 {
		in := stdin
		if c.In != "" && c.In != "-" {
			f, err := os.Open(c.In)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		lines, err := readLines(in)
		if err != nil {
			return err
		}
		srcs = append(lines, srcs...)
	}

	failed := false
	for _, src := range srcs {
		if !evaluate(stdout, stderr, src, vars, cfg, c.Echo) {
			failed = true
		}
	}
	if failed {
		return errFailed
	}
	return nil
}

// readLines reads the non-blank lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		if l := strings.TrimSpace(s.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	return lines, s.Err()
}

// evaluate evaluates one expression and prints its result or error.
// Reports whether it succeeded.
func evaluate(stdout, stderr io.Writer, src string, vars map[string]evalex.Value, cfg *evalex.Config, echo bool) bool {
	e := evalex.NewWithConfig(src, cfg)
	for k, v := range vars {
		e.Set(k, v)
	}
	ast, err := e.AST()
	if err != nil {
		report(stderr, src, err, cfg.Registry())
		return false
	}
	slog.Debug("parsed", slog.String("src", src), slog.Int("depth", ast.Depth()))
	r, err := e.EvaluateNode(ast)
	if err != nil {
		report(stderr, src, err, cfg.Registry())
		return false
	}
	if echo {
		fmt.Fprintf(stdout, "%v : ", ast)
	}
	fmt.Fprintln(stdout, r)
	return true
}
