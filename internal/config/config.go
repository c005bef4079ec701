package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/peterbourgon/ff/v3"
)

// Output formats accepted by -format.
const (
	FormatTable = "table"
	FormatTree  = "tree"
	FormatYAML  = "yaml"
)

// EnvVarPrefix is the prefix ff uses to map environment variables onto flags,
// e.g. STRACE_TREE_ROOT_PATH for -root-path.
const EnvVarPrefix = "STRACE_TREE"

// CustomAttribute represents a user-defined column computed from an expression.
type CustomAttribute struct {
	Name       string
	Expression string
}

// Config holds the parsed command-line configuration
type Config struct {
	// Prefix is the strace -o prefix; logs are named <prefix>.<pid>
	Prefix string
	// RootPath is the directory the logs live in
	RootPath string
	// Format selects the renderer
	Format string
	// EnvpDir receives one <pid>.envp file per process; empty disables the dump
	EnvpDir string
	// Jobs bounds the number of logs scanned concurrently
	Jobs int
	// NoColor disables terminal styling
	NoColor bool
	// Verbose raises the log level to debug
	Verbose bool
	// ShowVersion prints the version and exits
	ShowVersion bool

	// OTEL enables span export of the reconstructed tree
	OTEL bool
	// TraceID is an expression evaluated against the root process (may be a literal hex ID)
	TraceID string
	// ParentID is an expression evaluated against the root process for the parent span ID
	ParentID string

	// CustomAttributes are extra report columns, in command-line order
	CustomAttributes []CustomAttribute
}

// Help strings for command line arguments
var (
	prefixHelp    = "Prefix given to strace -o; logs are named <prefix>.<pid>."
	rootPathHelp  = "Directory containing the strace logs. Defaults to the working directory."
	formatHelp    = "Report format: table, tree or yaml."
	envpDirHelp   = "Write each process's environment to <dir>/<pid>.envp. Empty disables."
	jobsHelp      = "Number of logs scanned concurrently."
	noColorHelp   = "Disable colored output."
	verboseHelp   = "Enable debug logging."
	versionHelp   = "Print version and exit."
	otelHelp      = "Export the process tree as OpenTelemetry spans."
	traceIDHelp   = "Trace ID expression evaluated against the root process."
	parentIDHelp  = "Parent span ID expression evaluated against the root process."
	attributeHelp = "Custom column NAME=EXPR (repeatable). EXPR sees env, args, cmdline and pathname."
	configHelp    = "Optional config file, one flag per line."
)

// ParseArgs parses command-line arguments and returns a Config.
// args[0] is the program name. A single positional argument overrides -prefix.
func ParseArgs(args []string, version string) (*Config, error) {
	if len(args) == 0 {
		return nil, errors.New("no arguments provided")
	}

	programName := args[0]
	cfg := &Config{}

	fs := flag.NewFlagSet(programName, flag.ContinueOnError)

	fs.StringVar(&cfg.Prefix, "prefix", "output", prefixHelp)
	fs.StringVar(&cfg.RootPath, "root-path", "", rootPathHelp)
	fs.StringVar(&cfg.Format, "format", FormatTable, formatHelp)
	fs.StringVar(&cfg.EnvpDir, "envp-dir", "", envpDirHelp)
	fs.IntVar(&cfg.Jobs, "jobs", runtime.GOMAXPROCS(0), jobsHelp)
	fs.BoolVar(&cfg.NoColor, "no-color", false, noColorHelp)
	fs.BoolVar(&cfg.Verbose, "v", false, verboseHelp)
	fs.BoolVar(&cfg.Verbose, "verbose", false, verboseHelp)
	fs.BoolVar(&cfg.ShowVersion, "version", false, versionHelp)
	fs.BoolVar(&cfg.OTEL, "otel", false, otelHelp)
	fs.StringVar(&cfg.TraceID, "t", "", traceIDHelp)
	fs.StringVar(&cfg.TraceID, "trace-id", "", traceIDHelp)
	fs.StringVar(&cfg.ParentID, "p", "", parentIDHelp)
	fs.StringVar(&cfg.ParentID, "parent-id", "", parentIDHelp)

	_ = fs.String("config", "", configHelp)

	addAttribute := func(s string) error {
		attr, err := parseAttribute(s)
		if err != nil {
			return err
		}
		cfg.CustomAttributes = append(cfg.CustomAttributes, attr)
		return nil
	}
	fs.Func("a", attributeHelp, addAttribute)
	fs.Func("attribute", attributeHelp, addAttribute)

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "strace-tree %s\n\nUsage: %s [flags] [prefix]\n\n", version, programName)
		fs.PrintDefaults()
	}

	err := ff.Parse(fs, args[1:],
		ff.WithEnvVarPrefix(EnvVarPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	)
	if err != nil {
		return nil, err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		cfg.Prefix = fs.Arg(0)
	default:
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args()[1:], " "))
	}

	if err := cfg.SanityCheck(); err != nil {
		return nil, err
	}

	if cfg.RootPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		cfg.RootPath = wd
	}

	return cfg, nil
}

// SanityCheck validates flag combinations that flag parsing alone cannot.
func (c *Config) SanityCheck() error {
	switch c.Format {
	case FormatTable, FormatTree, FormatYAML:
	default:
		return fmt.Errorf("unknown format %q (expected table, tree or yaml)", c.Format)
	}
	if c.Prefix == "" {
		return errors.New("prefix cannot be empty")
	}
	if strings.ContainsRune(c.Prefix, '/') {
		return fmt.Errorf("prefix %q must not contain a path separator, use -root-path", c.Prefix)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if (c.TraceID != "" || c.ParentID != "") && !c.OTEL {
		return errors.New("-trace-id and -parent-id require -otel")
	}
	return nil
}

// parseAttribute parses a NAME=EXPR custom attribute definition.
func parseAttribute(s string) (CustomAttribute, error) {
	name, expression, found := strings.Cut(s, "=")
	if !found {
		return CustomAttribute{}, fmt.Errorf("invalid attribute format %q, expected NAME=EXPR", s)
	}
	name = strings.TrimSpace(name)
	expression = strings.TrimSpace(expression)
	if name == "" {
		return CustomAttribute{}, fmt.Errorf("invalid attribute %q: name cannot be empty", s)
	}
	if expression == "" {
		return CustomAttribute{}, fmt.Errorf("invalid attribute %q: expression cannot be empty", s)
	}
	return CustomAttribute{Name: name, Expression: expression}, nil
}
