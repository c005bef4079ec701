package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

const testVersion = "v0.0.0-test"
const testTraceID = "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4"

func TestParseArgs_Defaults(t *testing.T) {
	cfg, err := ParseArgs([]string{"strace-tree"}, testVersion)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, "output", cfg.Prefix)
	assert.Equal(t, wd, cfg.RootPath)
	assert.Equal(t, FormatTable, cfg.Format)
	assert.Empty(t, cfg.EnvpDir)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Jobs)
	assert.False(t, cfg.OTEL)
	assert.Empty(t, cfg.TraceID)
	assert.Empty(t, cfg.CustomAttributes)
}

func TestParseArgs_Flags(t *testing.T) {
	args := []string{"strace-tree",
		"-prefix", "trace",
		"-root-path", "/tmp/logs",
		"-format", "tree",
		"-envp-dir", "/tmp/envp",
		"-jobs", "3",
		"-no-color",
		"-verbose",
	}
	cfg, err := ParseArgs(args, testVersion)
	require.NoError(t, err)

	assert.Equal(t, "trace", cfg.Prefix)
	assert.Equal(t, "/tmp/logs", cfg.RootPath)
	assert.Equal(t, FormatTree, cfg.Format)
	assert.Equal(t, "/tmp/envp", cfg.EnvpDir)
	assert.Equal(t, 3, cfg.Jobs)
	assert.True(t, cfg.NoColor)
	assert.True(t, cfg.Verbose)
}

func TestParseArgs_PositionalPrefix(t *testing.T) {
	cfg, err := ParseArgs([]string{"strace-tree", "-format", "yaml", "build"}, testVersion)
	require.NoError(t, err)
	assert.Equal(t, "build", cfg.Prefix)
	assert.Equal(t, FormatYAML, cfg.Format)

	_, err = ParseArgs([]string{"strace-tree", "one", "two"}, testVersion)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected arguments")
}

func TestParseArgs_EnvVar(t *testing.T) {
	t.Setenv("STRACE_TREE_ROOT_PATH", "/from/env")
	t.Setenv("STRACE_TREE_FORMAT", "yaml")

	cfg, err := ParseArgs([]string{"strace-tree"}, testVersion)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.RootPath)
	assert.Equal(t, FormatYAML, cfg.Format)

	cfg, err = ParseArgs([]string{"strace-tree", "-format", "table"}, testVersion)
	require.NoError(t, err)
	assert.Equal(t, FormatTable, cfg.Format, "flags take precedence over the environment")
}

func TestParseArgs_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strace-tree.conf")
	require.NoError(t, os.WriteFile(path, []byte("prefix ci\nformat tree\n"), 0o600))

	cfg, err := ParseArgs([]string{"strace-tree", "-config", path}, testVersion)
	require.NoError(t, err)
	assert.Equal(t, "ci", cfg.Prefix)
	assert.Equal(t, FormatTree, cfg.Format)
}

func TestParseArgs_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"format", []string{"-format", "html"}, "unknown format"},
		{"jobs", []string{"-jobs", "0"}, "jobs must be at least 1"},
		{"prefix with slash", []string{"-prefix", "logs/output"}, "path separator"},
		{"trace id without otel", []string{"-t", testTraceID}, "require -otel"},
		{"unknown flag", []string{"-frobnicate"}, "frobnicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(append([]string{"strace-tree"}, tt.args...), testVersion)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseArgs_NoArguments(t *testing.T) {
	_, err := ParseArgs(nil, testVersion)
	assert.Error(t, err)
}

func TestParseArgs_Version(t *testing.T) {
	cfg, err := ParseArgs([]string{"strace-tree", "-version"}, testVersion)
	require.NoError(t, err)
	assert.True(t, cfg.ShowVersion)
}

func TestParseArgs_OTELWithTraceID(t *testing.T) {
	args := []string{"strace-tree", "-otel", "-t", `env["TRACE_ID"]`, "-parent-id", `env["SPAN"]`}

	cfg, err := ParseArgs(args, testVersion)
	require.NoError(t, err)
	assert.True(t, cfg.OTEL)
	assert.Equal(t, `env["TRACE_ID"]`, cfg.TraceID)
	assert.Equal(t, `env["SPAN"]`, cfg.ParentID)
}

func TestParseArgs_CustomAttributes(t *testing.T) {
	args := []string{"strace-tree",
		"-a", `env_name=env["ENV"]`,
		"-attribute", "cmd=cmdline",
		"-a", `check=foo=="bar"`,
		"-a", "  name  =  value  ",
	}

	cfg, err := ParseArgs(args, testVersion)
	require.NoError(t, err)
	require.Len(t, cfg.CustomAttributes, 4)

	assert.Equal(t, CustomAttribute{Name: "env_name", Expression: `env["ENV"]`}, cfg.CustomAttributes[0])
	assert.Equal(t, CustomAttribute{Name: "cmd", Expression: "cmdline"}, cfg.CustomAttributes[1])
	assert.Equal(t, CustomAttribute{Name: "check", Expression: `foo=="bar"`}, cfg.CustomAttributes[2])
	assert.Equal(t, CustomAttribute{Name: "name", Expression: "value"}, cfg.CustomAttributes[3])
}

func TestParseArgs_CustomAttributeErrors(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"invalid_no_equals", "NAME=EXPR"},
		{"=value", "name cannot be empty"},
		{"name=", "expression cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			_, err := ParseArgs([]string{"strace-tree", "-a", tt.value}, testVersion)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseOTELConfig(t *testing.T) {
	for _, name := range []string{
		"OTEL_SERVICE_NAME",
		"OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT",
		"OTEL_RESOURCE_ATTRIBUTES",
	} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}

	cfg, err := ParseOTELConfig()
	require.NoError(t, err)
	assert.Equal(t, "strace-tree", cfg.ServiceName)
	assert.Equal(t, "localhost:4318", cfg.GetEndpoint())
	assert.Nil(t, cfg.ParseResourceAttributes())
}

func TestOTELConfig_GetEndpoint(t *testing.T) {
	tests := []struct {
		name string
		cfg  OTELConfig
		want string
	}{
		{"default", OTELConfig{}, "localhost:4318"},
		{"exporter", OTELConfig{ExporterEndpoint: "collector:4318"}, "collector:4318"},
		{"traces wins", OTELConfig{ExporterEndpoint: "a:1", TracesEndpoint: "b:2"}, "b:2"},
		{"scheme stripped", OTELConfig{ExporterEndpoint: "http://collector:4318/"}, "collector:4318"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.GetEndpoint())
		})
	}
}

func TestOTELConfig_ParseResourceAttributes(t *testing.T) {
	cfg := OTELConfig{ResourceAttributes: "team=infra, env = ci ,broken,=nokey"}

	assert.Equal(t, []attribute.KeyValue{
		attribute.String("team", "infra"),
		attribute.String("env", "ci"),
	}, cfg.ParseResourceAttributes())
}
