package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/powdertrack/internal/paths"
	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

type env struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	for _, k := range []string{paths.EnvConfigDir, paths.EnvDataDir,
		"POWDERTRACK_DELETE_POLICY", "POWDERTRACK_COMPACTION_SCOPE", "POWDERTRACK_ENFORCE_FOREIGN_KEYS"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	return &env{t: t, configDir: filepath.Join(dir, "config"), dataDir: filepath.Join(dir, "data")}
}

// run executes one command and returns stdout, stderr and the exit code.
func (e *env) run(stdin string, args ...string) (string, string, int) {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	full := append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...)
	code := run(root, full, &stderr)
	return stdout.String(), stderr.String(), code
}

func (e *env) ok(args ...string) string {
	e.t.Helper()
	out, errOut, code := e.run("", args...)
	require.Equal(e.t, exitSuccess, code, "args %v: %s", args, errOut)
	return out
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out := e.ok("version")
	assert.Contains(t, out, "powdertrack v"+Version)
	assert.Contains(t, out, modulePath)
}

func TestInit(t *testing.T) {
	e := newEnv(t)

	out := e.ok("init")
	assert.Contains(t, out, "Wrote "+filepath.Join(e.configDir, paths.ConfigFile))
	assert.Contains(t, out, "powdertrack initialized at "+filepath.Join(e.dataDir, "powdertrack.db"))

	data, err := os.ReadFile(filepath.Join(e.configDir, paths.ConfigFile))
	require.NoError(t, err)
	var cfg configFile
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, defaultConfigFile(e.dataDir), cfg)

	out = e.ok("init")
	assert.NotContains(t, out, "Wrote", "existing config is kept")
}

func TestRecordCommands(t *testing.T) {
	e := newEnv(t)
	e.ok("init")

	assert.Equal(t, "Plate#1\n", e.ok("set", "Plate", "-", `{"material": "Ti64", "stamped_heights": [25.4, 25.1]}`))
	out := e.ok("get", "plates", "1")
	assert.Contains(t, out, "Plate#1\n")
	assert.Contains(t, out, "  material: Ti64\n")
	assert.Contains(t, out, "  stamped_heights: [25.4,25.1]\n")

	e.ok("set", "plate", "1", `{"description": "reground"}`)
	out = e.ok("--json", "get", "Plate", "1")
	assert.Contains(t, out, `"material": "Ti64"`)
	assert.Contains(t, out, `"description": "reground"`)

	e.ok("set", "Plate", "-", `{"material": "316L"}`)
	out = e.ok("list", "Plate")
	assert.Equal(t, 2, strings.Count(out, "Plate#"))
}

func TestSlotAndDeleteCommands(t *testing.T) {
	e := newEnv(t)
	e.ok("init")
	e.ok("set", "Coupon", "-", `{"name": "tensile", "description": "", "is_preset": false, "direction": "Z"}`)
	e.ok("set", "CouponArray", "-", `{"name": "grid"}`)

	e.ok("slots", "set", "CouponArray", "1", "10", "1")
	assert.Equal(t, "1\n", e.ok("slots", "count", "CouponArray", "1"))
	assert.Equal(t, " 10  1  tensile\n", e.ok("slots", "show", "CouponArray", "1"))

	assert.Equal(t,
		"Coupon#1 is referenced by 1 record(s):\n  CouponArray (ID 1) - coupon_10\n",
		e.ok("deps", "Coupon", "1"))

	out, _, code := e.run("n\n", "delete", "Coupon", "1")
	require.Equal(t, exitSuccess, code)
	assert.Contains(t, out, "Delete Coupon#1? [y/N]")
	assert.Contains(t, out, "Kept Coupon#1")

	out, _, code = e.run("y\n", "delete", "Coupon", "1")
	require.Equal(t, exitSuccess, code)
	assert.Contains(t, out, "Deleted Coupon#1")

	// The dangling slot is still shown, without a label.
	assert.Equal(t, " 10  1\n", e.ok("slots", "show", "CouponArray", "1"))
	e.ok("slots", "clear", "CouponArray", "1")
	assert.Equal(t, "0\n", e.ok("slots", "count", "CouponArray", "1"))
}

func TestPartSlotCompaction(t *testing.T) {
	e := newEnv(t)
	e.ok("init")
	e.ok("set", "PartArray", "-", `{"name": "lot"}`)
	for i, name := range []string{"A", "B", "C"} {
		e.ok("set", "Part", "-", `{"name": "`+name+`"}`)
		e.ok("slots", "set", "PartArray", "1", string(rune('1'+i)), string(rune('1'+i)))
	}

	_, errOut, code := e.run("", "slots", "set", "PartArray", "1", "1", "-")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, types.ErrValidation.Error())

	e.ok("slots", "remove", "PartArray", "1", "1")
	assert.Equal(t, "  1  2  B\n  2  3  C\n", e.ok("slots", "show", "PartArray", "1"))
}

func TestRestrictPolicy(t *testing.T) {
	e := newEnv(t)
	e.ok("init")
	path := filepath.Join(e.configDir, paths.ConfigFile)
	cfg := defaultConfigFile(e.dataDir)
	cfg.DeletePolicy = string(types.PolicyRestrict)
	data, err := yaml.Marshal(&cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	e.ok("set", "WorkOrder", "-", `{"name": "root", "description": "", "pvid": 7}`)
	e.ok("set", "Job", "-", `{"name": "j", "description": "", "work_order": 1, "build": 99}`)

	out, errOut, code := e.run("", "delete", "--yes", "WorkOrder", "1")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, types.ErrRestricted.Error())
	assert.NotContains(t, out, "Deleted")
	e.ok("get", "WorkOrder", "1")
}

func TestExitCodes(t *testing.T) {
	e := newEnv(t)
	e.ok("init")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing record", []string{"get", "Plate", "99"}, exitUserError},
		{"unknown type", []string{"get", "Widget", "1"}, exitUserError},
		{"wrong arg count", []string{"get", "Plate"}, exitUserError},
		{"unknown flag", []string{"get", "--bogus", "Plate", "1"}, exitUserError},
		{"bad json", []string{"set", "Plate", "-", `[1, 2]`}, exitUserError},
		{"unknown field", []string{"set", "Plate", "-", `{"colour": "red"}`}, exitUserError},
		{"type without slots", []string{"slots", "count", "Build", "1"}, exitUserError},
		{"slot out of range", []string{"slots", "remove", "CouponArray", "1", "257"}, exitUserError},
		{"bad position", []string{"slots", "remove", "PartArray", "1", "first"}, exitUserError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, code := e.run("", tt.args...)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestInvalidConfig(t *testing.T) {
	e := newEnv(t)
	e.ok("init")
	t.Setenv("POWDERTRACK_DELETE_POLICY", "cascade")

	_, errOut, code := e.run("", "list", "Plate")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, types.ErrDeletePolicyUnknown.Error())
}

func TestExportImport(t *testing.T) {
	src := newEnv(t)
	src.ok("init")
	src.ok("set", "Plate", "-", `{"material": "Ti64"}`)
	src.ok("set", "Part", "-", `{"name": "bracket"}`)

	dir := filepath.Join(t.TempDir(), "snapshot")
	assert.Equal(t, "Exported 2 record(s) to "+dir+"\n", src.ok("export", dir))

	dst := newEnv(t)
	dst.ok("init")
	assert.Equal(t, "Imported 2 record(s) from "+dir+"\n", dst.ok("import", dir))
	assert.Contains(t, dst.ok("get", "Plate", "1"), "  material: Ti64\n")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "plates.jsonl"), []byte("{oops\n"), 0o644))
	_, _, code := dst.run("", "import", dir)
	assert.Equal(t, exitUserError, code)
}
