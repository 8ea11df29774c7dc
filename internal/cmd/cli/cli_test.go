package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRoot(io.Discard)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--data-dir", dir}, args...))
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, "", args...)
	if err != nil {
		t.Fatalf("%v: %v (output %q)", args, err, out)
	}
	return out
}

func TestPutGetState(t *testing.T) {
	dir := t.TempDir()
	if out := mustRun(t, dir, "put", "k1", "v1"); out != "seq: 1\n" {
		t.Fatalf("put output %q", out)
	}
	mustRun(t, dir, "put", "k2", "v2")
	mustRun(t, dir, "clear")
	mustRun(t, dir, "put", "k3", "v3")

	if out := mustRun(t, dir, "get", "k1", "--at", "1"); out != "v1\n" {
		t.Fatalf("get k1@1 = %q", out)
	}
	if _, err := run(t, dir, "", "get", "k1"); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found at current, got %v", err)
	}

	var resp struct {
		Seq   uint64            `json:"seq"`
		State map[string]string `json:"state"`
	}
	if err := json.Unmarshal([]byte(mustRun(t, dir, "state", "--at", "2")), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Seq != 2 || len(resp.State) != 2 || resp.State["k1"] != "v1" {
		t.Fatalf("state@2: %+v", resp)
	}
	if err := json.Unmarshal([]byte(mustRun(t, dir, "state", "--at", "3")), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.State) != 0 {
		t.Fatalf("state after clear: %+v", resp.State)
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "put", "a", "1")
	mustRun(t, dir, "del", "a")
	mustRun(t, dir, "put", "b", "2")

	lines := strings.Split(strings.TrimSpace(mustRun(t, dir, "scan", "--reverse")), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], `{"seq":3,`) || !strings.HasPrefix(lines[2], `{"seq":1,`) {
		t.Fatalf("reverse scan: %v", lines)
	}

	out := mustRun(t, dir, "scan", "--filter", `json.op == "del"`)
	if strings.TrimSpace(out) != `{"seq":2,"op":"del","key":"a"}` {
		t.Fatalf("filtered scan: %q", out)
	}

	lines = strings.Split(strings.TrimSpace(mustRun(t, dir, "scan", "--from", "1", "--to", "2")), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], `"seq":2`) {
		t.Fatalf("ranged scan: %v", lines)
	}

	if _, err := run(t, dir, "", "scan", "--filter", "1 +"); err == nil {
		t.Fatalf("expected invalid filter error")
	}
}

func TestApplyFromStdinAndFile(t *testing.T) {
	dir := t.TempDir()
	in := `{"op":"put","key":"a","value":"1"}

{"op":"put","key":"b","value":"2"}
{"op":"del","key":"a"}
`
	out, err := run(t, dir, in, "apply")
	if err != nil || out != "seq: 3\n" {
		t.Fatalf("apply stdin: %q %v", out, err)
	}

	file := filepath.Join(t.TempDir(), "cmds.ndjson")
	if err := os.WriteFile(file, []byte(`{"op":"clear"}`+"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if out := mustRun(t, dir, "apply", "-f", file); out != "seq: 4\n" {
		t.Fatalf("apply file: %q", out)
	}

	if _, err := run(t, dir, `{"op":"put","value":"x"}`, "apply"); err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("expected line error, got %v", err)
	}
	if _, err := run(t, dir, "", "apply"); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestVerifyAndTables(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "put", "a", "1", "--table", "orders")
	mustRun(t, dir, "clear", "--table", "orders")
	mustRun(t, dir, "put", "a", "2", "--table", "orders")
	mustRun(t, dir, "put", "x", "y")

	if out := mustRun(t, dir, "verify", "--all", "--table", "orders"); out != "ok: 4 seq(s) verified\n" {
		t.Fatalf("verify: %q", out)
	}
	if out := mustRun(t, dir, "verify", "--at", "2", "--table", "orders"); out != "ok: 1 seq(s) verified\n" {
		t.Fatalf("verify at: %q", out)
	}

	lines := strings.Split(strings.TrimSpace(mustRun(t, dir, "tables")), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "default\tcodec=json") || !strings.HasPrefix(lines[1], "orders\t") {
		t.Fatalf("tables: %v", lines)
	}
}

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "put", "a1", "x", "-t", "a")
	mustRun(t, dir, "put", "a2", "x", "-t", "a")
	mustRun(t, dir, "put", "b1", "y", "-t", "b")

	lines := strings.Split(strings.TrimSpace(mustRun(t, dir, "merge", "a", "b")), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], `"key":"a1"`) || !strings.Contains(lines[1], `"key":"b1"`) {
		t.Fatalf("merge: %v", lines)
	}
	lines = strings.Split(strings.TrimSpace(mustRun(t, dir, "merge", "a", "b", "--to", "2", "--reverse", "--limit", "1")), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], `"key":"a2"`) {
		t.Fatalf("merge reverse: %v", lines)
	}
}

func TestConfigFileAndValidation(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(t.TempDir(), "parasol.yaml")
	if err := os.WriteFile(cfgFile, []byte("defaultTableName: settings\ncodec: msgpack\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	mustRun(t, dir, "--config", cfgFile, "put", "theme", "dark")
	out := mustRun(t, dir, "tables")
	if !strings.HasPrefix(out, "settings\tcodec=msgpack") {
		t.Fatalf("tables: %q", out)
	}

	if _, err := run(t, dir, "", "--log-level", "loud", "tables"); err == nil {
		t.Fatalf("expected validation error for log level")
	}
}

func TestArgValidation(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, dir, "", "put", "only-key"); err == nil {
		t.Fatalf("expected arg count error")
	}
	if _, err := run(t, dir, "", "merge"); err == nil {
		t.Fatalf("expected merge arg error")
	}
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "put", "a", "1", "-t", "src")
	mustRun(t, dir, "clear", "-t", "src")
	mustRun(t, dir, "put", "b", "2", "-t", "src")

	file := filepath.Join(t.TempDir(), "src.ndjson.xz")
	mustRun(t, dir, "export", "--xz", "-o", file, "-t", "src")
	out := mustRun(t, dir, "import", "-f", file, "-t", "dst")
	if out != "imported 3 command(s) from src, seq: 3\n" {
		t.Fatalf("import output %q", out)
	}
	if got := mustRun(t, dir, "get", "a", "--at", "1", "-t", "dst"); got != "1\n" {
		t.Fatalf("get a@1 on copy = %q", got)
	}
	if _, err := run(t, dir, "", "import", "-f", file, "-t", "dst"); err == nil {
		t.Fatalf("expected non-empty import to fail")
	}

	plain := mustRun(t, dir, "export", "-t", "src", "--to", "1")
	if !strings.HasPrefix(plain, `{"format":1,"table":"src","seq":1`) || strings.Count(plain, "\n") != 2 {
		t.Fatalf("plain export %q", plain)
	}
}
