package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

// The heuristic model family keeps these tests free of encoder downloads.
const testModel = "claude-3-5-sonnet"

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.xml")
	if err := os.WriteFile(path, []byte(`<a><b>hi</b><c>bye</c></a>`), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("command failed: %v\n%s", err, buf.String())
	}
	return buf.String()
}

func TestAnalyzeCharsBasis(t *testing.T) {
	out := runCommand(t, newAnalyzeCmd(), writeSample(t), "--basis", "chars")
	if !bytes.Contains([]byte(out), []byte("5 chars")) {
		t.Errorf("expected total of 5 chars in output:\n%s", out)
	}
}

func TestAnalyzeTokensBasis(t *testing.T) {
	out := runCommand(t, newAnalyzeCmd(), writeSample(t), "--model", testModel)
	if !bytes.Contains([]byte(out), []byte("2 tokens")) {
		t.Errorf("expected total of 2 tokens in output:\n%s", out)
	}
	if !bytes.Contains([]byte(out), []byte(testModel)) {
		t.Errorf("expected model in summary line:\n%s", out)
	}
}

func TestAnalyzeJSON(t *testing.T) {
	out := runCommand(t, newAnalyzeCmd(), writeSample(t), "--basis", "chars", "--json")

	var res struct {
		Tree struct {
			Name       string `json:"name"`
			TotalValue int    `json:"total_value"`
		} `json:"tree"`
		Totals struct {
			TotalChars int `json:"total_chars"`
		} `json:"totals"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if res.Tree.Name != "a" {
		t.Errorf("expected root a, got %q", res.Tree.Name)
	}
	if res.Tree.TotalValue != 5 {
		t.Errorf("expected root total 5, got %d", res.Tree.TotalValue)
	}
	if res.Totals.TotalChars != 5 {
		t.Errorf("expected 5 total chars, got %d", res.Totals.TotalChars)
	}
}

func TestAnalyzeRejectsUnknownModel(t *testing.T) {
	cmd := newAnalyzeCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{writeSample(t), "--model", "bloop-9000"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected an error for an unknown model")
	}
}

func TestAnalyzeRejectsUnknownBasis(t *testing.T) {
	cmd := newAnalyzeCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{writeSample(t), "--basis", "bogus"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected an error for an unknown basis")
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	cmd := newAnalyzeCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope.xml")})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestModelsCommand(t *testing.T) {
	out := runCommand(t, newModelsCmd())
	if !bytes.Contains([]byte(out), []byte("gpt-4o")) {
		t.Errorf("expected gpt-4o in listing:\n%s", out)
	}
	if !bytes.Contains([]byte(out), []byte("exact")) {
		t.Errorf("expected an exact tokenizer in listing:\n%s", out)
	}
	if !bytes.Contains([]byte(out), []byte("approximate")) {
		t.Errorf("expected an approximate tokenizer in listing:\n%s", out)
	}
}
