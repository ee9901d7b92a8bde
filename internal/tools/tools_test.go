package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadFramesLinesWithNumbers(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "first\nsecond\nthird\n")

	out, err := readFile(dir, "a.txt", 1, 0)
	if err != nil {
		t.Fatalf("readFile: %v", err)
	}
	if !strings.Contains(out, "     1\tfirst") {
		t.Errorf("missing framed first line:\n%s", out)
	}
	if !strings.Contains(out, "     3\tthird") {
		t.Errorf("missing framed third line:\n%s", out)
	}
	if !strings.Contains(out, "(3 lines total)") {
		t.Errorf("missing total count:\n%s", out)
	}
}

func TestReadOffsetAndLimit(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "one\ntwo\nthree\nfour\n")

	out, err := readFile(dir, "a.txt", 2, 2)
	if err != nil {
		t.Fatalf("readFile: %v", err)
	}
	if strings.Contains(out, "\tone") || strings.Contains(out, "\tfour") {
		t.Errorf("window not respected:\n%s", out)
	}
	if !strings.Contains(out, "     2\ttwo") || !strings.Contains(out, "     3\tthree") {
		t.Errorf("expected lines 2-3:\n%s", out)
	}
}

func TestReadOffsetPastEOF(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "one\ntwo\n")

	out, err := readFile(dir, "a.txt", 500, 0)
	if err != nil {
		t.Fatalf("offset past EOF must succeed: %v", err)
	}
	if !strings.Contains(out, "0 lines") {
		t.Errorf("expected 0 lines report, got %q", out)
	}
}

func TestReadTruncatesLongLines(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("x", 5000)
	writeTestFile(t, dir, "a.txt", long+"\n")

	out, err := readFile(dir, "a.txt", 1, 0)
	if err != nil {
		t.Fatalf("readFile: %v", err)
	}
	if !strings.Contains(out, "…") {
		t.Error("long line not truncated with ellipsis")
	}
	if strings.Contains(out, strings.Repeat("x", maxLineChars+1)) {
		t.Error("line longer than the cap survived")
	}
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := readFile(dir, "missing.txt", 1, 0); err == nil {
		t.Error("missing file must error")
	}
	if _, err := readFile(dir, ".", 1, 0); err == nil {
		t.Error("directory must error")
	}
}

func TestWriteCreatesParentsAndReportsLines(t *testing.T) {
	dir := t.TempDir()

	out, err := writeFile(dir, "deep/nested/b.txt", "a\nb\nc")
	if err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	if !strings.Contains(out, "3 lines") {
		t.Errorf("line count missing: %q", out)
	}
	data, err := os.ReadFile(filepath.Join(dir, "deep/nested/b.txt"))
	if err != nil || string(data) != "a\nb\nc" {
		t.Errorf("content = %q, err = %v", data, err)
	}
}

func TestEditReplacesUniqueOccurrence(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "a.txt", "alpha beta gamma\n")

	out, err := editFile(dir, "a.txt", "beta", "delta\nepsilon")
	if err != nil {
		t.Fatalf("editFile: %v", err)
	}
	if !strings.Contains(out, "+1 lines") {
		t.Errorf("line delta missing: %q", out)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "alpha delta\nepsilon gamma\n" {
		t.Errorf("content = %q", data)
	}
}

func TestEditRejectsMissingAndAmbiguous(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "foo bar foo baz foo")

	if _, err := editFile(dir, "a.txt", "absent", "x"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("missing old_string: %v", err)
	}

	_, err := editFile(dir, "a.txt", "foo", "qux")
	if err == nil {
		t.Fatal("ambiguous old_string accepted")
	}
	if !strings.Contains(err.Error(), "3 times") || !strings.Contains(err.Error(), "unique") {
		t.Errorf("error = %v", err)
	}
}

func TestGlobIgnoresConventionalDirs(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "main.go", "package main\n")
	writeTestFile(t, dir, "pkg/util.go", "package pkg\n")
	writeTestFile(t, dir, "node_modules/dep/index.go", "package dep\n")
	writeTestFile(t, dir, "notes.txt", "hi\n")

	out, err := globFiles(context.Background(), dir, "", "*.go")
	if err != nil {
		t.Fatalf("globFiles: %v", err)
	}
	if !strings.Contains(out, "2 files") {
		t.Errorf("count wrong:\n%s", out)
	}
	if !strings.Contains(out, "main.go") || !strings.Contains(out, filepath.Join("pkg", "util.go")) {
		t.Errorf("matches missing:\n%s", out)
	}
	if strings.Contains(out, "node_modules") {
		t.Errorf("node_modules not ignored:\n%s", out)
	}
}

func TestGrepEmitsFileLineContent(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.go", "package a\nfunc Hello() {}\n")
	writeTestFile(t, dir, ".git/config", "func Hidden() {}\n")

	out, err := grepFiles(context.Background(), dir, "", `func \w+`, "")
	if err != nil {
		t.Fatalf("grepFiles: %v", err)
	}
	if !strings.Contains(out, "a.go:2:func Hello() {}") {
		t.Errorf("match format wrong:\n%s", out)
	}
	if strings.Contains(out, "Hidden") {
		t.Errorf(".git not ignored:\n%s", out)
	}
}

func TestGrepNoMatches(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "nothing here\n")

	out, err := grepFiles(context.Background(), dir, "", "zzz_never", "")
	if err != nil {
		t.Fatalf("grepFiles: %v", err)
	}
	if out != "No matches found" {
		t.Errorf("out = %q", out)
	}
}

func TestGrepRejectsInvalidRegex(t *testing.T) {
	if _, err := grepFiles(context.Background(), t.TempDir(), "", "(", ""); err == nil {
		t.Error("invalid regex accepted")
	}
}
