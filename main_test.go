/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"bennypowers.dev/pinmap/importmap"
)

func TestMain(m *testing.M) {
	// Build the binary before running tests
	wd := mustGetwd()
	cmd := exec.Command("go", "build", "-o", "pinmap_test", ".")
	cmd.Dir = wd
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("failed to build test binary: " + err.Error() + "\n" + string(out))
	}
	code := m.Run()
	_ = os.Remove(filepath.Join(wd, "pinmap_test"))
	os.Exit(code)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return wd
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	return runCLIEnv(t, nil, args...)
}

func runCLIEnv(t *testing.T, env []string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	binary := filepath.Join(mustGetwd(), "pinmap_test")
	cmd := exec.Command(binary, args...)
	cmd.Env = append(os.Environ(), env...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("Failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

var fixtureDir = filepath.Join("testdata", "cli", "project")

// copyFixture copies the CLI fixture project to a temporary directory
// for commands that write to the project.
func copyFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.CopyFS(dir, os.DirFS(fixtureDir)); err != nil {
		t.Fatalf("Failed to copy fixture: %v", err)
	}
	return dir
}

func parseData(t *testing.T, s string) *importmap.Data {
	t.Helper()
	data, err := importmap.Parse([]byte(s))
	if err != nil {
		t.Fatalf("Failed to parse import map output: %v\nstdout: %s", err, s)
	}
	return data
}

func TestGenerate(t *testing.T) {
	stdout, stderr, code := runCLI(t, "generate", "app", "--package", fixtureDir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	data := parseData(t, stdout)
	want := []string{
		"app",
		"/assets/components/nav.js",
		"lodash",
		"/assets/components/settings.js",
		"admin",
		"styles",
	}
	if !slices.Equal(data.Keys(), want) {
		t.Errorf("Expected keys %v, got %v", want, data.Keys())
	}

	for _, key := range want {
		item, _ := data.Get(key)
		wantPreload := key == "app" || key == "/assets/components/nav.js" || key == "lodash"
		if item.Preload != wantPreload {
			t.Errorf("%s: expected preload %v, got %v", key, wantPreload, item.Preload)
		}
	}

	app, _ := data.Get("app")
	if !strings.HasPrefix(app.Path, "/assets/app-") || !strings.HasSuffix(app.Path, ".js") {
		t.Errorf("Expected digested app path, got %s", app.Path)
	}
	styles, _ := data.Get("styles")
	if styles.Type != importmap.CSS {
		t.Errorf("Expected styles to be css, got %s", styles.Type)
	}
}

func TestGenerateDefaultsToFlaggedEntrypoints(t *testing.T) {
	stdout, stderr, code := runCLI(t, "generate", "--package", fixtureDir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	data := parseData(t, stdout)
	want := []string{
		"app",
		"/assets/components/nav.js",
		"lodash",
		"admin",
		"/assets/components/settings.js",
		"styles",
	}
	if !slices.Equal(data.Keys(), want) {
		t.Errorf("Expected keys %v, got %v", want, data.Keys())
	}
	if admin, _ := data.Get("admin"); !admin.Preload {
		t.Error("Expected admin to be preloaded")
	}
}

func TestGenerateImportmapFormat(t *testing.T) {
	stdout, stderr, code := runCLI(t, "generate", "app", "--package", fixtureDir, "--format", "importmap")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	var result struct {
		Imports map[string]string `json:"imports"`
	}
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	if result.Imports["lodash"] != "https://cdn.jsdelivr.net/npm/lodash-es@4.17.21/lodash.js" {
		t.Errorf("Expected lodash CDN URL, got %q", result.Imports["lodash"])
	}
	if _, ok := result.Imports["styles"]; ok {
		t.Error("Stylesheets do not belong in the browser import map")
	}
}

func TestGenerateHTMLFormat(t *testing.T) {
	stdout, stderr, code := runCLI(t, "generate", "app", "--package", fixtureDir, "--format", "html")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	if !strings.HasPrefix(stdout, "<script type=\"importmap\">") {
		t.Errorf("Expected HTML script tag prefix, got: %s", stdout[:min(50, len(stdout))])
	}
	if !strings.Contains(stdout, "</script>") {
		t.Error("Expected closing script tag")
	}
	if !strings.Contains(stdout, "modulepreload") {
		t.Error("Expected modulepreload links")
	}
}

func TestGenerateOutputFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "importmap.json")

	stdout, stderr, code := runCLI(t, "generate", "app", "--package", fixtureDir, "--output", tmpFile)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if stdout != "" {
		t.Errorf("Expected no stdout when writing to file, got: %s", stdout)
	}

	content, err := os.ReadFile(tmpFile)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}
	if data := parseData(t, string(content)); !data.Has("app") {
		t.Error("Expected app in output file")
	}
}

func TestGenerateEnvironmentConfig(t *testing.T) {
	stdout, stderr, code := runCLIEnv(t, []string{"PINMAP_PUBLIC_PREFIX=/static/"}, "generate", "app", "--package", fixtureDir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	app, _ := parseData(t, stdout).Get("app")
	if !strings.HasPrefix(app.Path, "/static/app-") {
		t.Errorf("Expected /static/ prefix from environment, got %s", app.Path)
	}
}

func TestGenerateUnknownEntrypoint(t *testing.T) {
	_, stderr, code := runCLI(t, "generate", "nope", "--package", fixtureDir)
	if code == 0 {
		t.Error("Expected non-zero exit code for unknown entrypoint")
	}
	if !strings.Contains(stderr, "unknown import map entry") {
		t.Errorf("Expected unknown entry error, got: %s", stderr)
	}
}

func TestGenerateInvalidFormat(t *testing.T) {
	_, stderr, code := runCLI(t, "generate", "--package", fixtureDir, "--format", "yaml")
	if code == 0 {
		t.Error("Expected non-zero exit code for invalid format")
	}
	if !strings.Contains(stderr, "invalid format") {
		t.Errorf("Expected invalid format error, got: %s", stderr)
	}
}

func TestGenerateEmptyProject(t *testing.T) {
	stdout, stderr, code := runCLI(t, "generate", "--package", t.TempDir())
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if strings.TrimSpace(stdout) != "{}" {
		t.Errorf("Expected empty import map {}, got: %s", stdout)
	}
}

func TestDumpThenGenerateUsesCache(t *testing.T) {
	dir := copyFixture(t)

	stdout, stderr, code := runCLI(t, "dump", "--package", dir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	for _, name := range []string{"importmap.json", "entrypoint.app.json", "entrypoint.admin.json"} {
		rel := filepath.Join("dist", name)
		if !strings.Contains(stdout, "Wrote "+rel) {
			t.Errorf("Expected %s in dump output, got: %s", rel, stdout)
		}
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("Expected %s to be written: %v", rel, err)
		}
	}

	before, _, _ := runCLI(t, "generate", "app", "--package", dir)

	// the module graph is no longer walkable, so output must come from the cache
	if err := os.RemoveAll(filepath.Join(dir, "assets")); err != nil {
		t.Fatal(err)
	}
	after, stderr, code := runCLI(t, "generate", "app", "--package", dir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if before != after {
		t.Errorf("Expected cached output to match computed output\nbefore: %s\nafter: %s", before, after)
	}
}

func TestRequireLocalThenRemove(t *testing.T) {
	dir := copyFixture(t)
	entryFile := filepath.Join(dir, "importmap.yaml")

	stdout, stderr, code := runCLI(t, "require", "settings", "--path", "assets/components/settings.js", "--package", dir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Pinned settings to ./assets/components/settings.js") {
		t.Errorf("Unexpected require output: %s", stdout)
	}
	content, _ := os.ReadFile(entryFile)
	if !strings.Contains(string(content), "settings:\n    path: ./assets/components/settings.js") {
		t.Errorf("Expected settings entry in importmap.yaml, got:\n%s", content)
	}

	stdout, stderr, code = runCLI(t, "generate", "app", "--package", dir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if !parseData(t, stdout).Has("settings") {
		t.Error("Expected settings in generated import map")
	}

	_, stderr, code = runCLI(t, "remove", "settings", "--package", dir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	content, _ = os.ReadFile(entryFile)
	if strings.Contains(string(content), "settings:") {
		t.Errorf("Expected settings to be removed, got:\n%s", content)
	}
	if _, err := os.Stat(filepath.Join(dir, "assets", "components", "settings.js")); err != nil {
		t.Error("Removing a local entry must not delete its file")
	}
}

func TestRequireMissingLocalPath(t *testing.T) {
	dir := copyFixture(t)
	_, stderr, code := runCLI(t, "require", "ghost", "--path", "assets/ghost.js", "--package", dir)
	if code == 0 {
		t.Error("Expected non-zero exit code for a missing local path")
	}
	if !strings.Contains(stderr, "local path not found") {
		t.Errorf("Expected local path error, got: %s", stderr)
	}
}

func TestRequireInvalidSpecifier(t *testing.T) {
	_, stderr, code := runCLI(t, "require", "lodash@", "--package", t.TempDir())
	if code == 0 {
		t.Error("Expected non-zero exit code for an invalid specifier")
	}
	if !strings.Contains(stderr, "invalid package specifier") {
		t.Errorf("Expected specifier error, got: %s", stderr)
	}
}

func TestRemoveUnknown(t *testing.T) {
	dir := copyFixture(t)
	before, _ := os.ReadFile(filepath.Join(dir, "importmap.yaml"))

	_, stderr, code := runCLI(t, "remove", "nope", "--package", dir)
	if code == 0 {
		t.Error("Expected non-zero exit code for unknown entry")
	}
	if !strings.Contains(stderr, "unknown import map entry") {
		t.Errorf("Expected unknown entry error, got: %s", stderr)
	}
	after, _ := os.ReadFile(filepath.Join(dir, "importmap.yaml"))
	if !bytes.Equal(before, after) {
		t.Error("Expected importmap.yaml to be unchanged")
	}
}

func TestInstallNothingMissing(t *testing.T) {
	stdout, stderr, code := runCLI(t, "install", "--package", copyFixture(t))
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "All vendored files are present") {
		t.Errorf("Unexpected install output: %s", stdout)
	}
}

func TestInject(t *testing.T) {
	dir := copyFixture(t)
	glob := filepath.Join(dir, "site", "*.html")

	stdout, stderr, code := runCLI(t, "inject", "--glob", glob, "--package", dir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Injected: 1 files modified (0 updated, 1 new)") {
		t.Errorf("Unexpected inject output: %s", stdout)
	}

	content, err := os.ReadFile(filepath.Join(dir, "site", "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	html := string(content)
	mapAt := strings.Index(html, `<script type="importmap">`)
	moduleAt := strings.Index(html, `<script type="module">`)
	if mapAt < 0 || mapAt > moduleAt {
		t.Fatalf("Expected import map before the module script:\n%s", html)
	}
	if !strings.Contains(html, `"lodash": "https://cdn.jsdelivr.net/npm/lodash-es@4.17.21/lodash.js"`) {
		t.Errorf("Expected lodash in injected import map:\n%s", html)
	}

	stdout, _, _ = runCLI(t, "inject", "--glob", glob, "--package", dir)
	if !strings.Contains(stdout, "0 files modified") {
		t.Errorf("Expected second run to be a no-op, got: %s", stdout)
	}
}

func TestTrace(t *testing.T) {
	stdout, stderr, code := runCLI(t, "trace", "app", "--package", fixtureDir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	for _, s := range []string{"app", "/assets/components/nav.js", "/assets/components/settings.js (lazy)", "lodash"} {
		if !strings.Contains(stdout, s) {
			t.Errorf("Expected %q in trace output:\n%s", s, stdout)
		}
	}
}

func TestVersion(t *testing.T) {
	stdout, stderr, code := runCLI(t, "version", "--format", "json")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	var info map[string]any
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("Failed to parse version JSON: %v\nstdout: %s", err, stdout)
	}
	if info["version"] == nil || info["goVersion"] == nil {
		t.Errorf("Expected version and goVersion, got %v", info)
	}
}

func TestHelp(t *testing.T) {
	stdout, _, code := runCLI(t, "--help")
	if code != 0 {
		t.Fatalf("Expected exit code 0 for help, got %d", code)
	}

	expectedStrings := []string{
		"pinmap",
		"require",
		"remove",
		"update",
		"install",
		"generate",
		"dump",
		"inject",
		"outdated",
		"--package",
		"--output",
	}

	for _, s := range expectedStrings {
		if !strings.Contains(stdout, s) {
			t.Errorf("Expected %q in help output", s)
		}
	}
}

func TestRequireHelp(t *testing.T) {
	stdout, _, code := runCLI(t, "require", "--help")
	if code != 0 {
		t.Fatalf("Expected exit code 0 for help, got %d", code)
	}
	for _, s := range []string{"--download", "--path", "--entrypoint", "[registry:]package[@version][=alias]"} {
		if !strings.Contains(stdout, s) {
			t.Errorf("Expected %q in require help output", s)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	_, stderr, code := runCLI(t, "unknown")
	if code == 0 {
		t.Error("Expected non-zero exit code for unknown command")
	}

	if !strings.Contains(stderr, "unknown command") {
		t.Errorf("Expected 'unknown command' error, got: %s", stderr)
	}
}

func TestMissingArgs(t *testing.T) {
	for _, name := range []string{"require", "remove"} {
		_, stderr, code := runCLI(t, name)
		if code == 0 {
			t.Errorf("%s: expected non-zero exit code without arguments", name)
		}
		if !strings.Contains(stderr, "requires at least 1 arg") {
			t.Errorf("%s: expected argument error, got: %s", name, stderr)
		}
	}
}
