package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/fogfactory/rowpipe"
	"github.com/fogfactory/rowpipe/ppm"
)

const sample = `P3
3 2
255
255 0 0   0 255 0   0 0 255
10 20 30  0 0 0     255 255 255
`

// setupCLITestEnv isolates HOME and writes a sample image, returning its path.
func setupCLITestEnv(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	path := filepath.Join(base, "sample.ppm")
	td.Require(t).CmpNoError(os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRunCommand(t *testing.T) {

	t.Run("success", func(t *testing.T) {
		// Arrange
		input := setupCLITestEnv(t)
		outDir := filepath.Join(t.TempDir(), "out")

		// Act
		out, logs, err := runCLI(t, "run", "--stage", "flip_horizontally", "-w", "2", "--capacity", "1",
			"--out-dir", outDir, "--log-format", "json", input)

		// Assert
		td.Require(t).CmpNoError(err)
		td.CmpContains(t, out, "sample.ppm")
		td.CmpContains(t, out, "Processed 1 images (6 pixels) through FLIP_HORIZONTALLY")
		td.CmpContains(t, logs, `"msg":"pipeline finished"`)
		result, err := ppm.Load(filepath.Join(outDir, "sample-flip_horizontally.ppm"))
		td.Require(t).CmpNoError(err)
		td.Cmp(t, result.Row(0), ppm.Row{ppm.NewPixel(0, 0, 255), ppm.NewPixel(0, 255, 0), ppm.NewPixel(255, 0, 0)})
	})

	t.Run("defaults_from_config", func(t *testing.T) {
		// Arrange
		input := setupCLITestEnv(t)

		// Act
		out, _, err := runCLI(t, "run", input)

		// Assert
		td.Require(t).CmpNoError(err)
		td.CmpContains(t, out, "FLIP_HORIZONTALLY > GRAYSCALE")
		_, err = os.Stat(filepath.Join(filepath.Dir(input), "sample-flip_horizontally-grayscale.ppm"))
		td.CmpNoError(t, err)
	})

	t.Run("compressed_output", func(t *testing.T) {
		// Arrange
		input := setupCLITestEnv(t)

		// Act
		_, _, err := runCLI(t, "run", "--stage", "GRAYSCALE", "--compress", input)

		// Assert
		td.Require(t).CmpNoError(err)
		result, err := ppm.Load(filepath.Join(filepath.Dir(input), "sample-grayscale.ppm.zst"))
		td.Require(t).CmpNoError(err)
		td.Cmp(t, result.At(0, 0), ppm.NewPixel(255, 0, 0).Gray())
	})

	t.Run("error_same_output_twice", func(t *testing.T) {
		// Arrange
		input := setupCLITestEnv(t)
		other := filepath.Join(t.TempDir(), filepath.Base(input))
		td.Require(t).CmpNoError(os.WriteFile(other, []byte(sample), 0o644))
		outDir := t.TempDir()

		// Act
		_, _, err := runCLI(t, "run", "--out-dir", outDir, input, other)

		// Assert
		td.CmpContains(t, err, "several inputs would be written to "+filepath.Join(outDir, "sample-flip_horizontally-grayscale.ppm"))
		entries, err := os.ReadDir(outDir)
		td.Require(t).CmpNoError(err)
		td.CmpLen(t, entries, 0, "nothing written")
	})

	t.Run("error_unknown_stage", func(t *testing.T) {
		// Arrange
		input := setupCLITestEnv(t)

		// Act
		_, _, err := runCLI(t, "run", "--stage", "blur", input)

		// Assert
		td.CmpErrorIs(t, err, rowpipe.ErrUnknownStage)
	})

	t.Run("error_missing_file", func(t *testing.T) {
		// Arrange
		input := setupCLITestEnv(t)

		// Act
		_, _, err := runCLI(t, "run", input+".missing")

		// Assert
		td.CmpErrorIs(t, err, os.ErrNotExist)
	})
}

func TestBenchCommand(t *testing.T) {
	// Arrange
	input := setupCLITestEnv(t)

	// Act
	out, _, err := runCLI(t, "bench", "--runs", "2", "--slow-factor", "1", "-w", "2", input, input)

	// Assert
	td.Require(t).CmpNoError(err)
	td.CmpContains(t, out, "2 images, 4 rows, 12 pixels, 2 runs per mode")
	td.CmpContains(t, out, "pipeline")
	td.CmpContains(t, out, "Speedup:")
}

func TestBenchProfile(t *testing.T) {
	// Arrange
	input := setupCLITestEnv(t)
	profileDir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	td.Require(t).CmpNoError(os.WriteFile(cfgPath, []byte(fmt.Sprintf("[bench]\nprofile_dir = %q\n", profileDir)), 0o644))

	// Act
	out, _, err := runCLI(t, "-c", cfgPath, "bench", "--profile", "--runs", "1", "--slow-factor", "1", input)

	// Assert
	td.Require(t).CmpNoError(err)
	td.CmpContains(t, out, "Profile: "+filepath.Join(profileDir, "rowpipe_"))
	profiles, err := filepath.Glob(filepath.Join(profileDir, "rowpipe_*.prof"))
	td.Require(t).CmpNoError(err)
	td.CmpLen(t, profiles, 1)
}

func TestProfileName(t *testing.T) {
	opts := benchOptions{workers: 4, capacity: 50, slowFactor: 2500}
	td.Cmp(t, filepath.Dir(profileName("", opts)), ".", "current directory when no profile_dir is set")
	td.Cmp(t, filepath.Base(profileName("/tmp/prof", opts)), td.Re(`^rowpipe_.*_w4_c50_x2500\.prof$`))
}

func TestConfigCommands(t *testing.T) {
	// Arrange
	setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "rowpipe", "config.toml")

	// Act & Assert
	out, _, err := runCLI(t, "config", "init", target)
	td.Require(t).CmpNoError(err)
	td.CmpContains(t, out, "Wrote sample configuration")

	_, _, err = runCLI(t, "config", "init", target)
	td.CmpContains(t, err, "already exists")

	_, _, err = runCLI(t, "config", "init", "--overwrite", target)
	td.CmpNoError(t, err)

	out, _, err = runCLI(t, "-c", target, "config", "show")
	td.Require(t).CmpNoError(err)
	td.CmpContains(t, out, "# loaded from "+target)
	td.CmpContains(t, out, "workers_per_stage = 4")

	out, _, err = runCLI(t, "config", "show")
	td.Require(t).CmpNoError(err)
	td.CmpContains(t, out, "# defaults")
}

func TestOutputPath(t *testing.T) {
	td.Cmp(t, outputPath("/img/penguin.ppm", "", []rowpipe.StageID{"FLIP_HORIZONTALLY", "GRAYSCALE"}, false),
		"/img/penguin-flip_horizontally-grayscale.ppm")
	td.Cmp(t, outputPath("penguin.ppm", "/out", nil, false), "/out/penguin-copy.ppm")
	td.Cmp(t, outputPath("/img/penguin.ppm.zst", "", []rowpipe.StageID{"GRAYSCALE"}, true), "/img/penguin-grayscale.ppm.zst")
}
