//go:build integration
// +build integration

package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/pangaea/integration/runner"
)

var caseFlag = flag.String("case", "", "Comma-separated case names from integration/cases/ (all when empty)")
var errFlag = flag.String("err", "continue", "Error handling mode: 'continue' (run all steps) or 'exit' (stop on first failure)")
var runsFlag = flag.Int("runs", 1, "Number of times to run each suite (narration is not deterministic)")

func TestMain(m *testing.M) {
	flag.Parse()
	fmt.Printf("Running Pangaea Integration Tests\n")
	fmt.Printf("   API Base URL: %s\n", apiBaseURL())
	os.Exit(m.Run())
}

func apiBaseURL() string {
	if url := os.Getenv("API_BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func TestIntegrationSuites(t *testing.T) {
	if *errFlag != "exit" && *errFlag != "continue" {
		t.Fatalf("Invalid -err flag value: %s (must be 'exit' or 'continue')", *errFlag)
	}
	runs := *runsFlag
	if runs < 1 {
		t.Fatalf("Number of runs must be >= 1, got: %d", runs)
	}

	files, err := selectCaseFiles("cases", *caseFlag)
	if err != nil {
		t.Fatalf("Failed to find test cases: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("No test files found in cases directory")
	}

	var jobs []runner.TestJob
	for _, file := range files {
		expanded, err := runner.LoadTestSuiteWithExpansion(file, "cases")
		if err != nil {
			t.Errorf("Failed to load test suite %s: %v", file, err)
			continue
		}
		jobs = append(jobs, expanded...)
	}
	if len(jobs) == 0 {
		t.Fatal("No valid test suites loaded")
	}

	testRunner := runner.NewRunner(apiBaseURL())
	testRunner.ErrorHandlingMode = runner.ErrorHandlingMode(*errFlag)
	if runs > 1 {
		// Multi-run always continues to gather complete statistics.
		testRunner.ErrorHandlingMode = runner.ErrorHandlingContinue
	}
	testRunner.Logger = func(format string, args ...any) {
		fmt.Printf(format+"\n", args...)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	stats := make(map[string]*suiteStats)
	var failures []failureDetail

	for run := 1; run <= runs; run++ {
		if runs > 1 {
			t.Logf("=== RUN %d/%d ===", run, runs)
		}
		for i, job := range jobs {
			t.Logf("[%d/%d] Running test suite: %s (%d steps)", i+1, len(jobs), job.Name, len(job.Suite.Steps))

			result, err := testRunner.RunSuite(ctx, job.Suite)
			if err != nil && result.Error == nil {
				result.Error = err
			}
			t.Logf("GameState ID: %s", result.GameState.String())

			s := stats[job.Name]
			if s == nil {
				s = &suiteStats{}
				stats[job.Name] = s
			}

			if result.Error != nil {
				s.failures++
				t.Errorf("[%d/%d] FAILED: Test suite '%s' failed: %v", i+1, len(jobs), job.Name, result.Error)
			} else {
				s.passes++
				t.Logf("[%d/%d] PASSED: Test suite '%s' completed in %v", i+1, len(jobs), job.Name, result.Duration)
			}

			for _, step := range result.Results {
				switch {
				case step.IsReset:
					t.Logf("   ↻ %s (%v)", step.StepName, step.Duration)
				case step.Success:
					t.Logf("   ✓ %s (%v)", step.StepName, step.Duration)
				default:
					t.Logf("   ✗ %s: %v", step.StepName, step.Error)
					failures = append(failures, failureDetail{
						caseName: job.Name,
						stepName: step.StepName,
						error:    step.Error.Error(),
						run:      run,
					})
				}
			}

			if result.Error != nil && testRunner.ErrorHandlingMode == runner.ErrorHandlingExit {
				t.FailNow()
			}
		}
	}

	if runs > 1 {
		t.Log(buildFinalReport(stats))
	}
	if len(failures) > 0 {
		t.Log(buildFailureReport(failures))
	}
}

type suiteStats struct {
	passes, failures int
}

// failureDetail tracks information about a specific step failure
type failureDetail struct {
	caseName string
	stepName string
	error    string
	run      int
}

func buildFinalReport(stats map[string]*suiteStats) string {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("\n=== FINAL MULTI-RUN STATISTICS ===\n")
	for _, name := range names {
		s := stats[name]
		total := s.passes + s.failures
		sb.WriteString(fmt.Sprintf("  %s: %d/%d passes (%.1f%%)\n", name, s.passes, total, float64(s.passes)/float64(total)*100))
		if s.passes > 0 && s.failures > 0 {
			sb.WriteString("    FLAKY: this suite both passed and failed across runs\n")
		}
	}
	return sb.String()
}

func buildFailureReport(failures []failureDetail) string {
	sort.Slice(failures, func(i, j int) bool {
		if failures[i].caseName != failures[j].caseName {
			return failures[i].caseName < failures[j].caseName
		}
		return failures[i].stepName < failures[j].stepName
	})

	var sb strings.Builder
	sb.WriteString("\n========================================\n")
	sb.WriteString("Detailed Failure Report\n")
	sb.WriteString("========================================\n")
	for _, f := range failures {
		sb.WriteString(fmt.Sprintf("  ✗ %s / %s (run %d):\n      %s\n", f.caseName, f.stepName, f.run, f.error))
	}
	return sb.String()
}

// selectCaseFiles returns the named cases, or every YAML file in dir.
func selectCaseFiles(dir, names string) ([]string, error) {
	if strings.TrimSpace(names) != "" {
		var files []string
		for _, name := range strings.Split(names, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if !strings.HasSuffix(name, ".yaml") {
				name += ".yaml"
			}
			files = append(files, filepath.Join(dir, name))
		}
		return files, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
