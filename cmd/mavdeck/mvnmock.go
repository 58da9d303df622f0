package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// mvnMockConfig is read from the environment so the mock can stand in for
// mvn without any extra arguments.
type mvnMockConfig struct {
	delay    time.Duration
	fail     bool
	exitCode int
	linger   time.Duration
}

func newMvnMockCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "mvn-mock [mvn args...]",
		Short:              "Fake build tool that streams Maven-like output",
		Hidden:             true,
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
			defer signal.Stop(sigCh)
			code := runMvnMock(args, mockConfigFromEnv(os.Getenv), cmd.OutOrStdout(), sigCh)
			if code != 0 {
				return exitCodeError{code: code}
			}
			return nil
		},
	}
}

func mockConfigFromEnv(getenv func(string) string) mvnMockConfig {
	cfg := mvnMockConfig{delay: 40 * time.Millisecond, exitCode: 1}
	if v, err := strconv.Atoi(getenv("MVN_MOCK_DELAY_MS")); err == nil && v >= 0 {
		cfg.delay = time.Duration(v) * time.Millisecond
	}
	if v, err := strconv.Atoi(getenv("MVN_MOCK_LINGER_MS")); err == nil && v > 0 {
		cfg.linger = time.Duration(v) * time.Millisecond
	}
	switch strings.ToLower(strings.TrimSpace(getenv("MVN_MOCK_FAIL"))) {
	case "1", "true", "yes":
		cfg.fail = true
	}
	if v, err := strconv.Atoi(getenv("MVN_MOCK_EXIT_CODE")); err == nil && v > 0 {
		cfg.exitCode = v
	}
	return cfg
}

// mockInvocation is the subset of an mvn command line the mock reacts to.
type mockInvocation struct {
	goals    []string
	module   string
	profiles []string
}

func parseMockInvocation(args []string) mockInvocation {
	var inv mockInvocation
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-pl" || arg == "--projects":
			if i+1 < len(args) {
				inv.module = args[i+1]
				i++
			}
		case arg == "-P" || arg == "--activate-profiles":
			if i+1 < len(args) {
				inv.profiles = append(inv.profiles, strings.Split(args[i+1], ",")...)
				i++
			}
		case strings.HasPrefix(arg, "-P"):
			inv.profiles = append(inv.profiles, strings.Split(arg[2:], ",")...)
		case strings.HasPrefix(arg, "-"):
		default:
			inv.goals = append(inv.goals, arg)
		}
	}
	return inv
}

func (inv mockInvocation) lines(fail bool) []string {
	project := "demo"
	if inv.module != "" {
		project = inv.module
	}
	out := []string{
		"[INFO] Scanning for projects...",
		"[INFO] ",
		"[INFO] ------------------< com.example:" + project + " >------------------",
		"[INFO] Building " + project + " 1.0-SNAPSHOT",
	}
	if len(inv.profiles) > 0 {
		out = append(out, "[INFO] Active profiles: "+strings.Join(inv.profiles, ", "))
	}
	for _, goal := range inv.goals {
		switch {
		case goal == "clean":
			out = append(out, "[INFO] --- maven-clean-plugin:3.3.2:clean (default-clean) @ "+project+" ---")
		case goal == "test" || goal == "verify" || goal == "install" || goal == "package":
			out = append(out,
				"[INFO] --- maven-compiler-plugin:3.13.0:compile (default-compile) @ "+project+" ---",
				"[INFO] --- maven-surefire-plugin:3.2.5:test (default-test) @ "+project+" ---",
				"[INFO] Running com.example.AppTest",
			)
			if fail {
				out = append(out,
					"[ERROR] Tests run: 3, Failures: 1, Errors: 0, Skipped: 0",
					"[ERROR] com.example.AppTest.shouldAdd:17 expected: <4> but was: <5>",
				)
			} else {
				out = append(out, "[INFO] Tests run: 3, Failures: 0, Errors: 0, Skipped: 0")
			}
		default:
			out = append(out, "[INFO] --- "+goal+" @ "+project+" ---")
		}
	}
	if fail {
		return append(out, "[INFO] BUILD FAILURE", "[ERROR] Failed to execute goal on project "+project)
	}
	return append(out, "[INFO] BUILD SUCCESS")
}

// runMvnMock streams fake build output for args and returns the exit code.
// A signal on sig stops the stream with the conventional 128+n code.
func runMvnMock(args []string, cfg mvnMockConfig, stdout io.Writer, sig <-chan os.Signal) int {
	w := bufio.NewWriter(stdout)
	defer func() { _ = w.Flush() }()

	emit := func(line string) {
		_, _ = fmt.Fprintln(w, line)
		_ = w.Flush()
	}
	wait := func(d time.Duration) (os.Signal, bool) {
		if d <= 0 {
			select {
			case s := <-sig:
				return s, true
			default:
				return nil, false
			}
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case s := <-sig:
			return s, true
		case <-timer.C:
			return nil, false
		}
	}
	interrupted := func(s os.Signal) int {
		emit("[WARNING] build interrupted by " + s.String())
		if n, ok := s.(syscall.Signal); ok {
			return 128 + int(n)
		}
		return 130
	}

	emit("[INFO] mvn-mock " + strings.Join(args, " "))
	inv := parseMockInvocation(args)
	for _, line := range inv.lines(cfg.fail) {
		if s, ok := wait(cfg.delay); ok {
			return interrupted(s)
		}
		emit(line)
	}
	if s, ok := wait(cfg.linger); ok {
		return interrupted(s)
	}
	if cfg.fail {
		return cfg.exitCode
	}
	return 0
}
