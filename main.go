package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/shell"

	"github.com/timvw/pshell/config"
	"github.com/timvw/pshell/conn"
	"github.com/timvw/pshell/fstree"
	"github.com/timvw/pshell/session"
)

var (
	version = "dev"
	flags   globalFlags
)

type globalFlags struct {
	configPath string
	shell      string
	encoding   string
	timeout    time.Duration
	verbose    bool
}

// exitCodeError carries a child's exit status out to main.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pshell",
	Short: "Drive a shell subprocess command by command",
	Long: `Run commands in a long-lived shell and read back their output,
stderr and exit status separately.

Configuration is read from --config, $` + config.EnvConfig + ` or
~/.config/` + config.ConfigDir + `/` + config.ConfigFile + `. Flags override file values.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file path")
	pf.StringVar(&flags.shell, "shell", "", "shell command line, e.g. \"/bin/bash --norc\"")
	pf.StringVar(&flags.encoding, "encoding", "", "stream encoding (default: locale)")
	pf.DurationVar(&flags.timeout, "timeout", 0, "per-command timeout")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output to stderr")

	runCmd.Flags().BoolVarP(&keepGoing, "keep-going", "k", false, "continue after a failing line")

	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(materializeCmd)
	rootCmd.AddCommand(versionCmd)
}

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	stderrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	hintStyle   = lipgloss.NewStyle().Faint(true)
)

// Helper functions

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// applyFlags overrides cfg with the flags the user actually set.
func applyFlags(cfg *config.Config, f globalFlags, changed func(name string) bool) error {
	if changed("shell") {
		fields, err := shell.Fields(f.shell, nil)
		if err != nil {
			return fmt.Errorf("invalid --shell: %w", err)
		}
		cfg.Shell = fields
	}
	if changed("encoding") {
		cfg.Encoding = f.encoding
	}
	if changed("timeout") {
		cfg.Timeout = f.timeout
	}
	return cfg.Validate()
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, flags, cmd.Flags().Changed); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession starts the configured shell and enters its outermost frame.
func openSession(cmd *cobra.Command) (*session.Session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), flags.verbose)

	c, err := cfg.Connection(logger)
	if err != nil {
		return nil, err
	}
	s := session.New(c, cfg.SessionOptions(logger)...)
	if err := s.Enter(cfg.Session.Frame()); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", strings.Join(cfg.Shell, " "), err)
	}
	return s, nil
}

// closeSession exits every frame. Exit always pops, so the process is
// finished even when a nested exit fails.
func closeSession(s *session.Session) {
	for s.Depth() >= 0 {
		_ = s.Exit()
	}
}

// scriptLines returns the lines of a script worth sending: blank lines and
// comments are skipped.
func scriptLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func printOutput(w io.Writer, out string) {
	if out == "" {
		return
	}
	fmt.Fprintln(w, out)
}

func statusLine(code int) string {
	if code == 0 {
		return okStyle.Render("✓ 0")
	}
	return failStyle.Render(fmt.Sprintf("✗ %d", code))
}

// Commands

var execCmd = &cobra.Command{
	Use:   "exec [--] <command...>",
	Short: "Run one command and exit with its status",
	Long: `Run one command in a fresh shell. Stdout and stderr are printed
to the matching streams and pshell exits with the command's status.

Examples:
  pshell exec -- ls -alh /
  pshell exec 'echo $HOME'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession(s)
		s.SetAutoReturnCodeError(false)

		out, err := s.Send(strings.Join(args, " "))
		if err != nil {
			return err
		}
		printOutput(cmd.OutOrStdout(), out)
		printOutput(cmd.ErrOrStderr(), s.LastStderr())

		if code := s.LastReturnCode(); code != 0 {
			return &exitCodeError{code: code}
		}
		return nil
	},
}

var keepGoing bool

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Send a script line by line, stopping at the first failure",
	Long: `Send each non-empty, non-comment line of a script to one shell.
Unlike running the script directly, state such as the working directory
and exported variables carries over between lines.

With --keep-going every line is sent and pshell exits with the status of
the last failing line.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		lines, err := scriptLines(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession(s)
		s.SetAutoReturnCodeError(true)

		var failed *exitCodeError
		for _, line := range lines {
			out, err := s.Send(line)
			var exitErr *session.ExitError
			if err != nil && !errors.As(err, &exitErr) {
				return err
			}
			printOutput(cmd.OutOrStdout(), out)
			printOutput(cmd.ErrOrStderr(), s.LastStderr())
			if exitErr == nil {
				continue
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", statusLine(exitErr.Code), line)
			failed = &exitCodeError{code: exitErr.Code}
			if !keepGoing {
				return failed
			}
		}
		if failed != nil {
			return failed
		}
		return nil
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive loop over one shell",
	Long: `Read commands interactively and send them to one shell. Type exit
or press Ctrl+C to leave.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession(s)
		s.SetAutoReturnCodeError(false)

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, hintStyle.Render("exit or Ctrl+C to quit"))
		for {
			var line string
			input := huh.NewInput().
				Title(fmt.Sprintf("pshell [%d]", s.Depth())).
				Prompt("$ ").
				Value(&line)
			if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return err
			}

			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "exit", "quit":
				return nil
			}

			fmt.Fprintln(w, hintStyle.Render("$ "+line))
			out, err := s.Send(line)
			if errors.Is(err, conn.ErrTimeout) {
				fmt.Fprintln(w, failStyle.Render("timed out"))
				continue
			}
			if err != nil {
				return err
			}
			printOutput(w, out)
			if stderr := s.LastStderr(); stderr != "" {
				fmt.Fprintln(w, stderrStyle.Render(stderr))
			}
			fmt.Fprintln(w, statusLine(s.LastReturnCode()))
		}
	},
}

var materializeCmd = &cobra.Command{
	Use:   "materialize <tree.toml> <root>",
	Short: "Create a directory tree from a declaration",
	Long: `Create directories and files under root from a TOML declaration:

  nodes = [
    "etc",
    { "etc/motd" = { content = "hello", mode = "0644" } },
  ]

Existing files are left alone apart from their mode.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := fstree.LoadFile(args[0])
		if err != nil {
			return err
		}
		if err := fstree.Create(args[1], nodes); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Materialized %d nodes under: %s\n", len(nodes), args[1])
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pshell version %s\n", version)
	},
}
