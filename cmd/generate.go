package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/fundprep/examgen/internal/exam"
	"github.com/fundprep/examgen/internal/llm"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one set of questions and print it",
	Example: `  examgen generate --subject basics --count 5
  examgen generate --variant custom --custom "Futures Law" --focus margin --stream`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.String("variant", "", "Exam variant ID (see 'examgen catalog list')")
	f.String("subject", "", "Subject ID or label; empty picks the first subject")
	f.String("custom", "", "Custom subject text; selects the custom subject")
	f.Int("count", 0, "Number of questions, clamped to the variant range (default: the variant's default)")
	f.String("focus", "", "Optional focus topic")
	f.Bool("stream", false, "Print the questions as they are generated")
}

// describedError shows the user message for err while keeping err in the
// chain.
type describedError struct{ err error }

func (e describedError) Error() string { return exam.Describe(e.err) }
func (e describedError) Unwrap() error { return e.err }

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(cmd, logCommand)
	if err != nil {
		return err
	}
	defer e.close()

	variantID, _ := cmd.Flags().GetString("variant")
	v, err := e.variant(variantID)
	if err != nil {
		return err
	}

	subject, _ := cmd.Flags().GetString("subject")
	custom, _ := cmd.Flags().GetString("custom")
	count, _ := cmd.Flags().GetInt("count")
	focus, _ := cmd.Flags().GetString("focus")
	stream, _ := cmd.Flags().GetBool("stream")

	if !cmd.Flags().Changed("count") {
		count = v.DefaultCount
	}
	if custom != "" && subject == "" {
		subject = exam.CustomChoice
	}
	params, err := exam.NewParams(v, subject, custom, count, focus)
	if err != nil {
		return describedError{err}
	}

	llmCfg := e.cfg.LLM
	if !llmCfg.Credential().Present() && llmCfg.KeyEnv() != "" {
		key, err := promptKey(os.Stdin, cmd.ErrOrStderr(), llmCfg.KeyEnv())
		if err != nil {
			return err
		}
		llmCfg = llmCfg.WithCredential(key)
	}

	ctrl, err := e.controller(ctx, llmCfg)
	if err != nil {
		return err
	}
	return generate(ctx, cmd.OutOrStdout(), ctrl, params, stream)
}

// generate runs one action for params and writes the body to w, fragment
// by fragment when stream is set.
func generate(ctx context.Context, w io.Writer, ctrl *exam.Controller, params exam.Params, stream bool) error {
	req := exam.BuildPrompt(params)

	if !stream {
		res, err := ctrl.Submit(ctx, req)
		if err != nil {
			return describedError{err}
		}
		_, err = fmt.Fprintln(w, res.Text)
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	updates, err := ctrl.Stream(ctx, req)
	if err != nil {
		return describedError{err}
	}
	var final exam.Update
	for u := range updates {
		if u.Fragment != "" {
			if _, err := io.WriteString(w, u.Fragment); err != nil {
				cancel()
				for range updates {
				}
				return fmt.Errorf("write questions: %w", err)
			}
		}
		if u.Final {
			final = u
		}
	}
	if final.Text != "" && !strings.HasSuffix(final.Text, "\n") {
		fmt.Fprintln(w)
	}
	if final.Err != nil {
		return describedError{final.Err}
	}
	return nil
}

// errNoTerminal is returned when a key is needed but stdin cannot be
// prompted without echoing.
var errNoTerminal = errors.New("stdin is not a terminal")

// promptKey asks once for the API key on a terminal without echoing it.
func promptKey(in *os.File, out io.Writer, keyEnv string) (string, error) {
	fd := in.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return "", describedError{fmt.Errorf("%w: set %s (%w)", llm.ErrMissingCredential, keyEnv, errNoTerminal)}
	}

	fmt.Fprintf(out, "%s is not set. Paste your API key: ", keyEnv)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read api key: %w", err)
	}
	key := strings.TrimSpace(string(b))
	if key == "" {
		return "", describedError{llm.ErrMissingCredential}
	}
	return key, nil
}
