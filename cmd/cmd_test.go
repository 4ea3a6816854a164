package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundprep/examgen/internal/exam"
	"github.com/fundprep/examgen/internal/llm"
	"github.com/fundprep/examgen/internal/store"
)

func testParams(t *testing.T) exam.Params {
	t.Helper()
	v, ok := exam.DefaultCatalog().Variant("fund")
	require.True(t, ok)
	p, err := exam.NewParams(v, "law", "", 2, "")
	require.NoError(t, err)
	return p
}

func TestGenerate_WholeBody(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Fragments: []string{"Q1 ", "Q2"}})
	ctrl := exam.NewController(mock, llm.NewCredential("k"))

	var out bytes.Buffer
	require.NoError(t, generate(context.Background(), &out, ctrl, testParams(t), false))

	assert.Equal(t, "Q1 Q2\n", out.String())
	require.Len(t, mock.Calls, 1)
	assert.Contains(t, mock.Calls[0].Messages[0].Content, "Number of questions: 2")
}

func TestGenerate_Streamed(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Fragments: []string{"A", "B", "C"}})
	ctrl := exam.NewController(mock, llm.NewCredential("k"))

	var out bytes.Buffer
	require.NoError(t, generate(context.Background(), &out, ctrl, testParams(t), true))
	assert.Equal(t, "ABC\n", out.String())
}

func TestGenerate_StreamFailureKeepsPartialText(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Fragments: []string{"Question 1"},
		StreamErr: &llm.ErrNetworkFailure{Err: errors.New("connection reset by peer")},
	})
	ctrl := exam.NewController(mock, llm.NewCredential("k"))

	var out bytes.Buffer
	err := generate(context.Background(), &out, ctrl, testParams(t), true)
	require.Error(t, err)

	assert.Equal(t, "Question 1\n", out.String())
	var nf *llm.ErrNetworkFailure
	assert.True(t, errors.As(err, &nf))
	assert.Contains(t, err.Error(), "connection reset by peer")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestGenerate_WriteFailureFreesSession(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Fragments: []string{"A", "B", "C"}},
		llm.MockResponse{Fragments: []string{"again"}},
	)
	ctrl := exam.NewController(mock, llm.NewCredential("k"))

	err := generate(context.Background(), failingWriter{}, ctrl, testParams(t), true)
	assert.ErrorContains(t, err, "broken pipe")

	var out bytes.Buffer
	require.NoError(t, generate(context.Background(), &out, ctrl, testParams(t), true))
	assert.Equal(t, "again\n", out.String())
}

func TestGenerate_MissingCredential(t *testing.T) {
	mock := llm.NewMockProvider()
	ctrl := exam.NewController(mock, llm.NewCredential(""))

	for _, stream := range []bool{false, true} {
		var out bytes.Buffer
		err := generate(context.Background(), &out, ctrl, testParams(t), stream)
		assert.ErrorIs(t, err, llm.ErrMissingCredential)
		assert.Contains(t, err.Error(), "No API key")
		assert.Empty(t, out.String())
	}
	assert.Empty(t, mock.Calls)
}

func TestGenerate_UnknownErrorKeepsDiagnostic(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: errors.New("model overloaded: try later")})
	ctrl := exam.NewController(mock, llm.NewCredential("k"))

	err := generate(context.Background(), &bytes.Buffer{}, ctrl, testParams(t), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded: try later")
}

func TestPromptKey_NotATerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()

	_, err = promptKey(f, &bytes.Buffer{}, "GOOGLE_API_KEY")
	assert.ErrorIs(t, err, llm.ErrMissingCredential)
	assert.ErrorIs(t, err, errNoTerminal)
}

// flagCmd builds a command carrying the global flags, parsed from args.
func flagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	f := c.Flags()
	f.String("config", "", "")
	f.String("log-level", "", "")
	f.String("log-file", "", "")
	f.Bool("history", false, "")
	f.String("db", "", "")
	require.NoError(t, f.Parse(args))
	c.SetContext(context.Background())
	return c
}

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("EXAMGEN_DB", "")
}

func TestSetup_Defaults(t *testing.T) {
	isolateConfig(t)

	e, err := setup(flagCmd(t), logTUI)
	require.NoError(t, err)
	defer e.close()

	assert.Nil(t, e.store, "history is opt-in")
	assert.Equal(t, "fund", e.catalog.Default().ID)
}

func TestSetup_DBFlagEnablesHistory(t *testing.T) {
	isolateConfig(t)
	dbPath := filepath.Join(t.TempDir(), "nested", "history.db")

	e, err := setup(flagCmd(t, "--db", dbPath, "--log-level", "debug"), logTUI)
	require.NoError(t, err)
	defer e.close()

	require.NotNil(t, e.store)
	assert.True(t, e.cfg.History.Enabled)
	assert.Equal(t, "debug", e.cfg.Log.Level)
	assert.FileExists(t, dbPath)
}

func TestSetup_CommandLogLevel(t *testing.T) {
	isolateConfig(t)

	tests := []struct {
		name    string
		mode    logMode
		level   string
		env     string
		logFile bool
		want    string
	}{
		{name: "command default", mode: logCommand, want: "warn"},
		{name: "service default", mode: logService, want: "info"},
		{name: "flag wins", mode: logCommand, level: "info", want: "info"},
		{name: "environment wins", mode: logCommand, env: "debug", want: "debug"},
		{name: "log file keeps level", mode: logCommand, logFile: true, want: "info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("EXAMGEN_LOG_LEVEL", tt.env)
			var args []string
			if tt.level != "" {
				args = append(args, "--log-level", tt.level)
			}
			if tt.logFile {
				args = append(args, "--log-file", filepath.Join(t.TempDir(), "examgen.log"))
			}

			e, err := setup(flagCmd(t, args...), tt.mode)
			require.NoError(t, err)
			defer e.close()
			assert.Equal(t, tt.want, e.cfg.Log.Level)
		})
	}
}

func TestSetup_InvalidLogLevel(t *testing.T) {
	isolateConfig(t)
	_, err := setup(flagCmd(t, "--log-level", "loud"), logTUI)
	assert.ErrorContains(t, err, "invalid log level")
}

func TestSetup_CatalogFromConfig(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()

	catalog := `{"variants":[{"id":"cpa","title":"CPA","system_instruction":"You write CPA questions.",
		"subjects":[{"id":"audit","label":"Auditing"}],"allow_custom":false,
		"min_count":1,"max_count":4,"default_count":2}]}`
	catalogPath := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(catalog), 0o644))

	cfgPath := filepath.Join(dir, "examgen.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("catalog:\n  file: "+catalogPath+"\n"), 0o644))

	e, err := setup(flagCmd(t, "--config", cfgPath), logTUI)
	require.NoError(t, err)
	defer e.close()

	v, err := e.variant("")
	require.NoError(t, err)
	assert.Equal(t, "cpa", v.ID)

	_, err = e.variant("fund")
	assert.ErrorContains(t, err, `unknown variant "fund"`)
}

func TestController_MissingKeyIsNotFatal(t *testing.T) {
	isolateConfig(t)
	e, err := setup(flagCmd(t), logTUI)
	require.NoError(t, err)
	defer e.close()

	cfg := e.cfg.LLM
	cfg.Provider = "gemini"
	cfg.Gemini.APIKey = ""

	ctrl, err := e.controller(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, ctrl.Ready())
	assert.Equal(t, "gemini", status(cfg, ctrl))
}

func TestPrintCatalog(t *testing.T) {
	var out bytes.Buffer
	printCatalog(&out, exam.DefaultCatalog())

	for _, want := range []string{"fund", "fund-quick", "custom", "basics", "questions: 1-10 (default 3)"} {
		assert.Contains(t, out.String(), want)
	}
}

func TestCatalogValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"variants":[]}`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"catalog", "validate", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	assert.Error(t, rootCmd.ExecuteContext(context.Background()))
}

func TestHistoryPrinting(t *testing.T) {
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()
	repo := s.EventRepo()

	var out bytes.Buffer
	printEvents(&out, nil)
	assert.Contains(t, out.String(), "No calls recorded.")

	ctx := context.Background()
	require.NoError(t, repo.AppendLLMRequest(ctx, store.LLMRequestEventData{
		RequestID: "r-1", Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "exam-questions",
		InputTokens: 1_000_000, OutputTokens: 1_000_000, LatencyMs: 900, Success: true,
		RequestBody: "prompt", ResponseBody: "questions",
	}))
	require.NoError(t, repo.AppendLLMRequest(ctx, store.LLMRequestEventData{
		RequestID: "r-2", Provider: "ollama", Model: "llama3", Purpose: "exam-questions",
		ErrorKind: "network_failure", ErrorMessage: "dial tcp: refused",
	}))

	events, err := repo.List(ctx, store.QueryOpts{From: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	require.Len(t, events, 2)

	out.Reset()
	printEvents(&out, events)
	assert.Contains(t, out.String(), "gemini-2.0-flash")
	assert.Contains(t, out.String(), "✗ network_failure")

	out.Reset()
	printEvent(&out, &events[0])
	assert.Contains(t, out.String(), "[network_failure] dial tcp: refused")
	assert.Contains(t, out.String(), "(not captured)")

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)

	out.Reset()
	printStats(&out, stats)
	assert.Contains(t, out.String(), "$0.5000") // 0.1 + 0.4 per million tokens
	assert.Contains(t, out.String(), "n/a")
}
