package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvocation(t *testing.T) {
	expr, err := invocation(" (a, b) => a + b.n ", []any{1, map[string]int{"n": 2}})
	require.NoError(t, err)
	assert.Equal(t,
		`Promise.resolve(((a, b) => a + b.n)(1, {"n":2})).then((v) => v === undefined ? null : v)`,
		expr)

	expr, err = invocation("() => 1", nil)
	require.NoError(t, err)
	assert.Contains(t, expr, "(() => 1)()")

	_, err = invocation("(x) => x", []any{func() {}})
	assert.Error(t, err)
}

func TestInvocation_EscapesScriptBreakingStrings(t *testing.T) {
	expr, err := invocation("(s) => s", []any{"</script>\u2028"})
	require.NoError(t, err)
	assert.NotContains(t, expr, "</script>")
	assert.NotContains(t, expr, "\u2028")
	assert.Contains(t, expr, `\u003c/script\u003e\u2028`)
}

func TestDeliverExpression(t *testing.T) {
	expr, err := deliverExpression(7, map[string]any{"ok": true}, nil)
	require.NoError(t, err)
	assert.Equal(t, `window.__episodeCrawlerBridge.deliver(7, true, {"ok":true})`, expr)

	expr, err = deliverExpression(8, nil, errors.New(`bad "thing"`))
	require.NoError(t, err)
	assert.Equal(t, `window.__episodeCrawlerBridge.deliver(8, false, "bad \"thing\"")`, expr)

	_, err = deliverExpression(9, make(chan int), nil)
	assert.Error(t, err)
}

func TestInstallScript(t *testing.T) {
	src := installScript("crawlerSettle")
	assert.Contains(t, src, `const binding = "`+bindingPrefix+`crawlerSettle"`)
	assert.Contains(t, src, `window["crawlerSettle"]`)
}

func TestHostFunctionName(t *testing.T) {
	for _, name := range []string{"crawlerSettle", "_x", "$y1"} {
		assert.True(t, hostFunctionName.MatchString(name), name)
	}
	for _, name := range []string{"", "1abc", "a-b", "a b", "a.b"} {
		assert.False(t, hostFunctionName.MatchString(name), name)
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, defaultReadySelector, o.ReadySelector)
	assert.Equal(t, defaultNavigationTimeout, o.NavigationTimeout)
	assert.Equal(t, defaultEvaluationTimeout, o.EvaluationTimeout)

	o = Options{NavigationTimeout: time.Second}.withDefaults()
	assert.Equal(t, time.Second, o.NavigationTimeout)
}

func TestErrors_Unwrap(t *testing.T) {
	nav := &NavigationError{URL: "http://x", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, nav, context.DeadlineExceeded)
	assert.Contains(t, nav.Error(), "http://x")

	var evalErr *EvaluationError
	wrapped := fmt.Errorf("listing: %w", &EvaluationError{Err: ErrClosed})
	require.ErrorAs(t, wrapped, &evalErr)
	assert.ErrorIs(t, wrapped, ErrClosed)
}

// The tests below launch a real browser and run only with CHROME_TESTS=1.
func openTestSession(t *testing.T) *Session {
	t.Helper()
	if os.Getenv("CHROME_TESTS") != "1" {
		t.Skip("set CHROME_TESTS=1 to run browser tests")
	}

	opts := DefaultOptions()
	opts.NoSandbox = true
	opts.NavigationTimeout = 20 * time.Second
	opts.EvaluationTimeout = 10 * time.Second

	s, err := Open(context.Background(), opts, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSession_NavigateEvaluateAndHostFunction(t *testing.T) {
	s := openTestSession(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<html><body><h1 class="entry-title">Episode 1 - Guest</h1></body></html>`)
	}))
	defer srv.Close()

	ctx := context.Background()
	err := s.ExposeHostFunction(ctx, "double", func(_ context.Context, args []json.RawMessage) (any, error) {
		var n int
		if err := json.Unmarshal(args[0], &n); err != nil {
			return nil, err
		}
		return n * 2, nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, s.ExposeHostFunction(ctx, "double", nil), ErrHostFunctionExists)

	require.NoError(t, s.Navigate(ctx, srv.URL))

	var title string
	require.NoError(t, s.Evaluate(ctx, `(sel) => document.querySelector(sel).textContent`, &title, ".entry-title"))
	assert.Equal(t, "Episode 1 - Guest", title)

	var doubled int
	require.NoError(t, s.Evaluate(ctx, `async (n) => await window.double(n)`, &doubled, 21))
	assert.Equal(t, 42, doubled)

	var nothing any
	require.NoError(t, s.Evaluate(ctx, `() => undefined`, &nothing))
	assert.Nil(t, nothing)
}

func TestSession_EvaluationErrors(t *testing.T) {
	s := openTestSession(t)
	ctx := context.Background()

	err := s.Evaluate(ctx, `() => { throw new Error("boom") }`, nil)
	var evalErr *EvaluationError
	assert.ErrorAs(t, err, &evalErr)

	short, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	err = s.Evaluate(short, `() => new Promise(() => {})`, nil)
	assert.ErrorAs(t, err, &evalErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSession_NavigationFailure(t *testing.T) {
	s := openTestSession(t)

	err := s.Navigate(context.Background(), "http://127.0.0.1:1/unreachable")
	var navErr *NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Equal(t, "http://127.0.0.1:1/unreachable", navErr.URL)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s := openTestSession(t)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Navigate(context.Background(), "about:blank"), ErrClosed)
	assert.ErrorIs(t, s.Evaluate(context.Background(), "() => 1", nil), ErrClosed)
}
