package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// HostFunc is a Go function callable from page scripts. Arguments arrive as
// the JSON encoding of the values the page passed; the result is JSON
// encoded back into the page.
type HostFunc func(ctx context.Context, args []json.RawMessage) (any, error)

// bindingPrefix namespaces the CDP runtime bindings backing host functions.
const bindingPrefix = "__episodeCrawlerHost_"

var hostFunctionName = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// bindingRequest is what the page posts over the binding.
type bindingRequest struct {
	Seq  int64             `json:"seq"`
	Args []json.RawMessage `json:"args"`
}

// installScript defines window[name] as a promise-returning wrapper around
// the CDP binding. Pending calls are keyed by a sequence number and settled
// by deliverExpression.
func installScript(name string) string {
	return fmt.Sprintf(`(() => {
  const binding = %q;
  const bridge = window.__episodeCrawlerBridge || (window.__episodeCrawlerBridge = {
    seq: 0,
    pending: new Map(),
    deliver(seq, ok, value) {
      const call = this.pending.get(seq);
      if (!call) { return false; }
      this.pending.delete(seq);
      if (ok) { call.resolve(value); } else { call.reject(new Error(value)); }
      return true;
    },
  });
  window[%q] = (...args) => new Promise((resolve, reject) => {
    const seq = ++bridge.seq;
    bridge.pending.set(seq, { resolve, reject });
    window[binding](JSON.stringify({ seq, args }));
  });
  return true;
})()`, bindingPrefix+name, name)
}

// deliverExpression settles the pending page promise for seq with either
// the JSON encoding of result or the message of callErr.
func deliverExpression(seq int64, result any, callErr error) (string, error) {
	if callErr != nil {
		msg, err := json.Marshal(callErr.Error())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("window.__episodeCrawlerBridge.deliver(%d, false, %s)", seq, msg), nil
	}

	value, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode host function result: %w", err)
	}
	return fmt.Sprintf("window.__episodeCrawlerBridge.deliver(%d, true, %s)", seq, value), nil
}

// invocation wraps a function expression into a call with JSON encoded
// arguments. The result is always a promise and never undefined, so the
// caller can await it and decode null.
func invocation(script string, args []any) (string, error) {
	encoded := make([]string, 0, len(args))
	for i, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("encode argument %d: %w", i, err)
		}
		encoded = append(encoded, string(b))
	}

	return fmt.Sprintf("Promise.resolve((%s)(%s)).then((v) => v === undefined ? null : v)",
		strings.TrimSpace(script), strings.Join(encoded, ", ")), nil
}
