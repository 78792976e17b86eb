package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"sync"

	"episode-crawler/pkg/browser"
)

const testListingURL = "https://wtf.test/podcast"

type fakeEntry struct {
	title string
	date  string
	slug  string
}

func numbered(n int, name string) fakeEntry {
	return fakeEntry{
		title: fmt.Sprintf("Episode %d - %s", n, name),
		date:  "March 3, 2022",
		slug:  fmt.Sprintf("episode-%d", n),
	}
}

func repost(name string) fakeEntry {
	return fakeEntry{
		title: "Repost - " + name,
		date:  "February 28, 2022",
		slug:  "repost-" + strings.ToLower(strings.ReplaceAll(name, " ", "-")),
	}
}

func detailURL(slug string) string {
	return testListingURL + "/" + slug
}

// fakeSession renders a listing page from batches of entries. The first
// batch is visible after navigation; each load-more click reveals the next.
type fakeSession struct {
	mu sync.Mutex

	batches  [][]fakeEntry
	revealed int
	// stuck keeps the load-more control on the page without adding entries.
	stuck bool

	details  map[string]string
	navErrs  map[string]error
	panicURL string

	current       string
	funcs         map[string]browser.HostFunc
	navigations   []string
	loadMoreCalls int
	closeCount    int
}

func newFakeSession(batches ...[]fakeEntry) *fakeSession {
	return &fakeSession{
		batches:  batches,
		revealed: 1,
		details:  map[string]string{},
		navErrs:  map[string]error{},
		funcs:    map[string]browser.HostFunc{},
	}
}

func (f *fakeSession) opener() Opener {
	return func(context.Context) (PageSession, error) { return f, nil }
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return &browser.NavigationError{URL: url, Err: err}
	}
	f.navigations = append(f.navigations, url)
	if url == f.panicURL {
		panic("renderer crashed")
	}
	if err, ok := f.navErrs[url]; ok {
		return &browser.NavigationError{URL: url, Err: err}
	}
	f.current = url
	return nil
}

func (f *fakeSession) Evaluate(ctx context.Context, script string, out any, args ...any) error {
	if err := ctx.Err(); err != nil {
		return &browser.EvaluationError{Err: err}
	}

	var result any
	switch script {
	case snapshotScript:
		f.mu.Lock()
		result = snapshot{URL: f.current, HTML: f.pageHTML()}
		f.mu.Unlock()

	case loadMoreScript:
		f.mu.Lock()
		if !f.hasLoadMore() {
			f.mu.Unlock()
			result = false
			break
		}
		f.loadMoreCalls++
		if !f.stuck {
			f.revealed++
		}
		settle := f.funcs[args[1].(string)]
		f.mu.Unlock()

		if settle == nil {
			return &browser.EvaluationError{Err: fmt.Errorf("%s is not defined", args[1])}
		}
		if _, err := settle(ctx, nil); err != nil {
			return &browser.EvaluationError{Err: err}
		}
		result = true

	default:
		return &browser.EvaluationError{Err: fmt.Errorf("unexpected script %q", script)}
	}

	if out == nil {
		return nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (f *fakeSession) ExposeHostFunction(_ context.Context, name string, fn browser.HostFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.funcs[name]; ok {
		return browser.ErrHostFunctionExists
	}
	f.funcs[name] = fn
	return nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCount++
	return nil
}

func (f *fakeSession) hasLoadMore() bool {
	return f.current == testListingURL && (f.stuck || f.revealed < len(f.batches))
}

func (f *fakeSession) pageHTML() string {
	if f.current != testListingURL {
		if page, ok := f.details[f.current]; ok {
			return page
		}
		return "<html><body><p>Page not found</p></body></html>"
	}

	var b strings.Builder
	b.WriteString("<html><body><div class=\"entries\">")
	for i := 0; i < f.revealed && i < len(f.batches); i++ {
		for _, e := range f.batches[i] {
			fmt.Fprintf(&b, `<article><div class="entry-inner">
  <h1 class="entry-title"><a href="/podcast/%[3]s">%[1]s</a></h1>
  <time class="entry-date">%[2]s</time>
  <a class="more-link" href="/podcast/%[3]s">Listen</a>
</div></article>`, html.EscapeString(e.title), e.date, e.slug)
		}
	}
	b.WriteString("</div>")
	if f.hasLoadMore() {
		b.WriteString(`<a class="more-episodes-btn" href="#">More Episodes</a>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func detailPage(description, link string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="entry-content">`)
	if description != "" {
		fmt.Fprintf(&b, `<div class="sqs-block-content"><p>%s</p></div>`, html.EscapeString(description))
	}
	if link != "" {
		fmt.Fprintf(&b, `<div class="sqs-audio-embed" data-url="%s"></div>`, link)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func multiBlockDetailPage(description string) string {
	return fmt.Sprintf(`<html><body>
<div class="entry-content"><div class="sqs-block-content">%s</div>
  <div class="sqs-audio-embed" data-url="https://cdn.wtf.test/a.mp3"></div></div>
<div class="entry-content"><div class="sqs-audio-embed" data-url="https://cdn.wtf.test/b.mp3"></div></div>
</body></html>`, html.EscapeString(description))
}
