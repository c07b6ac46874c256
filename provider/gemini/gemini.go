// Package gemini fetches refreshed record data from a Gemini model.
//
// One prompt is sent per record; every answer must be a JSON object whose
// members become field updates for that record. A record whose answer cannot
// be used is skipped without affecting the others.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/tidwall/gjson"
	"google.golang.org/genai"

	"github.com/kevinwang15/litpatch"
)

const (
	defaultModel       = "gemini-2.5-flash"
	defaultConcurrency = 2
	defaultRateDelay   = 2 * time.Second
	defaultMaxRetries  = 3
	defaultTimeout     = 30 * time.Second
)

// Tool identifies a record to refresh.
type Tool struct {
	ID       string
	Name     string
	Company  string
	Category string
}

// Provider implements provider.Provider.
type Provider struct {
	models      Models
	model       string
	tools       []Tool
	concurrency int
	rateDelay   time.Duration
	maxRetries  int
	timeout     time.Duration
	now         func() time.Time
	log         litpatch.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithModel sets the model name, gemini-2.5-flash by default.
func WithModel(name string) Option {
	return func(p *Provider) {
		if name != "" {
			p.model = name
		}
	}
}

// WithConcurrency bounds the number of requests in flight.
func WithConcurrency(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithRateDelay sets the pause between two submissions. Retries back off by
// multiples of it.
func WithRateDelay(d time.Duration) Option {
	return func(p *Provider) {
		if d >= 0 {
			p.rateDelay = d
		}
	}
}

// WithMaxRetries sets the number of attempts per record.
func WithMaxRetries(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxRetries = n
		}
	}
}

// WithTimeout bounds a single request.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithClock replaces time.Now in prompts.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithLogger reports per-record progress.
func WithLogger(l litpatch.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// New creates a provider backed by the Gemini API.
func New(ctx context.Context, apiKey string, tools []Tool, opts ...Option) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return NewWithModels(&modelsWrapper{models: client.Models}, tools, opts...), nil
}

// NewWithModels creates a provider over any Models implementation.
func NewWithModels(models Models, tools []Tool, opts ...Option) *Provider {
	p := &Provider{
		models:      models,
		model:       defaultModel,
		tools:       tools,
		concurrency: defaultConcurrency,
		rateDelay:   defaultRateDelay,
		maxRetries:  defaultMaxRetries,
		timeout:     defaultTimeout,
		now:         time.Now,
		log:         nopLogger{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type fetchResult struct {
	update litpatch.RecordUpdate
	err    error
}

type fetchParam struct {
	ctx     context.Context
	idx     int
	tool    Tool
	results []fetchResult
	wg      *sync.WaitGroup
}

// FetchUpdates asks the model about every tool. Records that fail are logged
// and left out; an error is returned only when the context ends or nothing at
// all could be fetched.
func (p *Provider) FetchUpdates(ctx context.Context) (litpatch.UpdateSet, error) {
	if len(p.tools) == 0 {
		return litpatch.UpdateSet{}, nil
	}
	results := make([]fetchResult, len(p.tools))
	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(p.concurrency, func(arg any) {
		param, ok := arg.(*fetchParam)
		if !ok {
			panic("gemini fetch pool args type error")
		}
		defer param.wg.Done()
		u, err := p.fetchOne(param.ctx, param.tool)
		param.results[param.idx] = fetchResult{update: u, err: err}
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create pool: %w", err)
	}
	defer pool.Release()

submit:
	for i, t := range p.tools {
		if i > 0 && p.rateDelay > 0 {
			if err := sleep(ctx, p.rateDelay); err != nil {
				for j := i; j < len(p.tools); j++ {
					results[j].err = err
				}
				break submit
			}
		}
		wg.Add(1)
		param := &fetchParam{ctx: ctx, idx: i, tool: t, results: results, wg: &wg}
		if err := pool.Invoke(param); err != nil {
			wg.Done()
			results[i].err = fmt.Errorf("submit %s: %w", t.ID, err)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		set  litpatch.UpdateSet
		errs []error
	)
	for i, r := range results {
		if r.err != nil {
			p.log.Warnf("gemini: %s: %v", p.tools[i].ID, r.err)
			errs = append(errs, fmt.Errorf("%s: %w", p.tools[i].ID, r.err))
			continue
		}
		set = append(set, r.update)
	}
	if len(set) == 0 {
		return nil, errors.Join(errs...)
	}
	p.log.Infof("gemini: fetched %d of %d record(s)", len(set), len(p.tools))
	return set, nil
}

// fetchOne retries with a growing delay, the way the rate-limited API expects.
func (p *Provider) fetchOne(ctx context.Context, t Tool) (litpatch.RecordUpdate, error) {
	prompt := Prompt(t, p.now())
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, p.rateDelay*time.Duration(attempt)); err != nil {
				return litpatch.RecordUpdate{}, err
			}
		}
		fields, err := p.ask(ctx, prompt)
		if err == nil {
			p.log.Debugf("gemini: %s: %d field(s)", t.ID, len(fields))
			return litpatch.RecordUpdate{ID: t.ID, Fields: fields}, nil
		}
		lastErr = err
		p.log.Debugf("gemini: %s: attempt %d failed: %v", t.ID, attempt+1, err)
	}
	return litpatch.RecordUpdate{}, fmt.Errorf("after %d attempt(s): %w", p.maxRetries, lastErr)
}

func (p *Provider) ask(ctx context.Context, prompt string) ([]litpatch.Field, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	rsp, err := p.models.GenerateContent(callCtx, p.model, genai.Text(prompt),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return nil, err
	}
	return ParseResponse(responseText(rsp))
}

func responseText(rsp *genai.GenerateContentResponse) string {
	if rsp == nil || len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// ParseResponse extracts the JSON object from a model answer, tolerating
// Markdown code fences and prose around it.
func ParseResponse(text string) ([]litpatch.Field, error) {
	s := strings.TrimSpace(text)
	if start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); start >= 0 && end > start {
		s = s[start : end+1]
	}
	if !gjson.Valid(s) {
		return nil, litpatch.NewDataFormatError("gemini", errors.New("response is not valid JSON"))
	}
	res := gjson.Parse(s)
	if !res.IsObject() {
		return nil, litpatch.NewDataFormatError("gemini", errors.New("response is not a JSON object"))
	}
	v := litpatch.ValueFromResult(res)
	if len(v.Fields()) == 0 {
		return nil, litpatch.NewDataFormatError("gemini", errors.New("response object is empty"))
	}
	return v.Fields(), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
