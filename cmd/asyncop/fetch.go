package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Aurel1407/Shu-no-sub002/asyncop"
	"github.com/Aurel1407/Shu-no-sub002/http/transport"
	"github.com/Aurel1407/Shu-no-sub002/logger"
	"github.com/Aurel1407/Shu-no-sub002/notify"
	"github.com/Aurel1407/Shu-no-sub002/report"
	"github.com/Aurel1407/Shu-no-sub002/shutdown"
	"github.com/spf13/cobra"
)

var (
	errFetchFailed = errors.New("fetch failed")
	errBadHeader   = errors.New("header must look like 'Name: value'")
)

const reportWorkers = 2

type fetchRequest struct {
	method string
	url    string
	header http.Header
	body   []byte
}

type fetchFlags struct {
	method     string
	data       string
	headers    []string
	label      string
	maxRetries int
	timeout    time.Duration
}

func newFetchCommand(handler *shutdown.Handler) *cobra.Command {
	flags := &fetchFlags{}

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Call URL, retrying transient failures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, handler, flags, args[0])
		},
	}

	cmd.Flags().StringVarP(&flags.method, "method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringVarP(&flags.data, "data", "d", "", "request body")
	cmd.Flags().StringArrayVarP(&flags.headers, "header", "H", nil, "request header, repeatable")
	cmd.Flags().StringVar(&flags.label, "label", "", "operation label (overrides config)")
	cmd.Flags().IntVar(&flags.maxRetries, "max-retries", 0, "retries after the first attempt (overrides config)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "overall HTTP client timeout per attempt")

	return cmd
}

func runFetch(cmd *cobra.Command, handler *shutdown.Handler, flags *fetchFlags, url string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("label") {
		cfg.Operation.Label = flags.label
	}

	if cmd.Flags().Changed("max-retries") {
		cfg.Operation.MaxRetries = flags.maxRetries
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	req, err := newFetchRequest(flags, url)
	if err != nil {
		return err
	}

	flush, err := setup(ctx, cmd, cfg, handler)
	if err != nil {
		return err
	}
	defer flush()

	ctx = logger.WithSubsystem(ctx, appName)

	client := transport.NewClient(flags.timeout, transport.EnableDNSCache)
	queue := notify.NewQueue(notify.WithDedup())
	pool := report.NewPool(reportWorkers)

	reporter := report.Async(report.Multi(report.Log(), report.Notify(queue)), pool)

	var body []byte

	ctl := asyncop.New(func(ctx context.Context, req fetchRequest) error {
		var err error

		body, err = do(ctx, client, req)

		return err
	}, append(cfg.Operation.Options(),
		asyncop.WithReporter(reporter),
		asyncop.WithObserver(func(s asyncop.State) {
			logger.Get(ctx).Debug("state changed",
				"loading", s.Loading, "retry_count", s.RetryCount, "can_retry", s.CanRetry())
		}),
	)...)

	state := ctl.Execute(ctx, req)

	pool.StopAndWait()

	if msg, failed := state.ErrorMessage(); failed {
		for _, n := range queue.Active() {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s: %s\n", n.Level, n.Title, n.Message)
		}

		return fmt.Errorf("%w after %d retries: %s", errFetchFailed, state.RetryCount, msg)
	}

	_, err = cmd.OutOrStdout().Write(body)

	return err
}

func newFetchRequest(flags *fetchFlags, url string) (fetchRequest, error) {
	header := make(http.Header)

	for _, h := range flags.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return fetchRequest{}, fmt.Errorf("%w: %q", errBadHeader, h)
		}

		header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	return fetchRequest{
		method: strings.ToUpper(flags.method),
		url:    url,
		header: header,
		body:   []byte(flags.data),
	}, nil
}

// do performs one attempt. Responses of 400 and above become *asyncop.Error
// so the controller can classify them.
func do(ctx context.Context, client *http.Client, req fetchRequest) ([]byte, error) {
	var body io.Reader
	if len(req.body) > 0 {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return nil, asyncop.Abort(err)
	}

	for name, values := range req.header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if err := asyncop.FromResponse(resp); err != nil {
		return nil, err
	}

	return io.ReadAll(resp.Body)
}
