package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/boardwatch/internal/extract"
	"github.com/nao1215/boardwatch/internal/fetch"
	"github.com/nao1215/boardwatch/internal/model"
	"github.com/nao1215/boardwatch/internal/stream"
)

// ErrNoStream is returned by ExtractStep when no earlier step opened the
// page body.
var ErrNoStream = errors.New("no body stream to extract from")

// Opener opens a board URL. *fetch.Client implements it.
type Opener interface {
	Open(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// PostStore records posts. *database.BoardDB implements it.
type PostStore interface {
	SavePost(ctx context.Context, p *model.Post) (bool, error)
}

// FetchStep opens the board page and leaves its body on the report.
type FetchStep struct {
	opener Opener
	logger *slog.Logger
}

// NewFetchStep returns a FetchStep that opens pages with opener.
func NewFetchStep(opener Opener, logger *slog.Logger) *FetchStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchStep{opener: opener, logger: logger}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do opens report.Source. A non-2xx response sets StatusCode and fails
// the step.
func (s *FetchStep) Do(ctx context.Context, report *model.BoardReport) error {
	resp, err := s.opener.Open(ctx, report.Source)
	if err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) {
			report.StatusCode = statusErr.StatusCode
		}
		return err
	}

	s.logger.Info("response code",
		"source", report.Source,
		"status", resp.StatusCode,
	)

	report.StatusCode = resp.StatusCode
	report.ContentType = resp.ContentType
	report.Stream = resp.Body
	return nil
}

// ExtractStep scans the body stream and appends one Post per cycle.
type ExtractStep struct {
	markers    extract.MarkerSet
	exclusions []string
	bufferSize int
	onPost     func(*model.Post) error
	store      PostStore
	logger     *slog.Logger
}

// ExtractStepOption configures an ExtractStep.
type ExtractStepOption func(*ExtractStep)

// WithMarkers sets the marker set.
func WithMarkers(markers extract.MarkerSet) ExtractStepOption {
	return func(s *ExtractStep) {
		s.markers = markers
	}
}

// WithExclusions sets the exclusion tokens. An empty list disables the
// filter.
func WithExclusions(tokens []string) ExtractStepOption {
	return func(s *ExtractStep) {
		s.exclusions = tokens
	}
}

// WithBufferSize sets the fragment size.
func WithBufferSize(n int) ExtractStepOption {
	return func(s *ExtractStep) {
		s.bufferSize = n
	}
}

// WithOnPost sets a callback run on every post as soon as it is decoded.
// An error from the callback fails the step. In a batch the callback runs
// on several goroutines at once.
func WithOnPost(fn func(*model.Post) error) ExtractStepOption {
	return func(s *ExtractStep) {
		s.onPost = fn
	}
}

// WithPostStore saves every post as soon as it is decoded, before the
// WithOnPost callback runs, so the callback sees whether the post is new.
func WithPostStore(store PostStore) ExtractStepOption {
	return func(s *ExtractStep) {
		s.store = store
	}
}

// WithExtractLogger sets the logger.
func WithExtractLogger(logger *slog.Logger) ExtractStepOption {
	return func(s *ExtractStep) {
		s.logger = logger
	}
}

// NewExtractStep returns an ExtractStep with the default markers, the
// default exclusion and the default fragment size.
func NewExtractStep(opts ...ExtractStepOption) *ExtractStep {
	s := &ExtractStep{
		markers:    extract.DefaultMarkers(),
		exclusions: []string{extract.DefaultExclusion},
		bufferSize: stream.DefaultBufferSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do consumes and closes report.Stream.
func (s *ExtractStep) Do(ctx context.Context, report *model.BoardReport) error {
	if report.Stream == nil {
		return ErrNoStream
	}
	body := report.Stream
	defer func() {
		_ = body.Close()
		report.Stream = nil
	}()

	fragmenter, err := stream.NewFragmenter(body, stream.WithBufferSize(s.bufferSize))
	if err != nil {
		return err
	}
	scanner := extract.NewScanner(
		extract.WithMarkers(s.markers),
		extract.WithExclusions(s.exclusions...),
	)

	defer func() {
		report.BytesRead = fragmenter.BytesRead()
		report.Fragments = fragmenter.Fragments()
		report.Skipped = scanner.Skipped()
	}()

	emit := func(c extract.Cycle) error {
		post, err := s.decode(report, scanner.Cycles(), c)
		if err != nil {
			return err
		}
		if s.store != nil {
			isNew, err := s.store.SavePost(ctx, post)
			if err != nil {
				return fmt.Errorf("store post %d: %w", post.Index, err)
			}
			post.New = isNew
		}
		report.AddPost(post)
		if s.onPost != nil {
			return s.onPost(post)
		}
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fragment, err := fragmenter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := scanner.Feed(fragment, emit); err != nil {
			return err
		}
	}

	if stage := scanner.Stage(); stage != extract.StageFindHeaderStart && stage != extract.StageFindPreamble {
		s.logger.Debug("stream ended inside a post",
			"source", report.Source,
			"stage", stage.String(),
		)
	}
	if scanner.Stage() == extract.StageFindPreamble {
		s.logger.Warn("preamble not found",
			"source", report.Source,
			"preamble", s.markers.Preamble.String(),
		)
	}

	s.logger.Info("extraction completed",
		"source", report.Source,
		"posts", scanner.Cycles(),
		"new", report.New,
		"skipped", scanner.Skipped(),
		"bytes", fragmenter.BytesRead(),
	)
	return nil
}

func (s *ExtractStep) decode(report *model.BoardReport, index int, c extract.Cycle) (*model.Post, error) {
	header, err := extract.Unescape(c.Header)
	if err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	body, err := extract.Unescape(c.Body)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return model.NewPost(report.Source, index, header, body, report.StartedAt), nil
}

// StoreStep saves every post in the history store and flags the ones it
// had not seen before.
type StoreStep struct {
	store  PostStore
	logger *slog.Logger
}

// NewStoreStep returns a StoreStep that writes to store.
func NewStoreStep(store PostStore, logger *slog.Logger) *StoreStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return "store"
}

// Do saves report.Posts.
func (s *StoreStep) Do(ctx context.Context, report *model.BoardReport) error {
	for _, post := range report.Posts {
		isNew, err := s.store.SavePost(ctx, post)
		if err != nil {
			return fmt.Errorf("store post %d: %w", post.Index, err)
		}
		if isNew {
			report.MarkNew(post)
		}
	}

	s.logger.Info("posts stored",
		"source", report.Source,
		"posts", len(report.Posts),
		"new", report.New,
	)
	return nil
}

// DefaultPipeline returns fetch, extract and, when store is not nil,
// store steps.
//
// A WithOnPost callback runs before a store step would, so with a callback
// the extract step saves each post itself and no store step is added. The
// callback then sees Post.New already set.
func DefaultPipeline(opener Opener, store PostStore, pipelineOpts []Option, extractOpts ...ExtractStepOption) *Pipeline {
	p := New(pipelineOpts...)

	p.AddStep(NewFetchStep(opener, p.logger))
	extractStep := NewExtractStep(append([]ExtractStepOption{WithExtractLogger(p.logger)}, extractOpts...)...)
	if store != nil && extractStep.onPost != nil && extractStep.store == nil {
		extractStep.store = store
	}
	p.AddStep(extractStep)
	if store != nil && extractStep.store == nil {
		p.AddStep(NewStoreStep(store, p.logger))
	}
	return p
}
