package archive

import (
	"bytes"
	"context"
	"fmt"

	"fraud-viewer/internal/domain"
	"fraud-viewer/internal/usecase/archive/operations"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"
)

type Result struct {
	SubmissionID string
	Prefix       string
	Paths        []string
}

// Archiver copies the artifacts of a succeeded submission from the analysis service into
// object storage. Chart images are scaled down and captioned with the submission id.
type Archiver struct {
	fetcher   resourceFetcher
	store     objectStore
	recorder  archiveRecorder
	scaler    *operations.Scaler
	captioner *operations.Captioner
	logger    *zlog.Zerolog
}

// NewArchiver builds an archiver. recorder may be nil when history is disabled; an
// empty captionColor uses the default grey.
func NewArchiver(fetcher resourceFetcher, store objectStore, recorder archiveRecorder, chartWidth int, captionSize float64, captionColor string, logger *zlog.Zerolog) (*Archiver, error) {
	if captionColor == "" {
		captionColor = domain.DefaultCaptionColor
	}

	captioner, err := operations.NewCaptioner(captionSize, captionColor)
	if err != nil {
		return nil, err
	}

	return &Archiver{
		fetcher:   fetcher,
		store:     store,
		recorder:  recorder,
		scaler:    operations.NewScaler(chartWidth),
		captioner: captioner,
		logger:    logger,
	}, nil
}

func Prefix(submissionID string) string {
	return domain.PathPrefixArchive + submissionID + "/"
}

func (a *Archiver) Archive(ctx context.Context, event domain.SubmissionEvent) (*Result, error) {
	if event.Status != domain.SubmissionSucceeded || event.PredictionsURL == "" {
		return nil, fmt.Errorf("%w: status %s", ErrNotArchivable, event.Status)
	}

	prefix := Prefix(event.ID)

	a.logger.Info().
		Str("submission_id", event.ID).
		Str("prefix", prefix).
		Int("charts", len(event.ChartImages)).
		Msg("Starting archive")

	// A redelivered event overwrites what an earlier attempt left behind.
	if err := a.store.DeletePrefix(ctx, prefix); err != nil {
		a.logger.Warn().Err(err).Str("prefix", prefix).Msg("Failed to clear previous archive")
	}

	paths := make([]string, 1+len(event.ChartImages))
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		path := prefix + domain.ArchivePredictions
		if err := a.copyPredictions(gctx, event.PredictionsURL, path); err != nil {
			return err
		}
		paths[0] = path
		return nil
	})

	i := 1
	for target, ref := range event.ChartImages {
		slot := i
		i++
		g.Go(func() error {
			path := prefix + string(target) + ".png"
			caption := fmt.Sprintf("%s (%s)", target.Title(), event.ID)
			if err := a.copyChart(gctx, ref, path, caption); err != nil {
				return err
			}
			paths[slot] = path
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.logger.Error().Err(err).Str("submission_id", event.ID).Msg("Archive failed")
		return nil, err
	}

	if a.recorder != nil {
		if err := a.recorder.MarkArchived(ctx, event.ID, prefix); err != nil {
			return nil, fmt.Errorf("failed to mark submission archived: %w", err)
		}
	}

	a.logger.Info().
		Str("submission_id", event.ID).
		Int("objects", len(paths)).
		Msg("Archive completed")

	return &Result{SubmissionID: event.ID, Prefix: prefix, Paths: paths}, nil
}

func (a *Archiver) copyPredictions(ctx context.Context, ref, path string) error {
	data, err := a.fetcher.Fetch(ctx, ref)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFetchFailed, ref, err)
	}

	return a.store.Put(ctx, path, bytes.NewReader(data), int64(len(data)), "text/csv")
}

func (a *Archiver) copyChart(ctx context.Context, ref, path, caption string) error {
	data, err := a.fetcher.Fetch(ctx, ref)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFetchFailed, ref, err)
	}

	img, format, err := operations.Decode(data)
	if err != nil {
		return err
	}

	img = a.scaler.Process(img)

	img, err = a.captioner.Process(img, caption)
	if err != nil {
		return err
	}

	out, err := operations.EncodePNG(img)
	if err != nil {
		return err
	}

	a.logger.Debug().
		Str("path", path).
		Str("source_format", format).
		Int("width", img.Bounds().Dx()).
		Int("size", len(out)).
		Msg("Chart prepared")

	return a.store.Put(ctx, path, bytes.NewReader(out), int64(len(out)), "image/png")
}
