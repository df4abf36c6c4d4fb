package analysis

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/site-feasibility/internal/model"
)

// Outcome is the result of one request in a batch. Exactly one of Report and
// Err is set.
type Outcome struct {
	Report *model.AnalysisReport
	Err    error
}

// AnalyzeMany analyzes reqs with at most concurrency requests in flight and
// returns outcomes in input order. A failing request never stops the batch.
// Successful reports are persisted in one bulk write.
func (s *Service) AnalyzeMany(ctx context.Context, reqs []model.AnalysisRequest, concurrency int) []Outcome {
	if concurrency < 1 {
		concurrency = 1
	}
	out := make([]Outcome, len(reqs))

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for i := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i] = Outcome{Err: eris.Wrap(err, "analysis: batch cancelled")}
				return nil
			}
			report, err := s.analyze(ctx, reqs[i])
			out[i] = Outcome{Report: report, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	if s.recorder != nil {
		reports := make([]model.AnalysisReport, 0, len(out))
		for _, o := range out {
			if o.Report != nil {
				reports = append(reports, *o.Report)
			}
		}
		if len(reports) > 0 {
			n, err := s.recorder.SaveAnalyses(ctx, reports)
			if err != nil {
				zap.L().Warn("analysis: persist batch failed", zap.Int("reports", len(reports)), zap.Error(err))
			} else {
				zap.L().Info("analysis: batch persisted", zap.Int64("saved", n))
			}
		}
	}
	return out
}
