package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"noticerecon/internal/mha/codec"
	"noticerecon/internal/mha/identity"
	"noticerecon/pkg/platform/sentinel"
)

// ProcessBatch parses one inbound batch file and applies it. A control-total
// mismatch or framing error fails the whole file before any write. Notices
// are processed concurrently with bounded parallelism; all records for one
// notice run sequentially inside a single transaction.
func (s *Service) ProcessBatch(ctx context.Context, r io.Reader, sourceFile string) (*BatchSummary, error) {
	start := s.clock()

	file, err := codec.ParseFile(r)
	if err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}

	sum := &BatchSummary{
		BatchID:     uuid.New(),
		SourceFile:  sourceFile,
		FileDate:    file.Header.FileDate,
		ProcessedAt: start,
	}

	var skippedUpfront int
	for _, a := range file.Anomalies {
		sum.Anomalies = append(sum.Anomalies, a.Error())
		skippedUpfront++
	}

	var order []string
	byNotice := make(map[string]*noticeWork)
	work := func(noticeNo string) *noticeWork {
		w, ok := byNotice[noticeNo]
		if !ok {
			w = &noticeWork{noticeNo: noticeNo}
			byNotice[noticeNo] = w
			order = append(order, noticeNo)
		}
		return w
	}

	for _, rec := range file.Details {
		res, err := identity.Resolve(rec)
		if err != nil {
			sum.Anomalies = append(sum.Anomalies, err.Error())
			skippedUpfront++
			s.log.Warn("record skipped", "notice_no", rec.NoticeNo, "error", err)
			continue
		}
		w := work(rec.NoticeNo)
		w.details = append(w.details, detailWork{resolved: res, rec: rec})
	}
	for _, exc := range file.Exceptions {
		if exc.NoticeNo == "" {
			sum.Anomalies = append(sum.Anomalies, fmt.Sprintf("exception serial %d has no notice number", exc.Serial))
			skippedUpfront++
			continue
		}
		w := work(exc.NoticeNo)
		w.exceptions = append(w.exceptions, exc)
	}

	s.metrics.RecordsSkipped.Add(float64(skippedUpfront))

	var applied, skipped, errored, suspensions atomic.Int64
	skipped.Add(int64(skippedUpfront))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, noticeNo := range order {
		w := byNotice[noticeNo]
		g.Go(func() error {
			records := len(w.details) + len(w.exceptions)

			var a, sus int
			err := s.txRunner.RunInTx(gctx, func(txCtx context.Context) error {
				var err error
				a, sus, err = s.applyNotice(txCtx, file.Header.FileDate, *w)
				return err
			})
			switch {
			case err == nil:
				applied.Add(int64(a))
				suspensions.Add(int64(sus))
				s.metrics.RecordsApplied.Add(float64(a))
			case errors.Is(err, sentinel.ErrNotFound):
				skipped.Add(int64(records))
				s.metrics.RecordsSkipped.Add(float64(records))
				s.log.Warn("unknown notice, records skipped", "notice_no", w.noticeNo)
			default:
				errored.Add(int64(records))
				s.metrics.RecordsErrored.Add(float64(records))
				s.log.Error("notice rolled back", "notice_no", w.noticeNo, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	sum.Applied = int(applied.Load())
	sum.Skipped = int(skipped.Load())
	sum.Errored = int(errored.Load())
	sum.Suspensions = int(suspensions.Load())

	s.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	s.rememberSummary(sum)
	s.log.Info("batch processed",
		"batch_id", sum.BatchID,
		"source_file", sourceFile,
		"applied", sum.Applied,
		"skipped", sum.Skipped,
		"errored", sum.Errored,
		"suspensions", sum.Suspensions)
	return sum, nil
}
