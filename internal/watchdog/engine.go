package watchdog

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Jansyler/Rigradar/internal/misc"
	"github.com/Jansyler/Rigradar/internal/model"
)

type Registry interface {
	WatchFindAll(ctx context.Context) ([]model.StoredWatch, error)
	WatchUpdate(ctx context.Context, id string, w model.Watch) error
}

type HistorySource interface {
	HistoryFindRecent(ctx context.Context, n int64) ([]model.PriceObservation, error)
}

type ScanQueue interface {
	ScanRequestEnqueue(ctx context.Context, sr model.ScanRequest) error
}

type AlertSender interface {
	SendPriceAlert(ctx context.Context, id string, w model.Watch, deal model.PriceObservation, price float64) error
}

type logger interface {
	Debug(v ...any)
	Info(v ...any)
	Error(v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}

// Engine runs batch evaluation passes of all Watches against the recent
// price history.
type Engine struct {
	Registry      Registry
	History       HistorySource
	Queue         ScanQueue
	Alerts        AlertSender
	Logger        logger
	HistoryWindow int64
	Now           func() time.Time
}

type Summary struct {
	Evaluated int `json:"evaluated"`
	Alerted   int `json:"alerted"`
	Queued    int `json:"queued"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type outcome int

const (
	outcomeSatisfied outcome = iota
	outcomeAlerted
	outcomeQueued
)

// RunPass evaluates every due Watch once and persists its updated state.
// A failure on one Watch (send, enqueue, persist) is logged and counted, the
// pass continues with the remaining Watches. Only a registry or history read
// failure aborts the whole pass.
//
// RunPass assumes a single sequential scheduler. There is no per-Watch lock,
// overlapping passes can evaluate and alert the same Watch twice.
func (e Engine) RunPass(ctx context.Context) (Summary, error) {
	var sum Summary
	e.Logger.Info("RunPass: Starting watchdog evaluation pass")

	ws, err := e.Registry.WatchFindAll(ctx)
	if err != nil {
		return sum, errors.Wrap(err, "RunPass: error getting all Watches")
	}
	obs, err := e.History.HistoryFindRecent(ctx, e.HistoryWindow)
	if err != nil {
		return sum, errors.Wrap(err, "RunPass: error getting recent PriceObservations")
	}
	e.Logger.Infof("RunPass: Evaluating %d Watch(es) against %d PriceObservation(s)", len(ws), len(obs))

	now := e.now()
	for _, sw := range ws {
		if !sw.Due(now) {
			sum.Skipped++
			continue
		}
		sum.Evaluated++

		o, evalErr := e.evaluateWatch(ctx, &sw, obs, now)

		// A due Watch consumes its evaluation slot even when nothing else
		// changed, so the updated state persists regardless of evalErr.
		if err := e.Registry.WatchUpdate(ctx, sw.ID, sw.Watch); err != nil {
			sum.Failed++
			e.Logger.Errorf("RunPass: Error updating Watch with ID: %s, err: %v", sw.ID, err)
			continue
		}
		if evalErr != nil {
			sum.Failed++
			e.Logger.Errorf("RunPass: Error evaluating Watch with ID: %s, err: %v", sw.ID, evalErr)
			continue
		}
		switch o {
		case outcomeAlerted:
			sum.Alerted++
		case outcomeQueued:
			sum.Queued++
		}
	}

	e.Logger.Infof("RunPass: Finished watchdog evaluation pass, evaluated: %d, alerted: %d, queued: %d, skipped: %d, failed: %d",
		sum.Evaluated, sum.Alerted, sum.Queued, sum.Skipped, sum.Failed)
	return sum, nil
}

func (e Engine) evaluateWatch(ctx context.Context, sw *model.StoredWatch, obs []model.PriceObservation, now time.Time) (outcome, error) {
	sw.LastScanned = now.UnixMilli()

	query := misc.StringLimit(sw.Query, 45)
	deal, price, found := BestDeal(obs, sw.Query)
	if found && price <= sw.TargetPrice {
		if sw.LastEmailedPrice == nil || price < *sw.LastEmailedPrice {
			e.Logger.Infof("evaluateWatch: Alerting Watch with ID: %s, query: %s, price: %.2f, deal: %s",
				sw.ID, query, price, misc.StringLimit(deal.Title, 45))
			if err := e.Alerts.SendPriceAlert(ctx, sw.ID, sw.Watch, deal, price); err != nil {
				// Not marked as alerted, a later pass retries once the
				// interval elapses again.
				return outcomeSatisfied, errors.Wrapf(err, "error sending alert for Watch with ID: %s", sw.ID)
			}
			sw.LastEmailedPrice = &price
			return outcomeAlerted, nil
		}
		e.Logger.Debugf("evaluateWatch: Watch with ID: %s already alerted at %.2f, best price: %.2f, will not re-alert",
			sw.ID, *sw.LastEmailedPrice, price)
		return outcomeSatisfied, nil
	}

	e.Logger.Debugf("evaluateWatch: No deal at or below target for Watch with ID: %s, query: %s, enqueueing targeted scan",
		sw.ID, query)
	sr := model.ScanRequest{
		Query:      sw.Query,
		Stores:     sw.Stores,
		OwnerEmail: sw.Email,
		Condition:  sw.Condition,
		MaxPrice:   sw.TargetPrice,
		Timestamp:  now.UnixMilli(),
		Priority:   true,
		Source:     model.ScanSourceWatchdog,
	}
	if err := e.Queue.ScanRequestEnqueue(ctx, sr); err != nil {
		return outcomeQueued, errors.Wrapf(err, "error enqueueing ScanRequest for Watch with ID: %s", sw.ID)
	}
	return outcomeQueued, nil
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
