// Summarizer (C11): idempotent background compaction of completed tasks
// into a single "summary.task" event per task. Grounded on the Python
// original's services/summarizer.py skip-if-exists idempotence check.
package services

import (
	"context"
	"fmt"

	"github.com/RSuyash/repomesh/internal/db"
	"github.com/RSuyash/repomesh/internal/model"
	"github.com/RSuyash/repomesh/internal/store"
	"github.com/jackc/pgx/v5"
)

type Summarizer struct {
	db         *db.DB
	tasks      *TaskService
	events     *EventService
	eventStore *store.EventStore
}

func NewSummarizer(database *db.DB, tasks *TaskService, events *EventService, eventStore *store.EventStore) *Summarizer {
	return &Summarizer{db: database, tasks: tasks, events: events, eventStore: eventStore}
}

// SummarizerReport is run_once's return value.
type SummarizerReport struct {
	Compressed int `json:"compressed"`
	Skipped    int `json:"skipped"`
}

const summaryEventHistoryLimit = 200
const summaryLastEventsCount = 5

func (s *Summarizer) RunOnce(ctx context.Context, maxTasks int) (*SummarizerReport, error) {
	tasks, err := s.tasks.CompletedOrderedByUpdated(ctx, maxTasks)
	if err != nil {
		return nil, err
	}

	report := &SummarizerReport{}
	for _, task := range tasks {
		compressed, err := s.summarizeOne(ctx, task)
		if err != nil {
			return nil, err
		}
		if compressed {
			report.Compressed++
		} else {
			report.Skipped++
		}
	}
	return report, nil
}

func (s *Summarizer) summarizeOne(ctx context.Context, task *model.Task) (bool, error) {
	alreadySummarized := false
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		exists, err := s.eventStore.ExistsWithTypeForTask(ctx, tx, task.ID, "summary.task")
		if err != nil {
			return err
		}
		alreadySummarized = exists
		return nil
	})
	if err != nil {
		return false, err
	}
	if alreadySummarized {
		return false, nil
	}

	events, err := s.events.List(ctx, store.ListFilters{
		TaskID:    task.ID,
		Direction: "asc",
		Limit:     summaryEventHistoryLimit,
	})
	if err != nil {
		return false, err
	}

	typeHistogram := map[string]int{}
	severityHistogram := map[string]int{}
	for _, e := range events {
		typeHistogram[e.Type]++
		severityHistogram[e.Severity]++
	}

	lastEvents := events
	if len(lastEvents) > summaryLastEventsCount {
		lastEvents = lastEvents[len(lastEvents)-summaryLastEventsCount:]
	}

	summaryText := fmt.Sprintf("task %s completed with %d recorded events", task.ID, len(events))

	_, err = s.events.Log(ctx, LogInput{
		Type:    "summary.task",
		Channel: "summary",
		TaskID:  &task.ID,
		Payload: map[string]any{
			"task": task,
			"aggregate": map[string]any{
				"type_histogram":     typeHistogram,
				"severity_histogram": severityHistogram,
			},
			"last_events":  lastEvents,
			"summary_text": summaryText,
		},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
