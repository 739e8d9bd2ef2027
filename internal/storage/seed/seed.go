// Package seed loads case, task and attachment fixtures from YAML into a
// storage backend. Cases and tasks are owned by an external system; the
// coordinator only needs a starting snapshot of them.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AltairaLabs/portalops/internal/storage"
	"github.com/AltairaLabs/portalops/internal/types"
)

// File is the on-disk fixture layout.
type File struct {
	Cases []types.Case `yaml:"cases"`
	Tasks []Task       `yaml:"tasks"`
}

// Task is a task fixture with its attachments inline.
type Task struct {
	ID           string             `yaml:"id"`
	CaseID       string             `yaml:"caseId"`
	Type         string             `yaml:"type"`
	Title        string             `yaml:"title"`
	Status       string             `yaml:"status"`
	AssignedToID string             `yaml:"assignedToId"`
	Attachments  []types.Attachment `yaml:"attachments"`
}

// Summary reports what a load inserted. Skipped counts tasks that were
// already stored and left untouched.
type Summary struct {
	Cases       int
	Tasks       int
	Attachments int
	Skipped     int
}

// LoadFile reads path and loads it into records.
func LoadFile(ctx context.Context, path string, records storage.TaskRecords, now time.Time) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	return Load(ctx, f, records, now)
}

// Load decodes fixtures from r and inserts them. Tasks without a status
// start ASSIGNED; every task is stamped with now. A task that already
// exists keeps its stored state and its attachments are not re-added, so
// loading the same file into a durable store on every boot is safe.
func Load(ctx context.Context, r io.Reader, records storage.TaskRecords, now time.Time) (Summary, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return Summary{}, fmt.Errorf("decode seed: %w", err)
	}

	var summary Summary
	for i := range file.Cases {
		c := file.Cases[i]
		if c.ID == "" {
			return summary, fmt.Errorf("%w: case %d has no id", types.ErrInvalidArgument, i)
		}
		if err := records.UpsertCase(ctx, &c); err != nil {
			return summary, fmt.Errorf("seed case %s: %w", c.ID, err)
		}
		summary.Cases++
	}

	for _, fixture := range file.Tasks {
		task, err := fixture.toTask(now)
		if err != nil {
			return summary, err
		}
		_, err = records.GetTask(ctx, task.ID)
		switch {
		case err == nil:
			summary.Skipped++
			continue
		case !errors.Is(err, types.ErrNotFound):
			return summary, fmt.Errorf("seed task %s: %w", task.ID, err)
		}
		if err := records.CreateTask(ctx, task); err != nil {
			return summary, fmt.Errorf("seed task %s: %w", task.ID, err)
		}
		summary.Tasks++

		for j := range fixture.Attachments {
			attachment := fixture.Attachments[j]
			attachment.TaskID = task.ID
			if attachment.ID == "" {
				attachment.ID = fmt.Sprintf("%s-att-%d", task.ID, j+1)
			}
			if err := records.AddAttachment(ctx, &attachment); err != nil {
				return summary, fmt.Errorf("seed attachment %s: %w", attachment.ID, err)
			}
			summary.Attachments++
		}
	}

	return summary, nil
}

func (t Task) toTask(now time.Time) (*types.Task, error) {
	if t.ID == "" || t.CaseID == "" || t.Type == "" {
		return nil, fmt.Errorf("%w: task fixture needs id, caseId and type", types.ErrInvalidArgument)
	}

	status := types.StatusAssigned
	if t.Status != "" {
		parsed, ok := types.ParseTaskStatus(t.Status)
		if !ok {
			return nil, fmt.Errorf("%w: task %s has unknown status %q", types.ErrInvalidArgument, t.ID, t.Status)
		}
		status = parsed
	}

	return &types.Task{
		ID:           t.ID,
		CaseID:       t.CaseID,
		Type:         t.Type,
		Title:        t.Title,
		Status:       status,
		AssignedToID: t.AssignedToID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
