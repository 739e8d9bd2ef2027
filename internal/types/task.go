package types

import "time"

// Task is a unit of portal-execution work assigned to one agent
type Task struct {
	ID           string     `json:"id" yaml:"id"`
	CaseID       string     `json:"caseId" yaml:"caseId"`
	Type         string     `json:"type" yaml:"type"`
	Title        string     `json:"title,omitempty" yaml:"title"`
	Status       TaskStatus `json:"status" yaml:"status"`
	AssignedToID string     `json:"assignedToId" yaml:"assignedToId"`
	CreatedAt    time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt" yaml:"updatedAt"`
	// Version increases on every persisted mutation and guards
	// compare-and-swap writes.
	Version int64 `json:"version" yaml:"-"`
}

// Case is the read-only projection of the client matter a task belongs to
type Case struct {
	ID       string `json:"id" yaml:"id"`
	State    string `json:"state" yaml:"state"`
	Language string `json:"language" yaml:"language"`
	DocType  string `json:"docType" yaml:"docType"`
}

// Attachment is an immutable document linked to a task
type Attachment struct {
	ID       string `json:"id" yaml:"id"`
	TaskID   string `json:"taskId" yaml:"taskId"`
	FileName string `json:"fileName" yaml:"fileName"`
	URL      string `json:"url" yaml:"url"`
}

// TaskDetail is the assembled view returned to an agent for one task
type TaskDetail struct {
	Task        Task         `json:"task"`
	Case        Case         `json:"case"`
	Attachments []Attachment `json:"attachments"`
	Sessions    []Session    `json:"sessions"`
}
