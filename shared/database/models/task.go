package models

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityUrgent TaskPriority = "URGENT"
)

type TaskCategory string

const (
	TaskCategoryWork     TaskCategory = "work"
	TaskCategoryPersonal TaskCategory = "personal"
	TaskCategoryHome     TaskCategory = "home"
)

// taskTransitions holds the legal status transitions. Repeating the
// current status is always allowed so status updates stay idempotent.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusTodo:       {TaskStatusInProgress, TaskStatusCancelled},
	TaskStatusInProgress: {TaskStatusDone, TaskStatusCancelled},
	TaskStatusDone:       {},
	TaskStatusCancelled:  {},
}

// Valid reports whether s is a known task status
func (s TaskStatus) Valid() bool {
	_, ok := taskTransitions[s]
	return ok
}

// CanTransitionTo reports whether next is a legal transition from s
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether p is a known task priority
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// Valid reports whether c is a known task category
func (c TaskCategory) Valid() bool {
	switch c {
	case TaskCategoryWork, TaskCategoryPersonal, TaskCategoryHome:
		return true
	}
	return false
}

// Task is a unit of work. OrganizationID is immutable after creation
// and always equals the creator's organization at creation time.
type Task struct {
	ID             uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title          string       `json:"title" gorm:"size:300;not null"`
	Description    string       `json:"description" gorm:"type:text"`
	Category       TaskCategory `json:"category" gorm:"type:varchar(20);default:'work'"`
	Status         TaskStatus   `json:"status" gorm:"type:varchar(20);default:'TODO';index"`
	Priority       TaskPriority `json:"priority" gorm:"type:varchar(20);default:'MEDIUM'"`
	OrganizationID uuid.UUID    `json:"organization_id" gorm:"type:uuid;not null;index"`
	CreatedBy      uuid.UUID    `json:"created_by" gorm:"type:uuid;not null"`
	AssignedTo     *uuid.UUID   `json:"assigned_to" gorm:"type:uuid;index"`
	DueDate        *time.Time   `json:"due_date"`
	IsDeleted      bool         `json:"is_deleted" gorm:"default:false;index"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`

	// Relations
	Creator      *User         `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
	Assignee     *User         `json:"assignee,omitempty" gorm:"foreignKey:AssignedTo"`
	Organization *Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}

func (Task) TableName() string {
	return "tasks"
}
