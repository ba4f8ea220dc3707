package scheduler

import (
	"encoding/json"

	"sales_pipeline_backend/internal/events"
	"sales_pipeline_backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskAssignLead = "pipeline.assign_lead"

const TaskAssignTask = "pipeline.assign_task"

const TaskMarkOverdueTasks = "pipeline.mark_overdue_tasks"

// AssignLeadPayload carries the caller's candidate pool so the worker
// assigns from the same agents a synchronous request would.
type AssignLeadPayload struct {
	LeadID   string                    `json:"leadId"`
	Criteria events.AssignmentCriteria `json:"criteria"`
}

type AssignTaskPayload struct {
	TaskID   string                    `json:"taskId"`
	Criteria events.AssignmentCriteria `json:"criteria"`
}

func NewAssignLeadTask(leadID uuid.UUID, filter domain.EligibilityFilter) (*asynq.Task, error) {
	data, err := json.Marshal(AssignLeadPayload{LeadID: leadID.String(), Criteria: events.CriteriaFromFilter(filter)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAssignLead, data), nil
}

func ParseAssignLeadPayload(task *asynq.Task) (uuid.UUID, domain.EligibilityFilter, error) {
	var payload AssignLeadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, domain.EligibilityFilter{}, err
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return uuid.Nil, domain.EligibilityFilter{}, err
	}
	return leadID, payload.Criteria.Filter(), nil
}

func NewAssignTaskTask(taskID uuid.UUID, filter domain.EligibilityFilter) (*asynq.Task, error) {
	data, err := json.Marshal(AssignTaskPayload{TaskID: taskID.String(), Criteria: events.CriteriaFromFilter(filter)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAssignTask, data), nil
}

func ParseAssignTaskPayload(task *asynq.Task) (uuid.UUID, domain.EligibilityFilter, error) {
	var payload AssignTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, domain.EligibilityFilter{}, err
	}
	taskID, err := uuid.Parse(payload.TaskID)
	if err != nil {
		return uuid.Nil, domain.EligibilityFilter{}, err
	}
	return taskID, payload.Criteria.Filter(), nil
}

func NewMarkOverdueTasksTask() *asynq.Task {
	return asynq.NewTask(TaskMarkOverdueTasks, nil)
}
