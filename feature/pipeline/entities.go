package pipeline

import (
	"drift-reconciler/core/mirror"
	"drift-reconciler/core/primary"

	"go.mongodb.org/mongo-driver/bson"
)

// Entity type names.
const (
	Applications = "applications"
	Executions   = "executions"
	Deployments  = "deployments"
)

// RunningStatuses are the non-terminal statuses of executions and deployments.
var RunningStatuses = []string{"RUNNING", "QUEUED", "WAITING", "PAUSED", "ASYNCWAITING"}

// Entity binds the Primary and Mirror layouts of one entity type.
type Entity struct {
	Name    string
	Primary primary.Profile
	Mirror  mirror.Profile
}

// Entities returns the reconciled entity types.
func Entities() []Entity {
	return []Entity{
		{
			Name: Applications,
			Primary: primary.Profile{
				Collection:   "applications",
				IDField:      "_id",
				CreatedField: "createdAt",
				Fields: map[string]string{
					"name":               "name",
					"org_identifier":     "orgIdentifier",
					"project_identifier": "projectIdentifier",
					"updated_at":         "lastModifiedAt",
				},
			},
			Mirror: mirror.Profile{
				Table:   "applications",
				Columns: []string{"name", "org_identifier", "project_identifier", "updated_at"},
			},
		},
		{
			Name: Executions,
			Primary: primary.Profile{
				Collection:   "pipelineExecutionSummary",
				IDField:      "planExecutionId",
				CreatedField: "startTs",
				StatusField:  "status",
				Filter:       bson.D{{Key: "isChildExecution", Value: bson.D{{Key: "$ne", Value: true}}}},
				Fields: map[string]string{
					"org_identifier":      "orgIdentifier",
					"project_identifier":  "projectIdentifier",
					"pipeline_identifier": "pipelineIdentifier",
					"trigger_type":        "executionTriggerInfo.triggerType",
					"end_ts":              "endTs",
				},
			},
			Mirror: mirror.Profile{
				Table:           "pipeline_execution_summary",
				CreatedColumn:   "start_ts",
				StatusColumn:    "status",
				RunningStatuses: RunningStatuses,
				Columns:         []string{"org_identifier", "project_identifier", "pipeline_identifier", "trigger_type", "end_ts"},
			},
		},
		{
			Name: Deployments,
			Primary: primary.Profile{
				Collection:   "deploymentExecutions",
				IDField:      "stageExecutionId",
				CreatedField: "startTs",
				StatusField:  "status",
				Filter:       bson.D{{Key: "parentStageExecutionId", Value: bson.D{{Key: "$exists", Value: false}}}},
				Fields: map[string]string{
					"pipeline_execution_id": "planExecutionId",
					"service_id":            "serviceId",
					"env_id":                "envId",
					"end_ts":                "endTs",
				},
			},
			Mirror: mirror.Profile{
				Table:           "deployments",
				CreatedColumn:   "start_ts",
				StatusColumn:    "status",
				RunningStatuses: RunningStatuses,
				Columns:         []string{"pipeline_execution_id", "service_id", "env_id", "end_ts"},
			},
		},
	}
}

// Names returns the entity type names in declaration order.
func Names() []string {
	entities := Entities()
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	return names
}

// Lookup returns the entity with the given name.
func Lookup(name string) (Entity, bool) {
	for _, e := range Entities() {
		if e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}
