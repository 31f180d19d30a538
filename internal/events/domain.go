package events

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeStage  Type = "stage"  // a pipeline stage changed state
	TypeStatus Type = "status" // the deployment lifecycle status changed
	TypeHealth Type = "health" // a health-check result was produced
)

// Event is one observable transition of a deployment. Stage and Status
// carry the pipeline stage name and its state for TypeStage, or the
// deployment/health status for the other types.
type Event struct {
	DeploymentID uuid.UUID `json:"deployment_id"`
	Type         Type      `json:"type"`
	Stage        string    `json:"stage,omitempty"`
	Status       string    `json:"status"`
	Message      string    `json:"message,omitempty"`
	At           time.Time `json:"at"`
}
