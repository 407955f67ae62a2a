// Package identity defines the authenticated caller of every workflow
// operation: a plain user or a platform manager.
package identity

import "github.com/google/uuid"

// ActorType tags the actor class.
type ActorType string

const (
	ActorUser    ActorType = "user"
	ActorManager ActorType = "manager"
)

// Actor is the authenticated caller. The workflow core only ever receives an
// already-authenticated Actor; token verification happens upstream.
type Actor struct {
	ID   uuid.UUID
	Type ActorType
}

// IsManager reports whether the actor is a platform manager.
func (a Actor) IsManager() bool { return a.Type == ActorManager }

// UserActor builds a user actor.
func UserActor(id uuid.UUID) Actor { return Actor{ID: id, Type: ActorUser} }

// ManagerActor builds a manager actor.
func ManagerActor(id uuid.UUID) Actor { return Actor{ID: id, Type: ActorManager} }
