package statemachine

import (
	"errors"
	"strings"

	"sweetbite/models"
)

// Actor is the kind of user driving a transition
type Actor string

const (
	ActorRestaurant Actor = "restaurant"
	ActorDelivery   Actor = "delivery"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
}

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	// Restaurant marks the order ready for pickup
	{From: models.StatusPlaced, To: models.StatusReady, Actor: ActorRestaurant},
	// Delivery person claims a ready order
	{From: models.StatusReady, To: models.StatusPickedUp, Actor: ActorDelivery},
	// Delivery person hands the order over
	{From: models.StatusPickedUp, To: models.StatusDelivered, Actor: ActorDelivery},
}

type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// ErrInvalidTransition is wrapped by every CanTransition failure
var ErrInvalidTransition = errors.New("invalid transition")

// ValidTransitionsFrom returns the next states the actor may move an order to.
// An empty actor returns the next states for anyone.
func ValidTransitionsFrom(status models.OrderStatus, actor Actor) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From != status || seen[t.To] {
			continue
		}
		if actor != "" && t.Actor != actor {
			continue
		}
		nexts = append(nexts, t.To)
		seen[t.To] = true
	}
	return nexts
}

// SourcesFor returns the states from which the actor may reach to.
// Conditional updates use it to put the state check in the WHERE clause.
func SourcesFor(to models.OrderStatus, actor Actor) []models.OrderStatus {
	var froms []models.OrderStatus
	for _, t := range validTransitions {
		if t.To == to && t.Actor == actor {
			froms = append(froms, t.From)
		}
	}
	return froms
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor Actor) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return &TransitionError{From: from, To: to, Actor: actor}
}

// TransitionError describes a rejected transition
type TransitionError struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
}

func (e *TransitionError) Error() string {
	return "invalid transition: " + string(e.From) + " → " + string(e.To) +
		" is not allowed for " + string(e.Actor) +
		". Valid transitions from " + string(e.From) + " are: " + describeValidFrom(e.From, e.Actor)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func describeValidFrom(status models.OrderStatus, actor Actor) string {
	nexts := ValidTransitionsFrom(status, actor)
	if len(nexts) == 0 {
		return "none"
	}
	names := make([]string, len(nexts))
	for i, s := range nexts {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// IsTerminal reports whether no transition leaves status
func IsTerminal(status models.OrderStatus) bool {
	return len(ValidTransitionsFrom(status, "")) == 0
}

// GetAllTransitions returns the full state machine
func GetAllTransitions() []Transition {
	out := make([]Transition, len(validTransitions))
	copy(out, validTransitions)
	return out
}
