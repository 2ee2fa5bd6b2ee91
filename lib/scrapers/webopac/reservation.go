package webopac

import (
	"fmt"
	"regexp"
)

// The reservation control is an opaque ASP.NET postback target, not a
// link; the only observable outcomes are the modal dialogs the
// postback produces. The flow is a one-way state machine so timeouts
// and unexpected modal content are states, not exceptions.

type ReservationPhase int

const (
	PhaseIdle ReservationPhase = iota
	PhaseButtonClicked
	PhaseModalObserved
	PhaseAuthRequired
	PhaseUnexpected
)

func (p ReservationPhase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseButtonClicked:
		return "ButtonClicked"
	case PhaseModalObserved:
		return "ModalObserved"
	case PhaseAuthRequired:
		return "AuthRequired"
	case PhaseUnexpected:
		return "Unexpected"
	}
	return fmt.Sprintf("ReservationPhase(%d)", int(p))
}

func (p ReservationPhase) Terminal() bool {
	return p == PhaseAuthRequired || p == PhaseUnexpected
}

// ReservationAttempt is single-use: no phase transitions back to
// Idle, and a terminal phase ends the attempt.
type ReservationAttempt struct {
	CatalogID    string
	Branch       string
	Phase        ReservationPhase
	AuthRequired bool
	ModalText    string
}

func NewReservationAttempt(catalogId, branch string) *ReservationAttempt {
	return &ReservationAttempt{
		CatalogID: catalogId,
		Branch:    branch,
		Phase:     PhaseIdle,
	}
}

var loginRequiredPattern = regexp.MustCompile(`(?i)(angemeldet|anmelden|einloggen)`)

func (a *ReservationAttempt) clickIssued() error {
	if a.Phase != PhaseIdle {
		return fmt.Errorf("cannot issue reserve click from phase %s", a.Phase)
	}
	a.Phase = PhaseButtonClicked
	return nil
}

// observeModal records the modal the postback produced and resolves
// the terminal phase from its text.
func (a *ReservationAttempt) observeModal(text string) error {
	if a.Phase != PhaseButtonClicked {
		return fmt.Errorf("cannot observe modal from phase %s", a.Phase)
	}
	a.Phase = PhaseModalObserved
	a.ModalText = text

	if loginRequiredPattern.MatchString(text) {
		a.Phase = PhaseAuthRequired
		a.AuthRequired = true
		return nil
	}
	a.Phase = PhaseUnexpected
	return nil
}
