package webopac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReservationAuthRequired(t *testing.T) {
	attempt := NewReservationAttempt("204511", "Hauptbibliothek")
	require.Equal(t, PhaseIdle, attempt.Phase)
	require.False(t, attempt.Phase.Terminal())

	require.NoError(t, attempt.clickIssued())
	require.Equal(t, PhaseButtonClicked, attempt.Phase)

	modal := "Sie müssen angemeldet sein, um Medien vorbestellen zu können."
	require.NoError(t, attempt.observeModal(modal))
	require.Equal(t, PhaseAuthRequired, attempt.Phase)
	require.True(t, attempt.AuthRequired)
	require.Equal(t, modal, attempt.ModalText)
	require.True(t, attempt.Phase.Terminal())
}

func TestReservationLoginPatternVariants(t *testing.T) {
	for _, modal := range []string{
		"Bitte melden Sie sich an. Anmelden",
		"Zum Vorbestellen müssen Sie sich einloggen.",
		"Nur ANGEMELDET nutzbar",
	} {
		attempt := NewReservationAttempt("1", "")
		require.NoError(t, attempt.clickIssued())
		require.NoError(t, attempt.observeModal(modal))
		require.Equal(t, PhaseAuthRequired, attempt.Phase, "modal %q", modal)
	}
}

func TestReservationUnexpectedModal(t *testing.T) {
	attempt := NewReservationAttempt("105973", "")
	require.NoError(t, attempt.clickIssued())
	require.NoError(t, attempt.observeModal("Dieses Medium ist derzeit nicht vorbestellbar."))
	require.Equal(t, PhaseUnexpected, attempt.Phase)
	require.False(t, attempt.AuthRequired)
	require.True(t, attempt.Phase.Terminal())
}

func TestReservationSingleUse(t *testing.T) {
	attempt := NewReservationAttempt("204511", "")

	require.Error(t, attempt.observeModal("too early"))

	require.NoError(t, attempt.clickIssued())
	require.Error(t, attempt.clickIssued())

	require.NoError(t, attempt.observeModal("Anmelden"))
	require.Error(t, attempt.observeModal("again"))
	require.Error(t, attempt.clickIssued())
}
