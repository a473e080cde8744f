package dashboard

import (
	"os"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func TestMain(m *testing.M) {
	// Plain output keeps rendered views comparable as text.
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}
