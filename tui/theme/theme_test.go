package theme

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestResolveThemeAliases(t *testing.T) {
	assert.Equal(t, newKanagawaColors(), resolveThemeColors("Kanagawa Dragon"))
	assert.Equal(t, newTerminalColors(), resolveThemeColors("ansi"))
	assert.Equal(t, newKanagawaColors(), resolveThemeColors("does-not-exist"))
}

func TestThemeFromEnv(t *testing.T) {
	t.Setenv("PMD_THEME", "terminal")
	assert.Equal(t, "terminal", getThemeName())
	assert.Equal(t, newTerminalColors(), NewTheme().Colors)
}

func TestStatusStylesUsePalette(t *testing.T) {
	th := NewThemeWithName("terminal")
	assert.Equal(t, lipgloss.Color(terminalGreen), th.Success.GetForeground())
	assert.Equal(t, lipgloss.Color(terminalRed), th.Error.GetForeground())
	assert.Equal(t, lipgloss.Color(terminalYellow), th.Warning.GetForeground())
	assert.Equal(t, lipgloss.Color(terminalMutedText), th.StatusBar.GetForeground())
}

func TestIcons(t *testing.T) {
	assert.Equal(t, asciiIconSuccess, NewIcons(false).Success)
	assert.Equal(t, nerdIconError, NewIcons(true).Error)

	t.Setenv("PMD_NERD_FONTS", "1")
	assert.True(t, useNerdFonts())
	t.Setenv("PMD_NERD_FONTS", "false")
	assert.False(t, useNerdFonts())
}
