package main

import "github.com/charmbracelet/lipgloss"

var (
	// https://github.com/muesli/termenv/blob/master/ansicolors.go
	red  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	cyan = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)
