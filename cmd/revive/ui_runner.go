package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/paritytech/revive-sub000/internal/buildpipeline"
	"github.com/paritytech/revive-sub000/internal/project"
	"github.com/paritytech/revive-sub000/internal/ui"
)

type buildOutcome struct {
	results map[string]project.Result
	err     error
}

// runBuildWithUI builds p while a progress view listens to its events.
func runBuildWithUI(ctx context.Context, title string, p *project.Project) (map[string]project.Result, error) {
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	paths := make([]string, len(p.Contracts))
	for i, c := range p.Contracts {
		paths[i] = c.Path
	}

	go func() {
		pc := *p
		pc.Progress = buildpipeline.ChannelSink{Ch: events}
		results, err := pc.Build(ctx)
		outcomeCh <- buildOutcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, paths, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// keep draining so the build goroutine can finish
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
