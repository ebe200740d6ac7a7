package coach

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNoopAdapter_AlwaysFails(t *testing.T) {
	var a Adapter = NoopAdapter{}
	_, err := a.Ask(context.Background(), "how should I prioritize today?", Context{})
	if !errors.Is(err, ErrNoProvider) {
		t.Errorf("expected ErrNoProvider, got %v", err)
	}
}

func TestBuildPrompt_IncludesTasksAndWarnings(t *testing.T) {
	studyCtx := Context{
		UpcomingTasks: []TaskSummary{
			{Title: "Essay draft", Subject: "English", Deadline: "2026-02-01"},
			{Title: "Problem set", Subject: "Calculus"},
		},
		RecentCompletion: 0.7,
		Warnings:         []string{"day_overload on 2026-02-01"},
	}
	prompt := buildPrompt("what should I do first?", studyCtx)

	for _, want := range []string{"Essay draft", "Problem set", "70%", "day_overload", "what should I do first?"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to contain %q, got:\n%s", want, prompt)
		}
	}
}
