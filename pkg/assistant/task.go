package assistant

import (
	"fmt"
	"slices"
)

// Task names an assistant operation.
type Task string

const (
	TaskTranslate       Task = "translate"
	TaskPolish          Task = "polish"
	TaskAsk             Task = "ask"
	TaskSpeechTranslate Task = "speech-translate"

	// TaskChat is a turn of the interactive conversation.
	TaskChat Task = "chat"
)

// Tasks returns the one-shot tasks, in display order.
func Tasks() []Task {
	return []Task{TaskTranslate, TaskPolish, TaskAsk, TaskSpeechTranslate}
}

// ParseTask resolves a one-shot task name.
func ParseTask(name string) (Task, error) {
	t := Task(name)
	if !slices.Contains(Tasks(), t) {
		return "", fmt.Errorf("unknown task %q, expected one of %v", name, Tasks())
	}
	return t, nil
}
