package bot

import (
	"fmt"
	"strconv"
	"strings"

	"gantt-tracker/internal/service"
)

var (
	editKeys     = []string{"name", "start", "end", "progress", "remarks", "milestone", "parent", "assignee", "resource", "after"}
	resourceKeys = []string{"name", "role", "color", "utilization"}
)

// parseFields reads "key=value" pairs. Words without a known key extend the previous
// value, so names and remarks may contain spaces. Leading words go to first.
func parseFields(args, first string, keys []string) (map[string]string, error) {
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
	}

	fields := make(map[string]string)
	current := first
	for _, word := range strings.Fields(args) {
		if key, value, ok := strings.Cut(word, "="); ok && known[strings.ToLower(key)] {
			current = strings.ToLower(key)
			fields[current] = value
			continue
		}
		if current == "" {
			return nil, fmt.Errorf("expected key=value, got %q", word)
		}
		if fields[current] == "" {
			fields[current] = word
		} else {
			fields[current] += " " + word
		}
	}
	return fields, nil
}

// applyEdits overlays parsed fields on input.
func applyEdits(input *service.TaskInput, fields map[string]string) error {
	for key, value := range fields {
		value = strings.TrimSpace(value)
		switch key {
		case "name":
			input.Name = value
		case "remarks":
			input.Remarks = value
		case "start", "end":
			date, err := service.ParseDate(value)
			if err != nil {
				return err
			}
			if key == "start" {
				input.StartDate = date
			} else {
				input.EndDate = date
			}
		case "progress":
			progress, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
			if err != nil {
				return fmt.Errorf("progress must be a number, got %q", value)
			}
			input.Progress = progress
		case "milestone":
			switch {
			case isYesInput(value):
				input.IsMilestone = true
			case isNoInput(value):
				input.IsMilestone = false
			default:
				return fmt.Errorf("milestone must be yes or no, got %q", value)
			}
		case "parent", "assignee", "resource":
			id, err := optionalID(value)
			if err != nil {
				return fmt.Errorf("%s must be an id or none, got %q", key, value)
			}
			switch key {
			case "parent":
				input.ParentID = id
			case "assignee":
				input.AssigneeID = id
			default:
				input.ResourceID = id
			}
		case "after":
			if isNone(value) {
				input.Predecessors = []string{}
			} else {
				input.Predecessors = splitIDs(value)
			}
		default:
			return fmt.Errorf("unknown field %q", key)
		}
	}
	return nil
}

func optionalID(value string) (*uint, error) {
	if isNone(value) {
		return nil, nil
	}
	id, err := parseID(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func isNone(value string) bool {
	switch normalizeInput(value) {
	case "", "none", "-", "null":
		return true
	}
	return false
}
