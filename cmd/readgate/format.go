package main

import (
	"encoding/json"
	"fmt"
)

// OutputFormat selects how a command renders its response.
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// humanFormatter is implemented by CLI responses with a readable rendering.
type humanFormatter interface {
	Human() string
}

// FormatResponse renders a response in the requested format. Responses
// without a human rendering fall back to JSON.
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		if h, ok := resp.(humanFormatter); ok {
			return h.Human(), nil
		}
		return formatJSON(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s (json, human)", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// printResponse renders and prints, exiting on a formatting error.
func printResponse(resp interface{}, format string) {
	out, err := FormatResponse(resp, OutputFormat(format))
	if err != nil {
		fatalf("Error formatting output: %v", err)
	}
	fmt.Println(out)
}
