package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// PromptFromArgs joins args into a prompt. With no args, or a single "-",
// the prompt is read from in.
func PromptFromArgs(args []string, in io.Reader) (string, error) {
	if len(args) > 0 && (len(args) != 1 || args[0] != "-") {
		prompt := strings.TrimSpace(strings.Join(args, " "))
		if prompt == "" {
			return "", errors.New("prompt cannot be empty")
		}
		return prompt, nil
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("no prompt given; pass it as an argument or on stdin")
	}
	return prompt, nil
}

// ReadLines returns the non-blank, trimmed lines of r. Lines starting with
// "#" are skipped.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading lines: %w", err)
	}
	return lines, nil
}
