package console

import (
	"strings"

	"github.com/chzyer/readline"
)

const (
	Yes = "y"
	No  = "n"
)

var yesNoConstraints = []string{Yes, No}

func YesOrNo(question string) (string, error) {
	return Prompt(question, yesNoConstraints...)
}

// Ask reads a free form answer, falling back to def on empty input.
func Ask(question, def string) (string, error) {
	if def != "" {
		question = question + " [" + def + "]"
	}
	response, err := readLine(question + ": ")
	if err != nil {
		return "", err
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return def, nil
	}
	return response, nil
}

// Prompt restricts the answer to constraints, the first one being the default.
func Prompt(question string, constraints ...string) (string, error) {
	if len(constraints) == 0 {
		return readLine(question)
	}
	def := strings.ToUpper(constraints[0])
	var prompt strings.Builder
	prompt.WriteString(question)
	prompt.WriteString(" [")
	prompt.WriteString(def)
	for i := 1; i < len(constraints); i++ {
		prompt.WriteString("/")
		prompt.WriteString(constraints[i])
	}
	prompt.WriteString("]:")
	response, err := readLine(prompt.String())
	if err != nil {
		return "", err
	}
	return match(response, constraints), nil
}

func match(response string, constraints []string) string {
	normalized := strings.ToLower(strings.TrimSpace(response))
	for _, c := range constraints {
		if normalized == c {
			return normalized
		}
	}
	// no input or no constraint matched, return default
	return constraints[0]
}

func readLine(prompt string) (string, error) {
	rl, err := readline.New(prompt)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = rl.Close()
	}()
	return rl.Readline()
}
