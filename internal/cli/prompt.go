package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// choose asks question until the answer is one of choices. It returns
// io.EOF once input runs out.
func (s *session) choose(question string, choices ...string) (string, error) {
	for {
		fmt.Fprintf(s.out, "%s [%s]: ", question, strings.Join(choices, "/"))

		line, err := s.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer == "" && err != nil {
			fmt.Fprintln(s.out)
			if err == io.EOF {
				return "", io.EOF
			}
			return "", fmt.Errorf("read answer: %w", err)
		}

		if slices.Contains(choices, answer) {
			return answer, nil
		}
		fmt.Fprintf(s.out, "Please answer one of %s.\n", strings.Join(choices, ", "))
		if err != nil {
			return "", io.EOF
		}
	}
}
