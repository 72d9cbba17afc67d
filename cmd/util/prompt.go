package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cdnsync/pkg/sync"
)

// Prompter asks the user questions on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter that reads answers from `in`.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

var terminal = NewPrompter(os.Stdin, os.Stdout)

// PromptYesOrNo asks a question on the terminal. See Prompter.YesOrNo.
func PromptYesOrNo(question string) (bool, error) {
	return terminal.YesOrNo(question)
}

// YesOrNo prints `question` and waits for an answer. An empty answer is a
// yes. An error is returned if the input is closed before the user answers.
func (p *Prompter) YesOrNo(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s (Y/n) ", question)

	resp, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || resp == "") {
		fmt.Fprintln(p.out)
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(resp)) {
	case "n", "no":
		return false, nil
	default:
		return true, nil
	}
}

// PromptPolicy is a sync.RetryPolicy that asks the user whether to retry
// each failed download.
type PromptPolicy struct {
	prompter *Prompter
}

// NewPromptPolicy creates a PromptPolicy that asks on the terminal.
func NewPromptPolicy() PromptPolicy {
	return PromptPolicy{terminal}
}

func (policy PromptPolicy) ShouldRetry(kind sync.FailureKind, path string, err error) bool {
	out := policy.prompter.out

	fmt.Fprintf(out, "%s%s\n", Prefix(StatusError), err)
	var question string
	switch kind {
	case sync.IntegrityMismatch:
		fmt.Fprintln(out, "If this issue persists please try again in 15 minutes.")
		question = "Retry download?"
	default:
		question = fmt.Sprintf("Failed to download file %s, retry?", path)
	}

	retry, promptErr := policy.prompter.YesOrNo(question)
	if promptErr != nil {
		log.WithError(promptErr).Warn("Failed to read answer. Not retrying.")
		return false
	}

	if retry {
		log.WithFields(log.Fields{
			"path":  path,
			"cause": kind.String(),
		}).Debug("User chose to retry download")
		if kind == sync.IntegrityMismatch {
			fmt.Fprintf(out, "%sRetrying download for %s due to hash mismatch\n",
				Prefix(StatusInfo), path)
		}
	}
	return retry
}
