package bot

import (
	"context"
	"os/exec"
)

// chat platforms cap message length; long script output is chunked.
const maxMessageLen = 4096

// ShellRunner executes an operator command and returns its combined
// output. It is an external collaborator: the dispatcher only formats
// and relays the result.
type ShellRunner interface {
	Run(ctx context.Context, command string) (string, error)
}

type bashRunner struct{}

// NewBashRunner runs commands through /bin/bash -c. Only wired when
// SHELL_EXEC_ENABLED is set.
func NewBashRunner() ShellRunner { return bashRunner{} }

func (bashRunner) Run(ctx context.Context, command string) (string, error) {
	out, err := exec.CommandContext(ctx, "/bin/bash", "-c", command).CombinedOutput()
	return string(out), err
}

func (b *Bot) handleShell(ctx context.Context, chatID int64, command string) {
	if b.opts.Shell == nil {
		b.say(ctx, chatID, "Shell execution is disabled")
		return
	}

	b.say(ctx, chatID, "Trying to execute: "+command)
	out, err := b.opts.Shell.Run(ctx, command)
	if err != nil {
		out = out + "\n" + err.Error()
	}

	msg := "Script output: " + out
	for len(msg) > maxMessageLen {
		b.say(ctx, chatID, msg[:maxMessageLen])
		msg = msg[maxMessageLen:]
	}
	b.say(ctx, chatID, msg)
}
