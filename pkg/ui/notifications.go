package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// SenderFunc adapts a function to NotificationSender
type SenderFunc func(title, message string) error

func (f SenderFunc) Send(title, message string) error { return f(title, message) }

// commandSender runs a platform tool built from title and message
type commandSender func(title, message string) *exec.Cmd

func (c commandSender) Send(title, message string) error { return c(title, message).Run() }

func platformSender(goos string) NotificationSender {
	switch goos {
	case "linux":
		return commandSender(func(title, message string) *exec.Cmd {
			return exec.Command("notify-send", "--app-name=dailynews", title, message)
		})
	case "darwin":
		return commandSender(func(title, message string) *exec.Cmd {
			script := fmt.Sprintf("display notification %s with title %s", appleQuote(message), appleQuote(title))
			return exec.Command("osascript", "-e", script)
		})
	default:
		return nil
	}
}

func appleQuote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// Notifier reports scheduled run outcomes on the console and, where the
// platform supports it, as a desktop notification.
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks the sender for the current platform
func NewNotifier() *Notifier {
	return &Notifier{sender: platformSender(runtime.GOOS)}
}

// NewNotifierWithSender uses sender, which may be nil for console only
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// SendSuccess announces a finished run
func (n *Notifier) SendSuccess(title, message string) {
	fmt.Fprintf(out, "\n%s: %s\n", Green(title), Green(message))
	n.send(title, message)
}

// SendError announces a failed run
func (n *Notifier) SendError(title, message string) {
	fmt.Fprintf(out, "\n%s: %s\n", Red(title), Red(message))
	n.send(title, message)
}

func (n *Notifier) send(title, message string) {
	if n.sender == nil {
		return
	}
	// notifications are best effort; the console line above already went out
	_ = n.sender.Send(title, message)
}
