package alerting

import (
	"context"
	"errors"
	"strings"
	"testing"

	xerrors "QuantumProof-Ops/internal/errors"
)

type fakeSlackSender struct {
	channel string
	content string
	err     error
}

func (s *fakeSlackSender) Send(_ context.Context, channel, content string) error {
	s.channel = channel
	s.content = content
	return s.err
}

type fakeDingTalkSender struct {
	content string
	err     error
}

func (s *fakeDingTalkSender) Send(_ context.Context, content string) error {
	s.content = content
	return s.err
}

func TestFanoutBroadcastsToAllChannels(t *testing.T) {
	slack := &fakeSlackSender{}
	ding := &fakeDingTalkSender{}
	dispatcher := NewFanout(
		&SlackNotifier{Sender: slack, ChannelID: "ops"},
		&DingTalkNotifier{Sender: ding},
	)

	event := Event{
		Code:     xerrors.Code("VERIFICATION_FAILED"),
		Message:  "proof verification failed",
		Severity: xerrors.SeverityCritical,
		RunID:    "run-0a1b2c3d4e",
		Scenario: "private-loan-preapproval",
	}
	if err := dispatcher.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if slack.channel != "ops" {
		t.Fatalf("unexpected slack channel: %q", slack.channel)
	}
	if !strings.Contains(slack.content, "run-0a1b2c3d4e") {
		t.Fatalf("slack content missing run id: %q", slack.content)
	}
	if !strings.Contains(ding.content, "VERIFICATION_FAILED") {
		t.Fatalf("dingtalk content missing code: %q", ding.content)
	}
}

func TestFanoutJoinsChannelErrors(t *testing.T) {
	slack := &fakeSlackSender{err: errors.New("webhook down")}
	dispatcher := NewFanout(&SlackNotifier{Sender: slack, ChannelID: "ops"})

	err := dispatcher.Notify(context.Background(), Event{RunID: "run-0a1b2c3d4e"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "channel slack") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFromErrorCarriesSeverity(t *testing.T) {
	base := xerrors.New(xerrors.Code("VERIFICATION_FAILED"), "proof verification failed")
	event := FromError(base, "run-0a1b2c3d4e", "private-loan-preapproval", "fingerprint::abc")

	if event.Code != xerrors.Code("VERIFICATION_FAILED") {
		t.Fatalf("unexpected code: %s", event.Code)
	}
	if event.InputFingerprint != "fingerprint::abc" {
		t.Fatalf("unexpected fingerprint: %s", event.InputFingerprint)
	}
	if event.OccurredAt.IsZero() {
		t.Fatal("expected occurred_at to be set")
	}
}
