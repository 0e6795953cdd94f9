package notify

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDisabledNotifier(t *testing.T) {
	n, err := New("", "", 0, 0)
	if err != nil {
		t.Fatalf("disabled notifier: %v", err)
	}
	if n.Enabled() {
		t.Error("notifier without token should be disabled")
	}
	// All sends must be silent no-ops.
	if err := n.SendMatchStart("T1 vs G2", 5); err != nil {
		t.Errorf("send on disabled notifier: %v", err)
	}
	if err := n.SendTrade("T1 vs G2", "T1",
		decimal.NewFromInt(30), decimal.NewFromFloat(0.5),
		decimal.NewFromFloat(0.56), decimal.NewFromFloat(0.06)); err != nil {
		t.Errorf("send trade on disabled notifier: %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	// A bogus token fails bot setup; a bad chat ID fails parsing. Either way
	// New must not return an enabled notifier.
	if _, err := New("token", "not-a-number", 3, time.Millisecond); err == nil {
		t.Error("expected error for invalid telegram config")
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	got := escapeMarkdownV2("T1 vs G2 (game 3) - 55.5%!")
	want := `T1 vs G2 \(game 3\) \- 55\.5%\!`
	if got != want {
		t.Errorf("escape: got %q want %q", got, want)
	}
}
