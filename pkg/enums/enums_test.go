package enums

import "testing"

func TestParseSpinPreference(t *testing.T) {
	cases := map[string]SpinPreference{
		"":       SpinPreferenceAuto,
		"auto":   SpinPreferenceAuto,
		" FREE ": SpinPreferenceAuto,
		"credit": SpinPreferenceCredit,
		"Credit": SpinPreferenceCredit,
	}
	for in, want := range cases {
		got, err := ParseSpinPreference(in)
		if err != nil {
			t.Fatalf("ParseSpinPreference(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseSpinPreference(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseSpinPreference("turbo"); err == nil {
		t.Fatalf("expected error for unknown path")
	}
}

func TestRewardKindAttestation(t *testing.T) {
	if !RewardKindNFT.RequiresAttestation() || !RewardKindPartner.RequiresAttestation() {
		t.Fatalf("nft and partner rewards are redeemed on-chain")
	}
	if RewardKindPoints.RequiresAttestation() {
		t.Fatalf("points are credited off-chain")
	}
	if _, err := ParseRewardKind("gift"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestOutboxTypesValidate(t *testing.T) {
	if !EventSpinIssued.IsValid() || OutboxEventType("order_created").IsValid() {
		t.Fatalf("unexpected event type validation")
	}
	if got, err := ParseOutboxAggregateType("order"); err != nil || got != AggregateOrder {
		t.Fatalf("ParseOutboxAggregateType(order) = %q, %v", got, err)
	}
	if _, err := ParseOutboxEventType("order_created"); err == nil {
		t.Fatalf("expected error for unknown event type")
	}
	if !OutboxDLQReasonMaxAttempts.IsValid() || OutboxDLQErrorReason("timeout").IsValid() {
		t.Fatalf("unexpected dead letter reason validation")
	}
}

func TestFailureReasonWireValues(t *testing.T) {
	if ReasonInsufficientCooldown.String() != "insufficient-cooldown" || ReasonAlreadySettled.String() != "already-settled" {
		t.Fatalf("failure reasons must keep their wire values")
	}
}
