package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusCompleted, true},
		{OrderStatusProcessing, OrderStatusFailed, true},
		{OrderStatusProcessing, OrderStatusPending, false},
		{OrderStatusCompleted, OrderStatusProcessing, false},
		{OrderStatusCompleted, OrderStatusCancelled, true},
		{OrderStatusFailed, OrderStatusCompleted, false},
		{OrderStatusCancelled, OrderStatusProcessing, false},
		{OrderStatusProcessing, OrderStatusProcessing, false},
		{OrderStatusProcessing, OrderStatus("shipped"), false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("completed")
	if err != nil || status != OrderStatusCompleted {
		t.Fatalf("unexpected parse result %q %v", status, err)
	}
	if _, err := ParseOrderStatus("COMPLETED"); err == nil {
		t.Fatal("expected parse to be case sensitive")
	}
}

func TestOrderStatusTerminalMeansNoTransitions(t *testing.T) {
	for _, from := range validOrderStatuses {
		canMove := false
		for _, to := range validOrderStatuses {
			if from.CanTransitionTo(to) {
				canMove = true
			}
		}
		if from.IsTerminal() == canMove {
			t.Fatalf("%s: terminal=%v but can transition=%v", from, from.IsTerminal(), canMove)
		}
	}
}
