package email

import "testing"

func TestNewResendSenderWithoutKeyIsNilInterface(t *testing.T) {
	t.Parallel()
	for _, key := range []string{"", "   "} {
		if sender := NewResendSender(key, "Cramdesk <noreply@cramdesk.app>"); sender != nil {
			t.Fatalf("NewResendSender(%q) = %T, want nil interface", key, sender)
		}
	}
}

func TestNewResendSenderWithKey(t *testing.T) {
	t.Parallel()
	if sender := NewResendSender("re_test_key", "Cramdesk <noreply@cramdesk.app>"); sender == nil {
		t.Fatal("NewResendSender with key returned nil")
	}
}
