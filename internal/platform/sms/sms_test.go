package sms

import (
	"testing"

	"ptotracker/internal/platform/config"
)

func TestE164(t *testing.T) {
	cases := map[string]string{
		"555-010-2222":   "+15550102222",
		"(555) 010 2222": "+15550102222",
		"+15550102222":   "+15550102222",
		"12345":          "12345",
	}
	for in, want := range cases {
		if got := E164(in); got != want {
			t.Fatalf("E164(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewWithoutCredentials(t *testing.T) {
	if _, ok := New(config.Config{}).(noopSender); !ok {
		t.Fatal("expected noop sender without twilio credentials")
	}
	if _, ok := New(config.Config{TwilioSID: "AC1", TwilioToken: "t", TwilioFrom: "+15550000000"}).(*twilioSender); !ok {
		t.Fatal("expected twilio sender")
	}
}
