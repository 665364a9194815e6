package domain

import (
	"testing"

	"github.com/disgoorg/snowflake/v2"
)

func TestStaySetting_RoundTrip(t *testing.T) {
	setting := StaySetting{GuildID: 1, VoiceChannelID: 100, NotificationChannelID: 200}

	if got := StayKey(1); got != "247:1" {
		t.Errorf("expected key 247:1, got %q", got)
	}
	if got := setting.Encode(); got != "100:200" {
		t.Errorf("expected 100:200, got %q", got)
	}

	parsed, err := ParseStaySetting(1, setting.Encode())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != setting {
		t.Errorf("expected %+v, got %+v", setting, parsed)
	}
}

func TestParseStaySetting_Malformed(t *testing.T) {
	for _, value := range []string{"", "100", "abc:200", "100:xyz"} {
		t.Run(value, func(t *testing.T) {
			if _, err := ParseStaySetting(snowflake.ID(1), value); err == nil {
				t.Errorf("expected error for %q", value)
			}
		})
	}
}
