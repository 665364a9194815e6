package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/disgoorg/snowflake/v2"
)

func TestNotificationChannelService_Set(t *testing.T) {
	env := newTestEnv(t)
	service := NewNotificationChannelService(env.controller)
	ctx := context.Background()

	_, err := service.Set(ctx, SetNotificationChannelInput{
		GuildID:   testGuildID,
		ChannelID: testOtherChannel,
	})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	player := env.connect(t)
	original := player.NotificationChannelID()

	tests := []struct {
		name        string
		channelID   snowflake.ID
		wantChanged bool
		wantChannel snowflake.ID
	}{
		{name: "zero keeps current", channelID: 0, wantChanged: false, wantChannel: original},
		{name: "same channel", channelID: original, wantChanged: false, wantChannel: original},
		{name: "new channel", channelID: testOtherChannel, wantChanged: true, wantChannel: testOtherChannel},
		{name: "repeat is no change", channelID: testOtherChannel, wantChanged: false, wantChannel: testOtherChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := service.Set(ctx, SetNotificationChannelInput{
				GuildID:   testGuildID,
				ChannelID: tt.channelID,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if changed != tt.wantChanged {
				t.Errorf("expected changed=%v, got %v", tt.wantChanged, changed)
			}
			if got := player.NotificationChannelID(); got != tt.wantChannel {
				t.Errorf("expected channel %d, got %d", tt.wantChannel, got)
			}
		})
	}
}
