package usecases

import (
	"context"
	"errors"
	"testing"
)

func TestVoiceChannelService_Join(t *testing.T) {
	env := newTestEnv(t)
	service := NewVoiceChannelService(env.controller, env.voiceState)

	output, err := service.Join(context.Background(), JoinInput{
		GuildID:               testGuildID,
		UserID:                testUserID,
		NotificationChannelID: testTextChannel,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output.VoiceChannelID != testVoiceChannel {
		t.Errorf("expected voice channel %d, got %d", testVoiceChannel, output.VoiceChannelID)
	}
	if output.Backend != "mock" || output.AlreadyJoined {
		t.Errorf("unexpected output: %+v", output)
	}
	if env.controller.Get(testGuildID) == nil {
		t.Error("expected a player to be registered")
	}
}

func TestVoiceChannelService_Join_SameChannelUpdatesNotificationChannel(t *testing.T) {
	env := newTestEnv(t)
	service := NewVoiceChannelService(env.controller, env.voiceState)
	player := env.connect(t)

	output, err := service.Join(context.Background(), JoinInput{
		GuildID:               testGuildID,
		UserID:                testUserID,
		NotificationChannelID: testOtherChannel,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !output.AlreadyJoined {
		t.Error("expected AlreadyJoined")
	}
	if player.NotificationChannelID() != testOtherChannel {
		t.Errorf("expected notification channel %d, got %d", testOtherChannel, player.NotificationChannelID())
	}
	if len(env.factory.sinks) != 1 {
		t.Errorf("expected a single connection, got %d", len(env.factory.sinks))
	}
}

func TestVoiceChannelService_Join_Errors(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		setup     func(env *testEnv)
		input     JoinInput
		wantErr   error
	}{
		{
			name:    "user not in voice",
			input:   JoinInput{GuildID: testGuildID, UserID: 999},
			wantErr: ErrUserNotInVoice,
		},
		{
			name:      "bot in another channel",
			connected: true,
			setup: func(env *testEnv) {
				env.voiceState.channels[testUserID] = testOtherChannel
			},
			input:   JoinInput{GuildID: testGuildID, UserID: testUserID},
			wantErr: ErrInOtherChannel,
		},
		{
			name:    "voice state failure",
			setup:   func(env *testEnv) { env.voiceState.err = errStoreDown },
			input:   JoinInput{GuildID: testGuildID, UserID: testUserID},
			wantErr: errStoreDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			service := NewVoiceChannelService(env.controller, env.voiceState)
			if tt.connected {
				env.connect(t)
			}
			if tt.setup != nil {
				tt.setup(env)
			}

			_, err := service.Join(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestVoiceChannelService_Join_ExplicitChannel(t *testing.T) {
	env := newTestEnv(t)
	service := NewVoiceChannelService(env.controller, env.voiceState)

	output, err := service.Join(context.Background(), JoinInput{
		GuildID:        testGuildID,
		UserID:         999,
		VoiceChannelID: testOtherChannel,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.VoiceChannelID != testOtherChannel {
		t.Errorf("expected voice channel %d, got %d", testOtherChannel, output.VoiceChannelID)
	}
}

func TestVoiceChannelService_Join_ConnectionFailure(t *testing.T) {
	env := newTestEnv(t)
	env.factory.openErr = errors.New("gateway timeout")
	service := NewVoiceChannelService(env.controller, env.voiceState)

	_, err := service.Join(context.Background(), JoinInput{GuildID: testGuildID, UserID: testUserID})
	if err == nil {
		t.Fatal("expected an error")
	}
	if env.controller.Get(testGuildID) != nil {
		t.Error("expected no player after a failed connection")
	}
}

func TestVoiceChannelService_Leave(t *testing.T) {
	env := newTestEnv(t)
	service := NewVoiceChannelService(env.controller, env.voiceState)

	if err := service.Leave(context.Background(), LeaveInput{GuildID: testGuildID}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	player := env.connect(t)
	if err := service.Leave(context.Background(), LeaveInput{GuildID: testGuildID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !player.IsDestroyed() {
		t.Error("expected the player to be destroyed")
	}
	if env.controller.Get(testGuildID) != nil {
		t.Error("expected the player to be unregistered")
	}
}
